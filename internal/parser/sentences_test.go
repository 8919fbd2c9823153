package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "We decided to use SQLite.", []string{"We decided to use SQLite."}},
		{"two", "First one. Second one!", []string{"First one.", "Second one!"}},
		{"question", "Is it fast? Yes.", []string{"Is it fast?", "Yes."}},
		{"no terminator", "just words", []string{"just words"}},
		{"newlines split", "- add tests\n- fix bug", []string{"- add tests", "- fix bug"}},
		{"initials kept", "Ask J. Smith about it.", []string{"Ask J. Smith about it."}},
		{"decimal kept", "Version 1.5 is out.", []string{"Version 1.5 is out."}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}
