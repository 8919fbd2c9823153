// Package parser turns raw session transcripts into ordered conversational entries.
package parser

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

// maxLineSize bounds a single JSONL record. Tool results can be large;
// longer lines are skipped.
var maxLineSize = 16 * 1024 * 1024

// EntrySeparator joins entry texts in Transcript.FullText.
const EntrySeparator = "\n\n---\n\n"

// Role of the speaker of an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Entry is one conversational turn.
type Entry struct {
	Index     int
	Role      Role
	Text      string
	Timestamp time.Time
}

// Transcript is the parsed form of a session log.
type Transcript struct {
	Entries        []Entry
	FullText       string
	ConversationID string
	StartedAt      time.Time
	EndedAt        time.Time
	ModifiedFiles  []string
	Skipped        int
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.Entries)
}

// editTools name the tool_use blocks whose file_path counts as a modified file.
var editTools = map[string]bool{
	"Edit":         true,
	"Write":        true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// record covers both the agent log shape and the flat {role, content} shape.
type record struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Timestamp string          `json:"timestamp"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Text      string          `json:"text"`
	Message   *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type block struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Name    string          `json:"name"`
	Input   json.RawMessage `json:"input"`
	Content json.RawMessage `json:"content"`
}

// ParseFile reads a JSONL transcript. A missing file yields an empty transcript.
func ParseFile(path string, logger *slog.Logger) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Transcript{}, nil
		}
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	return Parse(f, logger)
}

// Parse reads JSONL records from r. Malformed lines are skipped.
func Parse(r io.Reader, logger *slog.Logger) (*Transcript, error) {
	if logger == nil {
		logger = slog.Default()
	}

	t := &Transcript{}
	files := map[string]bool{}

	br := bufio.NewReaderSize(r, 64*1024)
	lineNo := 0
	for {
		raw, oversized, err := readLine(br, maxLineSize)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read transcript: %w", err)
		}
		if len(raw) > 0 || oversized {
			lineNo++
			t.add(raw, oversized, lineNo, files, logger)
		}
		if err != nil {
			break
		}
	}

	t.finish(files)
	return t, nil
}

// add appends the entries of one JSONL line.
func (t *Transcript) add(raw []byte, oversized bool, lineNo int, files map[string]bool, logger *slog.Logger) {
	if oversized {
		logger.Debug("skipping oversized transcript line", "line", lineNo, "limit", maxLineSize)
		t.Skipped++
		return
	}
	line := strings.TrimSpace(string(raw))
	if line == "" {
		return
	}

	var rec record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		logger.Debug("skipping malformed transcript line", "line", lineNo, "error", err)
		t.Skipped++
		return
	}

	if t.ConversationID == "" && rec.SessionID != "" {
		t.ConversationID = rec.SessionID
	}

	ts := parseTimestamp(rec.Timestamp)
	for _, e := range rec.entries(files) {
		e.Index = len(t.Entries)
		e.Timestamp = ts
		t.Entries = append(t.Entries, e)
	}
}

// readLine returns the next line without its size growing past limit. The
// rest of a longer line is consumed and discarded, and oversized is set.
func readLine(br *bufio.Reader, limit int) (line []byte, oversized bool, err error) {
	for {
		chunk, rerr := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > limit+1 {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		return line, oversized, rerr
	}
}

func (t *Transcript) finish(files map[string]bool) {
	texts := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		texts = append(texts, e.Text)
		if e.Timestamp.IsZero() {
			continue
		}
		if t.StartedAt.IsZero() || e.Timestamp.Before(t.StartedAt) {
			t.StartedAt = e.Timestamp
		}
		if e.Timestamp.After(t.EndedAt) {
			t.EndedAt = e.Timestamp
		}
	}
	t.FullText = strings.Join(texts, EntrySeparator)

	for f := range files {
		t.ModifiedFiles = append(t.ModifiedFiles, f)
	}
	sort.Strings(t.ModifiedFiles)
}

// entries converts one record into zero or more entries.
func (r record) entries(files map[string]bool) []Entry {
	role := r.Role
	content := r.Content
	if r.Message != nil {
		if r.Message.Role != "" {
			role = r.Message.Role
		}
		content = r.Message.Content
	}
	if role == "" {
		role = r.Type
	}

	var speaker Role
	switch role {
	case "user", "human":
		speaker = RoleUser
	case "assistant":
		speaker = RoleAssistant
	case "tool":
		speaker = RoleTool
	default:
		return nil
	}

	if len(content) == 0 {
		if text := strings.TrimSpace(r.Text); text != "" {
			return []Entry{{Role: speaker, Text: text}}
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return []Entry{{Role: speaker, Text: s}}
		}
		return nil
	}

	var blocks []block
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil
	}

	var out []Entry
	var text []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if s := strings.TrimSpace(b.Text); s != "" {
				text = append(text, s)
			}
		case "tool_use":
			if editTools[b.Name] {
				var in struct {
					FilePath     string `json:"file_path"`
					NotebookPath string `json:"notebook_path"`
				}
				if json.Unmarshal(b.Input, &in) == nil {
					if in.FilePath != "" {
						files[in.FilePath] = true
					} else if in.NotebookPath != "" {
						files[in.NotebookPath] = true
					}
				}
			}
		case "tool_result":
			if s := flattenContent(b.Content); s != "" {
				out = append(out, Entry{Role: RoleTool, Text: s})
			}
		}
	}
	if len(text) > 0 {
		out = append([]Entry{{Role: speaker, Text: strings.Join(text, "\n\n")}}, out...)
	}
	return out
}

// flattenContent handles tool_result content given either as a string or as text blocks.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var blocks []block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, strings.TrimSpace(b.Text))
		}
	}
	return strings.Join(parts, "\n\n")
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
