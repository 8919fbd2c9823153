//go:build integration

package embedding

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	ollamaImage     = "ollama/ollama:0.5.7"
	ollamaTestModel = "all-minilm:l6-v2"
)

func TestLangchainEmbedderOllama(t *testing.T) {
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        ollamaImage,
			ExposedPorts: []string{"11434/tcp"},
			WaitingFor:   wait.ForLog("Listening on").WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	code, _, err := container.Exec(ctx, []string{"ollama", "pull", ollamaTestModel})
	require.NoError(t, err)
	require.Equal(t, 0, code, "model pull failed")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "11434")
	require.NoError(t, err)

	e, err := NewLangchainEmbedder(Config{
		Provider:   ProviderOllama,
		Model:      ollamaTestModel,
		Dimension:  384,
		OllamaHost: fmt.Sprintf("http://%s:%s", host, port.Port()),
	}, nil)
	require.NoError(t, err)

	v, err := e.Embed(ctx, "Use SQLite for storage")
	require.NoError(t, err)
	assert.Len(t, v, 384)

	batch, err := e.EmbedBatch(ctx, []string{"Use SQLite for storage", "Add tests"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	for i := range v {
		assert.InDelta(t, v[i], batch[0][i], 1e-3)
	}
}
