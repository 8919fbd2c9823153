package tools_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rab-crypto/tenax-sub001/internal/embedding"
	"github.com/Rab-crypto/tenax-sub001/internal/index"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
	"github.com/Rab-crypto/tenax-sub001/internal/tools"
	"github.com/Rab-crypto/tenax-sub001/internal/vectorstore"
)

// testLogger creates a logger for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// connect registers every tool on a fresh server backed by a hash-embedder
// service and returns a connected client session.
func connect(t *testing.T) (context.Context, *mcp.ClientSession) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	dataDir := filepath.Join(t.TempDir(), ".tenax")
	emb := embedding.NewHashEmbedder(32)
	store, err := vectorstore.Open(ctx, filepath.Join(dataDir, "vectors.db"), vectorstore.Options{Dimension: 32, Model: emb.Model()})
	require.NoError(t, err)

	svc := service.New(service.Options{
		ProjectRoot: filepath.Dir(dataDir),
		SessionsDir: filepath.Join(dataDir, "sessions"),
		Repo:        index.NewRepository(dataDir),
		Store:       store,
		Embedder:    emb,
		Logger:      testLogger(),
	})
	t.Cleanup(func() { _ = svc.Close() })

	server := mcp.NewServer(&mcp.Implementation{Name: "test-tenax", Version: "0.0.1-test"}, nil)
	tools.RegisterAll(server, &tools.Dependencies{Service: svc, Logger: testLogger()})

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() { _ = server.Run(ctx, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err, "client should connect successfully")
	t.Cleanup(func() { _ = session.Close() })

	return ctx, session
}

func call(t *testing.T, ctx context.Context, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text, res.IsError
}

func TestToolsRegistered(t *testing.T) {
	ctx, session := connect(t)

	result, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
	}
	assert.ElementsMatch(t, tools.ToolNames, names)
}

func TestRememberSearchForget(t *testing.T) {
	ctx, session := connect(t)

	text, isErr := call(t, ctx, session, "remember", map[string]any{
		"decisions": []map[string]any{{"topic": "database", "decision": "Use SQLite for local storage"}},
		"tasks":     []map[string]any{{"title": "Add integration tests", "priority": "high"}},
	})
	require.False(t, isErr, text)

	var remembered tools.RememberResult
	require.NoError(t, json.Unmarshal([]byte(text), &remembered))
	assert.Equal(t, 1, remembered.Added.Decisions)
	assert.Equal(t, 1, remembered.Added.Tasks)
	require.Len(t, remembered.Items, 2)
	decisionID := remembered.Items[0].ID
	taskID := remembered.Items[1].ID

	t.Run("duplicate is counted", func(t *testing.T) {
		text, isErr := call(t, ctx, session, "remember", map[string]any{
			"decisions": []map[string]any{{"topic": "database", "decision": "use sqlite for local storage"}},
		})
		require.False(t, isErr, text)
		var res tools.RememberResult
		require.NoError(t, json.Unmarshal([]byte(text), &res))
		assert.Zero(t, res.Added.Total())
		assert.Equal(t, 1, res.Duplicates.Decisions)
	})

	t.Run("search", func(t *testing.T) {
		text, isErr := call(t, ctx, session, "search", map[string]any{"query": "database storage", "limit": 3})
		require.False(t, isErr, text)

		var res struct {
			Hits []struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Headline string `json:"headline"`
			} `json:"hits"`
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal([]byte(text), &res))
		require.Equal(t, 2, res.Count)
		assert.Equal(t, decisionID, res.Hits[0].ID)
		assert.Equal(t, "decision", res.Hits[0].Type)
	})

	t.Run("search rejects unknown type", func(t *testing.T) {
		text, isErr := call(t, ctx, session, "search", map[string]any{"query": "x", "types": []string{"bogus"}})
		assert.True(t, isErr)
		assert.Contains(t, text, "Unknown type")
	})

	t.Run("complete task", func(t *testing.T) {
		text, isErr := call(t, ctx, session, "complete_task", map[string]any{"id": taskID})
		require.False(t, isErr, text)
		assert.Contains(t, text, `"status": "completed"`)

		text, isErr = call(t, ctx, session, "complete_task", map[string]any{"id": taskID})
		assert.True(t, isErr)
		assert.Contains(t, text, "already completed")
	})

	t.Run("forget", func(t *testing.T) {
		text, isErr := call(t, ctx, session, "forget", map[string]any{"ids": []string{decisionID}})
		require.False(t, isErr, text)
		assert.Contains(t, text, `"deleted": 1`)

		text, isErr = call(t, ctx, session, "forget", map[string]any{"ids": []string{decisionID}})
		assert.True(t, isErr)
		assert.Contains(t, text, "search to find")
	})

	t.Run("stats", func(t *testing.T) {
		text, isErr := call(t, ctx, session, "stats", map[string]any{})
		require.False(t, isErr, text)
		var st service.StatsReport
		require.NoError(t, json.Unmarshal([]byte(text), &st))
		assert.Equal(t, 1, st.Vectors)
		assert.Equal(t, 1, st.Index.TotalTasks.Completed)
	})
}

func TestCaptureTool(t *testing.T) {
	ctx, session := connect(t)

	path := filepath.Join(t.TempDir(), "session.jsonl")
	line := `{"role":"assistant","content":"[DECISION: database] Use SQLite\n\n[TASK: high] Add tests"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(line), 0o644))

	text, isErr := call(t, ctx, session, "capture", map[string]any{"transcriptPath": path, "sessionId": "abc"})
	require.False(t, isErr, text)

	var res tools.CaptureResult
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.Equal(t, "abc", res.SessionID)
	assert.Equal(t, 1, res.Added.Decisions)
	assert.Equal(t, 1, res.Added.Tasks)
	assert.NotEmpty(t, res.Summary)
}

func TestToolValidation(t *testing.T) {
	ctx, session := connect(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{name: "empty query", tool: "search", args: map[string]any{"query": ""}, want: "Query cannot be empty"},
		{name: "limit too high", tool: "search", args: map[string]any{"query": "x", "limit": 500}, want: "Limit must be 1-100"},
		{name: "search before init", tool: "search", args: map[string]any{"query": "x"}, want: "tenax init"},
		{name: "nothing to remember", tool: "remember", args: map[string]any{}, want: "Nothing to remember"},
		{name: "no ids", tool: "forget", args: map[string]any{"ids": []string{}}, want: "At least one ID"},
		{name: "no transcript", tool: "capture", args: map[string]any{"transcriptPath": ""}, want: "transcriptPath is required"},
		{name: "no task id", tool: "complete_task", args: map[string]any{"id": ""}, want: "id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, ctx, session, tt.tool, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.want)
		})
	}
}
