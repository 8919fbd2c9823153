package server_test

import (
	"bytes"
	"context"
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
	"github.com/Rab-crypto/tenax-sub001/internal/server"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
	"github.com/Rab-crypto/tenax-sub001/internal/tools"
	"github.com/Rab-crypto/tenax-sub001/internal/vectorstore"
)

// testLogger creates a logger that writes to stderr for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testDeps(t *testing.T) *tools.Dependencies {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), ".tenax")
	emb := embedding.NewHashEmbedder(16)
	store, err := vectorstore.Open(context.Background(), filepath.Join(dataDir, "vectors.db"), vectorstore.Options{Dimension: 16})
	require.NoError(t, err)

	svc := service.New(service.Options{
		Repo:     index.NewRepository(dataDir),
		Store:    store,
		Embedder: emb,
		Logger:   testLogger(),
	})
	t.Cleanup(func() { _ = svc.Close() })
	return &tools.Dependencies{Service: svc, Logger: testLogger()}
}

func TestServerCreation(t *testing.T) {
	srv := server.New("test-version", testLogger())
	require.NotNil(t, srv, "server should not be nil")
	require.NotNil(t, srv.MCPServer(), "underlying MCP server should not be nil")
}

func TestServerWithInMemoryTransport(t *testing.T) {
	srv := server.New("0.1.0-test", testLogger())
	srv.Setup(testDeps(t))

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.MCPServer().Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err, "client should connect successfully")
	defer session.Close()

	initResult := session.InitializeResult()
	require.NotNil(t, initResult, "initialize result should not be nil")
	assert.Equal(t, "tenax", initResult.ServerInfo.Name)
	assert.Equal(t, "0.1.0-test", initResult.ServerInfo.Version)
	assert.NotEmpty(t, initResult.Instructions)

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err, "ListTools should succeed")
	assert.Len(t, toolsResult.Tools, len(tools.ToolNames))

	for i := 0; i < 3; i++ {
		_, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "request %d should succeed", i)
	}

	err = session.Close()
	assert.NoError(t, err, "session close should not error")
	cancel()

	select {
	case err := <-serverErr:
		if err != nil {
			t.Logf("server stopped with: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("server did not stop within timeout")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv := mcp.NewServer(&mcp.Implementation{Name: "t", Version: "1"}, nil)
	srv.AddReceivingMiddleware(server.LoggingMiddleware(logger))
	tools.RegisterAll(srv, testDeps(t))

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = srv.Run(ctx, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "c", Version: "1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "search", Arguments: map[string]any{"query": ""}})
	require.NoError(t, err)
	require.True(t, res.IsError)

	out := buf.String()
	assert.Contains(t, out, "method=tools/call")
	assert.Contains(t, out, "tool=search")
	assert.Contains(t, out, "tool returned error")
}
