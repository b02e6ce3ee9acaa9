package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/container"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	snapshotURI = "arbor://snapshot"
	outlineURI  = "arbor://outline"
)

// Engine defines the interface required by the MCP server to interact with Arbor.
type Engine interface {
	ports.TreeEngine
	Trash(ctx context.Context, id string) error
	Move(ctx context.Context, id, containerID, parentNodeID string, index int) error
	Spawn(ctx context.Context, elementType, containerID, parentNodeID string, index int) (domain.Node, error)
}

// SnapshotResponse is returned by get_snapshot.
type SnapshotResponse struct {
	Revision uint64              `json:"revision"`
	Snapshot domain.SnapshotNode `json:"snapshot"`
}

// Server wraps the Arbor Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the MCP server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_snapshot",
		mcp.WithDescription("Get the serialization-safe snapshot of the whole tree and its revision."),
	), s.handleGetSnapshot)

	s.mcpServer.AddTool(mcp.NewTool("get_element",
		mcp.WithDescription("Get one element (id, type, name, payload, container) without its children."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Element ID")),
	), s.handleGetElement)

	s.mcpServer.AddTool(mcp.NewTool("reconcile_children",
		mcp.WithDescription("Submit the full ordered child list of a container. Children omitted from the list are removed."),
		mcp.WithString("container_id", mcp.Required(), mcp.Description("Container ID")),
		mcp.WithString("parent_node_id", mcp.Description("ID of the node hosting the container (defaults to root)")),
		mcp.WithArray("children", mcp.Required(),
			mcp.Description("Ordered list of nodes ({id, type, name, payload, fields})"),
			mcp.Items(map[string]any{"type": "object"}),
		),
	), s.handleReconcile)

	s.mcpServer.AddTool(mcp.NewTool("remove_element",
		mcp.WithDescription("Remove an element and its subtree."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Element ID")),
		mcp.WithBoolean("trash", mcp.Description("Report the removal as a drop on the trash")),
	), s.handleRemove)

	s.mcpServer.AddTool(mcp.NewTool("update_element",
		mcp.WithDescription("Update the name, type or payload of an element."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Element ID")),
		mcp.WithString("name", mcp.Description("New display name")),
		mcp.WithString("type", mcp.Description("New element type")),
		mcp.WithObject("payload", mcp.Description("New payload, replacing the current one")),
	), s.handleUpdate)

	s.mcpServer.AddTool(mcp.NewTool("move_element",
		mcp.WithDescription("Move an element, subtree included, into a container at the given index."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Element ID")),
		mcp.WithString("container_id", mcp.Required(), mcp.Description("Target container ID")),
		mcp.WithString("parent_node_id", mcp.Description("ID of the node hosting the target container (defaults to root)")),
		mcp.WithNumber("index", mcp.Description("Drop index; omit or -1 to append")),
	), s.handleMove)

	s.mcpServer.AddTool(mcp.NewTool("spawn_element",
		mcp.WithDescription("Create an element from a palette template and drop it into a container."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Palette template type")),
		mcp.WithString("container_id", mcp.Required(), mcp.Description("Target container ID")),
		mcp.WithString("parent_node_id", mcp.Description("ID of the node hosting the target container (defaults to root)")),
		mcp.WithNumber("index", mcp.Description("Drop index; omit or -1 to append")),
	), s.handleSpawn)

	s.mcpServer.AddTool(mcp.NewTool("flush_all",
		mcp.WithDescription("Clear the whole tree."),
	), s.handleFlushAll)

	s.mcpServer.AddTool(mcp.NewTool("save_snapshot",
		mcp.WithDescription("Persist the current tree under a name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Snapshot name")),
	), s.handleSaveSnapshot)

	s.mcpServer.AddTool(mcp.NewTool("load_snapshot",
		mcp.WithDescription("Replace the tree with a saved snapshot."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Snapshot name")),
	), s.handleLoadSnapshot)

	s.mcpServer.AddTool(mcp.NewTool("list_snapshots",
		mcp.WithDescription("List the saved snapshot names."),
	), s.handleListSnapshots)
}

func (s *Server) handleGetSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, rev := s.engine.Snapshot()
	return jsonResult(SnapshotResponse{Revision: rev, Snapshot: snap})
}

func (s *Server) handleGetElement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	el, err := s.engine.Element(id)
	if err != nil {
		return s.toolError("get_element", err), nil
	}
	return jsonResult(el)
}

type reconcileArgs struct {
	ContainerID  string        `json:"container_id"`
	ParentNodeID string        `json:"parent_node_id"`
	Children     []domain.Node `json:"children"`
}

func (s *Server) handleReconcile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args reconcileArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if err := s.engine.Reconcile(ctx, args.ContainerID, parentOrRoot(args.ParentNodeID), args.Children); err != nil {
		return s.toolError("reconcile_children", err), nil
	}
	return s.treeResult()
}

func (s *Server) handleRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if request.GetBool("trash", false) {
		err = s.engine.Trash(ctx, id)
	} else {
		err = s.engine.Remove(ctx, id)
	}
	if err != nil {
		return s.toolError("remove_element", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed %s", id)), nil
}

func (s *Server) handleUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	patch := make(map[string]any, 3)
	for _, key := range []string{"name", "type", "payload"} {
		if v, ok := args[key]; ok {
			patch[key] = v
		}
	}
	if len(patch) == 0 {
		return mcp.NewToolResultError("nothing to update: pass name, type or payload"), nil
	}

	el, err := s.engine.Update(ctx, id, patch)
	if err != nil {
		return s.toolError("update_element", err), nil
	}
	return jsonResult(el)
}

func (s *Server) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	containerID, err := request.RequireString("container_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parent := parentOrRoot(request.GetString("parent_node_id", ""))
	index := request.GetInt("index", container.Append)

	if err := s.engine.Move(ctx, id, containerID, parent, index); err != nil {
		return s.toolError("move_element", err), nil
	}
	return s.treeResult()
}

func (s *Server) handleSpawn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	elementType, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	containerID, err := request.RequireString("container_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parent := parentOrRoot(request.GetString("parent_node_id", ""))
	index := request.GetInt("index", container.Append)

	n, err := s.engine.Spawn(ctx, elementType, containerID, parent, index)
	if err != nil {
		return s.toolError("spawn_element", err), nil
	}
	return jsonResult(n)
}

func (s *Server) handleFlushAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.engine.FlushAll(ctx); err != nil {
		return s.toolError("flush_all", err), nil
	}
	return mcp.NewToolResultText("tree cleared"), nil
}

func (s *Server) handleSaveSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.engine.SaveSnapshot(ctx, name); err != nil {
		return s.toolError("save_snapshot", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved %s", name)), nil
}

func (s *Server) handleLoadSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.engine.LoadSnapshot(ctx, name); err != nil {
		return s.toolError("load_snapshot", err), nil
	}
	return s.treeResult()
}

func (s *Server) handleListSnapshots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.engine.ListSnapshots(ctx)
	if err != nil {
		return s.toolError("list_snapshots", err), nil
	}
	if names == nil {
		names = []string{}
	}
	return jsonResult(names)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(snapshotURI, "Current Tree Snapshot",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		snap, _ := s.engine.Snapshot()
		data, err := json.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      snapshotURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(outlineURI, "Tree Outline",
		mcp.WithMIMEType("text/markdown"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      outlineURI,
				MIMEType: "text/markdown",
				Text:     tui.Outline("Tree", s.engine.Tree()),
			},
		}, nil
	})
}

// treeResult answers mutations with the resulting tree so agents can chain calls.
func (s *Server) treeResult() (*mcp.CallToolResult, error) {
	snap, rev := s.engine.Snapshot()
	return jsonResult(SnapshotResponse{Revision: rev, Snapshot: snap})
}

func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, domain.ErrElementNotFound) || errors.Is(err, domain.ErrNodeNotFound) {
		s.logger.Warn("MCP tool rejected", "tool", tool, "err", err)
	} else {
		s.logger.Error("MCP tool failed", "tool", tool, "err", err)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parentOrRoot(id string) string {
	if id == "" {
		return domain.RootID
	}
	return id
}
