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

	"github.com/aretw0/codeshell"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/tree"
	"github.com/aretw0/lifecycle"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
)

// DefaultWorkspace is used when a tool call names no workspace.
const DefaultWorkspace = "default"

// Service defines the workspace operations exposed to MCP clients. *codeshell.Shell implements it.
type Service interface {
	Open(ctx context.Context, id string) (*domain.Workspace, error)
	AddNode(ctx context.Context, id, parentID string, kind domain.NodeKind) (*domain.Workspace, string, error)
	RenameNode(ctx context.Context, id, nodeID, name string) (*domain.Workspace, error)
	SetContent(ctx context.Context, id, nodeID, text string) (*domain.Workspace, error)
	DeleteNode(ctx context.Context, id, nodeID string) (*domain.Workspace, bool, error)
	Select(ctx context.Context, id, nodeID string) (*domain.Workspace, error)
	Run(ctx context.Context, id string) (*domain.Workspace, domain.RunResult, error)
	Transpile(ctx context.Context, source, fileName string) (domain.CompiledArtifact, error)
}

var _ Service = (*codeshell.Shell)(nil)

// TreeResponse describes a workspace tree and its open file.
type TreeResponse struct {
	WorkspaceID    string      `json:"workspace_id" jsonschema_description:"The workspace the tree belongs to"`
	Paths          []string    `json:"paths" jsonschema_description:"Every node as a slash separated path; folders end with a slash"`
	Nodes          []TreeEntry `json:"nodes" jsonschema_description:"Every node in display order"`
	SelectedFileID string      `json:"selected_file_id,omitempty" jsonschema_description:"ID of the open file, if any"`
}

// TreeEntry is one node of a flattened tree. Nesting is expressed by ParentID
// so the output schema stays finite.
type TreeEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type" jsonschema:"enum=file,enum=folder"`
	ParentID string `json:"parent_id,omitempty" jsonschema_description:"Containing folder; empty at the top level"`
	Path     string `json:"path"`
}

// NodeResponse reports the node a mutation touched.
type NodeResponse struct {
	WorkspaceID string `json:"workspace_id"`
	NodeID      string `json:"node_id"`
	Path        string `json:"path,omitempty" jsonschema_description:"Path of the node after the operation; empty when removed"`
	// Cleared is set by delete_node when the open file was removed.
	Cleared bool `json:"cleared,omitempty"`
}

// TranspileResponse carries the compiled code.
type TranspileResponse struct {
	FileName string `json:"file_name"`
	Dialect  string `json:"dialect"`
	Code     string `json:"code"`
}

// RunResponse carries the console output of one run.
type RunResponse struct {
	WorkspaceID string                 `json:"workspace_id"`
	FileID      string                 `json:"file_id"`
	Records     []domain.ConsoleRecord `json:"records" jsonschema_description:"Console records produced by the run, in call order"`
	Failed      bool                   `json:"failed" jsonschema_description:"Set when compilation failed or the code threw"`
}

// Server exposes a Service as an MCP Server.
type Server struct {
	service   Service
	workspace string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the MCP server.
type Option func(*Server)

// WithWorkspace sets the workspace used when a call names none.
func WithWorkspace(id string) Option {
	return func(s *Server) {
		s.workspace = id
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		service:   svc,
		workspace: DefaultWorkspace,
		logger:    slog.Default(),
		mcpServer: server.NewMCPServer("codeshell-mcp", strings.TrimSpace(codeshell.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
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

	lifecycle.Go(ctx, func(ctx context.Context) error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
		return nil
	})

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
	workspaceArg := mcp.WithString("workspace", mcp.Description("Workspace ID (optional, defaults to the server workspace)"))

	s.mcpServer.AddTool(mcp.NewTool("list_tree",
		mcp.WithDescription("List the files and folders of the workspace."),
		workspaceArg,
		mcp.WithOutputSchema[TreeResponse](),
	), mcp.NewStructuredToolHandler(s.handleListTree))

	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Create a file or folder with a default name. Returns the new node ID."),
		workspaceArg,
		mcp.WithString("type", mcp.Required(), mcp.Enum("file", "folder"), mcp.Description("Kind of node")),
		mcp.WithString("parent_id", mcp.Description("Folder to append to; omit for the top level")),
		mcp.WithString("name", mcp.Description("Name to give the new node (optional)")),
		mcp.WithOutputSchema[NodeResponse](),
	), mcp.NewStructuredToolHandler(s.handleAddNode))

	s.mcpServer.AddTool(mcp.NewTool("rename_node",
		mcp.WithDescription("Rename a node. Blank or unchanged names are ignored."),
		workspaceArg,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithString("name", mcp.Required(), mcp.Description("New name")),
		mcp.WithOutputSchema[NodeResponse](),
	), mcp.NewStructuredToolHandler(s.handleRenameNode))

	s.mcpServer.AddTool(mcp.NewTool("set_content",
		mcp.WithDescription("Overwrite the stored content of a file."),
		workspaceArg,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("File ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New content")),
		mcp.WithOutputSchema[NodeResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetContent))

	s.mcpServer.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node and everything under it. Unknown IDs are ignored."),
		workspaceArg,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithOutputSchema[NodeResponse](),
	), mcp.NewStructuredToolHandler(s.handleDeleteNode))

	s.mcpServer.AddTool(mcp.NewTool("transpile",
		mcp.WithDescription("Compile TypeScript or JSX source to plain script. The dialect follows the file extension."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source code")),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("File name used to pick the dialect, e.g. main.tsx")),
		mcp.WithOutputSchema[TranspileResponse](),
	), mcp.NewStructuredToolHandler(s.handleTranspile))

	s.mcpServer.AddTool(mcp.NewTool("run_file",
		mcp.WithDescription("Open a file and run it, returning its console output. Without node_id or path the open file runs."),
		workspaceArg,
		mcp.WithString("node_id", mcp.Description("File ID")),
		mcp.WithString("path", mcp.Description("File path such as CODE_PROJECTS/App.js")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleRunFile))
}

// -- Arguments --

type workspaceArgs struct {
	Workspace string `mapstructure:"workspace"`
}

type addNodeArgs struct {
	Workspace string `mapstructure:"workspace"`
	Type      string `mapstructure:"type"`
	ParentID  string `mapstructure:"parent_id"`
	Name      string `mapstructure:"name"`
}

type nodeArgs struct {
	Workspace string `mapstructure:"workspace"`
	NodeID    string `mapstructure:"node_id"`
	Name      string `mapstructure:"name"`
	Content   string `mapstructure:"content"`
	Path      string `mapstructure:"path"`
}

type transpileArgs struct {
	Source   string `mapstructure:"source"`
	FileName string `mapstructure:"file_name"`
}

func bind(args map[string]any, v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) workspaceID(requested string) string {
	if requested != "" {
		return requested
	}
	return s.workspace
}

// -- Handlers --

func (s *Server) handleListTree(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TreeResponse, error) {
	var a workspaceArgs
	if err := bind(args, &a); err != nil {
		return TreeResponse{}, err
	}
	ws, err := s.service.Open(ctx, s.workspaceID(a.Workspace))
	if err != nil {
		return TreeResponse{}, fmt.Errorf("open workspace: %w", err)
	}
	return treeResponse(ws), nil
}

func (s *Server) handleAddNode(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (NodeResponse, error) {
	var a addNodeArgs
	if err := bind(args, &a); err != nil {
		return NodeResponse{}, err
	}
	kind := domain.NodeKind(a.Type)
	if !kind.Valid() {
		return NodeResponse{}, fmt.Errorf("unknown node type %q", a.Type)
	}

	id := s.workspaceID(a.Workspace)
	if _, err := s.service.Open(ctx, id); err != nil {
		return NodeResponse{}, fmt.Errorf("open workspace: %w", err)
	}
	ws, nodeID, err := s.service.AddNode(ctx, id, a.ParentID, kind)
	if err != nil {
		return NodeResponse{}, fmt.Errorf("add node: %w", err)
	}
	if strings.TrimSpace(a.Name) != "" {
		if ws, err = s.service.RenameNode(ctx, id, nodeID, a.Name); err != nil {
			return NodeResponse{}, fmt.Errorf("name node: %w", err)
		}
	}
	s.logger.Debug("MCP: Node added", "workspace_id", id, "node_id", nodeID)
	return NodeResponse{WorkspaceID: id, NodeID: nodeID, Path: tree.Path(ws.Tree, nodeID)}, nil
}

func (s *Server) handleRenameNode(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (NodeResponse, error) {
	var a nodeArgs
	if err := bind(args, &a); err != nil {
		return NodeResponse{}, err
	}
	id := s.workspaceID(a.Workspace)
	if _, err := s.service.Open(ctx, id); err != nil {
		return NodeResponse{}, fmt.Errorf("open workspace: %w", err)
	}
	ws, err := s.service.RenameNode(ctx, id, a.NodeID, a.Name)
	if err != nil {
		return NodeResponse{}, fmt.Errorf("rename node: %w", err)
	}
	return NodeResponse{WorkspaceID: id, NodeID: a.NodeID, Path: tree.Path(ws.Tree, a.NodeID)}, nil
}

func (s *Server) handleSetContent(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (NodeResponse, error) {
	var a nodeArgs
	if err := bind(args, &a); err != nil {
		return NodeResponse{}, err
	}
	id := s.workspaceID(a.Workspace)
	if _, err := s.service.Open(ctx, id); err != nil {
		return NodeResponse{}, fmt.Errorf("open workspace: %w", err)
	}
	ws, err := s.service.SetContent(ctx, id, a.NodeID, a.Content)
	if err != nil {
		return NodeResponse{}, fmt.Errorf("set content: %w", err)
	}
	return NodeResponse{WorkspaceID: id, NodeID: a.NodeID, Path: tree.Path(ws.Tree, a.NodeID)}, nil
}

func (s *Server) handleDeleteNode(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (NodeResponse, error) {
	var a nodeArgs
	if err := bind(args, &a); err != nil {
		return NodeResponse{}, err
	}
	id := s.workspaceID(a.Workspace)
	if _, err := s.service.Open(ctx, id); err != nil {
		return NodeResponse{}, fmt.Errorf("open workspace: %w", err)
	}
	_, cleared, err := s.service.DeleteNode(ctx, id, a.NodeID)
	if err != nil {
		return NodeResponse{}, fmt.Errorf("delete node: %w", err)
	}
	return NodeResponse{WorkspaceID: id, NodeID: a.NodeID, Cleared: cleared}, nil
}

func (s *Server) handleTranspile(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TranspileResponse, error) {
	var a transpileArgs
	if err := bind(args, &a); err != nil {
		return TranspileResponse{}, err
	}
	if a.FileName == "" {
		return TranspileResponse{}, errors.New("file_name is required")
	}
	artifact, err := s.service.Transpile(ctx, a.Source, a.FileName)
	if err != nil {
		return TranspileResponse{}, err
	}
	return TranspileResponse{
		FileName: artifact.FileName,
		Dialect:  artifact.Dialect.String(),
		Code:     artifact.Code,
	}, nil
}

func (s *Server) handleRunFile(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RunResponse, error) {
	var a nodeArgs
	if err := bind(args, &a); err != nil {
		return RunResponse{}, err
	}
	id := s.workspaceID(a.Workspace)
	ws, err := s.service.Open(ctx, id)
	if err != nil {
		return RunResponse{}, fmt.Errorf("open workspace: %w", err)
	}

	fileID := a.NodeID
	if fileID == "" && a.Path != "" {
		node := tree.FindPath(ws.Tree, a.Path)
		if node == nil {
			return RunResponse{}, fmt.Errorf("%s: %w", a.Path, domain.ErrNodeNotFound)
		}
		fileID = node.ID
	}
	if fileID != "" && fileID != ws.Editor.SelectedFileID {
		if ws, err = s.service.Select(ctx, id, fileID); err != nil {
			return RunResponse{}, fmt.Errorf("open file: %w", err)
		}
		if ws.Editor.SelectedFileID != fileID {
			return RunResponse{}, fmt.Errorf("%s is a folder: %w", fileID, domain.ErrNotAFile)
		}
	}

	ws, res, err := s.service.Run(ctx, id)
	if err != nil {
		return RunResponse{}, fmt.Errorf("run: %w", err)
	}
	records := res.Records
	if records == nil {
		records = []domain.ConsoleRecord{}
	}
	s.logger.Debug("MCP: Run finished", "workspace_id", id, "records", len(records), "failed", res.Failed())
	return RunResponse{
		WorkspaceID: id,
		FileID:      ws.Editor.SelectedFileID,
		Records:     records,
		Failed:      res.Failed(),
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: codeshell://workspace
	s.mcpServer.AddResource(mcp.NewResource("codeshell://workspace", "Current Workspace",
		mcp.WithResourceDescription("Tree, editor session and console of the server workspace"),
		mcp.WithMIMEType("application/json"),
	), s.readWorkspace)
}

func (s *Server) readWorkspace(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ws, err := s.service.Open(ctx, s.workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	jsonBytes, err := json.Marshal(ws)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workspace: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "codeshell://workspace",
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func treeResponse(ws *domain.Workspace) TreeResponse {
	nodes := make([]TreeEntry, 0, tree.Count(ws.Tree))
	tree.Walk(ws.Tree, func(n *domain.FileNode, ancestors []*domain.FileNode) bool {
		names := make([]string, 0, len(ancestors)+1)
		for _, a := range ancestors {
			names = append(names, a.Name)
		}
		e := TreeEntry{ID: n.ID, Name: n.Name, Type: string(n.Kind), Path: strings.Join(append(names, n.Name), "/")}
		if len(ancestors) > 0 {
			e.ParentID = ancestors[len(ancestors)-1].ID
		}
		nodes = append(nodes, e)
		return true
	})
	return TreeResponse{
		WorkspaceID:    ws.ID,
		Paths:          tree.Paths(ws.Tree),
		Nodes:          nodes,
		SelectedFileID: ws.Editor.SelectedFileID,
	}
}
