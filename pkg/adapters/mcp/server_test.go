package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/codeshell"
	"github.com/aretw0/codeshell/internal/logging"
	"github.com/aretw0/codeshell/internal/testutils"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/idgen"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	shell := codeshell.New(
		codeshell.WithClock(testutils.FixedClock),
		codeshell.WithIDGenerator(idgen.NewSequence("n", 0)),
	)
	return NewServer(shell, WithLogger(logging.NewNop()), WithWorkspace("demo"))
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := newTestServer()

	tools := s.mcpServer.ListTools()
	for _, name := range []string{"list_tree", "add_node", "rename_node", "set_content", "delete_node", "transpile", "run_file"} {
		require.Contains(t, tools, name)
	}

	schema := tools["list_tree"].Tool.OutputSchema
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "nodes")

	_, err := json.Marshal(tools["list_tree"].Tool)
	assert.NoError(t, err)
}

func TestListTree(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	resp, err := s.handleListTree(ctx, mcp.CallToolRequest{}, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "demo", resp.WorkspaceID)
	assert.Equal(t, []string{"CODE_PROJECTS/", "CODE_PROJECTS/App.js"}, resp.Paths)
	assert.Equal(t, "2", resp.SelectedFileID)
	assert.Equal(t, []TreeEntry{
		{ID: "1", Name: "CODE_PROJECTS", Type: "folder", Path: "CODE_PROJECTS"},
		{ID: "2", Name: "App.js", Type: "file", ParentID: "1", Path: "CODE_PROJECTS/App.js"},
	}, resp.Nodes)

	other, err := s.handleListTree(ctx, mcp.CallToolRequest{}, map[string]any{"workspace": "other"})
	require.NoError(t, err)
	assert.Equal(t, "other", other.WorkspaceID)
}

func TestNodeTools(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	added, err := s.handleAddNode(ctx, mcp.CallToolRequest{}, map[string]any{
		"type":      "folder",
		"parent_id": "1",
		"name":      "lib",
	})
	require.NoError(t, err)
	assert.Equal(t, "n1", added.NodeID)
	assert.Equal(t, "CODE_PROJECTS/lib", added.Path)

	file, err := s.handleAddNode(ctx, mcp.CallToolRequest{}, map[string]any{"type": "file", "parent_id": added.NodeID})
	require.NoError(t, err)
	assert.Equal(t, "CODE_PROJECTS/lib/new-file.txt", file.Path)

	renamed, err := s.handleRenameNode(ctx, mcp.CallToolRequest{}, map[string]any{"node_id": file.NodeID, "name": "main.ts"})
	require.NoError(t, err)
	assert.Equal(t, "CODE_PROJECTS/lib/main.ts", renamed.Path)

	_, err = s.handleSetContent(ctx, mcp.CallToolRequest{}, map[string]any{"node_id": file.NodeID, "content": "console.info(1 + 1)"})
	require.NoError(t, err)

	run, err := s.handleRunFile(ctx, mcp.CallToolRequest{}, map[string]any{"path": "CODE_PROJECTS/lib/main.ts"})
	require.NoError(t, err)
	assert.Equal(t, file.NodeID, run.FileID)
	require.Len(t, run.Records, 1)
	assert.Equal(t, domain.LevelInfo, run.Records[0].Level)
	assert.Equal(t, "2", run.Records[0].Text)

	deleted, err := s.handleDeleteNode(ctx, mcp.CallToolRequest{}, map[string]any{"node_id": added.NodeID})
	require.NoError(t, err)
	assert.True(t, deleted.Cleared)

	again, err := s.handleDeleteNode(ctx, mcp.CallToolRequest{}, map[string]any{"node_id": added.NodeID})
	require.NoError(t, err)
	assert.False(t, again.Cleared)
}

func TestNodeTools_Errors(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, err := s.handleAddNode(ctx, mcp.CallToolRequest{}, map[string]any{"type": "symlink"})
	assert.Error(t, err)

	_, err = s.handleAddNode(ctx, mcp.CallToolRequest{}, map[string]any{"type": "file", "parent_id": "missing"})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	_, err = s.handleSetContent(ctx, mcp.CallToolRequest{}, map[string]any{"node_id": "1", "content": "x"})
	assert.ErrorIs(t, err, domain.ErrNotAFile)

	_, err = s.handleRunFile(ctx, mcp.CallToolRequest{}, map[string]any{"path": "nope.js"})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	_, err = s.handleRunFile(ctx, mcp.CallToolRequest{}, map[string]any{"node_id": "1"})
	assert.ErrorIs(t, err, domain.ErrNotAFile)

	_, err = s.handleRenameNode(ctx, mcp.CallToolRequest{}, map[string]any{"node_id": map[string]any{"a": 1}})
	assert.Error(t, err)
}

func TestRunFile_OpenFile(t *testing.T) {
	s := newTestServer()

	run, err := s.handleRunFile(context.Background(), mcp.CallToolRequest{}, map[string]any{})
	require.NoError(t, err)
	assert.False(t, run.Failed)
	assert.Equal(t, "2", run.FileID)
	require.Len(t, run.Records, 5)
	assert.Equal(t, "Hello, World!", run.Records[0].Text)
}

func TestTranspileTool(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	resp, err := s.handleTranspile(ctx, mcp.CallToolRequest{}, map[string]any{
		"source":    "const el = <b>hi</b>;",
		"file_name": "view.tsx",
	})
	require.NoError(t, err)
	assert.Equal(t, "typed-markup", resp.Dialect)
	assert.Contains(t, resp.Code, "React.createElement")

	_, err = s.handleTranspile(ctx, mcp.CallToolRequest{}, map[string]any{"source": "function (", "file_name": "a.js"})
	var ce *domain.CompileError
	assert.ErrorAs(t, err, &ce)

	_, err = s.handleTranspile(ctx, mcp.CallToolRequest{}, map[string]any{"source": "1"})
	assert.Error(t, err)
}

func TestWorkspaceResource(t *testing.T) {
	s := newTestServer()

	contents, err := s.readWorkspace(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "codeshell://workspace", text.URI)

	var ws domain.Workspace
	require.NoError(t, json.Unmarshal([]byte(text.Text), &ws))
	assert.Equal(t, "demo", ws.ID)
	assert.Equal(t, "App.js", ws.Tree[0].Children[0].Name)
}
