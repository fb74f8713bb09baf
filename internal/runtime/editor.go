package runtime

import (
	"context"
	"errors"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/tree"
)

// Open handles a click on a node. A file becomes the selection with its stored content
// loaded into the buffer; a folder toggles its collapsed state.
func (e *Engine) Open(ctx context.Context, ws *domain.Workspace, id string) (*domain.Workspace, error) {
	node := tree.Find(ws.Tree, id)
	if node == nil {
		return ws, domain.ErrNodeNotFound
	}

	out := e.clone(ws)
	out.Editor = out.Editor.Open(node)
	if node.IsFile() {
		e.compile(ctx, out)
	}
	return out, nil
}

// Edit replaces the buffer of the open file and refreshes the compiled preview.
func (e *Engine) Edit(ctx context.Context, ws *domain.Workspace, text string) (*domain.Workspace, error) {
	if !ws.Editor.HasSelection() {
		return ws, domain.ErrNoSelection
	}

	out := e.clone(ws)
	out.Editor = out.Editor.Edit(text)
	e.compile(ctx, out)
	return out, nil
}

// Save writes the buffer into the stored content of the open file.
func (e *Engine) Save(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
	if !ws.Editor.HasSelection() {
		return ws, domain.ErrNoSelection
	}
	return e.SetContent(ctx, ws, ws.Editor.SelectedFileID, ws.Editor.Buffer)
}

// Compile refreshes the compiled preview of the buffer.
// A compile failure is stored in the workspace rather than returned.
func (e *Engine) Compile(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, error) {
	if !ws.Editor.HasSelection() {
		return ws, domain.ErrNoSelection
	}
	out := e.clone(ws)
	if err := e.compile(ctx, out); err != nil {
		return ws, err
	}
	return out, nil
}

// compile updates ws in place. It only returns an error when the open file is missing.
func (e *Engine) compile(ctx context.Context, ws *domain.Workspace) error {
	node := tree.Find(ws.Tree, ws.Editor.SelectedFileID)
	if node == nil {
		return domain.ErrNodeNotFound
	}

	artifact, err := e.transpile(ctx, ws.ID, ws.Editor.Buffer, node.Name)
	if err != nil {
		ws.Compiled = nil
		ws.CompileErr = asCompileError(node.Name, err)
		return nil
	}
	ws.Compiled = &artifact
	ws.CompileErr = nil
	return nil
}

func asCompileError(fileName string, err error) *domain.CompileError {
	var ce *domain.CompileError
	if errors.As(err, &ce) {
		return ce
	}
	return &domain.CompileError{FileName: fileName, Message: err.Error()}
}

// ToggleCompiled flips the compiled-output pane.
func (e *Engine) ToggleCompiled(ctx context.Context, ws *domain.Workspace) *domain.Workspace {
	out := e.clone(ws)
	out.Editor = out.Editor.ToggleCompiled()
	return out
}

// Close closes the open file, discarding unsaved edits.
func (e *Engine) Close(ctx context.Context, ws *domain.Workspace) *domain.Workspace {
	out := e.clone(ws)
	out.Editor = out.Editor.Close()
	out.Compiled = nil
	out.CompileErr = nil
	return out
}

// ClearConsole empties the console.
func (e *Engine) ClearConsole(ctx context.Context, ws *domain.Workspace) *domain.Workspace {
	out := e.clone(ws)
	out.Console = []domain.ConsoleRecord{}
	return out
}
