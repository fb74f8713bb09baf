package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/codeshell/internal/presentation/graph"
	"github.com/aretw0/codeshell/internal/presentation/tui"
	"github.com/aretw0/codeshell/internal/validator"
	loamadapter "github.com/aretw0/codeshell/pkg/adapters/loam"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/runner"
	"github.com/aretw0/codeshell/pkg/transpile"
	"github.com/aretw0/codeshell/pkg/tree"
)

// Tree output formats.
const (
	FormatTree    = "tree"
	FormatPaths   = "paths"
	FormatMermaid = "mermaid"
	FormatJSON    = "json"
)

// ErrRunFailed is returned when the program threw or did not compile.
var ErrRunFailed = errors.New("run failed")

// PrintTree writes the workspace tree in the requested format.
func PrintTree(ctx context.Context, app *App, w io.Writer, format string, showIDs bool) error {
	ws, err := app.Shell.Open(ctx, app.WorkspaceID)
	if err != nil {
		return err
	}

	switch format {
	case "", FormatTree:
		_, err = io.WriteString(w, tui.NewTreeRenderer(colorProfile(w), showIDs).Render(ws))
	case FormatPaths:
		for _, p := range tree.Paths(ws.Tree) {
			if _, err = fmt.Fprintln(w, p); err != nil {
				return err
			}
		}
	case FormatMermaid:
		_, err = io.WriteString(w, graph.GenerateMermaid(ws.Tree, graph.OverlayFor(ws)))
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(ws.Tree)
	default:
		return fmt.Errorf("unknown format %q (want tree, paths, mermaid or json)", format)
	}
	return err
}

// Show prints a file, or the open buffer when target is empty.
func Show(ctx context.Context, app *App, w io.Writer, target string) error {
	return exec(ctx, app, textHandler(w), runner.Command{Op: runner.OpCat, Target: target})
}

// Compile prints the JavaScript emitted for a file. An empty target compiles the open buffer.
func Compile(ctx context.Context, app *App, w io.Writer, target string) error {
	if err := openFile(ctx, app, target); err != nil {
		return err
	}
	return exec(ctx, app, textHandler(w), runner.Command{Op: runner.OpCompile})
}

// Run executes a file, or the open one when target is empty, and prints its console.
// It returns ErrRunFailed when the program did not complete.
func Run(ctx context.Context, app *App, w io.Writer, target string) error {
	if err := openFile(ctx, app, target); err != nil {
		return err
	}
	_, res, err := app.Shell.Run(ctx, app.WorkspaceID)
	if err != nil {
		return err
	}
	if err := tui.NewConsole(w, tui.WithProfile(colorProfile(w))).Print(res.Records); err != nil {
		return err
	}
	if res.Failed() {
		return ErrRunFailed
	}
	return nil
}

// Validate checks tree structure, path ambiguity and that every runnable file compiles.
func Validate(ctx context.Context, app *App) error {
	ws, err := app.Shell.Open(ctx, app.WorkspaceID)
	if err != nil {
		return err
	}
	return validator.ValidateWorkspace(ws.Tree, transpile.New())
}

// Export writes the workspace to a Loam archive directory.
func Export(ctx context.Context, app *App, dir string) error {
	ws, err := app.Shell.Open(ctx, app.WorkspaceID)
	if err != nil {
		return err
	}
	archive, err := loamadapter.Open(dir, false)
	if err != nil {
		return err
	}
	if err := archive.Export(ctx, ws); err != nil {
		return err
	}
	app.Logger.Info("Workspace exported", "workspace_id", ws.ID, "dir", dir, "nodes", tree.Count(ws.Tree))
	return nil
}

func textHandler(w io.Writer) *runner.TextHandler {
	opts := []runner.TextHandlerOption{
		runner.WithPrompt(""),
		runner.WithRecordFormatter(tui.NewConsole(w, tui.WithProfile(colorProfile(w))).Format),
	}
	if IsTerminal(w) {
		opts = append(opts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
	}
	return runner.NewTextHandler(strings.NewReader(""), w, opts...)
}

// exec dispatches one command and prints its reply. A failed command is returned as an error.
func exec(ctx context.Context, app *App, h runner.IOHandler, cmd runner.Command) error {
	reply := app.Runner(h).Dispatch(ctx, app.Shell, cmd)
	if !reply.OK {
		return errors.New(reply.Error)
	}
	return h.Output(ctx, reply)
}

// openFile selects the file named by a path or '#'-prefixed id. An empty target keeps the selection.
func openFile(ctx context.Context, app *App, target string) error {
	if target == "" {
		return nil
	}
	ws, err := app.Shell.Open(ctx, app.WorkspaceID)
	if err != nil {
		return err
	}
	node := FindTarget(ws.Tree, target)
	if node == nil {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, target)
	}
	if !node.IsFile() {
		return fmt.Errorf("%s: %w", target, domain.ErrNotAFile)
	}
	_, err = app.Shell.Select(ctx, app.WorkspaceID, node.ID)
	return err
}

// FindTarget resolves a path or a '#'-prefixed id.
func FindTarget(t domain.Tree, target string) *domain.FileNode {
	if id, ok := strings.CutPrefix(target, "#"); ok {
		return tree.Find(t, id)
	}
	return tree.FindPath(t, target)
}
