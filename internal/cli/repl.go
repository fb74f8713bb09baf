package cli

import (
	"context"
	"io"
	"strings"

	"github.com/aretw0/codeshell"
	"github.com/aretw0/codeshell/internal/presentation/tui"
	"github.com/aretw0/codeshell/pkg/runner"
)

// ShellOptions configures the interactive shell.
type ShellOptions struct {
	// JSON switches to newline-delimited JSON commands and replies.
	JSON bool
	// Quiet hides the banner and system messages.
	Quiet bool
	// ShowIDs prints node ids next to names in ls.
	ShowIDs bool
}

// RunShell drives the workspace from commands read on in until exit, end of input or cancellation.
func RunShell(ctx context.Context, app *App, in io.Reader, out io.Writer, opts ShellOptions) error {
	var h runner.IOHandler
	if opts.JSON {
		h = runner.NewJSONHandler(in, out)
	} else {
		profile := colorProfile(out)
		hopts := []runner.TextHandlerOption{
			runner.WithRecordFormatter(tui.NewConsole(out, tui.WithProfile(profile)).Format),
			runner.WithTreeRenderer(tui.NewTreeRenderer(profile, opts.ShowIDs).Render),
		}
		if IsTerminal(out) {
			hopts = append(hopts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
		}
		h = runner.NewTextHandler(in, out, hopts...)

		if !opts.Quiet {
			tui.PrintBanner(out, strings.TrimSpace(codeshell.Version))
			printSystemMessage(out, "Workspace '%s' open. Type 'help' for commands.", app.WorkspaceID)
		}
	}

	app.Logger.Info("Shell started", "workspace_id", app.WorkspaceID, "json", opts.JSON)
	err := app.Runner(h).Run(ctx, app.Shell)
	if err == nil && !opts.JSON && !opts.Quiet {
		printSystemMessage(out, "Bye.")
	}
	return HandleExecutionError(err)
}
