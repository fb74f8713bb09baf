package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/codeshell/internal/logging"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/tree"
)

// DefaultWorkspace is the workspace a Runner opens when none is configured.
const DefaultWorkspace = "default"

// Service is the subset of workspace operations the Runner drives.
// *codeshell.Shell satisfies it.
type Service interface {
	Open(ctx context.Context, id string) (*domain.Workspace, error)
	AddNode(ctx context.Context, id, parentID string, kind domain.NodeKind) (*domain.Workspace, string, error)
	RenameNode(ctx context.Context, id, nodeID, name string) (*domain.Workspace, error)
	SetContent(ctx context.Context, id, nodeID, text string) (*domain.Workspace, error)
	DeleteNode(ctx context.Context, id, nodeID string) (*domain.Workspace, bool, error)
	Select(ctx context.Context, id, nodeID string) (*domain.Workspace, error)
	Edit(ctx context.Context, id, text string) (*domain.Workspace, error)
	Save(ctx context.Context, id string) (*domain.Workspace, error)
	Compile(ctx context.Context, id string) (*domain.Workspace, error)
	ToggleCompiled(ctx context.Context, id string) (*domain.Workspace, error)
	Close(ctx context.Context, id string) (*domain.Workspace, error)
	ClearConsole(ctx context.Context, id string) (*domain.Workspace, error)
	Run(ctx context.Context, id string) (*domain.Workspace, domain.RunResult, error)
}

// Runner handles the command loop of one workspace using the provided IO.
// This allows for easy testing and integration with different frontends (CLI, JSON, etc).
type Runner struct {
	// Handler is the strategy for IO.
	Handler IOHandler

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// WorkspaceID is the workspace every command applies to.
	WorkspaceID string
}

// Option configures a Runner.
type Option func(*Runner)

// WithHandler sets the IO strategy.
func WithHandler(h IOHandler) Option {
	return func(r *Runner) {
		r.Handler = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithWorkspace sets the workspace id.
func WithWorkspace(id string) Option {
	return func(r *Runner) {
		r.WorkspaceID = id
	}
}

// New creates a Runner. Without options it talks text over stdin and stdout.
func New(opts ...Option) *Runner {
	r := &Runner{
		Logger:      logging.NewNop(),
		WorkspaceID: DefaultWorkspace,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	return r
}

// Run opens the workspace and processes commands until exit, end of input or cancellation.
// Cancellation is a normal way to stop and is not reported as an error.
func (r *Runner) Run(ctx context.Context, svc Service) error {
	if ctx.Err() != nil {
		return nil
	}
	if _, err := svc.Open(ctx, r.WorkspaceID); err != nil {
		return fmt.Errorf("open workspace %q: %w", r.WorkspaceID, err)
	}

	for {
		cmd, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				r.Logger.Debug("Runner stopped", "workspace_id", r.WorkspaceID, "reason", err)
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		if cmd.Op == OpExit {
			return nil
		}

		reply := r.Dispatch(ctx, svc, cmd)
		if err := r.Handler.Output(ctx, reply); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
}

// Dispatch applies one command to the workspace. Failures are reported in the Reply.
func (r *Runner) Dispatch(ctx context.Context, svc Service, cmd Command) Reply {
	reply, err := r.dispatch(ctx, svc, cmd)
	reply.Op = cmd.Op
	if err != nil {
		r.Logger.Debug("Command failed", "op", cmd.Op, "target", cmd.Target, "error", err)
		reply.OK = false
		reply.Error = err.Error()
		return reply
	}
	reply.OK = true
	return reply
}

func (r *Runner) dispatch(ctx context.Context, svc Service, cmd Command) (Reply, error) {
	id := r.WorkspaceID

	switch cmd.Op {
	case OpHelp:
		return Reply{Text: Help}, nil

	case OpList:
		ws, err := svc.Open(ctx, id)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Paths: tree.Paths(ws.Tree), Workspace: ws}, nil

	case OpOpen:
		node, err := r.resolve(ctx, svc, cmd.Target)
		if err != nil {
			return Reply{}, err
		}
		ws, err := svc.Select(ctx, id, node.ID)
		if err != nil {
			return Reply{}, err
		}
		msg := "opened " + tree.Path(ws.Tree, node.ID)
		if node.IsFolder() {
			state := "expanded"
			if ws.Editor.IsCollapsed(node.ID) {
				state = "collapsed"
			}
			msg = state + " " + tree.Path(ws.Tree, node.ID)
		}
		return Reply{NodeID: node.ID, Message: msg, Workspace: ws}, nil

	case OpCat:
		if cmd.Target == "" {
			ws, err := svc.Open(ctx, id)
			if err != nil {
				return Reply{}, err
			}
			if !ws.Editor.HasSelection() {
				return Reply{}, domain.ErrNoSelection
			}
			return Reply{NodeID: ws.Editor.SelectedFileID, Text: ws.Editor.Buffer, Workspace: ws}, nil
		}
		node, err := r.resolve(ctx, svc, cmd.Target)
		if err != nil {
			return Reply{}, err
		}
		if !node.IsFile() {
			return Reply{}, domain.ErrNotAFile
		}
		ws, err := svc.Open(ctx, id)
		if err != nil {
			return Reply{}, err
		}
		return Reply{NodeID: node.ID, Text: node.Content, Workspace: ws}, nil

	case OpNew:
		parentID := ""
		if cmd.Target != "" {
			parent, err := r.resolve(ctx, svc, cmd.Target)
			if err != nil {
				return Reply{}, err
			}
			parentID = parent.ID
		}
		ws, nodeID, err := svc.AddNode(ctx, id, parentID, cmd.Kind)
		if err != nil {
			return Reply{}, err
		}
		return Reply{NodeID: nodeID, Message: fmt.Sprintf("created %s (#%s)", tree.Path(ws.Tree, nodeID), nodeID), Workspace: ws}, nil

	case OpRename:
		node, err := r.resolve(ctx, svc, cmd.Target)
		if err != nil {
			return Reply{}, err
		}
		ws, err := svc.RenameNode(ctx, id, node.ID, cmd.Name)
		if err != nil {
			return Reply{}, err
		}
		return Reply{NodeID: node.ID, Message: "renamed to " + tree.Path(ws.Tree, node.ID), Workspace: ws}, nil

	case OpRemove:
		node, err := r.resolve(ctx, svc, cmd.Target)
		if err != nil {
			return Reply{}, err
		}
		ws, cleared, err := svc.DeleteNode(ctx, id, node.ID)
		if err != nil {
			return Reply{}, err
		}
		msg := "deleted " + node.Name
		if cleared {
			msg += ", editor closed"
		}
		return Reply{NodeID: node.ID, Message: msg, Workspace: ws}, nil

	case OpWrite:
		node, err := r.resolve(ctx, svc, cmd.Target)
		if err != nil {
			return Reply{}, err
		}
		ws, err := svc.SetContent(ctx, id, node.ID, cmd.Content)
		if err != nil {
			return Reply{}, err
		}
		return Reply{NodeID: node.ID, Message: fmt.Sprintf("wrote %d bytes", len(cmd.Content)), Workspace: ws}, nil

	case OpEdit:
		ws, err := svc.Edit(ctx, id, cmd.Content)
		if err != nil {
			return Reply{}, err
		}
		return Reply{NodeID: ws.Editor.SelectedFileID, Message: "buffer updated", Workspace: ws}, nil

	case OpSave:
		ws, err := svc.Save(ctx, id)
		if err != nil {
			return Reply{}, err
		}
		return Reply{NodeID: ws.Editor.SelectedFileID, Message: "saved", Workspace: ws}, nil

	case OpCompile:
		ws, err := svc.Compile(ctx, id)
		if err != nil {
			return Reply{}, err
		}
		if ws.CompileErr != nil {
			return Reply{Workspace: ws}, ws.CompileErr
		}
		return Reply{NodeID: ws.Editor.SelectedFileID, Text: ws.Compiled.Code, Workspace: ws}, nil

	case OpToggle:
		ws, err := svc.ToggleCompiled(ctx, id)
		if err != nil {
			return Reply{}, err
		}
		state := "off"
		if ws.Editor.ShowCompiled {
			state = "on"
		}
		return Reply{Message: "compiled view " + state, Workspace: ws}, nil

	case OpClose:
		ws, err := svc.Close(ctx, id)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Message: "closed", Workspace: ws}, nil

	case OpClear:
		ws, err := svc.ClearConsole(ctx, id)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Message: "console cleared", Workspace: ws}, nil

	case OpRun:
		if cmd.Target != "" {
			node, err := r.resolve(ctx, svc, cmd.Target)
			if err != nil {
				return Reply{}, err
			}
			if !node.IsFile() {
				return Reply{}, domain.ErrNotAFile
			}
			if _, err := svc.Select(ctx, id, node.ID); err != nil {
				return Reply{}, err
			}
		}
		ws, res, err := svc.Run(ctx, id)
		if err != nil {
			return Reply{}, err
		}
		reply := Reply{Records: res.Records, Workspace: ws}
		if ws != nil {
			reply.NodeID = ws.Editor.SelectedFileID
		}
		return reply, nil

	default:
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Op)
	}
}

// resolve finds a node by path or by '#'-prefixed id.
func (r *Runner) resolve(ctx context.Context, svc Service, target string) (*domain.FileNode, error) {
	ws, err := svc.Open(ctx, r.WorkspaceID)
	if err != nil {
		return nil, err
	}
	var node *domain.FileNode
	if id, ok := strings.CutPrefix(target, "#"); ok {
		node = tree.Find(ws.Tree, id)
	} else {
		node = tree.FindPath(ws.Tree, target)
	}
	if node == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, target)
	}
	return node, nil
}

func nodeName(ws *domain.Workspace, id string) string {
	if n := tree.Find(ws.Tree, id); n != nil {
		return n.Name
	}
	return ""
}
