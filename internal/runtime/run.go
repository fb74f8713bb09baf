package runtime

import (
	"context"
	"time"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/tree"
)

// DefaultRunLease bounds how long a running flag survives without its run completing.
const DefaultRunLease = time.Minute

// Job is a run captured at the moment it was started: the buffer and file it executes.
// It is detached from the workspace so execution can happen outside any lock.
type Job struct {
	WorkspaceID string
	FileID      string
	FileName    string
	Source      string
}

// Run executes the open file's buffer and appends the captured records to the console.
// It is PrepareRun, Execute and CompleteRun in sequence for callers that own the workspace.
func (e *Engine) Run(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, domain.RunResult, error) {
	running, job, err := e.PrepareRun(ctx, ws)
	if err != nil {
		return ws, domain.RunResult{}, err
	}
	res := e.Execute(ctx, job)
	return e.CompleteRun(ctx, running, job, res), res, nil
}

// PrepareRun marks the workspace as running and captures the job.
// It refuses with domain.ErrRunInProgress while a run is active and domain.ErrNoSelection without an open file.
// A running flag older than the run lease does not block.
func (e *Engine) PrepareRun(ctx context.Context, ws *domain.Workspace) (*domain.Workspace, Job, error) {
	now := e.clock.Now()
	if ws.Editor.Running {
		if !ws.Editor.RunExpired(now, e.runLease) {
			return ws, Job{}, domain.ErrRunInProgress
		}
		e.logger.WarnContext(ctx, "stale run flag cleared", "workspace_id", ws.ID, "started_at", ws.Editor.RunStartedAt)
	}
	if !ws.Editor.HasSelection() {
		return ws, Job{}, domain.ErrNoSelection
	}
	node := tree.Find(ws.Tree, ws.Editor.SelectedFileID)
	if node == nil {
		return ws, Job{}, domain.ErrNodeNotFound
	}

	out := e.clone(ws)
	out.Editor = out.Editor.StartRun(now)
	if e.clearOnRun {
		out.Console = []domain.ConsoleRecord{}
	}

	job := Job{
		WorkspaceID: ws.ID,
		FileID:      node.ID,
		FileName:    node.Name,
		Source:      ws.Editor.Buffer,
	}
	e.emitRunStart(ctx, ws.ID, job)
	e.logger.DebugContext(ctx, "run started", "workspace_id", ws.ID, "file", node.Name)
	return out, job, nil
}

// Execute re-transpiles the job's source and runs it. A compile failure yields a single
// error record and nothing is executed.
func (e *Engine) Execute(ctx context.Context, job Job) domain.RunResult {
	start := time.Now()
	artifact, err := e.transpile(ctx, job.WorkspaceID, job.Source, job.FileName)
	if err != nil {
		ce := asCompileError(job.FileName, err)
		return domain.RunResult{
			Records: []domain.ConsoleRecord{{
				Level:      domain.LevelError,
				Text:       ce.Error(),
				ProducedAt: e.clock.Now(),
			}},
			Err:      &domain.ExecutionError{Message: ce.Error()},
			Duration: time.Since(start),
		}
	}
	return e.executor.Run(ctx, artifact)
}

// AbortRun clears the running flag without recording anything.
// It releases a workspace whose CompleteRun could not be stored.
func (e *Engine) AbortRun(ctx context.Context, ws *domain.Workspace) *domain.Workspace {
	out := e.clone(ws)
	out.Editor = out.Editor.FinishRun()
	return out
}

// CompleteRun appends the records of a finished run and clears the running flag.
func (e *Engine) CompleteRun(ctx context.Context, ws *domain.Workspace, job Job, res domain.RunResult) *domain.Workspace {
	out := e.clone(ws)
	out.Console = append(out.Console, res.Records...)
	out.Editor = out.Editor.FinishRun()

	for _, rec := range res.Records {
		e.emitRecord(ctx, ws.ID, rec)
	}
	e.emitRunFinish(ctx, ws.ID, job, res)

	if res.Failed() {
		e.logger.InfoContext(ctx, "run failed", "workspace_id", ws.ID, "file", job.FileName, "err", res.Err.Message)
	} else {
		e.logger.DebugContext(ctx, "run finished", "workspace_id", ws.ID, "file", job.FileName, "records", len(res.Records), "duration", res.Duration)
	}
	return out
}
