package runtime

import (
	"context"
	"time"

	"github.com/aretw0/codeshell/pkg/domain"
)

func (e *Engine) base(workspaceID string, t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:   e.clock.Now(),
		Type:        t,
		WorkspaceID: workspaceID,
	}
}

func (e *Engine) emitCompile(ctx context.Context, workspaceID, fileName string, d time.Duration, err error) {
	if e.hooks.OnCompile == nil {
		return
	}
	e.hooks.OnCompile(ctx, &domain.CompileEvent{
		EventBase: e.base(workspaceID, domain.EventCompile),
		FileName:  fileName,
		Dialect:   domain.DialectFor(fileName),
		Duration:  d,
		Err:       err,
	})
}

func (e *Engine) emitRunStart(ctx context.Context, workspaceID string, job Job) {
	if e.hooks.OnRunStart == nil {
		return
	}
	e.hooks.OnRunStart(ctx, &domain.RunEvent{
		EventBase: e.base(workspaceID, domain.EventRunStart),
		FileID:    job.FileID,
		FileName:  job.FileName,
	})
}

func (e *Engine) emitRunFinish(ctx context.Context, workspaceID string, job Job, res domain.RunResult) {
	if e.hooks.OnRunFinish == nil {
		return
	}
	e.hooks.OnRunFinish(ctx, &domain.RunEvent{
		EventBase: e.base(workspaceID, domain.EventRunFinish),
		FileID:    job.FileID,
		FileName:  job.FileName,
		Records:   len(res.Records),
		Duration:  res.Duration,
		Failed:    res.Failed(),
	})
}

func (e *Engine) emitRecord(ctx context.Context, workspaceID string, rec domain.ConsoleRecord) {
	if e.hooks.OnRecord == nil {
		return
	}
	e.hooks.OnRecord(ctx, &domain.RecordEvent{
		EventBase: e.base(workspaceID, domain.EventRecord),
		Record:    rec,
	})
}
