package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/codeshell/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that write one structured line per event.
// Console records are logged at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCompile: func(ctx context.Context, e *domain.CompileEvent) {
			if e.Err != nil {
				logger.DebugContext(ctx, "compile_failed", "workspace_id", e.WorkspaceID, "file", e.FileName, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "compile", "workspace_id", e.WorkspaceID, "file", e.FileName, "dialect", e.Dialect.String(), "duration", e.Duration)
		},
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start", "workspace_id", e.WorkspaceID, "file", e.FileName)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_finish",
				"workspace_id", e.WorkspaceID,
				"file", e.FileName,
				"records", e.Records,
				"duration", e.Duration,
				"failed", e.Failed,
			)
		},
		OnRecord: func(ctx context.Context, e *domain.RecordEvent) {
			logger.DebugContext(ctx, "console", "workspace_id", e.WorkspaceID, "level", string(e.Record.Level), "text", e.Record.Text)
		},
	}
}
