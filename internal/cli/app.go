// Package cli wires the codeshell library into the command line: building a
// Shell from flags, one-shot commands, the interactive shell and watch mode.
package cli

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/codeshell"
	"github.com/aretw0/codeshell/pkg/adapters/file"
	loamadapter "github.com/aretw0/codeshell/pkg/adapters/loam"
	"github.com/aretw0/codeshell/pkg/adapters/memory"
	"github.com/aretw0/codeshell/pkg/adapters/redis"
	"github.com/aretw0/codeshell/pkg/idgen"
	"github.com/aretw0/codeshell/pkg/observability"
	"github.com/aretw0/codeshell/pkg/persistence/middleware"
	"github.com/aretw0/codeshell/pkg/ports"
	"github.com/aretw0/codeshell/pkg/runner"
	"github.com/aretw0/codeshell/pkg/seed"
)

// Options configures how a command builds its Shell.
type Options struct {
	// Workspace is the workspace every command applies to.
	Workspace string
	// SeedPath is a YAML/JSON seed file or a Loam archive directory.
	SeedPath string

	// StoreDir persists workspaces as JSON files. Empty keeps them in memory.
	StoreDir string
	// RedisAddr persists workspaces in Redis and locks them across processes. It wins over StoreDir.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	// EncryptionKey encrypts persisted workspaces with AES-256-GCM. It is 32 bytes
	// written as hex or base64. FallbackKeys are tried when decryption with it fails.
	EncryptionKey string
	FallbackKeys  []string
	// Redact masks credentials in persisted console output. RedactPatterns replaces the defaults.
	Redact         bool
	RedactPatterns []string

	RunTimeout time.Duration
	ClearOnRun bool

	Debug     bool
	LogLevel  string
	LogFormat string

	// Metrics, when set, receives compile and run events.
	Metrics *observability.Metrics
}

// WorkspaceID returns the configured workspace or the default one.
func (o Options) WorkspaceID() string {
	if o.Workspace == "" {
		return runner.DefaultWorkspace
	}
	return o.Workspace
}

// App is a Shell built from Options together with the resources it holds.
type App struct {
	Shell       *codeshell.Shell
	Logger      *slog.Logger
	WorkspaceID string

	closers []func() error
}

// Build creates the logger, store and Shell described by opts.
func Build(ctx context.Context, opts Options) (*App, error) {
	logger, err := NewLogger(opts.Debug, opts.LogLevel, opts.LogFormat)
	if err != nil {
		return nil, err
	}

	app := &App{Logger: logger, WorkspaceID: opts.WorkspaceID()}

	hooks := observability.LoggingHooks(logger)
	if opts.Metrics != nil {
		hooks = hooks.Merge(opts.Metrics.Hooks())
	}
	shellOpts := []codeshell.Option{
		codeshell.WithLogger(logger),
		codeshell.WithLifecycleHooks(hooks),
		codeshell.WithClearOnRun(opts.ClearOnRun),
	}
	if opts.RunTimeout > 0 {
		shellOpts = append(shellOpts, codeshell.WithRunTimeout(opts.RunTimeout))
	}

	if opts.SeedPath != "" {
		sd, err := LoadSeed(ctx, opts.SeedPath)
		if err != nil {
			return nil, err
		}
		shellOpts = append(shellOpts, codeshell.WithSeed(sd))
	}

	var store ports.WorkspaceStore
	switch {
	case opts.RedisAddr != "":
		var storeOpts []redis.Option
		if opts.RedisTTL > 0 {
			storeOpts = append(storeOpts, redis.WithTTL(opts.RedisTTL))
		}
		rs := redis.New(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, storeOpts...)
		if err := rs.Client().Ping(ctx).Err(); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis unreachable at %s: %w", opts.RedisAddr, err)
		}
		shellOpts = append(shellOpts, codeshell.WithLocker(redis.NewLocker(rs.Client(), rs.Prefix())))
		app.closers = append(app.closers, rs.Close)
		store = rs
		logger.Debug("Using redis store", "addr", opts.RedisAddr, "db", opts.RedisDB)
	case opts.StoreDir != "":
		store = file.New(opts.StoreDir)
		logger.Debug("Using file store", "dir", opts.StoreDir)
	default:
		store = memory.NewStore()
	}

	mws, err := storeMiddlewares(opts)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	shellOpts = append(shellOpts, codeshell.WithStore(middleware.Chain(store, mws...)))

	app.Shell = codeshell.New(shellOpts...)
	return app, nil
}

// storeMiddlewares builds the persistence decorators. Redaction runs before encryption.
func storeMiddlewares(opts Options) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if opts.Redact || len(opts.RedactPatterns) > 0 {
		patterns := opts.RedactPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultRedactPatterns
		}
		mw, err := middleware.NewRedactionMiddleware(patterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if opts.EncryptionKey != "" {
		active, err := ParseKey(opts.EncryptionKey)
		if err != nil {
			return nil, err
		}
		cfg := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range opts.FallbackKeys {
			key, err := ParseKey(k)
			if err != nil {
				return nil, fmt.Errorf("fallback key: %w", err)
			}
			cfg.FallbackKeys = append(cfg.FallbackKeys, key)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(cfg))
	}
	return mws, nil
}

// ParseKey decodes a 32-byte AES key written as hex or standard base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if key, err := hex.DecodeString(s); err == nil && len(key) == 32 {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(s); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, errors.New("encryption key must be 32 bytes written as hex or base64")
}

// Close releases the store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Runner returns a command runner bound to the app workspace.
func (a *App) Runner(h runner.IOHandler) *runner.Runner {
	return runner.New(
		runner.WithHandler(h),
		runner.WithLogger(a.Logger),
		runner.WithWorkspace(a.WorkspaceID),
	)
}

// LoadSeed reads a seed file, or imports a Loam archive when path is a directory.
// Nodes without an id get a generated one.
func LoadSeed(ctx context.Context, path string) (*seed.Seed, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	if !info.IsDir() {
		return seed.Load(path, idgen.UUID{})
	}

	archive, err := loamadapter.Open(path, true)
	if err != nil {
		return nil, err
	}
	sd, err := archive.Import(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", strings.TrimSuffix(path, "/"), err)
	}
	return sd, nil
}
