package main

import (
	"fmt"
	"os"

	"github.com/aretw0/codeshell/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "codeshell",
	Short: "codeshell is a virtual file explorer that compiles and runs JavaScript and TypeScript",
	Long: `codeshell keeps a tree of files in a workspace, transpiles TypeScript and JSX with esbuild
and runs the result in a sandbox whose console output is captured.

Without a subcommand it opens the interactive shell.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.StringP("workspace", "w", "default", "Workspace id")
	pf.String("seed", "", "Seed file (YAML/JSON) or Loam archive directory for new workspaces")
	pf.String("store", "", "Directory that persists workspaces as JSON files")
	pf.String("redis", "", "Redis address that persists and locks workspaces (overrides --store)")
	pf.String("redis-password", "", "Redis password")
	pf.Int("redis-db", 0, "Redis database")
	pf.Duration("redis-ttl", 0, "Expire idle workspaces in Redis after this long (0 keeps them)")
	pf.String("encryption-key", os.Getenv("CODESHELL_ENCRYPTION_KEY"), "AES-256 key (hex or base64) that encrypts persisted workspaces")
	pf.StringSlice("fallback-key", nil, "Previous encryption keys accepted when loading")
	pf.Bool("redact", false, "Mask credentials in persisted console output")
	pf.StringSlice("redact-pattern", nil, "Regular expression to mask in persisted console output (repeatable)")
	pf.Duration("timeout", 0, "Run timeout (0 uses CODESHELL_RUN_TIMEOUT or 5s)")
	pf.Bool("clear", false, "Clear the console before every run")
	pf.Bool("debug", false, "Enable debug logging on stderr")
	pf.String("log-level", "", "Log level on stderr (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text or json)")
}

// optionsFrom reads the persistent flags.
func optionsFrom(cmd *cobra.Command) cli.Options {
	f := cmd.Flags()
	var o cli.Options
	o.Workspace, _ = f.GetString("workspace")
	o.SeedPath, _ = f.GetString("seed")
	o.StoreDir, _ = f.GetString("store")
	o.RedisAddr, _ = f.GetString("redis")
	o.RedisPassword, _ = f.GetString("redis-password")
	o.RedisDB, _ = f.GetInt("redis-db")
	o.RedisTTL, _ = f.GetDuration("redis-ttl")
	o.EncryptionKey, _ = f.GetString("encryption-key")
	o.FallbackKeys, _ = f.GetStringSlice("fallback-key")
	o.Redact, _ = f.GetBool("redact")
	o.RedactPatterns, _ = f.GetStringSlice("redact-pattern")
	o.RunTimeout, _ = f.GetDuration("timeout")
	o.ClearOnRun, _ = f.GetBool("clear")
	o.Debug, _ = f.GetBool("debug")
	o.LogLevel, _ = f.GetString("log-level")
	o.LogFormat, _ = f.GetString("log-format")
	return o
}

// withApp builds the app for one command and releases it afterwards.
func withApp(cmd *cobra.Command, opts cli.Options, fn func(app *cli.App) error) error {
	app, err := cli.Build(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
