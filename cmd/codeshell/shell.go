package main

import (
	"context"
	"os"

	"github.com/aretw0/codeshell/internal/cli"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open the interactive shell",
	Long: `Reads commands such as 'ls', 'open App.js', 'edit ...', 'save' and 'run' and applies them
to the workspace. Type 'help' inside the shell for the full list.

With --json every input line is a JSON command and every reply a JSON object.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")
		ids, _ := cmd.Flags().GetBool("ids")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()
		cmd.SetContext(sigCtx)

		return withApp(cmd, optionsFrom(cmd), func(app *cli.App) error {
			return cli.RunShell(sigCtx, app, os.Stdin, os.Stdout, cli.ShellOptions{
				JSON:    jsonMode,
				Quiet:   quiet || jsonMode,
				ShowIDs: ids,
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)

	shellCmd.Flags().Bool("json", false, "Read and write NDJSON")
	shellCmd.Flags().BoolP("quiet", "q", false, "Hide the banner and system messages")
	shellCmd.Flags().Bool("ids", false, "Show node ids in ls")

	rootCmd.Flags().AddFlagSet(shellCmd.Flags())
	rootCmd.RunE = shellCmd.RunE
}
