package main

import (
	"context"
	"os"
	"strings"

	"github.com/aretw0/codeshell"
	"github.com/aretw0/codeshell/internal/cli"
	"github.com/aretw0/codeshell/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Rerun on every change",
	Long: `Mirrors a local JavaScript or TypeScript file into the workspace and reruns it whenever it changes.
Without a file, watches the Loam archive given with --seed and reruns the open file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, _ := cmd.Flags().GetString("node")
		debounce, _ := cmd.Flags().GetDuration("debounce")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		tui.PrintBanner(os.Stdout, strings.TrimSpace(codeshell.Version))
		err := cli.RunWatch(sigCtx, optionsFrom(cmd), cli.WatchOptions{
			File:     firstArg(args),
			Node:     node,
			Debounce: debounce,
		}, os.Stdout)
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("node", "", "Workspace path or #id that receives the file (default: the open file)")
	watchCmd.Flags().Duration("debounce", cli.DefaultDebounce, "Quiet period after a write before the file is rerun")
}
