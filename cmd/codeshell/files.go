package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/codeshell/internal/cli"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the workspace tree",
	Long:  `Prints the explorer view of the workspace. Use --format mermaid for a diagram (graph TD).`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		ids, _ := cmd.Flags().GetBool("ids")
		return withApp(cmd, optionsFrom(cmd), func(app *cli.App) error {
			return cli.PrintTree(cmd.Context(), app, os.Stdout, format, ids)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show [path|#id]",
	Short: "Print a file, or the open buffer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, optionsFrom(cmd), func(app *cli.App) error {
			return cli.Show(cmd.Context(), app, os.Stdout, firstArg(args))
		})
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile [path|#id]",
	Short: "Print the JavaScript emitted for a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, optionsFrom(cmd), func(app *cli.App) error {
			return cli.Compile(cmd.Context(), app, os.Stdout, firstArg(args))
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run [path|#id]",
	Short: "Run a file and print its console",
	Long:  `Compiles and runs a file, or the open one. Exits with status 2 when the program threw or did not compile.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := withApp(cmd, optionsFrom(cmd), func(app *cli.App) error {
			return cli.Run(cmd.Context(), app, os.Stdout, firstArg(args))
		})
		if errors.Is(err, cli.ErrRunFailed) {
			os.Exit(2)
		}
		return err
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the workspace for consistency",
	Long:  `Checks tree structure, ambiguous paths and that every JavaScript or TypeScript file compiles.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := withApp(cmd, optionsFrom(cmd), func(app *cli.App) error {
			return cli.Validate(cmd.Context(), app)
		})
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Println("Workspace is valid! ✅")
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Write the workspace to a Loam archive directory",
	Long:  `Writes one Markdown document per node plus a manifest. The directory can be passed back with --seed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, optionsFrom(cmd), func(app *cli.App) error {
			if err := cli.Export(cmd.Context(), app, args[0]); err != nil {
				return err
			}
			fmt.Printf("Exported '%s' to %s\n", app.WorkspaceID, args[0])
			return nil
		})
	},
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	rootCmd.AddCommand(treeCmd, showCmd, compileCmd, runCmd, validateCmd, exportCmd)

	treeCmd.Flags().StringP("format", "f", cli.FormatTree, "Output format: tree, paths, mermaid or json")
	treeCmd.Flags().Bool("ids", false, "Show node ids")
}
