package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/codeshell"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of codeshell",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("codeshell version %s\n", strings.TrimSpace(codeshell.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
