package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"imoperator/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version string",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Long())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
