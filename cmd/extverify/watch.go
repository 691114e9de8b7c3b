package main

import (
	"extension-verifier/internal/bootstrap"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the suite whenever the target changes",
	Long: `Watch runs the suite once, then watches the target directory and
re-runs it after each settled burst of file changes. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlagEnv(cmd)

		bootstrap.NewWatchApp().Run()

		return nil
	},
}

func init() {
	addCommonFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}
