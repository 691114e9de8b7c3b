package main

import (
	"os"

	"extension-verifier/internal/bootstrap"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a verification suite once and exit",
	Long: `Run launches the browser, executes the configured suite and exits 0
when every check passed, 1 otherwise. The suite is a built-in name
(popup, logging-panel) or a path to a YAML suite file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlagEnv(cmd)

		bootstrap.NewApp().Run()

		return nil
	},
}

func init() {
	addCommonFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("suite", "", "suite to run: built-in name or .yaml path")
	cmd.Flags().String("extension-dir", "", "unpacked extension directory")
	cmd.Flags().String("screenshot-dir", "", "directory for captured screenshots")
	cmd.Flags().String("engine", "", "browser engine: playwright or chromedp")
	cmd.Flags().Bool("headed", false, "run the browser with a visible window")
}

// applyFlagEnv forwards set flags into the environment so the envconfig
// layer, which the rest of the app reads, picks them up.
func applyFlagEnv(cmd *cobra.Command) {
	forward := map[string]string{
		"suite":          "VERIFY_SUITE",
		"extension-dir":  "VERIFY_EXTENSION_DIR",
		"screenshot-dir": "VERIFY_SCREENSHOT_DIR",
		"engine":         "BROWSER_ENGINE",
	}

	for flag, env := range forward {
		if cmd.Flags().Changed(flag) {
			val, _ := cmd.Flags().GetString(flag)
			os.Setenv(env, val)
		}
	}

	if cmd.Flags().Changed("headed") {
		os.Setenv("BROWSER_HEADLESS", "false")
	}
}
