package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.2.0"

var rootCmd = &cobra.Command{
	Use:   "extverify",
	Short: "extverify checks browser-extension UIs in a headless browser",
	Long: `extverify launches a headless Chromium, loads an unpacked extension
(or opens a local HTML file), asserts that the declared UI elements are
present, visible and correctly labeled, and captures a screenshot.

Configuration comes from the environment (and a .env file); the flags on
each command override it for that invocation.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
