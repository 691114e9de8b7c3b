package main

import (
	"fmt"
	"os"
	"path/filepath"

	"extension-verifier/internal/entity"
	"extension-verifier/internal/static"
	"extension-verifier/internal/suite"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [html-file]",
	Short: "Check a suite's selectors against the static HTML, no browser",
	Long: `Inspect parses the popup HTML straight from disk and reports which of
the suite's selectors match the static DOM. A selector missing here can
never pass in the browser, so this is a fast pre-flight before run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suiteRef, _ := cmd.Flags().GetString("suite")
		if suiteRef == "" {
			suiteRef = suite.SuitePopup
		}

		extensionDir, _ := cmd.Flags().GetString("extension-dir")

		s, err := suite.Resolve(suiteRef, extensionDir)
		if err != nil {
			return err
		}

		htmlPath := resolveHTMLPath(args, s)

		report, err := static.Inspect(htmlPath, s)
		if err != nil {
			return err
		}

		fmt.Printf("Inspecting %s against suite %q\n\n", report.Path, s.Name)

		for _, f := range report.Findings {
			mark := "ok"
			if !f.Matched {
				mark = "MISSING"
			}

			fmt.Printf("  [%s] %s (%s)", mark, f.Check.Name, f.Check.Selector)
			if f.Matched && f.Text != "" {
				fmt.Printf(" text=%q", f.Text)
			}
			fmt.Println()
		}

		if missing := report.Missing(); len(missing) > 0 {
			fmt.Printf("\n%d of %d selectors missing from the static DOM\n", len(missing), len(report.Findings))
			os.Exit(1)
		}

		fmt.Printf("\nAll %d selectors found\n", len(report.Findings))

		return nil
	},
}

func resolveHTMLPath(args []string, s entity.Suite) string {
	if len(args) > 0 {
		return args[0]
	}

	if s.Target.Kind == entity.TargetLocalFile {
		return s.Target.Path
	}

	return filepath.Join(s.Target.Path, s.Target.Page)
}

func init() {
	inspectCmd.Flags().String("suite", "", "suite to inspect: built-in name or .yaml path")
	inspectCmd.Flags().String("extension-dir", "", "unpacked extension directory")
	rootCmd.AddCommand(inspectCmd)
}
