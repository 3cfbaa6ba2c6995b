package medscan

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "medscan",
	Short: "Medical image triage from the command line",
	Long: `Medscan classifies chest X-rays and brain MRI scans for pneumonia,
brain tumors, and tuberculosis, and produces a plain-language
interpretation of the result.

Results are screening aids, not diagnoses.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(versionCmd)
}
