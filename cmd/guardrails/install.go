package main

import (
	"context"
	"fmt"

	"github.com/doylet/guardrails-ai-sub001/internal/installer"
	"github.com/spf13/cobra"
)

var installDryRun bool

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the resolved components into the target repository",
	Long: `Install resolves the manifest, plans the per-component file actions, and
executes them against the target repository: stage, verify, backup,
promote, write a receipt, clean up — one component transaction at a time,
in installation order.

--dry-run stages and verifies every component without backing up,
promoting, or writing a receipt.`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "stage and verify without writing")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	o := newOrchestrator()

	report, err := o.Install(context.Background(), newRequest(), installDryRun)
	if err != nil {
		printReport(report)
		return fmt.Errorf("install failed: %w", err)
	}

	printReport(report)
	if !report.Succeeded() {
		return fmt.Errorf("install reported failures")
	}
	return nil
}

// printReport renders an ExecutionReport one line per component, the way
// the teacher's PrintResults renders step results.
func printReport(report *installer.ExecutionReport) {
	if report == nil {
		return
	}
	for _, cr := range report.Components {
		line := fmt.Sprintf("%s: %s", cr.Component, cr.Status)
		if cr.Error != nil {
			line += " (" + cr.Error.Error() + ")"
		}
		fmt.Println(line)
	}
}
