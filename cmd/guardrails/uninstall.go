package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <component> [component...]",
	Short: "Remove installed components and their receipts",
	Long: `Uninstall removes every receipt-tracked file of each named qualified
component. A file whose current content no longer matches its receipt is
left in place and reported as drift; the receipt is kept so the drifted
file isn't forgotten.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(_ *cobra.Command, args []string) error {
	o := newOrchestrator()

	report, err := o.Uninstall(context.Background(), args)
	printReport(report)
	if err != nil {
		return fmt.Errorf("uninstall failed: %w", err)
	}
	if !report.Succeeded() {
		return fmt.Errorf("uninstall reported drift; see above")
	}
	return nil
}
