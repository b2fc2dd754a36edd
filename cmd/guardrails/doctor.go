package main

import (
	"context"
	"fmt"

	"github.com/doylet/guardrails-ai-sub001/internal/doctor"
	"github.com/spf13/cobra"
)

var doctorPolicy string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose installed state against receipts and the composed schema",
	Long: `Doctor compares the target repository against every receipt and the
composed structure schema and reports drift, staleness, missing files,
unsatisfied required paths, and leftover staging/backup directories.

--policy report-only (the default) only reports.
--policy restore-missing replans and reinstalls components with missing
or drifted files.
--policy reinstall-stale replans and reinstalls components whose receipt
no longer matches the resolved manifest.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorPolicy, "policy", "report-only", "report-only, restore-missing, or reinstall-stale")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	policy := doctor.RepairPolicy(doctorPolicy)
	switch policy {
	case doctor.PolicyReportOnly, doctor.PolicyRestoreMissing, doctor.PolicyReinstallStale:
	default:
		return fmt.Errorf("unknown --policy %q", doctorPolicy)
	}

	o := newOrchestrator()

	report, err := o.Doctor(context.Background(), newRequest(), policy)
	if err != nil {
		return fmt.Errorf("doctor failed: %w", err)
	}

	if report.Clean() {
		fmt.Println("clean")
		return nil
	}
	for _, f := range report.Findings {
		line := string(f.Kind)
		if f.Component != "" {
			line += " " + f.Component
		}
		if f.Path != "" {
			line += " " + f.Path
		}
		if f.Detail != "" {
			line += ": " + f.Detail
		}
		fmt.Println(line)
	}
	for _, c := range report.Repaired {
		fmt.Printf("repaired: %s\n", c)
	}
	return nil
}
