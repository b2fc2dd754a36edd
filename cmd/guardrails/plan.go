package main

import (
	"fmt"

	"github.com/doylet/guardrails-ai-sub001/internal/domain/plan"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what installing would change",
	Long: `Plan resolves the manifest, computes the per-component file actions the
Installer would take, and prints a summary. It never writes to the target
repository.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(_ *cobra.Command, _ []string) error {
	o := newOrchestrator()

	_, p, err := o.Plan(newRequest())
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}

	printPlan(p)
	return nil
}

// printPlan renders an InstallPlan the way the teacher's PrintPlan does:
// one line per component, one indented line per action.
func printPlan(p *plan.InstallPlan) {
	if p.IsEmpty() {
		fmt.Println("nothing to do")
		return
	}

	for _, cp := range p.Components {
		if !cp.HasChanges() {
			fmt.Printf("%s: unchanged\n", cp.QualifiedName())
			continue
		}
		fmt.Printf("%s:\n", cp.QualifiedName())
		for _, a := range cp.Actions {
			fmt.Printf("  %-8s %s\n", a.Kind, a.DstPath)
		}
	}

	summary := p.Summary()
	fmt.Printf("\n%d component(s), %d action(s)\n", summary.Components, summary.Actions)
}
