package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the components that would be installed",
	Long: `List resolves the core manifest and any enabled plugins and prints
every component that would participate, in installation order, without
planning or touching the target repository.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(_ *cobra.Command, _ []string) error {
	o := newOrchestrator()

	components, err := o.List(newRequest())
	if err != nil {
		return err
	}

	for _, c := range components {
		fmt.Println(c.QualifiedName())
	}
	return nil
}
