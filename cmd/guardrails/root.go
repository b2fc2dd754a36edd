package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/doylet/guardrails-ai-sub001/internal/domain/xerrors"
	"github.com/spf13/cobra"
)

// engineVersion is stamped into every receipt this build writes
// (spec.md §3 Receipt.engine_version). Doctor's staleness check compares
// against it on a later, newer build.
const engineVersion = "v1.0.0"

var (
	sourceRoot  string
	targetRoot  string
	corePath    string
	profileName string
	plugins     []string
	interactive bool
	force       bool
)

var rootCmd = &cobra.Command{
	Use:   "guardrails",
	Short: "An idempotent configuration installer for source repositories",
	Long: `guardrails installs declarative, plugin-composed configuration into a
target repository, tracks what it installed with per-component receipts,
and can plan, install, uninstall, and diagnose that installation without
ever running an installation script.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		return err
	}
	return nil
}

func init() {
	wd, _ := os.Getwd()

	rootCmd.PersistentFlags().StringVar(&sourceRoot, "source-root", wd, "directory component files are read from")
	rootCmd.PersistentFlags().StringVar(&targetRoot, "target-root", wd, "repository configuration is installed into")
	rootCmd.PersistentFlags().StringVarP(&corePath, "config", "c", "manifest.yaml", "path to the core manifest")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "profile to install (empty resolves every component)")
	rootCmd.PersistentFlags().StringSliceVar(&plugins, "plugin", nil, "plugin ids to enable, in install order (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&interactive, "interactive", "i", false, "prompt to resolve INTERACTIVE merge conflicts instead of falling back to UNION")
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "re-stage every component regardless of receipt state")
}

// formatError renders a typed engine error the way spec.md §7 asks for:
// kind, component/path, and the one recommended remediation. Any other
// error is printed as-is.
func formatError(err error) string {
	var xerr *xerrors.Error
	if errors.As(err, &xerr) {
		msg := xerr.Error()
		if xerr.Remediation != "" {
			msg += "\n\nSuggestion: " + xerr.Remediation
		}
		return msg
	}
	return err.Error()
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, formatError(err))
}
