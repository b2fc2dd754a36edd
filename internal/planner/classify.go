// Package planner implements the Planner: plan(resolved, target_root,
// receipts, force) → InstallPlan (spec.md §4.2). Planning is pure: it
// reads source, target, and receipt content but writes nothing.
package planner

import (
	"regexp"
	"strings"

	"github.com/doylet/guardrails-ai-sub001/internal/domain/plan"
)

var mergeableExtensions = map[string]bool{
	"yaml": true,
	"yml":  true,
	"json": true,
}

// variablePlaceholder matches a ${name} reference — the same shape
// yamlops.Template substitutes, used here only to decide classification.
var variablePlaceholder = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}`)

// classify chooses a FileAction's Kind for one source file, per spec.md
// §4.2 step 3: `.example.<ext>` is MERGE for yaml/yml/json and COPY
// otherwise; `.template.<ext>` is always COPY (the suffix is preserved,
// the file is a user-facing scaffold, not yamlops-templated in place);
// a file containing a declared variable placeholder is TEMPLATE;
// anything else is COPY.
func classify(srcPath string, content []byte, variableNames map[string]bool) (kind plan.ActionKind, dstPath string) {
	if stripped, ext, ok := stripSuffix(srcPath, ".example"); ok {
		if mergeableExtensions[ext] {
			return plan.KindMerge, stripped
		}
		return plan.KindCopy, stripped
	}

	if _, _, ok := stripSuffix(srcPath, ".template"); ok {
		return plan.KindCopy, srcPath
	}

	if containsDeclaredVariable(content, variableNames) {
		return plan.KindTemplate, srcPath
	}

	return plan.KindCopy, srcPath
}

// stripSuffix reports whether srcPath's filename contains infix right
// before its final extension (e.g. "config.example.yaml" has infix
// ".example" and ext "yaml"), returning the path with infix removed.
func stripSuffix(srcPath, infix string) (stripped, ext string, ok bool) {
	dot := strings.LastIndex(srcPath, ".")
	if dot < 0 {
		return "", "", false
	}
	base, extPart := srcPath[:dot], srcPath[dot+1:]
	if !strings.HasSuffix(base, infix) {
		return "", "", false
	}
	return strings.TrimSuffix(base, infix) + "." + extPart, extPart, true
}

// containsDeclaredVariable reports whether content references at least
// one ${name} where name is in variableNames — an undeclared ${name}-like
// sequence does not make a file a TEMPLATE candidate, since the plugin
// configuration is the sole variable namespace (spec.md §6 yaml_ops.template).
func containsDeclaredVariable(content []byte, variableNames map[string]bool) bool {
	if len(variableNames) == 0 {
		return false
	}
	for _, match := range variablePlaceholder.FindAllSubmatch(content, -1) {
		name := strings.TrimSuffix(strings.TrimPrefix(string(match[0]), "${"), "}")
		if variableNames[name] {
			return true
		}
	}
	return false
}
