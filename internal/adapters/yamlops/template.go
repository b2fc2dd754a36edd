package yamlops

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// variableRef matches ${name}; conditionalName matches the opening half
// of a ${?name}...${/name} block (spec.md §4.5 yaml_ops.template). Only
// bare variable references are supported, never arbitrary expressions.
var (
	variableRef     = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	conditionalName = regexp.MustCompile(`^\$\{\?([A-Za-z_][A-Za-z0-9_]*)\}$`)
)

// Vars is the whitelist of variable values a template may reference. A
// reference to a name absent from Vars is a hard error (spec.md §4.5:
// "undefined variable is an error, never a silent blank").
type Vars map[string]string

// Template substitutes ${name} and ${?name}...${/name} in s against vars,
// walking every scalar string in a document in place when applied via
// TemplateDoc. Conditional blocks are line-oriented: the opening and
// closing markers must each occupy a full line.
func Template(s string, vars Vars) (string, error) {
	expanded, err := expandConditionals(s, vars)
	if err != nil {
		return "", err
	}
	return expandVariables(expanded, vars)
}

func expandVariables(s string, vars Vars) (string, error) {
	var firstErr error
	result := variableRef.ReplaceAllStringFunc(s, func(match string) string {
		name := variableRef.FindStringSubmatch(match)[1]
		val, ok := vars[name]
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("undefined template variable %q", name)
			}
			return match
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// expandConditionals strips ${?name}...${/name} blocks, keeping the body
// iff vars[name] is truthy ("true", "1", "yes", or any non-empty value
// other than "false"/"0"/"no"), and erroring if name is undefined.
func expandConditionals(s string, vars Vars) (string, error) {
	lines := strings.Split(s, "\n")
	var out []string
	var stack []conditionalFrame

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if m := conditionalName.FindStringSubmatch(trimmed); m != nil {
			name := m[1]
			val, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("undefined conditional variable %q", name)
			}
			stack = append(stack, conditionalFrame{name: name, keep: truthy(val)})
			continue
		}
		if closeMatch := closeTagName(trimmed); closeMatch != "" {
			if len(stack) == 0 || stack[len(stack)-1].name != closeMatch {
				return "", fmt.Errorf("mismatched conditional close ${/%s}", closeMatch)
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if allKeep(stack) {
			out = append(out, line)
		}
	}

	if len(stack) > 0 {
		return "", fmt.Errorf("unterminated conditional ${?%s}", stack[len(stack)-1].name)
	}
	return strings.Join(out, "\n"), nil
}

type conditionalFrame struct {
	name string
	keep bool
}

var closeTag = regexp.MustCompile(`^\$\{/([A-Za-z_][A-Za-z0-9_]*)\}$`)

func closeTagName(trimmed string) string {
	m := closeTag.FindStringSubmatch(trimmed)
	if m == nil {
		return ""
	}
	return m[1]
}

func allKeep(stack []conditionalFrame) bool {
	for _, f := range stack {
		if !f.keep {
			return false
		}
	}
	return true
}

func truthy(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "", "false", "0", "no":
		return false
	default:
		return true
	}
}

// TemplateDoc applies Template to every scalar string value in d in
// place, leaving keys, tags, and structure untouched. Used when a
// component file is itself a YAML/JSON document containing ${name}
// references (spec.md §4.2 classify: TEMPLATE files).
func TemplateDoc(d *Doc, vars Vars) error {
	root := d.Root()
	if root == nil {
		return nil
	}
	return templateNode(root, vars)
}

func templateNode(n *yaml.Node, vars Vars) error {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		expanded, err := Template(n.Value, vars)
		if err != nil {
			return err
		}
		n.Value = expanded
		return nil
	}
	for _, c := range n.Content {
		if err := templateNode(c, vars); err != nil {
			return err
		}
	}
	return nil
}

// TemplateText applies Template directly to raw file content (used for
// non-YAML template files, e.g. plain-text or markdown with ${name}
// references).
func TemplateText(data []byte, vars Vars) ([]byte, error) {
	out, err := Template(string(data), vars)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
