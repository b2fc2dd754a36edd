// Package yamlops implements the yaml_ops adapter: canonical load/dump,
// structured merge, and ${name} variable templating (spec.md §4.5). Both
// of the engine's two content-transforming operations — structured merge
// and variable templating — funnel through this one package.
package yamlops

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Format names the serialization a Doc round-trips through.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Doc is a parsed document that preserves key order and comments through
// a load -> merge -> dump round trip — the yaml.v3 Node API is the only
// thing in the reference stack's dependency set that supports this; a
// plain map[string]any would lose insertion order on every merge.
type Doc struct {
	node   *yaml.Node
	format Format
}

// Load parses data as the given format into an order-preserving Doc.
// JSON is accepted through the same path as YAML because JSON is a
// syntactic subset of YAML's flow style; yaml.v3 parses both.
func Load(data []byte, format Format) (*Doc, error) {
	var root yaml.Node
	if len(bytes.TrimSpace(data)) == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
		return &Doc{node: &root, format: format}, nil
	}

	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	return &Doc{node: &root, format: format}, nil
}

// Root returns the document's single content node (the top-level mapping
// or sequence), the node every merge/template operation walks.
func (d *Doc) Root() *yaml.Node {
	if len(d.node.Content) == 0 {
		return nil
	}
	return d.node.Content[0]
}

// Clone returns a deep copy of d so merge operations never mutate an
// input Doc in place.
func (d *Doc) Clone() *Doc {
	return &Doc{node: cloneNode(d.node), format: d.format}
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Content = make([]*yaml.Node, len(n.Content))
	for i, c := range n.Content {
		cp.Content[i] = cloneNode(c)
	}
	return &cp
}

// Dump produces d's canonical serialization: UTF-8, LF line endings, a
// single trailing newline, two-space indent, no tabs, keys in the order
// the document currently holds them (spec.md §4.5 yaml_ops.dump).
func Dump(d *Doc) ([]byte, error) {
	if d.format == FormatJSON {
		return dumpJSON(d)
	}
	return dumpYAML(d)
}

func dumpYAML(d *Doc) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.node); err != nil {
		return nil, fmt.Errorf("dump yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}
	out := normalizeLineEndings(buf.Bytes())
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

func dumpJSON(d *Doc) ([]byte, error) {
	data, err := marshalJSONOrdered(d.node)
	if err != nil {
		return nil, err
	}
	data = normalizeLineEndings(data)
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	return data, nil
}

func normalizeLineEndings(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}
