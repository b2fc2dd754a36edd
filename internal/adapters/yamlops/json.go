package yamlops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// marshalJSONOrdered renders a yaml.Node tree as JSON, preserving mapping
// key order exactly as the node holds it — encoding/json on a decoded
// map[string]any would re-sort keys alphabetically and defeat the
// "canonical dump preserves insertion order" requirement (spec.md §4.5).
func marshalJSONOrdered(v any) ([]byte, error) {
	node, ok := v.(*yaml.Node)
	if !ok {
		// Fallback for callers that already decoded to a plain value.
		return json.MarshalIndent(v, "", "  ")
	}
	var buf bytes.Buffer
	if err := writeJSONNode(&buf, node, "  ", ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSONNode(buf *bytes.Buffer, n *yaml.Node, indentUnit, indent string) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSONNode(buf, n.Content[0], indentUnit, indent)
	case yaml.MappingNode:
		return writeJSONMapping(buf, n, indentUnit, indent)
	case yaml.SequenceNode:
		return writeJSONSequence(buf, n, indentUnit, indent)
	case yaml.ScalarNode:
		return writeJSONScalar(buf, n)
	case yaml.AliasNode:
		return writeJSONNode(buf, n.Alias, indentUnit, indent)
	default:
		return fmt.Errorf("unsupported node kind %v", n.Kind)
	}
}

func writeJSONMapping(buf *bytes.Buffer, n *yaml.Node, indentUnit, indent string) error {
	if len(n.Content) == 0 {
		buf.WriteString("{}")
		return nil
	}
	inner := indent + indentUnit
	buf.WriteString("{\n")
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		val := n.Content[i+1]
		buf.WriteString(inner)
		keyJSON, err := json.Marshal(key.Value)
		if err != nil {
			return err
		}
		buf.Write(keyJSON)
		buf.WriteString(": ")
		if err := writeJSONNode(buf, val, indentUnit, inner); err != nil {
			return err
		}
		if i+2 < len(n.Content) {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString(indent + "}")
	return nil
}

func writeJSONSequence(buf *bytes.Buffer, n *yaml.Node, indentUnit, indent string) error {
	if len(n.Content) == 0 {
		buf.WriteString("[]")
		return nil
	}
	inner := indent + indentUnit
	buf.WriteString("[\n")
	for i, item := range n.Content {
		buf.WriteString(inner)
		if err := writeJSONNode(buf, item, indentUnit, inner); err != nil {
			return err
		}
		if i+1 < len(n.Content) {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString(indent + "]")
	return nil
}

func writeJSONScalar(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Tag {
	case "!!null":
		buf.WriteString("null")
		return nil
	case "!!bool":
		buf.WriteString(n.Value)
		return nil
	case "!!int":
		if _, err := strconv.ParseInt(n.Value, 10, 64); err == nil {
			buf.WriteString(n.Value)
			return nil
		}
		fallthrough
	case "!!float":
		if _, err := strconv.ParseFloat(n.Value, 64); err == nil {
			buf.WriteString(n.Value)
			return nil
		}
	}
	data, err := json.Marshal(n.Value)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}
