package yamlops

import "gopkg.in/yaml.v3"

// identityKeys are, in priority order, the field names a list-of-mappings
// element is considered to have stable identity under (spec.md §4.5
// yaml_ops.merge). The first key present on an element wins.
var identityKeys = []string{"id", "name", "repo"}

// Merge combines overlay onto base per spec.md §4.5:
//   - mappings are deep-merged key-wise
//   - scalars: overlay wins
//   - lists of mappings with a stable identity key: entries with matching
//     identity are deep-merged, others are appended base-then-overlay-new
//   - lists of scalars: set-union, base order preserved
//   - user-authored keys in base absent from overlay are always retained
func Merge(base, overlay *Doc) (*Doc, error) {
	result := base.Clone()
	overlayRoot := overlay.Root()
	if overlayRoot == nil {
		return result, nil
	}

	baseRoot := result.Root()
	if baseRoot == nil {
		result.node.Content = []*yaml.Node{cloneNode(overlayRoot)}
		return result, nil
	}

	merged := mergeNodes(baseRoot, overlayRoot)
	result.node.Content[0] = merged
	return result, nil
}

func mergeNodes(base, overlay *yaml.Node) *yaml.Node {
	if overlay == nil {
		return base
	}
	if base == nil {
		return cloneNode(overlay)
	}

	if base.Kind == yaml.MappingNode && overlay.Kind == yaml.MappingNode {
		return mergeMappings(base, overlay)
	}
	if base.Kind == yaml.SequenceNode && overlay.Kind == yaml.SequenceNode {
		return mergeSequences(base, overlay)
	}

	// Scalars, or a kind mismatch: overlay wins outright.
	return cloneNode(overlay)
}

func mergeMappings(base, overlay *yaml.Node) *yaml.Node {
	result := cloneNode(base)

	for i := 0; i+1 < len(overlay.Content); i += 2 {
		key := overlay.Content[i]
		val := overlay.Content[i+1]

		idx := findMappingKey(result, key.Value)
		if idx < 0 {
			// Key absent from base: append, preserving overlay's position
			// relative to other newly-introduced keys.
			result.Content = append(result.Content, cloneNode(key), cloneNode(val))
			continue
		}

		existingVal := result.Content[idx+1]
		result.Content[idx+1] = mergeNodes(existingVal, val)
	}

	return result
}

func findMappingKey(mapping *yaml.Node, key string) int {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func mergeSequences(base, overlay *yaml.Node) *yaml.Node {
	if allScalars(base) && allScalars(overlay) {
		return mergeScalarList(base, overlay)
	}
	return mergeIdentityList(base, overlay)
}

func allScalars(seq *yaml.Node) bool {
	for _, item := range seq.Content {
		if item.Kind != yaml.ScalarNode {
			return false
		}
	}
	return true
}

// mergeScalarList implements set-union preserving base order (spec.md §9
// Open Question 2, resolved in favor of set-union; see DESIGN.md).
func mergeScalarList(base, overlay *yaml.Node) *yaml.Node {
	result := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	seen := make(map[string]bool, len(base.Content)+len(overlay.Content))

	for _, item := range base.Content {
		if !seen[item.Value] {
			seen[item.Value] = true
			result.Content = append(result.Content, cloneNode(item))
		}
	}
	for _, item := range overlay.Content {
		if !seen[item.Value] {
			seen[item.Value] = true
			result.Content = append(result.Content, cloneNode(item))
		}
	}
	return result
}

// mergeIdentityList deep-merges mapping elements sharing an identity key,
// appending base-then-overlay-new for everything else (spec.md §4.5).
func mergeIdentityList(base, overlay *yaml.Node) *yaml.Node {
	result := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	matchedOverlay := make(map[int]bool, len(overlay.Content))

	for _, baseItem := range base.Content {
		bKey, bID, hasID := identity(baseItem)
		if !hasID {
			result.Content = append(result.Content, cloneNode(baseItem))
			continue
		}

		merged := baseItem
		for oi, overlayItem := range overlay.Content {
			if matchedOverlay[oi] {
				continue
			}
			oKey, oID, ok := identity(overlayItem)
			if ok && oKey == bKey && oID == bID {
				merged = mergeNodes(baseItem, overlayItem)
				matchedOverlay[oi] = true
				break
			}
		}
		result.Content = append(result.Content, cloneNode(merged))
	}

	for oi, overlayItem := range overlay.Content {
		if matchedOverlay[oi] {
			continue
		}
		result.Content = append(result.Content, cloneNode(overlayItem))
	}

	return result
}

// identity returns the (keyName, value) pair an element is keyed by,
// trying identityKeys in priority order.
func identity(mapping *yaml.Node) (string, string, bool) {
	if mapping.Kind != yaml.MappingNode {
		return "", "", false
	}
	for _, key := range identityKeys {
		if idx := findMappingKey(mapping, key); idx >= 0 {
			val := mapping.Content[idx+1]
			if val.Kind == yaml.ScalarNode {
				return key, val.Value, true
			}
		}
	}
	return "", "", false
}
