package ir

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a decoded YAML node into a Value, keeping mapping key order.
//
// Only the JSON-compatible subset of YAML is accepted: mappings with string
// keys, sequences, and scalars resolving to null, bool, int, float, or string.
// Aliases are followed.
func FromYAML(node *yaml.Node) (Value, error) {
	if node == nil {
		return nil, fmt.Errorf("nil YAML node")
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null{}, nil
		}
		return FromYAML(node.Content[0])

	case yaml.AliasNode:
		return FromYAML(node.Alias)

	case yaml.MappingNode:
		doc := make(Document, 0, len(node.Content)/2)
		seen := make(map[string]struct{}, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
			}
			key := keyNode.Value
			if _, dup := seen[key]; dup {
				return nil, fmt.Errorf("line %d: duplicate key %q", keyNode.Line, key)
			}
			seen[key] = struct{}{}

			val, err := FromYAML(valNode)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			doc = append(doc, Field{Key: key, Value: val})
		}
		return doc, nil

	case yaml.SequenceNode:
		arr := make(Array, len(node.Content))
		for i, elem := range node.Content {
			val, err := FromYAML(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = val
		}
		return arr, nil

	case yaml.ScalarNode:
		return yamlScalar(node)

	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

func yamlScalar(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return Null{}, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Bool(b), nil
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Int(n), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		// JSON has no representation for NaN or the infinities.
		num, err := NewNumber(string(Float(f)))
		if err != nil {
			return nil, fmt.Errorf("line %d: unsupported float %q", node.Line, node.Value)
		}
		return num, nil
	case "!!str", "!!binary", "!!timestamp":
		return String(node.Value), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML tag %s", node.Line, node.ShortTag())
	}
}
