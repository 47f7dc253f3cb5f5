package serializer

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ASHISH26940/kvstore/internal/store"
)

// YAML encodes a mapping as a single YAML mapping document.
type YAML struct{}

var _ Codec = YAML{}

// NewYAML returns a YAML serializer.
func NewYAML() YAML { return YAML{} }

// encodeNode converts value into a YAML node. yaml.v3 panics on types it
// cannot represent (funcs, channels), so the panic is turned into an error.
func encodeNode(value any) (node *yaml.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node, err = nil, fmt.Errorf("%w: failed to serialize value to yaml: %v", store.ErrSerialization, r)
		}
	}()

	node = &yaml.Node{}
	if err := node.Encode(value); err != nil {
		return nil, fmt.Errorf("%w: failed to serialize value to yaml: %w", store.ErrSerialization, err)
	}
	return node, nil
}

// valueNode builds the node for value. Floats keep a decimal point so an
// integral float64 decodes as a float again instead of an int; sequences and
// mappings are walked so nested floats get the same treatment.
func valueNode(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case float64:
		return floatNode(v), nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, elem := range v {
			n, err := valueNode(elem)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	case map[string]any:
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range slices.Sorted(maps.Keys(v)) {
			n, err := valueNode(v[k])
			if err != nil {
				return nil, err
			}
			mapping.Content = append(mapping.Content, strNode(k), n)
		}
		return mapping, nil
	default:
		return encodeNode(value)
	}
}

func floatNode(f float64) *yaml.Node {
	var s string
	switch {
	case math.IsInf(f, 1):
		s = ".inf"
	case math.IsInf(f, -1):
		s = "-.inf"
	case math.IsNaN(f):
		s = ".nan"
	default:
		s = strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Serialize writes items as one YAML mapping, keys in the given order.
func (YAML) Serialize(items []store.Item) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, it := range items {
		vn, err := valueNode(it.Value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", it.Key, err)
		}
		mapping.Content = append(mapping.Content, strNode(it.Key), vn)
	}

	out, err := yaml.Marshal(mapping)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize data to yaml: %w", store.ErrSerialization, err)
	}
	return out, nil
}

// Deserialize parses a YAML mapping into items in document order.
// A key that appears twice keeps its first position and its last value.
func (YAML) Deserialize(data []byte) ([]store.Item, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to deserialize yaml data: %w", store.ErrSerialization, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("%w: expected a single yaml document", store.ErrSerialization)
	}

	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a yaml mapping, got %s", store.ErrSerialization, mapping.Tag)
	}

	items := make([]store.Item, 0, len(mapping.Content)/2)
	index := make(map[string]int, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, vn := mapping.Content[i], mapping.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: mapping keys must be scalars", store.ErrSerialization, keyNode.Line)
		}

		var value any
		if err := vn.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: key %q: %w", store.ErrSerialization, keyNode.Value, err)
		}

		if pos, seen := index[keyNode.Value]; seen {
			items[pos].Value = value
			continue
		}
		index[keyNode.Value] = len(items)
		items = append(items, store.Item{Key: keyNode.Value, Value: value})
	}
	return items, nil
}

// Marshal encodes a single value.
func (YAML) Marshal(value any) ([]byte, error) {
	node, err := valueNode(value)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize value to yaml: %w", store.ErrSerialization, err)
	}
	return out, nil
}

// Unmarshal decodes a single value.
func (YAML) Unmarshal(data []byte) (any, error) {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: failed to deserialize yaml data: %w", store.ErrSerialization, err)
	}
	return value, nil
}
