package snapshot

import (
	"errors"
	"fmt"
	"io"

	"github.com/brettbedarf/varfs/tree"
	"gopkg.in/yaml.v3"
)

// decodeYAML reads the first YAML document keeping mapping key order. An
// empty document decodes to nil.
func decodeYAML(r io.Reader) (any, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	v, err := yamlValue(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	return v, nil
}

func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.MappingNode:
		m := make(tree.Map, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			val, err := yamlValue(valNode)
			if err != nil {
				return nil, err
			}
			m = append(m, tree.Entry{Key: keyNode.Value, Value: val})
		}
		return m, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		return arr, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return normalizeYAMLScalar(v), nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

// normalizeYAMLScalar widens yaml.v3's int to int64 so YAML and JSON
// snapshots of the same data compare equal.
func normalizeYAMLScalar(v any) any {
	if i, ok := v.(int); ok {
		return int64(i)
	}
	return v
}

func encodeYAML(w io.Writer, m tree.Map) error {
	root, err := yamlNode(m)
	if err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func yamlNode(v any) (*yaml.Node, error) {
	if m, ok := v.(tree.Map); ok {
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range m {
			val, err := yamlNode(e.Value)
			if err != nil {
				return nil, err
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key}
			n.Content = append(n.Content, key, val)
		}
		return n, nil
	}
	if v == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}
