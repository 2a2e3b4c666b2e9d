package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// The YAML shape mirrors the platform's services.yaml format exactly:
// service-name keys at the top level, each with name/description/
// target/fields, a nested entity target, and number selectors spelled
// out as min/max/step/unit_of_measurement. The platform parses this by
// fixed key name, so both key names and nesting depth must round-trip
// unchanged. Mapping order carries UI rendering order, which is why
// everything below works on yaml.Node pairs instead of Go maps.

// Load parses a services.yaml document into a table.
func Load(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse service schema: %w", err)
	}
	return &t, nil
}

// Dump serializes the table back to the services.yaml shape.
func Dump(t *Table) ([]byte, error) {
	return yaml.Marshal(t)
}

type yamlNumber struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
	Unit string  `yaml:"unit_of_measurement"`
}

type yamlSelector struct {
	Number *yamlNumber `yaml:"number"`
}

type yamlField struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Example     string        `yaml:"example"`
	Required    bool          `yaml:"required"`
	Selector    *yamlSelector `yaml:"selector"`
}

type yamlTarget struct {
	Entity struct {
		Integration string `yaml:"integration"`
		Domain      string `yaml:"domain"`
	} `yaml:"entity"`
}

type yamlDefinition struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Target      yamlTarget `yaml:"target"`
}

// UnmarshalYAML decodes a services.yaml mapping, retaining the order
// in which services and fields appear.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("service schema must be a mapping, got %s", nodeKind(node))
	}

	var defs []*Definition
	for i := 0; i < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var yd yamlDefinition
		if err := valNode.Decode(&yd); err != nil {
			return fmt.Errorf("service %q: %w", keyNode.Value, err)
		}
		d := &Definition{
			Service:     keyNode.Value,
			Name:        yd.Name,
			Description: yd.Description,
			Target: Target{
				Integration: yd.Target.Entity.Integration,
				Domain:      yd.Target.Entity.Domain,
			},
		}

		fieldsNode := childNode(valNode, "fields")
		if fieldsNode != nil {
			if fieldsNode.Kind != yaml.MappingNode {
				return fmt.Errorf("service %q: fields must be a mapping, got %s", keyNode.Value, nodeKind(fieldsNode))
			}
			for j := 0; j < len(fieldsNode.Content); j += 2 {
				fieldKey, fieldVal := fieldsNode.Content[j], fieldsNode.Content[j+1]
				var yf yamlField
				if err := fieldVal.Decode(&yf); err != nil {
					return fmt.Errorf("service %q: field %q: %w", keyNode.Value, fieldKey.Value, err)
				}
				f := Field{
					Key:         fieldKey.Value,
					Name:        yf.Name,
					Description: yf.Description,
					Example:     yf.Example,
					Required:    yf.Required,
				}
				if yf.Selector != nil && yf.Selector.Number != nil {
					n := yf.Selector.Number
					f.Selector = &NumberSelector{
						Min:  n.Min,
						Max:  n.Max,
						Step: n.Step,
						Unit: n.Unit,
					}
				}
				d.Fields = append(d.Fields, f)
			}
		}
		defs = append(defs, d)
	}

	built, err := buildTable(defs...)
	if err != nil {
		return err
	}
	*t = *built
	return nil
}

// MarshalYAML encodes the table as a services.yaml mapping in
// declaration order.
func (t *Table) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, d := range t.defs {
		entry := &yaml.Node{Kind: yaml.MappingNode}
		if d.Name != "" {
			appendScalar(entry, "name", d.Name)
		}
		if d.Description != "" {
			appendScalar(entry, "description", d.Description)
		}

		target := &yaml.Node{Kind: yaml.MappingNode}
		entity := &yaml.Node{Kind: yaml.MappingNode}
		appendScalar(entity, "integration", d.Target.Integration)
		appendScalar(entity, "domain", d.Target.Domain)
		appendPair(target, "entity", entity)
		appendPair(entry, "target", target)

		if len(d.Fields) > 0 {
			fields := &yaml.Node{Kind: yaml.MappingNode}
			for _, f := range d.Fields {
				fieldNode := &yaml.Node{Kind: yaml.MappingNode}
				if f.Name != "" {
					appendScalar(fieldNode, "name", f.Name)
				}
				if f.Description != "" {
					appendScalar(fieldNode, "description", f.Description)
				}
				if f.Example != "" {
					appendScalar(fieldNode, "example", f.Example)
				}
				if f.Required {
					appendScalar(fieldNode, "required", f.Required)
				}
				if s := f.Selector; s != nil {
					number := &yaml.Node{Kind: yaml.MappingNode}
					appendScalar(number, "min", s.Min)
					appendScalar(number, "max", s.Max)
					appendScalar(number, "step", s.Step)
					appendScalar(number, "unit_of_measurement", s.Unit)
					selector := &yaml.Node{Kind: yaml.MappingNode}
					appendPair(selector, "number", number)
					appendPair(fieldNode, "selector", selector)
				}
				appendPair(fields, f.Key, fieldNode)
			}
			appendPair(entry, "fields", fields)
		}

		appendPair(root, d.Service, entry)
	}
	return root, nil
}

// childNode returns the value node for the given key of a mapping
// node, or nil when absent.
func childNode(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func appendPair(mapping *yaml.Node, key string, value *yaml.Node) {
	keyNode := &yaml.Node{}
	if err := keyNode.Encode(key); err != nil {
		panic(err)
	}
	mapping.Content = append(mapping.Content, keyNode, value)
}

func appendScalar(mapping *yaml.Node, key string, value any) {
	valNode := &yaml.Node{}
	if err := valNode.Encode(value); err != nil {
		panic(err)
	}
	appendPair(mapping, key, valNode)
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
