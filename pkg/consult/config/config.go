package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/consult/pkg/consult/internalerr"
)

// Document is the on-disk form of a rulebase: variables with their
// possible values, rules over (variable, value) name pairs, and the
// name of the target variable. All references are by name here; the
// loader resolves them into handles on one shared knowledge base.
type Document struct {
	Target    string        `yaml:"target"`
	Variables []VariableDoc `yaml:"variables"`
	Rules     []RuleDoc     `yaml:"rules"`
}

// VariableDoc declares one variable.
type VariableDoc struct {
	Name     string     `yaml:"name"`
	Question string     `yaml:"question"`
	Type     string     `yaml:"type"`
	Values   []ValueDoc `yaml:"values"`
}

// ValueDoc declares one possible value. In the document it may be either
// a plain string or a mapping with a display label:
//
//	values:
//	  - yes
//	  - name: no
//	    label: "Definitely not"
type ValueDoc struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (v *ValueDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		v.Name = node.Value
		v.Label = ""
		return nil
	}

	type plain ValueDoc
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*v = ValueDoc(p)
	return nil
}

// RuleDoc declares one rule: every condition under "when" must hold for
// the "then" conclusion to be derived.
type RuleDoc struct {
	Name string         `yaml:"name"`
	When []ConditionDoc `yaml:"when"`
	Then ConditionDoc   `yaml:"then"`
}

// ConditionDoc references a variable and one of its values by name.
type ConditionDoc struct {
	Variable string `yaml:"variable"`
	Value    string `yaml:"value"`
}

// LoadDocument reads and decodes a rulebase document from a YAML file.
// JSON documents decode as well, YAML being a superset.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rulebase: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument decodes a rulebase document from raw bytes.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rulebase: %v: %w", err, internalerr.ErrInvalidConfig)
	}

	if doc.Target == "" {
		return nil, fmt.Errorf("rulebase has no target: %w", internalerr.ErrInvalidConfig)
	}
	if len(doc.Variables) == 0 {
		return nil, fmt.Errorf("rulebase declares no variables: %w", internalerr.ErrInvalidConfig)
	}
	return &doc, nil
}
