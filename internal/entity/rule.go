package entity

import (
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/homenet-bridge/internal/schema"
)

// Rule is the discriminated state_*/command_* field value from spec §3:
// "Each such field is either a Schema (structured) or a CEL expression
// (string)." Exactly one of Schema or CEL is set.
type Rule struct {
	Schema *schema.Schema
	CEL    string
}

// IsZero reports whether the rule carries neither a schema nor an expression.
func (r Rule) IsZero() bool {
	return r.Schema == nil && r.CEL == ""
}

// IsCEL reports whether this rule is a CEL expression rather than a schema.
func (r Rule) IsCEL() bool {
	return r.CEL != ""
}

// FromSchema wraps a schema.Schema as a Rule.
func FromSchema(s schema.Schema) Rule {
	return Rule{Schema: &s}
}

// FromCEL wraps an expression string as a Rule.
func FromCEL(expr string) Rule {
	return Rule{CEL: expr}
}

// celTags are the custom YAML scalar tags a state_*/command_* field may
// carry to select the CEL branch of the Schema|CelExpression union
// (spec §9 Design Notes). Anything else decodes as a structured Schema.
var celTags = map[string]bool{
	"!lambda":        true,
	"!homenet_logic": true,
}

// UnmarshalYAML implements the discriminated decode of a config field that
// is either a literal CEL expression (tagged "!lambda" or "!homenet_logic")
// or a structured Schema mapping.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && celTags[node.Tag] {
		*r = FromCEL(node.Value)
		return nil
	}
	var s schema.Schema
	if err := node.Decode(&s); err != nil {
		return err
	}
	*r = FromSchema(s)
	return nil
}
