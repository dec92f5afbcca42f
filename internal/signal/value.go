// Package signal defines the behavioral metrics vocabulary: typed signal
// values, per-detector records, the canonical fallback table, and the
// aggregation of detector outputs into one per-user signal set.
package signal

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Kind discriminates the scalar types a signal value can carry.
type Kind int

const (
	KindNumber Kind = iota
	KindBool
	KindCategory
)

// Value is a single signal scalar. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Value struct {
	Kind     Kind
	Number   decimal.Decimal
	Bool     bool
	Category string
}

// Number builds a numeric value.
func Number(d decimal.Decimal) Value {
	return Value{Kind: KindNumber, Number: d}
}

// NumberFromInt builds a numeric value from an integer.
func NumberFromInt(n int64) Value {
	return Number(decimal.NewFromInt(n))
}

// Boolean builds a boolean value.
func Boolean(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// Categorical builds a categorical value.
func Categorical(s string) Value {
	return Value{Kind: KindCategory, Category: s}
}

// Equal reports exact equality of kind and payload. Numeric comparison
// uses decimal equality, so 50 and 50.0 compare equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Number.Equal(o.Number)
	case KindBool:
		return v.Bool == o.Bool
	default:
		return v.Category == o.Category
	}
}

// String renders the payload for logs and evidence summaries.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return v.Number.String()
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return v.Category
	}
}

// UnmarshalYAML reads a bare YAML scalar, inferring the kind from the
// scalar's resolved tag: booleans and numbers keep their type, anything
// else becomes a category label.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("signal value must be a scalar, got %s", node.Tag)
	}
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Boolean(b)
	case "!!int", "!!float":
		d, err := decimal.NewFromString(node.Value)
		if err != nil {
			return fmt.Errorf("parse numeric signal value %q: %w", node.Value, err)
		}
		*v = Number(d)
	default:
		*v = Categorical(node.Value)
	}
	return nil
}

// MarshalJSON emits the bare scalar, keeping evidence payloads readable.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return []byte(v.Number.String()), nil
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return json.Marshal(v.Category)
	}
}
