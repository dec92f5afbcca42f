// Package catalog holds the static persona rule sets: the schema they are
// declared in, the YAML loader, and whole-catalog validation. A catalog is
// loaded once, validated as a unit, and read-only afterwards; multiple
// catalog versions can coexist because nothing here is process-global.
package catalog

import (
	"persona-engine/internal/signal"
)

// Comparator is a condition's comparison operator.
type Comparator string

// Supported comparators. Equality is reserved for boolean and categorical
// signals; numeric thresholds use the inequality exactly as declared, with
// no tolerance added at this layer.
const (
	CmpGTE Comparator = ">="
	CmpLTE Comparator = "<="
	CmpGT  Comparator = ">"
	CmpLT  Comparator = "<"
	CmpEQ  Comparator = "=="
)

// Combinator joins a criteria's conditions.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// Condition is a single signal test.
type Condition struct {
	Signal     string       `yaml:"signal"`
	Comparator Comparator   `yaml:"comparator"`
	Threshold  signal.Value `yaml:"threshold"`
}

// Criteria is a flat AND/OR list of conditions. The rule language is
// deliberately single-level; there are no nested expression trees.
type Criteria struct {
	Combinator Combinator  `yaml:"combinator"`
	Conditions []Condition `yaml:"conditions"`
}

// Persona is one named, prioritized rule set. Lower priority values are
// preferred. Description and FocusAreas are opaque metadata carried for
// downstream consumers.
type Persona struct {
	ID          string   `yaml:"id"`
	Priority    int      `yaml:"priority"`
	Description string   `yaml:"description"`
	FocusAreas  []string `yaml:"focus_areas"`
	Criteria    Criteria `yaml:"criteria"`
}

// Fallback is the reserved persona assigned when no criteria match. It
// carries no criteria of its own.
type Fallback struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	FocusAreas  []string `yaml:"focus_areas"`
}

// Catalog is a validated, ordered persona list plus the reserved fallback.
// Immutable after Load; concurrent readers need no locking.
type Catalog struct {
	personas []Persona
	fallback Fallback
}

// Personas returns the personas in declaration order.
func (c *Catalog) Personas() []Persona {
	return c.personas
}

// FallbackPersona returns the reserved no-match persona.
func (c *Catalog) FallbackPersona() Fallback {
	return c.fallback
}

// ByID looks a persona up by id.
func (c *Catalog) ByID(id string) (Persona, bool) {
	for _, p := range c.personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// Len reports the number of personas, excluding the fallback.
func (c *Catalog) Len() int {
	return len(c.personas)
}
