package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"persona-engine/internal/signal"
)

// ValidationError rejects a catalog at load time. The catalog is valid as
// a whole or not loaded at all; Problems lists every defect found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog validation failed: %s", strings.Join(e.Problems, "; "))
}

type catalogFile struct {
	Personas []Persona `yaml:"personas"`
	Fallback Fallback  `yaml:"fallback"`
}

// Load reads and validates a persona catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates catalog YAML.
func Parse(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	if problems := validate(file); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	return &Catalog{personas: file.Personas, fallback: file.Fallback}, nil
}

func validate(file catalogFile) []string {
	var problems []string

	if len(file.Personas) == 0 {
		problems = append(problems, "no personas declared")
	}
	if file.Fallback.ID == "" {
		problems = append(problems, "fallback persona id is required")
	}

	seenIDs := make(map[string]struct{}, len(file.Personas))
	seenPriorities := make(map[int]string, len(file.Personas))

	for i, p := range file.Personas {
		ref := fmt.Sprintf("persona[%d]", i)
		if p.ID != "" {
			ref = p.ID
		}

		if p.ID == "" {
			problems = append(problems, fmt.Sprintf("%s: id is required", ref))
		} else if _, dup := seenIDs[p.ID]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicate id", ref))
		}
		seenIDs[p.ID] = struct{}{}

		if p.ID != "" && p.ID == file.Fallback.ID {
			problems = append(problems, fmt.Sprintf("%s: id collides with fallback persona", ref))
		}

		if other, dup := seenPriorities[p.Priority]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicate priority %d (also %s)", ref, p.Priority, other))
		} else {
			seenPriorities[p.Priority] = ref
		}

		problems = append(problems, validateCriteria(ref, p.Criteria)...)
	}

	return problems
}

func validateCriteria(ref string, c Criteria) []string {
	var problems []string

	if c.Combinator != CombinatorAnd && c.Combinator != CombinatorOr {
		problems = append(problems, fmt.Sprintf("%s: combinator must be AND or OR, got %q", ref, c.Combinator))
	}
	if len(c.Conditions) == 0 {
		problems = append(problems, fmt.Sprintf("%s: criteria has no conditions", ref))
	}

	for j, cond := range c.Conditions {
		cref := fmt.Sprintf("%s.conditions[%d]", ref, j)

		if cond.Signal == "" {
			problems = append(problems, fmt.Sprintf("%s: signal name is required", cref))
		}

		switch cond.Comparator {
		case CmpGTE, CmpLTE, CmpGT, CmpLT:
			if cond.Threshold.Kind != signal.KindNumber {
				problems = append(problems, fmt.Sprintf("%s: comparator %s requires a numeric threshold", cref, cond.Comparator))
			}
		case CmpEQ:
			if cond.Threshold.Kind == signal.KindNumber {
				problems = append(problems, fmt.Sprintf("%s: == is reserved for boolean/categorical signals", cref))
			}
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown comparator %q", cref, cond.Comparator))
		}
	}

	return problems
}
