package match

import (
	"time"

	"persona-engine/internal/catalog"
	"persona-engine/internal/signal"
)

// Resolution reasons attached to assignments.
const (
	ReasonHighestPriority = "matched_highest_priority"
	ReasonPriorityTie     = "priority_tie_catalog_order"
	ReasonNoMatch         = "no_criteria_matched"
)

// PersonaMatch is the outcome of evaluating one persona, kept for every
// catalog entry regardless of verdict so the candidate set stays
// inspectable.
type PersonaMatch struct {
	PersonaID string   `json:"persona_id"`
	Priority  int      `json:"priority"`
	Matched   bool     `json:"matched"`
	Evidence  Evidence `json:"evidence"`
}

// AssignedPersona is the final, single assignment for a user plus the
// audit trail that produced it.
type AssignedPersona struct {
	UserID           string         `json:"user_id"`
	ReferenceDate    time.Time      `json:"reference_date"`
	PersonaID        string         `json:"persona_id"`
	PriorityRank     int            `json:"priority_rank"`
	AllMatches       []PersonaMatch `json:"all_matches"`
	ResolutionReason string         `json:"resolution_reason"`
}

// MatchAll evaluates every persona against the signal set, in declaration
// order. Prioritization is deliberately deferred to Resolve so the
// complete candidate list survives for audit.
func MatchAll(set *signal.Set, personas []catalog.Persona) []PersonaMatch {
	matches := make([]PersonaMatch, 0, len(personas))
	for _, p := range personas {
		matched, evidence := Evaluate(p.Criteria, set)
		matches = append(matches, PersonaMatch{
			PersonaID: p.ID,
			Priority:  p.Priority,
			Matched:   matched,
			Evidence:  evidence,
		})
	}
	return matches
}

// Resolve selects the assigned persona: the matched entry with the
// numerically lowest priority wins. The catalog forbids duplicate
// priorities, but a tie is still handled deterministically: the
// earlier-declared persona wins. With no match at all the reserved
// fallback persona is assigned.
func Resolve(userID string, refDate time.Time, matches []PersonaMatch, fallback catalog.Fallback) AssignedPersona {
	assigned := AssignedPersona{
		UserID:        userID,
		ReferenceDate: refDate,
		AllMatches:    matches,
	}

	bestIdx := -1
	tied := false
	for i, m := range matches {
		if !m.Matched {
			continue
		}
		switch {
		case bestIdx < 0 || m.Priority < matches[bestIdx].Priority:
			bestIdx = i
			tied = false
		case m.Priority == matches[bestIdx].Priority:
			// First-declared wins; record that the tie-break fired.
			tied = true
		}
	}

	if bestIdx < 0 {
		assigned.PersonaID = fallback.ID
		assigned.PriorityRank = 0
		assigned.ResolutionReason = ReasonNoMatch
		return assigned
	}

	assigned.PersonaID = matches[bestIdx].PersonaID
	assigned.PriorityRank = matches[bestIdx].Priority
	if tied {
		assigned.ResolutionReason = ReasonPriorityTie
	} else {
		assigned.ResolutionReason = ReasonHighestPriority
	}
	return assigned
}
