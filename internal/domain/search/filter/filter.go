// Package filter compiles tag-slot filter maps into structural predicates.
package filter

import "strings"

// OrSeparator delimits alternatives inside a single slot value ("red|OR|blue").
const OrSeparator = "|OR|"

// SlotCount is the number of fixed tag slots on a chunk.
const SlotCount = 7

// Slots lists the fixed tag-slot names in canonical order.
var Slots = [SlotCount]string{"tag1", "tag2", "tag3", "tag4", "tag5", "tag6", "tag7"}

// Condition constrains one tag slot to a set of case-insensitive alternatives.
// A single-alternative condition is a plain equality test; multiple alternatives
// form an OR-group.
type Condition struct {
	slot         string
	alternatives []string
}

// Slot returns the tag-slot name.
func (c Condition) Slot() string { return c.slot }

// Alternatives returns the accepted values, lower-cased.
func (c Condition) Alternatives() []string { return c.alternatives }

// Expression is the compiled predicate: conditions joined with logical AND,
// ordered by canonical slot order.
type Expression struct {
	conditions []Condition
}

// Conditions returns the per-slot conditions.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression constrains nothing.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Compile translates a tag-slot -> value-expression map into an Expression.
// Unrecognized slot names compile to nothing (unknown tags mean "don't filter",
// not a failure). Values containing OrSeparator split into an OR-group. Matching
// is case-insensitive, so alternatives are folded to lower case here and the
// index stores tags case-insensitively.
func Compile(tags map[string]string) Expression {
	var conditions []Condition

	// Iterate canonical slot order, not map order, so identical inputs always
	// compile to the same expression.
	for _, slot := range Slots {
		raw, ok := tags[slot]
		if !ok {
			continue
		}
		alts := splitAlternatives(raw)
		if len(alts) == 0 {
			continue
		}
		conditions = append(conditions, Condition{slot: slot, alternatives: alts})
	}

	return Expression{conditions: conditions}
}

func splitAlternatives(raw string) []string {
	parts := strings.Split(raw, OrSeparator)
	alts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		alts = append(alts, p)
	}
	return alts
}

// IsSlot reports whether name is one of the seven fixed tag slots.
func IsSlot(name string) bool {
	for _, s := range Slots {
		if s == name {
			return true
		}
	}
	return false
}
