package recurrence

import (
	"fmt"
	"time"
)

// Rule is a chore repetition interval. Chores repeat on fixed calendar
// steps; there is no BYDAY-style rule surface.
type Rule string

const (
	None    Rule = "none"
	Daily   Rule = "daily"
	Weekly  Rule = "weekly"
	Monthly Rule = "monthly"
)

// Parse validates a recurrence string. The empty string means none.
func Parse(s string) (Rule, error) {
	switch Rule(s) {
	case "", None:
		return None, nil
	case Daily, Weekly, Monthly:
		return Rule(s), nil
	}
	return None, fmt.Errorf("unknown recurrence: %q", s)
}

// Repeats reports whether the rule describes a repeating chore.
func (r Rule) Repeats() bool {
	return r == Daily || r == Weekly || r == Monthly
}

// NextDue returns the next due date strictly after the completion time.
//
// The step is anchored on the previous due date when one exists, so a chore
// completed late does not drift; with no previous due date the step is taken
// from the completion time itself.
func (r Rule) NextDue(prevDue *time.Time, completedAt time.Time) *time.Time {
	if !r.Repeats() {
		return nil
	}

	anchor := completedAt
	if prevDue != nil {
		anchor = *prevDue
	}

	next := r.step(anchor)
	// Catch up past-due anchors: keep stepping until the result is in the
	// future relative to completion.
	for !next.After(completedAt) {
		next = r.step(next)
	}
	return &next
}

func (r Rule) step(t time.Time) time.Time {
	switch r {
	case Daily:
		return t.AddDate(0, 0, 1)
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return t.AddDate(0, 1, 0)
	}
	return t
}
