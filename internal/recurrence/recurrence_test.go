package recurrence

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	for _, s := range []string{"", "none", "daily", "weekly", "monthly"} {
		if _, err := Parse(s); err != nil {
			t.Errorf("Parse(%q): %v", s, err)
		}
	}
	if _, err := Parse("fortnightly"); err == nil {
		t.Error("expected error for unknown recurrence")
	}
}

func TestNextDueNone(t *testing.T) {
	if got := None.NextDue(nil, date(2026, 3, 1)); got != nil {
		t.Errorf("expected nil next due for one-off chore, got %v", got)
	}
}

func TestNextDueAnchoredOnDueDate(t *testing.T) {
	due := date(2026, 3, 2)
	// Completed on time: next due is one step after the old due date.
	got := Weekly.NextDue(&due, date(2026, 3, 2))
	want := date(2026, 3, 9)
	if got == nil || !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNextDueCatchesUpWhenLate(t *testing.T) {
	due := date(2026, 3, 2)
	// Completed two and a half weeks late: skip the missed occurrences.
	got := Weekly.NextDue(&due, date(2026, 3, 19))
	want := date(2026, 3, 23)
	if got == nil || !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNextDueWithoutDueDate(t *testing.T) {
	got := Daily.NextDue(nil, date(2026, 3, 1))
	want := date(2026, 3, 2)
	if got == nil || !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNextDueMonthly(t *testing.T) {
	due := date(2026, 1, 31)
	got := Monthly.NextDue(&due, date(2026, 1, 31))
	// AddDate normalizes Jan 31 + 1 month to Mar 3 (2026 is not a leap year).
	want := due.AddDate(0, 1, 0)
	if got == nil || !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
