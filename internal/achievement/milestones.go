// Package achievement decides which milestone awards a member has reached.
// It is pure; granting and persistence live with the caller.
package achievement

import "fmt"

type Milestone struct {
	Title       string
	Description string
	Category    string
	Target      int
	Secret      bool
}

var choreMilestones = []Milestone{
	{Title: "First Steps", Description: "Complete your first chore", Category: "milestone", Target: 1},
	{Title: "Getting Going", Description: "Complete 10 chores", Category: "milestone", Target: 10},
	{Title: "Helping Hand", Description: "Complete 25 chores", Category: "milestone", Target: 25},
	{Title: "Household Hero", Description: "Complete 50 chores", Category: "milestone", Target: 50},
	{Title: "Chore Champion", Description: "Complete 100 chores", Category: "milestone", Target: 100, Secret: true},
}

var streakMilestones = []Milestone{
	{Title: "On a Roll", Description: "Keep a 3-day streak", Category: "special", Target: 3},
	{Title: "One Whole Week", Description: "Keep a 7-day streak", Category: "special", Target: 7},
	{Title: "Unstoppable", Description: "Keep a 14-day streak", Category: "special", Target: 14},
	{Title: "Month of Momentum", Description: "Keep a 30-day streak", Category: "special", Target: 30, Secret: true},
}

// ForChoreCount returns every chore-count milestone reached at the given
// completed total, lowest target first.
func ForChoreCount(completed int) []Milestone {
	return reached(choreMilestones, completed)
}

// ForStreak returns every streak milestone reached at the given streak
// length, lowest target first.
func ForStreak(days int) []Milestone {
	return reached(streakMilestones, days)
}

func reached(all []Milestone, n int) []Milestone {
	var out []Milestone
	for _, m := range all {
		if n >= m.Target {
			out = append(out, m)
		}
	}
	return out
}

// Describe renders a short announcement line for an award.
func Describe(m Milestone) string {
	if m.Description == "" {
		return m.Title
	}
	return fmt.Sprintf("%s: %s", m.Title, m.Description)
}
