package achievement

import "testing"

func TestForChoreCount(t *testing.T) {
	if got := ForChoreCount(0); len(got) != 0 {
		t.Errorf("0 chores = %d milestones, want 0", len(got))
	}

	got := ForChoreCount(1)
	if len(got) != 1 || got[0].Title != "First Steps" {
		t.Fatalf("1 chore = %+v", got)
	}

	got = ForChoreCount(25)
	if len(got) != 3 {
		t.Fatalf("25 chores = %d milestones, want 3", len(got))
	}
	if got[2].Title != "Helping Hand" {
		t.Errorf("highest = %q", got[2].Title)
	}

	got = ForChoreCount(500)
	if len(got) != len(choreMilestones) {
		t.Errorf("500 chores = %d milestones, want all %d", len(got), len(choreMilestones))
	}
}

func TestForStreak(t *testing.T) {
	if got := ForStreak(2); len(got) != 0 {
		t.Errorf("2 days = %d milestones, want 0", len(got))
	}

	got := ForStreak(7)
	if len(got) != 2 {
		t.Fatalf("7 days = %d milestones, want 2", len(got))
	}
	if got[1].Title != "One Whole Week" {
		t.Errorf("highest = %q", got[1].Title)
	}
}

func TestMilestonesOrderedByTarget(t *testing.T) {
	for _, set := range [][]Milestone{choreMilestones, streakMilestones} {
		for i := 1; i < len(set); i++ {
			if set[i].Target <= set[i-1].Target {
				t.Errorf("milestone %q out of order", set[i].Title)
			}
		}
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(Milestone{Title: "First Steps", Description: "Complete your first chore"})
	if got != "First Steps: Complete your first chore" {
		t.Errorf("Describe = %q", got)
	}
	if got := Describe(Milestone{Title: "Tidy Desk"}); got != "Tidy Desk" {
		t.Errorf("Describe without description = %q", got)
	}
}
