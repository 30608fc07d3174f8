package store

import (
	"testing"

	"github.com/parentpal/parentpal/internal/database"
	"github.com/parentpal/parentpal/internal/model"
)

func setupAchievementTestDB(t *testing.T) (*AchievementStore, *model.FamilyMember) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hh, err := NewHouseholdStore(db).Create("The Testers")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	m, err := NewFamilyMemberStore(db).Create(hh.ID, nil, model.RoleChild, model.MemberActive, MemberParams{Name: "Milo"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return NewAchievementStore(db), m
}

func TestAchievementCreateAndProgress(t *testing.T) {
	as, m := setupAchievementTestDB(t)

	a, err := as.Create(m.ID, "First Steps", "Complete your first chore", model.AchievementMilestone, 0, 1, false)
	if err != nil {
		t.Fatalf("create achievement: %v", err)
	}
	if a.Earned() {
		t.Error("fresh achievement should not be earned")
	}

	a, err = as.UpdateProgress(a.ID, 1)
	if err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if !a.Earned() {
		t.Errorf("achievement = %+v, want earned", a)
	}
}

func TestAchievementTitleIsNaturalKey(t *testing.T) {
	as, m := setupAchievementTestDB(t)

	if _, err := as.Create(m.ID, "Ten Chores", "Complete ten chores", model.AchievementMilestone, 10, 10, false); err != nil {
		t.Fatalf("create achievement: %v", err)
	}

	got, err := as.GetByTitle(m.ID, "Ten Chores")
	if err != nil {
		t.Fatalf("get by title: %v", err)
	}
	if got == nil {
		t.Fatal("expected achievement by title")
	}

	missing, err := as.GetByTitle(m.ID, "Hundred Chores")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown title")
	}
}

func TestAchievementListByMember(t *testing.T) {
	as, m := setupAchievementTestDB(t)

	for _, title := range []string{"A", "B", "C"} {
		if _, err := as.Create(m.ID, title, "", model.AchievementSpecial, 0, 1, title == "C"); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	list, err := as.ListByMember(m.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("list = %d, want 3", len(list))
	}

	secret := 0
	for _, a := range list {
		if a.Secret {
			secret++
		}
	}
	if secret != 1 {
		t.Errorf("secret = %d, want 1", secret)
	}
}
