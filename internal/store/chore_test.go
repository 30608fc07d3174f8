package store

import (
	"testing"
	"time"

	"github.com/parentpal/parentpal/internal/database"
	"github.com/parentpal/parentpal/internal/model"
)

func setupChoreTestDB(t *testing.T) (*ChoreStore, *FamilyMemberStore, *PointsStore, int64) {
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
	return NewChoreStore(db), NewFamilyMemberStore(db), NewPointsStore(db), hh.ID
}

func TestChoreCRUD(t *testing.T) {
	cs, ms, _, hhID := setupChoreTestDB(t)

	m, err := ms.Create(hhID, nil, model.RoleChild, model.MemberActive, MemberParams{Name: "Milo"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	due := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	chore, err := cs.Create(hhID, nil, ChoreParams{
		Title:      "Take out trash",
		Points:     10,
		AssignedTo: &m.ID,
		DueDate:    &due,
		Recurrence: model.RecurrenceWeekly,
		Priority:   model.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if chore.Status != "pending" {
		t.Errorf("status = %q, want pending", chore.Status)
	}
	if chore.AssignedTo == nil || *chore.AssignedTo != m.ID {
		t.Errorf("assigned_to = %v, want %d", chore.AssignedTo, m.ID)
	}
	if chore.DueDate == nil || !chore.DueDate.Equal(due) {
		t.Errorf("due_date = %v, want %v", chore.DueDate, due)
	}

	got, err := cs.GetByID(hhID, chore.ID)
	if err != nil {
		t.Fatalf("get chore: %v", err)
	}
	if got == nil || got.Title != "Take out trash" {
		t.Fatalf("got %+v", got)
	}

	updated, err := cs.Update(hhID, chore.ID, ChoreParams{
		Title:      "Take out trash and recycling",
		Points:     15,
		Recurrence: model.RecurrenceNone,
		Priority:   model.PriorityLow,
	})
	if err != nil {
		t.Fatalf("update chore: %v", err)
	}
	if updated.Points != 15 || updated.AssignedTo != nil {
		t.Errorf("update = %+v", updated)
	}

	if err := cs.Delete(hhID, chore.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}
	gone, _ := cs.GetByID(hhID, chore.ID)
	if gone != nil {
		t.Error("expected nil after delete")
	}
}

func TestChoreListFilters(t *testing.T) {
	cs, ms, _, hhID := setupChoreTestDB(t)

	m, _ := ms.Create(hhID, nil, model.RoleChild, model.MemberActive, MemberParams{Name: "Milo"})

	mk := func(title string, assigned *int64) *model.Chore {
		t.Helper()
		c, err := cs.Create(hhID, nil, ChoreParams{
			Title: title, Points: 5, AssignedTo: assigned,
			Recurrence: model.RecurrenceNone, Priority: model.PriorityMedium,
		})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		return c
	}
	mk("Dishes", &m.ID)
	done := mk("Vacuum", &m.ID)
	mk("Dust", nil)

	if _, err := cs.UpdateStatus(hhID, done.ID, "completed"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	all, err := cs.List(hhID, "", 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d, want 3", len(all))
	}

	pending, err := cs.List(hhID, "pending", 0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}

	mine, err := cs.List(hhID, "", m.ID)
	if err != nil {
		t.Fatalf("list assigned: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("assigned = %d, want 2", len(mine))
	}
}

func TestChoreRecordCompletion(t *testing.T) {
	cs, ms, ps, hhID := setupChoreTestDB(t)

	m, _ := ms.Create(hhID, nil, model.RoleChild, model.MemberActive, MemberParams{Name: "Milo"})
	chore, err := cs.Create(hhID, nil, ChoreParams{
		Title: "Feed cat", Points: 10, AssignedTo: &m.ID,
		Recurrence: model.RecurrenceNone, Priority: model.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	got, err := cs.RecordCompletion(Completion{
		ChoreID:     chore.ID,
		HouseholdID: hhID,
		MemberID:    m.ID,
		Points:      chore.Points,
		Reason:      "chore: Feed cat",
	})
	if err != nil {
		t.Fatalf("record completion: %v", err)
	}
	if got.Status != "completed" {
		t.Errorf("status = %q, want completed", got.Status)
	}

	balance, err := ps.Balance(m.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 10 {
		t.Errorf("balance = %d, want 10", balance)
	}

	member, _ := ms.GetByID(hhID, m.ID)
	if member.StreakCount != 1 {
		t.Errorf("streak = %d, want 1", member.StreakCount)
	}
}

func TestChoreRecordCompletionVerified(t *testing.T) {
	cs, ms, _, hhID := setupChoreTestDB(t)

	parent, _ := ms.Create(hhID, nil, model.RoleParent, model.MemberActive, MemberParams{
		Name: "Ana", Capabilities: model.AllCapabilities,
	})
	child, _ := ms.Create(hhID, nil, model.RoleChild, model.MemberActive, MemberParams{Name: "Milo"})

	chore, _ := cs.Create(hhID, &parent.ID, ChoreParams{
		Title: "Clean room", Points: 20, AssignedTo: &child.ID,
		Recurrence: model.RecurrenceNone, Priority: model.PriorityMedium,
		VerificationRequired: true,
	})

	got, err := cs.RecordCompletion(Completion{
		ChoreID:     chore.ID,
		HouseholdID: hhID,
		MemberID:    child.ID,
		Points:      chore.Points,
		VerifiedBy:  &parent.ID,
		Reason:      "chore: Clean room",
	})
	if err != nil {
		t.Fatalf("record completion: %v", err)
	}
	if got.VerifiedBy == nil || *got.VerifiedBy != parent.ID {
		t.Errorf("verified_by = %v, want %d", got.VerifiedBy, parent.ID)
	}
	if got.VerifiedAt == nil {
		t.Error("expected verified_at to be set")
	}
}

func TestChoreRecordCompletionRespawnsRecurring(t *testing.T) {
	cs, ms, ps, hhID := setupChoreTestDB(t)

	m, _ := ms.Create(hhID, nil, model.RoleChild, model.MemberActive, MemberParams{Name: "Milo"})
	due := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	chore, _ := cs.Create(hhID, nil, ChoreParams{
		Title: "Water plants", Points: 5, AssignedTo: &m.ID, DueDate: &due,
		Recurrence: model.RecurrenceWeekly, Priority: model.PriorityLow,
	})

	next := due.AddDate(0, 0, 7)
	got, err := cs.RecordCompletion(Completion{
		ChoreID:     chore.ID,
		HouseholdID: hhID,
		MemberID:    m.ID,
		Points:      chore.Points,
		NextDue:     &next,
		Reason:      "chore: Water plants",
	})
	if err != nil {
		t.Fatalf("record completion: %v", err)
	}
	if got.Status != "pending" {
		t.Errorf("status = %q, want pending after respawn", got.Status)
	}
	if got.DueDate == nil || !got.DueDate.Equal(next) {
		t.Errorf("due_date = %v, want %v", got.DueDate, next)
	}

	// The cycle still granted its points.
	balance, _ := ps.Balance(m.ID)
	if balance != 5 {
		t.Errorf("balance = %d, want 5", balance)
	}
}

func TestChoreImages(t *testing.T) {
	cs, ms, _, hhID := setupChoreTestDB(t)

	m, _ := ms.Create(hhID, nil, model.RoleChild, model.MemberActive, MemberParams{Name: "Milo"})
	chore, _ := cs.Create(hhID, nil, ChoreParams{
		Title: "Mow lawn", Points: 30,
		Recurrence: model.RecurrenceNone, Priority: model.PriorityMedium,
	})

	img, err := cs.AddImage(chore.ID, "https://cdn.example.com/a.jpg", "chores/1/a.jpg", model.ImageBefore, &m.ID)
	if err != nil {
		t.Fatalf("add image: %v", err)
	}
	if img.Type != model.ImageBefore {
		t.Errorf("type = %q", img.Type)
	}
	if _, err := cs.AddImage(chore.ID, "https://cdn.example.com/b.jpg", "chores/1/b.jpg", model.ImageAfter, &m.ID); err != nil {
		t.Fatalf("add second image: %v", err)
	}

	images, err := cs.ListImages(chore.ID)
	if err != nil {
		t.Fatalf("list images: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("images = %d, want 2", len(images))
	}

	keys, err := cs.ImageKeys(chore.ID)
	if err != nil {
		t.Fatalf("image keys: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("keys = %v, want 2 entries", keys)
	}

	// Deleting the chore cascades the image rows away.
	if err := cs.Delete(hhID, chore.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}
	images, err = cs.ListImages(chore.ID)
	if err != nil {
		t.Fatalf("list images after delete: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("images = %d after cascade, want 0", len(images))
	}
}
