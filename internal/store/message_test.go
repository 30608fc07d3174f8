package store

import (
	"errors"
	"testing"

	"github.com/parentpal/parentpal/internal/database"
	"github.com/parentpal/parentpal/internal/model"
)

func setupMessageTestDB(t *testing.T) (*MessageStore, int64, *model.FamilyMember, *model.FamilyMember) {
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
	ms := NewFamilyMemberStore(db)
	parent, err := ms.Create(hh.ID, nil, model.RoleParent, model.MemberActive, MemberParams{
		Name: "Ana", Capabilities: model.AllCapabilities,
	})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := ms.Create(hh.ID, nil, model.RoleChild, model.MemberActive, MemberParams{Name: "Milo"})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return NewMessageStore(db), hh.ID, parent, child
}

func TestChatMessageEmptyContent(t *testing.T) {
	ms, hhID, parent, _ := setupMessageTestDB(t)

	_, err := ms.CreateChat(hhID, parent.ID, nil, "   \n\t ")
	if !errors.Is(err, model.ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestChatVisibility(t *testing.T) {
	ms, hhID, parent, child := setupMessageTestDB(t)

	third, err := NewFamilyMemberStore(ms.db).Create(hhID, nil, model.RoleChild, model.MemberActive, MemberParams{Name: "Ava"})
	if err != nil {
		t.Fatalf("create third member: %v", err)
	}

	if _, err := ms.CreateChat(hhID, parent.ID, nil, "Dinner at six"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if _, err := ms.CreateChat(hhID, parent.ID, &child.ID, "Clean your room first"); err != nil {
		t.Fatalf("direct to child: %v", err)
	}
	if _, err := ms.CreateChat(hhID, child.ID, &parent.ID, "Almost done"); err != nil {
		t.Fatalf("direct to parent: %v", err)
	}

	childView, err := ms.ListChat(hhID, child.ID, 0)
	if err != nil {
		t.Fatalf("list for child: %v", err)
	}
	if len(childView) != 3 {
		t.Errorf("child sees %d messages, want 3", len(childView))
	}

	// The bystander sees only the broadcast.
	thirdView, err := ms.ListChat(hhID, third.ID, 0)
	if err != nil {
		t.Fatalf("list for third: %v", err)
	}
	if len(thirdView) != 1 {
		t.Fatalf("third sees %d messages, want 1", len(thirdView))
	}
	if thirdView[0].ReceiverID != nil {
		t.Error("expected a broadcast message")
	}
}

func TestChatChronologicalOrder(t *testing.T) {
	ms, hhID, parent, _ := setupMessageTestDB(t)

	for _, body := range []string{"one", "two", "three"} {
		if _, err := ms.CreateChat(hhID, parent.ID, nil, body); err != nil {
			t.Fatalf("send %q: %v", body, err)
		}
	}

	got, err := ms.ListChat(hhID, parent.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("messages = %d, want 3", len(got))
	}
	if got[0].Content != "one" || got[2].Content != "three" {
		t.Errorf("order = %q, %q, %q", got[0].Content, got[1].Content, got[2].Content)
	}
}

func TestChoreMessages(t *testing.T) {
	ms, hhID, parent, child := setupMessageTestDB(t)

	cs := NewChoreStore(ms.db)
	chore, err := cs.Create(hhID, &parent.ID, ChoreParams{
		Title: "Rake leaves", Points: 15,
		Recurrence: model.RecurrenceNone, Priority: model.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	if _, err := ms.CreateChoreMessage(chore.ID, child.ID, "The rake is broken"); err != nil {
		t.Fatalf("create chore message: %v", err)
	}
	if _, err := ms.CreateChoreMessage(chore.ID, parent.ID, "Use the spare in the shed"); err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if _, err := ms.CreateChoreMessage(chore.ID, child.ID, ""); !errors.Is(err, model.ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}

	thread, err := ms.ListChoreMessages(chore.ID)
	if err != nil {
		t.Fatalf("list thread: %v", err)
	}
	if len(thread) != 2 {
		t.Fatalf("thread = %d, want 2", len(thread))
	}
	if thread[0].SenderID != child.ID {
		t.Errorf("first sender = %d, want %d", thread[0].SenderID, child.ID)
	}
	if thread[0].Content != "The rake is broken" {
		t.Errorf("content = %q, want the original message", thread[0].Content)
	}
}
