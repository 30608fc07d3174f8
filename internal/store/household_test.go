package store

import (
	"testing"

	"github.com/parentpal/parentpal/internal/database"
	"github.com/parentpal/parentpal/internal/model"
)

func setupHouseholdTestDB(t *testing.T) (*HouseholdStore, *UserStore, *FamilyMemberStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHouseholdStore(db), NewUserStore(db), NewFamilyMemberStore(db)
}

func TestHouseholdCRUD(t *testing.T) {
	hs, _, _ := setupHouseholdTestDB(t)

	hh, err := hs.Create("The Parkers")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if hh.Name != "The Parkers" {
		t.Errorf("name = %q", hh.Name)
	}

	updated, err := hs.Update(hh.ID, "Parker Family")
	if err != nil {
		t.Fatalf("update household: %v", err)
	}
	if updated.Name != "Parker Family" {
		t.Errorf("name = %q after update", updated.Name)
	}

	missing, err := hs.GetByID(9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown household")
	}
}

func TestHouseholdListForUser(t *testing.T) {
	hs, us, ms := setupHouseholdTestDB(t)

	user, err := us.Create("ana@example.com", "Ana")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	home, _ := hs.Create("Home")
	if _, err := hs.Create("Someone Else's"); err != nil {
		t.Fatalf("create other household: %v", err)
	}
	if _, err := ms.Create(home.ID, &user.ID, model.RoleParent, model.MemberActive, MemberParams{
		Name: "Ana", Capabilities: model.AllCapabilities,
	}); err != nil {
		t.Fatalf("create member: %v", err)
	}

	list, err := hs.ListForUser(user.ID)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(list) != 1 || list[0].ID != home.ID {
		t.Fatalf("list = %+v, want only %d", list, home.ID)
	}
}

func TestUserEmailLookup(t *testing.T) {
	_, us, _ := setupHouseholdTestDB(t)

	if _, err := us.Create("milo@example.com", "Milo"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := us.GetByEmail("milo@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.Name != "Milo" {
		t.Fatalf("got %+v", got)
	}

	missing, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown email")
	}
}
