package store

import (
	"errors"
	"testing"

	"github.com/parentpal/parentpal/internal/database"
	"github.com/parentpal/parentpal/internal/model"
)

func setupPointsTestDB(t *testing.T) (*PointsStore, int64, *model.FamilyMember) {
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
	return NewPointsStore(db), hh.ID, m
}

func TestPointsAddAndBalance(t *testing.T) {
	ps, _, m := setupPointsTestDB(t)

	entry, err := ps.Add(m.ID, nil, 25, "bonus")
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	if entry.Delta != 25 || entry.Reason != "bonus" {
		t.Errorf("entry = %+v", entry)
	}
	if _, err := ps.Add(m.ID, nil, -10, "adjustment"); err != nil {
		t.Fatalf("deduct points: %v", err)
	}

	balance, err := ps.Balance(m.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 15 {
		t.Errorf("balance = %d, want 15", balance)
	}
}

func TestPointsBalanceNeverNegative(t *testing.T) {
	ps, _, m := setupPointsTestDB(t)

	if _, err := ps.Add(m.ID, nil, 10, "grant"); err != nil {
		t.Fatalf("add points: %v", err)
	}
	_, err := ps.Add(m.ID, nil, -20, "overdraw")
	if !errors.Is(err, model.ErrInsufficientPoints) {
		t.Fatalf("err = %v, want ErrInsufficientPoints", err)
	}

	balance, _ := ps.Balance(m.ID)
	if balance != 10 {
		t.Errorf("balance = %d after rejected overdraw, want 10", balance)
	}
}

func TestPointsHistoryNewestFirst(t *testing.T) {
	ps, _, m := setupPointsTestDB(t)

	for _, delta := range []int{5, 10, 15} {
		if _, err := ps.Add(m.ID, nil, delta, "grant"); err != nil {
			t.Fatalf("add points: %v", err)
		}
	}

	entries, err := ps.History(m.ID, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Delta != 15 {
		t.Errorf("first delta = %d, want newest (15)", entries[0].Delta)
	}
}

func TestPointsBalancesPerHousehold(t *testing.T) {
	ps, hhID, m := setupPointsTestDB(t)

	second, err := NewFamilyMemberStore(ps.db).Create(hhID, nil, model.RoleChild, model.MemberActive, MemberParams{Name: "Ava"})
	if err != nil {
		t.Fatalf("create second member: %v", err)
	}

	if _, err := ps.Add(m.ID, nil, 30, "grant"); err != nil {
		t.Fatalf("add points: %v", err)
	}
	if _, err := ps.Add(m.ID, nil, -10, "spend"); err != nil {
		t.Fatalf("spend points: %v", err)
	}

	balances, err := ps.Balances(hhID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("balances = %d, want 2", len(balances))
	}
	for _, b := range balances {
		switch b.MemberID {
		case m.ID:
			if b.TotalEarned != 30 || b.TotalSpent != 10 || b.Balance != 20 {
				t.Errorf("milo = %+v", b)
			}
		case second.ID:
			if b.Balance != 0 {
				t.Errorf("ava balance = %d, want 0", b.Balance)
			}
		}
	}
}
