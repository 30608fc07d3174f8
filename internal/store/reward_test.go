package store

import (
	"errors"
	"testing"

	"github.com/parentpal/parentpal/internal/database"
	"github.com/parentpal/parentpal/internal/model"
)

func setupRewardTestDB(t *testing.T) (*RewardStore, *PointsStore, int64, *model.FamilyMember, *model.FamilyMember) {
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
	return NewRewardStore(db), NewPointsStore(db), hh.ID, parent, child
}

func TestRewardCRUD(t *testing.T) {
	rs, _, hhID, _, _ := setupRewardTestDB(t)

	reward, err := rs.Create(hhID, RewardParams{
		Title:      "30 min screen time",
		PointsCost: 50,
		Category:   model.CategoryScreenTime,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if reward.PointsCost != 50 || !reward.Active {
		t.Errorf("reward = %+v", reward)
	}

	updated, err := rs.Update(hhID, reward.ID, RewardParams{
		Title:      "45 min screen time",
		PointsCost: 70,
		Category:   model.CategoryScreenTime,
		Active:     false,
	})
	if err != nil {
		t.Fatalf("update reward: %v", err)
	}
	if updated.Active {
		t.Error("expected inactive after update")
	}

	active, err := rs.List(hhID, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active = %d, want 0", len(active))
	}
	all, err := rs.List(hhID, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("all = %d, want 1", len(all))
	}
}

func TestRequestRedemptionInsufficientPoints(t *testing.T) {
	rs, ps, hhID, _, child := setupRewardTestDB(t)

	reward, _ := rs.Create(hhID, RewardParams{Title: "Movie night", PointsCost: 100, Category: model.CategoryPrivilege, Active: true})
	if _, err := ps.Add(child.ID, nil, 40, "test grant"); err != nil {
		t.Fatalf("add points: %v", err)
	}

	_, err := rs.RequestRedemption(reward, child.ID)
	if !errors.Is(err, model.ErrInsufficientPoints) {
		t.Fatalf("err = %v, want ErrInsufficientPoints", err)
	}
}

func TestRedemptionApproveDeductsPoints(t *testing.T) {
	rs, ps, hhID, parent, child := setupRewardTestDB(t)

	reward, _ := rs.Create(hhID, RewardParams{Title: "Ice cream", PointsCost: 30, Category: model.CategoryCustom, Active: true})
	if _, err := ps.Add(child.ID, nil, 50, "test grant"); err != nil {
		t.Fatalf("add points: %v", err)
	}

	red, err := rs.RequestRedemption(reward, child.ID)
	if err != nil {
		t.Fatalf("request redemption: %v", err)
	}
	if red.Status != model.RedemptionPending {
		t.Errorf("status = %q, want pending", red.Status)
	}

	// The request itself moves no points.
	balance, _ := ps.Balance(child.ID)
	if balance != 50 {
		t.Errorf("balance = %d before approval, want 50", balance)
	}

	approved, err := rs.ApproveRedemption(red.ID, parent.ID)
	if err != nil {
		t.Fatalf("approve redemption: %v", err)
	}
	if approved.Status != model.RedemptionApproved {
		t.Errorf("status = %q, want approved", approved.Status)
	}
	if approved.DecidedBy == nil || *approved.DecidedBy != parent.ID {
		t.Errorf("decided_by = %v, want %d", approved.DecidedBy, parent.ID)
	}
	if approved.DecidedAt == nil {
		t.Error("expected decided_at")
	}

	balance, _ = ps.Balance(child.ID)
	if balance != 20 {
		t.Errorf("balance = %d after approval, want 20", balance)
	}

	// Already-decided redemptions cannot be approved again.
	again, err := rs.ApproveRedemption(red.ID, parent.ID)
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if again != nil {
		t.Error("expected nil approving a decided redemption")
	}
	balance, _ = ps.Balance(child.ID)
	if balance != 20 {
		t.Errorf("balance = %d after double approve, want 20", balance)
	}
}

func TestRedemptionReject(t *testing.T) {
	rs, ps, hhID, parent, child := setupRewardTestDB(t)

	reward, _ := rs.Create(hhID, RewardParams{Title: "Stay up late", PointsCost: 25, Category: model.CategoryPrivilege, Active: true})
	if _, err := ps.Add(child.ID, nil, 25, "test grant"); err != nil {
		t.Fatalf("add points: %v", err)
	}
	red, err := rs.RequestRedemption(reward, child.ID)
	if err != nil {
		t.Fatalf("request redemption: %v", err)
	}

	rejected, err := rs.RejectRedemption(red.ID, parent.ID)
	if err != nil {
		t.Fatalf("reject redemption: %v", err)
	}
	if rejected.Status != model.RedemptionRejected {
		t.Errorf("status = %q, want rejected", rejected.Status)
	}

	balance, _ := ps.Balance(child.ID)
	if balance != 25 {
		t.Errorf("balance = %d after rejection, want 25", balance)
	}
}

func TestRequestRedemptionCountsPendingHolds(t *testing.T) {
	rs, ps, hhID, _, child := setupRewardTestDB(t)

	reward, _ := rs.Create(hhID, RewardParams{Title: "Pick dinner", PointsCost: 30, Category: model.CategoryCustom, Active: true})
	if _, err := ps.Add(child.ID, nil, 50, "test grant"); err != nil {
		t.Fatalf("add points: %v", err)
	}

	if _, err := rs.RequestRedemption(reward, child.ID); err != nil {
		t.Fatalf("first request: %v", err)
	}

	// 50 points minus the 30 held by the pending request leaves 20,
	// not enough for a second request.
	_, err := rs.RequestRedemption(reward, child.ID)
	if !errors.Is(err, model.ErrInsufficientPoints) {
		t.Fatalf("err = %v, want ErrInsufficientPoints", err)
	}
}

func TestListRedemptions(t *testing.T) {
	rs, ps, hhID, parent, child := setupRewardTestDB(t)

	reward, _ := rs.Create(hhID, RewardParams{Title: "Treat", PointsCost: 10, Category: model.CategoryCustom, Active: true})
	if _, err := ps.Add(child.ID, nil, 100, "test grant"); err != nil {
		t.Fatalf("add points: %v", err)
	}

	first, _ := rs.RequestRedemption(reward, child.ID)
	if _, err := rs.ApproveRedemption(first.ID, parent.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := rs.RequestRedemption(reward, child.ID); err != nil {
		t.Fatalf("second request: %v", err)
	}

	pending, err := rs.ListRedemptions(hhID, model.RedemptionPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}

	all, err := rs.ListRedemptions(hhID, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}
}
