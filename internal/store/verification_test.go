package store

import (
	"testing"

	"github.com/parentpal/parentpal/internal/database"
	"github.com/parentpal/parentpal/internal/model"
)

func setupVerificationTestDB(t *testing.T) *VerificationStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewVerificationStore(db)
}

func TestVerificationCodeLifecycle(t *testing.T) {
	vs := setupVerificationTestDB(t)

	code, err := vs.Create("ana@example.com", model.PurposeLogin, nil)
	if err != nil {
		t.Fatalf("create code: %v", err)
	}
	if len(code.Code) != 6 {
		t.Errorf("code = %q, want 6 digits", code.Code)
	}

	got, err := vs.GetLatestByEmail("ana@example.com")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if got == nil || got.Code != code.Code {
		t.Fatalf("got %+v", got)
	}

	if err := vs.MarkUsed(code.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	used, err := vs.GetLatestByEmail("ana@example.com")
	if err != nil {
		t.Fatalf("get after use: %v", err)
	}
	if used != nil {
		t.Error("expected nil once the code is used")
	}
}

func TestVerificationNewCodeSupersedesOld(t *testing.T) {
	vs := setupVerificationTestDB(t)

	first, err := vs.Create("ana@example.com", model.PurposeLogin, nil)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := vs.Create("ana@example.com", model.PurposeLogin, nil)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	got, err := vs.GetLatestByEmail("ana@example.com")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if got == nil || got.ID != second.ID {
		t.Fatalf("latest = %+v, want id %d", got, second.ID)
	}
	if got.ID == first.ID {
		t.Error("first code should be superseded")
	}
}

func TestVerificationAttemptCounter(t *testing.T) {
	vs := setupVerificationTestDB(t)

	code, err := vs.Create("ana@example.com", model.PurposeLogin, nil)
	if err != nil {
		t.Fatalf("create code: %v", err)
	}

	for want := 1; want <= 3; want++ {
		n, err := vs.IncrementAttempts(code.ID)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if n != want {
			t.Errorf("attempts = %d, want %d", n, want)
		}
	}
}
