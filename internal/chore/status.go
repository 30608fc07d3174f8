package chore

import (
	"fmt"
)

// Status is a chore lifecycle state. Transitions are explicit: pending →
// in_progress → completed, with awaiting_verification as a guarded
// sub-transition when the chore requires parent verification.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	// StatusAwaitingVerification is entered when a verification-required
	// chore is finished by someone without the approve capability. A parent
	// approval moves it to completed; a rejection sends it back to pending.
	StatusAwaitingVerification Status = "awaiting_verification"
	StatusCompleted            Status = "completed"
)

// Valid reports whether s is a known status.
func Valid(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusAwaitingVerification, StatusCompleted:
		return true
	}
	return false
}

// TransitionError reports a rejected status transition.
type TransitionError struct {
	From, To Status
	Reason   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move chore from %s to %s: %s", e.From, e.To, e.Reason)
}

// Transition validates a requested status change.
//
// verificationRequired is the chore's flag; canApprove is whether the caller
// holds the approve_chores capability. The returned status is the state the
// chore actually lands in, which differs from the request when a
// verification-required chore is finished by a non-approver.
func Transition(from, to Status, verificationRequired, canApprove bool) (Status, error) {
	if !Valid(to) {
		return from, &TransitionError{From: from, To: to, Reason: "unknown status"}
	}
	if from == to {
		return from, &TransitionError{From: from, To: to, Reason: "already in that state"}
	}

	switch from {
	case StatusPending:
		switch to {
		case StatusInProgress:
			return StatusInProgress, nil
		case StatusCompleted:
			return complete(from, verificationRequired, canApprove)
		}

	case StatusInProgress:
		switch to {
		case StatusPending:
			// Backing out of a started chore is allowed.
			return StatusPending, nil
		case StatusCompleted:
			return complete(from, verificationRequired, canApprove)
		}

	case StatusAwaitingVerification:
		switch to {
		case StatusCompleted:
			if !canApprove {
				return from, &TransitionError{From: from, To: to, Reason: "verification requires the approve_chores capability"}
			}
			return StatusCompleted, nil
		case StatusPending:
			// Rejection: send the chore back to be redone.
			if !canApprove {
				return from, &TransitionError{From: from, To: to, Reason: "rejection requires the approve_chores capability"}
			}
			return StatusPending, nil
		}

	case StatusCompleted:
		// Terminal. Re-completion must not happen; recurring chores respawn
		// as fresh pending cycles instead.
		return from, &TransitionError{From: from, To: to, Reason: "chore is already completed"}
	}

	return from, &TransitionError{From: from, To: to, Reason: "transition not allowed"}
}

func complete(_ Status, verificationRequired, canApprove bool) (Status, error) {
	if verificationRequired && !canApprove {
		return StatusAwaitingVerification, nil
	}
	return StatusCompleted, nil
}
