package loan

import (
	"time"

	"coop-ledger/internal/domain/apperr"
)

var transitions = map[Status][]Status{
	StatusApplied:   {StatusPending},
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusDisbursed},
	StatusDisbursed: {StatusActive},
	StatusActive:    {StatusCompleted, StatusDefaulted},
}

// CanTransition reports whether a loan may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusDefaulted:
		return true
	}
	return false
}

// TransitionTo moves the loan to the given status or returns an
// InvalidState error leaving the loan untouched.
func (l *Loan) TransitionTo(to Status, at time.Time) error {
	if !CanTransition(l.Status, to) {
		return apperr.InvalidState("loan %s cannot move from %s to %s", l.LoanID, l.Status, to)
	}
	l.Status = to
	l.UpdatedAt = at
	return nil
}

// OTPMatches reports whether code is the loan's outstanding challenge and
// it has not expired at now.
func (l *Loan) OTPMatches(code string, now time.Time) bool {
	if l.OTP == nil || l.OTPExpiresAt == nil || code == "" {
		return false
	}
	if now.After(*l.OTPExpiresAt) {
		return false
	}
	return *l.OTP == code
}
