package verifier

import (
	"context"
	"time"

	"coop-ledger/internal/domain/loan"
)

// LoanOTP checks confirmation codes against the challenge stored on the loan.
type LoanOTP struct {
	loans loan.Repository
	now   func() time.Time
}

func NewLoanOTP(loans loan.Repository) *LoanOTP {
	return &LoanOTP{loans: loans, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source used for expiry checks.
func (v *LoanOTP) WithClock(now func() time.Time) *LoanOTP {
	v.now = now
	return v
}

// Verify reports a mismatch as false; a missing loan is returned as error.
func (v *LoanOTP) Verify(ctx context.Context, loanID, code string) (bool, error) {
	l, err := v.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return false, err
	}
	return l.OTPMatches(code, v.now()), nil
}
