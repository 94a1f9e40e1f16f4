package ledger

import "context"

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	// FindPendingForLoan returns the open OTP confirmation row of a loan.
	FindPendingForLoan(ctx context.Context, loanID string) (*Transaction, error)
	// Newest first, restricted to the given types (all types when empty).
	ListByLoanIDs(ctx context.Context, loanIDs []string, types []Type) ([]Transaction, error)
	ListByMemberID(ctx context.Context, memberID string) ([]Transaction, error)
}
