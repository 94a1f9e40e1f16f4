package uow

import (
	"context"

	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/member"
	"coop-ledger/internal/domain/savings"
)

// Repos are repositories bound to one transaction.
type Repos struct {
	Loans      loan.Repository
	Repayments loan.RepaymentRepository
	Savings    savings.Repository
	Ledger     ledger.Repository
	Members    member.Repository

	// Nested runs fn inside a savepoint of the current transaction; an
	// error from fn rolls back only the savepoint.
	Nested func(ctx context.Context, fn func(r Repos) error) error
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the loan row first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
	// lock the member row first; every balance-checked savings write goes through here
	WithinMemberTx(ctx context.Context, memberID string, fn func(r Repos, m *member.Member) error) error
}
