package uowmock

import (
	"context"
	"errors"

	"coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/member"
	"coop-ledger/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn       func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinLoanTxFn   func(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error
	WithinMemberTxFn func(ctx context.Context, memberID string, fn func(r uow.Repos, m *member.Member) error) error
}

// Passthrough runs every callback against repos without a real
// transaction; the loan and member tx variants hand over the given rows.
func Passthrough(repos uow.Repos, l *loan.Loan, m *member.Member) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error {
			return fn(repos)
		},
		WithinLoanTxFn: func(_ context.Context, _ string, fn func(uow.Repos, *loan.Loan) error) error {
			if l == nil {
				return errUnimplemented
			}
			return fn(repos, l)
		},
		WithinMemberTxFn: func(_ context.Context, _ string, fn func(uow.Repos, *member.Member) error) error {
			if m == nil {
				return errUnimplemented
			}
			return fn(repos, m)
		},
	}
}

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, loanID, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinMemberTx(ctx context.Context, memberID string, fn func(r uow.Repos, mem *member.Member) error) error {
	if m.WithinMemberTxFn != nil {
		return m.WithinMemberTxFn(ctx, memberID, fn)
	}
	return errUnimplemented
}
