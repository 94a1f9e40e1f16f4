package ledgermock

import (
	"context"

	"coop-ledger/internal/domain/ledger"
)

var _ ledger.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies ledger.Repository.
// Created collects every row passed to Create when CreateFn is unset.
type Repo struct {
	CreateFn             func(ctx context.Context, t *ledger.Transaction) error
	FindPendingForLoanFn func(ctx context.Context, loanID string) (*ledger.Transaction, error)
	ListByLoanIDsFn      func(ctx context.Context, loanIDs []string, types []ledger.Type) ([]ledger.Transaction, error)
	ListByMemberIDFn     func(ctx context.Context, memberID string) ([]ledger.Transaction, error)

	Created []*ledger.Transaction
}

func (m *Repo) Create(ctx context.Context, t *ledger.Transaction) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, t)
	}
	m.Created = append(m.Created, t)
	return nil
}

func (m *Repo) FindPendingForLoan(ctx context.Context, loanID string) (*ledger.Transaction, error) {
	if m.FindPendingForLoanFn != nil {
		return m.FindPendingForLoanFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByLoanIDs(ctx context.Context, loanIDs []string, types []ledger.Type) ([]ledger.Transaction, error) {
	if m.ListByLoanIDsFn != nil {
		return m.ListByLoanIDsFn(ctx, loanIDs, types)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByMemberID(ctx context.Context, memberID string) ([]ledger.Transaction, error) {
	if m.ListByMemberIDFn != nil {
		return m.ListByMemberIDFn(ctx, memberID)
	}
	return nil, context.Canceled
}
