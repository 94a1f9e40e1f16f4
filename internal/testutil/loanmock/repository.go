package loanmock

import (
	"context"

	"github.com/shopspring/decimal"

	domain "coop-ledger/internal/domain/loan"
)

var (
	_ domain.Repository          = (*Repo)(nil)
	_ domain.RepaymentRepository = (*RepaymentRepo)(nil)
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset lookups return context.Canceled; unset writes are no-ops.
type Repo struct {
	CreateFn                 func(ctx context.Context, l *domain.Loan) error
	SaveFn                   func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn            func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn   func(ctx context.Context, loanID string) (*domain.Loan, error)
	ListByMemberIDFn         func(ctx context.Context, memberID string) ([]domain.Loan, error)
	ListAllFn                func(ctx context.Context) ([]domain.Loan, error)
	GetCategoryFn            func(ctx context.Context, categoryID string) (*domain.Category, error)
	ListCategoriesFn         func(ctx context.Context, activeOnly bool) ([]domain.Category, error)
	SumDisbursedByCategoryFn func(ctx context.Context) (map[string]decimal.Decimal, error)
	CountByApproverFn        func(ctx context.Context) ([]domain.AdminStatusCount, error)
	CountByRejecterFn        func(ctx context.Context) ([]domain.AdminStatusCount, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByMemberID(ctx context.Context, memberID string) ([]domain.Loan, error) {
	if m.ListByMemberIDFn != nil {
		return m.ListByMemberIDFn(ctx, memberID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListAll(ctx context.Context) ([]domain.Loan, error) {
	if m.ListAllFn != nil {
		return m.ListAllFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	if m.GetCategoryFn != nil {
		return m.GetCategoryFn(ctx, categoryID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	if m.ListCategoriesFn != nil {
		return m.ListCategoriesFn(ctx, activeOnly)
	}
	return nil, context.Canceled
}

func (m *Repo) SumDisbursedByCategory(ctx context.Context) (map[string]decimal.Decimal, error) {
	if m.SumDisbursedByCategoryFn != nil {
		return m.SumDisbursedByCategoryFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) CountByApprover(ctx context.Context) ([]domain.AdminStatusCount, error) {
	if m.CountByApproverFn != nil {
		return m.CountByApproverFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) CountByRejecter(ctx context.Context) ([]domain.AdminStatusCount, error) {
	if m.CountByRejecterFn != nil {
		return m.CountByRejecterFn(ctx)
	}
	return nil, context.Canceled
}

// RepaymentRepo is a function-backed mock that satisfies domain.RepaymentRepository.
type RepaymentRepo struct {
	CreateBatchFn   func(ctx context.Context, rs []domain.Repayment) error
	SaveFn          func(ctx context.Context, r *domain.Repayment) error
	GetForUpdateFn  func(ctx context.Context, repaymentID string) (*domain.Repayment, error)
	ListByLoanIDsFn func(ctx context.Context, loanIDs []string) ([]domain.Repayment, error)
}

func (m *RepaymentRepo) CreateBatch(ctx context.Context, rs []domain.Repayment) error {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, rs)
	}
	return nil
}

func (m *RepaymentRepo) Save(ctx context.Context, r *domain.Repayment) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, r)
	}
	return nil
}

func (m *RepaymentRepo) GetForUpdate(ctx context.Context, repaymentID string) (*domain.Repayment, error) {
	if m.GetForUpdateFn != nil {
		return m.GetForUpdateFn(ctx, repaymentID)
	}
	return nil, context.Canceled
}

func (m *RepaymentRepo) ListByLoanIDs(ctx context.Context, loanIDs []string) ([]domain.Repayment, error) {
	if m.ListByLoanIDsFn != nil {
		return m.ListByLoanIDsFn(ctx, loanIDs)
	}
	return nil, context.Canceled
}
