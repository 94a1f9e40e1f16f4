package loan

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	Save(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// Row-locked read; only meaningful inside a unit of work.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	// Newest first.
	ListByMemberID(ctx context.Context, memberID string) ([]Loan, error)
	// Every loan of the society, newest first.
	ListAll(ctx context.Context) ([]Loan, error)

	GetCategory(ctx context.Context, categoryID string) (*Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]Category, error)

	// Society-wide sum of requested amounts of DISBURSED loans, keyed by category id.
	SumDisbursedByCategory(ctx context.Context) (map[string]decimal.Decimal, error)
	// Grouped (admin, status) counts for approver and rejecter references.
	CountByApprover(ctx context.Context) ([]AdminStatusCount, error)
	CountByRejecter(ctx context.Context) ([]AdminStatusCount, error)
}

type RepaymentRepository interface {
	CreateBatch(ctx context.Context, rs []Repayment) error
	Save(ctx context.Context, r *Repayment) error
	GetForUpdate(ctx context.Context, repaymentID string) (*Repayment, error)
	// Ordered by due date ascending.
	ListByLoanIDs(ctx context.Context, loanIDs []string) ([]Repayment, error)
}
