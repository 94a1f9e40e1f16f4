package mysql

import (
	"context"

	loanDomain "coop-ledger/internal/domain/loan"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return translate(r.db.WithContext(ctx).Create(l).Error, "loan", l.LoanID)
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, translate(res.Error, "loan", loanID)
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	return &out, translate(res.Error, "loan", loanID)
}

func (r *LoanRepository) ListByMemberID(ctx context.Context, memberID string) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC, id DESC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) ListAll(ctx context.Context) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out)
	return out, res.Error
}

func (r *LoanRepository) GetCategory(ctx context.Context, categoryID string) (*loanDomain.Category, error) {
	var out loanDomain.Category
	res := r.db.WithContext(ctx).Where("category_id = ?", categoryID).First(&out)
	return &out, translate(res.Error, "loan category", categoryID)
}

func (r *LoanRepository) ListCategories(ctx context.Context, activeOnly bool) ([]loanDomain.Category, error) {
	var out []loanDomain.Category
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	return out, q.Find(&out).Error
}

type categorySum struct {
	CategoryID string
	Total      decimal.Decimal
}

func (r *LoanRepository) SumDisbursedByCategory(ctx context.Context) (map[string]decimal.Decimal, error) {
	var rows []categorySum
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Select("category_id, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", loanDomain.StatusDisbursed).
		Group("category_id").
		Scan(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	out := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.CategoryID] = row.Total
	}
	return out, nil
}

func (r *LoanRepository) CountByApprover(ctx context.Context) ([]loanDomain.AdminStatusCount, error) {
	return r.countByAdmin(ctx, "approved_by_id")
}

func (r *LoanRepository) CountByRejecter(ctx context.Context) ([]loanDomain.AdminStatusCount, error) {
	return r.countByAdmin(ctx, "rejected_by_id")
}

// column is one of the two fixed admin reference columns, never user input.
func (r *LoanRepository) countByAdmin(ctx context.Context, column string) ([]loanDomain.AdminStatusCount, error) {
	var rows []loanDomain.AdminStatusCount
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Select(column + " AS admin_id, status, COUNT(*) AS count").
		Where(column + " IS NOT NULL").
		Group(column + ", status").
		Scan(&rows)
	return rows, res.Error
}

type RepaymentRepository struct{ db *gorm.DB }

func NewRepaymentRepository(db *gorm.DB) *RepaymentRepository { return &RepaymentRepository{db: db} }

func (r *RepaymentRepository) CreateBatch(ctx context.Context, rs []loanDomain.Repayment) error {
	if len(rs) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Create(&rs).Error, "repayment schedule for loan", rs[0].LoanID)
}

func (r *RepaymentRepository) Save(ctx context.Context, rp *loanDomain.Repayment) error {
	return r.db.WithContext(ctx).Save(rp).Error
}

func (r *RepaymentRepository) GetForUpdate(ctx context.Context, repaymentID string) (*loanDomain.Repayment, error) {
	var out loanDomain.Repayment
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("repayment_id = ?", repaymentID).
		First(&out)
	return &out, translate(res.Error, "repayment", repaymentID)
}

func (r *RepaymentRepository) ListByLoanIDs(ctx context.Context, loanIDs []string) ([]loanDomain.Repayment, error) {
	var out []loanDomain.Repayment
	if len(loanIDs) == 0 {
		return out, nil
	}
	res := r.db.WithContext(ctx).
		Where("loan_id IN ?", loanIDs).
		Order("due_date ASC, id ASC").
		Find(&out)
	return out, res.Error
}
