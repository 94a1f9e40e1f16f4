package mysql

import (
	"context"
	"errors"

	"coop-ledger/internal/domain/apperr"
	"coop-ledger/internal/domain/ledger"

	"gorm.io/gorm"
)

type LedgerRepository struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) *LedgerRepository { return &LedgerRepository{db: db} }

// Create inserts the row. A second open confirmation for the same loan
// fails on ux_ledger_pending_guard with gorm.ErrDuplicatedKey.
func (r *LedgerRepository) Create(ctx context.Context, t *ledger.Transaction) error {
	err := r.db.WithContext(ctx).Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) && t.PendingGuard != nil {
		return apperr.Wrap(apperr.KindConflict, err, "loan confirmation already in progress")
	}
	return translate(err, "ledger transaction", t.TransactionID)
}

func (r *LedgerRepository) FindPendingForLoan(ctx context.Context, loanID string) (*ledger.Transaction, error) {
	var out ledger.Transaction
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND type = ?", loanID, ledger.TypeLoanPending).
		First(&out)
	return &out, translate(res.Error, "pending confirmation for loan", loanID)
}

func (r *LedgerRepository) ListByLoanIDs(ctx context.Context, loanIDs []string, types []ledger.Type) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	if len(loanIDs) == 0 {
		return out, nil
	}
	q := r.db.WithContext(ctx).Where("loan_id IN ?", loanIDs)
	if len(types) > 0 {
		q = q.Where("type IN ?", types)
	}
	return out, q.Order("created_at DESC, id DESC").Find(&out).Error
}

func (r *LedgerRepository) ListByMemberID(ctx context.Context, memberID string) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	res := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC, id DESC").
		Find(&out)
	return out, res.Error
}
