package savings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/savings"
	"coop-ledger/internal/domain/uow"
	"coop-ledger/pkg/id"
)

// Movement is one saving row and its paired ledger row.
// TransactionAmount defaults to Amount when zero.
type Movement struct {
	MemberID          string
	Category          *savings.Category
	Amount            decimal.Decimal
	Type              ledger.Type
	TransactionAmount decimal.Decimal
	Description       string
	At                time.Time
}

// WriteMovement inserts the pair inside the caller's unit of work. Both
// rows share one SAV reference.
func WriteMovement(ctx context.Context, r uow.Repos, m Movement) (*MovementResult, error) {
	ref := id.NewReference("SAV", m.At)
	s := &savings.Saving{
		SavingID:   id.NewID32(),
		MemberID:   m.MemberID,
		CategoryID: m.Category.CategoryID,
		Amount:     m.Amount,
		Reference:  ref,
		Status:     savings.StatusCompleted,
		CreatedAt:  m.At,
	}
	if err := r.Savings.Create(ctx, s); err != nil {
		return nil, err
	}

	amount := m.TransactionAmount
	if amount.IsZero() {
		amount = m.Amount
	}
	memberID := m.MemberID
	tx := &ledger.Transaction{
		TransactionID: id.NewID32(),
		MemberID:      &memberID,
		Type:          m.Type,
		Amount:        amount,
		Status:        ledger.StatusCompleted,
		Reference:     ref,
		Description:   m.Description,
		CreatedAt:     m.At,
	}
	if err := r.Ledger.Create(ctx, tx); err != nil {
		return nil, err
	}
	return &MovementResult{Saving: s, Transaction: tx}, nil
}
