package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeLoanPending       Type = "PENDING"
	TypeLoanApproved      Type = "LOAN_APPROVED"
	TypeLoanRejected      Type = "LOAN_REJECTED"
	TypeLoanDisbursement  Type = "LOAN_DISBURSEMENT"
	TypeLoanRepayment     Type = "LOAN_REPAYMENT"
	TypeSavingsDeposit    Type = "SAVINGS_DEPOSIT"
	TypeSavingsWithdrawal Type = "SAVINGS_WITHDRAWAL"
	TypeAdjustment        Type = "ADJUSTMENT"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

// Transaction is an append-only audit row. Rows are only ever inserted.
//
// PendingGuard carries the loan id on the OTP confirmation row and is NULL
// everywhere else; its unique index allows at most one confirmation per loan.
type Transaction struct {
	ID            uint64          `gorm:"primaryKey;column:id" json:"-"`
	TransactionID string          `gorm:"size:32;not null;uniqueIndex:ux_ledger_transaction_id" json:"transaction_id"`
	LoanID        *string         `gorm:"size:32;index:idx_ledger_loan_type" json:"loan_id,omitempty"`
	MemberID      *string         `gorm:"size:32;index" json:"member_id,omitempty"`
	Type          Type            `gorm:"type:varchar(32);not null;index:idx_ledger_loan_type" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status        Status          `gorm:"type:varchar(16);not null" json:"status"`
	Reference     string          `gorm:"size:32;index" json:"reference"`
	Description   string          `gorm:"type:text" json:"description"`
	PendingGuard  *string         `gorm:"size:32;uniqueIndex:ux_ledger_pending_guard" json:"-"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string { return "ledger_transactions" }

// LoanHistoryTypes are the entries shown in a member's loan history.
var LoanHistoryTypes = []Type{TypeLoanDisbursement, TypeLoanRepayment, TypeLoanRejected}
