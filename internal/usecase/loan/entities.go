package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/loan"
)

// Policy is the loan configuration handed in at construction.
type Policy struct {
	OTPTTL    time.Duration
	OTPDigits int
}

type ApplyInput struct {
	MemberID   string          `json:"member_id" validate:"required"`
	CategoryID string          `json:"category_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

// ApplyResult carries the freshly issued OTP so the caller can deliver it.
type ApplyResult struct {
	LoanID       string    `json:"loan_id"`
	Reference    string    `json:"reference"`
	Status       string    `json:"status"`
	OTP          string    `json:"otp"`
	OTPExpiresAt time.Time `json:"otp_expires_at"`
}

// DecisionResult is returned by Approve and Reject instead of an error.
// Err keeps the typed error for callers that branch on its kind.
type DecisionResult struct {
	Success     bool                `json:"success"`
	Loan        *loan.Loan          `json:"loan,omitempty"`
	Transaction *ledger.Transaction `json:"transaction,omitempty"`
	Message     string              `json:"message,omitempty"`
	Error       string              `json:"error,omitempty"`
	Err         error               `json:"-"`
}

type ScheduleItem struct {
	DueDate time.Time       `json:"due_date" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

type DisburseInput struct {
	LoanID   string         `json:"-"`
	AdminID  string         `json:"-"`
	Schedule []ScheduleItem `json:"schedule" validate:"required,min=1,dive"`
}

type DisburseResult struct {
	Loan        *loan.Loan          `json:"loan"`
	Repayments  []loan.Repayment    `json:"repayments"`
	Transaction *ledger.Transaction `json:"transaction"`
}

type RepaymentResult struct {
	Loan        *loan.Loan          `json:"loan"`
	Repayment   *loan.Repayment     `json:"repayment"`
	Transaction *ledger.Transaction `json:"transaction"`
}
