package report

import (
	"time"

	"github.com/shopspring/decimal"

	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/savings"
)

type NextPayment struct {
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

type RepaymentProgress struct {
	Paid       int `json:"paid"`
	Remaining  int `json:"remaining"`
	Percentage int `json:"percentage"`
}

type LoanBalance struct {
	LoanID             string            `json:"loan_id"`
	Category           string            `json:"category"`
	Reference          string            `json:"reference"`
	OriginalAmount     decimal.Decimal   `json:"original_amount"`
	ApprovedAmount     decimal.Decimal   `json:"approved_amount"`
	InterestRate       decimal.Decimal   `json:"interest_rate"`
	DurationMonths     int               `json:"duration_months"`
	TotalPaid          decimal.Decimal   `json:"total_paid"`
	OutstandingBalance decimal.Decimal   `json:"outstanding_balance"`
	Status             loan.Status       `json:"status"`
	StartDate          *time.Time        `json:"start_date,omitempty"`
	EndDate            *time.Time        `json:"end_date,omitempty"`
	NextPayment        *NextPayment      `json:"next_payment,omitempty"`
	RepaymentProgress  RepaymentProgress `json:"repayment_progress"`
}

type BalanceSummary struct {
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	ActiveLoans      int             `json:"active_loans"`
	CompletedLoans   int             `json:"completed_loans"`
	DefaultedLoans   int             `json:"defaulted_loans"`
}

// CategorySummary compares what has been disbursed society-wide under a
// loan category with its ceiling.
type CategorySummary struct {
	CategoryID          string              `json:"category_id"`
	CategoryName        string              `json:"category_name"`
	MaxAmount           decimal.NullDecimal `json:"max_amount"`
	CollectedAmount     decimal.Decimal     `json:"collected_amount"`
	RemainingAmount     decimal.Decimal     `json:"remaining_amount"`
	PercentageCollected int                 `json:"percentage_collected"`
}

type MemberLoanBalance struct {
	Loans      []LoanBalance     `json:"loans"`
	Summary    BalanceSummary    `json:"summary"`
	Categories []CategorySummary `json:"categories"`
}

type RepaymentView struct {
	DueDate  time.Time            `json:"due_date"`
	Amount   decimal.Decimal      `json:"amount"`
	Status   loan.RepaymentStatus `json:"status"`
	PaidDate *time.Time           `json:"paid_date,omitempty"`
}

type TransactionView struct {
	ID          string          `json:"id"`
	Type        ledger.Type     `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Status      ledger.Status   `json:"status"`
	Description string          `json:"description"`
}

type LoanHistory struct {
	ID                 string            `json:"id"`
	Reference          string            `json:"reference"`
	Category           string            `json:"category"`
	AppliedAmount      decimal.Decimal   `json:"applied_amount"`
	ApprovedAmount     decimal.Decimal   `json:"approved_amount"`
	InterestRate       decimal.Decimal   `json:"interest_rate"`
	DurationMonths     int               `json:"duration_months"`
	Status             loan.Status       `json:"status"`
	ApplicationDate    time.Time         `json:"application_date"`
	ApprovalDate       *time.Time        `json:"approval_date,omitempty"`
	CompletionDate     *time.Time        `json:"completion_date,omitempty"`
	TotalRepaid        decimal.Decimal   `json:"total_repaid"`
	OutstandingBalance decimal.Decimal   `json:"outstanding_balance"`
	NextPaymentDue     *NextPayment      `json:"next_payment_due,omitempty"`
	Repayments         []RepaymentView   `json:"repayments"`
	Transactions       []TransactionView `json:"transactions"`
}

type MemberRef struct {
	MemberID      string `json:"member_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	ServiceNumber string `json:"service_number"`
}

type AdminRef struct {
	AdminID  string `json:"admin_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// LoanListing is one row of the back-office loan register.
type LoanListing struct {
	LoanID         string              `json:"loan_id"`
	Reference      string              `json:"reference"`
	Category       string              `json:"category"`
	Amount         decimal.Decimal     `json:"amount"`
	ApprovedAmount decimal.NullDecimal `json:"approved_amount"`
	InterestRate   decimal.Decimal     `json:"interest_rate"`
	DurationMonths int                 `json:"duration_months"`
	Status         loan.Status         `json:"status"`
	StartDate      *time.Time          `json:"start_date,omitempty"`
	EndDate        *time.Time          `json:"end_date,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	Member         *MemberRef          `json:"member,omitempty"`
	Repayments     []RepaymentView     `json:"repayments"`
	ApprovedBy     *AdminRef           `json:"approved_by,omitempty"`
	RejectedBy     *AdminRef           `json:"rejected_by,omitempty"`
}

type CategoryBalance struct {
	CategoryID   string               `json:"category_id"`
	CategoryName string               `json:"category_name"`
	Type         savings.CategoryType `json:"type"`
	Amount       decimal.Decimal      `json:"amount"`
}

// SavingsBalance splits a member's savings into what may be withdrawn
// and what is locked in cooperative categories.
type SavingsBalance struct {
	TotalSavings        decimal.Decimal   `json:"total_savings"`
	MonthlyDeduction    decimal.Decimal   `json:"monthly_deduction"`
	WithdrawableSavings decimal.Decimal   `json:"withdrawable_savings"`
	LockedSavings       decimal.Decimal   `json:"locked_savings"`
	Details             []CategoryBalance `json:"details"`
}

type AdminStats struct {
	AdminID        string `json:"admin_id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	ApprovedCount  int64  `json:"approved_count"`
	RejectedCount  int64  `json:"rejected_count"`
	DisbursedCount int64  `json:"disbursed_count"`
	PendingCount   int64  `json:"pending_count"`
	TotalActions   int64  `json:"total_actions"`
}
