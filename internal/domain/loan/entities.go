package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusApplied   Status = "APPLIED"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusDisbursed Status = "DISBURSED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusDefaulted Status = "DEFAULTED"
)

type Loan struct {
	ID             uint64              `gorm:"primaryKey;column:id" json:"-"`
	LoanID         string              `gorm:"size:32;not null;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	MemberID       string              `gorm:"size:32;not null;index:idx_loans_member" json:"member_id"`
	CategoryID     string              `gorm:"size:32;not null;index:idx_loans_category_status" json:"category_id"`
	Amount         decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"amount"`
	ApprovedAmount decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"approved_amount"`
	InterestRate   decimal.Decimal     `gorm:"type:decimal(6,4);not null" json:"interest_rate"`
	DurationMonths int                 `gorm:"not null" json:"duration_months"`
	Status         Status              `gorm:"type:varchar(16);not null;index:idx_loans_category_status" json:"status"`
	OTP            *string             `gorm:"column:otp;size:12" json:"-"`
	OTPExpiresAt   *time.Time          `gorm:"column:otp_expires_at" json:"-"`
	Reference      string              `gorm:"size:32;not null;uniqueIndex:ux_loans_reference" json:"reference"`
	ApprovedByID   *string             `gorm:"size:32;index" json:"approved_by_id,omitempty"`
	RejectedByID   *string             `gorm:"size:32;index" json:"rejected_by_id,omitempty"`
	StartDate      *time.Time          `json:"start_date,omitempty"`
	EndDate        *time.Time          `json:"end_date,omitempty"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// Approved returns the approved amount, zero while none has been set.
func (l *Loan) Approved() decimal.Decimal {
	if !l.ApprovedAmount.Valid {
		return decimal.Zero
	}
	return l.ApprovedAmount.Decimal
}

type RepaymentStatus string

const (
	RepaymentPending RepaymentStatus = "PENDING"
	RepaymentPaid    RepaymentStatus = "PAID"
)

type Repayment struct {
	ID          uint64          `gorm:"primaryKey;column:id" json:"-"`
	RepaymentID string          `gorm:"size:32;not null;uniqueIndex:ux_repayments_repayment_id" json:"repayment_id"`
	LoanID      string          `gorm:"size:32;not null;index:idx_repayments_loan_due" json:"loan_id"`
	DueDate     time.Time       `gorm:"not null;index:idx_repayments_loan_due" json:"due_date"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status      RepaymentStatus `gorm:"type:varchar(16);not null" json:"status"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Repayment) TableName() string { return "repayments" }

// Category is a loan product. MaxAmount is the society-wide ceiling
// collectible under it; a NULL ceiling means "no ceiling".
type Category struct {
	ID             uint64              `gorm:"primaryKey;column:id" json:"-"`
	CategoryID     string              `gorm:"size:32;not null;uniqueIndex:ux_loan_categories_category_id" json:"category_id"`
	Name           string              `gorm:"size:64;not null;uniqueIndex:ux_loan_categories_name" json:"name"`
	MaxAmount      decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"max_amount"`
	InterestRate   decimal.Decimal     `gorm:"type:decimal(6,4);not null" json:"interest_rate"`
	DurationMonths int                 `gorm:"not null" json:"duration_months"`
	IsActive       bool                `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (Category) TableName() string { return "loan_categories" }

// AdminStatusCount is one row of the approver/rejecter aggregate used by
// the admin statistics read model.
type AdminStatusCount struct {
	AdminID string
	Status  Status
	Count   int64
}
