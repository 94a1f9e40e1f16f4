package savings

import (
	"time"

	"github.com/shopspring/decimal"
)

type CategoryType string

const (
	// TypeQuick savings may be withdrawn by the member.
	TypeQuick CategoryType = "QUICK"
	// TypeCooperative savings accumulate from payroll deductions and
	// cannot be withdrawn.
	TypeCooperative CategoryType = "COOPERATIVE"
)

func (t CategoryType) AllowsWithdrawal() bool { return t == TypeQuick }

type Category struct {
	ID         uint64              `gorm:"primaryKey;column:id" json:"-"`
	CategoryID string              `gorm:"size:32;not null;uniqueIndex:ux_saving_categories_category_id" json:"category_id"`
	Name       string              `gorm:"size:64;not null" json:"name"`
	Type       CategoryType        `gorm:"type:varchar(16);not null;uniqueIndex:ux_saving_categories_type" json:"type"`
	MaxAmount  decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"max_amount"`
	CreatedAt  time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (Category) TableName() string { return "saving_categories" }

type Status string

const StatusCompleted Status = "COMPLETED"

// Saving is immutable once written. Amount is signed: deposits are
// positive, withdrawals negative. Corrections are new offsetting rows.
type Saving struct {
	ID         uint64          `gorm:"primaryKey;column:id" json:"-"`
	SavingID   string          `gorm:"size:32;not null;uniqueIndex:ux_savings_saving_id" json:"saving_id"`
	MemberID   string          `gorm:"size:32;not null;index:idx_savings_member_category" json:"member_id"`
	CategoryID string          `gorm:"size:32;not null;index:idx_savings_member_category" json:"category_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Reference  string          `gorm:"size:32;not null;uniqueIndex:ux_savings_reference" json:"reference"`
	Status     Status          `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Saving) TableName() string { return "savings" }

type CategoryTotal struct {
	CategoryID string
	Total      decimal.Decimal
}
