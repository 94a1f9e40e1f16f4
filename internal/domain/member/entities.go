package member

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Member is read by the ledger core and only ever updated for the
// monthly deduction; profile management lives elsewhere.
type Member struct {
	ID               uint64          `gorm:"primaryKey;column:id" json:"-"`
	MemberID         string          `gorm:"size:32;not null;uniqueIndex:ux_members_member_id" json:"member_id"`
	ServiceNumber    string          `gorm:"size:32;not null;uniqueIndex:ux_members_service_number" json:"service_number"`
	FirstName        string          `gorm:"size:64;not null" json:"first_name"`
	LastName         string          `gorm:"size:64;not null" json:"last_name"`
	Email            string          `gorm:"size:128" json:"email"`
	PinHash          string          `gorm:"size:72" json:"-"`
	MonthlyDeduction decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"monthly_deduction"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string { return "members" }

func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Admin is a back-office user who approves or rejects loans.
type Admin struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	AdminID   string    `gorm:"size:32;not null;uniqueIndex:ux_users_admin_id" json:"admin_id"`
	FullName  string    `gorm:"size:128;not null" json:"full_name"`
	Email     string    `gorm:"size:128;not null" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Admin) TableName() string { return "users" }
