package savings

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/savings"
)

// Policy is the savings configuration handed in at construction.
// Categories maps the names callers use to category types.
type Policy struct {
	MinDeposit decimal.Decimal
	Categories map[string]savings.CategoryType
}

func DefaultPolicy(minDeposit decimal.Decimal) Policy {
	return Policy{
		MinDeposit: minDeposit,
		Categories: map[string]savings.CategoryType{
			string(savings.TypeQuick):       savings.TypeQuick,
			string(savings.TypeCooperative): savings.TypeCooperative,
		},
	}
}

func (p Policy) categoryType(name string) (savings.CategoryType, bool) {
	t, ok := p.Categories[strings.ToUpper(strings.TrimSpace(name))]
	return t, ok
}

func (p Policy) names() string {
	out := make([]string, 0, len(p.Categories))
	for k := range p.Categories {
		out = append(out, k)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

type DepositInput struct {
	MemberID     string          `json:"member_id"`
	CategoryName string          `json:"category_name" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
}

type WithdrawInput struct {
	MemberID     string          `json:"member_id"`
	CategoryName string          `json:"category_name" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	PIN          string          `json:"pin" validate:"required"`
}

// AdjustInput corrects a member's savings. A negative Amount takes money out.
type AdjustInput struct {
	MemberID     string          `json:"member_id" validate:"required"`
	CategoryName string          `json:"category_name" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	AdminID      string          `json:"admin_id"`
	Reason       string          `json:"reason"`
}

// MovementResult is a saving row with the ledger row written alongside it.
type MovementResult struct {
	Saving      *savings.Saving     `json:"saving"`
	Transaction *ledger.Transaction `json:"transaction"`
}

type SavingsList struct {
	Savings []savings.Saving `json:"savings"`
	Total   decimal.Decimal  `json:"total"`
}
