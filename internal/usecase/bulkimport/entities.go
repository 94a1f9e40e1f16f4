package bulkimport

import (
	"context"

	"github.com/shopspring/decimal"
)

// Record is one data row keyed by its header cell.
type Record map[string]string

// Column aliases accepted in the header row.
var (
	serviceNumberColumns = []string{"Service Number", "service_number", "ServiceNumber"}
	amountColumns        = []string{"Amount", "amount", "Deduction"}
	nameColumns          = []string{"Name", "name", "Member Name"}
)

// lookup returns the first non-empty value under any alias.
func (r Record) lookup(aliases []string) string {
	for _, a := range aliases {
		if v, ok := r[a]; ok && v != "" {
			return v
		}
	}
	return ""
}

func (r Record) hasColumn(aliases []string) bool {
	for _, a := range aliases {
		if _, ok := r[a]; ok {
			return true
		}
	}
	return false
}

type RowError struct {
	Row           int    `json:"row"`
	ServiceNumber string `json:"service_number,omitempty"`
	Error         string `json:"error"`
}

type Summary struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ValidRecords   int             `json:"valid_records"`
	InvalidRecords int             `json:"invalid_records"`
}

type Result struct {
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	ProcessedCount int        `json:"processed_count"`
	ErrorCount     int        `json:"error_count"`
	Errors         []RowError `json:"errors"`
	Summary        Summary    `json:"summary"`
}

// Locker serializes imports. Acquire fails with a Conflict error while
// another holder has the key.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}
