package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"coop-ledger/internal/domain/ledger"
	loanDomain "coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/member"
	"coop-ledger/internal/domain/savings"
	"coop-ledger/internal/infrastructure/db"
	"coop-ledger/pkg/id"
)

// openTestDB opens an in-memory sqlite DB with the full schema and the
// seeded saving categories. One connection keeps the memory DB alive
// and shared.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenGormWithDialector(sqlite.Open(":memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(context.Background(), gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedMember(t *testing.T, gdb *gorm.DB, serviceNumber string) *member.Member {
	t.Helper()
	m := &member.Member{
		MemberID:         id.NewID32(),
		ServiceNumber:    serviceNumber,
		FirstName:        "Ada",
		LastName:         "Obi",
		MonthlyDeduction: dec("2500"),
	}
	if err := gdb.Create(m).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return m
}

func seedLoanCategory(t *testing.T, gdb *gorm.DB, name string, ceiling string, active bool) *loanDomain.Category {
	t.Helper()
	c := &loanDomain.Category{
		CategoryID:     id.NewID32(),
		Name:           name,
		InterestRate:   dec("0.05"),
		DurationMonths: 12,
		IsActive:       active,
	}
	if ceiling != "" {
		c.MaxAmount = decimal.NewNullDecimal(dec(ceiling))
	}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("seed loan category: %v", err)
	}
	return c
}

func makeLoan(memberID, categoryID string, amount string, status loanDomain.Status) *loanDomain.Loan {
	return &loanDomain.Loan{
		LoanID:         id.NewID32(),
		MemberID:       memberID,
		CategoryID:     categoryID,
		Amount:         dec(amount),
		InterestRate:   dec("0.05"),
		DurationMonths: 12,
		Status:         status,
		Reference:      id.NewReference("LN", time.Now()),
	}
}

func savingCategory(t *testing.T, gdb *gorm.DB, typ savings.CategoryType) *savings.Category {
	t.Helper()
	var c savings.Category
	if err := gdb.Where("type = ?", typ).First(&c).Error; err != nil {
		t.Fatalf("saving category %s: %v", typ, err)
	}
	return &c
}

func makeSaving(memberID, categoryID, amount string) *savings.Saving {
	return &savings.Saving{
		SavingID:   id.NewID32(),
		MemberID:   memberID,
		CategoryID: categoryID,
		Amount:     dec(amount),
		Reference:  id.NewReference("SAV", time.Now()),
		Status:     savings.StatusCompleted,
	}
}

func makeTxn(loanID string, typ ledger.Type, amount string) *ledger.Transaction {
	return &ledger.Transaction{
		TransactionID: id.NewID32(),
		LoanID:        &loanID,
		Type:          typ,
		Amount:        dec(amount),
		Status:        ledger.StatusCompleted,
	}
}
