// Package dbtest builds an in-memory sqlite ledger for usecase and
// adapter tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"coop-ledger/internal/adapter/repository/mysql"
	"coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/member"
	"coop-ledger/internal/domain/savings"
	"coop-ledger/internal/infrastructure/db"
	"coop-ledger/pkg/id"
)

type Env struct {
	DB  *gorm.DB
	UoW *mysql.GormUoW
}

// Open migrates a fresh in-memory database. A single connection keeps
// the memory DB shared, so callers must not read through DB while a
// unit of work is open.
func Open(t *testing.T) *Env {
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
	return &Env{DB: gdb, UoW: mysql.NewGormUoW(gdb)}
}

func Dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Member inserts a member with a fake name. Empty serviceNumber gets a
// generated one.
func (e *Env) Member(t *testing.T, serviceNumber string) *member.Member {
	t.Helper()
	if serviceNumber == "" {
		serviceNumber = gofakeit.Numerify("SN-######")
	}
	m := &member.Member{
		MemberID:         id.NewID32(),
		ServiceNumber:    serviceNumber,
		FirstName:        gofakeit.FirstName(),
		LastName:         gofakeit.LastName(),
		Email:            gofakeit.Email(),
		MonthlyDeduction: decimal.Zero,
	}
	if err := e.DB.Create(m).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return m
}

func (e *Env) Admin(t *testing.T) *member.Admin {
	t.Helper()
	a := &member.Admin{AdminID: id.NewID32(), FullName: gofakeit.Name(), Email: gofakeit.Email()}
	if err := e.DB.Create(a).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return a
}

// LoanCategory inserts an active category. Empty ceiling means none.
func (e *Env) LoanCategory(t *testing.T, name, ceiling string) *loan.Category {
	t.Helper()
	c := &loan.Category{
		CategoryID:     id.NewID32(),
		Name:           name,
		InterestRate:   Dec("0.05"),
		DurationMonths: 6,
		IsActive:       true,
	}
	if ceiling != "" {
		c.MaxAmount = decimal.NewNullDecimal(Dec(ceiling))
	}
	if err := e.DB.Create(c).Error; err != nil {
		t.Fatalf("seed loan category: %v", err)
	}
	return c
}

func (e *Env) SavingCategory(t *testing.T, typ savings.CategoryType) *savings.Category {
	t.Helper()
	var c savings.Category
	if err := e.DB.Where("type = ?", typ).First(&c).Error; err != nil {
		t.Fatalf("saving category %s: %v", typ, err)
	}
	return &c
}

// Loan inserts a loan directly in the given status, bypassing the lifecycle.
func (e *Env) Loan(t *testing.T, memberID, categoryID, amount string, status loan.Status) *loan.Loan {
	t.Helper()
	l := &loan.Loan{
		LoanID:         id.NewID32(),
		MemberID:       memberID,
		CategoryID:     categoryID,
		Amount:         Dec(amount),
		InterestRate:   Dec("0.05"),
		DurationMonths: 6,
		Status:         status,
		Reference:      id.NewReference("LN", time.Now()),
	}
	switch status {
	case loan.StatusApplied, loan.StatusPending, loan.StatusRejected:
	default:
		l.ApprovedAmount = decimal.NewNullDecimal(l.Amount)
	}
	if err := e.DB.Create(l).Error; err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	return l
}

// Count returns the number of rows of model matching the optional query.
func (e *Env) Count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := e.DB.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}
