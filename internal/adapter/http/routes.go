package http

import (
	"github.com/labstack/echo/v4"

	"coop-ledger/internal/adapter/middleware"
)

type Routes struct {
	Health      *Handler
	Loans       *LoanHandler
	Savings     *SavingsHandler
	Metrics     echo.HandlerFunc
	Idempotency echo.MiddlewareFunc
}

// Register mounts every route. Mutating routes run identity first, then
// idempotency, so the replay key is scoped to the caller.
func Register(e *echo.Echo, r Routes) {
	member := middleware.RequireMember()
	admin := middleware.RequireAdmin()
	idem := r.Idempotency
	if idem == nil {
		idem = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	e.GET("/health", r.Health.Health)
	if r.Metrics != nil {
		e.GET("/metrics", r.Metrics)
	}

	e.GET("/loans", r.Loans.List, admin)
	e.GET("/loans/categories", r.Loans.Categories)
	e.GET("/loans/balance", r.Loans.Balance, member)
	e.GET("/loans/history", r.Loans.History, member)
	e.POST("/loans", r.Loans.Apply, member, idem)
	e.POST("/loans/:loan_id/confirm", r.Loans.Confirm, member, idem)
	e.POST("/loans/:loan_id/approve", r.Loans.Approve, admin, idem)
	e.POST("/loans/:loan_id/reject", r.Loans.Reject, admin, idem)
	e.POST("/loans/:loan_id/disburse", r.Loans.Disburse, admin, idem)
	e.POST("/loans/:loan_id/activate", r.Loans.Activate, admin, idem)
	e.POST("/loans/:loan_id/repayments/:repayment_id/pay", r.Loans.PayRepayment, admin, idem)
	e.POST("/loans/:loan_id/default", r.Loans.MarkDefaulted, admin, idem)
	e.GET("/admin/loan-stats", r.Loans.AdminStats, admin)

	e.GET("/savings", r.Savings.List, admin)
	e.GET("/savings/total", r.Savings.Total, member)
	e.GET("/savings/balance", r.Savings.Balance, member)
	e.POST("/savings/deposit", r.Savings.Deposit, member, idem)
	e.POST("/savings/withdraw", r.Savings.Withdraw, member, idem)
	e.PUT("/savings/deduction", r.Savings.EditDeduction, member, idem)
	e.POST("/savings/adjust", r.Savings.Adjust, admin, idem)
	e.POST("/savings/imports", r.Savings.Import, admin, idem)
}
