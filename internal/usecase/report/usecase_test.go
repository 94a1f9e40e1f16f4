package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/member"
	"coop-ledger/internal/domain/savings"
	"coop-ledger/internal/domain/uow"
	"coop-ledger/internal/testutil/dbtest"
	"coop-ledger/internal/testutil/loanmock"
	"coop-ledger/internal/testutil/uowmock"
	"coop-ledger/pkg/id"
)

func repayment(t *testing.T, env *dbtest.Env, loanID, amount string, due time.Time, paid bool) *loan.Repayment {
	t.Helper()
	r := &loan.Repayment{RepaymentID: id.NewID32(), LoanID: loanID, DueDate: due, Amount: dbtest.Dec(amount), Status: loan.RepaymentPending}
	if paid {
		at := due.Add(-time.Hour)
		r.Status = loan.RepaymentPaid
		r.PaidAt = &at
	}
	require.NoError(t, env.DB.Create(r).Error)
	return r
}

func txn(t *testing.T, env *dbtest.Env, l *loan.Loan, typ ledger.Type, amount string, at time.Time) {
	t.Helper()
	require.NoError(t, env.DB.Create(&ledger.Transaction{
		TransactionID: id.NewID32(),
		LoanID:        &l.LoanID,
		MemberID:      &l.MemberID,
		Type:          typ,
		Amount:        dbtest.Dec(amount),
		Status:        ledger.StatusCompleted,
		Reference:     l.Reference,
		CreatedAt:     at,
	}).Error)
}

func TestMemberLoanBalance_ApprovedLoanIsFullyOutstanding(t *testing.T) {
	env := dbtest.Open(t)
	m := env.Member(t, "")
	cat := env.LoanCategory(t, "Emergency", "")
	env.Loan(t, m.MemberID, cat.CategoryID, "100000", loan.StatusApproved)

	got, err := NewUsecase(env.UoW).MemberLoanBalance(context.Background(), m.MemberID)
	require.NoError(t, err)
	require.Len(t, got.Loans, 1)

	lb := got.Loans[0]
	assert.Equal(t, "Emergency", lb.Category)
	assert.True(t, lb.ApprovedAmount.Equal(dbtest.Dec("100000")))
	assert.True(t, lb.OutstandingBalance.Equal(dbtest.Dec("100000")))
	assert.True(t, lb.TotalPaid.IsZero())
	assert.Nil(t, lb.NextPayment)
	assert.Equal(t, RepaymentProgress{}, lb.RepaymentProgress)
	assert.True(t, got.Summary.TotalOutstanding.Equal(dbtest.Dec("100000")))
}

func TestMemberLoanBalance_ProgressAndSummary(t *testing.T) {
	env := dbtest.Open(t)
	m := env.Member(t, "")
	cat := env.LoanCategory(t, "Housing", "1000000")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	active := env.Loan(t, m.MemberID, cat.CategoryID, "30000", loan.StatusActive)
	repayment(t, env, active.LoanID, "10000", base.AddDate(0, 1, 0), true)
	repayment(t, env, active.LoanID, "10000", base.AddDate(0, 3, 0), false)
	repayment(t, env, active.LoanID, "10000", base.AddDate(0, 2, 0), false)

	done := env.Loan(t, m.MemberID, cat.CategoryID, "5000", loan.StatusCompleted)
	repayment(t, env, done.LoanID, "2500", base.AddDate(0, 1, 0), true)
	repayment(t, env, done.LoanID, "2500", base.AddDate(0, 2, 0), true)

	env.Loan(t, m.MemberID, cat.CategoryID, "7000", loan.StatusDefaulted)
	env.Loan(t, m.MemberID, cat.CategoryID, "9000", loan.StatusPending)

	got, err := NewUsecase(env.UoW).MemberLoanBalance(context.Background(), m.MemberID)
	require.NoError(t, err)
	require.Len(t, got.Loans, 4)

	var a, c LoanBalance
	for _, lb := range got.Loans {
		switch lb.LoanID {
		case active.LoanID:
			a = lb
		case done.LoanID:
			c = lb
		}
	}
	assert.True(t, a.TotalPaid.Equal(dbtest.Dec("10000")))
	assert.True(t, a.OutstandingBalance.Equal(dbtest.Dec("20000")))
	assert.Equal(t, RepaymentProgress{Paid: 1, Remaining: 2, Percentage: 33}, a.RepaymentProgress)
	require.NotNil(t, a.NextPayment)
	assert.True(t, a.NextPayment.DueDate.Equal(base.AddDate(0, 2, 0)))

	assert.True(t, c.OutstandingBalance.IsZero())
	assert.Equal(t, 100, c.RepaymentProgress.Percentage)
	assert.Nil(t, c.NextPayment)

	s := got.Summary
	// defaulted 7000 is still owed; the pending loan has no approved amount
	assert.True(t, s.TotalOutstanding.Equal(dbtest.Dec("27000")), s.TotalOutstanding.String())
	assert.True(t, s.TotalPaid.Equal(dbtest.Dec("15000")))
	assert.Equal(t, 1, s.ActiveLoans)
	assert.Equal(t, 1, s.CompletedLoans)
	assert.Equal(t, 1, s.DefaultedLoans)
}

func TestMemberLoanBalance_CategoryCeilingsAreSocietyWide(t *testing.T) {
	env := dbtest.Open(t)
	m := env.Member(t, "")
	other := env.Member(t, "")
	capped := env.LoanCategory(t, "Car", "200000")
	open := env.LoanCategory(t, "Welfare", "")

	env.Loan(t, m.MemberID, capped.CategoryID, "50000", loan.StatusDisbursed)
	env.Loan(t, other.MemberID, capped.CategoryID, "100000", loan.StatusDisbursed)
	env.Loan(t, other.MemberID, capped.CategoryID, "40000", loan.StatusActive)
	env.Loan(t, other.MemberID, open.CategoryID, "10000", loan.StatusDisbursed)

	got, err := NewUsecase(env.UoW).MemberLoanBalance(context.Background(), m.MemberID)
	require.NoError(t, err)
	require.Len(t, got.Categories, 2)

	byName := map[string]CategorySummary{}
	for _, c := range got.Categories {
		byName[c.CategoryName] = c
	}
	car := byName["Car"]
	assert.True(t, car.CollectedAmount.Equal(dbtest.Dec("150000")))
	assert.True(t, car.RemainingAmount.Equal(dbtest.Dec("50000")))
	assert.Equal(t, 75, car.PercentageCollected)

	welfare := byName["Welfare"]
	assert.False(t, welfare.MaxAmount.Valid)
	assert.True(t, welfare.CollectedAmount.Equal(dbtest.Dec("10000")))
	assert.Equal(t, 0, welfare.PercentageCollected)
	assert.True(t, welfare.RemainingAmount.IsZero())
}

func TestSummarizeCategory_OverCeiling(t *testing.T) {
	c := loan.Category{CategoryID: "C", Name: "Car", MaxAmount: decimal.NewNullDecimal(dbtest.Dec("1000"))}
	s := summarizeCategory(c, dbtest.Dec("1250"))
	assert.True(t, s.RemainingAmount.IsZero())
	assert.Equal(t, 125, s.PercentageCollected)
}

func TestMemberLoanBalance_UnknownMemberIsEmpty(t *testing.T) {
	env := dbtest.Open(t)
	got, err := NewUsecase(env.UoW).MemberLoanBalance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got.Loans)
	assert.True(t, got.Summary.TotalOutstanding.IsZero())
}

func TestMemberLoanHistory(t *testing.T) {
	env := dbtest.Open(t)
	m := env.Member(t, "")
	cat := env.LoanCategory(t, "School Fees", "")
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	l := env.Loan(t, m.MemberID, cat.CategoryID, "12000", loan.StatusActive)
	repayment(t, env, l.LoanID, "6000", base.AddDate(0, 1, 0), true)
	repayment(t, env, l.LoanID, "6000", base.AddDate(0, 2, 0), false)

	txn(t, env, l, ledger.TypeLoanPending, "12000", base)
	txn(t, env, l, ledger.TypeLoanApproved, "12000", base.Add(time.Hour))
	txn(t, env, l, ledger.TypeLoanDisbursement, "12000", base.Add(2*time.Hour))
	txn(t, env, l, ledger.TypeLoanRepayment, "6000", base.Add(3*time.Hour))

	got, err := NewUsecase(env.UoW).MemberLoanHistory(context.Background(), m.MemberID)
	require.NoError(t, err)
	require.Len(t, got, 1)

	h := got[0]
	assert.Equal(t, "School Fees", h.Category)
	assert.True(t, h.TotalRepaid.Equal(dbtest.Dec("6000")))
	assert.True(t, h.OutstandingBalance.Equal(dbtest.Dec("6000")))
	require.NotNil(t, h.NextPaymentDue)
	assert.True(t, h.NextPaymentDue.DueDate.Equal(base.AddDate(0, 2, 0)))
	require.Len(t, h.Repayments, 2)
	assert.NotNil(t, h.Repayments[0].PaidDate)

	require.Len(t, h.Transactions, 2)
	assert.Equal(t, ledger.TypeLoanRepayment, h.Transactions[0].Type)
	assert.Equal(t, ledger.TypeLoanDisbursement, h.Transactions[1].Type)
}

func TestMemberLoanHistory_NoLoans(t *testing.T) {
	env := dbtest.Open(t)
	got, err := NewUsecase(env.UoW).MemberLoanHistory(context.Background(), env.Member(t, "").MemberID)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSavingsBalance(t *testing.T) {
	env := dbtest.Open(t)
	m := env.Member(t, "")
	require.NoError(t, env.DB.Model(&member.Member{}).Where("member_id = ?", m.MemberID).Update("monthly_deduction", dbtest.Dec("2500")).Error)
	quick := env.SavingCategory(t, savings.TypeQuick)
	coop := env.SavingCategory(t, savings.TypeCooperative)

	for _, s := range []struct {
		cat    *savings.Category
		amount string
	}{{quick, "8000"}, {quick, "-3000"}, {coop, "5000"}, {coop, "5000"}} {
		require.NoError(t, env.DB.Create(&savings.Saving{
			SavingID: id.NewID32(), MemberID: m.MemberID, CategoryID: s.cat.CategoryID,
			Amount: dbtest.Dec(s.amount), Reference: id.NewReference("SAV", time.Now()), Status: savings.StatusCompleted,
		}).Error)
	}

	got, err := NewUsecase(env.UoW).SavingsBalance(context.Background(), m.MemberID)
	require.NoError(t, err)
	assert.True(t, got.TotalSavings.Equal(dbtest.Dec("15000")))
	assert.True(t, got.WithdrawableSavings.Equal(dbtest.Dec("5000")))
	assert.True(t, got.LockedSavings.Equal(dbtest.Dec("10000")))
	assert.True(t, got.MonthlyDeduction.Equal(dbtest.Dec("2500")))
	assert.Len(t, got.Details, 2)

	_, err = NewUsecase(env.UoW).SavingsBalance(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestAdminLoanStatistics(t *testing.T) {
	env := dbtest.Open(t)
	m := env.Member(t, "")
	cat := env.LoanCategory(t, "General", "")
	a := env.Admin(t)
	b := env.Admin(t)

	decide := func(status loan.Status, approver, rejecter *string) {
		l := env.Loan(t, m.MemberID, cat.CategoryID, "1000", status)
		require.NoError(t, env.DB.Model(l).Updates(map[string]any{"approved_by_id": approver, "rejected_by_id": rejecter}).Error)
	}
	decide(loan.StatusApproved, &a.AdminID, nil)
	decide(loan.StatusDisbursed, &a.AdminID, nil)
	decide(loan.StatusDisbursed, &a.AdminID, nil)
	decide(loan.StatusRejected, nil, &a.AdminID)
	decide(loan.StatusRejected, nil, &b.AdminID)

	got, err := NewUsecase(env.UoW).AdminLoanStatistics(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	stats := map[string]AdminStats{}
	for _, s := range got {
		stats[s.AdminID] = s
	}
	assert.Equal(t, AdminStats{AdminID: a.AdminID, FullName: a.FullName, Email: a.Email,
		ApprovedCount: 3, RejectedCount: 1, DisbursedCount: 2, TotalActions: 4}, stats[a.AdminID])
	assert.Equal(t, int64(1), stats[b.AdminID].RejectedCount)
	assert.Equal(t, int64(1), stats[b.AdminID].TotalActions)
}

func TestAllLoans(t *testing.T) {
	env := dbtest.Open(t)
	m1 := env.Member(t, "SN-1")
	m2 := env.Member(t, "SN-2")
	cat := env.LoanCategory(t, "Emergency", "")
	a := env.Admin(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rejected := env.Loan(t, m1.MemberID, cat.CategoryID, "2000", loan.StatusRejected)
	require.NoError(t, env.DB.Model(rejected).Update("rejected_by_id", a.AdminID).Error)
	active := env.Loan(t, m2.MemberID, cat.CategoryID, "9000", loan.StatusActive)
	require.NoError(t, env.DB.Model(active).Update("approved_by_id", a.AdminID).Error)
	repayment(t, env, active.LoanID, "4500", base.AddDate(0, 2, 0), false)
	repayment(t, env, active.LoanID, "4500", base.AddDate(0, 1, 0), true)

	got, err := NewUsecase(env.UoW).AllLoans(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	newest, oldest := got[0], got[1]
	assert.Equal(t, active.LoanID, newest.LoanID)
	assert.Equal(t, "Emergency", newest.Category)
	require.NotNil(t, newest.Member)
	assert.Equal(t, "SN-2", newest.Member.ServiceNumber)
	require.NotNil(t, newest.ApprovedBy)
	assert.Equal(t, a.FullName, newest.ApprovedBy.FullName)
	assert.Nil(t, newest.RejectedBy)
	require.Len(t, newest.Repayments, 2)
	assert.Equal(t, loan.RepaymentPaid, newest.Repayments[0].Status, "ordered by due date")
	assert.True(t, newest.ApprovedAmount.Decimal.Equal(dbtest.Dec("9000")))

	assert.Equal(t, rejected.LoanID, oldest.LoanID)
	assert.Equal(t, m1.MemberID, oldest.Member.MemberID)
	assert.Nil(t, oldest.ApprovedBy)
	require.NotNil(t, oldest.RejectedBy)
	assert.Equal(t, a.AdminID, oldest.RejectedBy.AdminID)
	assert.False(t, oldest.ApprovedAmount.Valid)
	assert.Empty(t, oldest.Repayments)
}

func TestAllLoans_Empty(t *testing.T) {
	got, err := NewUsecase(dbtest.Open(t).UoW).AllLoans(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAdminLoanStatistics_TwoGroupedQueries(t *testing.T) {
	approverCalls, rejecterCalls := 0, 0
	loans := &loanmock.Repo{
		CountByApproverFn: func(context.Context) ([]loan.AdminStatusCount, error) {
			approverCalls++
			return []loan.AdminStatusCount{
				{AdminID: "A1", Status: loan.StatusPending, Count: 1},
				{AdminID: "ghost", Status: loan.StatusApproved, Count: 9},
			}, nil
		},
		CountByRejecterFn: func(context.Context) ([]loan.AdminStatusCount, error) {
			rejecterCalls++
			return nil, nil
		},
	}
	admins := make([]member.Admin, 50)
	for i := range admins {
		admins[i] = member.Admin{AdminID: id.NewID32()}
	}
	admins[0].AdminID = "A1"
	repos := uow.Repos{Loans: loans, Members: adminList(admins)}

	got, err := NewUsecase(uowmock.Passthrough(repos, nil, nil)).AdminLoanStatistics(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 50)
	assert.Equal(t, int64(1), got[0].PendingCount)
	assert.Equal(t, 1, approverCalls)
	assert.Equal(t, 1, rejecterCalls)
}

type adminList []member.Admin

func (a adminList) GetByMemberID(context.Context, string) (*member.Member, error) {
	return nil, nil
}
func (a adminList) GetByMemberIDForUpdate(context.Context, string) (*member.Member, error) {
	return nil, nil
}
func (a adminList) GetByServiceNumber(context.Context, string) (*member.Member, error) {
	return nil, nil
}
func (a adminList) ListByMemberIDs(context.Context, []string) ([]member.Member, error) {
	return nil, nil
}
func (a adminList) Save(context.Context, *member.Member) error { return nil }
func (a adminList) ListAdmins(context.Context) ([]member.Admin, error) {
	return a, nil
}
