package loan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coop-ledger/internal/adapter/repository/mysql"
	"coop-ledger/internal/adapter/verifier"
	"coop-ledger/internal/domain/apperr"
	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/uow"
	"coop-ledger/internal/testutil/dbtest"
	"coop-ledger/internal/testutil/ledgermock"
	"coop-ledger/internal/testutil/loanmock"
	"coop-ledger/internal/testutil/uowmock"
)

var testPolicy = Policy{OTPTTL: 10 * time.Minute, OTPDigits: 6}

type fixture struct {
	env      *dbtest.Env
	uc       *Usecase
	otp      *verifier.LoanOTP
	memberID string
	catID    string
	adminID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := dbtest.Open(t)
	otp := verifier.NewLoanOTP(mysql.NewLoanRepository(env.DB))
	uc := NewUsecase(env.UoW, otp, testPolicy)
	return &fixture{
		env:      env,
		uc:       uc,
		otp:      otp,
		memberID: env.Member(t, "").MemberID,
		catID:    env.LoanCategory(t, "Emergency", "1000000").CategoryID,
		adminID:  env.Admin(t).AdminID,
	}
}

// freeze pins the usecase and the OTP verifier to one instant.
func (f *fixture) freeze(at time.Time) {
	now := func() time.Time { return at }
	f.uc.now = now
	f.otp.WithClock(now)
}

func (f *fixture) apply(t *testing.T, amount string) *ApplyResult {
	t.Helper()
	res, err := f.uc.Apply(context.Background(), ApplyInput{MemberID: f.memberID, CategoryID: f.catID, Amount: dbtest.Dec(amount)})
	require.NoError(t, err)
	return res
}

func (f *fixture) pending(t *testing.T, amount string) string {
	t.Helper()
	res := f.apply(t, amount)
	_, err := f.uc.Confirm(context.Background(), res.LoanID, res.OTP, f.memberID)
	require.NoError(t, err)
	return res.LoanID
}

func (f *fixture) load(t *testing.T, loanID string) *loan.Loan {
	t.Helper()
	var l loan.Loan
	require.NoError(t, f.env.DB.Where("loan_id = ?", loanID).First(&l).Error)
	return &l
}

func (f *fixture) txns(t *testing.T, loanID string) []ledger.Transaction {
	t.Helper()
	var out []ledger.Transaction
	require.NoError(t, f.env.DB.Where("loan_id = ?", loanID).Order("id").Find(&out).Error)
	return out
}

func TestApply_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive := f.env.LoanCategory(t, "Legacy", "")
	require.NoError(t, f.env.DB.Model(inactive).Update("is_active", false).Error)

	tests := []struct {
		name string
		in   ApplyInput
		want error
	}{
		{"zero amount", ApplyInput{MemberID: f.memberID, CategoryID: f.catID, Amount: dbtest.Dec("0")}, apperr.ErrValidation},
		{"negative amount", ApplyInput{MemberID: f.memberID, CategoryID: f.catID, Amount: dbtest.Dec("-10")}, apperr.ErrValidation},
		{"missing member id", ApplyInput{CategoryID: f.catID, Amount: dbtest.Dec("10")}, apperr.ErrValidation},
		{"unknown member", ApplyInput{MemberID: "ghost", CategoryID: f.catID, Amount: dbtest.Dec("10")}, apperr.ErrNotFound},
		{"unknown category", ApplyInput{MemberID: f.memberID, CategoryID: "nope", Amount: dbtest.Dec("10")}, apperr.ErrNotFound},
		{"inactive category", ApplyInput{MemberID: f.memberID, CategoryID: inactive.CategoryID, Amount: dbtest.Dec("10")}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Apply(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, f.env.Count(t, &loan.Loan{}, ""))
}

func TestApply_CreatesApplicationWithoutLedgerRow(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	f.uc.now = func() time.Time { return fixed }

	// above the category ceiling: applications are not capped
	res := f.apply(t, "2500000")

	assert.Equal(t, string(loan.StatusApplied), res.Status)
	assert.Len(t, res.OTP, 6)
	assert.Regexp(t, `^LN-20240315-[A-F0-9]{12}$`, res.Reference)
	assert.True(t, res.OTPExpiresAt.Equal(fixed.Add(10*time.Minute)))

	l := f.load(t, res.LoanID)
	assert.Equal(t, loan.StatusApplied, l.Status)
	assert.True(t, l.InterestRate.Equal(dbtest.Dec("0.05")))
	assert.Equal(t, 6, l.DurationMonths)
	assert.False(t, l.ApprovedAmount.Valid)
	require.NotNil(t, l.OTP)
	assert.Equal(t, res.OTP, *l.OTP)

	assert.Empty(t, f.txns(t, res.LoanID))
}

func TestConfirm_RoundTripThenConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.apply(t, "100000")

	l, err := f.uc.Confirm(ctx, res.LoanID, res.OTP, f.memberID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusPending, l.Status)
	assert.Nil(t, l.OTP)
	assert.Nil(t, l.OTPExpiresAt)

	stored := f.load(t, res.LoanID)
	assert.Equal(t, loan.StatusPending, stored.Status)
	assert.Nil(t, stored.OTP)

	txns := f.txns(t, res.LoanID)
	require.Len(t, txns, 1)
	assert.Equal(t, ledger.TypeLoanPending, txns[0].Type)
	assert.Equal(t, ledger.StatusPending, txns[0].Status)
	assert.True(t, txns[0].Amount.Equal(dbtest.Dec("100000")))

	_, err = f.uc.Confirm(ctx, res.LoanID, res.OTP, f.memberID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Len(t, f.txns(t, res.LoanID), 1)
}

func TestConfirm_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("wrong otp", func(t *testing.T) {
		res := f.apply(t, "5000")
		wrong := "000000"
		if res.OTP == wrong {
			wrong = "111111"
		}
		_, err := f.uc.Confirm(ctx, res.LoanID, wrong, f.memberID)
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
		assert.Equal(t, loan.StatusApplied, f.load(t, res.LoanID).Status)
	})

	t.Run("expired otp", func(t *testing.T) {
		f.uc.now = func() time.Time { return time.Now().UTC().Add(-time.Hour) }
		res := f.apply(t, "5000")
		f.uc.now = func() time.Time { return time.Now().UTC() }

		_, err := f.uc.Confirm(ctx, res.LoanID, res.OTP, f.memberID)
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
	})

	t.Run("other member", func(t *testing.T) {
		res := f.apply(t, "5000")
		_, err := f.uc.Confirm(ctx, res.LoanID, res.OTP, "someone-else")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Empty(t, f.txns(t, res.LoanID))
	})

	t.Run("unknown loan", func(t *testing.T) {
		_, err := f.uc.Confirm(ctx, "missing", "123456", f.memberID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestConfirm_GuardRejectsRaceAfterPrecheck(t *testing.T) {
	code := "123456"
	expires := time.Now().Add(time.Minute)
	l := &loan.Loan{LoanID: "L1", MemberID: "M1", Status: loan.StatusApplied, Amount: dbtest.Dec("100"), OTP: &code, OTPExpiresAt: &expires}

	calls := 0
	txns := &ledgermock.Repo{
		FindPendingForLoanFn: func(context.Context, string) (*ledger.Transaction, error) {
			calls++
			return nil, apperr.NotFound("pending confirmation for loan L1 not found")
		},
		// a concurrent confirmation committed first
		CreateFn: func(context.Context, *ledger.Transaction) error {
			return apperr.Conflict("loan confirmation already in progress")
		},
	}
	repos := uow.Repos{Loans: &loanmock.Repo{}, Ledger: txns}
	uc := NewUsecase(uowmock.Passthrough(repos, l, nil), verifier.NewLoanOTP(&loanmock.Repo{
		GetByLoanIDFn: func(context.Context, string) (*loan.Loan, error) { return l, nil },
	}), testPolicy)

	_, err := uc.Confirm(context.Background(), "L1", code, "M1")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 2, calls, "pending check runs before and inside the unit of work")
}

func TestApprove_Scenario(t *testing.T) {
	f := newFixture(t)
	loanID := f.pending(t, "100000")

	res := f.uc.Approve(context.Background(), loanID, f.adminID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Loan approved successfully", res.Message)
	assert.True(t, res.Loan.Approved().Equal(dbtest.Dec("100000")))
	require.NotNil(t, res.Transaction)
	assert.Equal(t, ledger.TypeLoanApproved, res.Transaction.Type)
	assert.True(t, res.Transaction.Amount.Equal(dbtest.Dec("100000")))

	stored := f.load(t, loanID)
	assert.Equal(t, loan.StatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovedByID)
	assert.Equal(t, f.adminID, *stored.ApprovedByID)
	assert.True(t, stored.Approved().Equal(dbtest.Dec("100000")))

	approved := f.env.Count(t, &ledger.Transaction{}, "loan_id = ? AND type = ?", loanID, ledger.TypeLoanApproved)
	assert.Equal(t, int64(1), approved)
}

func TestApproveReject_RequirePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	applied := f.apply(t, "5000").LoanID
	res := f.uc.Approve(ctx, applied, f.adminID)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, apperr.ErrInvalidState)
	assert.Equal(t, "only pending loans can be approved", res.Error)

	res = f.uc.Reject(ctx, applied, f.adminID, "")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, apperr.ErrInvalidState)

	stored := f.load(t, applied)
	assert.Equal(t, loan.StatusApplied, stored.Status)
	assert.Nil(t, stored.ApprovedByID)
	assert.Empty(t, f.txns(t, applied))

	res = f.uc.Approve(ctx, "missing", f.adminID)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, apperr.ErrNotFound)

	// approving twice leaves the first decision intact
	loanID := f.pending(t, "7000")
	require.True(t, f.uc.Approve(ctx, loanID, f.adminID).Success)
	res = f.uc.Reject(ctx, loanID, "other-admin", "late")
	assert.ErrorIs(t, res.Err, apperr.ErrInvalidState)
	assert.Equal(t, loan.StatusApproved, f.load(t, loanID).Status)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	withReason := f.pending(t, "20000")
	res := f.uc.Reject(ctx, withReason, f.adminID, "insufficient guarantors")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Loan rejected: insufficient guarantors", res.Transaction.Description)
	assert.True(t, res.Transaction.Amount.Equal(dbtest.Dec("20000")))

	stored := f.load(t, withReason)
	assert.Equal(t, loan.StatusRejected, stored.Status)
	assert.False(t, stored.ApprovedAmount.Valid)
	require.NotNil(t, stored.RejectedByID)
	assert.Equal(t, f.adminID, *stored.RejectedByID)

	noReason := f.pending(t, "30000")
	res = f.uc.Reject(ctx, noReason, f.adminID, "")
	require.True(t, res.Success)
	assert.Equal(t, "Loan rejected: No reason provided", res.Transaction.Description)
}

func TestApprove_CapturesStoreFailure(t *testing.T) {
	l := &loan.Loan{LoanID: "L1", MemberID: "M1", Status: loan.StatusPending, Amount: dbtest.Dec("100")}
	boom := errors.New("ledger write failed")
	repos := uow.Repos{
		Loans:  &loanmock.Repo{},
		Ledger: &ledgermock.Repo{CreateFn: func(context.Context, *ledger.Transaction) error { return boom }},
	}
	uc := NewUsecase(uowmock.Passthrough(repos, l, nil), nil, testPolicy)

	res := uc.Approve(context.Background(), "L1", "A1")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, "ledger write failed", res.Error)
	assert.Nil(t, res.Loan)
}

func (f *fixture) approved(t *testing.T, amount string) string {
	t.Helper()
	loanID := f.pending(t, amount)
	res := f.uc.Approve(context.Background(), loanID, f.adminID)
	require.True(t, res.Success, res.Error)
	return loanID
}

func schedule(start time.Time, amounts ...string) []ScheduleItem {
	out := make([]ScheduleItem, 0, len(amounts))
	for i, a := range amounts {
		out = append(out, ScheduleItem{DueDate: start.AddDate(0, i+1, 0), Amount: dbtest.Dec(a)})
	}
	return out
}

func TestDisburse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fixed := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	f.freeze(fixed)

	loanID := f.approved(t, "60000")

	t.Run("validation", func(t *testing.T) {
		_, err := f.uc.Disburse(ctx, DisburseInput{LoanID: loanID, AdminID: f.adminID})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		_, err = f.uc.Disburse(ctx, DisburseInput{LoanID: loanID, AdminID: f.adminID, Schedule: schedule(fixed, "30000", "0")})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		_, err = f.uc.Disburse(ctx, DisburseInput{LoanID: loanID, AdminID: f.adminID, Schedule: schedule(fixed, "30000", "29999.99")})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		_, err = f.uc.Disburse(ctx, DisburseInput{LoanID: loanID, Schedule: schedule(fixed, "60000")})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		assert.Equal(t, loan.StatusApproved, f.load(t, loanID).Status)
		assert.Zero(t, f.env.Count(t, &loan.Repayment{}, "loan_id = ?", loanID))
	})

	res, err := f.uc.Disburse(ctx, DisburseInput{LoanID: loanID, AdminID: f.adminID, Schedule: schedule(fixed, "20000", "20000", "20000")})
	require.NoError(t, err)
	assert.Equal(t, loan.StatusDisbursed, res.Loan.Status)
	assert.Len(t, res.Repayments, 3)
	assert.Equal(t, ledger.TypeLoanDisbursement, res.Transaction.Type)
	assert.True(t, res.Transaction.Amount.Equal(dbtest.Dec("60000")))

	stored := f.load(t, loanID)
	require.NotNil(t, stored.StartDate)
	require.NotNil(t, stored.EndDate)
	assert.True(t, stored.StartDate.Equal(fixed))
	assert.True(t, stored.EndDate.Equal(fixed.AddDate(0, 6, 0)))
	assert.Equal(t, int64(3), f.env.Count(t, &loan.Repayment{}, "loan_id = ? AND status = ?", loanID, loan.RepaymentPending))

	_, err = f.uc.Disburse(ctx, DisburseInput{LoanID: loanID, AdminID: f.adminID, Schedule: schedule(fixed, "60000")})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestRepaymentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loanID := f.approved(t, "10000")
	disbursed, err := f.uc.Disburse(ctx, DisburseInput{LoanID: loanID, AdminID: f.adminID, Schedule: schedule(time.Now(), "4000", "6000")})
	require.NoError(t, err)
	first, second := disbursed.Repayments[0], disbursed.Repayments[1]

	_, err = f.uc.RecordRepayment(ctx, loanID, first.RepaymentID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState, "disbursed loans are not yet in repayment")

	l, err := f.uc.Activate(ctx, loanID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusActive, l.Status)

	_, err = f.uc.Activate(ctx, loanID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	res, err := f.uc.RecordRepayment(ctx, loanID, first.RepaymentID)
	require.NoError(t, err)
	assert.Equal(t, loan.RepaymentPaid, res.Repayment.Status)
	assert.NotNil(t, res.Repayment.PaidAt)
	assert.True(t, res.Transaction.Amount.Equal(dbtest.Dec("4000")))
	assert.Equal(t, loan.StatusActive, res.Loan.Status)

	_, err = f.uc.RecordRepayment(ctx, loanID, first.RepaymentID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	other := f.approved(t, "500")
	_, err = f.uc.RecordRepayment(ctx, loanID, "unknown")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.uc.RecordRepayment(ctx, other, second.RepaymentID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	res, err = f.uc.RecordRepayment(ctx, loanID, second.RepaymentID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusCompleted, res.Loan.Status)
	assert.Equal(t, loan.StatusCompleted, f.load(t, loanID).Status)

	repayments := f.env.Count(t, &ledger.Transaction{}, "loan_id = ? AND type = ?", loanID, ledger.TypeLoanRepayment)
	assert.Equal(t, int64(2), repayments)
}

func TestRecordRepayment_ForeignRepayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.approved(t, "1000")
	b := f.approved(t, "1000")
	resA, err := f.uc.Disburse(ctx, DisburseInput{LoanID: a, AdminID: f.adminID, Schedule: schedule(time.Now(), "1000")})
	require.NoError(t, err)
	_, err = f.uc.Disburse(ctx, DisburseInput{LoanID: b, AdminID: f.adminID, Schedule: schedule(time.Now(), "1000")})
	require.NoError(t, err)
	_, err = f.uc.Activate(ctx, b)
	require.NoError(t, err)

	_, err = f.uc.RecordRepayment(ctx, b, resA.Repayments[0].RepaymentID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRecordRepayment_CannotExceedApproved(t *testing.T) {
	l := &loan.Loan{LoanID: "L1", MemberID: "M1", Status: loan.StatusActive}
	l.ApprovedAmount.Valid = true
	l.ApprovedAmount.Decimal = dbtest.Dec("1000")

	rp := &loan.Repayment{RepaymentID: "R2", LoanID: "L1", Amount: dbtest.Dec("600"), Status: loan.RepaymentPending}
	repayments := &loanmock.RepaymentRepo{
		GetForUpdateFn: func(context.Context, string) (*loan.Repayment, error) { return rp, nil },
		ListByLoanIDsFn: func(context.Context, []string) ([]loan.Repayment, error) {
			return []loan.Repayment{
				{RepaymentID: "R1", LoanID: "L1", Amount: dbtest.Dec("500"), Status: loan.RepaymentPaid},
				*rp,
			}, nil
		},
	}
	txns := &ledgermock.Repo{}
	uc := NewUsecase(uowmock.Passthrough(uow.Repos{Loans: &loanmock.Repo{}, Repayments: repayments, Ledger: txns}, l, nil), nil, testPolicy)

	_, err := uc.RecordRepayment(context.Background(), "L1", "R2")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, txns.Created)
	assert.Equal(t, loan.RepaymentPending, rp.Status)
}

func TestMarkDefaulted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loanID := f.approved(t, "3000")
	_, err := f.uc.MarkDefaulted(ctx, loanID, f.adminID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = f.uc.Disburse(ctx, DisburseInput{LoanID: loanID, AdminID: f.adminID, Schedule: schedule(time.Now(), "3000")})
	require.NoError(t, err)
	_, err = f.uc.Activate(ctx, loanID)
	require.NoError(t, err)

	_, err = f.uc.MarkDefaulted(ctx, loanID, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	l, err := f.uc.MarkDefaulted(ctx, loanID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusDefaulted, l.Status)
	assert.True(t, l.Status.IsTerminal())
}

func TestListCategories_ActiveOnly(t *testing.T) {
	f := newFixture(t)
	closed := f.env.LoanCategory(t, "Closed", "")
	require.NoError(t, f.env.DB.Model(closed).Update("is_active", false).Error)

	cats, err := f.uc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, f.catID, cats[0].CategoryID)
}
