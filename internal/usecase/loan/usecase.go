package loan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"coop-ledger/internal/domain/apperr"
	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/uow"
	"coop-ledger/pkg/id"
)

var tracer = otel.Tracer("coop-ledger/loan")

// OTPVerifier checks a loan confirmation code.
type OTPVerifier interface {
	Verify(ctx context.Context, loanID, code string) (bool, error)
}

type Usecase struct {
	uow    uow.UnitOfWork
	otp    OTPVerifier
	policy Policy
	now    func() time.Time
}

func NewUsecase(u uow.UnitOfWork, otp OTPVerifier, p Policy) *Usecase {
	return &Usecase{uow: u, otp: otp, policy: p, now: func() time.Time { return time.Now().UTC() }}
}

// Apply records a loan application with an outstanding OTP challenge.
// No ledger row is written until the member confirms.
func (u *Usecase) Apply(ctx context.Context, in ApplyInput) (*ApplyResult, error) {
	ctx, span := tracer.Start(ctx, "Applying for loan")
	defer span.End()

	if in.MemberID == "" || in.CategoryID == "" {
		return nil, apperr.Validation("member and category are required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.Validation("loan amount must be greater than zero")
	}

	otp, err := id.NewOTP(u.policy.OTPDigits)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	now := u.now()
	expires := now.Add(u.policy.OTPTTL)

	var out *ApplyResult
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if _, err := r.Members.GetByMemberID(ctx, in.MemberID); err != nil {
			return err
		}
		cat, err := r.Loans.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		if !cat.IsActive {
			return apperr.NotFound("loan category %s not found", in.CategoryID)
		}

		l := &loan.Loan{
			LoanID:         id.NewID32(),
			MemberID:       in.MemberID,
			CategoryID:     cat.CategoryID,
			Amount:         in.Amount,
			InterestRate:   cat.InterestRate,
			DurationMonths: cat.DurationMonths,
			Status:         loan.StatusApplied,
			OTP:            &otp,
			OTPExpiresAt:   &expires,
			Reference:      id.NewReference("LN", now),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		out = &ApplyResult{
			LoanID:       l.LoanID,
			Reference:    l.Reference,
			Status:       string(l.Status),
			OTP:          otp,
			OTPExpiresAt: expires,
		}
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("loan.id", out.LoanID))
	return out, nil
}

// Confirm verifies the OTP and moves the loan APPLIED -> PENDING together
// with its single PENDING ledger row. The ledger's pending guard index
// rejects a concurrent second confirmation.
func (u *Usecase) Confirm(ctx context.Context, loanID, code, memberID string) (*loan.Loan, error) {
	ctx, span := tracer.Start(ctx, "Confirming loan with OTP")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID))

	if err := u.checkNotPending(ctx, loanID); err != nil {
		return nil, fail(span, err)
	}

	ok, err := u.otp.Verify(ctx, loanID, code)
	if err != nil {
		return nil, fail(span, err)
	}
	if !ok {
		return nil, fail(span, apperr.Authorization("invalid or expired OTP"))
	}

	var out *loan.Loan
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if l.MemberID != memberID {
			return apperr.NotFound("loan %s not found", loanID)
		}
		if err := pendingConflict(ctx, r, loanID); err != nil {
			return err
		}
		now := u.now()
		if err := l.TransitionTo(loan.StatusPending, now); err != nil {
			return err
		}
		l.OTP = nil
		l.OTPExpiresAt = nil
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		guard := l.LoanID
		tx := &ledger.Transaction{
			TransactionID: id.NewID32(),
			LoanID:        &guard,
			MemberID:      &l.MemberID,
			Type:          ledger.TypeLoanPending,
			Amount:        l.Amount,
			Status:        ledger.StatusPending,
			Reference:     l.Reference,
			Description:   "Loan application verified via OTP",
			PendingGuard:  &guard,
			CreatedAt:     now,
		}
		if err := r.Ledger.Create(ctx, tx); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

func (u *Usecase) checkNotPending(ctx context.Context, loanID string) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return pendingConflict(ctx, r, loanID)
	})
}

func pendingConflict(ctx context.Context, r uow.Repos, loanID string) error {
	_, err := r.Ledger.FindPendingForLoan(ctx, loanID)
	switch {
	case err == nil:
		return apperr.Conflict("loan confirmation already in progress")
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	}
	return err
}

// Approve moves a PENDING loan to APPROVED for the full requested amount.
// Failures are reported in the result, never returned.
func (u *Usecase) Approve(ctx context.Context, loanID, adminID string) DecisionResult {
	ctx, span := tracer.Start(ctx, "Approving loan")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID), attribute.String("admin.id", adminID))

	var res DecisionResult
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if l.Status != loan.StatusPending {
			return apperr.InvalidState("only pending loans can be approved")
		}
		now := u.now()
		if err := l.TransitionTo(loan.StatusApproved, now); err != nil {
			return err
		}
		l.ApprovedAmount = decimal.NewNullDecimal(l.Amount)
		l.ApprovedByID = &adminID
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		tx := &ledger.Transaction{
			TransactionID: id.NewID32(),
			LoanID:        &l.LoanID,
			MemberID:      &l.MemberID,
			Type:          ledger.TypeLoanApproved,
			Amount:        l.Amount,
			Status:        ledger.StatusCompleted,
			Reference:     l.Reference,
			Description:   "Loan approved by admin",
			CreatedAt:     now,
		}
		if err := r.Ledger.Create(ctx, tx); err != nil {
			return err
		}
		res = DecisionResult{Success: true, Loan: l, Transaction: tx, Message: "Loan approved successfully"}
		return nil
	})
	if err != nil {
		return u.decisionFailure(span, "approve", loanID, err)
	}
	return res
}

// Reject moves a PENDING loan to REJECTED. The ledger row carries the
// requested amount and the reason.
func (u *Usecase) Reject(ctx context.Context, loanID, adminID, reason string) DecisionResult {
	ctx, span := tracer.Start(ctx, "Rejecting loan")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID), attribute.String("admin.id", adminID))

	if reason == "" {
		reason = "No reason provided"
	}

	var res DecisionResult
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if l.Status != loan.StatusPending {
			return apperr.InvalidState("only pending loans can be rejected")
		}
		now := u.now()
		if err := l.TransitionTo(loan.StatusRejected, now); err != nil {
			return err
		}
		l.RejectedByID = &adminID
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		tx := &ledger.Transaction{
			TransactionID: id.NewID32(),
			LoanID:        &l.LoanID,
			MemberID:      &l.MemberID,
			Type:          ledger.TypeLoanRejected,
			Amount:        l.Amount,
			Status:        ledger.StatusCompleted,
			Reference:     l.Reference,
			Description:   "Loan rejected: " + reason,
			CreatedAt:     now,
		}
		if err := r.Ledger.Create(ctx, tx); err != nil {
			return err
		}
		res = DecisionResult{Success: true, Loan: l, Transaction: tx, Message: "Loan rejected successfully"}
		return nil
	})
	if err != nil {
		return u.decisionFailure(span, "reject", loanID, err)
	}
	return res
}

func (u *Usecase) decisionFailure(span trace.Span, action, loanID string, err error) DecisionResult {
	fail(span, err)
	logrus.WithFields(logrus.Fields{"loan_id": loanID, "action": action}).WithError(err).Warn("loan decision failed")
	return DecisionResult{Success: false, Error: message(err), Err: err}
}

// Disburse moves an APPROVED loan to DISBURSED, stores the repayment
// schedule and writes one disbursement ledger row for the approved amount.
func (u *Usecase) Disburse(ctx context.Context, in DisburseInput) (*DisburseResult, error) {
	ctx, span := tracer.Start(ctx, "Disbursing loan")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", in.LoanID))

	if in.AdminID == "" {
		return nil, fail(span, apperr.Validation("admin is required"))
	}
	if len(in.Schedule) == 0 {
		return nil, fail(span, apperr.Validation("repayment schedule must have at least one installment"))
	}
	total := decimal.Zero
	for i, item := range in.Schedule {
		if !item.Amount.IsPositive() {
			return nil, fail(span, apperr.Validation("installment %d must have a positive amount", i+1))
		}
		if item.DueDate.IsZero() {
			return nil, fail(span, apperr.Validation("installment %d must have a due date", i+1))
		}
		total = total.Add(item.Amount)
	}

	var out *DisburseResult
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		now := u.now()
		if err := l.TransitionTo(loan.StatusDisbursed, now); err != nil {
			return err
		}
		if !total.Equal(l.Approved()) {
			return apperr.Validation("repayment schedule totals %s, approved amount is %s", total, l.Approved())
		}
		start := now
		end := start.AddDate(0, l.DurationMonths, 0)
		l.StartDate = &start
		l.EndDate = &end
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		rows := make([]loan.Repayment, 0, len(in.Schedule))
		for _, item := range in.Schedule {
			rows = append(rows, loan.Repayment{
				RepaymentID: id.NewID32(),
				LoanID:      l.LoanID,
				DueDate:     item.DueDate.UTC(),
				Amount:      item.Amount,
				Status:      loan.RepaymentPending,
				CreatedAt:   now,
			})
		}
		if err := r.Repayments.CreateBatch(ctx, rows); err != nil {
			return err
		}

		tx := &ledger.Transaction{
			TransactionID: id.NewID32(),
			LoanID:        &l.LoanID,
			MemberID:      &l.MemberID,
			Type:          ledger.TypeLoanDisbursement,
			Amount:        l.Approved(),
			Status:        ledger.StatusCompleted,
			Reference:     l.Reference,
			Description:   "Loan disbursed by admin " + in.AdminID,
			CreatedAt:     now,
		}
		if err := r.Ledger.Create(ctx, tx); err != nil {
			return err
		}
		out = &DisburseResult{Loan: l, Repayments: rows, Transaction: tx}
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// Activate moves a DISBURSED loan into repayment.
func (u *Usecase) Activate(ctx context.Context, loanID string) (*loan.Loan, error) {
	return u.transition(ctx, "Activating loan", loanID, loan.StatusActive)
}

// MarkDefaulted closes an ACTIVE loan as DEFAULTED.
func (u *Usecase) MarkDefaulted(ctx context.Context, loanID, adminID string) (*loan.Loan, error) {
	if adminID == "" {
		return nil, apperr.Validation("admin is required")
	}
	l, err := u.transition(ctx, "Marking loan defaulted", loanID, loan.StatusDefaulted)
	if err == nil {
		logrus.WithFields(logrus.Fields{"loan_id": loanID, "admin_id": adminID}).Info("loan marked defaulted")
	}
	return l, err
}

func (u *Usecase) transition(ctx context.Context, op, loanID string, to loan.Status) (*loan.Loan, error) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID))

	var out *loan.Loan
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if err := l.TransitionTo(to, u.now()); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// RecordRepayment marks one installment PAID with its ledger row. The
// loan completes when no installment is left pending.
func (u *Usecase) RecordRepayment(ctx context.Context, loanID, repaymentID string) (*RepaymentResult, error) {
	ctx, span := tracer.Start(ctx, "Recording loan repayment")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID), attribute.String("repayment.id", repaymentID))

	var out *RepaymentResult
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if l.Status != loan.StatusActive {
			return apperr.InvalidState("repayments can only be recorded on active loans, loan %s is %s", loanID, l.Status)
		}
		rp, err := r.Repayments.GetForUpdate(ctx, repaymentID)
		if err != nil {
			return err
		}
		if rp.LoanID != l.LoanID {
			return apperr.NotFound("repayment %s not found", repaymentID)
		}
		if rp.Status != loan.RepaymentPending {
			return apperr.InvalidState("repayment %s is already %s", repaymentID, rp.Status)
		}

		all, err := r.Repayments.ListByLoanIDs(ctx, []string{l.LoanID})
		if err != nil {
			return err
		}
		paid := rp.Amount
		pendingLeft := 0
		for _, other := range all {
			if other.RepaymentID == rp.RepaymentID {
				continue
			}
			switch other.Status {
			case loan.RepaymentPaid:
				paid = paid.Add(other.Amount)
			case loan.RepaymentPending:
				pendingLeft++
			}
		}
		if paid.GreaterThan(l.Approved()) {
			return apperr.Validation("repayments would total %s, above the approved amount %s", paid, l.Approved())
		}

		now := u.now()
		rp.Status = loan.RepaymentPaid
		rp.PaidAt = &now
		if err := r.Repayments.Save(ctx, rp); err != nil {
			return err
		}

		tx := &ledger.Transaction{
			TransactionID: id.NewID32(),
			LoanID:        &l.LoanID,
			MemberID:      &l.MemberID,
			Type:          ledger.TypeLoanRepayment,
			Amount:        rp.Amount,
			Status:        ledger.StatusCompleted,
			Reference:     l.Reference,
			Description:   fmt.Sprintf("Repayment due %s", rp.DueDate.Format("2006-01-02")),
			CreatedAt:     now,
		}
		if err := r.Ledger.Create(ctx, tx); err != nil {
			return err
		}

		if pendingLeft == 0 {
			if err := l.TransitionTo(loan.StatusCompleted, now); err != nil {
				return err
			}
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
		}
		out = &RepaymentResult{Loan: l, Repayment: rp, Transaction: tx}
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// ListCategories returns the loan categories open for applications.
func (u *Usecase) ListCategories(ctx context.Context) ([]loan.Category, error) {
	var out []loan.Category
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cats, err := r.Loans.ListCategories(ctx, true)
		out = cats
		return err
	})
	return out, err
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// message is the caller-facing text of err.
func message(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
