package savings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"coop-ledger/internal/domain/apperr"
	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/member"
	"coop-ledger/internal/domain/uow"
)

var tracer = otel.Tracer("coop-ledger/savings")

// PINVerifier checks a member's withdrawal PIN.
type PINVerifier interface {
	Verify(ctx context.Context, memberID, pin string) (bool, error)
}

type Usecase struct {
	uow    uow.UnitOfWork
	pin    PINVerifier
	policy Policy
	now    func() time.Time
}

func NewUsecase(u uow.UnitOfWork, pin PINVerifier, p Policy) *Usecase {
	return &Usecase{uow: u, pin: pin, policy: p, now: func() time.Time { return time.Now().UTC() }}
}

// Deposit credits a member's savings with one saving row and its
// SAVINGS_DEPOSIT ledger row sharing a reference.
func (u *Usecase) Deposit(ctx context.Context, in DepositInput) (*MovementResult, error) {
	ctx, span := tracer.Start(ctx, "Depositing savings")
	defer span.End()
	span.SetAttributes(attribute.String("member.id", in.MemberID), attribute.String("savings.category", in.CategoryName))

	typ, ok := u.policy.categoryType(in.CategoryName)
	if !ok {
		return nil, fail(span, apperr.Validation("invalid category, must be one of: %s", u.policy.names()))
	}
	if in.Amount.LessThan(u.policy.MinDeposit) {
		return nil, fail(span, apperr.Validation("you cannot deposit less than %s", u.policy.MinDeposit))
	}

	var out *MovementResult
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		cat, err := r.Savings.GetCategoryByType(ctx, typ)
		if err != nil {
			return err
		}
		if _, err := r.Members.GetByMemberID(ctx, in.MemberID); err != nil {
			return err
		}
		out, err = WriteMovement(ctx, r, Movement{
			MemberID:    in.MemberID,
			Category:    cat,
			Amount:      in.Amount,
			Type:        ledger.TypeSavingsDeposit,
			Description: "Savings deposit to " + cat.Name,
			At:          u.now(),
		})
		return err
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// Withdraw debits a QUICK savings category. The balance check and the
// insert run under the member row lock, so concurrent withdrawals of one
// member cannot overdraw.
func (u *Usecase) Withdraw(ctx context.Context, in WithdrawInput) (*MovementResult, error) {
	ctx, span := tracer.Start(ctx, "Withdrawing savings")
	defer span.End()
	span.SetAttributes(attribute.String("member.id", in.MemberID), attribute.String("savings.category", in.CategoryName))

	typ, ok := u.policy.categoryType(in.CategoryName)
	if !ok {
		return nil, fail(span, apperr.Validation("invalid category, must be one of: %s", u.policy.names()))
	}
	if !typ.AllowsWithdrawal() {
		return nil, fail(span, apperr.Validation("you cannot withdraw from %s savings, please contact the admin", typ))
	}
	if !in.Amount.IsPositive() {
		return nil, fail(span, apperr.Validation("amount must be greater than zero"))
	}

	valid, err := u.pin.Verify(ctx, in.MemberID, in.PIN)
	if err != nil {
		return nil, fail(span, err)
	}
	if !valid {
		return nil, fail(span, apperr.Authorization("invalid PIN"))
	}

	var out *MovementResult
	err = u.uow.WithinMemberTx(ctx, in.MemberID, func(r uow.Repos, m *member.Member) error {
		cat, err := r.Savings.GetCategoryByType(ctx, typ)
		if err != nil {
			return err
		}
		total, err := r.Savings.SumByMember(ctx, m.MemberID)
		if err != nil {
			return err
		}
		if total.LessThan(in.Amount) {
			return apperr.InsufficientFunds("insufficient savings balance")
		}
		out, err = WriteMovement(ctx, r, Movement{
			MemberID:          m.MemberID,
			Category:          cat,
			Amount:            in.Amount.Neg(),
			Type:              ledger.TypeSavingsWithdrawal,
			TransactionAmount: in.Amount,
			Description:       "Savings withdrawal from " + cat.Name,
			At:                u.now(),
		})
		return err
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// Adjust records an admin correction as an offsetting saving row plus one
// ADJUSTMENT ledger row for the absolute amount.
func (u *Usecase) Adjust(ctx context.Context, in AdjustInput) (*MovementResult, error) {
	ctx, span := tracer.Start(ctx, "Adjusting savings")
	defer span.End()
	span.SetAttributes(attribute.String("member.id", in.MemberID), attribute.String("admin.id", in.AdminID))

	if in.AdminID == "" {
		return nil, fail(span, apperr.Validation("admin is required"))
	}
	if in.Amount.IsZero() {
		return nil, fail(span, apperr.Validation("adjustment amount must not be zero"))
	}
	typ, ok := u.policy.categoryType(in.CategoryName)
	if !ok {
		return nil, fail(span, apperr.Validation("invalid category, must be one of: %s", u.policy.names()))
	}
	reason := in.Reason
	if reason == "" {
		reason = "No reason provided"
	}

	var out *MovementResult
	err := u.uow.WithinMemberTx(ctx, in.MemberID, func(r uow.Repos, m *member.Member) error {
		cat, err := r.Savings.GetCategoryByType(ctx, typ)
		if err != nil {
			return err
		}
		if in.Amount.IsNegative() {
			total, err := r.Savings.SumByMember(ctx, m.MemberID)
			if err != nil {
				return err
			}
			if total.Add(in.Amount).IsNegative() {
				return apperr.InsufficientFunds("adjustment of %s exceeds savings balance %s", in.Amount, total)
			}
		}
		out, err = WriteMovement(ctx, r, Movement{
			MemberID:          m.MemberID,
			Category:          cat,
			Amount:            in.Amount,
			Type:              ledger.TypeAdjustment,
			TransactionAmount: in.Amount.Abs(),
			Description:       "Adjustment by admin " + in.AdminID + ": " + reason,
			At:                u.now(),
		})
		return err
	})
	if err != nil {
		return nil, fail(span, err)
	}
	logrus.WithFields(logrus.Fields{
		"member_id": in.MemberID,
		"admin_id":  in.AdminID,
		"amount":    in.Amount.String(),
	}).Info("savings adjusted")
	return out, nil
}

// EditDeduction sets the member's monthly payroll deduction.
func (u *Usecase) EditDeduction(ctx context.Context, memberID string, amount decimal.Decimal) (*member.Member, error) {
	ctx, span := tracer.Start(ctx, "Editing monthly deduction")
	defer span.End()
	span.SetAttributes(attribute.String("member.id", memberID))

	if amount.IsNegative() {
		return nil, fail(span, apperr.Validation("monthly deduction must not be negative"))
	}

	var out *member.Member
	err := u.uow.WithinMemberTx(ctx, memberID, func(r uow.Repos, m *member.Member) error {
		m.MonthlyDeduction = amount
		m.UpdatedAt = u.now()
		if err := r.Members.Save(ctx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// TotalSavings is the signed sum of all the member's saving rows.
func (u *Usecase) TotalSavings(ctx context.Context, memberID string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		total, err = r.Savings.SumByMember(ctx, memberID)
		return err
	})
	return total, err
}

// ListSavings returns every saving row, newest first, with the society-wide total.
func (u *Usecase) ListSavings(ctx context.Context) (*SavingsList, error) {
	out := &SavingsList{}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		rows, err := r.Savings.ListAll(ctx)
		if err != nil {
			return err
		}
		total, err := r.Savings.SumAll(ctx)
		if err != nil {
			return err
		}
		out.Savings, out.Total = rows, total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
