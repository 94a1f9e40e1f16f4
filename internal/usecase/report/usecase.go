package report

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/uow"
)

// Usecase derives read models from persisted rows on every call. It
// never writes.
type Usecase struct {
	uow uow.UnitOfWork
}

func NewUsecase(u uow.UnitOfWork) *Usecase { return &Usecase{uow: u} }

// figures are the repayment numbers shared by balance and history.
type figures struct {
	totalPaid   decimal.Decimal
	outstanding decimal.Decimal
	progress    RepaymentProgress
	next        *NextPayment
}

// compute expects reps ordered by due date.
func compute(l *loan.Loan, reps []loan.Repayment) figures {
	f := figures{totalPaid: decimal.Zero}
	for _, r := range reps {
		switch r.Status {
		case loan.RepaymentPaid:
			f.totalPaid = f.totalPaid.Add(r.Amount)
			f.progress.Paid++
		case loan.RepaymentPending:
			if f.next == nil {
				f.next = &NextPayment{DueDate: r.DueDate, Amount: r.Amount}
			}
		}
	}
	f.outstanding = decimal.Max(decimal.Zero, l.Approved().Sub(f.totalPaid))
	f.progress.Remaining = len(reps) - f.progress.Paid
	if len(reps) > 0 {
		f.progress.Percentage = int(math.Round(float64(f.progress.Paid) / float64(len(reps)) * 100))
	}
	return f
}

func groupRepayments(reps []loan.Repayment) map[string][]loan.Repayment {
	out := make(map[string][]loan.Repayment)
	for _, r := range reps {
		out[r.LoanID] = append(out[r.LoanID], r)
	}
	return out
}

func repaymentViews(reps []loan.Repayment) []RepaymentView {
	views := make([]RepaymentView, 0, len(reps))
	for _, rp := range reps {
		views = append(views, RepaymentView{DueDate: rp.DueDate, Amount: rp.Amount, Status: rp.Status, PaidDate: rp.PaidAt})
	}
	return views
}

func loanIDs(loans []loan.Loan) []string {
	ids := make([]string, 0, len(loans))
	for _, l := range loans {
		ids = append(ids, l.LoanID)
	}
	return ids
}

func categoryNames(cats []loan.Category) map[string]string {
	out := make(map[string]string, len(cats))
	for _, c := range cats {
		out[c.CategoryID] = c.Name
	}
	return out
}

// MemberLoanBalance reports every loan of the member newest first, a
// summary across them, and the society-wide collected amount per category.
func (u *Usecase) MemberLoanBalance(ctx context.Context, memberID string) (*MemberLoanBalance, error) {
	out := &MemberLoanBalance{
		Loans:      []LoanBalance{},
		Categories: []CategorySummary{},
		Summary:    BalanceSummary{TotalOutstanding: decimal.Zero, TotalPaid: decimal.Zero},
	}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		loans, err := r.Loans.ListByMemberID(ctx, memberID)
		if err != nil {
			return err
		}
		reps, err := r.Repayments.ListByLoanIDs(ctx, loanIDs(loans))
		if err != nil {
			return err
		}
		cats, err := r.Loans.ListCategories(ctx, false)
		if err != nil {
			return err
		}
		collected, err := r.Loans.SumDisbursedByCategory(ctx)
		if err != nil {
			return err
		}

		names := categoryNames(cats)
		byLoan := groupRepayments(reps)
		for i := range loans {
			l := &loans[i]
			f := compute(l, byLoan[l.LoanID])
			out.Loans = append(out.Loans, LoanBalance{
				LoanID:             l.LoanID,
				Category:           names[l.CategoryID],
				Reference:          l.Reference,
				OriginalAmount:     l.Amount,
				ApprovedAmount:     l.Approved(),
				InterestRate:       l.InterestRate,
				DurationMonths:     l.DurationMonths,
				TotalPaid:          f.totalPaid,
				OutstandingBalance: f.outstanding,
				Status:             l.Status,
				StartDate:          l.StartDate,
				EndDate:            l.EndDate,
				NextPayment:        f.next,
				RepaymentProgress:  f.progress,
			})

			s := &out.Summary
			s.TotalOutstanding = s.TotalOutstanding.Add(f.outstanding)
			s.TotalPaid = s.TotalPaid.Add(f.totalPaid)
			switch l.Status {
			case loan.StatusActive:
				s.ActiveLoans++
			case loan.StatusCompleted:
				s.CompletedLoans++
			case loan.StatusDefaulted:
				s.DefaultedLoans++
			}
		}

		for _, c := range cats {
			out.Categories = append(out.Categories, summarizeCategory(c, collected[c.CategoryID]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func summarizeCategory(c loan.Category, collected decimal.Decimal) CategorySummary {
	s := CategorySummary{
		CategoryID:      c.CategoryID,
		CategoryName:    c.Name,
		MaxAmount:       c.MaxAmount,
		CollectedAmount: collected,
		RemainingAmount: decimal.Zero,
	}
	if c.MaxAmount.Valid && c.MaxAmount.Decimal.IsPositive() {
		ceiling := c.MaxAmount.Decimal
		s.RemainingAmount = decimal.Max(decimal.Zero, ceiling.Sub(collected))
		s.PercentageCollected = int(collected.Div(ceiling).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	}
	return s
}

// MemberLoanHistory lists the member's loans newest first with their
// schedules and disbursement, repayment and rejection ledger rows.
func (u *Usecase) MemberLoanHistory(ctx context.Context, memberID string) ([]LoanHistory, error) {
	out := []LoanHistory{}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		loans, err := r.Loans.ListByMemberID(ctx, memberID)
		if err != nil || len(loans) == 0 {
			return err
		}
		ids := loanIDs(loans)
		reps, err := r.Repayments.ListByLoanIDs(ctx, ids)
		if err != nil {
			return err
		}
		txns, err := r.Ledger.ListByLoanIDs(ctx, ids, ledger.LoanHistoryTypes)
		if err != nil {
			return err
		}
		cats, err := r.Loans.ListCategories(ctx, false)
		if err != nil {
			return err
		}

		names := categoryNames(cats)
		byLoan := groupRepayments(reps)
		txByLoan := make(map[string][]TransactionView)
		for _, t := range txns {
			if t.LoanID == nil {
				continue
			}
			txByLoan[*t.LoanID] = append(txByLoan[*t.LoanID], TransactionView{
				ID:          t.TransactionID,
				Type:        t.Type,
				Amount:      t.Amount,
				Date:        t.CreatedAt,
				Status:      t.Status,
				Description: t.Description,
			})
		}

		for i := range loans {
			l := &loans[i]
			lr := byLoan[l.LoanID]
			f := compute(l, lr)

			views := repaymentViews(lr)
			tv := txByLoan[l.LoanID]
			if tv == nil {
				tv = []TransactionView{}
			}

			out = append(out, LoanHistory{
				ID:                 l.LoanID,
				Reference:          l.Reference,
				Category:           names[l.CategoryID],
				AppliedAmount:      l.Amount,
				ApprovedAmount:     l.Approved(),
				InterestRate:       l.InterestRate,
				DurationMonths:     l.DurationMonths,
				Status:             l.Status,
				ApplicationDate:    l.CreatedAt,
				ApprovalDate:       l.StartDate,
				CompletionDate:     l.EndDate,
				TotalRepaid:        f.totalPaid,
				OutstandingBalance: f.outstanding,
				NextPaymentDue:     f.next,
				Repayments:         views,
				Transactions:       tv,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SavingsBalance groups the member's savings by category.
func (u *Usecase) SavingsBalance(ctx context.Context, memberID string) (*SavingsBalance, error) {
	out := &SavingsBalance{
		TotalSavings:        decimal.Zero,
		WithdrawableSavings: decimal.Zero,
		LockedSavings:       decimal.Zero,
		Details:             []CategoryBalance{},
	}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		m, err := r.Members.GetByMemberID(ctx, memberID)
		if err != nil {
			return err
		}
		totals, err := r.Savings.SumByMemberPerCategory(ctx, memberID)
		if err != nil {
			return err
		}
		cats, err := r.Savings.ListCategories(ctx)
		if err != nil {
			return err
		}

		out.MonthlyDeduction = m.MonthlyDeduction
		for _, t := range totals {
			out.TotalSavings = out.TotalSavings.Add(t.Total)
			for _, c := range cats {
				if c.CategoryID != t.CategoryID {
					continue
				}
				out.Details = append(out.Details, CategoryBalance{CategoryID: c.CategoryID, CategoryName: c.Name, Type: c.Type, Amount: t.Total})
				if c.Type.AllowsWithdrawal() {
					out.WithdrawableSavings = out.WithdrawableSavings.Add(t.Total)
				} else {
					out.LockedSavings = out.LockedSavings.Add(t.Total)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdminLoanStatistics counts loan decisions per admin from two grouped
// queries, however many admins there are.
func (u *Usecase) AdminLoanStatistics(ctx context.Context) ([]AdminStats, error) {
	out := []AdminStats{}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		admins, err := r.Members.ListAdmins(ctx)
		if err != nil {
			return err
		}
		approved, err := r.Loans.CountByApprover(ctx)
		if err != nil {
			return err
		}
		rejected, err := r.Loans.CountByRejecter(ctx)
		if err != nil {
			return err
		}

		stats := make(map[string]*AdminStats, len(admins))
		for _, a := range admins {
			out = append(out, AdminStats{AdminID: a.AdminID, FullName: a.FullName, Email: a.Email})
		}
		for i := range out {
			stats[out[i].AdminID] = &out[i]
		}
		for _, c := range approved {
			s, ok := stats[c.AdminID]
			if !ok {
				continue
			}
			s.ApprovedCount += c.Count
			switch c.Status {
			case loan.StatusDisbursed:
				s.DisbursedCount += c.Count
			case loan.StatusPending:
				s.PendingCount += c.Count
			}
		}
		for _, c := range rejected {
			if s, ok := stats[c.AdminID]; ok {
				s.RejectedCount += c.Count
			}
		}
		for i := range out {
			out[i].TotalActions = out[i].ApprovedCount + out[i].RejectedCount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AllLoans is the back-office register: every loan newest first with its
// member, category, schedule and deciding admin. It runs a fixed number
// of queries regardless of how many loans exist.
func (u *Usecase) AllLoans(ctx context.Context) ([]LoanListing, error) {
	out := []LoanListing{}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		loans, err := r.Loans.ListAll(ctx)
		if err != nil {
			return err
		}
		ids := loanIDs(loans)
		reps, err := r.Repayments.ListByLoanIDs(ctx, ids)
		if err != nil {
			return err
		}
		cats, err := r.Loans.ListCategories(ctx, false)
		if err != nil {
			return err
		}
		admins, err := r.Members.ListAdmins(ctx)
		if err != nil {
			return err
		}

		memberIDs := make([]string, 0, len(loans))
		seen := make(map[string]bool, len(loans))
		for _, l := range loans {
			if !seen[l.MemberID] {
				seen[l.MemberID] = true
				memberIDs = append(memberIDs, l.MemberID)
			}
		}
		members, err := r.Members.ListByMemberIDs(ctx, memberIDs)
		if err != nil {
			return err
		}

		memberRefs := make(map[string]*MemberRef, len(members))
		for _, m := range members {
			memberRefs[m.MemberID] = &MemberRef{
				MemberID:      m.MemberID,
				FirstName:     m.FirstName,
				LastName:      m.LastName,
				ServiceNumber: m.ServiceNumber,
			}
		}
		adminRefs := make(map[string]*AdminRef, len(admins))
		for _, a := range admins {
			adminRefs[a.AdminID] = &AdminRef{AdminID: a.AdminID, FullName: a.FullName, Email: a.Email}
		}
		adminRef := func(id *string) *AdminRef {
			if id == nil {
				return nil
			}
			return adminRefs[*id]
		}

		names := categoryNames(cats)
		byLoan := groupRepayments(reps)
		for _, l := range loans {
			out = append(out, LoanListing{
				LoanID:         l.LoanID,
				Reference:      l.Reference,
				Category:       names[l.CategoryID],
				Amount:         l.Amount,
				ApprovedAmount: l.ApprovedAmount,
				InterestRate:   l.InterestRate,
				DurationMonths: l.DurationMonths,
				Status:         l.Status,
				StartDate:      l.StartDate,
				EndDate:        l.EndDate,
				CreatedAt:      l.CreatedAt,
				Member:         memberRefs[l.MemberID],
				Repayments:     repaymentViews(byLoan[l.LoanID]),
				ApprovedBy:     adminRef(l.ApprovedByID),
				RejectedBy:     adminRef(l.RejectedByID),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
