package mysql

import (
	"context"

	"coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/member"
	"coop-ledger/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func reposFor(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:      &LoanRepository{db: tx},
		Repayments: &RepaymentRepository{db: tx},
		Savings:    &SavingRepository{db: tx},
		Ledger:     &LedgerRepository{db: tx},
		Members:    &MemberRepository{db: tx},
		// gorm turns a Transaction call on a tx handle into a SAVEPOINT.
		Nested: func(ctx context.Context, fn func(r uow.Repos) error) error {
			return tx.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
				return fn(reposFor(sp))
			})
		},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

func (u *GormUoW) WithinMemberTx(ctx context.Context, memberID string, fn func(r uow.Repos, m *member.Member) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		m, err := r.Members.GetByMemberIDForUpdate(ctx, memberID)
		if err != nil {
			return err
		}
		return fn(r, m)
	})
}
