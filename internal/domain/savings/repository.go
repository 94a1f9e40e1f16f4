package savings

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, s *Saving) error
	// Signed sum of all rows of the member, zero when there are none.
	SumByMember(ctx context.Context, memberID string) (decimal.Decimal, error)
	SumByMemberPerCategory(ctx context.Context, memberID string) ([]CategoryTotal, error)
	SumAll(ctx context.Context) (decimal.Decimal, error)
	// Newest first.
	ListAll(ctx context.Context) ([]Saving, error)

	GetCategoryByType(ctx context.Context, t CategoryType) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
}
