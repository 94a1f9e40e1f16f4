package mysql

import (
	"context"

	"coop-ledger/internal/domain/savings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SavingRepository struct{ db *gorm.DB }

func NewSavingRepository(db *gorm.DB) *SavingRepository { return &SavingRepository{db: db} }

func (r *SavingRepository) Create(ctx context.Context, s *savings.Saving) error {
	return translate(r.db.WithContext(ctx).Create(s).Error, "saving", s.Reference)
}

func (r *SavingRepository) SumByMember(ctx context.Context, memberID string) (decimal.Decimal, error) {
	return r.sum(r.db.WithContext(ctx).Where("member_id = ?", memberID))
}

func (r *SavingRepository) SumAll(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(r.db.WithContext(ctx))
}

func (r *SavingRepository) sum(q *gorm.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := q.Model(&savings.Saving{}).Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *SavingRepository) SumByMemberPerCategory(ctx context.Context, memberID string) ([]savings.CategoryTotal, error) {
	var out []savings.CategoryTotal
	res := r.db.WithContext(ctx).
		Model(&savings.Saving{}).
		Select("category_id, COALESCE(SUM(amount), 0) AS total").
		Where("member_id = ?", memberID).
		Group("category_id").
		Order("category_id").
		Scan(&out)
	return out, res.Error
}

func (r *SavingRepository) ListAll(ctx context.Context) ([]savings.Saving, error) {
	var out []savings.Saving
	res := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out)
	return out, res.Error
}

func (r *SavingRepository) GetCategoryByType(ctx context.Context, t savings.CategoryType) (*savings.Category, error) {
	var out savings.Category
	res := r.db.WithContext(ctx).Where("type = ?", t).First(&out)
	return &out, translate(res.Error, "saving category", string(t))
}

func (r *SavingRepository) ListCategories(ctx context.Context) ([]savings.Category, error) {
	var out []savings.Category
	res := r.db.WithContext(ctx).Order("type ASC").Find(&out)
	return out, res.Error
}
