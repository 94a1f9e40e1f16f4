package mysql

import (
	"context"

	"coop-ledger/internal/domain/member"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemberRepository struct{ db *gorm.DB }

func NewMemberRepository(db *gorm.DB) *MemberRepository { return &MemberRepository{db: db} }

func (r *MemberRepository) GetByMemberID(ctx context.Context, memberID string) (*member.Member, error) {
	var out member.Member
	res := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&out)
	return &out, translate(res.Error, "member", memberID)
}

func (r *MemberRepository) GetByMemberIDForUpdate(ctx context.Context, memberID string) (*member.Member, error) {
	var out member.Member
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ?", memberID).
		First(&out)
	return &out, translate(res.Error, "member", memberID)
}

func (r *MemberRepository) GetByServiceNumber(ctx context.Context, serviceNumber string) (*member.Member, error) {
	var out member.Member
	res := r.db.WithContext(ctx).Where("service_number = ?", serviceNumber).First(&out)
	return &out, translate(res.Error, "member with service number", serviceNumber)
}

func (r *MemberRepository) ListByMemberIDs(ctx context.Context, memberIDs []string) ([]member.Member, error) {
	var out []member.Member
	if len(memberIDs) == 0 {
		return out, nil
	}
	res := r.db.WithContext(ctx).Where("member_id IN ?", memberIDs).Find(&out)
	return out, res.Error
}

func (r *MemberRepository) Save(ctx context.Context, m *member.Member) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MemberRepository) ListAdmins(ctx context.Context) ([]member.Admin, error) {
	var out []member.Admin
	res := r.db.WithContext(ctx).Order("full_name ASC").Find(&out)
	return out, res.Error
}
