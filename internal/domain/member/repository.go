package member

import "context"

type Repository interface {
	GetByMemberID(ctx context.Context, memberID string) (*Member, error)
	// Row-locked read; serializes balance-checked writes of one member.
	GetByMemberIDForUpdate(ctx context.Context, memberID string) (*Member, error)
	GetByServiceNumber(ctx context.Context, serviceNumber string) (*Member, error)
	// Unknown ids are skipped.
	ListByMemberIDs(ctx context.Context, memberIDs []string) ([]Member, error)
	Save(ctx context.Context, m *Member) error
	ListAdmins(ctx context.Context) ([]Admin, error)
}
