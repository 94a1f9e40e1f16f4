package verifier

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"coop-ledger/internal/domain/member"
)

// MemberPIN compares a withdrawal PIN with the member's bcrypt hash.
type MemberPIN struct {
	members member.Repository
}

func NewMemberPIN(members member.Repository) *MemberPIN {
	return &MemberPIN{members: members}
}

func (v *MemberPIN) Verify(ctx context.Context, memberID, pin string) (bool, error) {
	m, err := v.members.GetByMemberID(ctx, memberID)
	if err != nil {
		return false, err
	}
	if m.PinHash == "" || pin == "" {
		return false, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(m.PinHash), []byte(pin))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	}
	return false, err
}

// HashPIN produces the hash stored on the member row.
func HashPIN(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
