package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := NotFound("loan %s not found", "LN-1")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "loan LN-1 not found", err.Error())
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("confirm: %w", Conflict("loan confirmation already in progress"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := Wrap(KindInternal, cause, "insert ledger transaction")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert ledger transaction: driver: bad connection", err.Error())
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInsufficientFunds, KindOf(InsufficientFunds("insufficient savings balance")))
}
