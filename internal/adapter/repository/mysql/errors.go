package mysql

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"coop-ledger/internal/domain/apperr"
)

// translate maps store errors onto the ledger's error kinds. The gorm
// error stays in the chain, so errors.Is against gorm sentinels still works.
func translate(err error, what, key string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(apperr.KindNotFound, err, fmt.Sprintf("%s %s not found", what, key))
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.KindConflict, err, fmt.Sprintf("%s %s already exists", what, key))
	}
	return err
}
