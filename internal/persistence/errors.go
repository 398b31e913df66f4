package persistence

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"skyfed/internal/core"
)

const pgUniqueViolation = "23505"

// Translate maps driver and gorm errors onto the storage sentinels of core.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Join(core.ErrRecordNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		(errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return errors.Join(core.ErrUniqueViolation, err)
	}

	return err
}
