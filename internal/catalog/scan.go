package catalog

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// rowScanner is satisfied by both database/sql and pgx single-row results.
type rowScanner interface {
	Scan(dest ...any) error
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}
