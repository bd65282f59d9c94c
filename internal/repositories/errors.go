package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel results shared by the PostgreSQL and in-memory stores. Services translate
// them into classified domain errors.
var (
	// ErrNotFound reports a missing user, channel or video, including a write that
	// references one (a foreign key violation).
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports a duplicate username, email, subscription or video id.
	ErrConflict = errors.New("record conflict")
)

// classify maps driver errors onto the sentinels. Other errors are wrapped with op.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrConflict
		case pgerrcode.ForeignKeyViolation:
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
