package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/task"
)

// PostgreSQL error codes
const (
	uniqueViolationCode = "23505"
	checkViolationCode  = "23514"
)

// mapError translates driver constraint errors into task and domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: %v", task.ErrDuplicateTask, err)
		case checkViolationCode:
			return fmt.Errorf("%w: check constraint violation (%s): %v",
				domain.ErrValidation, pgErr.ConstraintName, err)
		}
		return err
	}

	// modernc.org/sqlite reports constraint failures in the message
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", task.ErrDuplicateTask, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return err
}
