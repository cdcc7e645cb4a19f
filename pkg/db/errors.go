package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation. With a constraint name the check is scoped to that
// constraint only.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == uniqueViolationCode &&
			(constraint == "" || pgxErr.ConstraintName == constraint)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode &&
			(constraint == "" || pqErr.Constraint == constraint)
	}

	// sqlite in tests reports constraint failures as plain text
	msg := err.Error()
	if constraint != "" && strings.Contains(msg, constraint) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
