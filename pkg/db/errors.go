package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsNotFound reports whether err is GORM's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation reports whether err is a Postgres unique violation,
// optionally restricted to constraintName.
func IsUniqueViolation(err error, constraintName string) bool {
	return isPGCode(err, pgUniqueViolation, constraintName)
}

// IsForeignKeyViolation reports whether err is a Postgres foreign key violation,
// optionally restricted to constraintName.
func IsForeignKeyViolation(err error, constraintName string) bool {
	return isPGCode(err, pgForeignKeyViolation, constraintName)
}

func isPGCode(err error, code, constraintName string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != code {
		return false
	}
	return constraintName == "" || pgErr.ConstraintName == constraintName
}
