package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports whether err is a unique-constraint violation,
// across the dialects we run against.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsLockTimeoutErr reports whether err is a lock-acquisition timeout
// surfaced by the storage engine.
func IsLockTimeoutErr(err error) bool {
	if err == nil {
		return false
	}

	// PostgreSQL (error code 55P03)
	if strings.Contains(err.Error(), "could not obtain lock") ||
		strings.Contains(err.Error(), "lock timeout") {
		return true
	}

	// SQLite busy handler gave up
	if strings.Contains(err.Error(), "database is locked") {
		return true
	}

	return false
}
