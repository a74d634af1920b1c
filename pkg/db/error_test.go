package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm translated", fmt.Errorf("insert token: %w", gorm.ErrDuplicatedKey), true},
		{"postgres 23505", errors.New(`ERROR: duplicate key value violates unique constraint "tokens_token_hash_key" (SQLSTATE 23505)`), true},
		{"sqlite 2067", errors.New("UNIQUE constraint failed: tokens.token_hash"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestIsLockTimeoutErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"postgres 55P03", errors.New(`ERROR: could not obtain lock on row in relation "tokens" (SQLSTATE 55P03)`), true},
		{"postgres lock timeout", errors.New("canceling statement due to lock timeout"), true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"unrelated", errors.New("record not found"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsLockTimeoutErr(tc.err))
		})
	}
}
