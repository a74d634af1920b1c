package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, token *Token) error

	// FindByPrefix returns the unlocked candidate set for a presented prefix
	// in stable id order, regardless of status or expiry. Consumed and
	// expired tokens must still hash-match so replays answer with the
	// conflict result instead of leaking "invalid".
	FindByPrefix(ctx context.Context, db *gorm.DB, prefix string) ([]Token, error)

	// LockByID re-fetches a token by primary key with an exclusive row lock
	// on dialects that support it. Must run inside a transaction.
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Token, error)

	// MarkUsed transitions the token to USED, guarded by a
	// status-still-ACTIVE predicate. Returns false when the guard fails.
	MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, usedAt time.Time) (bool, error)

	// MarkExpired lazily transitions an overdue token to EXPIRED, guarded by
	// the same status-still-ACTIVE predicate.
	MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	InsertTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	InsertAttempt(ctx context.Context, db *gorm.DB, attempt *RedemptionAttempt) error
}
