package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TokenStatus is the lifecycle state of a withdrawal token. A token is
// created ACTIVE and transitions exactly once, to USED or EXPIRED. Both are
// terminal.
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "ACTIVE"
	TokenStatusUsed    TokenStatus = "USED"
	TokenStatusExpired TokenStatus = "EXPIRED"
)

// Token stores the hashed form of an issued withdrawal token. The plaintext
// exists only in the generation response and the redemption request; it is
// never persisted.
type Token struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TokenHash []byte            `gorm:"column:token_hash;type:bytea;not null;uniqueIndex" json:"-"`
	Salt      []byte            `gorm:"type:bytea;not null" json:"-"`
	Prefix    string            `gorm:"type:char(4);not null;index:ix_tokens_prefix_status,priority:1" json:"prefix"`
	AccountID uuid.UUID         `gorm:"type:uuid;not null" json:"account_id"`
	Amount    int64             `gorm:"not null;check:amount > 0" json:"amount"`
	Status    TokenStatus       `gorm:"type:text;not null;default:'ACTIVE';index:ix_tokens_prefix_status,priority:2" json:"status"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt time.Time         `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time        `gorm:"column:used_at" json:"used_at,omitempty"`
}

// TableName sets the database table name.
func (Token) TableName() string { return "tokens" }

// TransactionType is the ledger entry kind.
type TransactionType string

const (
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeReversal   TransactionType = "REVERSAL"
)

// TransactionStatus is the ledger entry state at append time.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "PENDING"
	TransactionStatusSuccess  TransactionStatus = "SUCCESS"
	TransactionStatusFailed   TransactionStatus = "FAILED"
	TransactionStatusReversed TransactionStatus = "REVERSED"
)

// Transaction is an append-only ledger entry. Rows are never updated or
// deleted after insertion; corrections are new rows. The storage layer
// enforces this with a trigger.
type Transaction struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	AccountID uuid.UUID         `gorm:"type:uuid;not null;index" json:"account_id"`
	TokenID   snowflake.ID      `gorm:"not null;index" json:"token_id"`
	Type      TransactionType   `gorm:"type:text;not null" json:"type"`
	Amount    int64             `gorm:"not null;check:amount > 0" json:"amount"`
	Status    TransactionStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }

// AttemptResult is the forensic outcome recorded for a redemption attempt.
// It is finer grained than the redemption response: EXPIRED and USED stay
// distinct in the evidence trail while the response collapses them.
type AttemptResult string

const (
	AttemptResultSuccess AttemptResult = "SUCCESS"
	AttemptResultInvalid AttemptResult = "INVALID"
	AttemptResultExpired AttemptResult = "EXPIRED"
	AttemptResultUsed    AttemptResult = "USED"
)

// RedemptionAttempt is the audit record written for every redemption attempt
// that could be attributed to a token. Never mutated.
type RedemptionAttempt struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TokenID   snowflake.ID      `gorm:"not null;index" json:"token_id"`
	AgentID   string            `gorm:"type:text;not null" json:"agent_id"`
	Result    AttemptResult     `gorm:"type:text;not null" json:"result"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (RedemptionAttempt) TableName() string { return "redemption_attempts" }
