package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// RedeemResult is the caller-visible outcome of a redemption. EXPIRED and
// USED are deliberately collapsed so probing cannot distinguish a consumed
// token from an expired one.
type RedeemResult string

const (
	RedeemResultSuccess       RedeemResult = "SUCCESS"
	RedeemResultInvalid       RedeemResult = "INVALID"
	RedeemResultExpiredOrUsed RedeemResult = "EXPIRED_OR_USED"
)

type Service interface {
	// Generate issues a new single-use withdrawal token for the account.
	// The returned plaintext is the only time it ever exists outside the
	// caller; it is not retrievable again.
	Generate(ctx context.Context, accountID uuid.UUID, amount int64) (*GenerateResponse, error)

	// Redeem consumes a token presented at an agent. At most one concurrent
	// call for the same token can observe SUCCESS.
	Redeem(ctx context.Context, rawToken, agentID string, metadata map[string]any) (*RedeemResponse, error)
}

type GenerateResponse struct {
	ID        snowflake.ID `json:"id"`
	Token     string       `json:"token"`
	Amount    int64        `json:"amount"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type RedeemResponse struct {
	Result        RedeemResult  `json:"result"`
	TransactionID *snowflake.ID `json:"transaction_id,omitempty"`
}

var (
	// ErrInvalidAmount marks a non-positive withdrawal amount. Rejected
	// before any cryptographic or storage work.
	ErrInvalidAmount = errors.New("invalid_amount")
	// ErrInvalidAccount marks a missing or malformed account identifier.
	ErrInvalidAccount = errors.New("invalid_account")
	// ErrInvalidAgent marks a missing agent identifier on redemption.
	ErrInvalidAgent = errors.New("invalid_agent")
	// ErrGenerationExhausted is returned when repeated token_hash collisions
	// exhaust the bounded retry budget. Effectively unreachable with a
	// healthy random source.
	ErrGenerationExhausted = errors.New("generation_retries_exhausted")
)
