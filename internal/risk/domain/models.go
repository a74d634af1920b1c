package domain

import (
	"context"

	"github.com/google/uuid"
)

// Decision is the evaluator's verdict on a redemption request.
type Decision string

const (
	DecisionApprove   Decision = "APPROVE"
	DecisionChallenge Decision = "CHALLENGE"
	DecisionReject    Decision = "REJECT"
)

// Metadata carries the risk signals presented with a redemption.
type Metadata struct {
	IP       string `json:"ip,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	Location string `json:"location,omitempty"`
}

// Evaluation is the scored outcome for one request.
type Evaluation struct {
	Score    float64  `json:"score"`
	Decision Decision `json:"decision"`
}

// Evaluator scores a redemption request before it reaches the token
// service. REJECT must short-circuit the request.
type Evaluator interface {
	Evaluate(ctx context.Context, accountID uuid.UUID, agentID string, metadata Metadata) Evaluation
}
