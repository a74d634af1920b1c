package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	riskdomain "github.com/smallbiznis/cashout/internal/risk/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newEvaluator() riskdomain.Evaluator {
	return New(Params{Log: zap.NewNop()})
}

func TestEvaluate_FullSignalsApprove(t *testing.T) {
	evaluation := newEvaluator().Evaluate(context.Background(), uuid.New(), "agent-001", riskdomain.Metadata{
		IP:       "203.0.113.9",
		DeviceID: "atm-17",
		Location: "Jakarta",
	})

	assert.Equal(t, riskdomain.DecisionApprove, evaluation.Decision)
	assert.Zero(t, evaluation.Score)
}

func TestEvaluate_SparseMetadataStaysApproved(t *testing.T) {
	// Missing device and location alone stays under the challenge threshold.
	evaluation := newEvaluator().Evaluate(context.Background(), uuid.New(), "agent-001", riskdomain.Metadata{
		IP: "203.0.113.9",
	})

	assert.Equal(t, riskdomain.DecisionApprove, evaluation.Decision)
	assert.InDelta(t, 30.0, evaluation.Score, 0.001)
}

func TestEvaluate_MissingNetworkSignalsChallenge(t *testing.T) {
	// No IP and no device pushes past the challenge threshold.
	evaluation := newEvaluator().Evaluate(context.Background(), uuid.New(), "agent-001", riskdomain.Metadata{
		Location: "Jakarta",
	})

	assert.Equal(t, riskdomain.DecisionChallenge, evaluation.Decision)
	assert.InDelta(t, 45.0, evaluation.Score, 0.001)
}

func TestEvaluate_ChallengeThresholdBoundary(t *testing.T) {
	// Unknown account plus a missing location scores exactly the threshold.
	evaluation := newEvaluator().Evaluate(context.Background(), uuid.Nil, "agent-001", riskdomain.Metadata{
		IP:       "203.0.113.9",
		DeviceID: "atm-17",
	})

	assert.Equal(t, riskdomain.DecisionChallenge, evaluation.Decision)
	assert.InDelta(t, 40.0, evaluation.Score, 0.001)
}

func TestEvaluate_BareRequestReject(t *testing.T) {
	evaluation := newEvaluator().Evaluate(context.Background(), uuid.Nil, "", riskdomain.Metadata{})

	assert.Equal(t, riskdomain.DecisionReject, evaluation.Decision)
	assert.GreaterOrEqual(t, evaluation.Score, 70.0)
}
