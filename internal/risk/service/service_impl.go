package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	riskdomain "github.com/smallbiznis/cashout/internal/risk/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Score thresholds for the three-way decision.
const (
	challengeThreshold = 40.0
	rejectThreshold    = 70.0
)

type Params struct {
	fx.In

	Log *zap.Logger
}

// Service is a metadata-heuristic evaluator. It carries no state and no
// model; richer scoring lives outside this service.
type Service struct {
	log *zap.Logger
}

func New(p Params) riskdomain.Evaluator {
	return &Service{log: p.Log.Named("risk.service")}
}

func (s *Service) Evaluate(ctx context.Context, accountID uuid.UUID, agentID string, metadata riskdomain.Metadata) riskdomain.Evaluation {
	score := 0.0

	if strings.TrimSpace(metadata.IP) == "" {
		score += 25
	}
	if strings.TrimSpace(metadata.DeviceID) == "" {
		score += 20
	}
	if strings.TrimSpace(metadata.Location) == "" {
		score += 10
	}
	if strings.TrimSpace(agentID) == "" {
		score += 30
	}
	if accountID == uuid.Nil {
		score += 30
	}

	decision := riskdomain.DecisionApprove
	switch {
	case score >= rejectThreshold:
		decision = riskdomain.DecisionReject
	case score >= challengeThreshold:
		decision = riskdomain.DecisionChallenge
	}

	if decision != riskdomain.DecisionApprove {
		s.log.Warn("risk evaluation flagged request",
			zap.String("account_id", accountID.String()),
			zap.String("agent_id", agentID),
			zap.Float64("score", score),
			zap.String("decision", string(decision)),
		)
	}

	return riskdomain.Evaluation{Score: score, Decision: decision}
}
