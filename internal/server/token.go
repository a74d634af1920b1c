package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	accountdomain "github.com/smallbiznis/cashout/internal/account/domain"
	"github.com/smallbiznis/cashout/internal/observability/logger"
	riskdomain "github.com/smallbiznis/cashout/internal/risk/domain"
	tokendomain "github.com/smallbiznis/cashout/internal/token/domain"
	"go.uber.org/zap"
)

type generateTokenRequest struct {
	AccountID string      `json:"account_id"`
	Amount    json.Number `json:"amount"`
}

type generateTokenResponse struct {
	TokenID   string `json:"token_id"`
	Token     string `json:"token"`
	Amount    int64  `json:"amount"`
	ExpiresAt string `json:"expires_at"`
}

type redeemTokenRequest struct {
	Token     string              `json:"token"`
	AccountID string              `json:"account_id"`
	AgentID   string              `json:"agent_id"`
	Metadata  riskdomain.Metadata `json:"metadata"`
}

type redeemTokenResponse struct {
	Result        tokendomain.RedeemResult `json:"result"`
	TransactionID string                   `json:"transaction_id,omitempty"`
}

// GenerateToken issues a single-use withdrawal token. The plaintext in the
// response is the only copy that ever leaves the service.
func (s *Server) GenerateToken(c *gin.Context) {
	var req generateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, err := uuid.Parse(strings.TrimSpace(req.AccountID))
	if err != nil {
		AbortWithError(c, newValidationError("account_id", "invalid_account", "account_id must be a UUID"))
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	account, err := s.accountRepo.FindByID(c.Request.Context(), s.db, accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if account == nil {
		AbortWithError(c, newValidationError("account_id", "unknown_account", "account does not exist"))
		return
	}
	if account.Status != accountdomain.AccountStatusActive {
		AbortWithError(c, newValidationError("account_id", "inactive_account", "account is not active"))
		return
	}

	resp, err := s.tokenSvc.Generate(c.Request.Context(), accountID, amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, generateTokenResponse{
		TokenID:   resp.ID.String(),
		Token:     resp.Token,
		Amount:    resp.Amount,
		ExpiresAt: resp.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// RedeemToken consumes a presented token. The risk evaluator runs before the
// token service; a REJECT never touches token state.
func (s *Server) RedeemToken(c *gin.Context) {
	var req redeemTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		AbortWithError(c, newValidationError("agent_id", "invalid_agent", "agent_id is required"))
		return
	}

	// account_id is an optional risk signal here; identity is proven by the
	// token itself.
	accountID := uuid.Nil
	if trimmed := strings.TrimSpace(req.AccountID); trimmed != "" {
		parsed, err := uuid.Parse(trimmed)
		if err != nil {
			AbortWithError(c, newValidationError("account_id", "invalid_account", "account_id must be a UUID"))
			return
		}
		accountID = parsed
	}

	metadata := req.Metadata
	if strings.TrimSpace(metadata.IP) == "" {
		metadata.IP = c.ClientIP()
	}

	evaluation := s.riskSvc.Evaluate(c.Request.Context(), accountID, agentID, metadata)
	s.metrics.RecordRiskDecision(string(evaluation.Decision))

	log := logger.FromContext(c.Request.Context())
	switch evaluation.Decision {
	case riskdomain.DecisionReject:
		AbortWithError(c, ErrForbidden)
		return
	case riskdomain.DecisionChallenge:
		// Challenged requests proceed; step-up verification happens on the
		// agent side and the decision is kept for audit.
		log.Warn("redemption proceeding under challenge",
			zap.String("agent_id", agentID),
			zap.Float64("risk_score", evaluation.Score),
		)
	}

	resp, err := s.tokenSvc.Redeem(c.Request.Context(), req.Token, agentID, map[string]any{
		"ip":            metadata.IP,
		"device_id":     metadata.DeviceID,
		"location":      metadata.Location,
		"risk_score":    evaluation.Score,
		"risk_decision": string(evaluation.Decision),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := redeemTokenResponse{Result: resp.Result}
	if resp.TransactionID != nil {
		body.TransactionID = resp.TransactionID.String()
	}

	switch resp.Result {
	case tokendomain.RedeemResultSuccess:
		c.JSON(http.StatusOK, body)
	case tokendomain.RedeemResultInvalid:
		c.JSON(http.StatusBadRequest, body)
	default:
		c.JSON(http.StatusConflict, body)
	}
}

// parseAmount accepts integral JSON numbers only. "150.25" and 150.25 are
// both rejected; amounts are minor units, not decimals.
func parseAmount(raw json.Number) (int64, error) {
	value := strings.TrimSpace(raw.String())
	if value == "" {
		return 0, newValidationError("amount", "invalid_amount", "amount is required")
	}
	if strings.ContainsAny(value, ".eE") {
		return 0, newValidationError("amount", "invalid_amount", "amount must be an integer")
	}
	amount, err := raw.Int64()
	if err != nil {
		return 0, newValidationError("amount", "invalid_amount", "amount must be an integer")
	}
	if amount <= 0 {
		return 0, newValidationError("amount", "invalid_amount", "amount must be positive")
	}
	return amount, nil
}
