package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cashout/internal/ratelimit"
)

// limiterHint is the subset of the redemption body the limiter keys on.
type limiterHint struct {
	AccountID string `json:"account_id"`
	AgentID   string `json:"agent_id"`
}

// RedemptionRateLimit enforces the per-IP, per-agent and per-account sliding
// windows before the handler runs. The body is peeked for the keyed
// dimensions and restored for the handler's bind.
func (s *Server) RedemptionRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		var hint limiterHint
		if body, err := io.ReadAll(c.Request.Body); err == nil {
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			// A malformed body passes through; the handler rejects it with a
			// proper validation response.
			_ = json.Unmarshal(body, &hint)
		}

		err := s.limiter.Check(c.Request.Context(), c.ClientIP(), hint.AgentID, hint.AccountID)
		if err == nil {
			c.Next()
			return
		}

		var limitErr *ratelimit.LimitExceededError
		if errors.As(err, &limitErr) {
			s.metrics.RecordRateLimitDenied(limitErr.Gate)
		}
		AbortWithError(c, err)
	}
}
