package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/cashout/internal/clock"
	"github.com/smallbiznis/cashout/internal/config"
	"github.com/smallbiznis/cashout/internal/observability/metrics"
	"github.com/smallbiznis/cashout/internal/token/codec"
	tokendomain "github.com/smallbiznis/cashout/internal/token/domain"
	"github.com/smallbiznis/cashout/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// generationMaxAttempts bounds the retry loop on token_hash collisions.
const generationMaxAttempts = 3

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Repo    tokendomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    tokendomain.Repository
	metrics *metrics.Metrics

	pepper []byte
	ttl    time.Duration
}

func New(p Params) tokendomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("token.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
		pepper:  []byte(p.Config.Token.Pepper),
		ttl:     p.Config.Token.TTL,
	}
}

func (s *Service) Generate(ctx context.Context, accountID uuid.UUID, amount int64) (*tokendomain.GenerateResponse, error) {
	if accountID == uuid.Nil {
		return nil, tokendomain.ErrInvalidAccount
	}
	if amount <= 0 {
		return nil, tokendomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)

	for attempt := 1; attempt <= generationMaxAttempts; attempt++ {
		prefix, err := codec.RandomSegment(codec.PrefixLength)
		if err != nil {
			return nil, fmt.Errorf("generate prefix: %w", err)
		}
		core, err := codec.RandomSegment(codec.CoreLength)
		if err != nil {
			return nil, fmt.Errorf("generate core: %w", err)
		}
		salt, err := codec.NewSalt()
		if err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}

		plaintext := codec.Format(prefix, core)
		token := &tokendomain.Token{
			ID:        s.genID.Generate(),
			TokenHash: codec.HashToken(s.pepper, plaintext, salt),
			Salt:      salt,
			Prefix:    prefix,
			AccountID: accountID,
			Amount:    amount,
			Status:    tokendomain.TokenStatusActive,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}

		err = s.repo.Insert(ctx, s.db, token)
		if err == nil {
			s.metrics.RecordTokenGenerated()
			s.log.Info("token issued",
				zap.Int64("token_id", int64(token.ID)),
				zap.String("account_id", accountID.String()),
			)
			return &tokendomain.GenerateResponse{
				ID:        token.ID,
				Token:     plaintext,
				Amount:    amount,
				ExpiresAt: expiresAt,
			}, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("insert token: %w", err)
		}

		// A hash collision is a transient event: fresh randomness next loop.
		s.metrics.RecordGenerationRetry()
		s.log.Warn("token hash collision, retrying",
			zap.Int("attempt", attempt),
		)
	}

	return nil, tokendomain.ErrGenerationExhausted
}

func (s *Service) Redeem(ctx context.Context, rawToken, agentID string, metadata map[string]any) (*tokendomain.RedeemResponse, error) {
	if agentID == "" {
		return nil, tokendomain.ErrInvalidAgent
	}

	// Step 0: syntactic validation, storage untouched.
	prefix, _, err := codec.Parse(rawToken)
	if err != nil {
		return s.record(tokendomain.RedeemResultInvalid), nil
	}

	// Step 1: optimistic candidate lookup, no lock. The prefix space is
	// large relative to issued tokens, so this is almost always zero or
	// one row. Consumed and expired tokens stay in the set on purpose:
	// a hash match against them must answer with the conflict result.
	candidates, err := s.repo.FindByPrefix(ctx, s.db, prefix)
	if err != nil {
		return nil, fmt.Errorf("candidate lookup: %w", err)
	}

	// Step 2: timing-safe verification against each candidate's own salt.
	// Breaking on the first match leaks only which candidate matched, an
	// accepted tradeoff given the prefix space.
	var matched *tokendomain.Token
	for i := range candidates {
		computed := codec.HashToken(s.pepper, rawToken, candidates[i].Salt)
		if subtle.ConstantTimeCompare(computed, candidates[i].TokenHash) == 1 {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		// Nothing to attribute an attempt row to.
		return s.record(tokendomain.RedeemResultInvalid), nil
	}

	// Steps 3-4: re-check under an exclusive row lock and commit the state
	// transition, ledger entry, and attempt evidence atomically.
	outcome := tokendomain.RedeemResultExpiredOrUsed
	var transactionID snowflake.ID

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.LockByID(ctx, tx, matched.ID)
		if err != nil {
			return fmt.Errorf("lock token: %w", err)
		}
		if locked == nil {
			outcome = tokendomain.RedeemResultInvalid
			return nil
		}

		lockedNow := s.clock.Now()

		if locked.Status != tokendomain.TokenStatusActive {
			result := tokendomain.AttemptResultUsed
			if locked.Status == tokendomain.TokenStatusExpired {
				result = tokendomain.AttemptResultExpired
			}
			return s.insertAttempt(ctx, tx, locked.ID, agentID, result, metadata)
		}

		if !locked.ExpiresAt.After(lockedNow) {
			if _, err := s.repo.MarkExpired(ctx, tx, locked.ID); err != nil {
				return fmt.Errorf("mark expired: %w", err)
			}
			return s.insertAttempt(ctx, tx, locked.ID, agentID, tokendomain.AttemptResultExpired, metadata)
		}

		ok, err := s.repo.MarkUsed(ctx, tx, locked.ID, lockedNow)
		if err != nil {
			return fmt.Errorf("mark used: %w", err)
		}
		if !ok {
			// Guard failed despite the lock. Belt and suspenders.
			return s.insertAttempt(ctx, tx, locked.ID, agentID, tokendomain.AttemptResultUsed, metadata)
		}

		txn := &tokendomain.Transaction{
			ID:        s.genID.Generate(),
			AccountID: locked.AccountID,
			TokenID:   locked.ID,
			Type:      tokendomain.TransactionTypeWithdrawal,
			Amount:    locked.Amount,
			Status:    tokendomain.TransactionStatusSuccess,
			CreatedAt: lockedNow,
		}
		if err := s.repo.InsertTransaction(ctx, tx, txn); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
		if err := s.insertAttempt(ctx, tx, locked.ID, agentID, tokendomain.AttemptResultSuccess, metadata); err != nil {
			return err
		}

		outcome = tokendomain.RedeemResultSuccess
		transactionID = txn.ID
		return nil
	}, &sql.TxOptions{Isolation: s.isolation()})

	if txErr != nil {
		if db.IsLockTimeoutErr(txErr) {
			// Surface, never retry here. Retries belong to the limiter and
			// the client.
			return nil, fmt.Errorf("redemption lock wait: %w", txErr)
		}
		return nil, txErr
	}

	s.log.Info("redemption settled",
		zap.Int64("token_id", int64(matched.ID)),
		zap.String("agent_id", agentID),
		zap.String("result", string(outcome)),
	)

	resp := &tokendomain.RedeemResponse{Result: outcome}
	if outcome == tokendomain.RedeemResultSuccess {
		resp.TransactionID = &transactionID
	}
	s.metrics.RecordRedemption(string(outcome))
	return resp, nil
}

func (s *Service) insertAttempt(ctx context.Context, tx *gorm.DB, tokenID snowflake.ID, agentID string, result tokendomain.AttemptResult, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	attempt := &tokendomain.RedemptionAttempt{
		ID:        s.genID.Generate(),
		TokenID:   tokenID,
		AgentID:   agentID,
		Result:    result,
		Metadata:  datatypes.JSONMap(metadata),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertAttempt(ctx, tx, attempt); err != nil {
		return fmt.Errorf("append attempt evidence: %w", err)
	}
	return nil
}

func (s *Service) record(result tokendomain.RedeemResult) *tokendomain.RedeemResponse {
	s.metrics.RecordRedemption(string(result))
	return &tokendomain.RedeemResponse{Result: result}
}

// isolation picks the strongest level the dialect honors for the redemption
// flow. SQLite rejects explicit isolation levels and serializes writers on
// its own.
func (s *Service) isolation() sql.IsolationLevel {
	if db.SupportsRowLocks(s.db) {
		return sql.LevelSerializable
	}
	return sql.LevelDefault
}
