package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cashout/internal/token/domain"
	"github.com/smallbiznis/cashout/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, token *domain.Token) error {
	return conn.WithContext(ctx).Create(token).Error
}

func (r *repo) FindByPrefix(ctx context.Context, conn *gorm.DB, prefix string) ([]domain.Token, error) {
	var tokens []domain.Token
	err := conn.WithContext(ctx).
		Where("prefix = ?", prefix).
		Order("id asc").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *repo) LockByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Token, error) {
	stmt := conn.WithContext(ctx)
	if db.SupportsRowLocks(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var token domain.Token
	err := stmt.Where("id = ?", id).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *repo) MarkUsed(ctx context.Context, conn *gorm.DB, id snowflake.ID, usedAt time.Time) (bool, error) {
	result := conn.WithContext(ctx).
		Model(&domain.Token{}).
		Where("id = ? AND status = ?", id, domain.TokenStatusActive).
		Updates(map[string]any{
			"status":  domain.TokenStatusUsed,
			"used_at": usedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) MarkExpired(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	result := conn.WithContext(ctx).
		Model(&domain.Token{}).
		Where("id = ? AND status = ?", id, domain.TokenStatusActive).
		Update("status", domain.TokenStatusExpired)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertTransaction(ctx context.Context, conn *gorm.DB, txn *domain.Transaction) error {
	return conn.WithContext(ctx).Create(txn).Error
}

func (r *repo) InsertAttempt(ctx context.Context, conn *gorm.DB, attempt *domain.RedemptionAttempt) error {
	return conn.WithContext(ctx).Create(attempt).Error
}
