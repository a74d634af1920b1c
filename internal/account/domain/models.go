package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
)

// Account is the owner of withdrawal tokens. Account provisioning is managed
// by external processes; this service only reads status.
type Account struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	AccountRef string        `gorm:"column:account_ref;type:text;not null;uniqueIndex" json:"account_ref"`
	Status     AccountStatus `gorm:"type:text;not null;default:'ACTIVE'" json:"status"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }
