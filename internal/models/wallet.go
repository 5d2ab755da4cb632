package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	WalletTxnCredit = "credit"
	WalletTxnDebit  = "debit"
)

// Wallet holds a user's spendable balance. Invariant: balance equals
// total_earned - total_spent and is never negative. Only the wallet
// ledger mutates these columns.
type Wallet struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Balance     float64   `gorm:"not null;default:0"`
	TotalEarned float64   `gorm:"not null;default:0"`
	TotalSpent  float64   `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (wallet *Wallet) BeforeCreate(tx *gorm.DB) (err error) {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	return
}

// WalletTransaction is an immutable ledger entry. BalanceAfter records
// the wallet balance immediately after the entry was applied.
type WalletTransaction struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	WalletID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	Type          string     `gorm:"not null"`
	Amount        float64    `gorm:"not null"`
	BalanceAfter  float64    `gorm:"not null"`
	Source        string     `gorm:"not null"`
	ReferenceID   *uuid.UUID `gorm:"type:uuid"`
	ReferenceType *string
	CreatedAt     time.Time
}

func (txn *WalletTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return
}
