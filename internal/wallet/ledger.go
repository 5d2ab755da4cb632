package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/rishabhdev/roomio/internal/pricing"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the only writer of wallet balances. Every mutation locks
// the wallet row, updates the balance and appends one immutable
// WalletTransaction whose BalanceAfter equals the new balance.
type Ledger struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewLedger(db *gorm.DB, logger *logrus.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

func (l *Ledger) Credit(ctx context.Context, userID uuid.UUID, amount float64, source string, referenceID *uuid.UUID, referenceType string) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = l.CreditTx(tx, userID, amount, source, referenceID, referenceType)
		return err
	})
	return entry, err
}

func (l *Ledger) Debit(ctx context.Context, userID uuid.UUID, amount float64, source string, referenceID *uuid.UUID, referenceType string) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = l.DebitTx(tx, userID, amount, source, referenceID, referenceType)
		return err
	})
	return entry, err
}

// CreditTx applies a credit inside the caller's transaction, so money
// granted by a payment or refund commits or rolls back with it.
func (l *Ledger) CreditTx(tx *gorm.DB, userID uuid.UUID, amount float64, source string, referenceID *uuid.UUID, referenceType string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("Credit amount must be positive.")
	}

	wallet, err := l.walletForUpdate(tx, userID)
	if err != nil {
		return nil, err
	}

	wallet.TotalEarned = pricing.Round(wallet.TotalEarned + amount)
	wallet.Balance = pricing.Round(wallet.Balance + amount)
	if err := tx.Model(&models.Wallet{}).Where("id = ?", wallet.ID).
		Updates(map[string]interface{}{
			"balance":      wallet.Balance,
			"total_earned": wallet.TotalEarned,
		}).Error; err != nil {
		return nil, err
	}

	return l.appendEntry(tx, wallet, models.WalletTxnCredit, amount, source, referenceID, referenceType)
}

// DebitTx applies a debit inside the caller's transaction. A debit
// that would push the balance negative fails with
// InsufficientBalance and writes nothing.
func (l *Ledger) DebitTx(tx *gorm.DB, userID uuid.UUID, amount float64, source string, referenceID *uuid.UUID, referenceType string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("Debit amount must be positive.")
	}

	wallet, err := l.walletForUpdate(tx, userID)
	if err != nil {
		return nil, err
	}

	if wallet.Balance < amount {
		return nil, apperrors.InsufficientBalance("Insufficient wallet balance.")
	}

	wallet.TotalSpent = pricing.Round(wallet.TotalSpent + amount)
	wallet.Balance = pricing.Round(wallet.Balance - amount)
	if err := tx.Model(&models.Wallet{}).Where("id = ?", wallet.ID).
		Updates(map[string]interface{}{
			"balance":     wallet.Balance,
			"total_spent": wallet.TotalSpent,
		}).Error; err != nil {
		return nil, err
	}

	return l.appendEntry(tx, wallet, models.WalletTxnDebit, amount, source, referenceID, referenceType)
}

// Balance returns the current balance, zero for users without a wallet
// row yet.
func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (float64, error) {
	var wallet models.Wallet
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return wallet.Balance, nil
}

func (l *Ledger) Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	var entries []models.WalletTransaction
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	return entries, err
}

func (l *Ledger) walletForUpdate(tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = models.Wallet{UserID: userID}
	if err := tx.Create(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (l *Ledger) appendEntry(tx *gorm.DB, wallet *models.Wallet, txnType string, amount float64, source string, referenceID *uuid.UUID, referenceType string) (*models.WalletTransaction, error) {
	entry := models.WalletTransaction{
		WalletID:     wallet.ID,
		UserID:       wallet.UserID,
		Type:         txnType,
		Amount:       pricing.Round(amount),
		BalanceAfter: wallet.Balance,
		Source:       source,
		ReferenceID:  referenceID,
	}
	if referenceType != "" {
		entry.ReferenceType = &referenceType
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"user_id":       wallet.UserID,
		"type":          txnType,
		"amount":        entry.Amount,
		"balance_after": entry.BalanceAfter,
		"source":        source,
	}).Info("wallet entry recorded")

	return &entry, nil
}
