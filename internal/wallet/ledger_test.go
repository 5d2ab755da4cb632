package wallet

import (
	"context"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewLedger(gdb, log), mock
}

func walletRows(walletID, userID uuid.UUID, balance, earned, spent float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "balance", "total_earned", "total_spent"}).
		AddRow(walletID, userID, balance, earned, spent)
}

func TestDebitInsufficientBalance(t *testing.T) {
	ledger, mock := newMockLedger(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "wallets" (.+)FOR UPDATE`).
		WillReturnRows(walletRows(uuid.New(), userID, 500, 500, 0))
	mock.ExpectRollback()

	_, err := ledger.Debit(context.Background(), userID, 600, "payment", nil, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientBalance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitFullBalance(t *testing.T) {
	ledger, mock := newMockLedger(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "wallets" (.+)FOR UPDATE`).
		WillReturnRows(walletRows(uuid.New(), userID, 500, 500, 0))
	mock.ExpectExec(`UPDATE "wallets"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "wallet_transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry, err := ledger.Debit(context.Background(), userID, 500, "payment", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "debit", entry.Type)
	assert.Equal(t, 500.0, entry.Amount)
	assert.Equal(t, 0.0, entry.BalanceAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditUpdatesBalanceAfter(t *testing.T) {
	ledger, mock := newMockLedger(t)
	userID := uuid.New()
	refID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "wallets" (.+)FOR UPDATE`).
		WillReturnRows(walletRows(uuid.New(), userID, 100, 100, 0))
	mock.ExpectExec(`UPDATE "wallets"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "wallet_transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry, err := ledger.Credit(context.Background(), userID, 250, "refund", &refID, "refund")
	require.NoError(t, err)
	assert.Equal(t, "credit", entry.Type)
	assert.Equal(t, 350.0, entry.BalanceAfter)
	require.NotNil(t, entry.ReferenceID)
	assert.Equal(t, refID, *entry.ReferenceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := ledger.Debit(context.Background(), uuid.New(), 0, "payment", nil, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceMissingWallet(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectQuery(`SELECT (.+) FROM "wallets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance"}))

	balance, err := ledger.Balance(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
