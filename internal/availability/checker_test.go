package availability

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func testRoom() *models.Room {
	return &models.Room{
		ID:           uuid.New(),
		Capacity:     2,
		AllowsDaily:  true,
		AllowsHourly: false,
	}
}

func TestCheckConflictRejected(t *testing.T) {
	gdb, mock := newMockDB(t)
	checker := NewChecker(gdb)

	day1 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	day4 := day1.Add(72 * time.Hour)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	result, err := checker.Check(context.Background(), testRoom(), day2, day4, models.BookingTypeDaily, 2)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, "Room is already booked for the requested interval.", result.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckNoConflict(t *testing.T) {
	gdb, mock := newMockDB(t)
	checker := NewChecker(gdb)

	day3 := time.Date(2026, 4, 3, 12, 0, 0, 0, time.UTC)
	day5 := day3.Add(48 * time.Hour)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	result, err := checker.Check(context.Background(), testRoom(), day3, day5, models.BookingTypeDaily, 2)
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckCapacityExceeded(t *testing.T) {
	gdb, mock := newMockDB(t)
	checker := NewChecker(gdb)

	checkIn := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	result, err := checker.Check(context.Background(), testRoom(), checkIn, checkIn.Add(24*time.Hour), models.BookingTypeDaily, 5)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, "Guest count exceeds room capacity.", result.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckUnsupportedBookingType(t *testing.T) {
	gdb, mock := newMockDB(t)
	checker := NewChecker(gdb)

	checkIn := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	result, err := checker.Check(context.Background(), testRoom(), checkIn, checkIn.Add(3*time.Hour), models.BookingTypeHourly, 2)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, "Room does not support hourly bookings.", result.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInvertedInterval(t *testing.T) {
	gdb, _ := newMockDB(t)
	checker := NewChecker(gdb)

	checkIn := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	_, err := checker.Check(context.Background(), testRoom(), checkIn, checkIn, models.BookingTypeDaily, 2)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestOverlapsHalfOpen(t *testing.T) {
	day1 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	day3 := day1.Add(48 * time.Hour)
	day4 := day1.Add(72 * time.Hour)
	day5 := day1.Add(96 * time.Hour)

	// existing booking [day1, day3)
	assert.True(t, Overlaps(day1, day3, day2, day4))
	assert.False(t, Overlaps(day1, day3, day3, day5))
	assert.False(t, Overlaps(day3, day5, day1, day3))
	assert.True(t, Overlaps(day1, day3, day1, day3))
}
