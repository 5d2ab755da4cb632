package pricing

import (
	"testing"
	"time"

	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoom() *models.Room {
	return &models.Room{
		PricePerNight: 1000,
		AllowsDaily:   true,
		AllowsHourly:  true,
		HourlyStays: []models.HourlyStay{
			{Hours: 3, Price: 400},
			{Hours: 6, Price: 700},
		},
	}
}

func TestQuoteDailyTwoNights(t *testing.T) {
	calc := NewCalculator(Settings{TaxPercent: 10, PlatformFee: 50})

	checkIn := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	checkOut := checkIn.Add(48 * time.Hour)

	quote, err := calc.Quote(testRoom(), checkIn, checkOut, models.BookingTypeDaily, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, quote.Nights)
	assert.Equal(t, 2000.0, quote.BasePrice)
	assert.Equal(t, 200.0, quote.Tax)
	assert.Equal(t, 50.0, quote.PlatformFee)
	assert.Equal(t, 2250.0, quote.Total)
}

func TestQuoteDailyPartialNightRoundsUp(t *testing.T) {
	calc := NewCalculator(Settings{TaxPercent: 0, PlatformFee: 0})

	checkIn := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 3, 11, 11, 0, 0, 0, time.UTC)

	quote, err := calc.Quote(testRoom(), checkIn, checkOut, models.BookingTypeDaily, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, quote.Nights)

	checkOut = time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	quote, err = calc.Quote(testRoom(), checkIn, checkOut, models.BookingTypeDaily, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, quote.Nights)
}

func TestQuoteHourlyExactTier(t *testing.T) {
	calc := NewCalculator(Settings{TaxPercent: 10, PlatformFee: 50})

	checkIn := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	quote, err := calc.Quote(testRoom(), checkIn, checkIn.Add(3*time.Hour), models.BookingTypeHourly, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, quote.Hours)
	assert.Equal(t, 400.0, quote.BasePrice)
	assert.Equal(t, 490.0, quote.Total)
}

func TestQuoteHourlyNoMatchingTier(t *testing.T) {
	calc := NewCalculator(Settings{TaxPercent: 10, PlatformFee: 50})

	checkIn := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_, err := calc.Quote(testRoom(), checkIn, checkIn.Add(4*time.Hour), models.BookingTypeHourly, nil, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestQuoteHourlyFractionalInterval(t *testing.T) {
	calc := NewCalculator(Settings{})

	checkIn := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_, err := calc.Quote(testRoom(), checkIn, checkIn.Add(90*time.Minute), models.BookingTypeHourly, nil, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestQuoteAddonsAndDiscount(t *testing.T) {
	calc := NewCalculator(Settings{TaxPercent: 10, PlatformFee: 50})

	checkIn := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	addons := []AddonLine{
		{Addon: models.Addon{Name: "Breakfast", Price: 100}, Quantity: 2},
	}

	quote, err := calc.Quote(testRoom(), checkIn, checkIn.Add(24*time.Hour), models.BookingTypeDaily, addons, 150)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, quote.BasePrice)
	assert.Equal(t, 200.0, quote.AddonsTotal)
	// tax on base+addons
	assert.Equal(t, 120.0, quote.Tax)
	assert.Equal(t, 150.0, quote.Discount)
	assert.Equal(t, 1000.0+120.0+50.0+200.0-150.0, quote.Total)
}

func TestQuoteInvalidInterval(t *testing.T) {
	calc := NewCalculator(Settings{})

	checkIn := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_, err := calc.Quote(testRoom(), checkIn, checkIn, models.BookingTypeDaily, nil, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestAmountsMatch(t *testing.T) {
	assert.True(t, AmountsMatch(2250, 2250))
	assert.True(t, AmountsMatch(2250.01, 2250))
	assert.True(t, AmountsMatch(2249.99, 2250))
	assert.False(t, AmountsMatch(2200, 2250))
	assert.False(t, AmountsMatch(2250.02, 2250))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 10.13, Round(10.126))
	assert.Equal(t, 0.1, Round(0.1))
	assert.Equal(t, 100.0, Round(99.999))
}
