package pricing

import (
	"math"
	"time"

	"github.com/rishabhdev/roomio/internal/apperrors"
	"github.com/rishabhdev/roomio/internal/models"
)

// AmountTolerance is the maximum difference under which two monetary
// amounts are considered equal.
const AmountTolerance = 0.01

type Settings struct {
	TaxPercent  float64
	PlatformFee float64
}

type AddonLine struct {
	Addon    models.Addon
	Quantity int
}

// Quote is a full price breakdown for a requested stay.
type Quote struct {
	BasePrice   float64 `json:"base_price"`
	AddonsTotal float64 `json:"addons_total"`
	Tax         float64 `json:"tax"`
	PlatformFee float64 `json:"platform_fee"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
	Nights      int     `json:"nights,omitempty"`
	Hours       int     `json:"hours,omitempty"`
}

type Calculator struct {
	settings Settings
}

func NewCalculator(settings Settings) *Calculator {
	return &Calculator{settings: settings}
}

// Quote computes the expected total for a stay. Daily stays charge
// pricePerNight per (ceiled) night; hourly stays require a tier whose
// duration matches the requested hours exactly.
func (c *Calculator) Quote(room *models.Room, checkIn, checkOut time.Time, bookingType string, addons []AddonLine, discount float64) (*Quote, error) {
	if !checkIn.Before(checkOut) {
		return nil, apperrors.Validation("Check-in must be before check-out.")
	}
	if discount < 0 {
		return nil, apperrors.Validation("Discount cannot be negative.")
	}

	quote := &Quote{Discount: Round(discount), PlatformFee: c.settings.PlatformFee}

	switch bookingType {
	case models.BookingTypeDaily:
		nights := NightsBetween(checkIn, checkOut)
		quote.Nights = nights
		quote.BasePrice = Round(room.PricePerNight * float64(nights))
	case models.BookingTypeHourly:
		hours, err := HoursBetween(checkIn, checkOut)
		if err != nil {
			return nil, err
		}
		tier := matchHourlyStay(room.HourlyStays, hours)
		if tier == nil {
			return nil, apperrors.Validationf("No hourly rate available for a %d hour stay.", hours)
		}
		quote.Hours = hours
		quote.BasePrice = tier.Price
	default:
		return nil, apperrors.Validation("Booking type must be daily or hourly.")
	}

	for _, line := range addons {
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}
		quote.AddonsTotal += line.Addon.Price * float64(qty)
	}
	quote.AddonsTotal = Round(quote.AddonsTotal)

	quote.Tax = Round((quote.BasePrice + quote.AddonsTotal) * c.settings.TaxPercent / 100)
	quote.Total = Round(quote.BasePrice + quote.Tax + quote.PlatformFee + quote.AddonsTotal - quote.Discount)

	return quote, nil
}

// NightsBetween counts billable nights, rounding partial nights up.
func NightsBetween(checkIn, checkOut time.Time) int {
	nights := int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
	if nights < 1 {
		nights = 1
	}
	return nights
}

// HoursBetween requires the interval to span a whole number of hours.
func HoursBetween(checkIn, checkOut time.Time) (int, error) {
	duration := checkOut.Sub(checkIn)
	hours := duration.Hours()
	if hours != math.Trunc(hours) {
		return 0, apperrors.Validation("Hourly stays must span a whole number of hours.")
	}
	return int(hours), nil
}

func matchHourlyStay(tiers []models.HourlyStay, hours int) *models.HourlyStay {
	for i := range tiers {
		if tiers[i].Hours == hours {
			return &tiers[i]
		}
	}
	return nil
}

// AmountsMatch compares two amounts within AmountTolerance.
func AmountsMatch(a, b float64) bool {
	return math.Abs(a-b) <= AmountTolerance+1e-9
}

func Round(amount float64) float64 {
	return math.Round(amount*100) / 100
}
