package alerts

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultDateFormat renders CreatedAt the way the dashboard shows it.
const DefaultDateFormat = "1/2/2006"

// UserAlert is a personal price threshold for one commodity in one region.
type UserAlert struct {
	ID        string          `json:"id"`
	Commodity string          `json:"commodity"`
	Region    string          `json:"region"`
	Threshold decimal.Decimal `json:"threshold"`
	CreatedAt string          `json:"createdAt"`
}

// ParseThreshold converts raw user input into a threshold.
func ParseThreshold(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return decimal.Decimal{}, &ValidationError{Field: "threshold", Err: ErrInvalidThreshold}
	}
	if _, err := ThresholdFromFloat(f); err != nil {
		return decimal.Decimal{}, err
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NewFromFloat(f), nil
	}
	return d, nil
}

// ThresholdFromFloat rejects NaN, infinities, zero, and negatives.
func ThresholdFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return decimal.Decimal{}, &ValidationError{Field: "threshold", Err: ErrInvalidThreshold}
	}
	return decimal.NewFromFloat(f), nil
}

func validate(commodity, region string, threshold decimal.Decimal) error {
	if strings.TrimSpace(commodity) == "" {
		return &ValidationError{Field: "commodity", Err: errors.New("must not be empty")}
	}
	if strings.TrimSpace(region) == "" {
		return &ValidationError{Field: "region", Err: errors.New("must not be empty")}
	}
	if threshold.Sign() <= 0 {
		return &ValidationError{Field: "threshold", Err: ErrInvalidThreshold}
	}
	return nil
}

func (a UserAlert) valid() bool {
	return a.ID != "" && validate(a.Commodity, a.Region, a.Threshold) == nil
}
