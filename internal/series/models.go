package series

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical key layout used for joining series.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Date is a calendar date normalised to UTC midnight.
type Date struct {
	t time.Time
}

// NewDate truncates t to its calendar date in t's own location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts plain dates as well as timestamps emitted by the collaborators.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// MustParseDate is ParseDate for literals.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Key returns the canonical join key.
func (d Date) Key() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) String() string { return d.Key() }

// Time returns the date as a UTC midnight timestamp.
func (d Date) Time() time.Time { return d.t }

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Key())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PriceRecord is a single observation delivered by the price source.
type PriceRecord struct {
	Date      Date            `json:"date"`
	Region    string          `json:"region"`
	Commodity string          `json:"commodity"`
	Price     decimal.Decimal `json:"price"`
	Unit      string          `json:"unit"`
}

// AnomalyPoint is a pre-scored observation from the statistics engine.
type AnomalyPoint struct {
	Date   Date            `json:"date"`
	Price  decimal.Decimal `json:"price"`
	ZScore decimal.Decimal `json:"z_score"`
}

// AnnotatedPriceRecord is a price record joined with its anomaly flag.
type AnnotatedPriceRecord struct {
	PriceRecord
	IsAnomaly bool
	ZScore    *decimal.Decimal
}
