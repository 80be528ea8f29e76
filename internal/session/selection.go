package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// Selection is the user's current filter choice. It is never persisted.
type Selection struct {
	Commodity  string  `validate:"required"`
	Region     string  `validate:"required"`
	Window     int     `default:"12" validate:"gte=3,lte=24"`
	ZThreshold float64 `default:"2" validate:"gte=1,lte=5"`
}

// ValidationError lists the fields of a Selection that are out of range.
type ValidationError struct {
	Fields []string
	msgs   []string
}

func (e *ValidationError) Error() string {
	return "invalid selection: " + strings.Join(e.msgs, "; ")
}

// Normalize fills zero values with defaults and validates ranges.
func (s *Selection) Normalize() error {
	if err := defaults.Set(s); err != nil {
		return fmt.Errorf("apply selection defaults: %w", err)
	}
	s.Commodity = strings.TrimSpace(s.Commodity)
	s.Region = strings.TrimSpace(s.Region)

	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		out := &ValidationError{}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, fe.Field())
			out.msgs = append(out.msgs, fieldMessage(fe))
		}
		return out
	}
	return nil
}

// Z returns the threshold as a decimal for the statistics engine.
func (s Selection) Z() decimal.Decimal {
	return decimal.NewFromFloat(s.ZThreshold)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
