package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Record is one stored row: the id plus every Field Set column.
type Record map[string]any

// Assignment sets one column to one normalized value.
type Assignment struct {
	Field string
	Value any
}

// PartialUpdate is a non-empty set of assignments targeting one record.
type PartialUpdate struct {
	ID          int64
	Assignments []Assignment
}

// Values flattens assignments into a name -> value map.
func Values(assignments []Assignment) map[string]any {
	out := make(map[string]any, len(assignments))
	for _, a := range assignments {
		out[a.Field] = a.Value
	}
	return out
}

// ValidationError reports a client payload that cannot be applied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError not tied to a single field.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// IsValidation reports whether err carries a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// Normalize converts a decoded JSON value to the Go type of the field kind
// and checks the field's validation rules.
func Normalize(f Field, raw any) (any, error) {
	var value any
	switch f.Kind {
	case KindString:
		switch v := raw.(type) {
		case string:
			value = strings.TrimSpace(v)
		case json.Number:
			value = v.String()
		default:
			return nil, &ValidationError{Field: f.Name, Message: fmt.Sprintf("Field '%s' must be a string.", f.Name)}
		}
	case KindInteger, KindYear:
		n, ok := toInt64(raw)
		if !ok {
			return nil, &ValidationError{Field: f.Name, Message: fmt.Sprintf("Field '%s' must be an integer.", f.Name)}
		}
		value = n
	default:
		return nil, fmt.Errorf("field %q has unsupported kind %q", f.Name, f.Kind)
	}

	if f.Rules != "" {
		if err := validate.Var(value, f.Rules); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return nil, &ValidationError{
					Field:   f.Name,
					Message: fmt.Sprintf("Field '%s' failed the '%s' rule.", f.Name, verrs[0].Tag()),
				}
			}
			return nil, fmt.Errorf("validating field %q: %w", f.Name, err)
		}
	}
	return value, nil
}

// checkRules compiles a field's rules against a zero value of its kind.
// The validator panics on malformed tags, so the panic is turned into an error.
func checkRules(f Field) (err error) {
	if f.Rules == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid rules %q: %v", f.Rules, r)
		}
	}()

	var sample any = ""
	if f.Kind != KindString {
		sample = int64(0)
	}
	_ = validate.Var(sample, f.Rules)
	return nil
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if fl, err := v.Float64(); err == nil {
			return floatToInt64(fl)
		}
		return 0, false
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	case float64:
		return floatToInt64(v)
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	default:
		return 0, false
	}
}

func floatToInt64(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	if v >= math.MaxInt64 || v < math.MinInt64 {
		return 0, false
	}
	return int64(v), true
}
