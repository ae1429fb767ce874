package rblicense

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const (
	expiryLayoutInstant = "2006-01-02T15:04:05Z"
	expiryLayoutDate    = "2006-01-02"
)

// Policy decides whether a verified payload grants activation on this
// machine.
type Policy struct {
	productID string
	validate  *validator.Validate
}

// NewPolicy creates a Policy for productID.
func NewPolicy(productID string) *Policy {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Policy{productID: productID, validate: v}
}

// Check decodes payloadJSON and applies, in order: completeness, product,
// machine and expiry. The first failing check wins. The decoded payload is
// returned whenever decoding succeeded, even if a later check failed.
func (p *Policy) Check(payloadJSON []byte, machineCode string, now time.Time) (*ActivationPayload, error) {
	var payload *ActivationPayload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	if payload == nil {
		return nil, ErrIncompletePayload
	}
	if err := p.validate.Struct(payload); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrIncompletePayload, err)
	}

	if payload.Product != p.productID {
		return payload, ErrWrongProduct
	}
	if payload.Machine != machineCode {
		return payload, ErrWrongMachine
	}

	if !blank(payload.ExpiresAt) {
		expires, err := ParseExpiry(payload.ExpiresAt)
		if err != nil {
			return payload, err
		}
		if now.UTC().After(expires) {
			return payload, fmt.Errorf("%w: expired at %s", ErrExpired, expires.Format(time.RFC3339))
		}
	}
	return payload, nil
}

// ParseExpiry parses an expiry as either a UTC instant
// ("2006-01-02T15:04:05Z") or a date ("2006-01-02"). A date means the last
// second of that day in UTC.
func ParseExpiry(text string) (time.Time, error) {
	if t, err := time.Parse(expiryLayoutInstant, text); err == nil {
		return t.UTC(), nil
	}
	if d, err := time.Parse(expiryLayoutDate, text); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidExpiry, text)
}
