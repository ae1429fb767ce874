package rblicense

import (
	"errors"
	"fmt"
)

// Sentinel errors for activation key parsing.
var (
	ErrEmptyKey          = errors.New("activation key is empty")
	ErrInvalidFormat     = errors.New("activation key format is invalid")
	ErrMalformedKey      = errors.New("activation key is malformed")
	ErrMalformedEncoding = errors.New("malformed base64url encoding")
)

// Sentinel errors for signature verification.
var (
	ErrPublicKeyMissing      = errors.New("public key missing")
	ErrSignatureVerification = errors.New("signature verification failed")
	ErrSignatureInvalid      = errors.New("activation key signature is invalid")
)

// Sentinel errors for payload policy checks.
var (
	ErrPayloadInvalid    = errors.New("activation payload is invalid")
	ErrIncompletePayload = errors.New("activation payload is incomplete")
	ErrWrongProduct      = errors.New("activation key is for a different product")
	ErrWrongMachine      = errors.New("activation key is for a different machine")
	ErrInvalidExpiry     = errors.New("activation key expiry is invalid")
	ErrExpired           = errors.New("activation key is expired")
)

// Sentinel errors for the license file store.
var (
	ErrLicenseFileNotFound = errors.New("license file not found")
	ErrLicenseFileEmpty    = errors.New("license file is empty")
	ErrNoDirectory         = errors.New("directory is not available")
)

// VerifierError reports that the verifier itself could not run, for example
// because the embedded public key could not be parsed. It matches
// ErrSignatureVerification with errors.Is and unwraps to the cause.
type VerifierError struct {
	Err error
}

func (e *VerifierError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSignatureVerification, e.Err)
}

func (e *VerifierError) Is(target error) bool {
	return target == ErrSignatureVerification
}

func (e *VerifierError) Unwrap() error {
	return e.Err
}

var reasons = []struct {
	err    error
	reason string
}{
	{ErrEmptyKey, "Activation key is empty."},
	{ErrInvalidFormat, "Activation key format is invalid."},
	{ErrMalformedKey, "Activation key is malformed."},
	{ErrSignatureInvalid, "Activation key signature is invalid."},
	{ErrPayloadInvalid, "Activation payload is invalid."},
	{ErrIncompletePayload, "Activation payload is incomplete."},
	{ErrWrongProduct, "Activation key is for a different product."},
	{ErrWrongMachine, "Activation key is for a different PC."},
	{ErrInvalidExpiry, "Activation key expiry is invalid."},
	{ErrExpired, "Activation key is expired."},
}

// Reason converts an error returned by this package into the sentence shown
// to the player. A nil error yields the success message.
func Reason(err error) string {
	if err == nil {
		return reasonActivated
	}

	var verr *VerifierError
	if errors.As(err, &verr) {
		return "Signature verification failed: " + verr.Err.Error()
	}
	if errors.Is(err, ErrPublicKeyMissing) {
		return fmt.Sprintf("Public key missing (%s).", PublicKeyResourceName)
	}

	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return err.Error()
}
