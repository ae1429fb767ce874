package rblicense

import (
	"fmt"
	"strings"
)

// ParseActivationKey splits an activation key string into its prefix,
// payload and signature. Surrounding whitespace is ignored.
func ParseActivationKey(text string) (ActivationKey, error) {
	return parseActivationKey(text, KeyPrefix)
}

func parseActivationKey(text, prefix string) (ActivationKey, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ActivationKey{}, ErrEmptyKey
	}

	parts := strings.Split(text, ".")
	if len(parts) != 3 || parts[0] != prefix {
		return ActivationKey{}, ErrInvalidFormat
	}

	payload, err := Base64URLDecode(parts[1])
	if err != nil {
		return ActivationKey{}, fmt.Errorf("%w: payload: %v", ErrMalformedKey, err)
	}
	signature, err := Base64URLDecode(parts[2])
	if err != nil {
		return ActivationKey{}, fmt.Errorf("%w: signature: %v", ErrMalformedKey, err)
	}

	return ActivationKey{Prefix: parts[0], Payload: payload, Signature: signature}, nil
}

// String renders the key in its wire form with unpadded base64url segments.
func (k ActivationKey) String() string {
	return k.Prefix + "." + Base64URLEncode(k.Payload) + "." + Base64URLEncode(k.Signature)
}
