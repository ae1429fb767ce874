package rblicense

import (
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strings"
)

var (
	base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)
	base64Std   = base64.StdEncoding.Strict()
)

// Base32Encode renders data with the RFC 4648 alphabet (A-Z, 2-7) and no
// padding characters. Empty input yields an empty string.
func Base32Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return base32NoPad.EncodeToString(data)
}

// Base64URLEncode renders data with the URL-safe alphabet and no padding.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode decodes URL-safe base64 with or without padding. The input
// is mapped onto the standard alphabet, padding is restored from len%4 and the
// result is decoded strictly. A remainder of 1 can never be valid.
func Base64URLDecode(text string) ([]byte, error) {
	padded := strings.NewReplacer("-", "+", "_", "/").Replace(text)
	switch len(padded) % 4 {
	case 1:
		return nil, fmt.Errorf("%w: invalid length %d", ErrMalformedEncoding, len(text))
	case 2:
		padded += "=="
	case 3:
		padded += "="
	}

	out, err := base64Std.DecodeString(padded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	return out, nil
}
