package rblicense

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActivationKey_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrEmptyKey},
		{"whitespace", "  \n\t", ErrEmptyKey},
		{"wrong prefix", "BAD.x.y", ErrInvalidFormat},
		{"lowercase prefix", "rollaball1.YQ.YQ", ErrInvalidFormat},
		{"two parts", "ROLLABALL1.YQ", ErrInvalidFormat},
		{"four parts", "ROLLABALL1.YQ.YQ.YQ", ErrInvalidFormat},
		{"not base64", "ROLLABALL1.notb64.notb64", ErrMalformedKey},
		{"bad signature", "ROLLABALL1.YQ.Y", ErrMalformedKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseActivationKey(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestParseActivationKey_RoundTrip(t *testing.T) {
	key := ActivationKey{
		Prefix:    KeyPrefix,
		Payload:   []byte(`{"product":"rollaball","machine":"ABC"}`),
		Signature: []byte{0xfb, 0xff, 0x00, 0x10},
	}

	parsed, err := ParseActivationKey("  " + key.String() + "\r\n")
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}
