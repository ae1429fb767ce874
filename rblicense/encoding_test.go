package rblicense

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase32Encode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"f", "MY"},
		{"fo", "MZXQ"},
		{"foo", "MZXW6"},
		{"foob", "MZXW6YQ"},
		{"fooba", "MZXW6YTB"},
		{"foobar", "MZXW6YTBOI"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Base32Encode([]byte(tt.in)))
		})
	}
}

func TestBase32Encode_Alphabet(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
	for size := 1; size <= 64; size++ {
		data := make([]byte, size)
		_, err := rand.Read(data)
		require.NoError(t, err)

		got := Base32Encode(data)
		assert.Equal(t, got, Base32Encode(data), "must be deterministic")
		assert.Equal(t, (size*8+4)/5, len(got))
		for _, r := range got {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("unexpected character %q in %q", r, got)
			}
		}
	}
}

func TestBase64URLDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{name: "empty", in: "", want: []byte{}},
		{name: "remainder 2", in: "YQ", want: []byte("a")},
		{name: "remainder 3", in: "YWI", want: []byte("ab")},
		{name: "remainder 0", in: "YWJj", want: []byte("abc")},
		{name: "already padded", in: "YQ==", want: []byte("a")},
		{name: "url alphabet", in: "-_8", want: []byte{0xfb, 0xff}},
		{name: "remainder 1", in: "YWJjZ", wantErr: true},
		{name: "invalid character", in: "YW!j", wantErr: true},
		{name: "non-zero trailing bits", in: "notb64", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Base64URLDecode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedEncoding))
				return
			}
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.want, got), "got %x want %x", got, tt.want)
		})
	}
}

func TestBase64URLDecode_MatchesStandard(t *testing.T) {
	for size := 0; size <= 32; size++ {
		data := make([]byte, size)
		_, err := rand.Read(data)
		require.NoError(t, err)

		std := base64.StdEncoding.EncodeToString(data)
		urlText := Base64URLEncode(data)
		assert.Equal(t, base64.RawURLEncoding.EncodeToString(data), urlText)

		got, err := Base64URLDecode(urlText)
		require.NoError(t, err)
		want, err := base64.StdEncoding.DecodeString(std)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(want, got))
	}
}
