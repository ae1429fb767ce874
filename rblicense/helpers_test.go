package rblicense

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	keyOnce   sync.Once
	keyPair   [2]*rsa.PrivateKey
	errKeyGen error
)

// testKeys returns two RSA keys shared by every test in the package.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		for i := range keyPair {
			keyPair[i], errKeyGen = GenerateRSAKeyPair(2048)
			if errKeyGen != nil {
				return
			}
		}
	})
	require.NoError(t, errKeyGen)
	return keyPair[0], keyPair[1]
}

func xmlResources(t *testing.T, key *rsa.PrivateKey) *FSResources {
	t.Helper()
	pub, err := MarshalPublicKeyXML(&key.PublicKey)
	require.NoError(t, err)
	return NewFSResources(fstest.MapFS{
		PublicKeyResourceName + ".xml": {Data: []byte(pub)},
	})
}

type testEnv struct {
	platform StaticPlatform
	key      *rsa.PrivateKey
	now      time.Time
	svc      *Service
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	key, _ := testKeys(t)
	env := &testEnv{
		platform: StaticPlatform{
			Device:  "device-1234",
			DataDir: t.TempDir(),
			Exe:     t.TempDir(),
		},
		key: key,
		now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	opts = append([]Option{WithClock(func() time.Time { return env.now })}, opts...)
	env.svc = NewService(env.platform, xmlResources(t, key), opts...)
	return env
}

// issue signs a payload for this environment's machine with signer.
func (e *testEnv) issue(t *testing.T, signer *rsa.PrivateKey, mutate func(*ActivationPayload)) string {
	t.Helper()
	payload := ActivationPayload{
		Product: ProductID,
		Machine: e.svc.GetMachineCode(),
	}
	if mutate != nil {
		mutate(&payload)
	}
	key, err := NewIssuer(signer).Issue(payload)
	require.NoError(t, err)
	return key
}

// signRaw signs arbitrary payload bytes, bypassing the issuer's checks.
func signRaw(t *testing.T, signer *rsa.PrivateKey, raw []byte) string {
	t.Helper()
	digest := sha256.Sum256(raw)
	sig, err := rsa.SignPKCS1v15(rand.Reader, signer, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return ActivationKey{Prefix: KeyPrefix, Payload: raw, Signature: sig}.String()
}
