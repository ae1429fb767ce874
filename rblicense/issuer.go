package rblicense

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Issuer signs activation payloads on the vendor side.
type Issuer struct {
	signer crypto.Signer
	prefix string
	now    func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithIssuerPrefix overrides the key prefix. Default: KeyPrefix.
func WithIssuerPrefix(prefix string) IssuerOption {
	return func(i *Issuer) {
		i.prefix = prefix
	}
}

// WithIssuerClock sets the clock used to stamp issuedAt.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an Issuer signing with an *rsa.PrivateKey
// (RSASSA-PKCS1-v1_5, SHA-256) or an ed25519.PrivateKey.
func NewIssuer(signer crypto.Signer, opts ...IssuerOption) *Issuer {
	i := &Issuer{signer: signer, prefix: KeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue marshals payload, signs it and returns the activation key string.
// IssuedAt is filled in when empty.
func (i *Issuer) Issue(payload ActivationPayload) (string, error) {
	if blank(payload.Product) || blank(payload.Machine) {
		return "", ErrIncompletePayload
	}
	if payload.ExpiresAt != "" {
		if _, err := ParseExpiry(payload.ExpiresAt); err != nil {
			return "", err
		}
	}
	if payload.IssuedAt == "" {
		payload.IssuedAt = i.now().UTC().Format(expiryLayoutInstant)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	sig, err := i.sign(raw)
	if err != nil {
		return "", err
	}
	return ActivationKey{Prefix: i.prefix, Payload: raw, Signature: sig}.String(), nil
}

func (i *Issuer) sign(raw []byte) ([]byte, error) {
	switch key := i.signer.(type) {
	case *rsa.PrivateKey:
		digest := sha256.Sum256(raw)
		sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
		if err != nil {
			return nil, fmt.Errorf("sign payload: %w", err)
		}
		return sig, nil
	case ed25519.PrivateKey:
		return ed25519.Sign(key, raw), nil
	case nil:
		return nil, errors.New("sign payload: no private key")
	default:
		return nil, fmt.Errorf("sign payload: unsupported private key type %T", key)
	}
}

// GenerateRSAKeyPair creates a new RSA signing key of the given size.
func GenerateRSAKeyPair(bits int) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	return key, nil
}

// EncodePrivateKeyPEM encodes a private key as PKCS#8 PEM.
func EncodePrivateKeyPEM(key crypto.Signer) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParsePrivateKeyPEM parses a PKCS#8 or PKCS#1 PEM private key.
func ParsePrivateKeyPEM(data []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("parse private key: no PEM block found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("parse private key: unsupported key type %T", key)
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("parse private key: unexpected PEM block %q", block.Type)
	}
}

// MarshalPublicKeyXML renders an RSA public key as RSAKeyValue XML, the
// format shipped as the license_public_key resource.
func MarshalPublicKeyXML(pub *rsa.PublicKey) (string, error) {
	if pub == nil || pub.N == nil {
		return "", errors.New("marshal public key: nil key")
	}
	kv := rsaKeyValue{
		Modulus:  base64.StdEncoding.EncodeToString(pub.N.Bytes()),
		Exponent: base64.StdEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
	out, err := xml.Marshal(kv)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return string(out), nil
}

// EncodePublicKeyPEM encodes a public key as PKIX PEM.
func EncodePublicKeyPEM(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return strings.TrimSpace(string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))), nil
}
