package rblicense

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"strings"
)

// Verifier checks activation key signatures against the public key bundled
// with the client.
type Verifier struct {
	resources    ResourceLoader
	resourceName string
}

// NewVerifier creates a Verifier that loads the public key named
// resourceName from resources on every call.
func NewVerifier(resources ResourceLoader, resourceName string) *Verifier {
	return &Verifier{resources: resources, resourceName: resourceName}
}

// Verify reports whether signature is a valid signature over payload.
//
// A signature that simply does not match returns false with a nil error.
// ErrPublicKeyMissing is returned when the key resource is absent or blank,
// and a *VerifierError when the key cannot be used at all.
func (v *Verifier) Verify(payload, signature []byte) (bool, error) {
	text, err := v.loadPublicKey()
	if err != nil {
		return false, err
	}

	pub, err := ParsePublicKey(text)
	if err != nil {
		return false, &VerifierError{Err: err}
	}
	return verifySignature(pub, payload, signature)
}

func (v *Verifier) loadPublicKey() (string, error) {
	if v.resources == nil {
		return "", ErrPublicKeyMissing
	}
	text, err := v.resources.LoadText(v.resourceName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %v", ErrPublicKeyMissing, err)
		}
		return "", &VerifierError{Err: err}
	}
	if blank(text) {
		return "", ErrPublicKeyMissing
	}
	return text, nil
}

func verifySignature(pub crypto.PublicKey, payload, signature []byte) (bool, error) {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		digest := sha256.Sum256(payload)
		return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature) == nil, nil
	case ed25519.PublicKey:
		return ed25519.Verify(key, payload, signature), nil
	default:
		return false, &VerifierError{Err: fmt.Errorf("unsupported public key type %T", pub)}
	}
}

// rsaKeyValue is the XML public key layout produced by .NET's
// RSA.ToXmlString(false).
type rsaKeyValue struct {
	XMLName  xml.Name `xml:"RSAKeyValue"`
	Modulus  string   `xml:"Modulus"`
	Exponent string   `xml:"Exponent"`
}

// ParsePublicKey parses an RSA public key in RSAKeyValue XML, or an RSA or
// Ed25519 public key in PEM form.
func ParsePublicKey(text string) (crypto.PublicKey, error) {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "<"):
		return parseRSAKeyValue(text)
	case strings.HasPrefix(text, "-----BEGIN"):
		return parsePEMPublicKey(text)
	default:
		return nil, errors.New("unrecognised public key format")
	}
}

func parseRSAKeyValue(text string) (*rsa.PublicKey, error) {
	var kv rsaKeyValue
	if err := xml.Unmarshal([]byte(text), &kv); err != nil {
		return nil, fmt.Errorf("parse RSAKeyValue: %w", err)
	}

	modulus, err := base64.StdEncoding.DecodeString(strings.TrimSpace(kv.Modulus))
	if err != nil || len(modulus) == 0 {
		return nil, errors.New("parse RSAKeyValue: invalid Modulus")
	}
	exponent, err := base64.StdEncoding.DecodeString(strings.TrimSpace(kv.Exponent))
	if err != nil || len(exponent) == 0 || len(exponent) > 4 {
		return nil, errors.New("parse RSAKeyValue: invalid Exponent")
	}

	e := new(big.Int).SetBytes(exponent)
	return &rsa.PublicKey{N: new(big.Int).SetBytes(modulus), E: int(e.Int64())}, nil
}

func parsePEMPublicKey(text string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(text))
	if block == nil {
		return nil, errors.New("parse PEM: no block found")
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#1 public key: %w", err)
		}
		return pub, nil
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKIX public key: %w", err)
		}
		switch pub.(type) {
		case *rsa.PublicKey, ed25519.PublicKey:
			return pub, nil
		default:
			return nil, fmt.Errorf("unsupported public key type %T", pub)
		}
	default:
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}
}
