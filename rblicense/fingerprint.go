package rblicense

import (
	"crypto/sha256"
	"strings"
)

// MachineCode derives the machine code for a product installation. It joins
// the product id, install id and device id with "|", hashes the UTF-8 bytes
// with SHA-256 and Base32-encodes the digest.
//
// The result is deterministic for the same inputs and is what activation
// payloads must carry in their "machine" field.
func MachineCode(productID, installID, deviceID string) string {
	raw := strings.Join([]string{productID, installID, deviceID}, "|")
	digest := sha256.Sum256([]byte(raw))
	return Base32Encode(digest[:])
}
