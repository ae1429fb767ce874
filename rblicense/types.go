package rblicense

// Fixed identifiers shared by the client and the key issuer.
const (
	ProductID             = "rollaball"
	KeyPrefix             = "ROLLABALL1"
	PublicKeyResourceName = "license_public_key"

	LicenseFileName     = "license.key"
	MachineCodeFileName = "machine_code.txt"
	InstallIDFileName   = "install_id.txt"
)

const (
	reasonActivated   = "Activated."
	reasonNotFound    = "Not activated. Put " + LicenseFileName + " next to the .exe (" + MachineCodeFileName + " was generated)."
	reasonEmptyFile   = "License file is empty: "
	reasonInvalidFile = "License file invalid: "
)

// ActivationKey is a parsed activation key string.
type ActivationKey struct {
	Prefix    string
	Payload   []byte
	Signature []byte
}

// ActivationPayload is the signed JSON document inside an activation key.
// Unknown fields are ignored when decoding.
type ActivationPayload struct {
	Product   string `json:"product" validate:"notblank"`
	Machine   string `json:"machine" validate:"notblank"`
	IssuedAt  string `json:"issuedAt,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// Result is the outcome of a validation run. Reason is always populated.
type Result struct {
	Activated bool
	Reason    string
	// Err is the underlying failure, nil on success.
	Err error
	// Payload is set once the signature has been verified and the JSON decoded.
	Payload *ActivationPayload
	// Path is the license file the result was derived from, if any.
	Path string
}
