package unlock

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// keyFilePrefix identifies key-file format version 1. The full format is
//
//	DUK1.<base64url payload>.<base64url signature>
//
// where payload is the JSON encoding of KeyPayload and signature is a
// detached Ed25519 signature over the raw payload bytes. Whitespace
// anywhere in the text is ignored so the blob survives line-wrapping
// mail clients and copy/paste.
const keyFilePrefix = "DUK1"

// KeyPayload is the signed record inside a key file.
type KeyPayload struct {
	// ProductID is the product this key unlocks.
	ProductID string `json:"product_id"`

	// MachineIDs binds the key to specific machines. Empty means the key
	// is valid on any machine (floating/offline licenses).
	MachineIDs []string `json:"machine_ids,omitempty"`

	// Email is the purchaser's email address, if known.
	Email string `json:"email,omitempty"`

	// IssuedAt records when the key was generated.
	IssuedAt time.Time `json:"issued_at,omitempty"`
}

// ParseKeyFile splits key-file text into its payload and detached
// signature. It performs no signature or identity checks; see
// validateKeyFile for the full pipeline.
func ParseKeyFile(content string) (payload, sig []byte, err error) {
	compact := stripSpace(content)

	parts := strings.Split(compact, ".")
	if len(parts) != 3 || parts[0] != keyFilePrefix {
		return nil, nil, ErrKeyFileInvalid
	}

	payload, err = base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: payload: %v", ErrKeyFileInvalid, err)
	}
	sig, err = base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: signature: %v", ErrKeyFileInvalid, err)
	}
	return payload, sig, nil
}

// validateKeyFile runs the whole key acceptance pipeline: parse, verify
// the signature under the product's public key, then check product and
// machine identity. It either returns the verified payload or an error;
// it never mutates anything, so a failure at any step leaves no trace.
func validateKeyFile(cfg LicenseConfig, content string) (*KeyPayload, error) {
	raw, sig, err := ParseKeyFile(content)
	if err != nil {
		return nil, err
	}

	if !VerifySignature(raw, sig, cfg.PublicKey()) {
		return nil, ErrSignatureInvalid
	}

	var p KeyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrKeyFileInvalid, err)
	}

	if !cfg.MatchesProductID(p.ProductID) {
		return nil, ErrProductMismatch
	}

	// No machine binding means the key is valid anywhere.
	if len(p.MachineIDs) > 0 && !matchesAnyMachineID(p.MachineIDs, cfg.MachineIDs()) {
		return nil, ErrMachineMismatch
	}

	return &p, nil
}

// SignKeyFile produces key-file text for a payload, signed with the
// product's private key. This is the integrator's side of the contract:
// it belongs in the key-generation tool, never in a shipping product.
func SignKeyFile(priv ed25519.PrivateKey, p KeyPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal key payload: %w", err)
	}
	sig := ed25519.Sign(priv, raw)
	return keyFilePrefix + "." +
		base64.RawURLEncoding.EncodeToString(raw) + "." +
		base64.RawURLEncoding.EncodeToString(sig), nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
