package unlock

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
)

// VerifySignature reports whether sig is a valid Ed25519 signature over
// payload under pub. It is a pure function with no side effects; both the
// key-file path and the webserver path funnel through it, so defeating
// either requires the same private key.
func VerifySignature(payload, sig []byte, pub ed25519.PublicKey) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}

// DecodePublicKey decodes a base64-encoded Ed25519 public key.
// Both standard and raw-URL-safe base64 are accepted, since keys get
// pasted from a variety of tools.
func DecodePublicKey(encoded string) (ed25519.PublicKey, error) {
	encoded = strings.TrimSpace(encoded)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: base64 decode: %v", ErrPublicKeyInvalid, err)
		}
	}

	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: key length %d, expected %d", ErrPublicKeyInvalid, len(decoded), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}
