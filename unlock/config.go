package unlock

import (
	"crypto/ed25519"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// defaultEndpoint is the vendor store's authentication endpoint, used when
// the integrator does not configure their own server.
const defaultEndpoint = "https://unlock.distrho.net/v1/unlock"

// LicenseConfig supplies the per-product knobs the unlock engine needs.
// Implement it yourself for full control, or use ProductConfig for the
// common case. The engine is a pure function of the injected config plus
// the bytes it is handed, which keeps product integrations subclass-free.
type LicenseConfig interface {
	// ProductID returns the product's ID as allocated by the store.
	ProductID() string

	// PublicKey returns the Ed25519 public key that authenticates key
	// files and server replies for this product.
	PublicKey() ed25519.PublicKey

	// AuthenticationEndpoint returns the URL of the unlock server.
	AuthenticationEndpoint() string

	// MatchesProductID reports whether a product ID found inside a signed
	// payload is acceptable for this product. The default is exact string
	// equality, but a product family may accept several IDs.
	MatchesProductID(returned string) bool

	// MachineIDs returns this machine's identity tokens, main ID first.
	MachineIDs() []string
}

// ProductConfig is the stock LicenseConfig implementation.
// The zero value is not usable: at minimum ID and Key must be set.
type ProductConfig struct {
	// ID is the product ID allocated by the store.
	ID string

	// Key authenticates signed payloads for this product.
	Key ed25519.PublicKey

	// Endpoint overrides the vendor authentication endpoint.
	Endpoint string

	// Website is the human-readable store name for UI strings.
	Website string
}

func (c *ProductConfig) ProductID() string { return c.ID }

func (c *ProductConfig) PublicKey() ed25519.PublicKey { return c.Key }

func (c *ProductConfig) AuthenticationEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return defaultEndpoint
}

func (c *ProductConfig) MatchesProductID(returned string) bool {
	return returned == c.ID
}

func (c *ProductConfig) MachineIDs() []string { return LocalMachineIDs() }

// WebsiteName returns the store name to show in UI strings.
func (c *ProductConfig) WebsiteName() string {
	if c.Website != "" {
		return c.Website
	}
	return "distrho.net"
}

// envProduct mirrors ProductConfig for environment-based configuration.
type envProduct struct {
	ProductID string `envconfig:"PRODUCT_ID" required:"true"`
	PublicKey string `envconfig:"PUBLIC_KEY" required:"true"`
	Endpoint  string `envconfig:"ENDPOINT"`
	Website   string `envconfig:"WEBSITE"`
}

// ConfigFromEnv builds a ProductConfig from UNLOCK_* environment
// variables (UNLOCK_PRODUCT_ID, UNLOCK_PUBLIC_KEY, UNLOCK_ENDPOINT,
// UNLOCK_WEBSITE). Intended for server-side and containerized
// integrations where baking the config into the binary is inconvenient.
func ConfigFromEnv() (*ProductConfig, error) {
	var e envProduct
	if err := envconfig.Process("unlock", &e); err != nil {
		return nil, fmt.Errorf("read unlock config: %w", err)
	}
	key, err := DecodePublicKey(e.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("UNLOCK_PUBLIC_KEY: %w", err)
	}
	return &ProductConfig{
		ID:       e.ProductID,
		Key:      key,
		Endpoint: e.Endpoint,
		Website:  e.Website,
	}, nil
}
