package config

import (
	"errors"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml"
)

const DefaultListenAddress = "0.0.0.0:8545"

// MinSecretLength is the minimum length of admin tokens and the identity secret
const MinSecretLength = 16

var (
	ErrInvalidListenAddress  = errors.New("invalid listen address")
	ErrInvalidAdminID        = errors.New("invalid admin ID")
	ErrInvalidAdminToken     = errors.New("admin token too short")
	ErrDuplicateAdminToken   = errors.New("admin token shared by multiple admins")
	ErrInvalidIdentitySecret = errors.New("identity secret too short")
)

var listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)

// Config defines the base-level server configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`

	// The admin identities, mapped to the bearer token each
	// one authenticates with
	Admins map[string]string `toml:"admins"`

	// The secret signing the caller identities issued by the server.
	// If empty, a random secret is generated on startup
	IdentitySecret string `toml:"identity_secret"`
}

// AdminIDs returns the configured admin identities, sorted
func (c *Config) AdminIDs() []string {
	ids := make([]string, 0, len(c.Admins))
	for id := range c.Admins {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		CORSConfig:    DefaultCORSConfig(),
	}
}

// ValidateConfig validates the server configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	// Validate the admin credentials
	tokens := make(map[string]struct{}, len(config.Admins))

	for id, token := range config.Admins {
		if strings.TrimSpace(id) == "" {
			return ErrInvalidAdminID
		}

		if len(token) < MinSecretLength {
			return ErrInvalidAdminToken
		}

		if _, ok := tokens[token]; ok {
			return ErrDuplicateAdminToken
		}

		tokens[token] = struct{}{}
	}

	// Validate the identity secret, if set
	if config.IdentitySecret != "" && len(config.IdentitySecret) < MinSecretLength {
		return ErrInvalidIdentitySecret
	}

	return nil
}

// Read reads the configuration from the given path.
// Values missing from the file keep their defaults
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse it
	cfg := DefaultConfig()

	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
