// Package config loads the optional YAML configuration file holding backend
// connection settings. Flags and environment variables cover the same
// settings; the file exists so credentials shared across invocations do not
// have to be repeated on every command line. ${VAR} references inside
// config values are expanded from the OS environment before validation.
package config

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"kvenv/internal/expansion"
	"kvenv/pkg/backend"
	"kvenv/pkg/backend/awssm"
	"kvenv/pkg/backend/azurekv"
	"kvenv/pkg/backend/gcpsm"
	"kvenv/pkg/backend/vaultkv"
)

// Config holds the per-backend sections of the configuration file. Exactly
// one section must be present: the backend is chosen once at startup and
// never switched afterwards.
type Config struct {
	AWS    *awssm.Config   `yaml:"aws,omitempty"`
	Azure  *azurekv.Config `yaml:"azure,omitempty"`
	Google *gcpsm.Config   `yaml:"google,omitempty"`
	Vault  *vaultkv.Config `yaml:"vault,omitempty"`
}

// Read parses the YAML configuration file at path and expands environment
// variable references in its values.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read configuration file %q", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse configuration file %q", path)
	}

	expansion.ExpandVariables(&cfg)
	return &cfg, nil
}

// Validate checks that exactly one backend section is configured and that
// the section itself is valid.
func (c *Config) Validate() error {
	count := 0
	if c.AWS != nil {
		count++
	}
	if c.Azure != nil {
		count++
	}
	if c.Google != nil {
		count++
	}
	if c.Vault != nil {
		count++
	}
	if count == 0 {
		return errors.New("no backend configured")
	}
	if count > 1 {
		return errors.New("exactly one backend must be configured")
	}

	switch {
	case c.AWS != nil:
		return c.AWS.Validate()
	case c.Azure != nil:
		return c.Azure.Validate()
	case c.Google != nil:
		return c.Google.Validate()
	default:
		return c.Vault.Validate()
	}
}

// NewBackend creates the configured backend client.
func (c *Config) NewBackend(ctx context.Context) (backend.Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch {
	case c.AWS != nil:
		return c.AWS.NewBackend(ctx)
	case c.Azure != nil:
		return c.Azure.NewBackend()
	case c.Google != nil:
		return c.Google.NewBackend(ctx)
	default:
		return c.Vault.NewBackend()
	}
}
