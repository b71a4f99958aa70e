// Package vaultkv adapts a HashiCorp Vault KV v2 secrets engine to the
// backend capability interface.
package vaultkv

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"kvenv/pkg/backend"
)

// LogicalClient is the subset of the Vault logical API the adapter uses.
type LogicalClient interface {
	ReadWithContext(ctx context.Context, path string) (*api.Secret, error)
	ListWithContext(ctx context.Context, path string) (*api.Secret, error)
}

// Config holds the Vault connection settings. Mount selects the KV v2
// secrets engine, defaulting to "secret".
type Config struct {
	Address   string `yaml:"address"`
	Token     string `yaml:"token"`
	Namespace string `yaml:"namespace"`
	Mount     string `yaml:"mount"`
}

// Validate checks if the Config has all required fields set.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("Vault address is required")
	}
	if c.Token == "" {
		return errors.New("Vault token is required")
	}
	return nil
}

// Backend talks to one KV v2 mount of a Vault server.
type Backend struct {
	logical LogicalClient
	mount   string
}

// NewBackend creates a Vault backend from the config.
func (c Config) NewBackend() (*Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Vault configuration")
	}

	apiCfg := api.DefaultConfig()
	apiCfg.Address = c.Address

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Vault client")
	}

	client.SetToken(c.Token)
	if c.Namespace != "" {
		client.SetNamespace(c.Namespace)
	}

	return NewWithClient(client.Logical(), c.Mount), nil
}

// NewWithClient wraps an already configured logical client.
func NewWithClient(logical LogicalClient, mount string) *Backend {
	if mount == "" {
		mount = "secret"
	}
	return &Backend{logical: logical, mount: mount}
}

// FetchDocument returns the data of the named KV secret re-encoded as a JSON
// object, so a secret written as key/value pairs decodes into one
// environment entry per key.
func (b *Backend) FetchDocument(ctx context.Context, name string) (json.RawMessage, error) {
	data, err := b.read(ctx, name)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot encode secret %q", name)
	}
	return raw, nil
}

// FetchValue returns the plain string stored under the conventional "value"
// key of the named KV secret.
func (b *Backend) FetchValue(ctx context.Context, name string) (string, error) {
	data, err := b.read(ctx, name)
	if err != nil {
		return "", err
	}

	value, ok := data["value"].(string)
	if !ok {
		return "", errors.Errorf("secret %q has no string under the \"value\" key", name)
	}
	return value, nil
}

// ListSecrets lists the keys of the mount's metadata tree and returns those
// starting with prefix.
func (b *Backend) ListSecrets(ctx context.Context, prefix string) ([]string, error) {
	secret, err := b.logical.ListWithContext(ctx, path.Join(b.mount, "metadata"))
	if err != nil {
		return nil, errors.Wrap(convertError(err), "failed to list secrets from Vault")
	}
	if secret == nil || secret.Data == nil {
		return nil, backend.ErrNoSecrets
	}

	keys, ok := secret.Data["keys"].([]any)
	if !ok || len(keys) == 0 {
		return nil, backend.ErrNoSecrets
	}

	var names []string
	for _, k := range keys {
		name, ok := k.(string)
		if !ok {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}

	log.Debug().Str("prefix", prefix).Int("matched", len(names)).Msg("Listed secrets from Vault")
	return names, nil
}

// read fetches the KV v2 data of one secret, handling the "data" wrapper and
// falling back to the flat KV v1 layout.
func (b *Backend) read(ctx context.Context, name string) (map[string]any, error) {
	secret, err := b.logical.ReadWithContext(ctx, path.Join(b.mount, "data", name))
	if err != nil {
		return nil, errors.Wrapf(convertError(err), "failed to read secret %q from Vault", name)
	}
	if secret == nil || secret.Data == nil {
		return nil, errors.Wrapf(backend.ErrNotFound, "secret %q", name)
	}

	if wrapped, ok := secret.Data["data"].(map[string]any); ok {
		return wrapped, nil
	}
	return secret.Data, nil
}

func convertError(err error) error {
	var respErr *api.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	switch respErr.StatusCode {
	case http.StatusNotFound:
		return backend.ErrNotFound
	case http.StatusUnauthorized:
		return backend.ErrUnauthorized
	case http.StatusForbidden:
		return backend.ErrForbidden
	default:
		return err
	}
}
