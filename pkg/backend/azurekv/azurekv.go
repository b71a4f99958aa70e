// Package azurekv adapts Azure Key Vault secrets to the backend capability
// interface.
package azurekv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"kvenv/pkg/backend"
)

// SecretsClient is the subset of the Key Vault secrets API the adapter uses.
type SecretsClient interface {
	GetSecret(ctx context.Context, name string, version string,
		options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	NewListSecretPropertiesPager(
		options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse]
}

// Config holds the Azure Key Vault connection settings. The vault is
// addressed either by name (resolved in the public cloud) or by full URL.
type Config struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	VaultName    string `yaml:"vault_name"`
	VaultURL     string `yaml:"vault_url"`
}

// Validate checks that exactly one vault address is configured and that
// service principal credentials, when given, are complete. Without
// credentials the default Azure credential chain is used.
func (c Config) Validate() error {
	if c.VaultName == "" && c.VaultURL == "" {
		return errors.New("either the Key Vault name or its URL is required")
	}
	if c.VaultName != "" && c.VaultURL != "" {
		return errors.New("Key Vault name and URL are mutually exclusive")
	}
	hasSome := c.TenantID != "" || c.ClientID != "" || c.ClientSecret != ""
	hasAll := c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
	if hasSome && !hasAll {
		return errors.New("tenant id, client id and client secret must all be specified to use service principal credentials")
	}
	return nil
}

// vaultURL resolves the configured vault address.
func (c Config) vaultURL() string {
	if c.VaultURL != "" {
		return c.VaultURL
	}
	return fmt.Sprintf("https://%s.vault.azure.net", c.VaultName)
}

// Backend talks to one Azure Key Vault.
type Backend struct {
	client SecretsClient
}

// NewBackend creates a Key Vault backend from the config.
func (c Config) NewBackend() (*Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Azure configuration")
	}

	cred, err := c.credential()
	if err != nil {
		return nil, err
	}

	client, err := azsecrets.NewClient(c.vaultURL(), cred, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Key Vault client")
	}
	return NewWithClient(client), nil
}

func (c Config) credential() (azcore.TokenCredential, error) {
	if c.TenantID != "" {
		cred, err := azidentity.NewClientSecretCredential(c.TenantID, c.ClientID, c.ClientSecret, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build service principal credential")
		}
		return cred, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build default Azure credential")
	}
	return cred, nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client SecretsClient) *Backend {
	return &Backend{client: client}
}

// FetchDocument returns the latest value of the named secret.
func (b *Backend) FetchDocument(ctx context.Context, name string) (json.RawMessage, error) {
	value, err := b.FetchValue(ctx, name)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(value), nil
}

// FetchValue returns the latest value of the named secret as a plain string.
func (b *Backend) FetchValue(ctx context.Context, name string) (string, error) {
	resp, err := b.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", errors.Wrapf(convertError(err), "failed to read secret %q from Key Vault", name)
	}
	if resp.Value == nil {
		return "", errors.Errorf("secret %q has no value", name)
	}
	return *resp.Value, nil
}

// ListSecrets pages through the vault and returns every secret name starting
// with prefix.
func (b *Backend) ListSecrets(ctx context.Context, prefix string) ([]string, error) {
	var (
		names []string
		total int
	)

	pager := b.client.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(convertError(err), "failed to list secrets from Key Vault")
		}
		for _, item := range page.Value {
			if item.ID == nil {
				continue
			}
			total++
			if name := item.ID.Name(); strings.HasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
	}

	if total == 0 {
		return nil, backend.ErrNoSecrets
	}

	log.Debug().Str("prefix", prefix).Int("matched", len(names)).Msg("Listed secrets from Key Vault")
	return names, nil
}

func convertError(err error) error {
	var respErr *azcore.ResponseError
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
