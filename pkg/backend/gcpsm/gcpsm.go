// Package gcpsm adapts Google Secret Manager to the backend capability
// interface.
package gcpsm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"kvenv/pkg/backend"
)

// Config holds the Google Secret Manager connection settings. Credentials
// are resolved from an explicit service account file or JSON blob, falling
// back to application default credentials when neither is given.
type Config struct {
	Project         string `yaml:"project"`
	CredentialsFile string `yaml:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json"`
}

// Validate checks the Config.
func (c Config) Validate() error {
	if c.Project == "" {
		return errors.New("Google project is required")
	}
	if c.CredentialsFile != "" && c.CredentialsJSON != "" {
		return errors.New("credentials file and credentials JSON are mutually exclusive")
	}
	return nil
}

// Backend talks to Google Secret Manager within one project.
type Backend struct {
	client  SecretManagerClient
	project string
}

// NewBackend creates a Secret Manager backend from the config.
func (c Config) NewBackend(ctx context.Context) (*Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Google configuration")
	}

	opts := []option.ClientOption{}
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}
	if c.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(c.CredentialsJSON)))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Secret Manager client")
	}
	return NewWithClient(&clientAdapter{client}, c.Project), nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client SecretManagerClient, project string) *Backend {
	return &Backend{client: client, project: project}
}

// FetchDocument returns the latest payload of the named secret.
func (b *Backend) FetchDocument(ctx context.Context, name string) (json.RawMessage, error) {
	return b.fetch(ctx, name)
}

// FetchValue returns the latest payload of the named secret as a plain
// string.
func (b *Backend) FetchValue(ctx context.Context, name string) (string, error) {
	payload, err := b.fetch(ctx, name)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (b *Backend) fetch(ctx context.Context, name string) ([]byte, error) {
	resp, err := b.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: b.versionName(name),
	})
	if err != nil {
		return nil, errors.Wrapf(convertError(err), "failed to read secret %q from Secret Manager", name)
	}
	if resp.Payload == nil {
		return nil, errors.Errorf("secret %q has no payload", name)
	}
	return resp.Payload.Data, nil
}

// ListSecrets iterates the project's catalog and returns the leaf name of
// every secret starting with prefix. The project path prefix is stripped so
// the identifiers the resolver sees are plain secret names.
func (b *Backend) ListSecrets(ctx context.Context, prefix string) ([]string, error) {
	it := b.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent: "projects/" + b.project,
	})

	var (
		names []string
		total int
	)
	for {
		secret, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(convertError(err), "failed to list secrets from Secret Manager")
		}

		total++
		// Name is the full resource name: projects/{project}/secrets/{name}.
		leaf := secret.Name
		if idx := strings.LastIndex(leaf, "/"); idx >= 0 {
			leaf = leaf[idx+1:]
		}
		if strings.HasPrefix(leaf, prefix) {
			names = append(names, leaf)
		}
	}

	if total == 0 {
		return nil, backend.ErrNoSecrets
	}

	log.Debug().Str("prefix", prefix).Int("matched", len(names)).Msg("Listed secrets from Secret Manager")
	return names, nil
}

func (b *Backend) versionName(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", b.project, name)
}

func convertError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() { //nolint:exhaustive
	case codes.NotFound:
		return backend.ErrNotFound
	case codes.Unauthenticated:
		return backend.ErrUnauthorized
	case codes.PermissionDenied:
		return backend.ErrForbidden
	default:
		return err
	}
}
