package gcpsm

import (
	"context"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

// SecretIterator matches the Next method of *secretmanager.SecretIterator so
// listings can be faked in tests.
type SecretIterator interface {
	Next() (*secretmanagerpb.Secret, error)
}

// SecretManagerClient is the subset of the Secret Manager API the adapter
// uses.
type SecretManagerClient interface {
	AccessSecretVersion(
		ctx context.Context,
		req *secretmanagerpb.AccessSecretVersionRequest,
		opts ...gax.CallOption,
	) (*secretmanagerpb.AccessSecretVersionResponse, error)
	ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest, opts ...gax.CallOption) SecretIterator
}

// clientAdapter adapts the real Secret Manager client to the
// SecretManagerClient interface to accommodate the concrete iterator type.
type clientAdapter struct {
	c *secretmanager.Client
}

func (c *clientAdapter) AccessSecretVersion(
	ctx context.Context,
	req *secretmanagerpb.AccessSecretVersionRequest,
	opts ...gax.CallOption,
) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return c.c.AccessSecretVersion(ctx, req, opts...)
}

func (c *clientAdapter) ListSecrets(
	ctx context.Context,
	req *secretmanagerpb.ListSecretsRequest,
	opts ...gax.CallOption,
) SecretIterator {
	return c.c.ListSecrets(ctx, req, opts...)
}
