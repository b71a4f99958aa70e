// Package backend defines the capability interface the environment resolver
// uses to talk to a secret store, together with the error taxonomy shared by
// every concrete adapter. Concrete backends (AWS Secrets Manager, Azure Key
// Vault, Google Secret Manager, HashiCorp Vault) live in subpackages and are
// selected exactly once at startup; the core never dispatches between them.
package backend

import (
	"context"
	"encoding/json"
)

// Backend is the minimal surface a secret store has to provide. Failures are
// fatal to the current invocation: no adapter retries, paginating listings
// must return everything, and credential handling is entirely the adapter's
// business.
type Backend interface {
	// FetchDocument returns the raw payload of the named secret. Single-mode
	// resolution decodes it as a JSON object of name/scalar pairs.
	FetchDocument(ctx context.Context, name string) (json.RawMessage, error)

	// FetchValue returns the plain-string payload of the named secret, used
	// by prefix-mode resolution where every secret is one variable.
	FetchValue(ctx context.Context, name string) (string, error)

	// ListSecrets returns every secret identifier whose leaf name starts
	// with prefix. Identifiers may carry backend-side path components; the
	// resolver derives environment names from the leaves.
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}
