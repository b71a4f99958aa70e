// Package resolver orchestrates secret retrieval: it turns a backend plus a
// set of options into a procenv.ProcessEnv, either from a single JSON
// document secret or from every secret sharing a name prefix.
package resolver

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"kvenv/pkg/backend"
	"kvenv/pkg/envname"
	"kvenv/pkg/procenv"
)

// Options selects the retrieval mode and the merge behavior of the resolved
// environment. Exactly one of SecretName and SecretPrefix must be set.
type Options struct {
	// SecretName selects single mode: the named secret is one JSON document
	// holding the whole environment.
	SecretName *string

	// SecretPrefix selects prefix mode: every secret whose leaf name starts
	// with the prefix becomes one variable.
	SecretPrefix *string

	// SnapshotEnv captures the OS environment at resolution time instead of
	// leaving it to be read when the environment is used.
	SnapshotEnv bool

	// Mask lists variable names removed from the merged environment no
	// matter where they came from.
	Mask []string
}

// Validate enforces that exactly one retrieval mode is selected.
func (o Options) Validate() error {
	if o.SecretName != nil && o.SecretPrefix != nil {
		return errors.New("secret name and secret prefix are mutually exclusive")
	}
	if o.SecretName == nil && o.SecretPrefix == nil {
		return errors.New("either a secret name or a secret prefix is required")
	}
	return nil
}

// Resolver downloads an environment from a single backend chosen at startup.
type Resolver struct {
	backend backend.Backend
}

// New returns a Resolver using the given backend.
func New(b backend.Backend) *Resolver {
	return &Resolver{backend: b}
}

// Resolve produces the process environment described by opts. Any backend or
// validation failure aborts the whole resolution: a partially resolved
// environment is never returned.
func (r *Resolver) Resolve(ctx context.Context, opts Options) (*procenv.ProcessEnv, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var (
		entries []procenv.Entry
		err     error
	)
	if opts.SecretName != nil {
		entries, err = r.resolveSingle(ctx, *opts.SecretName)
	} else {
		entries, err = r.resolvePrefixed(ctx, *opts.SecretPrefix)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("variables", len(entries)).
		Int("masked", len(opts.Mask)).
		Bool("snapshot_env", opts.SnapshotEnv).
		Msg("Resolved environment from backend")

	return procenv.New(entries, opts.Mask, opts.SnapshotEnv), nil
}

// resolveSingle fetches one secret and decodes its payload as a JSON object
// of name/scalar pairs.
func (r *Resolver) resolveSingle(ctx context.Context, name string) ([]procenv.Entry, error) {
	raw, err := r.backend.FetchDocument(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch secret %q", name)
	}

	entries, err := envname.DecodeDocument(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode secret %q", name)
	}
	return entries, nil
}

// resolvePrefixed lists every matching secret, derives all environment names
// up front, then fetches the values in parallel. The first failure cancels
// the sibling fetches and fails the whole resolution. Entries keep the
// backend listing order, not arrival order, so resolution is deterministic
// for a fixed listing.
func (r *Resolver) resolvePrefixed(ctx context.Context, prefix string) ([]procenv.Entry, error) {
	ids, err := r.backend.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list secrets with prefix %q", prefix)
	}

	log.Debug().Str("prefix", prefix).Int("secrets", len(ids)).Msg("Listed matching secrets")

	names := make([]string, len(ids))
	for i, id := range ids {
		name, err := envname.DeriveFromIdentifier(prefix, id)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot derive variable name from secret %q", id)
		}
		names[i] = name
	}

	values := make([]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			value, err := r.backend.FetchValue(gctx, id)
			if err != nil {
				return errors.Wrapf(err, "failed to fetch secret %q", id)
			}
			values[i] = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]procenv.Entry, len(ids))
	for i := range ids {
		entries[i] = procenv.Entry{Name: names[i], Value: values[i]}
	}
	return entries, nil
}
