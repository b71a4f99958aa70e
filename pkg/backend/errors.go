package backend

import "github.com/pkg/errors"

// Sentinel errors every adapter maps its vendor failures onto. Callers use
// errors.Is against these; transport and decode failures stay wrapped vendor
// errors carrying their own context.
var (
	// ErrNotFound means the requested secret does not exist.
	ErrNotFound = errors.New("secret not found")

	// ErrUnauthorized means the backend rejected the credentials.
	ErrUnauthorized = errors.New("backend credentials are invalid")

	// ErrForbidden means the credentials lack access to the secret.
	ErrForbidden = errors.New("access to secret denied")

	// ErrNoSecrets means the backend unexpectedly reported an empty catalog
	// during a prefix listing.
	ErrNoSecrets = errors.New("backend contains no secrets")
)
