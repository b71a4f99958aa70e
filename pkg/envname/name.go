// Package envname validates environment variable names and converts secret
// payloads into environment entries. Nothing in this package talks to a
// backend: it is pure input validation and conversion, shared by every
// resolution mode.
package envname

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidName is the sentinel error wrapped by every name validation
// failure. Use errors.Is to detect it programmatically.
var ErrInvalidName = errors.New("invalid environment variable name")

// Validate checks that s is a usable environment variable name: non-empty,
// starting with an ASCII letter, and containing only ASCII letters, digits
// and underscores. Invalid input is rejected, never repaired.
func Validate(s string) (string, error) {
	if s == "" {
		return "", errors.Wrap(ErrInvalidName, "name is empty")
	}
	if !isLetter(s[0]) {
		return "", errors.Wrapf(ErrInvalidName, "name %q must start with a letter", s)
	}
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) && !isDigit(s[i]) && s[i] != '_' {
			return "", errors.Wrapf(ErrInvalidName, "name %q contains invalid character %q", s, s[i])
		}
	}
	return s, nil
}

// DeriveFromIdentifier turns a backend-side secret identifier into an
// environment variable name for prefix-mode resolution. Everything up to and
// including the last path separator is stripped, the leaf must start with
// prefix (callers filter on this beforehand), the prefix is stripped, and
// every dash becomes an underscore. The remainder must be non-empty and made
// of letters, digits and underscores; unlike a document key it may start
// with a digit, since the prefix already anchored the full name. An
// identifier equal to the prefix fails with ErrInvalidName.
func DeriveFromIdentifier(prefix, identifier string) (string, error) {
	leaf := identifier
	if idx := strings.LastIndex(identifier, "/"); idx >= 0 {
		leaf = identifier[idx+1:]
	}
	if !strings.HasPrefix(leaf, prefix) {
		return "", errors.Wrapf(ErrInvalidName, "identifier %q does not match prefix %q", identifier, prefix)
	}
	name := strings.ReplaceAll(leaf[len(prefix):], "-", "_")
	if name == "" {
		return "", errors.Wrapf(ErrInvalidName, "identifier %q leaves an empty name after stripping prefix %q", identifier, prefix)
	}
	for i := 0; i < len(name); i++ {
		if !isLetter(name[i]) && !isDigit(name[i]) && name[i] != '_' {
			return "", errors.Wrapf(ErrInvalidName, "name %q contains invalid character %q", name, name[i])
		}
	}
	return name, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
