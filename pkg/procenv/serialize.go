package procenv

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Mode tags of the cache artifact. The writer and reader must agree on these
// byte-for-byte for the round-trip invariant to hold.
const (
	modeFresh     = "fresh"
	modePersisted = "persisted"
)

// artifact is the on-disk shape of a ProcessEnv. The OS environment field is
// written only in persisted mode: a fresh snapshot is process-invocation
// relative, and baking it into a reusable cache file would poison every
// later consumer with environment state from the machine that produced it.
type artifact struct {
	Mode        string   `json:"mode"`
	OsEnv       []Entry  `json:"os_env,omitempty"`
	FromBackend []Entry  `json:"from_backend"`
	Masked      []string `json:"masked"`
}

// WriteTo serializes the environment as the JSON cache artifact.
func (e *ProcessEnv) WriteTo(w io.Writer) error {
	a := artifact{
		FromBackend: e.fromBackend,
		Masked:      e.masked,
	}
	// Explicit switch on the snapshot tag: only a persisted snapshot is ever
	// written to disk.
	if e.persisted {
		a.Mode = modePersisted
		a.OsEnv = e.osEnv
	} else {
		a.Mode = modeFresh
		a.OsEnv = nil
	}
	if err := json.NewEncoder(w).Encode(a); err != nil {
		return errors.Wrap(err, "failed to serialize environment")
	}
	return nil
}

// Read deserializes a cache artifact produced by WriteTo. A fresh-mode
// artifact reconstructs a lazy snapshot, so the OS environment seen by ToMap
// afterwards is the consuming process's, not the producer's.
func Read(r io.Reader) (*ProcessEnv, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize environment")
	}

	e := &ProcessEnv{
		fromBackend: a.FromBackend,
		masked:      a.Masked,
	}
	switch a.Mode {
	case modePersisted:
		e.persisted = true
		e.osEnv = a.OsEnv
	case modeFresh:
		e.persisted = false
		e.osEnv = nil
	default:
		return nil, errors.Errorf("unknown environment mode %q", a.Mode)
	}
	return e, nil
}
