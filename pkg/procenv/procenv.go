// Package procenv holds the resolved process environment: the ordered
// entries downloaded from a secret backend, the OS environment they are
// merged over, and the names masked out of the final result. A ProcessEnv is
// created by the resolver, optionally round-tripped through the cache
// artifact, and flattened exactly once when a subprocess is launched.
package procenv

import (
	"os"
	"strings"

	"kvenv/pkg/envname"
)

// Entry is re-exported so consumers of the model do not need to import the
// validation package just to name the pair type.
type Entry = envname.Entry

// ProcessEnv is immutable once constructed. The only side effect it performs
// is the deliberate re-read of the OS environment at merge time when the
// snapshot is fresh.
type ProcessEnv struct {
	// osEnv is the captured snapshot; nil unless persisted is set.
	osEnv       []Entry
	persisted   bool
	fromBackend []Entry
	masked      []string
}

// New builds a ProcessEnv from resolved backend entries. When snapshot is
// set the OS environment is captured now and carried through serialization;
// otherwise it stays fresh and is read again whenever ToMap is called.
func New(fromBackend []Entry, masked []string, snapshot bool) *ProcessEnv {
	e := &ProcessEnv{
		fromBackend: fromBackend,
		masked:      masked,
		persisted:   snapshot,
	}
	if snapshot {
		e.osEnv = captureOS()
	}
	return e
}

// Persisted reports whether the OS environment travels with this value.
func (e *ProcessEnv) Persisted() bool { return e.persisted }

// FromBackend returns the backend entries in resolution order.
func (e *ProcessEnv) FromBackend() []Entry { return e.fromBackend }

// Masked returns the names removed from the merged environment.
func (e *ProcessEnv) Masked() []string { return e.masked }

// ToMap flattens the environment. The base comes from the OS source: the
// persisted snapshot if one was captured, the current process environment
// otherwise. Backend entries overlay the base in list order, so a later
// entry wins a name tie. Masked names are removed last, regardless of
// whether they came from the OS or from the backend.
func (e *ProcessEnv) ToMap() map[string]string {
	base := e.osEnv
	if !e.persisted {
		base = captureOS()
	}

	m := make(map[string]string, len(base)+len(e.fromBackend))
	for _, entry := range base {
		m[entry.Name] = entry.Value
	}
	for _, entry := range e.fromBackend {
		m[entry.Name] = entry.Value
	}
	for _, name := range e.masked {
		delete(m, name)
	}
	return m
}

func captureOS() []Entry {
	environ := os.Environ()
	entries := make([]Entry, 0, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		entries = append(entries, Entry{Name: name, Value: value})
	}
	return entries
}
