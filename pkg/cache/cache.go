// Package cache persists a resolved environment to a JSON artifact on disk
// so a later invocation can launch subprocesses without re-contacting the
// backend. The artifact is opened, read and closed before any child process
// is spawned; there is no cross-process locking.
package cache

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"kvenv/pkg/procenv"
)

// Write serializes env to the given path, truncating any existing file, and
// returns the path it wrote.
func Write(env *procenv.ProcessEnv, path string) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "cannot create cache file %q", path)
	}

	if err := env.WriteTo(f); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "cannot write cache file %q", path)
	}

	log.Debug().Str("path", path).Msg("Stored environment cache")
	return path, nil
}

// WriteTemp serializes env to a random kvenv-*.json file in dir, or in the
// default temp directory when dir is empty, and returns the file's path.
func WriteTemp(env *procenv.ProcessEnv, dir string) (string, error) {
	f, err := os.CreateTemp(dir, "kvenv-*.json")
	if err != nil {
		return "", errors.Wrap(err, "cannot create temporary cache file")
	}

	if err := env.WriteTo(f); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrapf(err, "cannot write cache file %q", f.Name())
	}

	log.Debug().Str("path", f.Name()).Msg("Stored environment cache")
	return f.Name(), nil
}

// Load reads and deserializes the artifact at path. The file handle is
// closed before Load returns.
func Load(path string) (*procenv.ProcessEnv, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open cache file %q", path)
	}
	defer func() { _ = f.Close() }()

	env, err := procenv.Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load cache file %q", path)
	}
	return env, nil
}

// Remove deletes the artifact at path.
func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return errors.Wrapf(err, "cannot remove cache file %q", path)
	}
	return nil
}
