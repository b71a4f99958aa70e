// Package launcher runs a subprocess under a resolved environment and
// propagates its exit status. The child inherits nothing from the launcher
// beyond the flattened environment map it is handed.
package launcher

import (
	"os"
	"os/exec"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"kvenv/pkg/procenv"
)

// SignalExitCode is reported when the child terminated without an exit code,
// e.g. it was killed by a signal.
const SignalExitCode = 255

// Run flattens env, spawns argv with exactly that environment and blocks
// until the child terminates. The child's exit code is returned with a nil
// error; a spawn failure (executable not found, permission denied) returns a
// non-nil error and must never be confused with the child's own status.
func Run(env *procenv.ProcessEnv, argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, errors.New("no command specified")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = flatten(env.ToMap())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.Debug().Str("command", argv[0]).Int("env_size", len(cmd.Env)).Msg("Launching command")

	if err := cmd.Start(); err != nil {
		return 0, errors.Wrapf(err, "cannot start command %q", argv[0])
	}

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return SignalExitCode, nil
	}
	return 0, errors.Wrapf(err, "failed waiting for command %q", argv[0])
}

// flatten renders the map as KEY=VALUE pairs in sorted order so the child
// environment is deterministic for a given map.
func flatten(m map[string]string) []string {
	env := make([]string, 0, len(m))
	for name, value := range m {
		env = append(env, name+"="+value)
	}
	sort.Strings(env)
	return env
}
