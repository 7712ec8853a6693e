package launcher

import (
	"fmt"
	"os/exec"
	"os/signal"

	"github.com/google/shlex"

	"github.com/werat/porto/config"
)

// resetSignals restores every signal G inherited from I back to its
// default disposition before exec, so the container's own command starts
// with a clean slate rather than whatever handlers the daemon installed.
func resetSignals() {
	signal.Reset()
}

// buildExecArgs turns a task env's command string and environment list
// into the argv/envp pair unix.Exec needs. The command is split with
// restricted shell word-expansion — no pipes, redirects, substitution, or
// control operators, only quoting and whitespace splitting — mirroring
// wordexp(WRDE_NOCMD|WRDE_UNDEF) in the task env's place of origin.
func buildExecArgs(env *config.TaskEnv) ([]string, []string, error) {
	words, err := shlex.Split(env.Command)
	if err != nil {
		return nil, nil, fmt.Errorf("word-split command %q: %w", env.Command, err)
	}
	if len(words) == 0 {
		return nil, nil, fmt.Errorf("empty command")
	}

	path, err := exec.LookPath(words[0])
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s in PATH: %w", words[0], err)
	}
	words[0] = path

	return words, env.Environ, nil
}
