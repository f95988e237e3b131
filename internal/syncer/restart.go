package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Restarter brings the dependent service back up after a new database has
// been installed.
type Restarter interface {
	Restart(ctx context.Context) error
}

// CommandRestarter runs an external command and waits for it to exit. The
// child inherits the environment and the standard streams.
type CommandRestarter struct {
	Name   string
	Args   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// NewCommandRestarter builds a restarter from an argv-style command. It
// returns a NopRestarter when command is empty.
func NewCommandRestarter(command []string, dir string) Restarter {
	if len(command) == 0 {
		return NopRestarter{}
	}
	return &CommandRestarter{
		Name:   command[0],
		Args:   append([]string(nil), command[1:]...),
		Dir:    dir,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (r *CommandRestarter) Restart(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.Name, r.Args...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: command %q returned non-zero exit status %d", ErrRestart, r.String(), exitErr.ExitCode())
		}
		return fmt.Errorf("%w: command %q: %v", ErrRestart, r.String(), err)
	}
	return nil
}

func (r *CommandRestarter) String() string {
	return strings.Join(append([]string{r.Name}, r.Args...), " ")
}

// NopRestarter does nothing. It is used when no restart command is configured.
type NopRestarter struct{}

func (NopRestarter) Restart(context.Context) error { return nil }
