package agent

import (
	"context"
	"io"
	"os/exec"
)

// CommandExecutor abstracts subprocess creation so stream decoding can be
// exercised in tests with synthetic output instead of a real agent binary.
type CommandExecutor interface {
	Start(ctx context.Context, name string, args []string) (Process, error)
}

// Process is a started subprocess. Stdout and Stderr must be drained before
// Wait is called.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	Wait() error
	Kill() error
}

// osExecutor spawns real processes via os/exec. Stdin is left unwired so the
// child sees an immediately-closed input; the agent never reads interactive
// input in print mode.
type osExecutor struct{}

func (osExecutor) Start(_ context.Context, name string, args []string) (Process, error) {
	cmd := exec.Command(name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &osProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type osProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
}

func (p *osProcess) Stdout() io.Reader { return p.stdout }
func (p *osProcess) Stderr() io.Reader { return p.stderr }
func (p *osProcess) Wait() error       { return p.cmd.Wait() }

func (p *osProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}
