package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds one agent run when the caller does not override it.
const DefaultTimeout = 120 * time.Second

// Callbacks receive incremental events while a run is in flight. Nil fields
// are skipped. Within one run, callbacks fire strictly in the order envelopes
// were parsed, on the goroutine that called Run; none fire after Run returns.
type Callbacks struct {
	OnText       func(delta string)
	OnThinking   func(text string)
	OnToolCall   func(call PendingToolCall)
	OnToolResult func(outcome ToolOutcome)
	OnStats      func(stats Stats)
	OnError      func(err error)
}

// RunOptions configure one agent invocation.
type RunOptions struct {
	// SystemPrompt is appended to the agent's system prompt when non-empty.
	SystemPrompt string
	// AllowedTools restricts the agent's capabilities when non-empty.
	AllowedTools []string
	// Timeout defaults to DefaultTimeout when zero.
	Timeout   time.Duration
	Callbacks Callbacks
}

// RunResult is the terminal outcome of a successful run. A non-zero exit
// code still counts as a completed run; only spawn failures, timeouts and
// cancellation are errors.
type RunResult struct {
	FullText  string
	ExitCode  int
	SessionID string
	Stats     *Stats
}

// Runner invokes the agent CLI, one subprocess per Run call. Concurrent runs
// are independent: each gets its own process, parser, delta tracker and
// correlator.
type Runner struct {
	binary string
	exec   CommandExecutor
}

// NewRunner returns a runner spawning the given agent binary.
func NewRunner(binary string) *Runner {
	return &Runner{binary: binary, exec: osExecutor{}}
}

// NewRunnerWithExecutor substitutes the process-creation layer, used by tests
// to feed synthetic stream chunks.
func NewRunnerWithExecutor(binary string, executor CommandExecutor) *Runner {
	return &Runner{binary: binary, exec: executor}
}

// Run spawns the agent with the given prompt and decodes its output until the
// process exits, the timeout elapses, or ctx is cancelled. Timeout and
// cancellation kill the subprocess and return an error; partial output is
// never returned as success.
func (r *Runner) Run(ctx context.Context, prompt string, opts RunOptions) (*RunResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	proc, err := r.exec.Start(ctx, r.binary, buildArgs(prompt, opts))
	if err != nil {
		err = fmt.Errorf("spawn agent %q: %w", r.binary, err)
		opts.Callbacks.reportError(err)
		return nil, err
	}

	// The subprocess receives at most one kill, whether the timeout fired or
	// the caller cancelled.
	var killOnce sync.Once
	kill := func() { killOnce.Do(func() { _ = proc.Kill() }) }
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			kill()
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	stderrCh := make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(proc.Stderr())
		stderrCh <- string(b)
	}()

	stream := newStreamState(opts.Callbacks)
	parser := NewStreamParser(stream.handle)

	buf := make([]byte, 32*1024)
	stdout := proc.Stdout()
	for {
		n, readErr := stdout.Read(buf)
		// Once the abort path is taken no further callbacks are delivered.
		if n > 0 && ctx.Err() == nil {
			parser.Feed(buf[:n])
		}
		if readErr != nil {
			break
		}
	}
	if ctx.Err() == nil {
		parser.Flush()
	}

	stderrTail := tail(<-stderrCh, 2048)
	waitErr := proc.Wait()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err := fmt.Errorf("agent run timed out after %s", timeout)
		opts.Callbacks.reportError(err)
		return nil, err
	case ctx.Err() != nil:
		return nil, fmt.Errorf("agent run canceled: %w", context.Cause(ctx))
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			err := fmt.Errorf("agent process: %w", waitErr)
			opts.Callbacks.reportError(err)
			return nil, err
		}
		exitCode = exitErr.ExitCode()
	}
	if exitCode != 0 {
		log.Warn().Int("exit_code", exitCode).Str("stderr", stderrTail).Msg("agent exited non-zero")
	}

	return &RunResult{
		FullText:  stream.tracker.Current(),
		ExitCode:  exitCode,
		SessionID: stream.sessionID,
		Stats:     stream.stats,
	}, nil
}

// buildArgs encodes one print-mode invocation: streaming JSON output with
// partial messages, no session persistence, no permission prompts.
func buildArgs(prompt string, opts RunOptions) []string {
	args := []string{
		"-p", prompt,
		"--output-format", "stream-json",
		"--verbose",
		"--include-partial-messages",
		"--no-session-storage",
		"--dangerously-skip-permissions",
	}
	if opts.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", opts.SystemPrompt)
	}
	if len(opts.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(opts.AllowedTools, ","))
	}
	return args
}

// streamState fans decoded envelopes out to callbacks, owning the per-run
// delta tracker and tool correlator.
type streamState struct {
	cb         Callbacks
	tracker    DeltaTracker
	correlator *Correlator
	sessionID  string
	stats      *Stats
}

func newStreamState(cb Callbacks) *streamState {
	return &streamState{cb: cb, correlator: NewCorrelator()}
}

func (s *streamState) handle(env *Envelope) {
	switch env.Type {
	case EnvelopeInit:
		s.sessionID = env.SessionID

	case EnvelopeAssistant:
		for _, block := range env.Message.Content {
			s.handleBlock(block)
		}

	case EnvelopeResult:
		stats := Stats{DurationMs: env.DurationMs}
		if env.Usage != nil {
			stats.InputTokens = env.Usage.InputTokens
			stats.OutputTokens = env.Usage.OutputTokens
		}
		s.stats = &stats
		if s.cb.OnStats != nil {
			s.cb.OnStats(stats)
		}
	}
}

func (s *streamState) handleBlock(block ContentBlock) {
	switch block.Type {
	case BlockText:
		if delta, ok := s.tracker.Next(block.Text); ok && s.cb.OnText != nil {
			s.cb.OnText(delta)
		}
	case BlockThinking:
		if s.cb.OnThinking != nil {
			s.cb.OnThinking(block.Thinking)
		}
	case BlockToolUse:
		call := s.correlator.Call(block.ID, block.Name, block.Input)
		if s.cb.OnToolCall != nil {
			s.cb.OnToolCall(call)
		}
	case BlockToolResult:
		outcome := s.correlator.Result(block.ToolUseID, block.Content, block.IsError)
		if s.cb.OnToolResult != nil {
			s.cb.OnToolResult(outcome)
		}
	}
}

func (c Callbacks) reportError(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[len(s)-n:])
}
