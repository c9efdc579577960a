package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/useXR/quill/internal/agent"
	"github.com/useXR/quill/internal/config"
	"github.com/useXR/quill/internal/logging"
)

// DraftCommand returns the CLI command for a one-shot agent run against a
// local file, streaming events to the terminal.
func DraftCommand() *cli.Command {
	return &cli.Command{
		Name:      "draft",
		Usage:     "Run the agent once against a local document and stream the output",
		ArgsUsage: "PROMPT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Document file to draft against",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Override the agent run timeout",
			},
			&cli.BoolFlag{
				Name:  "show-thinking",
				Usage: "Print thinking traces to stderr",
			},
		},
		Action: runDraft,
	}
}

func runDraft(c *cli.Context) error {
	prompt := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if prompt == "" {
		return fmt.Errorf("a prompt is required")
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	content := ""
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		content = string(data)
	}

	timeout := cfg.AgentTimeout()
	if flag := c.Duration("timeout"); flag > 0 {
		timeout = flag
	}

	callbacks := agent.Callbacks{
		OnText: func(delta string) {
			fmt.Print(delta)
		},
		OnToolCall: func(call agent.PendingToolCall) {
			fmt.Fprintf(os.Stderr, "\n[tool] %s %s\n", call.Name, call.ID)
		},
		OnToolResult: func(outcome agent.ToolOutcome) {
			status := "ok"
			if !outcome.OK {
				status = "error"
			}
			fmt.Fprintf(os.Stderr, "[tool %s] %s\n", status, outcome.ToolUseID)
		},
		OnStats: func(stats agent.Stats) {
			fmt.Fprintf(os.Stderr, "\n%s in, %s out, %s\n",
				fmt.Sprintf("%d tokens", stats.InputTokens),
				fmt.Sprintf("%d tokens", stats.OutputTokens),
				time.Duration(stats.DurationMs)*time.Millisecond)
		},
	}
	if c.Bool("show-thinking") {
		callbacks.OnThinking = func(text string) {
			fmt.Fprintf(os.Stderr, "[thinking] %s\n", text)
		}
	}

	runner := agent.NewRunner(cfg.Agent.Binary)
	result, err := runner.Run(context.Background(), agent.EditingPrompt(prompt, content), agent.RunOptions{
		SystemPrompt: cfg.Agent.SystemPrompt,
		AllowedTools: cfg.Agent.AllowedTools,
		Timeout:      timeout,
		Callbacks:    callbacks,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	if result.ExitCode != 0 {
		return fmt.Errorf("agent exited with code %d", result.ExitCode)
	}
	return nil
}
