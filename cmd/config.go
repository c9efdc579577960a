package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/useXR/quill/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "quill.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: runConfigShow,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("server.port            = %d\n", cfg.Server.Port)
	fmt.Printf("database.url           = %s\n", cfg.Database.URL)
	fmt.Printf("agent.binary           = %s\n", cfg.Agent.Binary)
	fmt.Printf("agent.timeout_seconds  = %d\n", cfg.Agent.TimeoutSeconds)
	fmt.Printf("agent.allowed_tools    = %v\n", cfg.Agent.AllowedTools)
	fmt.Printf("stream.requests_per_minute = %d\n", cfg.Stream.RequestsPerMinute)
	fmt.Printf("stream.burst           = %d\n", cfg.Stream.Burst)
	fmt.Printf("log.level              = %s\n", cfg.Log.Level)
	return nil
}
