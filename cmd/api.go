package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/useXR/quill/internal/api"
	"github.com/useXR/quill/internal/config"
	"github.com/useXR/quill/internal/database"
	"github.com/useXR/quill/internal/jobqueue"
	"github.com/useXR/quill/internal/logging"
)

// APICommand returns the CLI command for starting the API server
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the Quill API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if port := c.Int("port"); port != 0 {
				cfg.Server.Port = port
			}
			logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

			db, err := database.NewDB(cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()
			if err := database.EnsureSchema(db); err != nil {
				return err
			}

			server := api.NewServer(cfg, db)

			// The API stays usable without the queue; async drafting is just
			// disabled.
			ctx := context.Background()
			if jq, err := jobqueue.NewJobQueue(cfg.Database.URL, cfg); err != nil {
				log.Warn().Err(err).Msg("draft queue unavailable")
			} else if err := jq.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("draft queue failed to start")
			} else {
				server.SetDraftQueue(jq)
				defer jq.Stop(ctx)
			}

			log.Info().Int("port", cfg.Server.Port).Msg("starting Quill API server")
			return server.Start()
		},
	}
}
