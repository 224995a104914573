package http

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/internal/api/http"
	"github.com/Alijeyrad/simorq_queue/pkg/logs"
)

func NewStartCommand() *cobra.Command {
	var (
		shutdownTimeout time.Duration
		port            int
		store           string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP API server",
		Example: `  simorq-queue http start --config /etc/simorq/config.yaml
  simorq-queue http start --port 9090 --store redis`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return err
			}

			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("store") {
				cfg.Queue.Store = store
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			// Set up structured logger before fx starts so all logs use it.
			logger, flush := logs.New(cfg)
			defer flush()
			slog.SetDefault(logger)

			slog.Info("starting queue server",
				"port", cfg.Server.Port,
				"store", cfg.Queue.Store,
				"environment", cfg.Server.Environment,
				"auth_disabled", cfg.Authentication.Disabled,
			)
			http.Start(cfg, shutdownTimeout)
			return nil
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "Maximum time to wait for graceful shutdown")
	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	cmd.Flags().StringVar(&store, "store", "", "override queue.store (memory, redis, postgres)")

	return cmd
}
