package system

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/pkg/database"
)

func NewInitCommand() *cobra.Command {
	var withTables bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the queue database if it does not exist",
		Long: `Connects to the server's "postgres" database and creates the configured
queue database when missing. With --tables the queue tables are created too,
which is the same as running "system migrate" afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			if !database.Enabled(cfg.Database) {
				return fmt.Errorf("database.host and database.dbname must be set")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Server.TimeoutSeconds)*time.Second)
			defer cancel()

			fmt.Printf("Initializing database %q on %s...\n", cfg.Database.DBName, cfg.Database.Host)
			if err := database.InitializeDatabase(ctx, cfg.Database); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}

			if withTables {
				db, err := database.Open(ctx, cfg.Database)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer db.Close()
				if err := repo.Migrate(ctx, db); err != nil {
					return fmt.Errorf("failed to create tables: %w", err)
				}
			}

			fmt.Println("Database initialized successfully.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withTables, "tables", false, "also create the queue tables")
	return cmd
}
