package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/internal/app"
	"github.com/Alijeyrad/simorq_queue/internal/live"
	svcqueue "github.com/Alijeyrad/simorq_queue/internal/service/queue"
	"github.com/Alijeyrad/simorq_queue/pkg/constants"
	redispkg "github.com/Alijeyrad/simorq_queue/pkg/redis"
)

func NewQueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain clinic queues",
		Long: `Inspect and maintain clinic queues in the configured store.

These commands only make sense with a shared store (redis or postgres);
the memory store starts empty in every process.`,
	}

	cmd.PersistentFlags().String("clinic", "", "Clinic id")
	_ = cmd.MarkPersistentFlagRequired("clinic")

	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newCleanupCommand())
	cmd.AddCommand(newRecalcCommand())

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the queue status of a clinic as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(cmd, func(ctx context.Context, svc svcqueue.Service, clinicID string) error {
				st, err := svc.GetQueueStatus(ctx, clinicID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove completed and no-show entries from a clinic queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(cmd, func(ctx context.Context, svc svcqueue.Service, clinicID string) error {
				res, err := svc.CleanupCompleted(ctx, clinicID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d completed and %d no-show entries\n",
					res.CompletedRemoved, res.NoShowRemoved)
				return nil
			})
		},
	}
}

func newRecalcCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recompute wait times and estimates for a clinic queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(cmd, func(ctx context.Context, svc svcqueue.Service, clinicID string) error {
				st, err := svc.RecalculateWaitTimes(ctx, clinicID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

// withQueue opens the configured store and runs fn against a queue service.
// Changes are announced on NATS when it is configured so open displays update.
func withQueue(cmd *cobra.Command, fn func(context.Context, svcqueue.Service, string) error) error {
	clinicID, err := cmd.Flags().GetString("clinic")
	if err != nil {
		return err
	}
	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if cfg.Queue.Store == "" || cfg.Queue.Store == constants.StoreMemory {
		return errors.New("queue commands need queue.store set to redis or postgres")
	}

	ctx := cmd.Context()

	var rdb *redis.Client
	if redispkg.Enabled(cfg.Redis) {
		rdb, err = redispkg.NewRedisFromCentral(cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	store, closeStore, err := app.OpenStore(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer closeStore()

	var pub svcqueue.Publisher
	if cfg.Nats.URL != "" {
		nc, err := nats.Connect(cfg.Nats.URL, nats.Name(constants.AppName+"-cli"))
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		// Flush pending publishes before exit.
		defer nc.Drain()
		pub = live.NewNatsPublisher(nc)
	}

	svc, err := app.NewQueueService(cfg, store, pub)
	if err != nil {
		return err
	}
	return fn(ctx, svc, clinicID)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
