package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/Alijeyrad/simorq_queue/cmd/http"
	queuecmd "github.com/Alijeyrad/simorq_queue/cmd/queue"
	systemcmd "github.com/Alijeyrad/simorq_queue/cmd/system"
	"github.com/Alijeyrad/simorq_queue/pkg/constants"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   constants.AppName,
	Short: "Walk-in patient queue for Simorq clinics.",
	Long: `simorq-queue runs the walk-in queue of Simorq clinics: front-desk staff
admit patients, call the next one in and see live wait estimates, while
waiting-room displays follow the queue over server-sent events.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
	rootCmd.AddCommand(queuecmd.NewQueueCommand())
}
