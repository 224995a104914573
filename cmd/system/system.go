package system

import "github.com/spf13/cobra"

func NewSystemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Database setup, credentials and docs",
		Long: `Operational commands that do not serve traffic: preparing the Postgres
store, minting PASETO keys and staff tokens, and generating CLI docs.`,
	}

	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewGenDocsCommand())
	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewTokenCommand())
	cmd.AddCommand(NewKeygenCommand())

	return cmd
}
