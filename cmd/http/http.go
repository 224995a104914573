package http

import "github.com/spf13/cobra"

func NewHTTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "http",
		Aliases: []string{"api"},
		Short:   "Serve the queue HTTP API and live stream",
	}

	cmd.AddCommand(NewStartCommand())

	return cmd
}
