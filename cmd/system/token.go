package system

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/pkg/authorize"
	pasetotoken "github.com/Alijeyrad/simorq_queue/pkg/paseto"
)

func NewTokenCommand() *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a staff access token",
		Long: `Mint a staff access token signed with the configured key.

Tokens normally come from the identity service. This command is meant for
local development and smoke tests; it needs the local key or the secret key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, known := authorize.KnownRoles[authorize.Role(role)]; !known {
				return fmt.Errorf("unknown role %q", role)
			}

			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			mgr, err := pasetotoken.NewFromCentral(cfg.Authentication.Paseto)
			if err != nil {
				return fmt.Errorf("failed to load paseto keys: %w", err)
			}
			tok, err := mgr.Issue(subject, role)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Staff member id")
	cmd.Flags().StringVar(&role, "role", string(authorize.RoleStaff), "Role: viewer, staff or admin")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
