package system

import (
	"fmt"

	"github.com/spf13/cobra"

	pasetotoken "github.com/Alijeyrad/simorq_queue/pkg/paseto"
)

func NewKeygenCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate paseto key material for the authentication section",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pasetotoken.ParseMode(mode)
			if err != nil {
				return err
			}
			keys, err := pasetotoken.GenerateKeys(m)
			if err != nil {
				return err
			}

			hex := keys.Hex()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "authentication:")
			fmt.Fprintln(out, "  paseto:")
			fmt.Fprintf(out, "    mode: %s\n", hex.Mode)
			if hex.SymmetricHex != "" {
				fmt.Fprintf(out, "    local_key_hex: %s\n", hex.SymmetricHex)
			}
			if hex.SecretHex != "" {
				fmt.Fprintf(out, "    secret_key_hex: %s\n", hex.SecretHex)
			}
			if hex.PublicHex != "" {
				fmt.Fprintf(out, "    public_key_hex: %s\n", hex.PublicHex)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(pasetotoken.ModeLocal), "Key mode: local or public")

	return cmd
}
