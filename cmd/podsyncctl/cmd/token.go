package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amiyamandal-dev/podsync/internal/auth"
	"github.com/amiyamandal-dev/podsync/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token",
	Long: `Sign an access token with the server's JWT secret.

The secret is read from the server configuration (configs/config.yaml or
PODSYNC_AUTH_JWT_SECRET). The principal becomes the author of episodes
imported with the token.

Examples:
  podsyncctl token --principal admin
  export PODSYNC_TOKEN=$(podsyncctl token --principal admin --name "Site Admin")`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().String("principal", "", "principal the token acts for")
	tokenCmd.Flags().String("name", "", "display name")
	tokenCmd.Flags().Duration("expiry", 0, "token lifetime (default: auth.jwt_expiry)")
	_ = tokenCmd.MarkFlagRequired("principal")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	principal, _ := cmd.Flags().GetString("principal")
	name, _ := cmd.Flags().GetString("name")
	expiry, _ := cmd.Flags().GetDuration("expiry")
	if expiry <= 0 {
		expiry = cfg.Auth.JWTExpiry
	}

	token, expiresAt, err := auth.NewJWTManager(cfg.Auth.JWTSecret, expiry).GenerateToken(principal, name)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
