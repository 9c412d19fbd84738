// Package cmd contains all CLI commands for podsyncctl
package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultServer = "http://localhost:8080"

var (
	settings = viper.New()
	version  = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "podsyncctl",
	Short: "podsync operator CLI",
	Long: `podsyncctl talks to a running podsync server.

The server address and access token come from --server and --token,
or from PODSYNC_SERVER and PODSYNC_TOKEN.

Example usage:
  podsyncctl token --principal admin         # Mint an access token
  podsyncctl add https://example.com/rss     # Subscribe to a feed
  podsyncctl import <feed-id>                # Import every eligible episode
  podsyncctl feeds                           # List subscribed feeds`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "podsync server address (default "+defaultServer+")")
	rootCmd.PersistentFlags().String("token", "", "access token")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Minute, "timeout of a single API call")

	settings.SetEnvPrefix("PODSYNC")
	settings.AutomaticEnv()
	settings.SetDefault("server", defaultServer)

	_ = settings.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = settings.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = settings.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

// newClient builds an API client from the resolved flags and environment
func newClient() *apiClient {
	return newAPIClient(settings.GetString("server"), settings.GetString("token"), settings.GetDuration("timeout"))
}
