package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string

	apiURL   string
	username string
	password string
	token    string
	verbose  bool
	dryRun   bool
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	if envPort == "" {
		envPort = "8080"
	}
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}
	envAPI := os.Getenv("QUIZDRILL_API_URL")
	if envAPI == "" {
		envAPI = "http://localhost:8080"
	}

	cmd := &cobra.Command{
		Use:   "quizdrill",
		Short: "Quiz session and scoring service with a parent admin CLI",
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&apiURL, "api-url", envAPI, "base URL of the quizdrill API")
	cmd.PersistentFlags().StringVar(&username, "username", "", "username for API login")
	cmd.PersistentFlags().StringVar(&password, "password", "", "password for API login")
	cmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (skips login)")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log requests to stderr")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "print mutating requests instead of sending them")

	cmd.AddCommand(NewServerCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(newUpdateMultiplierCmd())
	cmd.AddCommand(newUpdateCreditsCmd())
	cmd.AddCommand(newListUsersCmd())
	cmd.AddCommand(newGetUserCmd())
	return cmd
}
