package main

import (
	"fmt"
	"os"

	"github.com/jghoshh/bienestar/backend"
	"github.com/jghoshh/bienestar/frontend"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile   string
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "bienestar",
	Short: "Bienestar - daily wellness tracker",
	Long: `Bienestar tracks water, sleep, mood and activities, keeps a logging
streak and sends reminders.

Run 'bienestar server' to start the API and 'bienestar shell' to use it.`,
	SilenceUsage: true,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the HTTP API, reminder scheduler and notification workers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return backend.RunBackend(envFile)
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive client",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("server") {
			_ = godotenv.Load("frontend/.env")
			if v := os.Getenv("SERVER_URL"); v != "" {
				serverURL = v
			}
		}
		frontend.RunFrontend(serverURL)
		return nil
	},
}

func init() {
	serverCmd.Flags().StringVar(&envFile, "env-file", "", "Extra .env file to load before backend/.env")
	shellCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL (or set SERVER_URL env)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(shellCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
