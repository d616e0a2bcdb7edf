package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/audioreader/internal/client"
)

var (
	serverURL string
	token     string
)

var rootCmd = &cobra.Command{
	Use:   "readerctl",
	Short: "Command line client for the audio reader API",
	Long: `readerctl uploads documents, starts processing, waits for the audio
to be ready and maps playback positions to words.

Authenticate once with "readerctl login" and export the printed token as
READER_TOKEN, or pass --token.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("READER_API_URL", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("READER_TOKEN"), "session token")

	rootCmd.AddCommand(loginCmd, uploadCmd, processCmd, waitCmd, locateCmd, deleteCmd, seedUserCmd)
}

func apiClient() *client.Client {
	c := client.New(serverURL)
	c.SetToken(token)
	return c
}

func requireToken() error {
	if token == "" {
		return fmt.Errorf("not logged in: set READER_TOKEN or pass --token")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
