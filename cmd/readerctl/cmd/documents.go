package cmd

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/audioreader/internal/poller"
)

var (
	loginEmail    string
	loginPassword string
	voiceID       string
	pollInterval  time.Duration
	maxAttempts   int
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print a session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := apiClient().Login(cmd.Context(), loginEmail, loginPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "logged in as %s (expires %s)\n", resp.User.Email, resp.ExpiresAt.Format(time.RFC3339))
		fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a PDF or image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		contentType, err := detectContentType(f)
		if err != nil {
			return err
		}

		resp, err := apiClient().Upload(cmd.Context(), filepath.Base(args[0]), contentType, f)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.DocumentID)
		return nil
	},
}

var processCmd = &cobra.Command{
	Use:   "process <documentId>",
	Short: "Start processing a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		c := apiClient()

		me, err := c.Me(cmd.Context())
		if err != nil {
			return err
		}
		if err := c.Process(cmd.Context(), args[0], me.ID, voiceID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "processing %s\n", args[0])
		return nil
	},
}

var waitCmd = &cobra.Command{
	Use:   "wait <documentId>",
	Short: "Poll until a document is ready or failed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		bar := progressbar.NewOptions(100,
			progressbar.OptionSetDescription("processing"),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(cmd.ErrOrStderr())
			}),
		)

		p := poller.New(apiClient(),
			poller.WithInterval(pollInterval),
			poller.WithMaxAttempts(maxAttempts),
			poller.WithProgress(func(v int) { _ = bar.Set(v) }),
		)

		status, err := p.Wait(cmd.Context(), args[0])
		var failed *poller.FailedError
		var timeout *poller.TimeoutError
		switch {
		case errors.As(err, &failed):
			_ = bar.Exit()
			return fmt.Errorf("processing failed: %s", failed.Message)
		case errors.As(err, &timeout):
			_ = bar.Exit()
			return errors.New("processing timeout")
		case err != nil:
			_ = bar.Exit()
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), status.AudioURL)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <documentId>",
	Short: "Delete a document and its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		return apiClient().Delete(cmd.Context(), args[0])
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	processCmd.Flags().StringVar(&voiceID, "voice", "", "voice id (default Joanna)")

	waitCmd.Flags().DurationVar(&pollInterval, "interval", poller.DefaultInterval, "time between status checks")
	waitCmd.Flags().IntVar(&maxAttempts, "attempts", poller.DefaultMaxAttempts, "status checks before giving up")
}

// detectContentType prefers the extension and sniffs the content otherwise.
func detectContentType(f *os.File) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(f.Name())); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil {
			return mediaType, nil
		}
	}

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return "", fmt.Errorf("read %s: %w", f.Name(), err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return "", fmt.Errorf("rewind %s: %w", f.Name(), err)
	}
	return http.DetectContentType(head[:n]), nil
}
