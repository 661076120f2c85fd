package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newCheckAPICmd() *cobra.Command {
	var (
		url      string
		retries  int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check-api",
		Short: "Poll GET / until the API answers 200",
		Long: `Poll the API root until it answers 200 or the retries run out.

Examples:
  mindctl check-api
  mindctl check-api --url https://mindmate.example.com --retries 10 --interval 3s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			return pollAPI(cmd.Context(), client, url, retries, interval, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8000", "MindMate API base URL")
	cmd.Flags().IntVar(&retries, "retries", 5, "number of attempts")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "delay between attempts")
	return cmd
}

func pollAPI(ctx context.Context, client *http.Client, baseURL string, retries int, interval time.Duration, out io.Writer) error {
	if retries < 1 {
		retries = 1
	}
	target := strings.TrimSuffix(baseURL, "/") + "/"

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		message, err := fetchStatus(ctx, client, target)
		if err == nil {
			fmt.Fprintf(out, "API is up (%s): %s\n", target, message)
			return nil
		}
		lastErr = err
		fmt.Fprintf(out, "attempt %d/%d failed: %v\n", attempt, retries, err)

		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("API not reachable after %d attempts: %w", retries, lastErr)
}

func fetchStatus(ctx context.Context, client *http.Client, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode root response: %w", err)
	}
	return body.Message, nil
}
