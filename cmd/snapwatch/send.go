package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Post a single event to the notify webhook",
	Example: `  snapwatch send --action recording_started --title "Gutfeld!" --channel "FOX News"
  snapwatch send --action recording_exit --field exit_code=1 --field exit_reason=killed`,
	RunE: runSend,
}

var (
	sendURL     string
	sendAction  string
	sendTitle   string
	sendChannel string
	sendDesc    string
	sendJobID   string
	sendFields  []string
)

func init() {
	sendCmd.Flags().StringVar(&sendURL, "url", "http://127.0.0.1:9080/notify", "Notify webhook URL")
	sendCmd.Flags().StringVarP(&sendAction, "action", "a", "", "Event action (required)")
	sendCmd.Flags().StringVar(&sendTitle, "title", "", "Programme title")
	sendCmd.Flags().StringVar(&sendChannel, "channel", "", "Channel name")
	sendCmd.Flags().StringVar(&sendDesc, "desc", "", "Description")
	sendCmd.Flags().StringVar(&sendJobID, "job-id", "", "Job identifier")
	sendCmd.Flags().StringArrayVarP(&sendFields, "field", "f", nil, "Extra key=value payload field (repeatable; integers are sent as numbers)")
	_ = sendCmd.MarkFlagRequired("action")

	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, _ []string) error {
	payload, err := buildPayload()
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, sendURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(out)))
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send: status %d", resp.StatusCode)
	}
	return nil
}

func buildPayload() (map[string]any, error) {
	payload := map[string]any{"action": sendAction}
	for k, v := range map[string]string{
		"title":   sendTitle,
		"channel": sendChannel,
		"desc":    sendDesc,
		"job_id":  sendJobID,
	} {
		if v != "" {
			payload[k] = v
		}
	}
	for _, f := range sendFields {
		k, v, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --field %q: want key=value", f)
		}
		if n, err := strconv.Atoi(v); err == nil {
			payload[k] = n
			continue
		}
		payload[k] = v
	}
	return payload, nil
}
