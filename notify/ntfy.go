package notify

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"geminialuminium/config"
	"geminialuminium/pipeline"
)

// NtfySender pushes run summaries to an ntfy topic
type NtfySender struct {
	cfg    *config.Config
	client *http.Client
}

// NtfyMessage represents a ntfy notification
type NtfyMessage struct {
	Title    string
	Message  string
	Tags     []string
	Priority int
}

// NewNtfySender creates a new ntfy sender
func NewNtfySender(cfg *config.Config) *NtfySender {
	return &NtfySender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendRunSummary sends the totals of a finished run
func (n *NtfySender) SendRunSummary(summary *pipeline.RunSummary) error {
	if !n.cfg.Ntfy.Enabled {
		return nil
	}

	var lines []string
	for _, c := range summary.Categories {
		lines = append(lines, fmt.Sprintf("%s: %d/%d", c.Category, c.Processed, c.Found))
	}
	lines = append(lines, fmt.Sprintf("Saved %.1f%% (%s → %s)",
		summary.Savings(),
		humanize.Bytes(uint64(summary.TotalOriginalBytes)),
		humanize.Bytes(uint64(summary.TotalOptimizedBytes))))

	msg := NtfyMessage{
		Title:    fmt.Sprintf("🖼 %d images optimized", summary.TotalProcessed),
		Message:  strings.Join(lines, "\n"),
		Tags:     []string{"framed_picture"},
		Priority: 3,
	}
	if summary.TotalFailed > 0 {
		msg.Title = fmt.Sprintf("🖼 %d images optimized, %d failed", summary.TotalProcessed, summary.TotalFailed)
		msg.Tags = []string{"warning"}
		msg.Priority = 4
	}

	return n.send(msg)
}

// send posts the message as body, metadata as headers
func (n *NtfySender) send(msg NtfyMessage) error {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(n.cfg.Ntfy.Server, "/"), n.cfg.Ntfy.Topic)

	req, err := http.NewRequest("POST", url, bytes.NewBufferString(msg.Message))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Title", msg.Title)
	req.Header.Set("Priority", fmt.Sprintf("%d", msg.Priority))
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	log.Printf("📱 ntfy notification sent: %s", msg.Title)
	return nil
}

var _ pipeline.Notifier = (*NtfySender)(nil)
