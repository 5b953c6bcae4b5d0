package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lectern/internal/config"
)

const userAgent = "Lectern-Go/0.1.0"

// Service defines the notification surface exposed to the orchestrator.
type Service interface {
	NotifyBatchStarted(ctx context.Context, count int) error
	NotifyBatchCompleted(ctx context.Context, succeeded, failed int, duration time.Duration) error
	NotifyManualSelectionNeeded(ctx context.Context, filename, suggestion string) error
	NotifyUploadError(ctx context.Context, filename string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		batch:        cfg.Notifications.Batch,
		manualReview: cfg.Notifications.ManualReview,
		errors:       cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	batch        bool
	manualReview bool
	errors       bool
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, count int) error {
	if !n.batch {
		return nil
	}
	data := payload{
		title:   "Lectern - Batch Started",
		message: fmt.Sprintf("Started uploading batch of %d files", count),
		tags:    []string{"lectern", "batch", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, succeeded, failed int, duration time.Duration) error {
	if !n.batch {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	if failed == 0 {
		title = "Lectern - Batch Complete"
		message = fmt.Sprintf("Batch complete: %d files uploaded in %s", succeeded, durationText)
	} else {
		title = "Lectern - Batch Complete (with errors)"
		message = fmt.Sprintf("Batch complete: %d succeeded, %d failed in %s", succeeded, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"lectern", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyManualSelectionNeeded(ctx context.Context, filename, suggestion string) error {
	if !n.manualReview {
		return nil
	}
	filename = strings.TrimSpace(filename)
	message := fmt.Sprintf("Could not match: %s\nManual selection required", filename)
	if suggestion = strings.TrimSpace(suggestion); suggestion != "" {
		message = fmt.Sprintf("%s\nBest guess: %s", message, suggestion)
	}
	data := payload{
		title:   "Lectern - Manual Selection",
		message: message,
		tags:    []string{"lectern", "match", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadError(ctx context.Context, filename string, err error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Upload failed")
	if filename = strings.TrimSpace(filename); filename != "" {
		builder.WriteString(": ")
		builder.WriteString(filename)
	}
	builder.WriteString("\n")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown error")
	}

	data := payload{
		title:    "Lectern - Upload Error",
		message:  builder.String(),
		tags:     []string{"lectern", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Lectern - Test",
		message:  "Notification system test",
		tags:     []string{"lectern", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, int) error { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyManualSelectionNeeded(context.Context, string, string) error { return nil }
func (noopService) NotifyUploadError(context.Context, string, error) error            { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
