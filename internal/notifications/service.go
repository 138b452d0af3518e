package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"docintake/internal/config"
	"docintake/internal/intake"
	"docintake/internal/logging"
)

const userAgent = "docintake/0.1.0"

// Dispatcher delivers notification descriptors produced by the routing engine.
type Dispatcher interface {
	// Dispatch delivers every notification and returns the batch with Sent set
	// on the ones that were accepted. The error joins individual failures.
	Dispatch(ctx context.Context, batch []intake.Notification) ([]intake.Notification, error)
	// NotifyRunFailed reports a run that ended with a fatal or transient error.
	NotifyRunFailed(ctx context.Context, documentName string, err error) error
}

// NewDispatcher builds a dispatcher backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewDispatcher(cfg *config.Config, logger *slog.Logger) Dispatcher {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopDispatcher{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	concurrency := cfg.Notifications.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ntfyDispatcher{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(logger, "notifications"),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	email    string
}

type ntfyDispatcher struct {
	endpoint    string
	client      *http.Client
	concurrency int
	logger      *slog.Logger
}

func (n *ntfyDispatcher) Dispatch(ctx context.Context, batch []intake.Notification) ([]intake.Notification, error) {
	out := make([]intake.Notification, len(batch))
	copy(out, batch)
	if len(out) == 0 {
		return out, nil
	}

	errs := make([]error, len(out))
	var group errgroup.Group
	group.SetLimit(n.concurrency)
	for idx := range out {
		note := out[idx]
		if note.Sent {
			continue
		}
		group.Go(func() error {
			if err := n.send(ctx, payloadFor(note)); err != nil {
				errs[idx] = fmt.Errorf("%s to %s: %w", note.Channel, note.Recipient, err)
				return nil
			}
			out[idx].Sent = true
			return nil
		})
	}
	_ = group.Wait()

	joined := errors.Join(errs...)
	if joined != nil {
		logging.WarnWithContext(logging.WithContext(ctx, n.logger), "notification delivery incomplete", "notification_failure",
			logging.Error(joined),
			logging.String(logging.FieldErrorHint, "check ntfy_topic reachability"),
			logging.String(logging.FieldImpact, "some recipients were not notified"),
		)
	}
	return out, joined
}

func (n *ntfyDispatcher) NotifyRunFailed(ctx context.Context, documentName string, runErr error) error {
	var builder strings.Builder
	builder.WriteString("Intake failed")
	if documentName = strings.TrimSpace(documentName); documentName != "" {
		builder.WriteString(" for ")
		builder.WriteString(documentName)
	}
	builder.WriteString(": ")
	if runErr != nil {
		builder.WriteString(strings.TrimSpace(runErr.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "docintake - Run Failed",
		message:  builder.String(),
		tags:     []string{"docintake", "error", "alert"},
		priority: "high",
	})
}

func payloadFor(note intake.Notification) payload {
	data := payload{
		title:   strings.TrimSpace(note.Subject),
		message: note.Message,
		tags:    []string{"docintake", strings.ToLower(note.Channel)},
	}
	if data.title == "" {
		data.title = "docintake"
	}
	if note.Priority == intake.PriorityHigh {
		data.priority = "high"
	}
	switch note.Channel {
	case intake.ChannelEmail:
		data.email = note.Recipient
	default:
		if recipient := strings.TrimSpace(note.Recipient); recipient != "" {
			data.tags = append(data.tags, recipient)
		}
	}
	return data
}

func (n *ntfyDispatcher) send(ctx context.Context, data payload) error {
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
	if data.email != "" {
		req.Header.Set("Email", data.email)
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

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(_ context.Context, batch []intake.Notification) ([]intake.Notification, error) {
	out := make([]intake.Notification, len(batch))
	copy(out, batch)
	return out, nil
}

func (noopDispatcher) NotifyRunFailed(context.Context, string, error) error { return nil }
