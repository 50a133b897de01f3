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

// Event identifies a workflow milestone worth telling the user about.
type Event string

const (
	EventQueueStarted           Event = "queue_started"
	EventQueueCompleted         Event = "queue_completed"
	EventTranscriptionCompleted Event = "transcription_completed"
	EventParaphraseCompleted    Event = "paraphrase_completed"
	EventSynthesisCompleted     Event = "synthesis_completed"
	EventLecturePublished       Event = "lecture_published"
	EventError                  Event = "error"
	EventTest                   Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		queue:    cfg.Notifications.Queue,
		stages:   cfg.Notifications.Stages,
		errors:   cfg.Notifications.Errors,
	}
}

// TestNotification sends the test event through svc.
func TestNotification(ctx context.Context, svc Service) error {
	if svc == nil {
		return nil
	}
	return svc.Publish(ctx, EventTest, nil)
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	queue    bool
	stages   bool
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventQueueStarted, EventQueueCompleted:
		return n.queue
	case EventTranscriptionCompleted, EventParaphraseCompleted, EventSynthesisCompleted, EventLecturePublished:
		return n.stages
	case EventError:
		return n.errors
	default:
		return true
	}
}

func format(event Event, payload Payload) (message, bool) {
	title := payload.text("title")
	switch event {
	case EventQueueStarted:
		return message{
			title: "Lectern - Queue Started",
			body:  fmt.Sprintf("Started processing queue with %d lectures", payload.integer("count")),
			tags:  []string{"lectern", "queue", "started"},
		}, true
	case EventQueueCompleted:
		return queueCompleted(payload), true
	case EventTranscriptionCompleted:
		body := fmt.Sprintf("Transcribed: %s", title)
		if chunks := payload.integer("chunks"); chunks > 1 {
			body += fmt.Sprintf(" (%d chunks)", chunks)
		}
		return message{
			title: "Lectern - Transcribed",
			body:  body,
			tags:  []string{"lectern", "transcription", "completed"},
		}, true
	case EventParaphraseCompleted:
		body := fmt.Sprintf("Paraphrased: %s", title)
		if style := payload.text("style"); style != "" {
			body += fmt.Sprintf(" (%s)", style)
		}
		return message{
			title: "Lectern - Paraphrased",
			body:  body,
			tags:  []string{"lectern", "paraphrase", "completed"},
		}, true
	case EventSynthesisCompleted:
		return message{
			title: "Lectern - Audio Ready",
			body:  fmt.Sprintf("Synthesized audio: %s", title),
			tags:  []string{"lectern", "tts", "completed"},
		}, true
	case EventLecturePublished:
		body := fmt.Sprintf("Published: %s", title)
		if dir := payload.text("outputDir"); dir != "" {
			body += "\nFolder: " + dir
		}
		return message{
			title: "Lectern - Published",
			body:  body,
			tags:  []string{"lectern", "publish", "completed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if label := payload.text("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if detail := payload.text("error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Lectern - Error",
			body:     builder.String(),
			tags:     []string{"lectern", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Lectern - Test",
			body:     "Notification system test",
			tags:     []string{"lectern", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func queueCompleted(payload Payload) message {
	duration := payload.duration("duration").Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	processed := payload.integer("processed")
	failed := payload.integer("failed")
	if failed == 0 {
		return message{
			title: "Lectern - Queue Complete",
			body:  fmt.Sprintf("Queue processing complete: %d lectures processed in %s", processed, duration),
			tags:  []string{"lectern", "queue", "completed"},
		}
	}
	return message{
		title: "Lectern - Queue Complete (with errors)",
		body:  fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, duration),
		tags:  []string{"lectern", "queue", "completed"},
	}
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) integer(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) duration(key string) time.Duration {
	if v, ok := p[key].(time.Duration); ok {
		return v
	}
	return 0
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
