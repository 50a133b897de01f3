package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// LogEvent is a structured log line kept by the StreamHub.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	ItemID        int64             `json:"item_id,omitempty"`
	Lane          string            `json:"lane,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// StreamHub is a bounded ring of recent log events. Readers poll with a
// sequence cursor and may block until newer events arrive.
type StreamHub struct {
	mu      sync.Mutex
	ring    []LogEvent
	head    int // index of the oldest event
	size    int
	lastSeq uint64
	notify  chan struct{}
}

// NewStreamHub constructs a hub holding at most capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	return &StreamHub{ring: make([]LogEvent, capacity), notify: make(chan struct{})}
}

// Publish appends evt, assigning the next sequence number.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.lastSeq++
	evt.Sequence = h.lastSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	slot := (h.head + h.size) % len(h.ring)
	h.ring[slot] = evt
	if h.size < len(h.ring) {
		h.size++
	} else {
		h.head = (h.head + 1) % len(h.ring)
	}
	woken := h.notify
	h.notify = make(chan struct{})
	h.mu.Unlock()
	close(woken)
}

// LogFilter selects events by item and component. The zero value matches
// every event.
type LogFilter struct {
	ItemID    int64
	Component string
}

// Match reports whether evt passes the filter.
func (f LogFilter) Match(evt LogEvent) bool {
	if f.ItemID != 0 && evt.ItemID != f.ItemID {
		return false
	}
	return f.Component == "" || strings.EqualFold(f.Component, evt.Component)
}

// Fetch returns events with a sequence greater than since, at most limit of
// them, and the cursor for the next call. With wait set it blocks until an
// event is available or ctx ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	return h.FetchMatching(ctx, since, limit, wait, LogFilter{})
}

// FetchMatching is Fetch restricted to events passing filter. The limit
// counts matching events only; the cursor skips past non-matching ones.
func (h *StreamHub) FetchMatching(ctx context.Context, since uint64, limit int, wait bool, filter LogFilter) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	for {
		h.mu.Lock()
		events, next := h.collect(since, h.clampLimit(limit), filter)
		changed := h.notify
		h.mu.Unlock()
		if len(events) > 0 || !wait {
			return events, next, nil
		}
		// Everything up to next has been seen and rejected.
		since = next
		select {
		case <-ctx.Done():
			return nil, next, ctx.Err()
		case <-changed:
		}
	}
}

// Tail returns the most recent limit events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	return h.TailMatching(limit, LogFilter{})
}

// TailMatching returns the most recent limit events passing filter, oldest
// first.
func (h *StreamHub) TailMatching(limit int, filter LogFilter) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	limit = h.clampLimit(limit)
	var out []LogEvent
	for i := h.size - 1; i >= 0 && len(out) < limit; i-- {
		if evt := h.at(i); filter.Match(evt) {
			out = append(out, evt)
		}
	}
	slices.Reverse(out)
	return out, h.lastSeq
}

func (h *StreamHub) clampLimit(limit int) int {
	if limit <= 0 || limit > len(h.ring) {
		return len(h.ring)
	}
	return limit
}

// at returns the i-th oldest buffered event. Caller holds mu.
func (h *StreamHub) at(i int) LogEvent {
	return h.ring[(h.head+i)%len(h.ring)]
}

// collect gathers up to limit matching events newer than since. Caller
// holds mu.
func (h *StreamHub) collect(since uint64, limit int, filter LogFilter) ([]LogEvent, uint64) {
	var out []LogEvent
	for i := 0; i < h.size && len(out) < limit; i++ {
		if evt := h.at(i); evt.Sequence > since && filter.Match(evt) {
			out = append(out, evt)
		}
	}
	if len(out) == 0 {
		return nil, h.lastSeq
	}
	return out, out[len(out)-1].Sequence
}

type streamHandler struct {
	next   slog.Handler
	hub    *StreamHub
	attrs  []slog.Attr
	groups []string
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(h.eventFromRecord(record))
	return h.next.Handle(ctx, record)
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// eventFromRecord applies logger attrs first so call-site attrs win.
func (h *streamHandler) eventFromRecord(record slog.Record) LogEvent {
	event := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
	}
	var flat []kv
	for _, attr := range h.attrs {
		flattenAttr(&flat, nil, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&flat, h.groups, attr)
		return true
	})
	for _, field := range flat {
		switch field.key {
		case FieldItemID:
			if field.value.Kind() == slog.KindInt64 {
				event.ItemID = field.value.Int64()
			}
		case FieldStage:
			event.Stage = attrString(field.value)
		case FieldLane:
			event.Lane = attrString(field.value)
		case FieldCorrelationID:
			event.CorrelationID = attrString(field.value)
		case FieldComponent:
			event.Component = attrString(field.value)
		default:
			if event.Fields == nil {
				event.Fields = make(map[string]string)
			}
			event.Fields[field.key] = attrString(field.value)
		}
	}
	return event
}
