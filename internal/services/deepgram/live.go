package deepgram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"lectern/internal/services"
)

const (
	defaultKeepAlive   = 5 * time.Second
	defaultStopTimeout = 5 * time.Second
	updateBuffer       = 64
)

// LiveOptions configures a streaming session.
type LiveOptions struct {
	Model          string
	Language       string
	SampleRate     int
	Channels       int
	EndpointingMS  int
	UtteranceEndMS int
	SmartFormat    bool
	// KeepAlive is how often a KeepAlive message is sent while paused.
	KeepAlive time.Duration
}

// DefaultLiveOptions returns 16 kHz mono settings with 300 ms endpointing.
func DefaultLiveOptions() LiveOptions {
	return LiveOptions{
		Model:          "nova-2",
		Language:       "cs",
		SampleRate:     16000,
		Channels:       1,
		EndpointingMS:  300,
		UtteranceEndMS: 1000,
		SmartFormat:    true,
		KeepAlive:      defaultKeepAlive,
	}
}

func (o LiveOptions) query() url.Values {
	values := url.Values{}
	values.Set("model", o.Model)
	values.Set("language", o.Language)
	values.Set("encoding", "linear16")
	values.Set("channels", strconv.Itoa(o.Channels))
	values.Set("sample_rate", strconv.Itoa(o.SampleRate))
	values.Set("interim_results", "true")
	values.Set("utterance_end_ms", strconv.Itoa(o.UtteranceEndMS))
	values.Set("vad_events", "true")
	values.Set("endpointing", strconv.Itoa(o.EndpointingMS))
	values.Set("smart_format", strconv.FormatBool(o.SmartFormat))
	values.Set("no_delay", "true")
	return values
}

// LiveSession is an open streaming transcription connection.
type LiveSession struct {
	conn    *websocket.Conn
	acc     *Accumulator
	updates chan Update

	writeMu sync.Mutex
	paused  atomic.Bool
	active  atomic.Bool

	done     chan struct{}
	stopOnce sync.Once
	errMu    sync.Mutex
	err      error
}

// Dial opens a live session. The caller must call Stop.
func (c *Client) Dial(ctx context.Context, opts LiveOptions) (*LiveSession, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "deepgram", "live", "api key required", nil)
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}

	endpoint, origin, err := websocketURL(c.baseURL)
	if err != nil {
		return nil, err
	}
	cfg, err := websocket.NewConfig(endpoint+"/v1/listen?"+opts.query().Encode(), origin)
	if err != nil {
		return nil, fmt.Errorf("deepgram live config: %w", err)
	}
	cfg.Header.Set("Authorization", "Token "+c.apiKey)
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "deepgram", "live", "dial", err)
	}

	session := &LiveSession{
		conn:    conn,
		acc:     &Accumulator{},
		updates: make(chan Update, updateBuffer),
		done:    make(chan struct{}),
	}
	session.active.Store(true)
	go session.readLoop()
	go session.keepAliveLoop(opts.KeepAlive)
	return session, nil
}

func websocketURL(base string) (string, string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", "", fmt.Errorf("deepgram live url: %w", err)
	}
	origin := parsed.Scheme + "://" + parsed.Host
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	case "ws", "wss":
		origin = "http://" + parsed.Host
	default:
		return "", "", fmt.Errorf("deepgram live url: unsupported scheme %q", parsed.Scheme)
	}
	return strings.TrimRight(parsed.String(), "/"), origin, nil
}

func (s *LiveSession) readLoop() {
	defer close(s.updates)
	defer close(s.done)
	for {
		var data []byte
		if err := websocket.Message.Receive(s.conn, &data); err != nil {
			if !errors.Is(err, io.EOF) && s.active.Load() {
				s.setErr(err)
			}
			if update, ok := s.acc.Flush(); ok {
				s.updates <- update
			}
			s.active.Store(false)
			return
		}
		update, ok, err := s.acc.Handle(data)
		if err != nil {
			s.setErr(err)
			continue
		}
		if ok {
			s.deliver(update)
		}
	}
}

// deliver drops interim updates when the consumer lags; finals always block.
func (s *LiveSession) deliver(update Update) {
	if update.Final {
		s.updates <- update
		return
	}
	select {
	case s.updates <- update:
	default:
	}
}

func (s *LiveSession) keepAliveLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.paused.Load() {
				_ = s.sendControl("KeepAlive")
			}
		}
	}
}

func (s *LiveSession) sendControl(kind string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return websocket.Message.Send(s.conn, `{"type":"`+kind+`"}`)
}

// Send streams a block of PCM audio. Audio sent while paused is dropped.
func (s *LiveSession) Send(pcm []byte) error {
	if !s.active.Load() {
		return errors.New("deepgram live: session closed")
	}
	if s.paused.Load() || len(pcm) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return websocket.Message.Send(s.conn, pcm)
}

// Pause stops forwarding audio and keeps the connection alive.
func (s *LiveSession) Pause() bool {
	if !s.active.Load() {
		return false
	}
	s.paused.Store(true)
	return true
}

// Resume forwards audio again after Pause.
func (s *LiveSession) Resume() bool {
	if !s.active.Load() {
		return false
	}
	s.paused.Store(false)
	return true
}

// Paused reports whether audio is currently dropped.
func (s *LiveSession) Paused() bool {
	return s.paused.Load()
}

// Active reports whether the session is still streaming.
func (s *LiveSession) Active() bool {
	return s.active.Load()
}

// Updates delivers results until the connection closes.
func (s *LiveSession) Updates() <-chan Update {
	return s.updates
}

// Transcript returns the committed transcript so far.
func (s *LiveSession) Transcript() string {
	return s.acc.Transcript()
}

// Err returns the first read error, if any.
func (s *LiveSession) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *LiveSession) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Stop asks Deepgram to flush pending results, waits for the server to close
// the stream, and returns the final transcript. Updates must be drained
// concurrently or Stop may wait for the full timeout.
func (s *LiveSession) Stop(ctx context.Context) (string, error) {
	s.stopOnce.Do(func() {
		_ = s.sendControl("CloseStream")
		timer := time.NewTimer(defaultStopTimeout)
		defer timer.Stop()
		select {
		case <-s.done:
		case <-timer.C:
		case <-ctx.Done():
		}
		s.active.Store(false)
		_ = s.conn.Close()
		<-s.done
	})
	return s.Transcript(), s.Err()
}
