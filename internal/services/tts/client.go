package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/icholy/digest"

	"lectern/internal/fileutil"
	"lectern/internal/services"
)

const defaultTimeout = 300 * time.Second

// Client posts synthesis requests to the TTS server.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New constructs a client for the synthesis endpoint. Requests answer the
// server's Digest challenge with username and password; the challenge is
// cached so later requests skip the 401 round trip.
func New(endpoint, username, password string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	authed := *c.httpClient
	authed.Transport = &digest.Transport{
		Username:  username,
		Password:  password,
		Transport: c.httpClient.Transport,
	}
	c.httpClient = &authed
	return c
}

// Synthesize converts text to speech and writes the audio to outputPath.
// voice may be a voice key or an engine name.
func (c *Client) Synthesize(ctx context.Context, text, voice, format, outputPath string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrValidation, "tts", "synthesize", "text cannot be empty", nil)
	}
	if c.endpoint == "" {
		return "", services.Wrap(services.ErrConfiguration, "tts", "synthesize", "tts.url is not configured", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return "", services.Wrap(services.ErrValidation, "tts", "synthesize", "output path required", nil)
	}
	engine, err := ResolveVoice(voice)
	if err != nil {
		return "", err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = DefaultFormat
	}
	if !IsFormat(format) {
		return "", services.Wrap(services.ErrValidation, "tts", "synthesize", fmt.Sprintf("unsupported format %q", format), nil)
	}
	form := url.Values{
		"engine": {engine},
		"format": {format},
		"text":   {text},
	}.Encode()

	resp, err := c.post(ctx, form)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp)
	}
	err = fileutil.WriteAtomic(outputPath, 0o644, func(w io.Writer) error {
		_, err := io.Copy(w, resp.Body)
		return err
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "tts", "synthesize", "download audio", err)
	}
	return outputPath, nil
}

// post sends the form. A 401 that survives the digest exchange means the
// credentials are wrong.
func (c *Client) post(ctx context.Context, form string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "request", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		return nil, services.Wrap(services.ErrConfiguration, "tts", "authenticate", "invalid tts username or password", nil)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("server returned %s", resp.Status)
	if excerpt := strings.TrimSpace(string(body)); excerpt != "" {
		msg += ": " + excerpt
	}
	marker := services.ErrExternalTool
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		marker = services.ErrTransient
	case resp.StatusCode == http.StatusForbidden:
		marker = services.ErrConfiguration
	case resp.StatusCode == http.StatusRequestTimeout:
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, "tts", "synthesize", msg, nil)
}

func classifyTransportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return services.Wrap(services.ErrCanceled, "tts", "request", "", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "tts", "request", "", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "tts", "request", "", err)
	}
	return services.Wrap(services.ErrTransient, "tts", "request", "server unreachable", err)
}
