package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"lectern/internal/services"
)

const (
	defaultBaseURL = "https://api.deepgram.com"
	defaultTimeout = 300 * time.Second
	errorBodyLimit = 512
)

// Options are the prerecorded transcription parameters.
type Options struct {
	Model       string `json:"model"`
	Language    string `json:"language"`
	SmartFormat bool   `json:"smart_format"`
	Utterances  bool   `json:"utterances"`
	Punctuate   bool   `json:"punctuate"`
	Diarize     bool   `json:"diarize"`
}

// DefaultOptions returns nova-2 Czech transcription with every formatting
// feature enabled.
func DefaultOptions() Options {
	return Options{
		Model:       "nova-2",
		Language:    "cs",
		SmartFormat: true,
		Utterances:  true,
		Punctuate:   true,
		Diarize:     true,
	}
}

func (o Options) query() url.Values {
	values := url.Values{}
	values.Set("model", o.Model)
	values.Set("language", o.Language)
	values.Set("smart_format", strconv.FormatBool(o.SmartFormat))
	values.Set("utterances", strconv.FormatBool(o.Utterances))
	values.Set("punctuate", strconv.FormatBool(o.Punctuate))
	values.Set("diarize", strconv.FormatBool(o.Diarize))
	return values
}

// Utterance is one diarized speech segment.
type Utterance struct {
	Speaker    int     `json:"speaker"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Transcript string  `json:"transcript"`
}

// Transcript is the parsed result of a prerecorded request.
type Transcript struct {
	Text       string
	Confidence float64
	Duration   time.Duration
	RequestID  string
	Utterances []Utterance
}

// Client issues requests against the Deepgram REST and websocket endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL points the client at another API host.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
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

// WithLimiter throttles outgoing requests. A nil limiter disables throttling.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// NewLimiter builds a limiter allowing requestsPerMinute requests with a
// burst of one. Zero or negative values return nil.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// New constructs a client authenticated with apiKey.
func New(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type listenResponse struct {
	Metadata struct {
		RequestID string  `json:"request_id"`
		Duration  float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []Utterance `json:"utterances"`
	} `json:"results"`
}

// TranscribeFile uploads the file at path and returns its transcript. A
// response without channels yields an empty transcript rather than an error.
func (c *Client) TranscribeFile(ctx context.Context, path string, opts Options) (Transcript, error) {
	var result Transcript
	if c.apiKey == "" {
		return result, services.Wrap(services.ErrConfiguration, "deepgram", "transcribe", "api key required", nil)
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, services.Wrap(services.ErrNotFound, "deepgram", "open", path, err)
		}
		return result, services.Wrap(services.ErrValidation, "deepgram", "open", path, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "deepgram", "stat", path, err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return result, services.Wrap(services.ErrCanceled, "deepgram", "rate limit", "", err)
		}
	}

	endpoint := c.baseURL + "/v1/listen?" + opts.query().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, file)
	if err != nil {
		return result, fmt.Errorf("deepgram request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", ContentType(path))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return result, statusError(resp.StatusCode, body)
	}

	var payload listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return result, services.Wrap(services.ErrTransient, "deepgram", "decode response", "", err)
	}
	result.RequestID = payload.Metadata.RequestID
	result.Duration = time.Duration(payload.Metadata.Duration * float64(time.Second))
	result.Utterances = payload.Results.Utterances
	if len(payload.Results.Channels) > 0 && len(payload.Results.Channels[0].Alternatives) > 0 {
		best := payload.Results.Channels[0].Alternatives[0]
		result.Text = strings.TrimSpace(best.Transcript)
		result.Confidence = best.Confidence
	}
	return result, nil
}

func statusError(code int, body []byte) error {
	message := fmt.Sprintf("http %d: %s", code, strings.Join(strings.Fields(string(body)), " "))
	switch {
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "deepgram", "transcribe", message, nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "deepgram", "transcribe", message, nil)
	case code == http.StatusRequestTimeout:
		return services.Wrap(services.ErrTimeout, "deepgram", "transcribe", message, nil)
	default:
		return services.Wrap(services.ErrExternalTool, "deepgram", "transcribe", message, nil)
	}
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return services.Wrap(services.ErrCanceled, "deepgram", "transcribe", "", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "deepgram", "transcribe", "request timed out", err)
	}
	return services.Wrap(services.ErrTransient, "deepgram", "transcribe", "request failed", err)
}

var contentTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".aac":  "audio/aac",
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
}

// ContentType maps a media file extension to the MIME type sent upstream.
func ContentType(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}
