package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"lectern/internal/config"
	"lectern/internal/deps"
	"lectern/internal/services/llm"
)

// LLMSettings is the subset of chat client settings a health check needs.
type LLMSettings struct {
	APIKey  string
	BaseURL string
	Model   string
}

// mp3Encoder is required to export transcription chunks.
const mp3Encoder = "libmp3lame"

// CheckLLM makes one completion attempt, without retries, within 30s.
func CheckLLM(ctx context.Context, name string, cfg LLMSettings) Result {
	if cfg.APIKey == "" {
		return fail(name, "API key missing")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	client := llm.NewClient(llm.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}, llm.WithRetryMaxAttempts(1))
	if err := client.HealthCheck(ctx); err != nil {
		return fail(name, summarizeNetworkError(err))
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDeepgram lists the projects visible to apiKey, which fails fast on a
// bad key without transcribing anything.
func CheckDeepgram(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Deepgram"
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	switch {
	case base == "":
		return fail(name, "missing base url")
	case apiKey == "":
		return fail(name, "missing api key")
	}
	status, err := probe(ctx, 10*time.Second, http.MethodGet, base+"/v1/projects", "Token "+apiKey)
	switch {
	case err != nil:
		return fail(name, err.Error())
	case status == http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fail(name, "auth failed (invalid api key)")
	default:
		return fail(name, fmt.Sprintf("auth check failed (%d)", status))
	}
}

// CheckTTS sends a HEAD to the speech server. Anything below 500 counts as
// reachable, including the 401 digest challenge.
func CheckTTS(ctx context.Context, endpoint string) Result {
	const name = "TTS server"
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return fail(name, "missing url")
	}
	status, err := probe(ctx, 5*time.Second, http.MethodHead, endpoint, "")
	switch {
	case err != nil:
		return fail(name, err.Error())
	case status >= http.StatusInternalServerError:
		return fail(name, fmt.Sprintf("server error (%d)", status))
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// probe issues a bodiless request and returns the status code. Errors are
// already summarized for display.
func probe(ctx context.Context, timeout time.Duration, method, url, authorization string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("check failed (%v)", err)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, errors.New(summarizeNetworkError(err))
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// CheckDirectoryAccess requires path to be a directory the daemon can list,
// read and write.
func CheckDirectoryAccess(name, path string) Result {
	problem := func(format string, args ...any) Result {
		return fail(name, path+" (error: "+fmt.Sprintf(format, args...)+")")
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return problem("does not exist")
	case err != nil:
		return problem("stat: %v", err)
	case !info.IsDir():
		return problem("is not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return problem("insufficient permissions: %v", err)
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

func fail(name, detail string) Result {
	return Result{Name: name, Detail: detail}
}

// CheckSystemDeps reports ffmpeg, ffprobe and, when ffmpeg is present, its
// MP3 encoder. The daemon and `lectern status` share it.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	ffmpeg := cfg.FFmpegBinary()
	statuses := deps.CheckBinaries(deps.MediaRequirements(ffmpeg, cfg.FFprobeBinary()))
	if slices.ContainsFunc(statuses, func(s deps.Status) bool { return s.Command == ffmpeg && !s.Available }) {
		return statuses
	}
	return append(statuses, deps.CheckEncoder(ctx, ffmpeg, mp3Encoder))
}

func summarizeNetworkError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "health check timed out (API unresponsive)"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
