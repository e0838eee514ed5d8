package checker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"

	"github.com/goccy/go-json"

	"iptv-curator/logger"
	"iptv-curator/utils"
)

// Terminal probe failures; anything else is treated as transient and may
// be retried within the attempt budget.
var (
	ErrNoVideoStream     = errors.New("no video stream present")
	ErrMalformedResponse = errors.New("malformed probe response")
)

// Prober answers whether a URL currently serves a playable stream. A nil
// error means the probe succeeded.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

// NewProber returns the deep media prober when the ffprobe binary is
// available and falls back to the transport-level prober otherwise. The
// fallback is never substituted silently.
func NewProber() Prober {
	path := utils.GetEnv("FFPROBE_PATH")
	if resolved, err := exec.LookPath(path); err == nil {
		return &FFProbeProber{Path: resolved}
	}
	logger.Default.Warnf("ffprobe not found (%s); falling back to transport-level probing", path)
	return &HTTPProber{Client: utils.HTTPClient}
}

// FFProbeProber inspects the stream with ffprobe and requires a genuine
// video elementary stream.
type FFProbeProber struct {
	Path string
}

func (p *FFProbeProber) Probe(ctx context.Context, url string) error {
	cmd := exec.CommandContext(ctx, p.Path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-i", url,
	)

	out, err := cmd.Output()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("ffprobe: %w", ctxErr)
	}
	if err != nil {
		return fmt.Errorf("ffprobe: %w", err)
	}

	var info struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &info); err != nil {
		return fmt.Errorf("ffprobe output: %w", ErrMalformedResponse)
	}

	for _, stream := range info.Streams {
		if stream.CodecType == "video" {
			return nil
		}
	}
	return ErrNoVideoStream
}

// HTTPProber is the lighter transport-level check: a successful request
// with an acceptable status counts as alive.
type HTTPProber struct {
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("probe request: %w", ErrMalformedResponse)
	}
	req.Header.Set("User-Agent", utils.GetEnv("USER_AGENT"))

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &statusError{code: resp.StatusCode}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

func (e *statusError) temporary() bool {
	return e.code == http.StatusRequestTimeout ||
		e.code == http.StatusTooManyRequests ||
		e.code >= 500
}

// isRetryable classifies a probe failure: confirmed stream absence,
// structurally invalid responses and hard HTTP statuses short-circuit the
// attempt budget; everything else is transient.
func isRetryable(err error) bool {
	if errors.Is(err, ErrNoVideoStream) || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.temporary()
	}
	return true
}
