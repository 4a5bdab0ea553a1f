// Package artifact makes sure startup artifacts exist on local disk, fetching
// missing ones from a blob store by identifier.
package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Resolver fetches missing files from <baseURL>&id=<remoteID>.
type Resolver struct {
	baseURL string
	rest    *resty.Client
}

func NewResolver(baseURL string, timeout time.Duration) *Resolver {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Minute)
	}
	return &Resolver{baseURL: baseURL, rest: r}
}

// Ensure reports whether path is present on disk afterwards. When the file is
// missing and remoteID is set, one download is attempted. Failures are logged
// and reported as false; there is no retry.
func (r *Resolver) Ensure(ctx context.Context, path, remoteID string) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	}
	if remoteID == "" || r == nil || r.baseURL == "" {
		return false
	}

	log.Info().Str("path", path).Str("id", remoteID).Msg("Downloading missing artifact")
	start := time.Now()

	n, err := r.download(ctx, path, remoteID)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Artifact download failed")
		return false
	}

	log.Info().
		Str("path", path).
		Int64("bytes", n).
		Dur("took", time.Since(start)).
		Msg("Artifact downloaded")
	return true
}

func (r *Resolver) download(ctx context.Context, path, remoteID string) (int64, error) {
	resp, err := r.rest.R().
		SetContext(ctx).
		SetQueryParam("id", remoteID).
		SetDoNotParseResponse(true).
		Get(r.baseURL)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	// An HTML body is an interstitial page, not the artifact.
	if strings.HasPrefix(resp.Header().Get("Content-Type"), "text/html") {
		return 0, fmt.Errorf("blob store returned an HTML page for id %s", remoteID)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if n == 0 {
		return 0, fmt.Errorf("empty response for id %s", remoteID)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("rename: %w", err)
	}
	return n, nil
}
