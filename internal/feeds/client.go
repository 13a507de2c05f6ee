package feeds

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/config"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Client refreshes the local data files (gender roster, evolution map)
// from their upstream feeds. The catalog loader only ever reads the
// local files; a refresh just rewrites them, which bumps the mtime
// signature the loader watches.
type Client struct {
	client *fasthttp.Client
	logger zerolog.Logger

	genderURL  string
	genderPath string
	evoURL     string
	evoPath    string
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         15 * time.Second,
			WriteTimeout:        15 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger:     logger.With().Str("component", "feeds").Logger(),
		genderURL:  cfg.GenderFeedURL,
		genderPath: cfg.GenderPath,
		evoURL:     cfg.EvolutionFeedURL,
		evoPath:    cfg.EvolutionPath,
	}
}

// Refresh downloads every configured feed. Feeds without a URL are
// assumed to be operator-maintained local files and left alone.
func (c *Client) Refresh(ctx context.Context) {
	if c.genderURL != "" {
		if err := c.fetchToFile(ctx, c.genderURL, c.genderPath); err != nil {
			c.logger.Error().Err(err).Str("url", c.genderURL).Msg("gender roster refresh failed")
		}
	}
	if c.evoURL != "" {
		if err := c.fetchToFile(ctx, c.evoURL, c.evoPath); err != nil {
			c.logger.Error().Err(err).Str("url", c.evoURL).Msg("evolution map refresh failed")
		}
	}
}

// fetchToFile writes via a temp file and rename so catalog readers
// never observe a half-written file.
func (c *Client) fetchToFile(ctx context.Context, url, path string) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	var err error
	if ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("feed returned status %d", resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return fmt.Errorf("feed returned empty body")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}

	c.logger.Info().Str("path", path).Int("bytes", len(body)).Msg("feed refreshed")
	return nil
}
