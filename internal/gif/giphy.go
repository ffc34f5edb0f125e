// Package gif finds a decorative GIF for a transfer keyword.
package gif

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.giphy.com/v1/gifs/search"
	FallbackURL    = "https://metro.co.uk/wp-content/uploads/2015/05/pokemon_crying.gif?quality=90&strip=all&zoom=1&resize=500%2C284"

	urlPath = "data.0.images.downsized_medium.url"
)

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	mu    sync.Mutex
	cache map[string]string

	logger zerolog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRate limits outgoing lookups to perSecond with the given burst.
func WithRate(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(4), 4),
		cache:   make(map[string]string),
		logger:  log.With().Str("component", "gif").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the URL of the first GIF matching keyword. Spaces are
// removed from the keyword. An empty keyword yields "" and any failure
// yields FallbackURL.
func (c *Client) Lookup(ctx context.Context, keyword string) string {
	query := strings.ReplaceAll(keyword, " ", "")
	if query == "" {
		return ""
	}

	c.mu.Lock()
	cached, ok := c.cache[query]
	c.mu.Unlock()
	if ok {
		return cached
	}

	gifURL, err := c.search(ctx, query)
	if err != nil {
		c.logger.Debug().Err(err).Str("keyword", query).Msg("GIF lookup failed")
		return FallbackURL
	}

	c.mu.Lock()
	c.cache[query] = gifURL
	c.mu.Unlock()
	return gifURL
}

func (c *Client) search(ctx context.Context, query string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("q", query)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("giphy returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	result := gjson.GetBytes(body, urlPath)
	if !result.Exists() || result.String() == "" {
		return "", fmt.Errorf("no gif for %q", query)
	}
	return result.String(), nil
}
