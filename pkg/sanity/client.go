// Package sanity reads blog content from the Sanity HTTP query API and caches
// query results in memory.
package sanity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/dmitrymomot/seoscope/pkg/logger"
)

// Client runs GROQ queries.
type Client struct {
	cfg   Config
	http  *http.Client
	cache *cache.Cache
	log   *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// New creates a client. A non-positive CacheTTL disables caching.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger.Discard(),
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error,omitempty"`
}

// Query runs a GROQ query with params and decodes the result into out.
// Params are passed as $name variables.
func (c *Client) Query(ctx context.Context, groq string, params map[string]any, out any) error {
	if !c.cfg.Enabled() {
		return ErrDisabled
	}

	q := url.Values{"query": {groq}}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := json.Marshal(params[k])
		if err != nil {
			return errors.Join(ErrQuery, err)
		}
		q.Set("$"+k, string(v))
	}
	rawURL := c.cfg.endpoint() + "?" + q.Encode()

	if c.cache != nil {
		if hit, ok := c.cache.Get(rawURL); ok {
			return json.Unmarshal(hit.([]byte), out)
		}
	}

	result, err := c.fetch(ctx, rawURL)
	if err != nil {
		c.log.WarnContext(ctx, "sanity query failed", logger.Component("sanity"), logger.Error(err))
		return err
	}
	if c.cache != nil {
		c.cache.SetDefault(rawURL, []byte(result))
	}
	return json.Unmarshal(result, out)
}

func (c *Client) fetch(ctx context.Context, rawURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, errors.Join(ErrQuery, fmt.Errorf("status %d: %w", resp.StatusCode, err))
	}
	if qr.Error != nil {
		return nil, errors.Join(ErrQuery, fmt.Errorf("%s: %s", qr.Error.Type, qr.Error.Description))
	}
	if resp.StatusCode >= 300 {
		return nil, errors.Join(ErrQuery, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if len(qr.Result) == 0 || strings.TrimSpace(string(qr.Result)) == "null" {
		return json.RawMessage("null"), nil
	}
	return qr.Result, nil
}
