// Package dataforseo is the metered proxy to the DataForSEO API.
//
// Every call names the usage category it consumes and a weight. A positive
// weight runs the usage gate first and a denial returns *QuotaExceededError
// without touching the network. Calls are never retried.
package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/quota"
)

// Outcome labels the terminal state of a proxied call.
type Outcome string

const (
	OutcomeConfigMissing  Outcome = "config_missing"
	OutcomeQuotaDenied    Outcome = "quota_denied"
	OutcomeQuotaError     Outcome = "quota_error"
	OutcomeSuccess        Outcome = "success"
	OutcomeProviderError  Outcome = "provider_error"
	OutcomeTransportError Outcome = "transport_error"
)

const maxResponseSize = 32 << 20

// Gate admits metered calls.
type Gate interface {
	CheckAndIncrementBy(ctx context.Context, userID uuid.UUID, category quota.Category, n int64) (quota.Decision, error)
}

// Observer receives one event per call.
type Observer interface {
	ProviderCall(endpoint, outcome string, took time.Duration)
}

// Usage is what a call costs. A zero Weight skips the gate.
type Usage struct {
	Category quota.Category
	Weight   int64
}

// Free is the Usage of calls that are not metered.
var Free = Usage{}

type Client struct {
	cfg      Config
	gate     Gate
	http     *http.Client
	log      *slog.Logger
	observer Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func New(cfg Config, gate Gate, opts ...Option) *Client {
	c := &Client{
		cfg:  cfg,
		gate: gate,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post sends [payload] to path on behalf of userID.
func (c *Client) Post(ctx context.Context, userID uuid.UUID, path string, payload any, usage Usage) (*Response, error) {
	if !c.cfg.complete() {
		c.finish(ctx, path, OutcomeConfigMissing, 0, ErrConfigurationMissing)
		return nil, ErrConfigurationMissing
	}

	if usage.Weight > 0 {
		d, err := c.gate.CheckAndIncrementBy(ctx, userID, usage.Category, usage.Weight)
		if err != nil {
			c.finish(ctx, path, OutcomeQuotaError, 0, err)
			return nil, err
		}
		if !d.Allowed {
			qerr := &QuotaExceededError{Decision: d}
			c.finish(ctx, path, OutcomeQuotaDenied, 0, qerr)
			return nil, qerr
		}
	}

	body, err := json.Marshal([]any{payload})
	if err != nil {
		return nil, fmt.Errorf("dataforseo: encode payload: %w", err)
	}

	url := strings.TrimRight(c.cfg.URL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		terr := &TransportError{Endpoint: path, Err: err}
		c.finish(ctx, path, OutcomeTransportError, 0, terr)
		return nil, terr
	}
	req.Header.Set("Authorization", "Basic "+c.cfg.Password)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		terr := &TransportError{Endpoint: path, Err: err}
		c.finish(ctx, path, OutcomeTransportError, time.Since(start), terr)
		return nil, terr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	took := time.Since(start)
	if err != nil {
		terr := &TransportError{Endpoint: path, Err: err}
		c.finish(ctx, path, OutcomeTransportError, took, terr)
		return nil, terr
	}

	var env Response
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &ProviderError{Endpoint: path, HTTPStatus: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if decodeErr == nil && env.StatusMessage != "" {
			perr.StatusCode = env.StatusCode
			perr.Message = env.StatusMessage
		}
		c.finish(ctx, path, OutcomeProviderError, took, perr)
		return nil, perr
	}
	if decodeErr != nil {
		perr := &ProviderError{Endpoint: path, HTTPStatus: resp.StatusCode, Message: "malformed response body"}
		c.finish(ctx, path, OutcomeProviderError, took, errors.Join(perr, decodeErr))
		return nil, perr
	}
	if perr := env.failure(path, resp.StatusCode); perr != nil {
		c.finish(ctx, path, OutcomeProviderError, took, perr)
		return nil, perr
	}

	c.finish(ctx, path, OutcomeSuccess, took, nil)
	return &env, nil
}

func (c *Client) finish(ctx context.Context, path string, outcome Outcome, took time.Duration, err error) {
	if c.observer != nil {
		c.observer.ProviderCall(path, string(outcome), took)
	}
	attrs := []any{logger.Endpoint(path), slog.String("outcome", string(outcome)), logger.Duration(took)}
	switch outcome {
	case OutcomeSuccess:
		c.log.DebugContext(ctx, "provider call finished", attrs...)
	case OutcomeQuotaDenied:
		c.log.InfoContext(ctx, "provider call blocked by quota", attrs...)
	default:
		c.log.ErrorContext(ctx, "provider call failed", append(attrs, logger.Error(err))...)
	}
}
