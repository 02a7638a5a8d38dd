package webservices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/acis-toolkit/internal/acis"
	"github.com/i474232898/acis-toolkit/internal/common"
)

// DefaultBaseURL is the public ACIS web services endpoint.
const DefaultBaseURL = "https://data.rcc-acis.org"

var htmlMessage = regexp.MustCompile(`<html>[\s\S]*<p>([\s\S]*)</p>`)

// Config configures a Client. Zero values get defaults.
type Config struct {
	BaseURL   string
	Client    *http.Client
	Backoff   BackoffConfig
	RateLimit rate.Limit
	RateBurst int
	Logger    logrus.FieldLogger
	Metrics   *Metrics
}

// Client executes ACIS web services calls. It implements acis.Caller and
// acis.StreamCaller.
type Client struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  logrus.FieldLogger
	metrics *Metrics
}

var (
	_ acis.Caller       = (*Client)(nil)
	_ acis.StreamCaller = (*Client)(nil)
)

// NewClient creates a Client with a circuit breaker and an optional rate
// limiter.
func NewClient(cfg Config) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "acis",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Logger = l
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client:  cfg.Client,
			Backoff: cfg.Backoff,
			Limiter: limiter,
		},
		circuit: cb,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Submit executes a JSON call and decodes the result object. Numbers are
// kept as json.Number.
func (c *Client) Submit(ctx context.Context, call string, params acis.Params) (map[string]any, error) {
	start := time.Now()
	resp, log, err := c.post(ctx, call, params)
	if err != nil {
		c.metrics.observe(call, start, err)
		return nil, err
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var result map[string]any
	if err := dec.Decode(&result); err != nil || result == nil {
		err = &acis.ResultError{Message: "server returned invalid JSON"}
		c.metrics.observe(call, start, err)
		log.WithError(err).Warn("acis call failed")
		return nil, err
	}
	c.metrics.observe(call, start, nil)
	log.WithField("duration", time.Since(start)).Debug("acis call done")
	return result, nil
}

// SubmitStream executes a call with non-JSON output (e.g. "output": "csv")
// and returns the open response body.
func (c *Client) SubmitStream(ctx context.Context, call string, params acis.Params) (io.ReadCloser, error) {
	start := time.Now()
	resp, log, err := c.post(ctx, call, params)
	c.metrics.observe(call, start, err)
	if err != nil {
		return nil, err
	}
	log.Debug("acis stream opened")
	return resp.Body, nil
}

// post sends params as the form value "params" and maps rejections to
// acis.RequestError.
func (c *Client) post(ctx context.Context, call string, params acis.Params) (*http.Response, logrus.FieldLogger, error) {
	requestID := uuid.NewString()
	log := c.logger.WithFields(logrus.Fields{
		"call":       call,
		"request_id": requestID,
	})

	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, log, fmt.Errorf("encode params: %w", err)
	}
	body := url.Values{"params": {string(encoded)}}.Encode()
	endpoint := c.baseURL + "/" + strings.TrimLeft(call, "/")

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewBufferString(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Request-ID", requestID)
		return req, nil
	}

	log.Debug("acis call")
	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		log.WithError(err).Warn("acis call failed")
		return nil, log, fmt.Errorf("%s call: %w", call, err)
	}

	if resp.StatusCode == http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		reqErr := &acis.RequestError{StatusCode: resp.StatusCode, Message: errorMessage(string(raw))}
		log.WithError(reqErr).Warn("acis rejected request")
		return nil, log, reqErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drainAndClose(resp.Body)
		err := fmt.Errorf("%s call: %w: %d", call, errUnexpected, resp.StatusCode)
		log.WithError(err).Warn("acis call failed")
		return nil, log, err
	}
	return resp, log, nil
}

// errorMessage extracts the text of an HTML error page, or returns a plain
// text body trimmed.
func errorMessage(body string) string {
	if common.HasAny(strings.ToLower(body), "<html>", "<p>") {
		if m := htmlMessage.FindStringSubmatch(body); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return strings.TrimSpace(body)
}
