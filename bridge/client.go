package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"
)

const contentTypeJSON = "application/json"

// DefaultTimeout bounds a whole call when no other timeout is configured.
const DefaultTimeout = 30 * time.Second

// Client performs bridge calls. It is safe for concurrent use and keeps no
// per-call state.
type Client struct {
	httpClient *http.Client
	codec      Codec
	logger     *slog.Logger
	header     http.Header
	timeout    time.Duration
}

// Option configures New.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout applies to each call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each call, including reading the response body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCodec replaces the JSON codec.
func WithCodec(codec Codec) Option {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithLogger logs each call at debug level and failures at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHeader adds a header to every request. Accept and Content-Type cannot
// be overridden.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Add(key, value)
	}
}

// New returns a Client using a JSONCodec and an http.Client with
// DefaultTimeout.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		codec:      JSONCodec{},
		logger:     slog.New(slog.DiscardHandler),
		header:     make(http.Header),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SendJSON POSTs body, which must already be JSON, to rawURL and returns the
// response body as text once it has been read in full.
func (c *Client) SendJSON(ctx context.Context, rawURL string, body []byte) (string, error) {
	safeURL := redactURL(rawURL)
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return "", c.fail(&NetworkError{Op: "build request", URL: safeURL, Err: err})
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("Content-Type", contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.fail(&NetworkError{Op: "POST", URL: safeURL, Err: unwrapURLError(err)})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.fail(&NetworkError{Op: "read body", URL: safeURL, Err: err})
	}
	if !utf8.Valid(data) {
		return "", c.fail(&DecodeError{Err: errors.New("response body is not valid UTF-8 text")})
	}

	c.logger.DebugContext(ctx, "bridge: call finished",
		"url", safeURL,
		"status", resp.StatusCode,
		"bytes", len(data),
		"dur", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.fail(&StatusError{URL: safeURL, StatusCode: resp.StatusCode, Body: string(data)})
	}
	return string(data), nil
}

// Send encodes req, POSTs it to rawURL and decodes the response into a new
// Resp. On any failure the zero Resp is returned, never a partially decoded
// value.
func Send[Req, Resp any](ctx context.Context, c *Client, rawURL string, req Req) (Resp, error) {
	var zero Resp

	body, err := c.codec.Marshal(req)
	if err != nil {
		return zero, c.fail(&EncodeError{Err: err})
	}

	text, err := c.SendJSON(ctx, rawURL, body)
	if err != nil {
		return zero, err
	}

	var out Resp
	if err := c.codec.Unmarshal([]byte(text), &out); err != nil {
		return zero, c.fail(&DecodeError{Err: err})
	}
	return out, nil
}

func (c *Client) fail(err error) error {
	c.logger.Warn("bridge: call failed", "error", err.Error())
	return err
}

// unwrapURLError drops the *url.Error layer added by http.Client, which
// repeats the unredacted URL.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
