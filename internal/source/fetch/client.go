// Package fetch is the single way resolvers talk to the outside world. Every
// call is bounded by a per-attempt timeout, honours ctx, retries transient
// failures with exponential backoff and maps failures onto domain errors.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"content_resolver/internal/domain"
)

// DefaultMaxBodyBytes bounds a response body when Config.MaxBodyBytes is unset.
const DefaultMaxBodyBytes int64 = 10 << 20

// maxErrorBody bounds the body kept on a StatusError.
const maxErrorBody = 64 << 10

// ErrBodyTooLarge is returned when a textual response exceeds the configured
// limit. It matches domain.ErrUpstreamUnavailable and is not retried.
var ErrBodyTooLarge = fmt.Errorf("response body too large: %w", domain.ErrUpstreamUnavailable)

type Config struct {
	Timeout        time.Duration
	UserAgent      string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxBodyBytes   int64
}

// Document is a fetched resource. URL is the address after redirects. Body
// is nil for media and other binary documents, which are described by their
// headers only.
type Document struct {
	URL         string
	ContentType string
	Body        []byte
}

// StatusError is returned for non-success responses that are not mapped to
// domain.ErrNotFound. It matches domain.ErrUpstreamUnavailable.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrUpstreamUnavailable
}

type Client struct {
	http           *resty.Client
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxBodyBytes   int64
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("User-Agent", cfg.UserAgent)

	return &Client{
		http:           client,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		maxBodyBytes:   cfg.MaxBodyBytes,
		logger:         logger,
	}
}

// GetJSON fetches rawURL and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query map[string]string, out any) error {
	doc, err := c.get(ctx, rawURL, query, "application/json", false)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(doc.Body, out); err != nil {
		return fmt.Errorf("decode response: %w: %w", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// GetDocument fetches rawURL and returns the raw body. Bodies of non-textual
// content types are not downloaded.
func (c *Client) GetDocument(ctx context.Context, rawURL string) (*Document, error) {
	return c.get(ctx, rawURL, nil, "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8", true)
}

func (c *Client) get(ctx context.Context, rawURL string, query map[string]string, accept string, skipBinary bool) (*Document, error) {
	var doc *Document
	var err error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		doc, err = c.doRequest(ctx, rawURL, query, accept, skipBinary)
		if err == nil || !retryable(err) {
			return doc, err
		}

		if attempt == c.maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("request failed, retrying",
			"url", rawURL,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, mapTransportError(ctx, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.maxAttempts, err)
}

func (c *Client) doRequest(ctx context.Context, rawURL string, query map[string]string, accept string, skipBinary bool) (*Document, error) {
	req := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", accept)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(rawURL)
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}
	body := resp.RawBody()
	defer body.Close()

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound || code == http.StatusGone:
		return nil, fmt.Errorf("%s: %w", rawURL, domain.ErrNotFound)
	case code < 200 || code > 299:
		data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		return nil, &StatusError{StatusCode: code, Body: data}
	}

	doc := &Document{
		URL:         rawURL,
		ContentType: resp.Header().Get("Content-Type"),
	}
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		doc.URL = resp.RawResponse.Request.URL.String()
	}
	if skipBinary && !isTextual(doc.ContentType) {
		return doc, nil
	}

	data, err := io.ReadAll(io.LimitReader(body, c.maxBodyBytes+1))
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}
	if int64(len(data)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%s: over %d bytes: %w", rawURL, c.maxBodyBytes, ErrBodyTooLarge)
	}
	doc.Body = data
	return doc, nil
}

func mapTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("execute request: %w", ctx.Err())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("execute request: %w: %w", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("execute request: %w: %w", domain.ErrUpstreamUnavailable, err)
}

// retryable reports whether another attempt may succeed. Caller
// cancellation, expired deadlines and definite answers are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrNotFound) || errors.Is(err, ErrBodyTooLarge) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode == http.StatusRequestTimeout
	}
	return errors.Is(err, domain.ErrUpstreamUnavailable)
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

// IsHTML reports whether a content type header denotes an HTML page.
// A missing header is treated as HTML.
func IsHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// isTextual reports whether a body of this content type is worth reading.
// A missing header counts as textual.
func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	for _, marker := range []string{"json", "xml", "javascript", "html"} {
		if strings.Contains(mediaType, marker) {
			return true
		}
	}
	return false
}
