package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/recordupdate/internal/breaker"
)

// DefaultTimeout bounds one search request.
const DefaultTimeout = 10 * time.Second

// Client queries a Solr-style search service:
//
//	GET {base}/select?q={query}&wt=json
type Client struct {
	base    string
	http    *http.Client
	breaker *breaker.Breaker
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// WithBreaker sets the circuit breaker guarding requests.
func WithBreaker(b *breaker.Breaker) ClientOption {
	return func(cl *Client) { cl.breaker = b }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a Client for the service at base.
func NewClient(base string, opts ...ClientOption) *Client {
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = breaker.New(breaker.DefaultConfig("search"), c.logger)
	}
	return c
}

type selectResponse struct {
	Response *struct {
		NumFound int64            `json:"numFound"`
		Docs     []map[string]any `json:"docs"`
	} `json:"response"`
	Error *struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error"`
}

// HasDocuments implements Index.
func (c *Client) HasDocuments(ctx context.Context, q Query) (bool, error) {
	resp, err := c.query(ctx, q)
	if err != nil {
		return false, err
	}
	return resp.Response.NumFound > 0, nil
}

// OwnerOf implements Index.
func (c *Client) OwnerOf(ctx context.Context, q Query) (string, error) {
	resp, err := c.query(ctx, q)
	if err != nil {
		return "", err
	}
	for _, doc := range resp.Response.Docs {
		values, ok := doc["marc.001a"].([]any)
		if !ok || len(values) == 0 {
			continue
		}
		if s, ok := values[0].(string); ok {
			return s, nil
		}
	}
	return "", nil
}

func (c *Client) query(ctx context.Context, q Query) (*selectResponse, error) {
	u := fmt.Sprintf("%s/select?q=%s&wt=json", c.base, url.QueryEscape(q.String()))
	c.logger.DebugContext(ctx, "search query", "query", q.String(), "url", u)

	return breaker.Do(c.breaker, func() (*selectResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", q, err)
		}
		req.Header.Set("Accept", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", q, err)
		}
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("search %s: read response: %w", q, err)
		}
		var out selectResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("search %s: decode response: %w", q, err)
		}
		if res.StatusCode != http.StatusOK || out.Response == nil {
			if out.Error != nil {
				return nil, fmt.Errorf("search %s: service returned error %d: %s", q, out.Error.Code, out.Error.Msg)
			}
			return nil, fmt.Errorf("search %s: %w", q, errors.New(res.Status))
		}
		return &out, nil
	})
}
