package doublerecord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/recordupdate/internal/breaker"
	"github.com/roach88/recordupdate/internal/marc"
)

// DefaultTimeout bounds one request to the double record service.
const DefaultTimeout = 30 * time.Second

// Client calls a remote double record service:
//
//	POST {base}/doublerecord/frontend  -> Verdict
//	POST {base}/doublerecord/check
//
// Both take the record as JSON.
type Client struct {
	base    string
	http    *http.Client
	breaker *breaker.Breaker
}

// NewClient creates a Client. A nil httpClient uses DefaultTimeout.
func NewClient(base string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		http:    httpClient,
		breaker: breaker.New(breaker.DefaultConfig("doublerecord"), logger),
	}
}

// Frontend implements Checker.
func (c *Client) Frontend(ctx context.Context, rec *marc.Record) (Verdict, error) {
	return breaker.Do(c.breaker, func() (Verdict, error) {
		var v Verdict
		body, err := c.post(ctx, "/doublerecord/frontend", rec)
		if err != nil {
			return v, err
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return v, fmt.Errorf("double record frontend %s: decode response: %w", rec.ID(), err)
		}
		return v, nil
	})
}

// Notify implements Checker.
func (c *Client) Notify(ctx context.Context, rec *marc.Record) error {
	_, err := breaker.Do(c.breaker, func() ([]byte, error) {
		return c.post(ctx, "/doublerecord/check", rec)
	})
	return err
}

func (c *Client) post(ctx context.Context, path string, rec *marc.Record) ([]byte, error) {
	payload, err := marc.Encode(rec)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("double record %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("double record %s: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("double record %s: read response: %w", path, err)
	}
	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("double record %s: service returned %s", path, res.Status)
	}
	return body, nil
}
