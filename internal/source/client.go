// Package source pulls survey submissions from the remote collection API.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sahan-field/surveyqc/internal/config"
	"github.com/sahan-field/surveyqc/internal/dataset"
)

// Client fetches submission exports over HTTP with retry and rate limiting.
type Client struct {
	http       *http.Client
	url        string
	token      string
	maxRetries int
	limiter    *rate.Limiter

	// backoffBase scales the retry delays; tests shrink it.
	backoffBase time.Duration
}

// NewClient builds a client from the source configuration.
func NewClient(cfg config.SourceConfig) *Client {
	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		url:         cfg.URL,
		token:       cfg.Token,
		maxRetries:  maxRetries,
		limiter:     rate.NewLimiter(1, 2),
		backoffBase: time.Second,
	}
}

// Fetch pulls the full submission export and returns it as a table. The API
// returns a JSON array of flat-ish objects; nested values are flattened to
// strings so the table stays uniform. Columns are the union of keys across
// records, in first-seen order.
func (c *Client) Fetch(ctx context.Context) (*dataset.Table, error) {
	if c.url == "" {
		return nil, eris.New("source: no API URL configured")
	}

	body, err := c.get(ctx, c.url)
	if err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		// Some deployments wrap the array in a results envelope.
		var envelope struct {
			Results []map[string]any `json:"results"`
		}
		if err2 := json.Unmarshal(body, &envelope); err2 != nil || envelope.Results == nil {
			return nil, eris.Wrap(err, "source: decode response")
		}
		raw = envelope.Results
	}

	t := tableFromObjects(raw)
	zap.L().Info("source: fetched submissions",
		zap.Int("records", t.Len()),
		zap.Int("columns", len(t.Columns)),
	)
	return t, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "source: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, eris.Wrap(err, "source: create request")
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Token "+c.token)
		}

		body, retryable, err := c.do(req)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		zap.L().Warn("source: request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		c.backoff(ctx, attempt)
	}
	return nil, eris.Wrap(lastErr, "source: all retries exhausted")
}

func (c *Client) do(req *http.Request) (body []byte, retryable bool, err error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, eris.Wrap(err, "source: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, eris.Errorf("source: unexpected status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, eris.Wrap(err, "source: read body")
	}
	return b, false, nil
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	base := c.backoffBase
	maxBackoff := 30 * base
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int63n(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// tableFromObjects flattens decoded JSON objects into a string table. Scalars
// stringify via cast; nested arrays and objects re-serialize as compact JSON
// so no information is dropped. Null and absent both map to the empty cell.
func tableFromObjects(objects []map[string]any) *dataset.Table {
	t := &dataset.Table{}
	seen := make(map[string]bool)

	for _, obj := range objects {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}

		rec := make(dataset.Record, len(obj))
		for k, v := range obj {
			rec[k] = cellValue(v)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

func cellValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, float64, int, int64:
		return cast.ToString(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
