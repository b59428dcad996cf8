// Package practicum talks to the homework status API.
package practicum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	logx "hwbot/pkg/logx"
)

const (
	DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

	maxBodyBytes = 4 << 20
)

type Config struct {
	Endpoint string
	Token    string
	// Timeout bounds a single request. 0 means 15s.
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client issues one GET per Fetch call and never retries; retrying is the
// poll loop's job.
type Client struct {
	endpoint *url.URL
	token    string
	http     *http.Client
	log      logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("practicum token is empty")
	}
	raw := strings.TrimSpace(cfg.Endpoint)
	if raw == "" {
		raw = DefaultEndpoint
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("practicum endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("practicum endpoint: unsupported scheme %q", u.Scheme)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{endpoint: u, token: cfg.Token, http: hc, log: log}, nil
}

// Fetch requests statuses changed since the given unix timestamp and returns
// the decoded JSON body. Numbers are decoded as json.Number.
func (c *Client) Fetch(ctx context.Context, since int64) (any, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(since, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, &FetchError{Kind: KindUnreachable, Err: err}
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		// Drain a little so keep-alive connections can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{Kind: KindUnreachable, StatusCode: resp.StatusCode}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, &FetchError{Kind: KindMalformed, StatusCode: resp.StatusCode, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &FetchError{Kind: KindMalformed, StatusCode: resp.StatusCode, Err: errors.New("trailing data after JSON value")}
	}

	c.log.Debug("statuses fetched",
		logx.Int64("from_date", since),
		logx.Int("http", resp.StatusCode),
		logx.Duration("took", time.Since(start)),
	)
	return payload, nil
}
