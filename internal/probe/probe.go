// Package probe implements the external IP reputation client.
//
// The upstream service answers whether an IP is associated with anonymizing
// infrastructure (VPN, proxy, Tor, relay). The probe is consumed by the
// classification pipeline, which treats every failure here as a reason to
// fail closed; no error from this package may cross into the pipeline as a
// panic or a hang.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single probe call. Exceeding it is a probe
// failure, never a hang.
const DefaultTimeout = 3 * time.Second

// maxResponseBytes caps how much of the upstream response is read.
const maxResponseBytes = 1 << 16

// Client probes an HTTP reputation service for a single IP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a reputation probe client. baseURL is the service
// endpoint; the probed IP is appended as a path segment and the API key
// passed as a query parameter, the vpnapi.io convention.
func NewClient(baseURL, apiKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// securityReport is the relevant part of the upstream response.
type securityReport struct {
	Security struct {
		VPN   bool `json:"vpn"`
		Proxy bool `json:"proxy"`
		Tor   bool `json:"tor"`
		Relay bool `json:"relay"`
	} `json:"security"`
}

// Probe reports whether the IP is flagged by the reputation service.
// Timeouts, transport errors, non-2xx statuses and malformed responses are
// all returned as errors; the caller decides the fallback.
func (c *Client) Probe(ctx context.Context, ip string) (bool, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false, fmt.Errorf("invalid probe URL: %w", err)
	}
	u = u.JoinPath(ip)
	if c.apiKey != "" {
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, fmt.Errorf("building probe request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("reputation probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("reputation probe: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, fmt.Errorf("reading probe response: %w", err)
	}

	var report securityReport
	if err := json.Unmarshal(body, &report); err != nil {
		return false, fmt.Errorf("malformed probe response: %w", err)
	}

	flagged := report.Security.VPN || report.Security.Proxy || report.Security.Tor || report.Security.Relay
	if c.logger != nil {
		c.logger.Debug("reputation_probe", "ip", ip, "flagged", flagged)
	}
	return flagged, nil
}
