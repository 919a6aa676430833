package connect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Service defaults.
const (
	DefaultConnectURL    = "https://connect.garmin.com"
	DefaultSSOURL        = "https://sso.garmin.com"
	DefaultTimeout       = 30 * time.Second
	DefaultDuplicateCode = 202
	DefaultUserAgent     = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:48.0) Gecko/20100101 Firefox/50.0"
)

// maxErrorBody caps how much of an error response body is kept for messages.
const maxErrorBody = 4096

// MutationStyle selects the payload encoding used by rename/retype calls.
// The service has switched between the two over time.
type MutationStyle string

// Mutation styles.
const (
	MutationForm MutationStyle = "form"
	MutationJSON MutationStyle = "json"
)

// Options configures a Client. Zero values select the defaults above.
type Options struct {
	ConnectURL    string
	SSOURL        string
	Timeout       time.Duration
	UserAgent     string
	DuplicateCode int
	MutationStyle MutationStyle

	// Transport overrides the HTTP transport. Tests leave it nil.
	Transport http.RoundTripper
}

// Client is the cookie-bearing HTTP session carrier. All requests share one
// cookie jar, so cookies collected during Authenticate make later calls
// authenticated. A Client is not safe for concurrent batches.
type Client struct {
	connectURL    *url.URL
	ssoURL        *url.URL
	httpClient    *http.Client
	userAgent     string
	duplicateCode int
	mutationStyle MutationStyle
	logger        *slog.Logger
}

// NewClient creates a Client with an empty cookie jar.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connectURL, err := parseBaseURL(opts.ConnectURL, DefaultConnectURL)
	if err != nil {
		return nil, fmt.Errorf("connect: connect URL: %w", err)
	}

	ssoURL, err := parseBaseURL(opts.SSOURL, DefaultSSOURL)
	if err != nil {
		return nil, fmt.Errorf("connect: SSO URL: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("connect: creating cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		connectURL:    connectURL,
		ssoURL:        ssoURL,
		httpClient:    &http.Client{Jar: jar, Timeout: timeout, Transport: opts.Transport},
		userAgent:     opts.UserAgent,
		duplicateCode: opts.DuplicateCode,
		mutationStyle: opts.MutationStyle,
		logger:        logger,
	}

	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}

	if c.duplicateCode == 0 {
		c.duplicateCode = DefaultDuplicateCode
	}

	if c.mutationStyle == "" {
		c.mutationStyle = MutationForm
	}

	return c, nil
}

func parseBaseURL(raw, fallback string) (*url.URL, error) {
	if raw == "" {
		raw = fallback
	}

	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}

	return u, nil
}

// connectEndpoint returns the absolute URL for a Connect path.
func (c *Client) connectEndpoint(path string) string {
	return c.connectURL.String() + path
}

// ssoEndpoint returns the absolute URL for an SSO path.
func (c *Client) ssoEndpoint(path string) string {
	return c.ssoURL.String() + path
}

// newRequest builds a request carrying the browser User-Agent.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

// do executes a single request. There is no retry: the service penalizes
// bursts and every mutating call must happen at most once.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, fmt.Errorf("connect: request canceled: %w", ctxErr)
		}

		c.logger.Debug("request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("connect: %s %s: %w", req.Method, req.URL.Path, err)
	}

	c.logger.Debug("request completed",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	return resp, nil
}

// readBody reads and closes a response body.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("connect: reading response body: %w", err)
	}

	return body, nil
}

// statusError converts a non-2xx response into an *HTTPError and closes the body.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best-effort read for error message
	resp.Body.Close()

	return &HTTPError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		Err:        classifyStatus(resp.StatusCode),
	}
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

// getJSON performs a GET and decodes a 2xx JSON body into v.
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	return c.sendDecode(req, v)
}

// hasCookie reports whether the jar holds a cookie named name for rawURL.
func (c *Client) hasCookie(rawURL, name string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name == name && ck.Value != "" {
			return true
		}
	}

	return false
}

// errEmptyField is used as a cause when a JSON field the handshake depends on is blank.
var errEmptyField = errors.New("required field is empty")
