package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"

	"github.com/nhle/ghnotify/internal/source"
)

const (
	defaultHost         = "github.com"
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 2
	defaultMaxRetryWait = 10 * time.Second
)

// Options configures a Client.
type Options struct {
	// Host is the GitHub hostname; defaults to github.com.
	Host string

	// BaseURL overrides the REST root derived from Host.
	BaseURL string

	Token     string
	Timeout   time.Duration
	Transport http.RoundTripper

	// PageSize is the per_page used when listing notifications.
	PageSize int
}

// Client is a thin wrapper over the go-gh REST client. It maps HTTP
// failures onto the source error taxonomy and retries short 429 waits.
type Client struct {
	baseURL      string
	rest         *api.RESTClient
	maxRetries   int
	maxRetryWait time.Duration
}

// NewClient creates a GitHub REST client authenticated with opts.Token.
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, source.ErrNoCredential
	}
	if opts.Host == "" {
		opts.Host = defaultHost
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}

	rest, err := api.NewRESTClient(api.ClientOptions{
		Host:      opts.Host,
		AuthToken: opts.Token,
		Headers: map[string]string{
			"Authorization":        "Bearer " + opts.Token,
			"Accept":               "application/vnd.github+json",
			"X-GitHub-Api-Version": "2022-11-28",
		},
		Timeout:   opts.Timeout,
		Transport: opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("creating REST client: %w", err)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = restBaseURL(opts.Host)
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/") + "/",
		rest:         rest,
		maxRetries:   defaultMaxRetries,
		maxRetryWait: defaultMaxRetryWait,
	}, nil
}

// restBaseURL mirrors how GitHub lays out REST roots for github.com and
// Enterprise Server hosts.
func restBaseURL(host string) string {
	if host == defaultHost || host == "api.github.com" {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", host)
}

// url resolves an API path or absolute URL against the base URL.
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + strings.TrimLeft(path, "/")
}

// Get performs a GET and unmarshals the JSON response into result.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeBody(resp, http.MethodGet, path, result)
}

// Patch performs a PATCH and discards the response body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) error {
	resp, err := c.do(ctx, http.MethodPatch, path, body)
	if err != nil {
		return err
	}
	return drainBody(resp)
}

// Put performs a PUT and discards the response body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) error {
	resp, err := c.do(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	return drainBody(resp)
}

// do builds and sends the request, mapping failures onto the source error
// taxonomy. Short 429 waits are retried; the caller owns resp.Body.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
) (*http.Response, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	op := method + " " + path
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		resp, err := c.rest.RequestWithContext(ctx, method, c.url(path), bodyReader)
		if err == nil {
			return resp, nil
		}

		var httpErr *api.HTTPError
		if !errors.As(err, &httpErr) {
			return nil, &source.NetworkError{Op: op, Err: err}
		}

		mapped := mapHTTPError(op, httpErr, attempt)
		var rlErr *source.RateLimitError
		if !errors.As(mapped, &rlErr) || httpErr.StatusCode != http.StatusTooManyRequests ||
			rlErr.RetryAfter > c.maxRetryWait || attempt == c.maxRetries {
			return nil, mapped
		}
		lastErr = mapped

		select {
		case <-ctx.Done():
			return nil, &source.NetworkError{Op: op, Err: ctx.Err()}
		case <-time.After(rlErr.RetryAfter):
		}
	}

	return nil, lastErr
}

// mapHTTPError converts a go-gh HTTP error into the source taxonomy.
func mapHTTPError(op string, httpErr *api.HTTPError, attempt int) error {
	switch {
	case httpErr.StatusCode == http.StatusUnauthorized:
		return &source.AuthError{
			Message: fmt.Sprintf("authentication failed (401) on %s: %s", op, httpErr.Message),
		}

	case httpErr.StatusCode == http.StatusTooManyRequests:
		return &source.RateLimitError{
			RetryAfter: retryAfterDuration(httpErr.Headers, attempt),
			ResetAt:    rateLimitReset(httpErr.Headers),
			Message:    fmt.Sprintf("429 on %s", op),
		}

	case httpErr.StatusCode == http.StatusForbidden &&
		httpErr.Headers.Get("X-RateLimit-Remaining") == "0":
		return &source.RateLimitError{
			ResetAt: rateLimitReset(httpErr.Headers),
			Message: fmt.Sprintf("quota exhausted on %s", op),
		}
	}

	return &source.NetworkError{
		Op:         op,
		StatusCode: httpErr.StatusCode,
		Err:        errors.New(httpErr.Message),
	}
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(h http.Header, attempt int) time.Duration {
	if header := h.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// rateLimitReset parses X-RateLimit-Reset (unix seconds).
func rateLimitReset(h http.Header) time.Time {
	v := h.Get("X-RateLimit-Reset")
	if v == "" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

var linkRE = regexp.MustCompile(`<([^>]+)>;\s*rel="([^"]+)"`)

// nextPage returns the rel="next" URL from a Link header.
func nextPage(resp *http.Response) (string, bool) {
	for _, m := range linkRE.FindAllStringSubmatch(resp.Header.Get("Link"), -1) {
		if len(m) > 2 && m[2] == "next" {
			return m[1], true
		}
	}
	return "", false
}

// GetAllThreadPages fetches every page of notification threads starting at
// path, following Link rel="next" until exhausted.
func (c *Client) GetAllThreadPages(ctx context.Context, path string) ([]Notification, error) {
	return getAllPages[Notification](ctx, c, path)
}

// PullRequest fetches one pull request.
func (c *Client) PullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.Get(ctx, pullPath(owner, repo, number), &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// Reviews fetches every submitted review of a pull request.
func (c *Client) Reviews(ctx context.Context, owner, repo string, number int) ([]Review, error) {
	return getAllPages[Review](ctx, c, pullPath(owner, repo, number)+"/reviews?per_page=100")
}

func pullPath(owner, repo string, number int) string {
	return fmt.Sprintf("repos/%s/%s/pulls/%d", url.PathEscape(owner), url.PathEscape(repo), number)
}

// getAllPages collects a paginated list endpoint, following Link
// rel="next" until exhausted.
func getAllPages[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T

	for path != "" {
		resp, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var page []T
		if err := decodeBody(resp, http.MethodGet, path, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)

		next, ok := nextPage(resp)
		if !ok {
			break
		}
		path = next
	}

	return all, nil
}

func decodeBody(resp *http.Response, method, path string, result interface{}) error {
	defer resp.Body.Close()

	if result == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &source.NetworkError{
			Op:  method + " " + path,
			Err: fmt.Errorf("unmarshaling response: %w", err),
		}
	}
	return nil
}

func drainBody(resp *http.Response) error {
	defer resp.Body.Close()
	_, err := io.Copy(io.Discard, resp.Body)
	return err
}
