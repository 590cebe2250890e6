package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/gitdrive/internal/infrastructure/resilience"
)

const (
	apiVersion        = "2022-11-28"
	mediaType         = "application/vnd.github+json"
	defaultBaseURL    = "https://api.github.com"
	defaultRawBaseURL = "https://raw.githubusercontent.com"
	defaultProxy      = "https://ghproxy.net/"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	RawBaseURL string
	// ProxyPrefix is prepended to direct content URLs when a caller asks for it.
	ProxyPrefix string
	UserAgent   string
	Timeout     time.Duration
	// ReadRetries bounds retries of reads that failed without any response.
	ReadRetries int
	// RequestsPerSecond caps outgoing calls; zero means unlimited.
	RequestsPerSecond float64
	Logger            *zap.Logger
	Recorder          Recorder
	// Now overrides the clock used for quota tracking.
	Now func() time.Time
}

// Recorder receives one observation per backend call.
type Recorder interface {
	RecordBackendCall(op, outcome string, duration time.Duration)
}

// Client talks to the repository contents API. It is safe for concurrent use.
type Client struct {
	opts    Options
	read    *resty.Client
	write   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	quota   *quotaTracker
	logger  *zap.Logger
}

// New creates a client. Reads retry connection failures; mutations never retry.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.RawBaseURL == "" {
		opts.RawBaseURL = defaultRawBaseURL
	}
	if opts.ProxyPrefix == "" {
		opts.ProxyPrefix = defaultProxy
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "gitdrive/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.ReadRetries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	retryClient.CheckRetry = retryConnectionErrors
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	logger := opts.Logger.Named("objectstore")
	breaker := resilience.New("contents-api", resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsUnavailable(err)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	return &Client{
		opts:    opts,
		read:    newResty(resty.NewWithClient(retryClient.StandardClient()), opts),
		write:   newResty(resty.New(), opts),
		limiter: limiter,
		breaker: breaker,
		quota:   newQuotaTracker(opts.Now),
		logger:  logger,
	}
}

func newResty(rc *resty.Client, opts Options) *resty.Client {
	return rc.
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", mediaType).
		SetHeader("X-GitHub-Api-Version", apiVersion)
}

// retryConnectionErrors retries only when no response arrived. A status
// code is an answer; conflicts and rate limits are left to the caller.
func retryConnectionErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil && resp == nil, nil
}

// Get fetches the object or single-level listing at key on ref.
func (c *Client) Get(ctx context.Context, repo Repo, key, ref string) (*Result, error) {
	path := contentsPath(repo, key)
	body, err := c.call(ctx, "get", c.read, repo, http.MethodGet, path, refQuery(ref), nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []Entry
		if err := sonic.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode listing %s: %w", key, err)
		}
		return &Result{Entries: entries}, nil
	}

	var obj Object
	if err := sonic.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("decode object %s: %w", key, err)
	}
	if obj.Type == TypeDir {
		return &Result{Entries: []Entry{}}, nil
	}
	return &Result{Object: &obj}, nil
}

// Put creates or replaces the object at key. An empty req.SHA means create;
// the backend rejects it with ErrConflict when the path is occupied.
func (c *Client) Put(ctx context.Context, repo Repo, key string, req PutRequest) (*PutResult, error) {
	payload, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode put %s: %w", key, err)
	}
	body, err := c.call(ctx, "put", c.write, repo, http.MethodPut, contentsPath(repo, key), nil, payload)
	if err != nil {
		return nil, err
	}

	var out PutResult
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode put %s: %w", key, err)
	}
	c.logger.Debug("object written",
		zap.String("key", key),
		zap.String("sha", out.Content.SHA),
		zap.String("commit", out.Commit.SHA),
	)
	return &out, nil
}

// Delete removes the object at key if its current hash is req.SHA.
func (c *Client) Delete(ctx context.Context, repo Repo, key string, req DeleteRequest) error {
	payload, err := sonic.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode delete %s: %w", key, err)
	}
	_, err = c.call(ctx, "delete", c.write, repo, http.MethodDelete, contentsPath(repo, key), nil, payload)
	return err
}

// Repository fetches repository metadata. It doubles as a connection check.
func (c *Client) Repository(ctx context.Context, repo Repo) (*Repository, error) {
	body, err := c.call(ctx, "repo", c.read, repo, http.MethodGet, repoPath(repo), nil, nil)
	if err != nil {
		return nil, err
	}
	var out Repository
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode repository: %w", err)
	}
	return &out, nil
}

// Raw streams content from a direct download locator. The caller closes the body.
func (c *Client) Raw(ctx context.Context, repo Repo, downloadURL string) (io.ReadCloser, string, error) {
	if err := c.admit(ctx); err != nil {
		return nil, "", c.wrapTransport(http.MethodGet, downloadURL, err)
	}

	start := time.Now()
	var resp *resty.Response
	err := c.breaker.Do(func() error {
		req := c.read.R().
			SetContext(ctx).
			SetDoNotParseResponse(true)
		if repo.Token != "" {
			req.SetHeader("Authorization", "token "+repo.Token)
		}
		r, err := req.Get(downloadURL)
		if err != nil {
			return c.wrapTransport(http.MethodGet, downloadURL, err)
		}
		resp = r
		if r.StatusCode() >= 300 {
			body := r.RawBody()
			defer body.Close()
			msg, _ := io.ReadAll(io.LimitReader(body, 4096))
			return newAPIError(http.MethodGet, downloadURL, r.StatusCode(), msg)
		}
		return nil
	})
	c.record("raw", err, time.Since(start))
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
			return nil, "", c.wrapTransport(http.MethodGet, downloadURL, err)
		}
		return nil, "", err
	}
	return resp.RawBody(), resp.Header().Get("Content-Type"), nil
}

// RawURL builds the direct content URL for key on branch. With proxy set,
// public URLs are routed through the configured mirror prefix.
func (c *Client) RawURL(repo Repo, branch, key string, proxy bool) string {
	u := strings.TrimRight(c.opts.RawBaseURL, "/") + "/" +
		url.PathEscape(repo.Owner) + "/" + url.PathEscape(repo.Name) + "/" +
		url.PathEscape(branch) + "/" + key
	return c.ProxyURL(u, proxy)
}

// ProxyURL applies the mirror prefix to a download URL that carries no token.
func (c *Client) ProxyURL(downloadURL string, proxy bool) string {
	if !proxy || downloadURL == "" || strings.Contains(downloadURL, "?token=") {
		return downloadURL
	}
	return c.opts.ProxyPrefix + downloadURL
}

func (c *Client) call(ctx context.Context, op string, rc *resty.Client, repo Repo, method, path string, query url.Values, payload []byte) ([]byte, error) {
	if err := c.admit(ctx); err != nil {
		return nil, c.wrapTransport(method, path, err)
	}

	start := time.Now()
	var body []byte
	err := c.breaker.Do(func() error {
		req := rc.R().SetContext(ctx)
		if repo.Token != "" {
			req.SetHeader("Authorization", "token "+repo.Token)
		}
		if query != nil {
			req.SetQueryParamsFromValues(query)
		}
		if payload != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(payload)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return c.wrapTransport(method, path, err)
		}
		c.quota.update(resp.Header())

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			return newAPIError(method, path, status, resp.Body())
		}
		body = resp.Body()
		return nil
	})
	c.record(op, err, time.Since(start))

	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
			return nil, c.wrapTransport(method, path, err)
		}
		c.logger.Debug("backend call failed",
			zap.String("op", op),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	return body, nil
}

// admit applies the client-side limiter and the remembered backend quota.
func (c *Client) admit(ctx context.Context) error {
	if left, ok := c.quota.exhausted(); ok {
		return &APIError{
			Kind:    ErrRateLimited,
			Message: fmt.Sprintf("quota exhausted, resets in %s", left.Round(time.Second)),
		}
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) wrapTransport(method, path string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Method == "" {
			apiErr.Method, apiErr.Path = method, path
		}
		return apiErr
	}
	return &APIError{Kind: ErrUnavailable, Method: method, Path: path, Err: err}
}

func (c *Client) record(op string, err error, d time.Duration) {
	if c.opts.Recorder == nil {
		return
	}
	c.opts.Recorder.RecordBackendCall(op, Outcome(err), d)
}

// Outcome names the error kind of err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	case errors.Is(err, ErrAuthFailure):
		return "auth_failure"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	}
	return "error"
}

func contentsPath(repo Repo, key string) string {
	p := repoPath(repo) + "/contents"
	if key != "" {
		p += "/" + key
	}
	return p
}

func repoPath(repo Repo) string {
	return "/repos/" + url.PathEscape(repo.Owner) + "/" + url.PathEscape(repo.Name)
}

func refQuery(ref string) url.Values {
	if ref == "" {
		return nil
	}
	return url.Values{"ref": []string{ref}}
}
