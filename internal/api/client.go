// Package api is the HTTP client for the remote task service. It owns the
// wire format, the bearer-token interceptor and the error taxonomy; callers
// only see task types and typed errors.
package api

import (
	"bytes"
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

	"github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/log"
	"github.com/imkarma/taskboard/internal/task"
)

// DefaultTimeout bounds every call unless overridden with WithTimeout.
const DefaultTimeout = 10 * time.Second

// Client talks to the task service.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     *logrus.Logger
}

type options struct {
	base      http.RoundTripper
	creds     Credentials
	onExpired func()
	timeout   time.Duration
	log       *logrus.Logger
}

// Option configures a Client.
type Option func(*options)

// WithTransport replaces the underlying transport (default http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithCredentials attaches the session used for the bearer header.
func WithCredentials(c Credentials) Option {
	return func(o *options) { o.creds = c }
}

// OnExpired registers a hook fired after a 401 cleared the session.
func OnExpired(fn func()) Option {
	return func(o *options) { o.onExpired = fn }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger overrides the shared logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.log = l }
}

// New creates a client for the service rooted at baseURL
// (for example http://localhost:8000/api).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", baseURL)
	}

	o := options{
		base:    http.DefaultTransport,
		timeout: DefaultTimeout,
		log:     log.GetLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Transport: &authTransport{
			base:      o.base,
			creds:     o.creds,
			onExpired: o.onExpired,
			log:       o.log,
		}},
		timeout: o.timeout,
		log:     o.log,
	}, nil
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// ListTasks returns the tasks matching f in server order.
func (c *Client) ListTasks(ctx context.Context, f task.Filter) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", f.Query(), nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

// GetTask fetches one task. Missing tasks yield ErrNotFound.
func (c *Client) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, nil, &t); err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &t, nil
}

// CreateTask creates a task from a full edit.
func (c *Client) CreateTask(ctx context.Context, e task.Edit) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, e, &t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

// UpdateTask applies a partial edit.
func (c *Client) UpdateTask(ctx context.Context, id int64, e task.Edit) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), nil, e, &t); err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	return &t, nil
}

// DeleteTask removes a task. Deleting a missing task yields ErrNotFound.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

// Stats returns the per-status and per-priority counts.
func (c *Client) Stats(ctx context.Context) (*task.Stats, error) {
	var s task.Stats
	if err := c.do(ctx, http.MethodGet, "/tasks/stats/summary", nil, nil, &s); err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	return &s, nil
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

// do performs one JSON round trip. out may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
