package loadgen

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/labbench/internal/scenario"
	"resty.dev/v3"
)

// DefaultRequestTimeout bounds a single request when no timeout is configured.
const DefaultRequestTimeout = 10 * time.Second

// Client is shared by every virtual user of a run.
type Client struct {
	rc   *resty.Client
	host string
}

// NewClient builds a client for the given host. The transport keeps enough
// idle connections per host for a swarm of users hammering one target.
func NewClient(host string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	host = strings.TrimRight(host, "/")

	rc := resty.New().
		SetBaseURL(host).
		SetTimeout(timeout).
		SetTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		})

	return &Client{rc: rc, host: host}
}

// Host returns the base URL requests are sent to.
func (c *Client) Host() string {
	return c.host
}

// Do executes a task and classifies the response.
func (c *Client) Do(ctx context.Context, task *scenario.Task) Outcome {
	out := Outcome{
		Name:   task.Name,
		Method: task.Method,
		URL:    c.host + task.Path,
	}

	req := c.rc.R().SetContext(ctx)
	if len(task.Headers) > 0 {
		req.SetHeaders(task.Headers)
	}
	if task.HasBody() {
		body, err := task.Body()
		if err != nil {
			out.Err = err
			out.Success, out.Failure = Classify(0, "", err)
			out.Finished = time.Now()
			return out
		}
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(task.Method, task.Path)
	out.Latency = time.Since(start)
	out.Finished = start.Add(out.Latency)

	if err != nil {
		out.Err = fmt.Errorf("%s %s: %w", task.Method, task.Path, err)
		out.Success, out.Failure = Classify(0, "", out.Err)
		return out
	}

	out.Status = resp.StatusCode()
	out.Body = resp.String()
	out.Size = int64(len(out.Body))
	out.Success, out.Failure = Classify(out.Status, out.Body, nil)
	return out
}

// Ping issues a GET to the host root. Any HTTP response counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.rc.R().SetContext(ctx).Get("/")
	return err
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	return c.rc.Close()
}
