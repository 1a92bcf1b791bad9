// Package client is an HTTP client for the studio API.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/studio-api/internal/api"
	"github.com/phrazzld/studio-api/internal/api/shared"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/events"
	"github.com/phrazzld/studio-api/internal/feed"
	"github.com/phrazzld/studio-api/internal/mode"
)

// DefaultTimeout bounds requests other than event streams.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	TraceID    string
}

func (e *APIError) Error() string {
	if e.TraceID != "" {
		return fmt.Sprintf("server returned %d: %s (trace %s)", e.StatusCode, e.Message, e.TraceID)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client calls a studio server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New creates a client for the server at baseURL. A nil httpClient uses one
// with DefaultTimeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// Submit sends a generation request.
func (c *Client) Submit(ctx context.Context, req api.SubmitTaskRequest) error {
	return c.do(ctx, http.MethodPost, "/api/tasks", nil, req, nil)
}

// ListTasks lists tasks newest first, filtered to view unless it is empty.
func (c *Client) ListTasks(ctx context.Context, view string) ([]api.TaskResponse, error) {
	var tasks []api.TaskResponse
	err := c.do(ctx, http.MethodGet, "/api/tasks", viewQuery(view), nil, &tasks)
	return tasks, err
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id string) (api.TaskResponse, error) {
	var t api.TaskResponse
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &t)
	return t, err
}

// Rerun resubmits a task.
func (c *Client) Rerun(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/rerun", nil, nil, nil)
}

// Seed fetches the view, prompt and input images of a task.
func (c *Client) Seed(ctx context.Context, id string) (domain.Seed, error) {
	var seed domain.Seed
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id)+"/seed", nil, nil, &seed)
	return seed, err
}

// Feed fetches the grouped feed of view.
func (c *Client) Feed(ctx context.Context, view string) ([]feed.DateGroup, error) {
	var groups []feed.DateGroup
	err := c.do(ctx, http.MethodGet, "/api/feed", viewQuery(view), nil, &groups)
	return groups, err
}

// Views lists the generation modes.
func (c *Client) Views(ctx context.Context) ([]mode.Mode, error) {
	var modes []mode.Mode
	err := c.do(ctx, http.MethodGet, "/api/views", nil, nil, &modes)
	return modes, err
}

// Image is a downloaded output image.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DownloadImage fetches the output image of a completed task.
func (c *Client) DownloadImage(ctx context.Context, id string) (Image, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id)+"/image", nil, nil)
	if err != nil {
		return Image{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image: %w", err)
	}

	img := Image{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		img.Filename = params["filename"]
	}
	return img, nil
}

// WatchEvents streams task events to fn until ctx is canceled, the server
// closes the stream or fn returns an error.
func (c *Client) WatchEvents(ctx context.Context, view string, fn func(events.TaskEvent) error) error {
	// event streams are long-lived; only ctx ends them
	streamClient := *c.http
	streamClient.Timeout = 0

	req, err := c.newRequest(ctx, http.MethodGet, "/api/events", viewQuery(view), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var event events.TaskEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("event stream failed: %w", err)
	}
	return ctx.Err()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// send performs the request and returns the response if its status is 2xx.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		TraceID:    resp.Header.Get(shared.TraceIDHeader),
	}
	var body shared.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		if body.TraceID != "" {
			apiErr.TraceID = body.TraceID
		}
	}
	return apiErr
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func viewQuery(view string) url.Values {
	if view == "" {
		return nil
	}
	return url.Values{"view": {view}}
}
