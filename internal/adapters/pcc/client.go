// Package pcc polls the Project Control Center HTTP API and normalizes its
// payloads into one visualization snapshot.
package pcc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidBaseURL and ErrInvalidPayload classify client failures that carry no HTTP status.
var (
	ErrInvalidBaseURL = errors.New("invalid pcc base url")
	ErrInvalidPayload = errors.New("invalid pcc payload")
)

// defaultConcurrency bounds per-project fetches when no option is given.
const defaultConcurrency = 4

// maxErrorBody caps how much of a failed response body is read for the message.
const maxErrorBody = 4 << 10

// RequestError reports one failed PCC request.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

// Error returns a readable request failure.
func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("pcc %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pcc %s %s: %s", e.Method, e.Path, e.Message)
}

// NotFound reports whether the server answered 404.
func (e *RequestError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client fetches PCC state over HTTP.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	concurrency int
	logger      *log.Logger
	now         func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithConcurrency bounds concurrent per-project requests.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock used for snapshot timestamps and recency.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a client for baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || baseURL == "" || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL:     parsed,
		http:        &http.Client{Timeout: timeout},
		concurrency: defaultConcurrency,
		logger:      log.New(io.Discard),
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Snapshot fetches the global context, then every project's work orders and
// runs, and returns one normalized snapshot. Any failed request fails the
// whole snapshot so callers can fall back to the last good one.
func (c *Client) Snapshot(ctx context.Context) (domain.VisualizationData, error) {
	var global globalContext
	if err := c.getJSON(ctx, "/global/context", &global); err != nil {
		return domain.VisualizationData{}, err
	}
	now := c.now().UTC()

	projects := make([]domain.ProjectNode, 0, len(global.Projects))
	for _, payload := range global.Projects {
		node := payload.node()
		if node.ID == "" {
			continue
		}
		projects = append(projects, node)
	}

	workOrders := make([][]workOrderPayload, len(projects))
	runs := make([][]domain.RunSummary, len(projects))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.concurrency)
	for i := range projects {
		id := url.PathEscape(projects[i].ID)
		group.Go(func() error {
			var items workOrderList
			if err := c.getJSON(groupCtx, "/repos/"+id+"/work-orders", &items); err != nil {
				return err
			}
			workOrders[i] = items
			return nil
		})
		group.Go(func() error {
			var items runList
			if err := c.getJSON(groupCtx, "/repos/"+id+"/runs", &items); err != nil {
				return err
			}
			runs[i] = items
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return domain.VisualizationData{}, err
	}

	data := domain.VisualizationData{
		Nodes:         projects,
		Timestamp:     now,
		RunsByProject: make(map[string][]domain.RunSummary, len(projects)),
	}
	for i := range projects {
		projectID := projects[i].ID
		data.RunsByProject[projectID] = runs[i]
		phases := domain.PhaseFromRuns(runs[i])
		for _, payload := range workOrders[i] {
			wo := payload.node(projectID, now)
			if wo.ID == "" {
				continue
			}
			if phase := phases[wo.ID]; phase.Urgency() > projects[i].Phase.Urgency() {
				projects[i].Phase = phase
			}
			data.WorkOrderNodes = append(data.WorkOrderNodes, wo)
			for _, dep := range payload.DependsOn {
				data.Edges = append(data.Edges, domain.Edge{Source: wo.ID, Target: dep, Type: domain.EdgeTypeDependency})
			}
		}
	}
	c.logger.Debug("pcc snapshot fetched", "projects", len(projects), "work_orders", len(data.WorkOrderNodes))
	return data.Normalize(), nil
}

// getJSON performs one GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	endpoint := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &RequestError{Method: http.MethodGet, Path: path, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &RequestError{Method: http.MethodGet, Path: path, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{
			Method:     http.MethodGet,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body, resp.StatusCode),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidPayload, path, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"error": {"message": "..."}} from a failed body.
func errorMessage(body io.Reader, status int) string {
	fallback := strings.ToLower(http.StatusText(status))
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return fallback
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Error) == 0 {
		return fallback
	}
	var text string
	if err := json.Unmarshal(envelope.Error, &text); err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
		return strings.TrimSpace(nested.Message)
	}
	return fallback
}
