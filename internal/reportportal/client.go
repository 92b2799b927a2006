package reportportal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// Options configures a Client
type Options struct {
	Endpoint string
	Project  string
	APIKey   string
	// LaunchUUID resumes an existing launch instead of starting a new one
	LaunchUUID string

	Retries             int
	Timeout             time.Duration
	LogBatchSize        int
	LogBatchPayloadSize int
	SkippedIsIssue      bool
	DebugMode           bool

	// HTTPClient overrides the underlying transport, mainly for tests
	HTTPClient *http.Client
}

// APIError is returned when the server answers with a non-2xx status
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reportportal: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the ReportPortal item-tree API
type Client struct {
	baseURL        string
	apiKey         string
	skippedIsIssue bool
	debugMode      bool
	http           *retryablehttp.Client

	mu         sync.Mutex
	launchUUID string
	logs       *logBuffer
}

type quietKey struct{}

// Quiet marks ctx so handlers that forward records to ReportPortal drop
// anything logged under it. The client logs its own records this way.
func Quiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

// IsQuiet reports whether ctx was marked by Quiet
func IsQuiet(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	quiet, _ := ctx.Value(quietKey{}).(bool)
	return quiet
}

// quietLogger routes retryablehttp's logging to the default slog logger
// under a quiet context
type quietLogger struct{}

var _ retryablehttp.LeveledLogger = quietLogger{}

func (quietLogger) log(level slog.Level, msg string, keysAndValues []interface{}) {
	slog.Default().Log(Quiet(context.Background()), level, msg, keysAndValues...)
}

func (l quietLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log(slog.LevelError, msg, keysAndValues)
}

func (l quietLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log(slog.LevelInfo, msg, keysAndValues)
}

func (l quietLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(slog.LevelDebug, msg, keysAndValues)
}

func (l quietLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(slog.LevelWarn, msg, keysAndValues)
}

// New creates a client. It does not contact the server.
func New(opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.Retries
	rc.Logger = quietLogger{}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}

	return &Client{
		baseURL:        strings.TrimRight(opts.Endpoint, "/") + "/api/v2/" + url.PathEscape(opts.Project),
		apiKey:         opts.APIKey,
		skippedIsIssue: opts.SkippedIsIssue,
		debugMode:      opts.DebugMode,
		http:           rc,
		launchUUID:     opts.LaunchUUID,
		logs:           newLogBuffer(opts.LogBatchSize, opts.LogBatchPayloadSize),
	}
}

// LaunchUUID returns the current launch, or an empty string before one has
// been started or resumed
func (c *Client) LaunchUUID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.launchUUID
}

// StartLaunch starts a new launch and remembers its UUID for later requests
func (c *Client) StartLaunch(ctx context.Context, rq StartLaunchRQ) (string, error) {
	if rq.UUID == "" {
		rq.UUID = uuid.NewString()
	}
	if rq.Mode == "" {
		rq.Mode = ModeDefault
		if c.debugMode {
			rq.Mode = ModeDebug
		}
	}

	var rs entryCreatedRS
	if err := c.doJSON(ctx, http.MethodPost, "/launch", rq, &rs); err != nil {
		return "", fmt.Errorf("failed to start launch: %w", err)
	}
	id := rs.ID
	if id == "" {
		id = rq.UUID
	}

	c.mu.Lock()
	c.launchUUID = id
	c.mu.Unlock()

	slog.DebugContext(Quiet(ctx), "started launch", "launch_uuid", id, "name", rq.Name)
	return id, nil
}

// FinishLaunch flushes pending logs and finishes the current launch
func (c *Client) FinishLaunch(ctx context.Context, rq FinishExecutionRQ) error {
	if err := c.flushLogs(ctx); err != nil {
		return err
	}
	launch := c.LaunchUUID()
	if launch == "" {
		return fmt.Errorf("failed to finish launch: no launch started")
	}
	if err := c.doJSON(ctx, http.MethodPut, "/launch/"+url.PathEscape(launch)+"/finish", rq, nil); err != nil {
		return fmt.Errorf("failed to finish launch: %w", err)
	}
	slog.DebugContext(Quiet(ctx), "finished launch", "launch_uuid", launch)
	return nil
}

// StartTestItem starts a root item, or a child item when rq.ParentID is set
func (c *Client) StartTestItem(ctx context.Context, rq StartTestItemRQ) (string, error) {
	if rq.UUID == "" {
		rq.UUID = uuid.NewString()
	}
	if rq.LaunchUUID == "" {
		rq.LaunchUUID = c.LaunchUUID()
	}

	path := "/item"
	if rq.ParentID != "" {
		path += "/" + url.PathEscape(rq.ParentID)
	}

	var rs entryCreatedRS
	if err := c.doJSON(ctx, http.MethodPost, path, rq, &rs); err != nil {
		return "", fmt.Errorf("failed to start item %q: %w", rq.Name, err)
	}
	if rs.ID == "" {
		rs.ID = rq.UUID
	}
	slog.DebugContext(Quiet(ctx), "started item", "item_uuid", rs.ID, "type", rq.Type, "name", rq.Name)
	return rs.ID, nil
}

// FinishTestItem finishes an item. Skipped items are marked NOT_ISSUE
// unless the client treats skips as issues.
func (c *Client) FinishTestItem(ctx context.Context, id string, rq FinishTestItemRQ) error {
	if rq.LaunchUUID == "" {
		rq.LaunchUUID = c.LaunchUUID()
	}
	if rq.Status == StatusSkipped && !c.skippedIsIssue && rq.Issue == nil {
		rq.Issue = &Issue{IssueType: IssueNotIssue}
	}
	if err := c.doJSON(ctx, http.MethodPut, "/item/"+url.PathEscape(id), rq, nil); err != nil {
		return fmt.Errorf("failed to finish item %s: %w", id, err)
	}
	slog.DebugContext(Quiet(ctx), "finished item", "item_uuid", id, "status", rq.Status)
	return nil
}

// Close flushes pending logs and releases idle connections
func (c *Client) Close(ctx context.Context) error {
	err := c.flushLogs(ctx)
	c.http.HTTPClient.CloseIdleConnections()
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, method, path, "application/json", payload, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, payload []byte, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
