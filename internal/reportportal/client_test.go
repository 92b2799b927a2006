package reportportal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method      string
	Path        string
	Auth        string
	ContentType string
	Body        []byte
}

type fakeServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
}

func (f *fakeServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Auth:        r.Header.Get("Authorization"),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
	status := f.status
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
		return
	}
	if r.Method == http.MethodPost && r.URL.Path != "/api/v2/demo/log" {
		var rq struct {
			UUID string `json:"uuid"`
		}
		_ = json.Unmarshal(body, &rq)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "srv-" + rq.UUID[:8]})
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func (f *fakeServer) all() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newTestClient(t *testing.T, opts Options) (*Client, *fakeServer) {
	t.Helper()
	fs := &fakeServer{}
	srv := httptest.NewServer(http.HandlerFunc(fs.handler))
	t.Cleanup(srv.Close)

	opts.Endpoint = srv.URL + "/"
	opts.Project = "demo"
	opts.APIKey = "secret"
	return New(opts), fs
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestLaunchLifecycle(t *testing.T) {
	c, fs := newTestClient(t, Options{DebugMode: true})
	ctx := context.Background()
	start := time.UnixMilli(1700000000123)

	id, err := c.StartLaunch(ctx, StartLaunchRQ{
		Name:       "launch",
		StartTime:  Millis(start),
		Attributes: []Attribute{{Key: "os", Value: "linux", System: true}},
		Rerun:      true,
		RerunOf:    "prev",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "srv-"))
	assert.Equal(t, id, c.LaunchUUID())

	require.NoError(t, c.FinishLaunch(ctx, FinishExecutionRQ{EndTime: Millis(start)}))

	reqs := fs.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/api/v2/demo/launch", reqs[0].Path)
	assert.Equal(t, "Bearer secret", reqs[0].Auth)

	body := decode(t, reqs[0].Body)
	assert.Equal(t, "launch", body["name"])
	assert.Equal(t, "1700000000123", body["startTime"])
	assert.Equal(t, ModeDebug, body["mode"])
	assert.Equal(t, true, body["rerun"])
	assert.Equal(t, "prev", body["rerunOf"])
	assert.NotEmpty(t, body["uuid"])

	assert.Equal(t, http.MethodPut, reqs[1].Method)
	assert.Equal(t, "/api/v2/demo/launch/"+id+"/finish", reqs[1].Path)
}

func TestResumedLaunch(t *testing.T) {
	c, fs := newTestClient(t, Options{LaunchUUID: "existing"})
	assert.Equal(t, "existing", c.LaunchUUID())

	_, err := c.StartTestItem(context.Background(), StartTestItemRQ{Name: "suite", Type: ItemSuite})
	require.NoError(t, err)

	reqs := fs.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "existing", decode(t, reqs[0].Body)["launchUuid"])
}

func TestTestItems(t *testing.T) {
	c, fs := newTestClient(t, Options{LaunchUUID: "launch"})
	ctx := context.Background()
	noStats := false

	suite, err := c.StartTestItem(ctx, StartTestItemRQ{Name: "suite", Type: ItemSuite, CodeRef: "a.feature:1"})
	require.NoError(t, err)
	step, err := c.StartTestItem(ctx, StartTestItemRQ{
		Name:       "step",
		Type:       ItemStep,
		ParentID:   suite,
		HasStats:   &noStats,
		TestCaseID: "42",
		Parameters: []Parameter{{Key: "a", Value: "1"}},
	})
	require.NoError(t, err)
	require.NoError(t, c.FinishTestItem(ctx, step, FinishTestItemRQ{Status: StatusSkipped}))
	require.NoError(t, c.FinishTestItem(ctx, suite, FinishTestItemRQ{Status: StatusPassed}))

	reqs := fs.all()
	require.Len(t, reqs, 4)
	assert.Equal(t, "/api/v2/demo/item", reqs[0].Path)
	assert.Equal(t, "/api/v2/demo/item/"+suite, reqs[1].Path)

	stepBody := decode(t, reqs[1].Body)
	assert.Equal(t, false, stepBody["hasStats"])
	assert.Equal(t, "42", stepBody["testCaseId"])
	assert.NotContains(t, decode(t, reqs[0].Body), "hasStats")

	skipped := decode(t, reqs[2].Body)
	assert.Equal(t, "SKIPPED", skipped["status"])
	assert.Equal(t, map[string]any{"issueType": IssueNotIssue}, skipped["issue"])

	passed := decode(t, reqs[3].Body)
	assert.NotContains(t, passed, "issue")
}

func TestSkippedIsIssue(t *testing.T) {
	c, fs := newTestClient(t, Options{LaunchUUID: "launch", SkippedIsIssue: true})
	require.NoError(t, c.FinishTestItem(context.Background(), "item", FinishTestItemRQ{Status: StatusSkipped}))

	reqs := fs.all()
	require.Len(t, reqs, 1)
	assert.NotContains(t, decode(t, reqs[0].Body), "issue")
}

func TestAPIError(t *testing.T) {
	c, fs := newTestClient(t, Options{})
	fs.status = http.StatusBadRequest

	_, err := c.StartLaunch(context.Background(), StartLaunchRQ{Name: "launch"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "boom")
	assert.Empty(t, c.LaunchUUID())
}

func TestFinishLaunchWithoutLaunch(t *testing.T) {
	c, _ := newTestClient(t, Options{})
	err := c.FinishLaunch(context.Background(), FinishExecutionRQ{})
	require.Error(t, err)
}

func readMultipart(t *testing.T, rec recordedRequest) ([]map[string]any, map[string]string) {
	t.Helper()
	_, params, err := mime.ParseMediaType(rec.ContentType)
	require.NoError(t, err)

	r := multipart.NewReader(strings.NewReader(string(rec.Body)), params["boundary"])
	var entries []map[string]any
	files := make(map[string]string)
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		if part.FormName() == "json_request_part" {
			require.NoError(t, json.Unmarshal(data, &entries))
			continue
		}
		files[part.FileName()] = string(data)
	}
	return entries, files
}

func TestLogBatching(t *testing.T) {
	c, fs := newTestClient(t, Options{LaunchUUID: "launch", LogBatchSize: 2})
	ctx := context.Background()

	require.NoError(t, c.Log(ctx, SaveLogRQ{ItemUUID: "item", Message: "one", Level: LevelInfo}))
	assert.Empty(t, fs.all(), "first entry stays buffered")

	require.NoError(t, c.Log(ctx, SaveLogRQ{
		Message:    "two",
		Level:      LevelError,
		Attachment: &Attachment{Name: "shot.png", Data: []byte("png"), MIME: "image/png"},
	}))
	reqs := fs.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v2/demo/log", reqs[0].Path)

	entries, files := readMultipart(t, reqs[0])
	require.Len(t, entries, 2)
	assert.Equal(t, "item", entries[0]["itemUuid"])
	assert.Equal(t, "launch", entries[0]["launchUuid"])
	assert.NotContains(t, entries[1], "itemUuid")
	assert.Equal(t, map[string]any{"name": "shot.png"}, entries[1]["file"])
	assert.Equal(t, "png", files["shot.png"])

	require.NoError(t, c.Log(ctx, SaveLogRQ{Message: "three", Level: LevelInfo}))
	require.NoError(t, c.Close(ctx))
	reqs = fs.all()
	require.Len(t, reqs, 2)
	entries, _ = readMultipart(t, reqs[1])
	require.Len(t, entries, 1)
	assert.Equal(t, "three", entries[0]["message"])
}

func TestLogPayloadLimit(t *testing.T) {
	b := newLogBuffer(100, 3000)
	assert.Empty(t, b.add(SaveLogRQ{Message: strings.Repeat("a", 1000)}))

	ready := b.add(SaveLogRQ{Message: strings.Repeat("b", 1000)})
	require.Len(t, ready, 1)
	assert.Len(t, ready[0], 1)
	assert.Len(t, b.take(), 1)
}

func TestMillisMarshal(t *testing.T) {
	data, err := json.Marshal(Millis(time.UnixMilli(42)))
	require.NoError(t, err)
	assert.Equal(t, `"42"`, string(data))
}

// quietRecorder captures whether each record was logged under a quiet context
type quietRecorder struct {
	mu    sync.Mutex
	quiet []bool
}

func (r *quietRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *quietRecorder) Handle(ctx context.Context, _ slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quiet = append(r.quiet, IsQuiet(ctx))
	return nil
}

func (r *quietRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *quietRecorder) WithGroup(string) slog.Handler      { return r }

func TestQuiet(t *testing.T) {
	assert.False(t, IsQuiet(context.Background()))
	assert.True(t, IsQuiet(Quiet(context.Background())))
}

func TestClientLogsQuietly(t *testing.T) {
	rec := &quietRecorder{}
	prev := slog.Default()
	slog.SetDefault(slog.New(rec))
	t.Cleanup(func() { slog.SetDefault(prev) })

	c, _ := newTestClient(t, Options{LogBatchSize: 1})
	ctx := context.Background()
	_, err := c.StartLaunch(ctx, StartLaunchRQ{Name: "l", StartTime: Millis(time.Now())})
	require.NoError(t, err)
	require.NoError(t, c.Log(ctx, SaveLogRQ{Message: "m", Level: LevelInfo, Time: Millis(time.Now())}))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.quiet)
	for _, q := range rec.quiet {
		assert.True(t, q)
	}
}
