package reportportal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
)

// per-entry JSON overhead counted against the payload limit
const logEntryOverhead = 1024

type logBuffer struct {
	mu         sync.Mutex
	batchSize  int
	maxPayload int
	entries    []SaveLogRQ
	size       int
}

func newLogBuffer(batchSize, maxPayload int) *logBuffer {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &logBuffer{batchSize: batchSize, maxPayload: maxPayload}
}

func entrySize(rq SaveLogRQ) int {
	n := len(rq.Message) + logEntryOverhead
	if rq.Attachment != nil {
		n += len(rq.Attachment.Data) + len(rq.Attachment.Name)
	}
	return n
}

// add appends an entry and returns the batches that are ready to be sent
func (b *logBuffer) add(rq SaveLogRQ) [][]SaveLogRQ {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ready [][]SaveLogRQ
	n := entrySize(rq)
	if b.maxPayload > 0 && len(b.entries) > 0 && b.size+n >= b.maxPayload {
		ready = append(ready, b.takeLocked())
	}
	b.entries = append(b.entries, rq)
	b.size += n
	if len(b.entries) >= b.batchSize {
		ready = append(ready, b.takeLocked())
	}
	return ready
}

func (b *logBuffer) take() []SaveLogRQ {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.takeLocked()
}

func (b *logBuffer) takeLocked() []SaveLogRQ {
	out := b.entries
	b.entries = nil
	b.size = 0
	return out
}

// Log queues a log entry. Entries are sent in batches once the batch size or
// payload limit is reached, and on FinishLaunch and Close.
func (c *Client) Log(ctx context.Context, rq SaveLogRQ) error {
	if rq.LaunchUUID == "" {
		rq.LaunchUUID = c.LaunchUUID()
	}
	if rq.Attachment != nil && rq.File == nil {
		rq.File = &FileRef{Name: rq.Attachment.Name}
	}
	for _, batch := range c.logs.add(rq) {
		if err := c.sendLogs(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) flushLogs(ctx context.Context) error {
	return c.sendLogs(ctx, c.logs.take())
}

func (c *Client) sendLogs(ctx context.Context, batch []SaveLogRQ) error {
	if len(batch) == 0 {
		return nil
	}
	body, contentType, err := encodeLogBatch(batch)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, "/log", contentType, body, nil); err != nil {
		return fmt.Errorf("failed to send %d log entries: %w", len(batch), err)
	}
	slog.DebugContext(Quiet(ctx), "sent log batch", "entries", len(batch))
	return nil
}

// encodeLogBatch builds the multipart body: one json_request_part holding all
// entries followed by one file part per attachment
func encodeLogBatch(batch []SaveLogRQ) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal log batch: %w", err)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="json_request_part"`)
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}

	for _, rq := range batch {
		if rq.Attachment == nil {
			continue
		}
		fh := make(textproto.MIMEHeader)
		fh.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, rq.Attachment.Name))
		fh.Set("Content-Type", rq.Attachment.MIME)
		fp, err := w.CreatePart(fh)
		if err != nil {
			return nil, "", err
		}
		if _, err := fp.Write(rq.Attachment.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
