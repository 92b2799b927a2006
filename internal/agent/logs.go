package agent

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rocketship-ai/rpbdd/internal/bdd"
	"github.com/rocketship-ai/rpbdd/internal/reportportal"
)

const defaultMIME = "application/octet-stream"

// LogOption customizes a log entry
type LogOption func(*logOptions)

type logOptions struct {
	itemID string
	attach string
}

// ToItem sends the entry to the given item instead of the current one
func ToItem(id string) LogOption {
	return func(o *logOptions) { o.itemID = id }
}

// Attach adds the file at path to the entry
func Attach(path string) LogOption {
	return func(o *logOptions) { o.attach = path }
}

func applyLogOptions(opts []LogOption) logOptions {
	var o logOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ConvertStatus maps a runner status onto a remote status. Anything other
// than failed or skipped reports as passed.
func ConvertStatus(s bdd.Status) reportportal.Status {
	switch s {
	case bdd.StatusFailed:
		return reportportal.StatusFailed
	case bdd.StatusSkipped:
		return reportportal.StatusSkipped
	default:
		return reportportal.StatusPassed
	}
}

// PostLog sends a free-form entry to the current item. An empty level means
// INFO.
func (a *Agent) PostLog(ctx context.Context, message string, level reportportal.LogLevel, opts ...LogOption) error {
	if !a.Enabled() {
		return nil
	}
	o := applyLogOptions(opts)
	itemID := o.itemID
	if itemID == "" {
		itemID = a.currentLogItem()
	}
	return a.log(ctx, message, level, itemID, o.attach)
}

// PostLaunchLog sends a free-form entry to the launch itself
func (a *Agent) PostLaunchLog(ctx context.Context, message string, level reportportal.LogLevel, opts ...LogOption) error {
	if !a.Enabled() {
		return nil
	}
	o := applyLogOptions(opts)
	return a.log(ctx, message, level, "", o.attach)
}

func (a *Agent) log(ctx context.Context, message string, level reportportal.LogLevel, itemID, attach string) error {
	if level == "" {
		level = reportportal.LevelInfo
	}
	rq := reportportal.SaveLogRQ{
		ItemUUID: itemID,
		Time:     a.timestamp(),
		Message:  message,
		Level:    level,
	}

	if attach != "" {
		att, err := readAttachment(attach)
		if err != nil {
			slog.WarnContext(reportportal.Quiet(ctx), "attachment could not be read", "path", attach, "error", err)
			warn := reportportal.SaveLogRQ{
				ItemUUID: itemID,
				Time:     a.timestamp(),
				Message:  fmt.Sprintf("Attachment '%s' not found", attach),
				Level:    reportportal.LevelWarn,
			}
			if err := a.rp.Log(ctx, warn); err != nil {
				return err
			}
		} else {
			rq.Attachment = att
		}
	}
	return a.rp.Log(ctx, rq)
}

func readAttachment(path string) (*reportportal.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = defaultMIME
	}
	return &reportportal.Attachment{
		Name: filepath.Base(path),
		Data: data,
		MIME: mimeType,
	}, nil
}

// failureMessage builds the ERROR log body: the header, then the trace or
// the exception text, then the error message
func failureMessage(header string, f *bdd.Failure) string {
	lines := []string{header}
	if f != nil {
		switch {
		case f.Trace != "":
			lines = append(lines, f.Trace)
		case f.Exception != "":
			lines = append(lines, f.Exception)
		}
		if f.Message != "" {
			lines = append(lines, f.Message)
		}
	}
	return strings.Join(lines, "\n")
}

func (a *Agent) logFailure(ctx context.Context, header string, f *bdd.Failure, itemID string) error {
	return a.rp.Log(ctx, reportportal.SaveLogRQ{
		ItemUUID: itemID,
		Time:     a.timestamp(),
		Message:  failureMessage(header, f),
		Level:    reportportal.LevelError,
	})
}

func (a *Agent) logFixtures(ctx context.Context, item bdd.Item, itemType reportportal.ItemType, parentID string) error {
	for _, name := range fixtureNames(item) {
		msg := fmt.Sprintf("Using of '%s' fixture", name)
		if err := a.logRecord(ctx, msg, itemType, parentID); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) logCleanups(ctx context.Context, rc *bdd.Context, layer string) error {
	itemType, parentID := reportportal.ItemAfterSuite, a.featureID
	if layer == bdd.LayerScenario {
		itemType, parentID = reportportal.ItemAfterTest, a.scenarioID
	}
	for _, name := range rc.Cleanups(layer) {
		msg := fmt.Sprintf("Execution of '%s' cleanup function", name)
		if err := a.logRecord(ctx, msg, itemType, parentID); err != nil {
			return err
		}
	}
	return nil
}

// logRecord reports a fixture or cleanup. Per-step layouts get a passed
// child item of the given type; the scenario layout gets an INFO log.
func (a *Agent) logRecord(ctx context.Context, msg string, itemType reportportal.ItemType, parentID string) error {
	if !a.cfg.LogLayout.PerStep() {
		return a.rp.Log(ctx, reportportal.SaveLogRQ{
			ItemUUID: parentID,
			Time:     a.timestamp(),
			Message:  msg,
			Level:    reportportal.LevelInfo,
		})
	}

	hasStats := a.hasStats()
	id, err := a.rp.StartTestItem(ctx, reportportal.StartTestItemRQ{
		Name:      msg,
		StartTime: a.timestamp(),
		Type:      itemType,
		ParentID:  parentID,
		HasStats:  &hasStats,
	})
	if err != nil {
		return err
	}
	return a.rp.FinishTestItem(ctx, id, reportportal.FinishTestItemRQ{
		EndTime: a.timestamp(),
		Status:  reportportal.StatusPassed,
	})
}
