package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rocketship-ai/rpbdd/internal/reportportal"
)

// Attribute keys the log handler interprets instead of rendering
const (
	// AttachKey names a file to upload with the entry
	AttachKey = "attach"
	// LaunchLogKey sends the entry to the launch instead of the current item
	LaunchLogKey = "launch_log"
)

// LogHandler is a slog.Handler that forwards records to ReportPortal as log
// entries on the agent's current item. Records logged under a
// reportportal.Quiet context are dropped, so the handler can be installed as
// the default logger without feeding the client's own logging back into it.
type LogHandler struct {
	agent  *Agent
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewLogHandler creates a handler forwarding records at or above level
func NewLogHandler(a *Agent, level slog.Leveler) *LogHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &LogHandler{agent: a, level: level}
}

func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.agent.Enabled() && level >= h.level.Level() && !reportportal.IsQuiet(ctx)
}

func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	if reportportal.IsQuiet(ctx) {
		return nil
	}
	var (
		attach string
		launch bool
		fields []string
	)
	visit := func(a slog.Attr, prefix string) {
		switch a.Key {
		case AttachKey:
			attach = a.Value.String()
		case LaunchLogKey:
			launch = a.Value.Kind() == slog.KindBool && a.Value.Bool()
		default:
			fields = append(fields, fmt.Sprintf("%s%s=%v", prefix, a.Key, a.Value.Any()))
		}
	}
	// keys of h.attrs already carry their group prefix
	for _, a := range h.attrs {
		visit(a, "")
	}
	r.Attrs(func(a slog.Attr) bool {
		visit(a, h.prefix)
		return true
	})

	msg := r.Message
	if len(fields) > 0 {
		msg += " " + strings.Join(fields, " ")
	}
	var opts []LogOption
	if attach != "" {
		opts = append(opts, Attach(attach))
	}
	if launch {
		return h.agent.PostLaunchLog(ctx, msg, levelFor(r.Level), opts...)
	}
	return h.agent.PostLog(ctx, msg, levelFor(r.Level), opts...)
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	out.attrs = append(out.attrs, h.attrs...)
	for _, a := range attrs {
		if a.Key != AttachKey && a.Key != LaunchLogKey {
			a.Key = h.prefix + a.Key
		}
		out.attrs = append(out.attrs, a)
	}
	return &out
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.prefix = h.prefix + name + "."
	return &out
}

func levelFor(l slog.Level) reportportal.LogLevel {
	switch {
	case l < slog.LevelInfo:
		return reportportal.LevelDebug
	case l < slog.LevelWarn:
		return reportportal.LevelInfo
	case l < slog.LevelError:
		return reportportal.LevelWarn
	default:
		return reportportal.LevelError
	}
}
