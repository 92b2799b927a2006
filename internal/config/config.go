package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	// SectionName is the config file section holding the agent settings
	SectionName = "report_portal"
	// DefaultConfigFile is read when no config_file override is given
	DefaultConfigFile = "reportportal.yaml"
	// DefaultLaunchName names launches when launch_name is not configured
	DefaultLaunchName = "Go BDD Launch"

	DefaultRetries             = 3
	DefaultLogBatchSize        = 20
	DefaultLogBatchPayloadSize = 65000000
	DefaultHTTPTimeout         = 60 * time.Second
)

// ErrInvalidNumber is returned by Resolve when a numeric setting cannot be parsed
var ErrInvalidNumber = errors.New("invalid numeric setting")

// Config is the resolved agent configuration. Build it with Resolve or Load
// and treat it as read-only afterwards.
type Config struct {
	Endpoint          string
	Project           string
	APIKey            string
	LaunchID          string
	LaunchName        string
	LaunchDescription string
	LaunchAttributes  []string

	DebugMode        bool
	IsSkippedAnIssue bool
	Rerun            bool
	RerunOf          string
	LogLayout        LogLayout

	Retries             int
	LogBatchSize        int
	LogBatchPayloadSize int
	HTTPTimeout         time.Duration

	// Enabled is true when endpoint, project and API key are all set
	Enabled bool
}

// Resolve merges overrides on top of the file section on top of the built-in
// defaults. Missing identity settings never fail; they leave Enabled false.
// A malformed numeric value is returned as an error.
func Resolve(fileSection, overrides map[string]any) (*Config, error) {
	merged := make(map[string]any, len(fileSection)+len(overrides))
	for k, v := range fileSection {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	cfg := &Config{
		Endpoint:          str(merged, "endpoint"),
		Project:           str(merged, "project"),
		LaunchID:          str(merged, "launch_id"),
		LaunchName:        str(merged, "launch_name"),
		LaunchDescription: str(merged, "launch_description"),
		LaunchAttributes:  list(merged, "launch_attributes"),
		RerunOf:           str(merged, "rerun_of"),
	}
	if cfg.LaunchName == "" {
		cfg.LaunchName = DefaultLaunchName
	}
	cfg.DebugMode, _ = GetBool(merged["debug_mode"])
	cfg.IsSkippedAnIssue, _ = GetBool(merged["is_skipped_an_issue"])
	cfg.Rerun, _ = GetBool(merged["rerun"])

	var err error
	if cfg.Retries, err = integer(merged, "retries", DefaultRetries); err != nil {
		return nil, err
	}
	if cfg.LogBatchSize, err = integer(merged, "log_batch_size", DefaultLogBatchSize); err != nil {
		return nil, err
	}
	if cfg.LogBatchPayloadSize, err = integer(merged, "log_batch_payload_size", DefaultLogBatchPayloadSize); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = seconds(merged, "http_timeout", DefaultHTTPTimeout); err != nil {
		return nil, err
	}

	layout := str(merged, "log_layout")
	stepBased := str(merged, "step_based")
	if stepBased != "" && layout == "" {
		slog.Warn("'step_based' config setting has been deprecated in favor of the new log_layout configuration")
		if b, _ := GetBool(stepBased); b {
			cfg.LogLayout = LayoutStep
		} else {
			cfg.LogLayout = LayoutScenario
		}
	} else {
		cfg.LogLayout = ParseLogLayout(layout)
	}

	cfg.APIKey = str(merged, "api_key")
	if cfg.APIKey == "" {
		if token := str(merged, "token"); token != "" {
			slog.Warn("'token' config setting is deprecated, use 'api_key' instead")
			cfg.APIKey = token
		}
		if cfg.APIKey == "" {
			slog.Warn("'api_key' is empty; ReportPortal usually requires an authorization key")
		}
	}

	cfg.Enabled = cfg.Endpoint != "" && cfg.Project != "" && cfg.APIKey != ""
	return cfg, nil
}

// GetBool converts a native bool or a "true"/"false"/"1"/"0" string
// (case-insensitive) into a bool. ok is false for anything else.
func GetBool(v any) (value bool, ok bool) {
	switch b := v.(type) {
	case nil:
		return false, false
	case bool:
		return b, true
	}
	switch strings.ToLower(strings.TrimSpace(toString(v))) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

func str(m map[string]any, key string) string {
	return strings.TrimSpace(toString(m[key]))
}

func list(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(toString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		fields := strings.Fields(toString(v))
		if len(fields) == 0 {
			return nil
		}
		return fields
	}
}

func integer(m map[string]any, key string, def int) (int, error) {
	s := str(m, key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, key, s)
	}
	return n, nil
}

func seconds(m map[string]any, key string, def time.Duration) (time.Duration, error) {
	s := str(m, key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, key, s)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// SetAPIKey sets a credential found outside the configuration sources and
// recomputes Enabled
func (c *Config) SetAPIKey(key string) {
	c.APIKey = key
	c.Enabled = c.Endpoint != "" && c.Project != "" && c.APIKey != ""
}
