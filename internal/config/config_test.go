package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullSection() map[string]any {
	return map[string]any{
		"endpoint":            "endpoint",
		"project":             "project",
		"api_key":             "api_key",
		"launch_name":         "launch_name",
		"launch_description":  "launch_description",
		"launch_attributes":   "X Y Z",
		"debug_mode":          "False",
		"log_layout":          "Step",
		"is_skipped_an_issue": "True",
		"retries":             "2",
		"rerun":               "True",
		"rerun_of":            "launch_id",
	}
}

func TestResolveFromFileSection(t *testing.T) {
	cfg, err := Resolve(fullSection(), nil)
	require.NoError(t, err)

	assert.Equal(t, "endpoint", cfg.Endpoint)
	assert.Equal(t, "project", cfg.Project)
	assert.Equal(t, "api_key", cfg.APIKey)
	assert.Equal(t, "launch_name", cfg.LaunchName)
	assert.Equal(t, "launch_description", cfg.LaunchDescription)
	assert.Equal(t, []string{"X", "Y", "Z"}, cfg.LaunchAttributes)
	assert.False(t, cfg.DebugMode)
	assert.Equal(t, LayoutStep, cfg.LogLayout)
	assert.True(t, cfg.IsSkippedAnIssue)
	assert.Equal(t, 2, cfg.Retries)
	assert.True(t, cfg.Rerun)
	assert.Equal(t, "launch_id", cfg.RerunOf)
	assert.True(t, cfg.Enabled)
}

func TestResolveOverridesWin(t *testing.T) {
	overrides := map[string]any{
		"launch_attributes":   "A B C",
		"debug_mode":          "True",
		"log_layout":          "Nested",
		"is_skipped_an_issue": "False",
		"retries":             3,
		"rerun":               "False",
		"rerun_of":            "rerun_launch_id",
	}
	cfg, err := Resolve(fullSection(), overrides)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, cfg.LaunchAttributes)
	assert.True(t, cfg.DebugMode)
	assert.Equal(t, LayoutNested, cfg.LogLayout)
	assert.False(t, cfg.IsSkippedAnIssue)
	assert.Equal(t, 3, cfg.Retries)
	assert.False(t, cfg.Rerun)
	assert.Equal(t, "rerun_launch_id", cfg.RerunOf)
	// untouched keys still come from the file
	assert.Equal(t, "launch_name", cfg.LaunchName)
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(nil, nil)
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, DefaultLaunchName, cfg.LaunchName)
	assert.Equal(t, LayoutScenario, cfg.LogLayout)
	assert.Equal(t, DefaultRetries, cfg.Retries)
	assert.Equal(t, DefaultLogBatchSize, cfg.LogBatchSize)
	assert.Equal(t, DefaultLogBatchPayloadSize, cfg.LogBatchPayloadSize)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Nil(t, cfg.LaunchAttributes)
	assert.False(t, cfg.DebugMode)
	assert.False(t, cfg.Rerun)
}

func TestResolveEnabled(t *testing.T) {
	tests := []struct {
		name    string
		section map[string]any
		enabled bool
	}{
		{"all present", map[string]any{"endpoint": "E", "project": "P", "api_key": "K"}, true},
		{"missing endpoint", map[string]any{"project": "P", "api_key": "K"}, false},
		{"empty project", map[string]any{"endpoint": "E", "project": "", "api_key": "K"}, false},
		{"missing key", map[string]any{"endpoint": "E", "project": "P"}, false},
		{"legacy token", map[string]any{"endpoint": "E", "project": "P", "token": "T"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Resolve(tt.section, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, cfg.Enabled)
		})
	}
}

func TestResolveToken(t *testing.T) {
	cfg, err := Resolve(map[string]any{"token": "legacy"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.APIKey)

	cfg, err = Resolve(map[string]any{"token": "legacy", "api_key": "canonical"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "canonical", cfg.APIKey)
}

func TestResolveStepBased(t *testing.T) {
	tests := []struct {
		name     string
		section  map[string]any
		expected LogLayout
	}{
		{"step based true", map[string]any{"step_based": "True"}, LayoutStep},
		{"step based native", map[string]any{"step_based": true}, LayoutStep},
		{"step based false", map[string]any{"step_based": "False"}, LayoutScenario},
		{"layout wins", map[string]any{"step_based": "True", "log_layout": "Nested"}, LayoutNested},
		{"layout scenario wins", map[string]any{"step_based": "True", "log_layout": "scenario"}, LayoutScenario},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Resolve(tt.section, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.LogLayout)
		})
	}
}

func TestResolveInvalidNumber(t *testing.T) {
	for _, key := range []string{"retries", "log_batch_size", "log_batch_payload_size", "http_timeout"} {
		t.Run(key, func(t *testing.T) {
			_, err := Resolve(nil, map[string]any{key: "abc"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidNumber))
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestResolveNumbers(t *testing.T) {
	cfg, err := Resolve(map[string]any{
		"retries":                "",
		"log_batch_size":         "5",
		"log_batch_payload_size": 1024,
		"http_timeout":           "1.5",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRetries, cfg.Retries)
	assert.Equal(t, 5, cfg.LogBatchSize)
	assert.Equal(t, 1024, cfg.LogBatchPayloadSize)
	assert.Equal(t, 1500*time.Millisecond, cfg.HTTPTimeout)
}

func TestGetBool(t *testing.T) {
	tests := []struct {
		in    any
		value bool
		ok    bool
	}{
		{nil, false, false},
		{"", false, false},
		{true, true, true},
		{false, false, true},
		{"TRUE", true, true},
		{"False", false, true},
		{"1", true, true},
		{"0", false, true},
		{"yes", false, false},
		{"not a bool", false, false},
	}
	for _, tt := range tests {
		value, ok := GetBool(tt.in)
		assert.Equal(t, tt.value, value, "value for %v", tt.in)
		assert.Equal(t, tt.ok, ok, "ok for %v", tt.in)
	}
}

func TestParseLogLayout(t *testing.T) {
	assert.Equal(t, LayoutStep, ParseLogLayout("step"))
	assert.Equal(t, LayoutStep, ParseLogLayout("STEP"))
	assert.Equal(t, LayoutStep, ParseLogLayout("Step"))
	assert.Equal(t, LayoutNested, ParseLogLayout("nested"))
	assert.Equal(t, LayoutScenario, ParseLogLayout("Scenario"))
	assert.Equal(t, LayoutScenario, ParseLogLayout(""))
	assert.Equal(t, LayoutScenario, ParseLogLayout("tree"))

	assert.True(t, LayoutNested.PerStep())
	assert.True(t, LayoutStep.PerStep())
	assert.False(t, LayoutScenario.PerStep())
	assert.Equal(t, "NESTED", LayoutNested.String())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(dir, "rp.yaml")
		content := `report_portal:
  endpoint: https://rp.example.com
  project: demo
  api_key: secret
  log_layout: nested
  rerun: true
  launch_attributes:
    - team:core
    - nightly
other:
  endpoint: ignored
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Load(path, map[string]any{"project": "override"})
		require.NoError(t, err)
		assert.Equal(t, "https://rp.example.com", cfg.Endpoint)
		assert.Equal(t, "override", cfg.Project)
		assert.Equal(t, LayoutNested, cfg.LogLayout)
		assert.True(t, cfg.Rerun)
		assert.Equal(t, []string{"team:core", "nightly"}, cfg.LaunchAttributes)
		assert.True(t, cfg.Enabled)
	})

	t.Run("json file with comments", func(t *testing.T) {
		path := filepath.Join(dir, "rp.json")
		content := `{
  // connection
  "report_portal": {
    "endpoint": "http://localhost:8080",
    "project": "p",
    "api_key": "k",
    "retries": 7,
  }
}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Load("", map[string]any{ConfigFileKey: path})
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", cfg.Endpoint)
		assert.Equal(t, 7, cfg.Retries)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(dir, "absent.yaml"), nil)
		require.NoError(t, err)
		assert.False(t, cfg.Enabled)
	})

	t.Run("environment below command line", func(t *testing.T) {
		t.Setenv("RP_ENDPOINT", "http://env")
		t.Setenv("RP_PROJECT", "env-project")
		t.Setenv("RP_API_KEY", "env-key")

		cfg, err := Load(filepath.Join(dir, "absent.yaml"), map[string]any{"project": "cli-project"})
		require.NoError(t, err)
		assert.Equal(t, "http://env", cfg.Endpoint)
		assert.Equal(t, "cli-project", cfg.Project)
		assert.True(t, cfg.Enabled)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("report_portal: [unclosed"), 0o644))
		_, err := Load(path, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestParseOverrides(t *testing.T) {
	out, err := ParseOverrides([]string{"endpoint=http://x", "launch_attributes=a b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, "http://x", out["endpoint"])
	assert.Equal(t, "a b", out["launch_attributes"])
	assert.Equal(t, "", out["empty"])

	_, err = ParseOverrides([]string{"novalue"})
	require.Error(t, err)
	_, err = ParseOverrides([]string{"=value"})
	require.Error(t, err)
}

func TestSetAPIKey(t *testing.T) {
	cfg, err := Resolve(map[string]any{"endpoint": "http://rp", "project": "p"}, nil)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)

	cfg.SetAPIKey("stored")
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "stored", cfg.APIKey)
}

func TestOverridesFromEnv(t *testing.T) {
	got := OverridesFromEnv(map[string]string{
		"RP_ENDPOINT":   "http://rp",
		"RP_LOG_LAYOUT": "nested",
		"RP_UNKNOWN":    "x",
		"HOME":          "/root",
	})
	assert.Equal(t, map[string]any{"endpoint": "http://rp", "log_layout": "nested"}, got)
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, DefaultConfigFile, ConfigPath("", nil))
	assert.Equal(t, "rp.yaml", ConfigPath("rp.yaml", nil))
	assert.Equal(t, "other.yaml", ConfigPath("rp.yaml", map[string]any{ConfigFileKey: "other.yaml"}))
}
