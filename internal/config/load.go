package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	yaml "gopkg.in/yaml.v3"
)

// ConfigFileKey is the override key selecting the config file path
const ConfigFileKey = "config_file"

// EnvPrefix prefixes every environment override, e.g. RP_ENDPOINT
const EnvPrefix = "RP_"

// Keys lists every setting the resolver understands
var Keys = []string{
	"endpoint",
	"project",
	"api_key",
	"token",
	"launch_id",
	"launch_name",
	"launch_description",
	"launch_attributes",
	"debug_mode",
	"log_layout",
	"step_based",
	"is_skipped_an_issue",
	"retries",
	"rerun",
	"rerun_of",
	"log_batch_size",
	"log_batch_payload_size",
	"http_timeout",
}

// ConfigPath returns the config file Load reads: the config_file override,
// then path, then DefaultConfigFile
func ConfigPath(path string, overrides map[string]any) string {
	if p := str(overrides, ConfigFileKey); p != "" {
		return p
	}
	if path == "" {
		return DefaultConfigFile
	}
	return path
}

// Load reads the report_portal section of the config file and resolves it
// with the environment and the given command-line overrides. The file is
// chosen by ConfigPath.
func Load(path string, overrides map[string]any) (*Config, error) {
	path = ConfigPath(path, overrides)

	section, err := ReadSection(path)
	if err != nil {
		return nil, err
	}

	merged := EnvOverrides()
	for k, v := range overrides {
		if k == ConfigFileKey {
			continue
		}
		merged[k] = v
	}
	return Resolve(section, merged)
}

// ReadSection returns the report_portal section of a YAML or JSON config
// file. A missing file or a file without the section yields an empty map.
func ReadSection(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	section, ok := doc[SectionName].(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return section, nil
}

// EnvOverrides collects RP_<KEY> environment variables for every known key
func EnvOverrides() map[string]any {
	return envOverrides(os.LookupEnv)
}

// OverridesFromEnv picks the RP_<KEY> entries out of a set of variables,
// such as the contents of a .env file
func OverridesFromEnv(env map[string]string) map[string]any {
	return envOverrides(func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	})
}

func envOverrides(lookup func(string) (string, bool)) map[string]any {
	out := make(map[string]any)
	for _, key := range Keys {
		if v, ok := lookup(EnvPrefix + strings.ToUpper(key)); ok {
			out[key] = v
		}
	}
	return out
}

// ParseOverrides turns key=value pairs into an override map
func ParseOverrides(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		key := strings.TrimSpace(parts[0])
		if len(parts) != 2 || key == "" {
			return nil, fmt.Errorf("invalid override %q, expected key=value", pair)
		}
		out[key] = strings.TrimSpace(parts[1])
	}
	return out, nil
}
