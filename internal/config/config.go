// Package config loads the settings consumed by the search and LLM clients.
//
// Precedence is explicit argument (applied by the caller) > environment >
// optional YAML file > built-in default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is the optional settings file read from the working directory.
const DefaultFile = "muse.yaml"

type Config struct {
	LLM       LLMConfig
	Search    SearchConfig
	YouTube   YouTubeConfig
	Trace     TraceConfig
	Telemetry TelemetryConfig
}

type LLMConfig struct {
	BaseURL     string
	APIStyle    string // openai, ollama or empty for auto-detect
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	LogDir      string
	LogJSON     bool
	Echo        bool
	EchoChars   int
}

type SearchConfig struct {
	APIKey         string
	Endpoint       string
	Timeout        time.Duration
	Retries        int
	Backoff        float64
	ExcludeTerms   []string
	ExcludeDomains []string
	LogDir         string
}

type YouTubeConfig struct {
	APIKey string
}

type TraceConfig struct {
	// DB is the SQLite path of the trace index. Empty disables it.
	DB string
}

type TelemetryConfig struct {
	Stdout bool
}

// envKeys maps recognized environment variables to config keys.
var envKeys = map[string]string{
	"OPENAI_API_BASE":        "llm.base_url",
	"LLM_API_STYLE":          "llm.api_style",
	"OPENAI_API_KEY":         "llm.api_key",
	"MODEL":                  "llm.model",
	"LLM_TEMPERATURE":        "llm.temperature",
	"LLM_TIMEOUT":            "llm.timeout",
	"LLM_LOG_DIR":            "llm.log_dir",
	"LOG_LLM_JSON":           "llm.log_json",
	"LOG_LLM_ECHO":           "llm.echo",
	"LOG_LLM_ECHO_CHARS":     "llm.echo_chars",
	"SERPER_API_KEY":         "search.api_key",
	"SERPER_ENDPOINT":        "search.endpoint",
	"SERPER_TIMEOUT":         "search.timeout",
	"SERPER_RETRIES":         "search.retries",
	"SERPER_BACKOFF":         "search.backoff",
	"SEARCH_EXCLUDE_TERMS":   "search.exclude_terms",
	"SEARCH_EXCLUDE_DOMAINS": "search.exclude_domains",
	"TOOLS_LOG_DIR":          "search.log_dir",
	"YOUTUBE_API_KEY":        "youtube.api_key",
	"TRACE_DB":               "trace.db",
	"OTEL_STDOUT":            "telemetry.stdout",
}

var defaults = map[string]any{
	"llm.base_url":    "http://localhost:11434",
	"llm.model":       "qwen2.5:7b-instruct",
	"llm.temperature": 0.2,
	"llm.timeout":     600,
	"llm.log_dir":     "logs/llm",
	"llm.echo_chars":  1200,
	"search.endpoint": "https://google.serper.dev/search",
	"search.timeout":  30,
	"search.retries":  3,
	"search.backoff":  1.5,
	"search.log_dir":  "logs/tools",
}

// Load reads DefaultFile (if present) and the environment.
func Load() (*Config, error) {
	return LoadFile(DefaultFile)
}

// LoadFile reads the given YAML file (missing is fine) and the environment.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: load %s: %w", path, err)
			}
		}
	}

	// Environment overrides the file
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	for key, val := range defaults {
		if !k.Exists(key) || strings.TrimSpace(k.String(key)) == "" {
			k.Set(key, val)
		}
	}

	return build(k), nil
}

func build(k *koanf.Koanf) *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     strings.TrimRight(strings.TrimSpace(k.String("llm.base_url")), "/"),
			APIStyle:    strings.ToLower(strings.TrimSpace(k.String("llm.api_style"))),
			APIKey:      strings.TrimSpace(k.String("llm.api_key")),
			Model:       strings.TrimSpace(k.String("llm.model")),
			Temperature: Float(k.String("llm.temperature"), 0.2),
			Timeout:     Seconds(k.String("llm.timeout"), 600*time.Second),
			LogDir:      k.String("llm.log_dir"),
			LogJSON:     Bool(k.String("llm.log_json"), false),
			Echo:        Bool(k.String("llm.echo"), false),
			EchoChars:   Int(k.String("llm.echo_chars"), 1200),
		},
		Search: SearchConfig{
			APIKey:         strings.TrimSpace(k.String("search.api_key")),
			Endpoint:       strings.TrimSpace(k.String("search.endpoint")),
			Timeout:        Seconds(k.String("search.timeout"), 30*time.Second),
			Retries:        Int(k.String("search.retries"), 3),
			Backoff:        Float(k.String("search.backoff"), 1.5),
			ExcludeTerms:   list(k, "search.exclude_terms"),
			ExcludeDomains: list(k, "search.exclude_domains"),
			LogDir:         k.String("search.log_dir"),
		},
		YouTube: YouTubeConfig{
			APIKey: strings.TrimSpace(k.String("youtube.api_key")),
		},
		Trace: TraceConfig{
			DB: strings.TrimSpace(k.String("trace.db")),
		},
		Telemetry: TelemetryConfig{
			Stdout: Bool(k.String("telemetry.stdout"), false),
		},
	}
}

// list accepts either a YAML sequence or a comma separated string.
func list(k *koanf.Koanf, key string) []string {
	var raw []string
	switch v := k.Get(key).(type) {
	case nil:
		return nil
	case string:
		raw = strings.Split(v, ",")
	default:
		raw = k.Strings(key)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
