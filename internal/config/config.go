package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for domainbot.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Router   RouterConfig   `json:"router"`
	Dispatch DispatchConfig `json:"dispatch"`
	Policies PoliciesConfig `json:"policies"`
	Fixtures FixturesConfig `json:"fixtures"`
	Metrics  MetricsConfig  `json:"metrics"`
	Model    ModelConfig    `json:"model"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"` // "debug" | "info" | "warn" | "error"
	LogFile  string `json:"logFile,omitempty"`
}

// RouterConfig configures which domain handles a request.
type RouterConfig struct {
	DefaultDomain string                 `json:"defaultDomain"`
	Domains       map[string]DomainRoute `json:"domains,omitempty"`
}

// DomainRoute lists the keywords that send a request to a domain.
type DomainRoute struct {
	Keywords []string `json:"keywords"`
}

// DispatchConfig bounds capability gathering.
type DispatchConfig struct {
	ProviderTimeoutMs      int `json:"providerTimeoutMs"`
	MaxConcurrentProviders int `json:"maxConcurrentProviders"`
}

// PoliciesConfig points at optional YAML rule table overrides.
type PoliciesConfig struct {
	RulesDir string `json:"rulesDir,omitempty"`
}

// FixturesConfig supplies canned capability payloads (no provider I/O).
// Inline entries win over files in Dir with the same capability.
type FixturesConfig struct {
	Dir    string         `json:"dir,omitempty"`
	Inline map[string]any `json:"inline,omitempty"`
}

type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// ModelConfig lists language model endpoints tried in order. An empty chain
// leaves userMessage to the caller (--model-text).
type ModelConfig struct {
	Chain     []ModelEndpoint `json:"chain,omitempty"`
	TimeoutMs int             `json:"timeoutMs"`
}

// ModelEndpoint is one language model API in the chain.
type ModelEndpoint struct {
	Kind    string `json:"kind"` // "ollama" | "openai"
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.domainbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".domainbot"
	}
	return filepath.Join(home, ".domainbot")
}

// DefaultConfigPath returns ~/.domainbot/config.json.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads a JSON config over the defaults, expands ${VAR} references and
// ~ paths, then validates the result.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Policies.RulesDir = ExpandPath(cfg.Policies.RulesDir)
	cfg.Fixtures.Dir = ExpandPath(cfg.Fixtures.Dir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty; an unset
// variable without a default is left as written.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

// Save writes cfg as indented JSON, creating the directory if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if _, err := ParseLogLevel(cfg.General.LogLevel); err != nil {
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if strings.TrimSpace(cfg.Router.DefaultDomain) == "" {
		errs = append(errs, "router.defaultDomain is required")
	}
	for name, route := range cfg.Router.Domains {
		if len(route.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("router.domains.%s: at least one keyword is required", name))
		}
		for _, kw := range route.Keywords {
			if strings.TrimSpace(kw) == "" {
				errs = append(errs, fmt.Sprintf("router.domains.%s: empty keyword", name))
				break
			}
		}
	}

	if cfg.Dispatch.ProviderTimeoutMs < 1 || cfg.Dispatch.ProviderTimeoutMs > 60000 {
		errs = append(errs, "dispatch.providerTimeoutMs must be between 1 and 60000")
	}
	if cfg.Dispatch.MaxConcurrentProviders < 1 || cfg.Dispatch.MaxConcurrentProviders > 64 {
		errs = append(errs, "dispatch.maxConcurrentProviders must be between 1 and 64")
	}

	if cfg.Model.TimeoutMs < 0 || cfg.Model.TimeoutMs > 600000 {
		errs = append(errs, "model.timeoutMs must be between 0 and 600000")
	}
	for i, ep := range cfg.Model.Chain {
		switch ep.Kind {
		case "ollama":
		case "openai":
			if ep.APIKey == "" {
				errs = append(errs, fmt.Sprintf("model.chain[%d]: openai requires apiKey", i))
			}
		default:
			errs = append(errs, fmt.Sprintf("model.chain[%d]: unknown kind %q (want ollama or openai)", i, ep.Kind))
		}
	}

	for name := range cfg.Fixtures.Inline {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, "fixtures.inline: empty capability name")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ParseLogLevel maps a config log level to slog. Empty means info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
