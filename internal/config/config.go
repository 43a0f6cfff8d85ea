package config

import (
	"fmt"
	"os"
	"strings"
)

// DefaultTemplatePath is the template rendered when --file is not given.
const DefaultTemplatePath = "app.yaml"

// DefaultProfile is the token profile used when --profile is not given.
const DefaultProfile = "storage"

type Config struct {
	TemplatePath string            `mapstructure:"file"`
	Profile      string            `mapstructure:"profile"`
	Profiles     []ProfileConfig   `mapstructure:"profiles"`
	Values       map[string]string `mapstructure:"values"`
	ValuesFile   string            `mapstructure:"values_file"`
	ValuesPath   string            `mapstructure:"values_path"`
	Stdout       bool              `mapstructure:"stdout"`
	Backup       bool              `mapstructure:"backup"`
	Lock         bool              `mapstructure:"lock"`
	Strict       bool              `mapstructure:"strict"`
	Summary      bool              `mapstructure:"summary"`
	JSONOutput   bool              `mapstructure:"json_output"`
	LogLevel     string            `mapstructure:"log_level"`
	Tracing      TracingConfig     `mapstructure:"tracing"`
	ConfigFile   string            `mapstructure:"-"`
	// Args holds the positional values in command-line order.
	Args []string `mapstructure:"-"`
}

// ProfileConfig declares a named, ordered token set in the config file.
type ProfileConfig struct {
	Name   string        `mapstructure:"name"`
	Tokens []TokenConfig `mapstructure:"tokens"`
}

// TokenConfig binds a value name to the literal token it replaces.
type TokenConfig struct {
	Name  string `mapstructure:"name"`
	Token string `mapstructure:"token"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether an OTLP endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate defaults to Enabled unless explicitly set.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks settings that do not depend on the template or the
// supplied values. Value counts are checked later, when binding to a profile.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TemplatePath) == "" {
		issues = append(issues, "file is required")
	}
	if strings.TrimSpace(c.Profile) == "" {
		issues = append(issues, "profile is required")
	}
	if c.Stdout && c.Backup {
		issues = append(issues, "stdout and backup are mutually exclusive")
	}
	if strings.TrimSpace(c.ValuesPath) != "" && strings.TrimSpace(c.ValuesFile) == "" {
		issues = append(issues, "values_path requires values_file")
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log_level %q is not supported", c.LogLevel))
	}

	for key := range c.Values {
		if strings.TrimSpace(key) == "" {
			issues = append(issues, "values: name cannot be empty")
			break
		}
	}

	issues = append(issues, validateProfiles(c.Profiles)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateProfiles(profiles []ProfileConfig) []string {
	var issues []string
	seenProfiles := map[string]int{}
	for idx, p := range profiles {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			issues = append(issues, fmt.Sprintf("profiles[%d]: name is required", idx))
		} else if prev, ok := seenProfiles[name]; ok {
			issues = append(issues, fmt.Sprintf("profiles[%d]: duplicate name also defined at index %d", idx, prev))
		} else {
			seenProfiles[name] = idx
		}

		if len(p.Tokens) == 0 {
			issues = append(issues, fmt.Sprintf("profiles[%d]: at least one token is required", idx))
		}
		seenNames := map[string]int{}
		seenTokens := map[string]int{}
		for tIdx, tok := range p.Tokens {
			if tok.Token == "" {
				issues = append(issues, fmt.Sprintf("profiles[%d].tokens[%d]: token cannot be empty", idx, tIdx))
			} else if prev, ok := seenTokens[tok.Token]; ok {
				issues = append(issues, fmt.Sprintf("profiles[%d].tokens[%d]: token %q also defined at index %d", idx, tIdx, tok.Token, prev))
			} else {
				seenTokens[tok.Token] = tIdx
			}

			tokName := strings.ToLower(strings.TrimSpace(tok.Name))
			if tokName == "" {
				issues = append(issues, fmt.Sprintf("profiles[%d].tokens[%d]: name is required", idx, tIdx))
			} else if prev, ok := seenNames[tokName]; ok {
				issues = append(issues, fmt.Sprintf("profiles[%d].tokens[%d]: name %q also defined at index %d", idx, tIdx, tok.Name, prev))
			} else {
				seenNames[tokName] = tIdx
			}
		}
	}
	return issues
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
