package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct {
	out io.Writer
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{out: os.Stdout}
}

// WithOutput sets where help text is written.
func (l *Loader) WithOutput(w io.Writer) *Loader {
	if w != nil {
		l.out = w
	}
	return l
}

// Load parses command-line arguments and an optional configuration file.
// Flags override file settings. Flags come first; everything from the first
// non-flag argument on is kept, in order, as a positional value.
func (l *Loader) Load(args []string) (*Config, error) {
	out := l.out
	if out == nil {
		out = os.Stdout
	}
	cmd := newFlagCommand(out)
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		TemplatePath: DefaultTemplatePath,
		Profile:      DefaultProfile,
		Values:       map[string]string{},
		Lock:         true,
		LogLevel:     "warn",
		ConfigFile:   configPath,
		Tracing:      TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.TemplatePath = strings.TrimSpace(cfg.TemplatePath)
	cfg.Profile = strings.ToLower(strings.TrimSpace(cfg.Profile))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.JSONOutput {
		cfg.Summary = true
	}
	cfg.Args = append([]string(nil), flagSet.Args()...)

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "file", "template"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("file: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			cfg.TemplatePath = val
		}
	}

	if raw, ok := lookupSetting(settings, "profile"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			cfg.Profile = val
		}
	}

	if raw, ok := lookupSetting(settings, "profiles"); ok {
		profiles, err := parseProfiles(raw)
		if err != nil {
			return fmt.Errorf("profiles: %w", err)
		}
		cfg.Profiles = profiles
	}

	if raw, ok := lookupSetting(settings, "values"); ok {
		vals, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("values: %w", err)
		}
		if cfg.Values == nil {
			cfg.Values = map[string]string{}
		}
		for k, v := range vals {
			cfg.Values[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}

	if raw, ok := lookupSetting(settings, "valuesfile", "values_file", "values-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("values_file: %w", err)
		}
		cfg.ValuesFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "valuespath", "values_path", "values-path"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("values_path: %w", err)
		}
		cfg.ValuesPath = strings.TrimSpace(val)
	}

	boolSettings := []struct {
		target *bool
		label  string
		keys   []string
	}{
		{&cfg.Stdout, "stdout", []string{"stdout"}},
		{&cfg.Backup, "backup", []string{"backup"}},
		{&cfg.Lock, "lock", []string{"lock"}},
		{&cfg.Strict, "strict", []string{"strict"}},
		{&cfg.Summary, "summary", []string{"summary"}},
		{&cfg.JSONOutput, "json_output", []string{"jsonoutput", "json_output", "json-output"}},
	}
	for _, s := range boolSettings {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.label, err)
		}
		*s.target = val
	}

	if raw, ok := lookupSetting(settings, "loglevel", "log_level", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		cfg.LogLevel = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracingConfig(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseProfiles(value interface{}) ([]ProfileConfig, error) {
	if value == nil {
		return nil, nil
	}
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	profiles := make([]ProfileConfig, 0, len(items))
	for idx, item := range items {
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		profile, err := buildProfileConfig(entry)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func buildProfileConfig(settings map[string]interface{}) (ProfileConfig, error) {
	var profile ProfileConfig
	if raw, ok := lookupSetting(settings, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return ProfileConfig{}, fmt.Errorf("name: %w", err)
		}
		profile.Name = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "tokens"); ok {
		items, err := toInterfaceSlice(raw)
		if err != nil {
			if tokens, sliceErr := asStringSlice(raw); sliceErr == nil {
				items = make([]interface{}, len(tokens))
				for i, tok := range tokens {
					items[i] = tok
				}
			} else {
				return ProfileConfig{}, fmt.Errorf("tokens: %w", err)
			}
		}
		for idx, item := range items {
			tok, err := buildTokenConfig(item)
			if err != nil {
				return ProfileConfig{}, fmt.Errorf("tokens[%d]: %w", idx, err)
			}
			profile.Tokens = append(profile.Tokens, tok)
		}
	}
	return profile, nil
}

// buildTokenConfig accepts either {name, token} or a bare token string, in
// which case the name is the token without its leading '#' markers.
func buildTokenConfig(item interface{}) (TokenConfig, error) {
	if s, ok := item.(string); ok {
		return TokenConfig{Name: NameForToken(s), Token: s}, nil
	}
	entry, err := toStringKeyMap(item)
	if err != nil {
		return TokenConfig{}, err
	}
	var tok TokenConfig
	if raw, ok := lookupSetting(entry, "token"); ok {
		val, err := asString(raw)
		if err != nil {
			return TokenConfig{}, fmt.Errorf("token: %w", err)
		}
		tok.Token = val
	}
	if raw, ok := lookupSetting(entry, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TokenConfig{}, fmt.Errorf("name: %w", err)
		}
		tok.Name = strings.ToLower(strings.TrimSpace(val))
	}
	if tok.Name == "" {
		tok.Name = NameForToken(tok.Token)
	}
	return tok, nil
}

// NameForToken derives a value name from a token: "##PROJECT_ID" becomes "project_id".
func NameForToken(token string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(token), "#"))
}

func parseTracingConfig(value interface{}, base TracingConfig) (TracingConfig, error) {
	if value == nil {
		return base, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	tracing := base
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		tracing.Propagate = &val
	}
	return tracing, nil
}
