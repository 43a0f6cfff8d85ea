package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured. Flag
// parsing stops at the first value, so every value after it is positional
// even when it starts with '-'.
func newFlagCommand(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tokenfill [flags] [--] value...",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(out)
	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.SetOutput(out)
	configureFlags(flags)
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Template flags
	flags.StringP("file", "f", DefaultTemplatePath, "Template file rendered in place")
	flags.StringP("profile", "p", DefaultProfile, "Token profile: 'storage', 'mail' or one defined in the config file")

	// Value flags
	flags.StringArray("set", nil, "Named value in name=value form (repeatable)")
	flags.String("values-file", "", "File with named values (.env, .yaml, .yml or .json)")
	flags.String("values-path", "", "gjson path selecting the values object inside a JSON values file")

	// Write flags
	flags.Bool("stdout", false, "Print the rendered template to stdout and leave the file untouched")
	flags.Bool("backup", false, "Copy the template to <file>.<id>.bak before overwriting it")
	flags.Bool("no-lock", false, "Do not take an advisory lock on the template while rendering")
	flags.Bool("strict", false, "Fail without writing if any profile token remains after rendering")

	// Output flags
	flags.Bool("summary", false, "Print a render summary to stderr")
	flags.Bool("json-output", false, "Emit the render summary as JSON")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
	flags.BoolP("help", "h", false, "Show this help")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP endpoint for render spans (e.g. localhost:4317)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of renders to sample (0.0-1.0)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nValues are positional, in profile order, after all flags. Use -- when the first value starts with '-'.\n\nFlags:\n", cmd.UseLine())
	cmd.Flags().PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	stringFlags := []struct {
		name   string
		target *string
	}{
		{"file", &cfg.TemplatePath},
		{"profile", &cfg.Profile},
		{"values-file", &cfg.ValuesFile},
		{"values-path", &cfg.ValuesPath},
		{"log-level", &cfg.LogLevel},
		{"tracing-endpoint", &cfg.Tracing.Endpoint},
		{"tracing-protocol", &cfg.Tracing.Protocol},
	}
	for _, f := range stringFlags {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetString(f.name)
		if err != nil {
			return err
		}
		*f.target = strings.TrimSpace(val)
	}

	boolFlags := []struct {
		name   string
		target *bool
	}{
		{"stdout", &cfg.Stdout},
		{"backup", &cfg.Backup},
		{"strict", &cfg.Strict},
		{"summary", &cfg.Summary},
		{"json-output", &cfg.JSONOutput},
		{"tracing-insecure", &cfg.Tracing.Insecure},
	}
	for _, f := range boolFlags {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetBool(f.name)
		if err != nil {
			return err
		}
		*f.target = val
	}

	if fs.Changed("no-lock") {
		val, err := fs.GetBool("no-lock")
		if err != nil {
			return err
		}
		cfg.Lock = !val
	}

	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}

	vals, err := fs.GetStringArray("set")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Values == nil {
			cfg.Values = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("set must be in name=value format")
			}
			name := strings.ToLower(strings.TrimSpace(parts[0]))
			if name == "" {
				return fmt.Errorf("set name cannot be empty")
			}
			cfg.Values[name] = parts[1]
		}
	}

	return nil
}
