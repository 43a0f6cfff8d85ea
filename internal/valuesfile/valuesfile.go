// Package valuesfile reads named values from dotenv, YAML or JSON files.
package valuesfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Values maps a value name to its raw string value.
type Values map[string]string

// Format identifies how a values file is decoded.
type Format string

const (
	FormatDotenv Format = "dotenv"
	FormatYAML   Format = "yaml"
	FormatJSON   Format = "json"
)

// DetectFormat picks a format from the file extension. Anything that is not
// YAML or JSON is read as dotenv.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatDotenv
	}
}

// Load reads the values file at path. selector is a gjson path into a JSON
// document and must be empty for other formats.
func Load(path, selector string) (Values, error) {
	format := DetectFormat(path)
	if selector != "" && format != FormatJSON {
		return nil, fmt.Errorf("values path is only supported for JSON files, got %s", format)
	}

	switch format {
	case FormatDotenv:
		return loadDotenv(path)
	case FormatYAML:
		return loadYAML(path)
	default:
		return loadJSON(path, selector)
	}
}

func loadDotenv(path string) (Values, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read dotenv file: %w", err)
	}
	return Values(env), nil
}

func loadYAML(path string) (Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open YAML file: %w", err)
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}

	values := make(Values, len(raw))
	for key, node := range raw {
		n := &node
		if n.Kind == yaml.AliasNode && n.Alias != nil {
			n = n.Alias
		}
		if n.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("value %q is not a scalar", key)
		}
		// Scalars keep their source text: 0x1F stays 0x1F, 1.50 stays 1.50.
		if n.Tag == "!!null" {
			values[key] = ""
			continue
		}
		values[key] = n.Value
	}
	return values, nil
}

func loadJSON(path, selector string) (Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open JSON file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode JSON: invalid document")
	}

	doc := gjson.ParseBytes(data)
	if selector != "" {
		doc = doc.Get(selector)
		if !doc.Exists() {
			return nil, fmt.Errorf("values path %q not found", selector)
		}
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("values must be a JSON object, got %s", doc.Type)
	}

	values := Values{}
	var scalarErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() || value.IsArray() {
			scalarErr = fmt.Errorf("value %q is not a scalar", key.String())
			return false
		}
		if value.Type == gjson.Number {
			values[key.String()] = value.Raw
		} else {
			values[key.String()] = value.String()
		}
		return true
	})
	if scalarErr != nil {
		return nil, scalarErr
	}
	return values, nil
}
