package render

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/sznuper/reachable/internal/runner"
)

// Format names an output mode accepted by --output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// JSON encodes report as indented JSON.
func JSON(report *runner.Report) ([]byte, error) {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report as json: %w", err)
	}
	return append(b, '\n'), nil
}

// YAML encodes report as a YAML document.
func YAML(report *runner.Report) ([]byte, error) {
	b, err := yaml.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encoding report as yaml: %w", err)
	}
	return b, nil
}

// Render dispatches on format. Color only affects text output.
func Render(report *runner.Report, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		return JSON(report)
	case FormatYAML:
		return YAML(report)
	default:
		s, err := Text(report, opts)
		return []byte(s), err
	}
}
