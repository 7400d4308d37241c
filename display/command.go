package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/chrono/errors"
)

// Format selects how a command writes structured output
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", errors.WithHint(
			errors.Newf("unknown output format %q", s),
			"use one of: text, json, yaml")
	}
}

// FormatFromCommand resolves the output format for cmd. An explicit
// --format wins; otherwise the global --json flag selects JSON.
func FormatFromCommand(cmd *cobra.Command) (Format, error) {
	if cmd == nil {
		return FormatText, nil
	}
	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		return ParseFormat(f.Value.String())
	}
	if jsonFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); jsonFlag {
		return FormatJSON, nil
	}
	if f := cmd.Flags().Lookup("format"); f != nil {
		return ParseFormat(f.Value.String())
	}
	return FormatText, nil
}

// MarshalJSON marshals v with two-space indentation
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Encode writes v to w in a structured format. FormatText is rejected:
// text rendering is specific to each command.
func Encode(w io.Writer, v interface{}, format Format) error {
	switch format {
	case FormatJSON:
		data, err := MarshalJSON(v)
		if err != nil {
			return errors.Wrap(err, "failed to marshal JSON")
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "failed to marshal YAML")
		}
		return enc.Close()
	default:
		return errors.Newf("format %q has no structured encoding", format)
	}
}

// OutputJSON prints v as indented JSON to stdout
func OutputJSON(v interface{}) error {
	return Encode(os.Stdout, v, FormatJSON)
}
