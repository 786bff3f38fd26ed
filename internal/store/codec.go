package store

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Paintersrp/cmdlaunch/internal/command"
)

// Format names an interchange encoding for import and export.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" and "yml" in any case.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want json or yaml)", value)
	}
}

// FormatFromPath infers the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSON
}

// Encode writes cmds to w in the requested format.
func Encode(w io.Writer, cmds []command.Command, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if cmds == nil {
			cmds = []command.Command{}
		}
		if err := enc.Encode(cmds); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		data, err := encodeJSON(cmds)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
}

// Decode reads a command list in the requested format. JSON input is checked
// against the command list schema; YAML input is validated field by field.
func Decode(r io.Reader, format Format) ([]command.Command, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		var cmds []command.Command
		if err := dec.Decode(&cmds); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return normalize(cmds)
	default:
		if strings.TrimSpace(string(data)) == "" {
			return []command.Command{}, nil
		}
		return decodeJSON(data)
	}
}
