package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// JSON renders the document as indented JSON.
func (d *Document) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: render json: %w", err)
	}
	return out, nil
}

// YAML renders the document as YAML with two-space indentation.
func (d *Document) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("openapi: render yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("openapi: render yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// Format is an output format of Render.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Render renders the document in format.
func (d *Document) Render(format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return d.JSON()
	case FormatYAML, "yml":
		return d.YAML()
	default:
		return nil, fmt.Errorf("openapi: unsupported format %q", format)
	}
}
