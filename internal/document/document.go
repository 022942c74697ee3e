// Package document converts grids to and from the versioned on-disk profile
// format. JSON is the default encoding; YAML carries the same envelope.
//
// Encoding is deterministic: field order is fixed by the wire structs and
// biases are written with consistent precision, so exporting an unchanged
// grid twice yields identical bytes.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"mandala/internal/grid"
)

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user-supplied name onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown document format %q (valid: json, yaml)", s)
}

// FormatFromPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// DetectFormat picks the encoding of data read from path. A .json, .yaml or
// .yml extension decides; otherwise a leading '{' means JSON and anything
// else is read as YAML.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// supportedVersions lists the version tags Decode accepts.
var supportedVersions = map[string]bool{
	"1.0":               true,
	grid.DefaultVersion: true,
}

// SupportedVersion reports whether Decode accepts version v.
func SupportedVersion(v string) bool {
	return supportedVersions[v]
}

// Bias is a float64 that always marshals with at least two decimals.
type Bias float64

// MarshalJSON writes the bias as a bare number, e.g. 1.00 or 0.95.
func (b Bias) MarshalJSON() ([]byte, error) {
	return []byte(grid.FormatBias(float64(b))), nil
}

// MarshalYAML writes the bias as a float scalar with the same precision as JSON.
func (b Bias) MarshalYAML() (interface{}, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: grid.FormatBias(float64(b))}, nil
}

// envelope is the outer wrapper written to disk.
type envelope struct {
	Grid *body `json:"mandala_grid" yaml:"mandala_grid"`
}

type body struct {
	Version     string     `json:"version" yaml:"version"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Positions   []position `json:"positions" yaml:"positions"`
}

type position struct {
	Index       int        `json:"index" yaml:"index"`
	Label       string     `json:"label" yaml:"label"`
	LabelZH     string     `json:"label_zh,omitempty" yaml:"label_zh,omitempty"`
	Symbol      string     `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	SymbolZH    string     `json:"symbol_zh,omitempty" yaml:"symbol_zh,omitempty"`
	Function    string     `json:"function,omitempty" yaml:"function,omitempty"`
	Bias        Bias       `json:"bias" yaml:"bias"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Cell        *grid.Cell `json:"grid_position" yaml:"grid_position"`
}

// Encode renders g as a document. g must be valid.
func Encode(g *grid.Grid, format Format) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if !SupportedVersion(g.Version()) {
		return nil, grid.Errorf(grid.KindInvalidGrid, "version %q cannot be written", g.Version())
	}

	env := envelope{Grid: &body{
		Version:     g.Version(),
		Name:        g.Name(),
		Description: g.Description(),
	}}
	for _, p := range g.Positions() {
		cell := p.Cell
		env.Grid.Positions = append(env.Grid.Positions, position{
			Index:       p.Index,
			Label:       p.Label,
			LabelZH:     p.LabelZH,
			Symbol:      p.Symbol,
			SymbolZH:    p.SymbolZH,
			Function:    p.Function,
			Bias:        Bias(p.Bias),
			Description: p.Description,
			Cell:        &cell,
		})
	}

	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(env); err != nil {
			return nil, fmt.Errorf("failed to encode yaml document: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to flush yaml document: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON, "":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			return nil, fmt.Errorf("failed to encode json document: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown document format %q", format)
}

// rawPosition mirrors position with every field optional so Decode can tell
// missing from zero. consciousness/consciousness_zh are the older names for
// symbol/symbol_zh.
type rawPosition struct {
	Index           *int       `json:"index" yaml:"index"`
	Label           *string    `json:"label" yaml:"label"`
	LabelZH         string     `json:"label_zh" yaml:"label_zh"`
	Symbol          string     `json:"symbol" yaml:"symbol"`
	SymbolZH        string     `json:"symbol_zh" yaml:"symbol_zh"`
	Consciousness   string     `json:"consciousness" yaml:"consciousness"`
	ConsciousnessZH string     `json:"consciousness_zh" yaml:"consciousness_zh"`
	Function        string     `json:"function" yaml:"function"`
	Bias            *float64   `json:"bias" yaml:"bias"`
	Description     string     `json:"description" yaml:"description"`
	Cell            *grid.Cell `json:"grid_position" yaml:"grid_position"`
}

type rawBody struct {
	Version     *string        `json:"version" yaml:"version"`
	Name        *string        `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Positions   *[]rawPosition `json:"positions" yaml:"positions"`
}

// rawDocument accepts both the wrapped envelope and a bare body.
type rawDocument struct {
	Grid    *rawBody `json:"mandala_grid" yaml:"mandala_grid"`
	rawBody `yaml:",inline"`
}

func malformed(format string, args ...interface{}) error {
	return grid.Errorf(grid.KindMalformedDocument, format, args...)
}

// Decode parses a document and returns the validated grid.
//
// Structural problems (syntax, missing fields, unknown version, duplicate or
// incomplete indices) are KindMalformedDocument. A document that parses but
// violates a grid invariant, such as a bias of 1.5, is KindInvalidGrid.
func Decode(data []byte, format Format) (*grid.Grid, error) {
	var doc rawDocument
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, grid.Wrap(grid.KindMalformedDocument, err, "invalid yaml")
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, grid.Wrap(grid.KindMalformedDocument, err, "invalid json")
		}
	default:
		return nil, fmt.Errorf("unknown document format %q", format)
	}

	b := doc.Grid
	if b == nil {
		b = &doc.rawBody
	}

	if b.Version == nil || *b.Version == "" {
		return nil, malformed("missing version")
	}
	if !SupportedVersion(*b.Version) {
		return nil, malformed("unrecognized version %q", *b.Version)
	}
	if b.Positions == nil {
		return nil, malformed("missing positions")
	}

	name := "custom"
	if b.Name != nil {
		name = *b.Name
	}

	seen := make(map[int]bool, grid.Size)
	positions := make([]grid.Position, 0, len(*b.Positions))
	for i, rp := range *b.Positions {
		if rp.Index == nil {
			return nil, malformed("position #%d: missing index", i)
		}
		idx := *rp.Index
		if rp.Label == nil {
			return nil, malformed("position %d: missing label", idx)
		}
		if rp.Bias == nil {
			return nil, malformed("position %d: missing bias", idx)
		}
		if idx < 0 || idx >= grid.Size {
			return nil, malformed("position #%d: index %d outside 0..%d", i, idx, grid.Size-1)
		}
		if seen[idx] {
			return nil, malformed("duplicate index %d", idx)
		}
		seen[idx] = true

		cell, _ := grid.CanonicalCell(idx)
		if rp.Cell != nil {
			cell = *rp.Cell
		}
		symbol, symbolZH := rp.Symbol, rp.SymbolZH
		if symbol == "" {
			symbol = rp.Consciousness
		}
		if symbolZH == "" {
			symbolZH = rp.ConsciousnessZH
		}

		positions = append(positions, grid.Position{
			Index:       idx,
			Label:       *rp.Label,
			LabelZH:     rp.LabelZH,
			Symbol:      symbol,
			SymbolZH:    symbolZH,
			Function:    rp.Function,
			Bias:        *rp.Bias,
			Description: rp.Description,
			Cell:        cell,
		})
	}

	var missing []string
	for i := 0; i < grid.Size; i++ {
		if !seen[i] {
			missing = append(missing, strconv.Itoa(i))
		}
	}
	if len(missing) > 0 {
		return nil, malformed("missing index %s", strings.Join(missing, ", "))
	}

	g := grid.New(*b.Version, name, b.Description, positions)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
