package codec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Format names a graph file format.
type Format string

const (
	// FormatJSON is the lossless JSON graph document.
	FormatJSON Format = "json"
	// FormatYAML is the YAML authoring definition.
	FormatYAML Format = "yaml"
	// FormatHCL is the HCL authoring definition.
	FormatHCL Format = "hcl"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("unsupported graph file extension %q (want .json, .yaml, .yml or .hcl)", filepath.Ext(path))
}

// DecodeGraph decodes graph data in the given format. filename is only used
// in diagnostics.
func DecodeGraph(data []byte, format Format, filename string) (*domain.Graph, error) {
	switch format {
	case FormatJSON:
		return UnmarshalGraph(data)
	case FormatYAML:
		d, err := DecodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return d.Build()
	case FormatHCL:
		d, err := DecodeHCL(data, filename)
		if err != nil {
			return nil, err
		}
		return d.Build()
	}
	return nil, fmt.Errorf("unknown graph format %q", format)
}

// EncodeGraph encodes g in the given format. HCL is read-only.
func EncodeGraph(g *domain.Graph, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return MarshalGraph(g)
	case FormatYAML:
		d, err := DefinitionOf(g)
		if err != nil {
			return nil, fmt.Errorf("encode graph %q: %w", g.Name(), err)
		}
		return EncodeYAML(d)
	}
	return nil, fmt.Errorf("graph format %q cannot be written", format)
}

// ReadGraphFile loads a graph, choosing the format from the extension.
// A graph without a name is named after the file.
func ReadGraphFile(path string) (*domain.Graph, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}
	g, err := DecodeGraph(data, format, path)
	if err != nil {
		return nil, err
	}
	if g.Name() == "" {
		base := filepath.Base(path)
		g.Rename(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return g, nil
}
