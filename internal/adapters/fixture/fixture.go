// Package fixture reads and writes visualization snapshots as JSON or YAML
// files for offline use.
package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/orrery/internal/domain"
	"gopkg.in/yaml.v3"
)

// Format identifies a fixture encoding.
type Format string

// Format values.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat reports an unknown fixture encoding.
var ErrUnsupportedFormat = errors.New("unsupported fixture format")

// ParseFormat normalizes one raw format name.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// FormatFor infers the format from a file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode reads one snapshot from r and normalizes it.
func Decode(r io.Reader, format Format) (domain.VisualizationData, error) {
	var data domain.VisualizationData
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&data); err != nil {
			return domain.VisualizationData{}, fmt.Errorf("decode json fixture: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
			return domain.VisualizationData{}, fmt.Errorf("decode yaml fixture: %w", err)
		}
	default:
		return domain.VisualizationData{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return data.Normalize(), nil
}

// Encode writes one snapshot to w.
func Encode(w io.Writer, data domain.VisualizationData, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encode json fixture: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encode yaml fixture: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml fixture: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return nil
}

// Load reads one fixture file, inferring the format from its extension.
func Load(path string) (domain.VisualizationData, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.VisualizationData{}, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return Decode(f, FormatFor(path))
}

// Source serves a fixture file as a snapshot source. The file is re-read on
// every call so edits show up on the next poll.
type Source struct {
	path string
	now  func() time.Time
}

// NewSource constructs a fixture source for path.
func NewSource(path string, now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}
	return &Source{path: path, now: now}
}

// Path returns the fixture path.
func (s *Source) Path() string {
	return s.path
}

// Snapshot loads the fixture; a missing timestamp is stamped with the current time.
func (s *Source) Snapshot(ctx context.Context) (domain.VisualizationData, error) {
	if err := ctx.Err(); err != nil {
		return domain.VisualizationData{}, err
	}
	data, err := Load(s.path)
	if err != nil {
		return domain.VisualizationData{}, err
	}
	if data.Timestamp.IsZero() {
		data.Timestamp = s.now().UTC()
	}
	return data, nil
}
