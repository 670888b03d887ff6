// Package sink encodes arrangements into playable or storable formats
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Conceptual-Machines/magda-accompanist/internal/models"
)

// Encoder writes an arrangement in one container format
type Encoder interface {
	Encode(w io.Writer, arr models.Arrangement) error
	ContentType() string
	Extension() string
}

// JSONEncoder writes the arrangement as JSON
type JSONEncoder struct {
	Indent bool
}

func (e *JSONEncoder) ContentType() string { return "application/json" }
func (e *JSONEncoder) Extension() string   { return ".json" }

func (e *JSONEncoder) Encode(w io.Writer, arr models.Arrangement) error {
	enc := json.NewEncoder(w)
	if e.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(arr); err != nil {
		return fmt.Errorf("failed to encode arrangement: %w", err)
	}
	return nil
}

// ForFormat returns the encoder for "midi"/"mid" or "json"
func ForFormat(format string) (Encoder, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", "mid", "midi":
		return NewMIDIEncoder(), nil
	case "json":
		return &JSONEncoder{Indent: true}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteFile encodes the arrangement to path, creating parent directories.
// The encoder's extension is appended when path has none.
func WriteFile(path string, enc Encoder, arr models.Arrangement) (string, error) {
	if filepath.Ext(path) == "" {
		path += enc.Extension()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := enc.Encode(f, arr); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}
