package theory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML decodes an override document and merges it over base. Map
// entries in the document replace the base entry with the same key, so a
// document can add a custom genre or groove without restating the rest of
// the tables. The merged result is validated by New.
func LoadYAML(r io.Reader, base Tables) (*Theory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read theory document: %w", err)
	}

	var override Tables
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&override); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode theory document: %w", err)
	}

	return New(Merge(base, override))
}

// LoadFile reads a YAML override file and merges it over the built-in tables
func LoadFile(path string) (*Theory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open theory file: %w", err)
	}
	defer f.Close()

	th, err := LoadYAML(f, DefaultTables())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return th, nil
}

// Merge returns base with every entry present in override laid over it
func Merge(base, override Tables) Tables {
	out := cloneTables(base)

	mergeMap(out.Qualities, override.Qualities, cloneInts)
	mergeMap(out.Symbols, override.Symbols, func(s Symbol) Symbol { return s })
	mergeMap(out.Modes, override.Modes, cloneInts)
	mergeMap(out.Progressions, override.Progressions, cloneStrings)
	mergeMap(out.Sections, override.Sections, cloneStrings)
	mergeMap(out.Percussion, override.Percussion, func(k int) int { return k })
	mergeMap(out.Grooves, override.Grooves, func(g []Hit) []Hit {
		c := make([]Hit, len(g))
		copy(c, g)
		return c
	})
	mergeMap(out.BassPatterns, override.BassPatterns, cloneInts)
	mergeMap(out.CompPatterns, override.CompPatterns, cloneFloats)
	mergeMap(out.Dynamics, override.Dynamics, func(d Dynamics) Dynamics { return d })
	mergeMap(out.Genres, override.Genres, cloneGenre)

	if override.DefaultSection != "" {
		out.DefaultSection = override.DefaultSection
	}
	if override.DefaultDynamics != "" {
		out.DefaultDynamics = override.DefaultDynamics
	}
	if override.FallbackGenre != "" {
		out.FallbackGenre = override.FallbackGenre
	}
	return out
}

func mergeMap[V any](dst, src map[string]V, clone func(V) V) {
	for k, v := range src {
		dst[k] = clone(v)
	}
}
