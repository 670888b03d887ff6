package theory

import (
	"errors"
	"fmt"
	"sort"
)

const beatsPerBar = 4.0

// ErrInvalidTheory is returned when a configuration fails validation
var ErrInvalidTheory = errors.New("invalid theory configuration")

// Theory is an immutable, validated set of harmony, rhythm and genre
// tables. All accessors return copies so callers cannot mutate it.
type Theory struct {
	tables Tables
}

// New validates the tables and returns an immutable Theory built from a
// deep copy of them.
func New(t Tables) (*Theory, error) {
	c := cloneTables(t)
	if err := validate(&c); err != nil {
		return nil, err
	}
	for name, groove := range c.Grooves {
		for i := range groove {
			groove[i].Key = c.Percussion[groove[i].Voice]
		}
		c.Grooves[name] = groove
	}
	return &Theory{tables: c}, nil
}

// Default returns the built-in theory
func Default() *Theory {
	th, err := New(DefaultTables())
	if err != nil {
		panic(fmt.Sprintf("built-in theory tables are invalid: %v", err))
	}
	return th
}

// Tables returns a deep copy of the underlying tables, e.g. as the base for
// an override document.
func (t *Theory) Tables() Tables {
	return cloneTables(t.tables)
}

// Symbol looks up a harmonic symbol
func (t *Theory) Symbol(label string) (Symbol, bool) {
	s, ok := t.tables.Symbols[label]
	return s, ok
}

// Quality returns the interval formula for a chord quality
func (t *Theory) Quality(name string) ([]int, bool) {
	f, ok := t.tables.Qualities[name]
	return cloneInts(f), ok
}

// Mode returns the interval list for a scale mode
func (t *Theory) Mode(name string) ([]int, bool) {
	m, ok := t.tables.Modes[name]
	return cloneInts(m), ok
}

// Section returns the shared progression for a section name
func (t *Theory) Section(name string) ([]string, bool) {
	p, ok := t.tables.Sections[name]
	return cloneStrings(p), ok
}

// Sections returns a copy of the shared section → progression table
func (t *Theory) Sections() map[string][]string {
	out := make(map[string][]string, len(t.tables.Sections))
	for k, v := range t.tables.Sections {
		out[k] = cloneStrings(v)
	}
	return out
}

// DefaultSection is the section whose progression is used when a section
// has no progression of its own
func (t *Theory) DefaultSection() string {
	return t.tables.DefaultSection
}

// Groove returns the one-bar percussion pattern keyed by genre
func (t *Theory) Groove(name string) ([]Hit, bool) {
	g, ok := t.tables.Grooves[name]
	if !ok {
		return nil, false
	}
	out := make([]Hit, len(g))
	copy(out, g)
	return out, true
}

// BassPattern returns the per-beat bass offsets keyed by genre
func (t *Theory) BassPattern(name string) ([]int, bool) {
	p, ok := t.tables.BassPatterns[name]
	return cloneInts(p), ok
}

// CompPattern returns a named bar subdivision ("straight", "clave_3-2")
func (t *Theory) CompPattern(name string) ([]float64, bool) {
	p, ok := t.tables.CompPatterns[name]
	return cloneFloats(p), ok
}

// CompPatternNames returns the named subdivisions in sorted order
func (t *Theory) CompPatternNames() []string {
	return sortedKeys(t.tables.CompPatterns)
}

// Progression returns a library progression by name
func (t *Theory) Progression(name string) ([]string, bool) {
	p, ok := t.tables.Progressions[name]
	return cloneStrings(p), ok
}

// ProgressionNames returns the library progressions in sorted order
func (t *Theory) ProgressionNames() []string {
	return sortedKeys(t.tables.Progressions)
}

// Expand replaces every element naming a library progression with that
// progression's symbols. Other elements are kept as they are.
func (t *Theory) Expand(prog []string) []string {
	out := make([]string, 0, len(prog))
	for _, el := range prog {
		if lib, ok := t.tables.Progressions[el]; ok {
			out = append(out, lib...)
			continue
		}
		out = append(out, el)
	}
	return out
}

// Dynamics returns the velocity range of a dynamic marking
func (t *Theory) Dynamics(level string) (Dynamics, bool) {
	d, ok := t.tables.Dynamics[level]
	return d, ok
}

// DynamicsNames returns the markings from softest to loudest
func (t *Theory) DynamicsNames() []string {
	names := sortedKeys(t.tables.Dynamics)
	sort.SliceStable(names, func(i, j int) bool {
		return t.tables.Dynamics[names[i]].Min < t.tables.Dynamics[names[j]].Min
	})
	return names
}

// DefaultDynamics is the marking the role base velocities are written for
func (t *Theory) DefaultDynamics() string {
	return t.tables.DefaultDynamics
}

// VelocityOffset is how far a marking moves the role base velocities: the
// distance between its midpoint and the default marking's. An empty level
// means the default.
func (t *Theory) VelocityOffset(level string) (int, bool) {
	if level == "" {
		level = t.tables.DefaultDynamics
	}
	if level == "" {
		return 0, true
	}
	d, ok := t.tables.Dynamics[level]
	if !ok {
		return 0, false
	}
	return d.Mid() - t.tables.Dynamics[t.tables.DefaultDynamics].Mid(), true
}

// Genre looks up a genre preset
func (t *Theory) Genre(name string) (Genre, bool) {
	g, ok := t.tables.Genres[name]
	if !ok {
		return Genre{}, false
	}
	return cloneGenre(g), true
}

// FallbackGenre is the genre used when a requested genre is unknown
func (t *Theory) FallbackGenre() string {
	return t.tables.FallbackGenre
}

// GenreNames returns the known genres in sorted order
func (t *Theory) GenreNames() []string {
	return sortedKeys(t.tables.Genres)
}

// ModeNames returns the known scale modes in sorted order
func (t *Theory) ModeNames() []string {
	return sortedKeys(t.tables.Modes)
}

func validate(t *Tables) error {
	if len(t.Qualities) == 0 {
		return fmt.Errorf("%w: no chord qualities", ErrInvalidTheory)
	}
	for name, formula := range t.Qualities {
		if len(formula) == 0 {
			return fmt.Errorf("%w: quality %q has an empty formula", ErrInvalidTheory, name)
		}
	}
	if len(t.Symbols) == 0 {
		return fmt.Errorf("%w: no harmonic symbols", ErrInvalidTheory)
	}
	for label, sym := range t.Symbols {
		if _, ok := t.Qualities[sym.Quality]; !ok {
			return fmt.Errorf("%w: symbol %q references unknown quality %q", ErrInvalidTheory, label, sym.Quality)
		}
	}
	for name, intervals := range t.Modes {
		if len(intervals) == 0 {
			return fmt.Errorf("%w: mode %q has no intervals", ErrInvalidTheory, name)
		}
	}
	for name, prog := range t.Progressions {
		if len(prog) == 0 {
			return fmt.Errorf("%w: progression %q is empty", ErrInvalidTheory, name)
		}
		if _, ok := t.Symbols[name]; ok {
			return fmt.Errorf("%w: progression %q shadows a harmonic symbol", ErrInvalidTheory, name)
		}
	}
	for name, prog := range t.Progressions {
		for _, el := range prog {
			if _, ok := t.Progressions[el]; ok {
				return fmt.Errorf("%w: progression %q nests progression %q", ErrInvalidTheory, name, el)
			}
		}
	}
	if _, ok := t.Sections[t.DefaultSection]; !ok {
		return fmt.Errorf("%w: default section %q has no progression", ErrInvalidTheory, t.DefaultSection)
	}
	for name, groove := range t.Grooves {
		for _, hit := range groove {
			if _, ok := t.Percussion[hit.Voice]; !ok {
				return fmt.Errorf("%w: groove %q uses unknown voice %q", ErrInvalidTheory, name, hit.Voice)
			}
			if hit.Beat < 0 || hit.Beat >= beatsPerBar {
				return fmt.Errorf("%w: groove %q hit at %.2f outside the bar", ErrInvalidTheory, name, hit.Beat)
			}
		}
	}
	for name, key := range t.Percussion {
		if key < 0 || key > 127 {
			return fmt.Errorf("%w: percussion voice %q key %d out of range", ErrInvalidTheory, name, key)
		}
	}
	for name, pattern := range t.BassPatterns {
		if len(pattern) == 0 {
			return fmt.Errorf("%w: bass pattern %q is empty", ErrInvalidTheory, name)
		}
	}
	for name, pattern := range t.CompPatterns {
		if len(pattern) == 0 {
			return fmt.Errorf("%w: comp pattern %q is empty", ErrInvalidTheory, name)
		}
		total := 0.0
		for _, d := range pattern {
			if d <= 0 {
				return fmt.Errorf("%w: comp pattern %q has a non-positive duration", ErrInvalidTheory, name)
			}
			total += d
		}
		if total > beatsPerBar+1e-9 {
			return fmt.Errorf("%w: comp pattern %q spans %.2f beats", ErrInvalidTheory, name, total)
		}
	}
	for name, d := range t.Dynamics {
		if d.Min < 1 || d.Max > 127 || d.Min > d.Max {
			return fmt.Errorf("%w: dynamics %q range [%d,%d] is invalid", ErrInvalidTheory, name, d.Min, d.Max)
		}
	}
	if len(t.Dynamics) > 0 {
		if _, ok := t.Dynamics[t.DefaultDynamics]; !ok {
			return fmt.Errorf("%w: default dynamics %q is not defined", ErrInvalidTheory, t.DefaultDynamics)
		}
	} else if t.DefaultDynamics != "" {
		return fmt.Errorf("%w: default dynamics %q is not defined", ErrInvalidTheory, t.DefaultDynamics)
	}
	if len(t.Genres) == 0 {
		return fmt.Errorf("%w: empty genre table", ErrInvalidTheory)
	}
	for name, g := range t.Genres {
		if g.Mode != "" {
			if _, ok := t.Modes[g.Mode]; !ok {
				return fmt.Errorf("%w: genre %q uses unknown mode %q", ErrInvalidTheory, name, g.Mode)
			}
		}
		if g.TimingJitter < 0 || g.VelocityJitter < 0 {
			return fmt.Errorf("%w: genre %q has a negative jitter", ErrInvalidTheory, name)
		}
		if _, ok := t.CompPatterns[g.Comp]; g.Comp != "" && !ok {
			return fmt.Errorf("%w: genre %q uses unknown comp pattern %q", ErrInvalidTheory, name, g.Comp)
		}
		if _, ok := t.Dynamics[g.Dynamics]; g.Dynamics != "" && !ok {
			return fmt.Errorf("%w: genre %q uses unknown dynamics %q", ErrInvalidTheory, name, g.Dynamics)
		}
		for _, prog := range g.Progressions {
			if _, ok := t.Progressions[prog]; !ok {
				return fmt.Errorf("%w: genre %q lists unknown progression %q", ErrInvalidTheory, name, prog)
			}
		}
	}
	fallback, ok := t.Genres[t.FallbackGenre]
	if !ok {
		return fmt.Errorf("%w: fallback genre %q is not defined", ErrInvalidTheory, t.FallbackGenre)
	}
	if len(fallback.Structure) == 0 {
		return fmt.Errorf("%w: fallback genre %q has no structure", ErrInvalidTheory, t.FallbackGenre)
	}
	if _, ok := t.Grooves[t.FallbackGenre]; !ok {
		return fmt.Errorf("%w: fallback genre %q has no groove", ErrInvalidTheory, t.FallbackGenre)
	}
	if _, ok := t.BassPatterns[t.FallbackGenre]; !ok {
		return fmt.Errorf("%w: fallback genre %q has no bass pattern", ErrInvalidTheory, t.FallbackGenre)
	}
	if fallback.Comp == "" {
		return fmt.Errorf("%w: fallback genre %q has no comp pattern", ErrInvalidTheory, t.FallbackGenre)
	}
	return nil
}

func cloneTables(t Tables) Tables {
	c := Tables{
		Qualities:       make(map[string][]int, len(t.Qualities)),
		Symbols:         make(map[string]Symbol, len(t.Symbols)),
		Modes:           make(map[string][]int, len(t.Modes)),
		Progressions:    make(map[string][]string, len(t.Progressions)),
		Sections:        make(map[string][]string, len(t.Sections)),
		DefaultSection:  t.DefaultSection,
		Percussion:      make(map[string]int, len(t.Percussion)),
		Grooves:         make(map[string][]Hit, len(t.Grooves)),
		BassPatterns:    make(map[string][]int, len(t.BassPatterns)),
		CompPatterns:    make(map[string][]float64, len(t.CompPatterns)),
		Dynamics:        make(map[string]Dynamics, len(t.Dynamics)),
		DefaultDynamics: t.DefaultDynamics,
		Genres:          make(map[string]Genre, len(t.Genres)),
		FallbackGenre:   t.FallbackGenre,
	}
	for k, v := range t.Qualities {
		c.Qualities[k] = cloneInts(v)
	}
	for k, v := range t.Symbols {
		c.Symbols[k] = v
	}
	for k, v := range t.Modes {
		c.Modes[k] = cloneInts(v)
	}
	for k, v := range t.Progressions {
		c.Progressions[k] = cloneStrings(v)
	}
	for k, v := range t.Sections {
		c.Sections[k] = cloneStrings(v)
	}
	for k, v := range t.Percussion {
		c.Percussion[k] = v
	}
	for k, v := range t.Grooves {
		g := make([]Hit, len(v))
		copy(g, v)
		c.Grooves[k] = g
	}
	for k, v := range t.BassPatterns {
		c.BassPatterns[k] = cloneInts(v)
	}
	for k, v := range t.CompPatterns {
		c.CompPatterns[k] = cloneFloats(v)
	}
	for k, v := range t.Dynamics {
		c.Dynamics[k] = v
	}
	for k, v := range t.Genres {
		c.Genres[k] = cloneGenre(v)
	}
	return c
}

func cloneGenre(g Genre) Genre {
	c := g
	c.Structure = cloneStrings(g.Structure)
	c.Progressions = cloneStrings(g.Progressions)
	if g.Programs != nil {
		c.Programs = make(map[string]int, len(g.Programs))
		for k, v := range g.Programs {
			c.Programs[k] = v
		}
	}
	if g.Sections != nil {
		c.Sections = make(map[string][]string, len(g.Sections))
		for k, v := range g.Sections {
			c.Sections[k] = cloneStrings(v)
		}
	}
	return c
}

func cloneInts(s []int) []int {
	if s == nil {
		return nil
	}
	out := make([]int, len(s))
	copy(out, s)
	return out
}

func cloneFloats(s []float64) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
