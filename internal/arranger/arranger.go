package arranger

import (
	"context"
	"fmt"
	"sort"

	"github.com/getsentry/sentry-go"

	"github.com/Conceptual-Machines/magda-accompanist/internal/logger"
	"github.com/Conceptual-Machines/magda-accompanist/internal/models"
	"github.com/Conceptual-Machines/magda-accompanist/internal/theory"
)

const (
	defaultTempo = 120
	minTempo     = 20
	maxTempo     = 300
	maxBars      = 512
	defaultMode  = "major"
)

// Substitution kinds
const (
	SubstitutionGenre     = "genre"
	SubstitutionStructure = "structure"
	SubstitutionGroove    = "groove"
	SubstitutionBass      = "bass_pattern"
	SubstitutionComp      = "comp_pattern"
	SubstitutionSection   = "section"
)

// Substitution records a lookup that fell back to a default
type Substitution struct {
	Kind      string `json:"kind"`
	Requested string `json:"requested"`
	Used      string `json:"used"`
}

// Request holds the parameters of one generation
type Request struct {
	Root  int
	Genre string
	// Structure overrides the genre's song form when non-nil. An explicit
	// empty slice is rejected.
	Structure []string
	// Mode overrides the genre's melody scale when set
	Mode string
	// Swing overrides the genre's swing default when set
	Swing *bool
	// Tempo overrides the genre's tempo when positive
	Tempo int
	// Comp names the comp pattern, overriding the genre's
	Comp string
	// Progression names a library progression that every section plays
	// instead of its own
	Progression string
	// Inversion voices the comping chords in that inversion
	Inversion int
	// Arp adds an arpeggio role stepping through the named comp pattern
	Arp string
	// Bars fits the song to that many bars when positive
	Bars int
	// Dynamics overrides the genre's dynamic marking
	Dynamics string
}

// Result is a generated arrangement plus everything that was substituted
// or skipped on the way
type Result struct {
	Genre         string            `json:"genre"`
	Mode          string            `json:"mode"`
	Swing         bool              `json:"swing"`
	Tempo         int               `json:"tempo"`
	Comp          string            `json:"comp"`
	Arp           string            `json:"arp,omitempty"`
	Dynamics      string            `json:"dynamics"`
	Bars          int               `json:"bars"`
	Structure     []string          `json:"structure"`
	Sections      []SectionTimeline `json:"sections"`
	Tracks        []models.Track    `json:"tracks"`
	Programs      map[string]int    `json:"programs,omitempty"`
	Skipped       []string          `json:"skipped"`
	Substitutions []Substitution    `json:"substitutions"`
}

// Arrangement converts the result into the form consumed by sinks
func (r *Result) Arrangement() models.Arrangement {
	return models.Arrangement{
		Genre:    r.Genre,
		Tempo:    r.Tempo,
		Programs: r.Programs,
		Tracks:   r.Tracks,
	}
}

// Option configures an Arranger
type Option func(*Arranger)

// WithHumanizer replaces the default humanization constants
func WithHumanizer(h Humanizer) Option {
	return func(a *Arranger) {
		a.humanizer = h
	}
}

// Arranger runs the generation pipeline against one theory. It holds no
// mutable state, so concurrent Generate calls are safe as long as each
// uses its own Rand.
type Arranger struct {
	theory    *theory.Theory
	humanizer Humanizer
}

// New creates an Arranger for the given theory
func New(th *theory.Theory, opts ...Option) *Arranger {
	a := &Arranger{
		theory:    th,
		humanizer: DefaultHumanizer(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Theory returns the theory the arranger was built with
func (a *Arranger) Theory() *theory.Theory {
	return a.theory
}

// Generate arranges a song for the request. Input errors are returned
// before any notes are produced; unknown genres, sections and symbols are
// substituted or skipped and reported on the Result.
func (a *Arranger) Generate(ctx context.Context, req Request, rng Rand) (*Result, error) {
	span := sentry.StartSpan(ctx, "arranger.generate")
	defer span.Finish()
	span.SetTag("genre", req.Genre)

	plan, err := a.plan(req, rng)
	if err != nil {
		span.Status = sentry.SpanStatusInvalidArgument
		return nil, err
	}

	tl, err := Sequence(a.theory, plan.structure, plan.progressions, a.theory.DefaultSection(), req.Root, plan.mode)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("failed to sequence structure: %w", err)
	}
	for _, name := range tl.Fallbacks {
		plan.substitute(SubstitutionSection, name, a.theory.DefaultSection())
	}
	if len(tl.Skipped) > 0 {
		logger.Warn("Skipped unknown harmonic symbols", logger.Fields{
			"genre":   plan.genre,
			"skipped": tl.Skipped,
		})
	}
	tl = tl.Fit(plan.bars)

	h := a.humanizer
	if plan.preset.TimingJitter > 0 {
		h.TimingJitter = plan.preset.TimingJitter
	}
	if plan.preset.VelocityJitter > 0 {
		h.VelocityJitter = plan.preset.VelocityJitter
	}

	v := plan.velocities
	outputs := make([]RoleOutput, 0, len(tl.Sections)*5)
	for _, sec := range tl.Sections {
		chords := sec.BarChords()

		piano := VoiceChords(invertChords(chords, plan.inversion), plan.comp, v.comp)
		bass := RealizeBass(chords, plan.bass, v.bass)
		drums := RealizeDrums(plan.groove, sec.StartBar, sec.Bars(), v.drums)
		melody := GenerateMelody(chords, tl.Scale, v.melody, rng)

		outputs = append(outputs,
			RoleOutput{Section: sec.Name, Role: RolePiano, Notes: humanizeSorted(h, piano, plan.swing, rng)},
			RoleOutput{Section: sec.Name, Role: RoleBass, Notes: humanizeSorted(h, bass, plan.swing, rng)},
			RoleOutput{Section: sec.Name, Role: RoleDrums, Notes: humanizeSorted(h, drums, plan.swing, rng), Percussion: true},
			RoleOutput{Section: sec.Name, Role: RoleMelody, Notes: humanizeSorted(h, melody, plan.swing, rng)},
		)
		if plan.arp != nil {
			arp := Arpeggiate(chords, plan.arp, v.arp)
			outputs = append(outputs, RoleOutput{Section: sec.Name, Role: RoleArp, Notes: humanizeSorted(h, arp, plan.swing, rng)})
		}
	}

	res := &Result{
		Genre:         plan.genre,
		Mode:          plan.mode,
		Swing:         plan.swing,
		Tempo:         plan.tempo,
		Comp:          plan.compName,
		Arp:           req.Arp,
		Dynamics:      plan.dynamics,
		Bars:          tl.Bars,
		Structure:     plan.structure,
		Sections:      tl.Sections,
		Tracks:        Assemble(outputs),
		Programs:      plan.preset.Programs,
		Skipped:       tl.Skipped,
		Substitutions: plan.substitutions,
	}

	span.SetData("bars", res.Bars)
	span.SetData("tracks", len(res.Tracks))
	span.Status = sentry.SpanStatusOK
	return res, nil
}

// plan is the fully resolved set of lookups for one request
type plan struct {
	genre         string
	preset        theory.Genre
	structure     []string
	progressions  map[string][]string
	mode          string
	swing         bool
	tempo         int
	groove        []theory.Hit
	bass          []int
	compName      string
	comp          []float64
	arp           []float64
	inversion     int
	bars          int
	dynamics      string
	velocities    velocities
	substitutions []Substitution
}

// velocities are the role base velocities after dynamics
type velocities struct {
	comp, bass, drums, melody, arp int
}

func roleVelocities(offset int) velocities {
	return velocities{
		comp:   clampVelocity(CompVelocity + offset),
		bass:   clampVelocity(BassVelocity + offset),
		drums:  clampVelocity(DrumVelocity + offset),
		melody: clampVelocity(MelodyVelocity + offset),
		arp:    clampVelocity(ArpVelocity + offset),
	}
}

func (p *plan) substitute(kind, requested, used string) {
	p.substitutions = append(p.substitutions, Substitution{Kind: kind, Requested: requested, Used: used})
	logger.Warn("Arrangement fallback", logger.Fields{
		"kind":      kind,
		"requested": requested,
		"used":      used,
	})
}

// plan validates the whole request before recording any substitution, so
// a rejected request leaves no fallback behind in the logs.
func (a *Arranger) plan(req Request, rng Rand) (*plan, error) {
	if rng == nil {
		return nil, ErrNilRand
	}
	if req.Root < models.MinPitch || req.Root > models.MaxPitch {
		return nil, fmt.Errorf("%w: %d", ErrRootOutOfRange, req.Root)
	}
	if a.theory == nil || len(a.theory.GenreNames()) == 0 {
		return nil, ErrEmptyTheory
	}
	if req.Structure != nil && len(req.Structure) == 0 {
		return nil, ErrEmptyStructure
	}
	if req.Tempo != 0 && (req.Tempo < minTempo || req.Tempo > maxTempo) {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidTempo, req.Tempo, minTempo, maxTempo)
	}
	if req.Bars < 0 || req.Bars > maxBars {
		return nil, fmt.Errorf("%w: %d not in [0,%d]", ErrInvalidBars, req.Bars, maxBars)
	}
	if req.Inversion < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidInversion, req.Inversion)
	}

	th := a.theory
	genre := req.Genre
	preset, known := th.Genre(genre)
	if !known {
		genre = th.FallbackGenre()
		preset, _ = th.Genre(genre)
	}

	mode := req.Mode
	if mode == "" {
		mode = preset.Mode
	}
	if mode == "" {
		mode = defaultMode
	}
	if _, ok := th.Mode(mode); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if _, ok := th.CompPattern(req.Comp); req.Comp != "" && !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompPattern, req.Comp)
	}
	if _, ok := th.CompPattern(req.Arp); req.Arp != "" && !ok {
		return nil, fmt.Errorf("%w: arp %q", ErrUnknownCompPattern, req.Arp)
	}
	if _, ok := th.Progression(req.Progression); req.Progression != "" && !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgression, req.Progression)
	}
	dynamics := req.Dynamics
	if dynamics == "" {
		dynamics = preset.Dynamics
	}
	if dynamics == "" {
		dynamics = th.DefaultDynamics()
	}
	offset, ok := th.VelocityOffset(dynamics)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDynamics, dynamics)
	}

	p := &plan{
		genre:      genre,
		preset:     preset,
		mode:       mode,
		inversion:  req.Inversion,
		bars:       req.Bars,
		dynamics:   dynamics,
		velocities: roleVelocities(offset),
	}
	if !known {
		p.substitute(SubstitutionGenre, req.Genre, genre)
	}

	switch {
	case req.Structure != nil:
		p.structure = append([]string(nil), req.Structure...)
	case len(preset.Structure) > 0:
		p.structure = preset.Structure
	default:
		fallback, _ := th.Genre(th.FallbackGenre())
		p.structure = fallback.Structure
		p.substitute(SubstitutionStructure, p.genre, th.FallbackGenre())
	}

	p.progressions = sectionProgressions(th, preset, p.structure, req.Progression)

	p.swing = preset.Swing
	if req.Swing != nil {
		p.swing = *req.Swing
	}

	p.tempo = req.Tempo
	if p.tempo == 0 {
		p.tempo = genreTempo(preset)
	}

	p.groove = lookup(p, th.Groove, SubstitutionGroove, th.FallbackGenre())
	p.bass = lookup(p, th.BassPattern, SubstitutionBass, th.FallbackGenre())

	switch {
	case req.Comp != "":
		p.compName = req.Comp
	case preset.Comp != "":
		p.compName = preset.Comp
	default:
		fallback, _ := th.Genre(th.FallbackGenre())
		p.compName = fallback.Comp
		p.substitute(SubstitutionComp, p.genre, th.FallbackGenre())
	}
	p.comp, _ = th.CompPattern(p.compName)
	if req.Arp != "" {
		p.arp, _ = th.CompPattern(req.Arp)
	}

	return p, nil
}

// sectionProgressions builds the section → symbols table for one song.
// A named progression replaces every section's own; otherwise the genre's
// overrides are laid over the shared table. Library progression names are
// expanded to their symbols.
func sectionProgressions(th *theory.Theory, preset theory.Genre, structure []string, progression string) map[string][]string {
	if progression != "" {
		prog, _ := th.Progression(progression)
		out := map[string][]string{th.DefaultSection(): prog}
		for _, name := range structure {
			out[name] = prog
		}
		return out
	}

	out := th.Sections()
	for name, prog := range preset.Sections {
		out[name] = prog
	}
	for name, prog := range out {
		out[name] = th.Expand(prog)
	}
	return out
}

func invertChords(chords []BarChord, n int) []BarChord {
	if n == 0 {
		return chords
	}
	out := make([]BarChord, len(chords))
	for i, c := range chords {
		out[i] = BarChord{Bar: c.Bar, Pitches: theory.Invert(c.Pitches, n)}
	}
	return out
}

// lookup fetches a per-genre table entry, falling back to the fallback
// genre's entry and recording the substitution
func lookup[V any](p *plan, get func(string) (V, bool), kind, fallback string) V {
	if v, ok := get(p.genre); ok {
		return v
	}
	v, _ := get(fallback)
	p.substitute(kind, p.genre, fallback)
	return v
}

func genreTempo(g theory.Genre) int {
	if g.TempoMin > 0 && g.TempoMax >= g.TempoMin {
		return (g.TempoMin + g.TempoMax) / 2
	}
	return defaultTempo
}

func humanizeSorted(h Humanizer, notes []models.NoteEvent, swing bool, rng Rand) []models.NoteEvent {
	out := h.Humanize(notes, swing, rng)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartBeats < out[j].StartBeats
	})
	return out
}
