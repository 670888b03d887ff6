package arranger

import (
	"math"

	"github.com/Conceptual-Machines/magda-accompanist/internal/models"
)

// Default humanization constants
const (
	DefaultSwingAmount    = 0.58
	DefaultSwingWindow    = 0.1
	DefaultTimingJitter   = 0.01
	DefaultVelocityJitter = 6
	DefaultMinDuration    = 0.01
)

// Humanizer perturbs note timing and velocity. A zero SwingAmount,
// SwingWindow or MinDuration takes its default; zero jitter disables that
// jitter.
type Humanizer struct {
	// SwingAmount > 0.5 delays off-eighths
	SwingAmount float64
	// SwingWindow is the half-width around an off-eighth position
	SwingWindow    float64
	TimingJitter   float64
	VelocityJitter int
	MinDuration    float64
}

// DefaultHumanizer returns a Humanizer with the default constants
func DefaultHumanizer() Humanizer {
	return Humanizer{
		SwingAmount:    DefaultSwingAmount,
		SwingWindow:    DefaultSwingWindow,
		TimingJitter:   DefaultTimingJitter,
		VelocityJitter: DefaultVelocityJitter,
		MinDuration:    DefaultMinDuration,
	}
}

func (h Humanizer) withDefaults() Humanizer {
	if h.SwingAmount == 0 {
		h.SwingAmount = DefaultSwingAmount
	}
	if h.SwingWindow <= 0 {
		h.SwingWindow = DefaultSwingWindow
	}
	if h.TimingJitter < 0 {
		h.TimingJitter = 0
	}
	if h.VelocityJitter < 0 {
		h.VelocityJitter = 0
	}
	if h.MinDuration <= 0 {
		h.MinDuration = DefaultMinDuration
	}
	return h
}

// Humanize returns a new slice with swing, timing jitter and velocity jitter
// applied to each note in that order. The result always satisfies
// end > start, start >= 0, velocity in [1,127] and pitch in [0,127].
//
// A note counts as an off-eighth when (start*2) mod 2 lies within
// SwingWindow of 1. The same test applies on any grid, so triplet and
// sixteenth positions swing only when they happen to fall in that window.
func (h Humanizer) Humanize(notes []models.NoteEvent, swing bool, rng Rand) []models.NoteEvent {
	h = h.withDefaults()
	shift := (h.SwingAmount - 0.5) * 0.25

	out := make([]models.NoteEvent, len(notes))
	for i, n := range notes {
		start, end := n.StartBeats, n.EndBeats

		if swing && h.isOffEighth(start) {
			start += shift
			end += shift
		}

		start = math.Max(0, start+uniform(rng, h.TimingJitter))
		end = math.Max(start+h.MinDuration, end+uniform(rng, h.TimingJitter))

		out[i] = models.NoteEvent{
			MidiNoteNumber: clamp(n.MidiNoteNumber, models.MinPitch, models.MaxPitch),
			Velocity:       clamp(n.Velocity+intBetween(rng, h.VelocityJitter), models.MinVelocity, models.MaxVelocity),
			StartBeats:     start,
			EndBeats:       end,
		}
	}
	return out
}

func (h Humanizer) isOffEighth(start float64) bool {
	pos := math.Mod(start*2, 2)
	return math.Abs(pos-1) < h.SwingWindow
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
