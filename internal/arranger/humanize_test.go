package arranger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/magda-accompanist/internal/models"
)

// edgeRand always returns the extreme end of each draw
type edgeRand struct {
	high bool
}

func (r edgeRand) Float64() float64 {
	if r.high {
		return 0.9999999999
	}
	return 0
}

func (r edgeRand) IntN(n int) int {
	if r.high {
		return n - 1
	}
	return 0
}

func TestHumanizeInvariants(t *testing.T) {
	h := Humanizer{
		SwingAmount:    0.75,
		TimingJitter:   0.05,
		VelocityJitter: 20,
	}

	gen := NewRand(99)
	notes := make([]models.NoteEvent, 10000)
	for i := range notes {
		start := float64(i%64) * 0.25
		if i%5 == 0 {
			start = 0
		}
		vel := models.MinVelocity
		if i%2 == 0 {
			vel = models.MaxVelocity
		}
		notes[i] = models.NoteEvent{
			MidiNoteNumber: i % 128,
			Velocity:       vel,
			StartBeats:     start,
			EndBeats:       start + gen.Float64()*1e-6 + 1e-9,
		}
	}

	sources := map[string]Rand{
		"seeded": NewRand(12345),
		"low":    edgeRand{high: false},
		"high":   edgeRand{high: true},
	}
	for name, rng := range sources {
		for _, swing := range []bool{true, false} {
			out := h.Humanize(notes, swing, rng)
			require.Len(t, out, len(notes))
			for i, n := range out {
				require.Greater(t, n.EndBeats, n.StartBeats, "%s note %d", name, i)
				require.GreaterOrEqual(t, n.StartBeats, 0.0, "%s note %d", name, i)
				require.GreaterOrEqual(t, n.Velocity, models.MinVelocity, "%s note %d", name, i)
				require.LessOrEqual(t, n.Velocity, models.MaxVelocity, "%s note %d", name, i)
				require.NoError(t, n.Validate())
			}
		}
	}
}

func TestHumanizeClampsOutOfRangeInput(t *testing.T) {
	notes := []models.NoteEvent{
		{MidiNoteNumber: 200, Velocity: 500, StartBeats: -3, EndBeats: -4},
		{MidiNoteNumber: -5, Velocity: -20, StartBeats: 1, EndBeats: 1},
	}
	out := DefaultHumanizer().Humanize(notes, true, NewRand(1))
	for _, n := range out {
		assert.NoError(t, n.Validate())
	}
	assert.Equal(t, 127, out[0].MidiNoteNumber)
	assert.Equal(t, 0, out[1].MidiNoteNumber)
}

func TestHumanizeSwing(t *testing.T) {
	h := Humanizer{SwingAmount: 0.58}
	shift := (0.58 - 0.5) * 0.25

	tests := []struct {
		name  string
		start float64
		swung bool
	}{
		{name: "downbeat", start: 0, swung: false},
		{name: "off eighth", start: 0.5, swung: true},
		{name: "off eighth later bar", start: 6.5, swung: true},
		{name: "near off eighth", start: 1.54, swung: true},
		{name: "sixteenth", start: 0.25, swung: false},
		{name: "sixteenth after off eighth", start: 0.75, swung: false},
		{name: "triplet", start: 2.0 / 3.0, swung: false},
		{name: "second triplet", start: 1.0 / 3.0, swung: false},
		{name: "beat", start: 3, swung: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note := models.NoteEvent{MidiNoteNumber: 60, Velocity: 90, StartBeats: tt.start, EndBeats: tt.start + 0.25}

			out := h.Humanize([]models.NoteEvent{note}, true, NewRand(1))
			expected := tt.start
			if tt.swung {
				expected += shift
			}
			assert.InDelta(t, expected, out[0].StartBeats, 1e-9)
			assert.InDelta(t, expected+0.25, out[0].EndBeats, 1e-9)
			assert.Equal(t, 90, out[0].Velocity)

			straight := h.Humanize([]models.NoteEvent{note}, false, NewRand(1))
			assert.InDelta(t, tt.start, straight[0].StartBeats, 1e-9)
		})
	}
}

func TestHumanizeJitterBounds(t *testing.T) {
	h := DefaultHumanizer()
	notes := make([]models.NoteEvent, 500)
	for i := range notes {
		notes[i] = models.NoteEvent{MidiNoteNumber: 60, Velocity: 64, StartBeats: float64(i) + 1, EndBeats: float64(i) + 2}
	}

	out := h.Humanize(notes, false, NewRand(8))
	changed := false
	for i, n := range out {
		assert.InDelta(t, notes[i].StartBeats, n.StartBeats, DefaultTimingJitter)
		assert.InDelta(t, notes[i].EndBeats, n.EndBeats, DefaultTimingJitter)
		assert.InDelta(t, 64, n.Velocity, DefaultVelocityJitter)
		if n != notes[i] {
			changed = true
		}
	}
	assert.True(t, changed)
}

func TestHumanizeDoesNotMutateInput(t *testing.T) {
	notes := []models.NoteEvent{{MidiNoteNumber: 60, Velocity: 90, StartBeats: 0.5, EndBeats: 1}}
	_ = DefaultHumanizer().Humanize(notes, true, NewRand(2))
	assert.Equal(t, 0.5, notes[0].StartBeats)
	assert.Equal(t, 90, notes[0].Velocity)
}
