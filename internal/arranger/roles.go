package arranger

import (
	"sort"

	"github.com/Conceptual-Machines/magda-accompanist/internal/models"
	"github.com/Conceptual-Machines/magda-accompanist/internal/theory"
)

const beatsPerBar = 4.0

// Base velocities per role at the default dynamics, before humanization
const (
	CompVelocity   = 92
	BassVelocity   = 84
	DrumVelocity   = 90
	MelodyVelocity = 102
	ArpVelocity    = 96
)

const (
	// melody notes after the downbeat sit under the downbeat velocity
	melodyPassDrop = 6
	melodyFillDrop = 8

	barEpsilon = 1e-9

	drumHitBeats     = 0.1
	bassNoteBeats    = 1.0
	melodyNoteBeats  = 1.0
	melodyNotesInBar = 4
	// chord tones eligible for the melody's downbeat: root, third, fifth
	melodyChordTones = 3
)

// VoiceChords strikes the full chord at each subdivision boundary of the
// comp pattern inside every bar. Each note lasts its subdivision. A pattern
// shorter than a bar repeats until the bar is full and a subdivision
// crossing the bar line is cut at it.
func VoiceChords(chords []BarChord, pattern []float64, velocity int) []models.NoteEvent {
	notes := make([]models.NoteEvent, 0, len(chords)*len(pattern)*4)
	for _, c := range chords {
		fillBar(c.Bar, pattern, func(_ int, start, end float64) {
			for _, p := range c.Pitches {
				notes = append(notes, models.NoteEvent{
					MidiNoteNumber: foldPitch(p),
					Velocity:       velocity,
					StartBeats:     start,
					EndBeats:       end,
				})
			}
		})
	}
	return notes
}

// Arpeggiate plays the chord one tone at a time, lowest first, stepping
// through the pattern's subdivisions and cycling through the chord tones
// until the bar is full.
func Arpeggiate(chords []BarChord, pattern []float64, velocity int) []models.NoteEvent {
	notes := make([]models.NoteEvent, 0, len(chords)*len(pattern))
	for _, c := range chords {
		if len(c.Pitches) == 0 {
			continue
		}
		fillBar(c.Bar, pattern, func(i int, start, end float64) {
			notes = append(notes, models.NoteEvent{
				MidiNoteNumber: foldPitch(c.Pitches[i%len(c.Pitches)]),
				Velocity:       velocity,
				StartBeats:     start,
				EndBeats:       end,
			})
		})
	}
	return notes
}

// fillBar walks the pattern from the start of bar, repeating it until the
// bar is covered, and calls step with the index and span of every
// subdivision
func fillBar(bar int, pattern []float64, step func(i int, start, end float64)) {
	barStart := float64(bar) * beatsPerBar
	barEnd := barStart + beatsPerBar
	t := barStart
	for i := 0; len(pattern) > 0 && t < barEnd-barEpsilon; i++ {
		dur := pattern[i%len(pattern)]
		if dur <= 0 {
			return
		}
		step(i, t, min(t+dur, barEnd))
		t += dur
	}
}

// RealizeBass plays one note per beat an octave under the chord's lowest
// pitch, offset by the pattern. The pattern is indexed by the absolute beat
// of the song, so it keeps cycling across chords and sections when its
// length is not four.
func RealizeBass(chords []BarChord, pattern []int, velocity int) []models.NoteEvent {
	if len(pattern) == 0 {
		pattern = []int{0}
	}
	notes := make([]models.NoteEvent, 0, len(chords)*melodyNotesInBar)
	for _, c := range chords {
		if len(c.Pitches) == 0 {
			continue
		}
		bassRoot := minPitch(c.Pitches) - 12
		start := float64(c.Bar) * beatsPerBar
		for i := 0; i < int(beatsPerBar); i++ {
			s := start + float64(i)
			beat := c.Bar*int(beatsPerBar) + i
			notes = append(notes, models.NoteEvent{
				MidiNoteNumber: foldPitch(bassRoot + pattern[beat%len(pattern)]),
				Velocity:       velocity,
				StartBeats:     s,
				EndBeats:       s + bassNoteBeats,
			})
		}
	}
	return notes
}

// RealizeDrums loops a one-bar groove across bars starting at startBar.
// Output is ordered by start; hits sharing a start keep groove order.
func RealizeDrums(groove []theory.Hit, startBar, bars, velocity int) []models.NoteEvent {
	if bars <= 0 {
		return nil
	}
	notes := make([]models.NoteEvent, 0, bars*len(groove))
	for bar := startBar; bar < startBar+bars; bar++ {
		for _, hit := range groove {
			s := float64(bar)*beatsPerBar + hit.Beat
			notes = append(notes, models.NoteEvent{
				MidiNoteNumber: hit.Key,
				Velocity:       velocity,
				StartBeats:     s,
				EndBeats:       s + drumHitBeats,
			})
		}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].StartBeats < notes[j].StartBeats
	})
	return notes
}

// GenerateMelody writes four one-beat notes per chord: a chord tone on the
// downbeat at velocity, then three scale tones a little softer. All choices
// draw from rng.
func GenerateMelody(chords []BarChord, scale []int, velocity int, rng Rand) []models.NoteEvent {
	notes := make([]models.NoteEvent, 0, len(chords)*melodyNotesInBar)
	for _, c := range chords {
		if len(c.Pitches) == 0 {
			continue
		}
		t := float64(c.Bar) * beatsPerBar

		tones := c.Pitches[:min(melodyChordTones, len(c.Pitches))]
		notes = append(notes, melodyNote(tones[rng.IntN(len(tones))], t, velocity))

		for i := 1; i < melodyNotesInBar; i++ {
			pitch := tones[0]
			if len(scale) > 0 {
				pitch = scale[rng.IntN(len(scale))]
			}
			vel := clampVelocity(velocity - melodyFillDrop)
			if i == 1 {
				vel = clampVelocity(velocity - melodyPassDrop)
			}
			notes = append(notes, melodyNote(pitch, t+float64(i)*melodyNoteBeats, vel))
		}
	}
	return notes
}

func melodyNote(pitch int, start float64, velocity int) models.NoteEvent {
	return models.NoteEvent{
		MidiNoteNumber: foldPitch(pitch),
		Velocity:       velocity,
		StartBeats:     start,
		EndBeats:       start + melodyNoteBeats,
	}
}

func clampVelocity(v int) int {
	return clamp(v, models.MinVelocity, models.MaxVelocity)
}

// foldPitch moves a pitch by octaves into [0,127]
func foldPitch(p int) int {
	for p < models.MinPitch {
		p += 12
	}
	for p > models.MaxPitch {
		p -= 12
	}
	return p
}

func minPitch(pitches []int) int {
	m := pitches[0]
	for _, p := range pitches[1:] {
		if p < m {
			m = p
		}
	}
	return m
}
