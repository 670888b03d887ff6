package models

import "fmt"

const (
	MinPitch    = 0
	MaxPitch    = 127
	MinVelocity = 1
	MaxVelocity = 127
)

// NoteEvent represents a single note with beat-relative timing
// (1 bar = 4 beats). Conversion to seconds is left to the sink.
type NoteEvent struct {
	MidiNoteNumber int     `json:"midiNoteNumber"`
	Velocity       int     `json:"velocity"`
	StartBeats     float64 `json:"startBeats"`
	EndBeats       float64 `json:"endBeats"`
}

// DurationBeats returns the note length in beats
func (n NoteEvent) DurationBeats() float64 {
	return n.EndBeats - n.StartBeats
}

// Validate checks pitch, velocity and timing bounds
func (n NoteEvent) Validate() error {
	if n.MidiNoteNumber < MinPitch || n.MidiNoteNumber > MaxPitch {
		return fmt.Errorf("pitch %d out of range [%d,%d]", n.MidiNoteNumber, MinPitch, MaxPitch)
	}
	if n.Velocity < MinVelocity || n.Velocity > MaxVelocity {
		return fmt.Errorf("velocity %d out of range [%d,%d]", n.Velocity, MinVelocity, MaxVelocity)
	}
	if n.StartBeats < 0 {
		return fmt.Errorf("negative start %.4f", n.StartBeats)
	}
	if n.EndBeats <= n.StartBeats {
		return fmt.Errorf("end %.4f not after start %.4f", n.EndBeats, n.StartBeats)
	}
	return nil
}

// Track is a named note stream handed to a sink
type Track struct {
	Name       string      `json:"name"`
	Section    string      `json:"section"`
	Role       string      `json:"role"`
	Percussion bool        `json:"percussion"`
	Notes      []NoteEvent `json:"notes"`
}

// Arrangement is everything a note-sequence sink needs to render a song.
// Programs maps a role name ("piano", "bass", "melody") to a GM program.
type Arrangement struct {
	Genre    string         `json:"genre"`
	Tempo    int            `json:"tempo"`
	Programs map[string]int `json:"programs,omitempty"`
	Tracks   []Track        `json:"tracks"`
}

// NoteCount returns the total number of notes across all tracks
func (a *Arrangement) NoteCount() int {
	count := 0
	for _, t := range a.Tracks {
		count += len(t.Notes)
	}
	return count
}
