package sink

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/magda-accompanist/internal/models"
)

const (
	// DefaultPPQ is the SMF resolution in ticks per quarter note
	DefaultPPQ   = 960
	defaultTempo = 120

	drumChannel = 9
)

// roleChannels assigns melodic roles to fixed channels. Sections of the
// same role share a channel so program changes stay consistent.
var roleChannels = map[string]uint8{
	"piano":  0,
	"bass":   1,
	"melody": 2,
	"arp":    3,
}

// programFallbacks names the role whose program a role borrows when the
// genre assigns it none
var programFallbacks = map[string]string{
	"arp": "piano",
}

// MIDIEncoder writes a Standard MIDI File (format 1). The first track
// carries tempo and meter; every arrangement track follows in order.
type MIDIEncoder struct {
	PPQ uint16
}

// NewMIDIEncoder returns an encoder at the default resolution
func NewMIDIEncoder() *MIDIEncoder {
	return &MIDIEncoder{PPQ: DefaultPPQ}
}

func (e *MIDIEncoder) ContentType() string { return "audio/midi" }
func (e *MIDIEncoder) Extension() string   { return ".mid" }

// Encode converts beat times to ticks and writes the file to w
func (e *MIDIEncoder) Encode(w io.Writer, arr models.Arrangement) error {
	ppq := e.PPQ
	if ppq == 0 {
		ppq = DefaultPPQ
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ppq)

	tempo := arr.Tempo
	if tempo <= 0 {
		tempo = defaultTempo
	}

	var meta smf.Track
	meta.Add(0, smf.MetaTrackSequenceName(arr.Genre))
	meta.Add(0, smf.MetaMeter(4, 4))
	meta.Add(0, smf.MetaTempo(float64(tempo)))
	meta.Close(0)
	if err := s.Add(meta); err != nil {
		return fmt.Errorf("failed to add tempo track: %w", err)
	}

	for _, t := range arr.Tracks {
		tr, err := buildTrack(t, arr.Programs, ppq)
		if err != nil {
			return fmt.Errorf("track %s: %w", t.Name, err)
		}
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("failed to add track %s: %w", t.Name, err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write MIDI file: %w", err)
	}
	return nil
}

type tickNote struct {
	start, end uint32
	key, vel   uint8
}

type tickEvent struct {
	tick uint32
	on   bool
	key  uint8
	vel  uint8
}

func buildTrack(t models.Track, programs map[string]int, ppq uint16) (smf.Track, error) {
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(t.Name))

	channel := uint8(drumChannel)
	if !t.Percussion {
		channel = roleChannels[t.Role]
		program, ok := programs[t.Role]
		if !ok {
			program = programs[programFallbacks[t.Role]]
		}
		if program < 0 || program > 127 {
			return nil, fmt.Errorf("program %d out of range", program)
		}
		tr.Add(0, midi.ProgramChange(channel, uint8(program)))
	}

	notes := make([]tickNote, 0, len(t.Notes))
	for _, n := range t.Notes {
		if err := n.Validate(); err != nil {
			return nil, err
		}
		start := toTicks(n.StartBeats, ppq)
		end := toTicks(n.EndBeats, ppq)
		if end <= start {
			end = start + 1
		}
		notes = append(notes, tickNote{start: start, end: end, key: uint8(n.MidiNoteNumber), vel: uint8(n.Velocity)})
	}

	events := make([]tickEvent, 0, len(notes)*2)
	for _, n := range releaseOverlaps(notes) {
		events = append(events,
			tickEvent{tick: n.start, on: true, key: n.key, vel: n.vel},
			tickEvent{tick: n.end, on: false, key: n.key},
		)
	}

	// note-offs sort before note-ons on the same tick so a repeated
	// pitch is released before it is struck again
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})

	var last uint32
	for _, ev := range events {
		delta := ev.tick - last
		last = ev.tick
		if ev.on {
			tr.Add(delta, midi.NoteOn(channel, ev.key, ev.vel))
		} else {
			tr.Add(delta, midi.NoteOff(channel, ev.key))
		}
	}
	tr.Close(0)
	return tr, nil
}

// releaseOverlaps ends every note no later than the next strike of the same
// key. A channel holds one voice per key, so a note-off that lands after
// the next note-on would silence the newer note. Two strikes of one key on
// the same tick collapse into a single note lasting as long as the longer.
func releaseOverlaps(notes []tickNote) []tickNote {
	sorted := make([]tickNote, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].key != sorted[j].key {
			return sorted[i].key < sorted[j].key
		}
		return sorted[i].start < sorted[j].start
	})

	out := make([]tickNote, 0, len(sorted))
	for i := 0; i < len(sorted); i++ {
		n := sorted[i]
		if i+1 < len(sorted) && sorted[i+1].key == n.key {
			next := &sorted[i+1]
			if next.start == n.start {
				next.end = max(next.end, n.end)
				next.vel = max(next.vel, n.vel)
				continue
			}
			if n.end > next.start {
				n.end = next.start
			}
		}
		out = append(out, n)
	}
	return out
}

func toTicks(beats float64, ppq uint16) uint32 {
	return uint32(math.Round(beats * float64(ppq)))
}
