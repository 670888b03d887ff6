package theory

import (
	"fmt"
	"strconv"
	"strings"
)

// defaultOctave places bare note names in the octave starting at middle C
const defaultOctave = 4

// noteOffsets are relative to C of the written octave, so Cb and B# cross
// into the neighbouring octave: Cb4 = B3, B#3 = C4.
var noteOffsets = map[string]int{
	"Cb": -1,
	"C":  0, "B#": 12,
	"C#": 1, "Db": 1,
	"D":  2,
	"D#": 3, "Eb": 3,
	"E":  4, "Fb": 4,
	"F":  5, "E#": 5,
	"F#": 6, "Gb": 6,
	"G":  7,
	"G#": 8, "Ab": 8,
	"A":  9,
	"A#": 10, "Bb": 10,
	"B":  11,
}

// NoteNames lists the sharp spellings of the twelve pitch classes
var NoteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNumber parses a root given as a MIDI number ("60") or a note name with
// an optional octave ("C", "f#", "Bb3", "Cb"). C4 = 60. Every single sharp
// or flat spelling is accepted; double accidentals are not.
func NoteNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty note")
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("MIDI note %d out of range [0,127]", n)
		}
		return n, nil
	}

	name := strings.ToUpper(s[:1])
	rest := s[1:]
	if len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b' || rest[0] == 'B') {
		if rest[0] == '#' {
			name += "#"
		} else {
			name += "b"
		}
		rest = rest[1:]
	}

	offset, ok := noteOffsets[name]
	if !ok {
		return 0, fmt.Errorf("invalid note name: %s", s)
	}

	octave := defaultOctave
	if rest != "" {
		o, err := strconv.Atoi(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid octave in %q: %w", s, err)
		}
		octave = o
	}

	n := (octave+1)*12 + offset
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note %s resolves to %d, outside [0,127]", s, n)
	}
	return n, nil
}

// NoteName returns the sharp spelling with octave for a MIDI number
func NoteName(n int) string {
	return fmt.Sprintf("%s%d", NoteNames[((n%12)+12)%12], n/12-1)
}
