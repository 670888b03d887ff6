package arranger

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-accompanist/internal/theory"
)

// SectionTimeline is one section of the song with its resolved chords and
// absolute start bar. Each chord lasts one bar.
type SectionTimeline struct {
	Name     string  `json:"name"`
	Chords   [][]int `json:"chords"`
	StartBar int     `json:"start_bar"`
	Fallback bool    `json:"fallback,omitempty"`
}

// Bars is the number of bars the section spans
func (s SectionTimeline) Bars() int {
	return len(s.Chords)
}

// BarChords tags each chord with its absolute bar index
func (s SectionTimeline) BarChords() []BarChord {
	out := make([]BarChord, len(s.Chords))
	for i, c := range s.Chords {
		out[i] = BarChord{Bar: s.StartBar + i, Pitches: c}
	}
	return out
}

// BarChord is a chord placed at an absolute bar
type BarChord struct {
	Bar     int
	Pitches []int
}

// Timeline is the sequenced song
type Timeline struct {
	Sections []SectionTimeline
	// Skipped collects unknown symbols across all sections, in order
	Skipped []string
	// Fallbacks names the sections that used the default progression
	Fallbacks []string
	Bars      int
	Scale     []int
}

// Flatten concatenates every section's chords
func (t Timeline) Flatten() []BarChord {
	out := make([]BarChord, 0, t.Bars)
	for _, s := range t.Sections {
		out = append(out, s.BarChords()...)
	}
	return out
}

// Sequence walks the structure in order, resolving each section's
// progression and placing it at the running bar cursor. A section without
// its own progression uses the progression of defaultSection.
func Sequence(th *theory.Theory, structure []string, progressions map[string][]string, defaultSection string, root int, mode string) (Timeline, error) {
	fallbackProg, ok := progressions[defaultSection]
	if !ok {
		return Timeline{}, fmt.Errorf("default section %q has no progression", defaultSection)
	}

	tl := Timeline{Sections: make([]SectionTimeline, 0, len(structure))}
	cursor := 0
	for _, name := range structure {
		prog, ok := progressions[name]
		fallback := !ok
		if fallback {
			prog = fallbackProg
			tl.Fallbacks = append(tl.Fallbacks, name)
		}

		res, err := Resolve(th, prog, root, mode)
		if err != nil {
			return Timeline{}, err
		}
		tl.Scale = res.Scale
		tl.Skipped = append(tl.Skipped, res.Skipped...)
		tl.Sections = append(tl.Sections, SectionTimeline{
			Name:     name,
			Chords:   res.Chords,
			StartBar: cursor,
			Fallback: fallback,
		})
		cursor += len(res.Chords)
	}
	tl.Bars = cursor

	if tl.Scale == nil {
		res, err := Resolve(th, nil, root, mode)
		if err != nil {
			return Timeline{}, err
		}
		tl.Scale = res.Scale
	}
	return tl, nil
}

// Fit returns the timeline stretched or cut to exactly bars bars. A short
// song repeats its sections from the top; the section that crosses the
// limit is cut at it. Sections without chords are dropped. A non-positive
// bars or an empty timeline leaves it unchanged.
func (t Timeline) Fit(bars int) Timeline {
	if bars <= 0 || t.Bars == 0 || t.Bars == bars {
		return t
	}

	out := Timeline{
		Skipped:   t.Skipped,
		Fallbacks: t.Fallbacks,
		Scale:     t.Scale,
	}
	cursor := 0
	for cursor < bars {
		for _, s := range t.Sections {
			if cursor >= bars {
				break
			}
			if len(s.Chords) == 0 {
				continue
			}
			n := min(len(s.Chords), bars-cursor)
			out.Sections = append(out.Sections, SectionTimeline{
				Name:     s.Name,
				Chords:   s.Chords[:n],
				StartBar: cursor,
				Fallback: s.Fallback,
			})
			cursor += n
		}
	}
	out.Bars = cursor
	return out
}
