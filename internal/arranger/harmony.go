package arranger

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-accompanist/internal/theory"
)

// Resolution is the result of resolving a progression. Chords holds one
// pitch set per known symbol; Skipped lists the unknown symbols in input
// order, so len(Chords)+len(Skipped) equals the progression length.
type Resolution struct {
	Chords  [][]int
	Skipped []string
	Scale   []int
}

// Resolve turns harmonic symbols into concrete pitch sets relative to root.
// Pitches are root + degree + formula offset with no clamping. The mode
// selects the scale returned alongside the chords; it does not move the
// symbol degrees.
func Resolve(th *theory.Theory, progression []string, root int, mode string) (Resolution, error) {
	intervals, ok := th.Mode(mode)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	res := Resolution{
		Chords: make([][]int, 0, len(progression)),
		Scale:  make([]int, len(intervals)),
	}
	for i, iv := range intervals {
		res.Scale[i] = root + iv
	}

	for _, label := range progression {
		sym, ok := th.Symbol(label)
		if !ok {
			res.Skipped = append(res.Skipped, label)
			continue
		}
		formula, _ := th.Quality(sym.Quality)
		chord := make([]int, len(formula))
		for i, o := range formula {
			chord[i] = root + sym.Degree + o
		}
		res.Chords = append(res.Chords, chord)
	}
	return res, nil
}
