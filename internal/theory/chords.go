package theory

// Invert raises the n lowest notes of a chord by an octave, giving its nth
// inversion. n wraps around the chord size, so inversion 3 of a triad is
// root position again. Pitches are expected in ascending order.
func Invert(pitches []int, n int) []int {
	if len(pitches) == 0 {
		return nil
	}
	n %= len(pitches)
	if n < 0 {
		n += len(pitches)
	}
	out := make([]int, 0, len(pitches))
	out = append(out, pitches[n:]...)
	for _, p := range pitches[:n] {
		out = append(out, p+12)
	}
	return out
}

// Inversions lists root position and every inversion of a chord formula
func Inversions(formula []int) [][]int {
	out := make([][]int, len(formula))
	for i := range formula {
		out[i] = Invert(formula, i)
	}
	return out
}
