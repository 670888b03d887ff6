package arranger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/magda-accompanist/internal/theory"
)

func TestResolve(t *testing.T) {
	th := theory.Default()

	tests := []struct {
		name        string
		progression []string
		root        int
		expected    [][]int
		skipped     []string
	}{
		{
			name:        "tonic major",
			progression: []string{"I"},
			root:        60,
			expected:    [][]int{{60, 64, 67}},
		},
		{
			name:        "leading tone diminished",
			progression: []string{"I", "vii°"},
			root:        60,
			expected:    [][]int{{60, 64, 67}, {71, 74, 77}},
		},
		{
			name:        "borrowed chords",
			progression: []string{"bVII", "bIII"},
			root:        57,
			expected:    [][]int{{67, 71, 74}, {60, 64, 67}},
		},
		{
			name:        "unknown symbols skipped",
			progression: []string{"I", "XYZ", "V", "??"},
			root:        60,
			expected:    [][]int{{60, 64, 67}, {67, 71, 74}},
			skipped:     []string{"XYZ", "??"},
		},
		{
			name:        "no clamping above 127",
			progression: []string{"V"},
			root:        125,
			expected:    [][]int{{132, 136, 139}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(th, tt.progression, tt.root, "major")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Chords)
			assert.Equal(t, tt.skipped, res.Skipped)
		})
	}
}

func TestResolveCardinalityMatchesFormula(t *testing.T) {
	th := theory.Default()
	tables := th.Tables()

	var progression []string
	for label := range tables.Symbols {
		progression = append(progression, label)
	}
	withUnknown := append(append([]string{}, progression...), "nope", "IX", "")

	for root := 0; root <= 127; root += 7 {
		res, err := Resolve(th, progression, root, "major")
		require.NoError(t, err)
		require.Len(t, res.Chords, len(progression))
		for i, label := range progression {
			sym, _ := th.Symbol(label)
			formula, _ := th.Quality(sym.Quality)
			assert.Len(t, res.Chords[i], len(formula), "symbol %s", label)
		}

		res2, err := Resolve(th, withUnknown, root, "major")
		require.NoError(t, err)
		assert.Equal(t, len(withUnknown)-3, len(res2.Chords))
		assert.Len(t, res2.Skipped, 3)
	}
}

func TestResolveScale(t *testing.T) {
	th := theory.Default()

	res, err := Resolve(th, nil, 62, "dorian")
	require.NoError(t, err)
	assert.Equal(t, []int{62, 64, 65, 67, 69, 71, 72}, res.Scale)
	assert.Empty(t, res.Chords)

	_, err = Resolve(th, []string{"I"}, 60, "superlocrian")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestSequenceOffsets(t *testing.T) {
	th := theory.Default()

	tl, err := Sequence(th, []string{"intro", "verse"}, th.Sections(), th.DefaultSection(), 60, "major")
	require.NoError(t, err)
	require.Len(t, tl.Sections, 2)
	assert.Equal(t, 0, tl.Sections[0].StartBar)
	assert.Equal(t, 4, tl.Sections[1].StartBar)
	assert.Equal(t, 8, tl.Bars)
	assert.Empty(t, tl.Fallbacks)

	flat := tl.Flatten()
	require.Len(t, flat, 8)
	for i, bc := range flat {
		assert.Equal(t, i, bc.Bar)
	}
}

func TestSequenceFallsBackToDefaultSection(t *testing.T) {
	th := theory.Default()

	tl, err := Sequence(th, []string{"intro", "interlude", "chorus"}, th.Sections(), "verse", 60, "major")
	require.NoError(t, err)
	assert.Equal(t, []string{"interlude"}, tl.Fallbacks)
	assert.True(t, tl.Sections[1].Fallback)

	verse, _ := th.Section("verse")
	res, _ := Resolve(th, verse, 60, "major")
	assert.Equal(t, res.Chords, tl.Sections[1].Chords)
	assert.Equal(t, []int{0, 4, 8}, []int{tl.Sections[0].StartBar, tl.Sections[1].StartBar, tl.Sections[2].StartBar})
}

func TestSequenceCursorAdvancesByResolvedChords(t *testing.T) {
	th := theory.Default()
	progressions := map[string][]string{
		"verse": {"I", "V"},
		"odd":   {"I", "bogus", "IV"},
	}

	tl, err := Sequence(th, []string{"odd", "verse"}, progressions, "verse", 60, "major")
	require.NoError(t, err)
	assert.Equal(t, 2, tl.Sections[1].StartBar)
	assert.Equal(t, []string{"bogus"}, tl.Skipped)
	assert.Equal(t, 4, tl.Bars)
}

func TestSequenceMissingDefaultSection(t *testing.T) {
	th := theory.Default()
	_, err := Sequence(th, []string{"intro"}, map[string][]string{"intro": {"I"}}, "verse", 60, "major")
	assert.Error(t, err)
}
