package theory

// Symbol maps a harmonic label ("I", "vi", "bVII") to a scale degree offset
// in semitones and a chord quality name.
type Symbol struct {
	Degree  int    `yaml:"degree" json:"degree"`
	Quality string `yaml:"quality" json:"quality"`
}

// Hit is one percussion voice struck at a beat offset within a bar.
// Key is filled from the percussion map when the theory is built.
type Hit struct {
	Voice string  `yaml:"voice" json:"voice"`
	Beat  float64 `yaml:"beat" json:"beat"`
	Key   int     `yaml:"-" json:"key"`
}

// Dynamics is the velocity range of a dynamic marking ("mf", "ff")
type Dynamics struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Mid is the centre of the range
func (d Dynamics) Mid() int {
	return (d.Min + d.Max) / 2
}

// Genre is a preset bundling song form and performance defaults
type Genre struct {
	Structure []string `yaml:"structure" json:"structure"`
	Mode      string   `yaml:"mode" json:"mode"`
	Swing     bool     `yaml:"swing" json:"swing"`

	// Comp names the comp pattern; empty borrows the fallback genre's
	Comp         string   `yaml:"comp" json:"comp,omitempty"`
	// Dynamics names the marking that sets the role base velocities
	Dynamics     string   `yaml:"dynamics" json:"dynamics,omitempty"`
	// Progressions lists the library progressions idiomatic to the genre
	Progressions []string `yaml:"progressions" json:"progressions,omitempty"`

	// Humanization window overrides (zero keeps the arranger defaults)
	TimingJitter   float64 `yaml:"timing_jitter" json:"timing_jitter,omitempty"`
	VelocityJitter int     `yaml:"velocity_jitter" json:"velocity_jitter,omitempty"`

	TempoMin int `yaml:"tempo_min" json:"tempo_min"`
	TempoMax int `yaml:"tempo_max" json:"tempo_max"`

	// Programs maps role → GM program number, consumed only by sinks
	Programs map[string]int `yaml:"programs" json:"programs,omitempty"`

	// Sections overrides the shared section → progression table. An entry
	// may name a library progression instead of a symbol.
	Sections map[string][]string `yaml:"sections" json:"sections,omitempty"`
}

// Tables is the raw, mutable form of the theory configuration. It is what
// YAML documents decode into; New turns it into an immutable Theory.
type Tables struct {
	Qualities       map[string][]int     `yaml:"qualities"`
	Symbols         map[string]Symbol    `yaml:"symbols"`
	Modes           map[string][]int     `yaml:"modes"`
	Progressions    map[string][]string  `yaml:"progressions"`
	Sections        map[string][]string  `yaml:"sections"`
	DefaultSection  string               `yaml:"default_section"`
	Percussion      map[string]int       `yaml:"percussion"`
	Grooves         map[string][]Hit     `yaml:"grooves"`
	BassPatterns    map[string][]int     `yaml:"bass_patterns"`
	// CompPatterns are named bar subdivisions shared by comping and arpeggios
	CompPatterns    map[string][]float64 `yaml:"comp_patterns"`
	Dynamics        map[string]Dynamics  `yaml:"dynamics"`
	DefaultDynamics string               `yaml:"default_dynamics"`
	Genres          map[string]Genre     `yaml:"genres"`
	FallbackGenre   string               `yaml:"fallback_genre"`
}

func eighths(voice string) []Hit {
	hits := make([]Hit, 0, 8)
	for i := 0; i < 8; i++ {
		hits = append(hits, Hit{Voice: voice, Beat: float64(i) * 0.5})
	}
	return hits
}

func sixteenths(voice string) []Hit {
	hits := make([]Hit, 0, 16)
	for i := 0; i < 16; i++ {
		hits = append(hits, Hit{Voice: voice, Beat: float64(i) * 0.25})
	}
	return hits
}

func hits(voice string, beats ...float64) []Hit {
	out := make([]Hit, 0, len(beats))
	for _, b := range beats {
		out = append(out, Hit{Voice: voice, Beat: b})
	}
	return out
}

func concat(groups ...[]Hit) []Hit {
	var out []Hit
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var (
	popStructure   = []string{"intro", "verse", "chorus", "verse", "chorus", "bridge", "chorus", "outro"}
	jazzStructure  = []string{"intro", "head", "solo", "head", "outro"}
	bluesStructure = []string{"intro", "chorus", "chorus", "solo", "chorus", "outro"}
	edmStructure   = []string{"intro", "build", "drop", "break", "drop", "outro"}
	filmStructure  = []string{"intro", "theme", "variation", "climax", "resolution"}
)

// DefaultTables returns a fresh copy of the built-in theory tables
func DefaultTables() Tables {
	return Tables{
		Qualities: map[string][]int{
			"major":            {0, 4, 7},
			"minor":            {0, 3, 7},
			"dominant7":        {0, 4, 7, 10},
			"minor7":           {0, 3, 7, 10},
			"major7":           {0, 4, 7, 11},
			"augmented":        {0, 4, 8},
			"diminished":       {0, 3, 6},
			"half_diminished7": {0, 3, 6, 10},
			"diminished7":      {0, 3, 6, 9},
			"sus2":             {0, 2, 7},
			"sus4":             {0, 5, 7},
			"major6":           {0, 4, 7, 9},
			"minor6":           {0, 3, 7, 9},
			"9":                {0, 4, 7, 10, 14},
			"minor9":           {0, 3, 7, 10, 14},
			"major9":           {0, 4, 7, 11, 14},
			"11":               {0, 4, 7, 10, 14, 17},
			"13":               {0, 4, 7, 10, 14, 17, 21},
			"add9":             {0, 4, 7, 14},
			"minor_add9":       {0, 3, 7, 14},
			"power":            {0, 7},
		},
		Symbols: map[string]Symbol{
			"I":    {Degree: 0, Quality: "major"},
			"ii":   {Degree: 2, Quality: "minor"},
			"iii":  {Degree: 4, Quality: "minor"},
			"IV":   {Degree: 5, Quality: "major"},
			"V":    {Degree: 7, Quality: "major"},
			"vi":   {Degree: 9, Quality: "minor"},
			"vii°": {Degree: 11, Quality: "diminished"},
			"i":    {Degree: 0, Quality: "minor"},
			"bIII": {Degree: 3, Quality: "major"},
			"bVII": {Degree: 10, Quality: "major"},
			"III":  {Degree: 4, Quality: "major"},
			"VI":   {Degree: 9, Quality: "major"},
			"VII":  {Degree: 11, Quality: "major"},
		},
		Modes: map[string][]int{
			"major":            {0, 2, 4, 5, 7, 9, 11},
			"minor":            {0, 2, 3, 5, 7, 8, 10},
			"ionian":           {0, 2, 4, 5, 7, 9, 11},
			"dorian":           {0, 2, 3, 5, 7, 9, 10},
			"phrygian":         {0, 1, 3, 5, 7, 8, 10},
			"lydian":           {0, 2, 4, 6, 7, 9, 11},
			"mixolydian":       {0, 2, 4, 5, 7, 9, 10},
			"aeolian":          {0, 2, 3, 5, 7, 8, 10},
			"locrian":          {0, 1, 3, 5, 6, 8, 10},
			"harmonic_minor":   {0, 2, 3, 5, 7, 8, 11},
			"melodic_minor":    {0, 2, 3, 5, 7, 9, 11},
			"pentatonic_major": {0, 2, 4, 7, 9},
			"pentatonic_minor": {0, 3, 5, 7, 10},
			"blues":            {0, 3, 5, 6, 7, 10},
			"whole_tone":       {0, 2, 4, 6, 8, 10},
		},
		Progressions: map[string][]string{
			"jazz_ii-V-I":      {"ii", "V", "I"},
			"jazz_turnaround":  {"I", "vi", "ii", "V"},
			"pop_axis":         {"I", "V", "vi", "IV"},
			"blues_12bar":      {"I", "I", "I", "I", "IV", "IV", "I", "I", "V", "IV", "I", "V"},
			"circle_of_fifths": {"I", "IV", "vii°", "iii", "vi", "ii", "V", "I"},
			"funk_jam":         {"i", "bVII", "IV", "i"},
			"latin_salsa":      {"I", "IV", "V", "IV"},
			"edm_drop":         {"vi", "IV", "I", "V"},
			"film_epic":        {"I", "V", "vi", "iii", "IV", "I", "IV", "V"},
		},
		Sections: map[string][]string{
			"intro":  {"I", "V", "vi", "IV"},
			"verse":  {"I", "V", "vi", "IV"},
			"chorus": {"vi", "IV", "I", "V"},
			"bridge": {"IV", "V", "iii", "vi"},
			"head":   {"ii", "V", "I", "I"},
			"solo":   {"ii", "V", "I", "I"},
			"drop":   {"vi", "IV", "I", "V"},
			"build":  {"I", "ii", "IV", "V"},
			"outro":  {"I", "I", "I", "I"},
		},
		DefaultSection: "verse",
		Percussion: map[string]int{
			"kick": 36, "snare": 38, "closed_hat": 42, "open_hat": 46,
			"ride": 51, "crash": 49, "tom_low": 45, "tom_mid": 47, "tom_high": 50,
			"clap": 39, "rim": 37, "cowbell": 56, "conga": 64, "bongo": 60,
		},
		Grooves: map[string][]Hit{
			"pop": concat(
				hits("kick", 0),
				hits("snare", 1, 3),
				eighths("closed_hat"),
			),
			"rock": concat(
				hits("kick", 0, 2),
				hits("snare", 1, 3),
				eighths("closed_hat"),
			),
			"jazz": hits("ride", 0, 0.5, 1, 2, 2.5, 3),
			"funk": concat(
				hits("kick", 0),
				hits("snare", 1, 2.5),
				sixteenths("closed_hat"),
			),
			"edm": hits("kick", 0, 1, 2, 3),
			"latin": concat(
				hits("conga", 0.5),
				hits("cowbell", 1),
				hits("bongo", 2.5),
			),
			"orchestral": concat(
				hits("kick", 0),
				hits("snare", 3),
				hits("crash", 0),
			),
		},
		BassPatterns: map[string][]int{
			"pop":        {0, 0, 0, 0},
			"rock":       {0, 7, 0, 7},
			"jazz":       {0, 4, 7, 11},
			"funk":       {0, 7, 0, 5},
			"edm":        {0, 0, 0, 0},
			"latin":      {0, 7, 5, 7},
			"orchestral": {0, 0, 7, 0},
			"walking":    {0, 2, 4, 5},
		},
		CompPatterns: map[string][]float64{
			"straight":            {1, 1, 1, 1},
			"syncopated":          {0.75, 0.25, 1, 1},
			"triplet":             {2.0 / 3, 2.0 / 3, 2.0 / 3},
			"swing":               {0.66, 0.34, 0.66, 0.34},
			"clave_3-2":           {1, 0.5, 0.5, 1, 1},
			"clave_2-3":           {0.5, 1, 0.5, 1, 1},
			"polyrhythm_3_over_4": {1.0 / 3, 1.0 / 3, 1.0 / 3, 0.5, 0.5, 0.5, 0.5},
			"jazz_comp":           {0.5, 0.5, 1, 1},
			"eighths":             {0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
		},
		Dynamics: map[string]Dynamics{
			"pp":  {Min: 30, Max: 45},
			"p":   {Min: 46, Max: 60},
			"mp":  {Min: 61, Max: 75},
			"mf":  {Min: 76, Max: 90},
			"f":   {Min: 91, Max: 105},
			"ff":  {Min: 106, Max: 120},
			"fff": {Min: 121, Max: 127},
		},
		DefaultDynamics: "mf",
		Genres: map[string]Genre{
			"pop": {
				Structure: popStructure, Mode: "major",
				Comp: "straight", Dynamics: "mf",
				Progressions: []string{"pop_axis"},
				TimingJitter: 0.01, VelocityJitter: 4,
				TempoMin: 90, TempoMax: 120,
				Programs: map[string]int{"piano": 0, "bass": 33, "melody": 81},
			},
			"rock": {
				Structure: popStructure, Mode: "mixolydian",
				Dynamics: "f",
				TimingJitter: 0.02, VelocityJitter: 6,
				TempoMin: 100, TempoMax: 140,
				Programs: map[string]int{"piano": 29, "bass": 34, "melody": 29},
			},
			"jazz": {
				Structure: jazzStructure, Mode: "dorian", Swing: true,
				Comp: "jazz_comp", Dynamics: "mp",
				Progressions: []string{"jazz_ii-V-I", "jazz_turnaround"},
				TimingJitter: 0.03, VelocityJitter: 9,
				TempoMin: 60, TempoMax: 160,
				Programs: map[string]int{"piano": 0, "bass": 32, "melody": 65},
			},
			"blues": {
				Structure: bluesStructure, Mode: "blues", Swing: true,
				Comp: "straight", Dynamics: "mf",
				Progressions: []string{"blues_12bar"},
				TimingJitter: 0.025, VelocityJitter: 8,
				TempoMin: 70, TempoMax: 110,
				Programs: map[string]int{"piano": 26, "bass": 34, "melody": 27},
				Sections: map[string][]string{
					"chorus": {"blues_12bar"},
				},
			},
			"funk": {
				Structure: popStructure, Mode: "dorian", Swing: true,
				Comp: "syncopated", Dynamics: "mf",
				Progressions: []string{"funk_jam"},
				TimingJitter: 0.02, VelocityJitter: 10,
				TempoMin: 90, TempoMax: 120,
				Programs: map[string]int{"piano": 4, "bass": 33, "melody": 81},
				Sections: map[string][]string{
					"verse":  {"funk_jam"},
					"chorus": {"I", "bIII", "IV", "IV"},
				},
			},
			"edm": {
				Structure: edmStructure, Mode: "minor",
				Comp: "eighths", Dynamics: "ff",
				Progressions: []string{"edm_drop"},
				TimingJitter: 0.005, VelocityJitter: 3,
				TempoMin: 120, TempoMax: 140,
				Programs: map[string]int{"piano": 89, "bass": 38, "melody": 81},
			},
			"latin": {
				Structure: popStructure, Mode: "major",
				Comp: "clave_3-2", Dynamics: "f",
				Progressions: []string{"latin_salsa"},
				TimingJitter: 0.02, VelocityJitter: 6,
				TempoMin: 90, TempoMax: 130,
				Programs: map[string]int{"piano": 0, "bass": 33, "melody": 73},
				Sections: map[string][]string{
					"verse": {"latin_salsa"},
				},
			},
			"orchestral": {
				Structure: filmStructure, Mode: "major",
				Dynamics:     "mf",
				Progressions: []string{"film_epic"},
				TimingJitter: 0.015, VelocityJitter: 5,
				TempoMin: 60, TempoMax: 100,
				Programs: map[string]int{"piano": 48, "bass": 43, "melody": 40},
				Sections: map[string][]string{
					"theme": {"film_epic"},
				},
			},
			"film": {
				Structure: filmStructure, Mode: "aeolian",
				Dynamics: "f",
				TimingJitter: 0.02, VelocityJitter: 6,
				TempoMin: 60, TempoMax: 120,
				Programs: map[string]int{"piano": 48, "bass": 43, "melody": 61},
				Sections: map[string][]string{
					"intro":      {"i", "VI", "III", "VII"},
					"climax":     {"I", "V", "vi", "IV"},
					"resolution": {"IV", "V", "I", "I"},
				},
			},
		},
		FallbackGenre: "pop",
	}
}
