package models

// GenerationRequest wraps the caller's arrangement parameters
type GenerationRequest struct {
	// Root accepts a note name ("C", "F#", "Bb3") or a MIDI number ("60")
	Root      string   `json:"root" binding:"required"`
	Genre     string   `json:"genre"`               // Defaults to the configured genre
	Structure []string `json:"structure,omitempty"` // Overrides the genre's song form
	Mode      string   `json:"mode,omitempty"`      // Scale mode for the melody
	Seed      *int64   `json:"seed,omitempty"`      // Optional seed for reproducibility
	Swing     *bool    `json:"swing,omitempty"`     // Overrides the genre's swing default
	Tempo     int      `json:"tempo,omitempty"`     // BPM hint for the sink

	// Optional arrangement controls
	Comp        string `json:"comp,omitempty"`        // Named comp pattern ("clave_3-2")
	Progression string `json:"progression,omitempty"` // Library progression for every section
	Inversion   int    `json:"inversion,omitempty"`   // Comping chord inversion
	Arp         string `json:"arp,omitempty"`         // Adds an arpeggio track on this pattern
	Bars        int    `json:"bars,omitempty"`        // Song length in bars
	Dynamics    string `json:"dynamics,omitempty"`    // Dynamic marking ("mp", "ff")

	// Persist stores the generation record when a database is configured
	Persist bool `json:"persist"`
}
