package arranger

import "github.com/Conceptual-Machines/magda-accompanist/internal/models"

// Role names used in track names
const (
	RolePiano  = "piano"
	RoleBass   = "bass"
	RoleDrums  = "drums"
	RoleMelody = "melody"
	RoleArp    = "arp"
)

// RoleOutput is one role's note stream for one section
type RoleOutput struct {
	Section    string
	Role       string
	Notes      []models.NoteEvent
	Percussion bool
}

// Assemble labels each role output as a "<section>_<role>" track
func Assemble(outputs []RoleOutput) []models.Track {
	tracks := make([]models.Track, 0, len(outputs))
	for _, o := range outputs {
		notes := make([]models.NoteEvent, len(o.Notes))
		copy(notes, o.Notes)
		tracks = append(tracks, models.Track{
			Name:       o.Section + "_" + o.Role,
			Section:    o.Section,
			Role:       o.Role,
			Percussion: o.Percussion,
			Notes:      notes,
		})
	}
	return tracks
}
