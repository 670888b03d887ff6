package models

import (
	"time"
)

// Generation is the stored record of one arrangement request
type Generation struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	RequestID     string    `gorm:"index" json:"request_id"`
	UserID        string    `gorm:"index" json:"user_id"`
	Root          int       `gorm:"not null" json:"root"`
	Genre         string    `gorm:"not null;index" json:"genre"`
	Mode          string    `json:"mode"`
	Seed          int64     `json:"seed"`
	Swing         bool      `json:"swing"`
	Tempo         int       `json:"tempo"`
	Bars          int       `json:"bars"`
	NoteCount     int       `json:"note_count"`
	Structure     string    `json:"structure"`                  // Comma-separated section names
	Substitutions string    `gorm:"type:text" json:"-"`         // JSON-encoded fallback list
	Tracks        string    `gorm:"type:text" json:"-"`         // JSON-encoded tracks
	DurationMS    int       `json:"duration_ms"`
}
