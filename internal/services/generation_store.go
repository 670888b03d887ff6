package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/magda-accompanist/internal/arranger"
	"github.com/Conceptual-Machines/magda-accompanist/internal/models"
)

// ErrGenerationNotFound is returned when no record matches the id
var ErrGenerationNotFound = errors.New("generation not found")

// defaultListLimit caps List when the caller passes no limit
const defaultListLimit = 50

// GenerationStore persists generation records
type GenerationStore struct {
	db *gorm.DB
}

func NewGenerationStore(db *gorm.DB) *GenerationStore {
	return &GenerationStore{db: db}
}

// GenerationMeta is the request context stored with a generation
type GenerationMeta struct {
	RequestID string
	UserID    string
	Root      int
	Seed      int64
	Duration  time.Duration
}

// StoredGeneration is a record with its decoded payload
type StoredGeneration struct {
	models.Generation
	Substitutions []arranger.Substitution `json:"substitutions"`
	Tracks        []models.Track          `json:"tracks,omitempty"`
}

// Save stores the result of one generation and returns the record
func (s *GenerationStore) Save(ctx context.Context, meta GenerationMeta, res *arranger.Result) (*models.Generation, error) {
	tracks, err := json.Marshal(res.Tracks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tracks: %w", err)
	}
	subs, err := json.Marshal(res.Substitutions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode substitutions: %w", err)
	}

	arr := res.Arrangement()
	rec := &models.Generation{
		ID:            uuid.New().String(),
		RequestID:     meta.RequestID,
		UserID:        meta.UserID,
		Root:          meta.Root,
		Genre:         res.Genre,
		Mode:          res.Mode,
		Seed:          meta.Seed,
		Swing:         res.Swing,
		Tempo:         res.Tempo,
		Bars:          res.Bars,
		NoteCount:     arr.NoteCount(),
		Structure:     strings.Join(res.Structure, ","),
		Substitutions: string(subs),
		Tracks:        string(tracks),
		DurationMS:    int(meta.Duration.Milliseconds()),
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to save generation: %w", err)
	}
	return rec, nil
}

// Get loads a record by id with its tracks and substitutions decoded
func (s *GenerationStore) Get(ctx context.Context, id string) (*StoredGeneration, error) {
	var rec models.Generation
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, fmt.Errorf("failed to get generation %s: %w", id, err)
	}

	out := &StoredGeneration{Generation: rec}
	if rec.Tracks != "" {
		if err := json.Unmarshal([]byte(rec.Tracks), &out.Tracks); err != nil {
			return nil, fmt.Errorf("failed to decode tracks of %s: %w", id, err)
		}
	}
	if rec.Substitutions != "" {
		if err := json.Unmarshal([]byte(rec.Substitutions), &out.Substitutions); err != nil {
			return nil, fmt.Errorf("failed to decode substitutions of %s: %w", id, err)
		}
	}
	return out, nil
}

// List returns the most recent records, newest first, optionally filtered
// by genre. Tracks are not decoded.
func (s *GenerationStore) List(ctx context.Context, genre string, limit int) ([]models.Generation, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := s.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if genre != "" {
		q = q.Where("genre = ?", genre)
	}

	var recs []models.Generation
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	return recs, nil
}
