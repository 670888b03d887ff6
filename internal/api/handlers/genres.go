package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/magda-accompanist/internal/theory"
)

type GenresHandler struct {
	theory *theory.Theory
}

func NewGenresHandler(th *theory.Theory) *GenresHandler {
	return &GenresHandler{theory: th}
}

type GenreInfo struct {
	Name         string   `json:"name"`
	Structure    []string `json:"structure"`
	Mode         string   `json:"mode"`
	Swing        bool     `json:"swing"`
	TempoMin     int      `json:"tempo_min"`
	TempoMax     int      `json:"tempo_max"`
	Comp         string   `json:"comp,omitempty"`
	Dynamics     string   `json:"dynamics,omitempty"`
	Progressions []string `json:"progressions,omitempty"`
	// Fallbacks lists the per-genre tables this genre borrows from the
	// fallback genre
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// ListGenres returns every genre preset with its defaults
func (h *GenresHandler) ListGenres(c *gin.Context) {
	names := h.theory.GenreNames()
	genres := make([]GenreInfo, 0, len(names))
	for _, name := range names {
		g, _ := h.theory.Genre(name)
		info := GenreInfo{
			Name:         name,
			Structure:    g.Structure,
			Mode:         g.Mode,
			Swing:        g.Swing,
			TempoMin:     g.TempoMin,
			TempoMax:     g.TempoMax,
			Comp:         g.Comp,
			Dynamics:     g.Dynamics,
			Progressions: g.Progressions,
		}
		if _, ok := h.theory.Groove(name); !ok {
			info.Fallbacks = append(info.Fallbacks, "groove")
		}
		if _, ok := h.theory.BassPattern(name); !ok {
			info.Fallbacks = append(info.Fallbacks, "bass_pattern")
		}
		if g.Comp == "" {
			info.Fallbacks = append(info.Fallbacks, "comp_pattern")
		}
		genres = append(genres, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"genres":         genres,
		"fallback_genre": h.theory.FallbackGenre(),
		"modes":          h.theory.ModeNames(),
		"comp_patterns":  h.theory.CompPatternNames(),
		"progressions":   h.theory.ProgressionNames(),
		"dynamics":       h.theory.DynamicsNames(),
	})
}
