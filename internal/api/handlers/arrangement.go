package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/magda-accompanist/internal/api/middleware"
	"github.com/Conceptual-Machines/magda-accompanist/internal/arranger"
	"github.com/Conceptual-Machines/magda-accompanist/internal/logger"
	"github.com/Conceptual-Machines/magda-accompanist/internal/metrics"
	"github.com/Conceptual-Machines/magda-accompanist/internal/models"
	"github.com/Conceptual-Machines/magda-accompanist/internal/services"
	"github.com/Conceptual-Machines/magda-accompanist/internal/sink"
	"github.com/Conceptual-Machines/magda-accompanist/internal/theory"
)

type ArrangementHandler struct {
	arranger     *arranger.Arranger
	store        *services.GenerationStore
	sentry       *metrics.SentryMetrics
	cloudwatch   *metrics.Client
	defaultGenre string
}

// NewArrangementHandler wires the arranger to the HTTP layer. store may be
// nil when no database is configured.
func NewArrangementHandler(a *arranger.Arranger, store *services.GenerationStore, cw *metrics.Client, defaultGenre string) *ArrangementHandler {
	return &ArrangementHandler{
		arranger:     a,
		store:        store,
		sentry:       metrics.NewSentryMetrics(),
		cloudwatch:   cw,
		defaultGenre: defaultGenre,
	}
}

type ArrangementResponse struct {
	ID        string `json:"id,omitempty"`
	RequestID string `json:"request_id"`
	Root      int    `json:"root"`
	Seed      int64  `json:"seed"`
	*arranger.Result
}

// arrangementRun is one finished generation
type arrangementRun struct {
	id     string
	root   int
	seed   int64
	result *arranger.Result
}

// Generate arranges a song and returns its tracks as JSON
func (h *ArrangementHandler) Generate(c *gin.Context) {
	run, ok := h.run(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ArrangementResponse{
		ID:        run.id,
		RequestID: c.GetString("request_id"),
		Root:      run.root,
		Seed:      run.seed,
		Result:    run.result,
	})
}

// GenerateMIDI arranges a song and returns it as a Standard MIDI File
func (h *ArrangementHandler) GenerateMIDI(c *gin.Context) {
	run, ok := h.run(c)
	if !ok {
		return
	}

	enc := sink.NewMIDIEncoder()
	var buf bytes.Buffer
	if err := enc.Encode(&buf, run.result.Arrangement()); err != nil {
		logger.Error("MIDI encoding failed", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode MIDI"})
		return
	}

	filename := fmt.Sprintf("%s_%s%s", theory.NoteName(run.root), run.result.Genre, enc.Extension())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Arrangement-Seed", strconv.FormatInt(run.seed, 10))
	if run.id != "" {
		c.Header("X-Arrangement-ID", run.id)
	}
	c.Data(http.StatusOK, enc.ContentType(), buf.Bytes())
}

// Get returns a stored generation
func (h *ArrangementHandler) Get(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation storage is not configured"})
		return
	}

	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrGenerationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "generation not found"})
			return
		}
		logger.Error("Failed to load generation", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load generation"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// List returns recent stored generations
func (h *ArrangementHandler) List(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation storage is not configured"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit > maxListPageSize {
		limit = maxListPageSize
	}

	recs, err := h.store.List(c.Request.Context(), c.Query("genre"), limit)
	if err != nil {
		logger.Error("Failed to list generations", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list generations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"generations": recs, "count": len(recs)})
}

// run binds the request, generates, records metrics and optionally
// persists. On failure it writes the error response and returns false.
func (h *ArrangementHandler) run(c *gin.Context) (*arrangementRun, bool) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	root, err := theory.NoteNumber(req.Root)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid root: %v", err)})
		return nil, false
	}

	genre := req.Genre
	if genre == "" {
		genre = h.defaultGenre
	}

	seed := rand.Int64()
	if req.Seed != nil {
		seed = *req.Seed
	}

	userID := middleware.GetUserID(c)
	log.Printf("🎹 Arrangement request from user %s (root=%s genre=%s seed=%d)", userID, theory.NoteName(root), genre, seed)

	start := time.Now()
	res, err := h.arranger.Generate(c.Request.Context(), arranger.Request{
		Root:        root,
		Genre:       genre,
		Structure:   req.Structure,
		Mode:        req.Mode,
		Swing:       req.Swing,
		Tempo:       req.Tempo,
		Comp:        req.Comp,
		Progression: req.Progression,
		Inversion:   req.Inversion,
		Arp:         req.Arp,
		Bars:        req.Bars,
		Dynamics:    req.Dynamics,
	}, arranger.NewRand(seed))
	duration := time.Since(start)

	if err != nil {
		h.sentry.RecordGeneration(c.Request.Context(), metrics.GenerationStats{Genre: genre, Duration: duration})
		h.cloudwatch.RecordGeneration(genre, duration, 0, 0, false)
		if arranger.IsInvalidInput(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
		logger.Error("Arrangement failed", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "arrangement failed"})
		return nil, false
	}

	notes := res.Arrangement().NoteCount()
	h.sentry.RecordGeneration(c.Request.Context(), metrics.GenerationStats{
		Genre:         res.Genre,
		Bars:          res.Bars,
		Tracks:        len(res.Tracks),
		Notes:         notes,
		Substitutions: len(res.Substitutions),
		Skipped:       len(res.Skipped),
		Duration:      duration,
		Success:       true,
	})
	h.cloudwatch.RecordGeneration(res.Genre, duration, notes, len(res.Substitutions), true)

	fields := logger.WithContext(c)
	fields["seed"] = seed
	logger.LogArrangement(c.Request.Context(), res.Genre, duration, map[string]interface{}{
		"bars":          res.Bars,
		"tracks":        len(res.Tracks),
		"notes":         notes,
		"substitutions": len(res.Substitutions),
	}, fields)

	run := &arrangementRun{root: root, seed: seed, result: res}
	if req.Persist {
		run.id = h.persist(c, root, seed, duration, res)
	}
	return run, true
}

func (h *ArrangementHandler) persist(c *gin.Context, root int, seed int64, duration time.Duration, res *arranger.Result) string {
	if h.store == nil {
		logger.Warn("Persist requested but no database is configured", logger.WithContext(c))
		return ""
	}

	rec, err := h.store.Save(c.Request.Context(), services.GenerationMeta{
		RequestID: c.GetString("request_id"),
		UserID:    middleware.GetUserID(c),
		Root:      root,
		Seed:      seed,
		Duration:  duration,
	}, res)
	if err != nil {
		// the arrangement is still returned
		logger.Error("Failed to store generation", err, logger.WithContext(c))
		return ""
	}
	return rec.ID
}
