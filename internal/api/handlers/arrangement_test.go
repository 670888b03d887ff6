package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/magda-accompanist/internal/api/middleware"
	"github.com/Conceptual-Machines/magda-accompanist/internal/arranger"
	"github.com/Conceptual-Machines/magda-accompanist/internal/database"
	"github.com/Conceptual-Machines/magda-accompanist/internal/metrics"
	"github.com/Conceptual-Machines/magda-accompanist/internal/services"
	"github.com/Conceptual-Machines/magda-accompanist/internal/theory"
)

func setupArrangementRouter(t *testing.T, withStore bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var store *services.GenerationStore
	if withStore {
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
		db, err := database.Connect("sqlite", dsn, false)
		require.NoError(t, err)
		require.NoError(t, database.Migrate(db))
		store = services.NewGenerationStore(db)
	}

	cw, err := metrics.NewClient(context.Background(), "test", "", "us-east-1")
	require.NoError(t, err)

	h := NewArrangementHandler(arranger.New(theory.Default()), store, cw, "pop")

	router := gin.New()
	router.Use(middleware.RequestTracking(cw), middleware.NoAuth())
	router.POST("/api/v1/arrangements", h.Generate)
	router.POST("/api/v1/arrangements/midi", h.GenerateMIDI)
	router.GET("/api/v1/arrangements", h.List)
	router.GET("/api/v1/arrangements/:id", h.Get)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateArrangement(t *testing.T) {
	router := setupArrangementRouter(t, false)

	w := postJSON(router, "/api/v1/arrangements", `{"root":"C","genre":"pop","structure":["intro","verse"],"seed":42}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ArrangementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 60, resp.Root)
	assert.Equal(t, int64(42), resp.Seed)
	assert.NotEmpty(t, resp.RequestID)
	assert.Empty(t, resp.ID)
	require.NotNil(t, resp.Result)
	assert.Len(t, resp.Tracks, 8)
	assert.Equal(t, "intro_piano", resp.Tracks[0].Name)
	assert.Equal(t, 8, resp.Bars)
}

func TestGenerateArrangementIsReproducible(t *testing.T) {
	router := setupArrangementRouter(t, false)
	body := `{"root":"62","genre":"jazz","seed":7}`

	first := postJSON(router, "/api/v1/arrangements", body)
	second := postJSON(router, "/api/v1/arrangements", body)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b ArrangementResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.Tracks, b.Tracks)
}

func TestGenerateArrangementDefaultsGenre(t *testing.T) {
	router := setupArrangementRouter(t, false)

	w := postJSON(router, "/api/v1/arrangements", `{"root":"A3","structure":["chorus"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ArrangementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pop", resp.Genre)
	assert.Equal(t, 57, resp.Root)
}

func TestGenerateArrangementReportsSubstitutions(t *testing.T) {
	router := setupArrangementRouter(t, false)

	w := postJSON(router, "/api/v1/arrangements", `{"root":"C","genre":"polka","structure":["verse"],"seed":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ArrangementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pop", resp.Genre)
	assert.Contains(t, resp.Substitutions, arranger.Substitution{Kind: "genre", Requested: "polka", Used: "pop"})
}

func TestGenerateArrangementBadRequests(t *testing.T) {
	router := setupArrangementRouter(t, false)

	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{name: "root out of range", body: `{"root":"128","genre":"pop"}`, errMsg: "invalid root"},
		{name: "root not a note", body: `{"root":"H#","genre":"pop"}`, errMsg: "invalid root"},
		{name: "missing root", body: `{"genre":"pop"}`, errMsg: "Root"},
		{name: "malformed json", body: `{"root":`, errMsg: ""},
		{name: "unknown mode", body: `{"root":"C","genre":"pop","mode":"bebop"}`, errMsg: "unknown scale mode"},
		{name: "empty structure", body: `{"root":"C","genre":"pop","structure":[]}`, errMsg: "empty song structure"},
		{name: "tempo", body: `{"root":"C","genre":"pop","tempo":1000}`, errMsg: "tempo"},
		{name: "unknown comp", body: `{"root":"C","genre":"pop","comp":"habanera"}`, errMsg: "unknown comp pattern"},
		{name: "unknown progression", body: `{"root":"C","genre":"pop","progression":"rhythm_changes"}`, errMsg: "unknown progression"},
		{name: "unknown dynamics", body: `{"root":"C","genre":"pop","dynamics":"ffff"}`, errMsg: "unknown dynamics"},
		{name: "bars", body: `{"root":"C","genre":"pop","bars":1000}`, errMsg: "bar count"},
		{name: "inversion", body: `{"root":"C","genre":"pop","inversion":-2}`, errMsg: "inversion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, "/api/v1/arrangements", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp["error"], tt.errMsg)
		})
	}
}

func TestGenerateArrangementControls(t *testing.T) {
	router := setupArrangementRouter(t, false)

	body := `{"root":"Cb","genre":"latin","structure":["verse"],"seed":5,"comp":"clave_2-3","progression":"latin_salsa","inversion":1,"arp":"triplet","bars":6,"dynamics":"p"}`
	w := postJSON(router, "/api/v1/arrangements", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ArrangementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 59, resp.Root)
	assert.Equal(t, "clave_2-3", resp.Comp)
	assert.Equal(t, "triplet", resp.Arp)
	assert.Equal(t, "p", resp.Dynamics)
	assert.Equal(t, 6, resp.Bars)
	require.Len(t, resp.Tracks, 10)
	assert.Equal(t, "verse_arp", resp.Tracks[4].Name)
}

func TestGenerateMIDIWithArp(t *testing.T) {
	router := setupArrangementRouter(t, false)

	w := postJSON(router, "/api/v1/arrangements/midi", `{"root":"C","genre":"pop","structure":["verse"],"seed":3,"arp":"straight"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	s, err := smf.ReadFrom(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Len(t, s.Tracks, 6)
}

func TestGenerateMIDI(t *testing.T) {
	router := setupArrangementRouter(t, false)

	w := postJSON(router, "/api/v1/arrangements/midi", `{"root":"F#","genre":"rock","structure":["intro","chorus"],"seed":3}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="F#4_rock.mid"`)
	assert.Equal(t, "3", w.Header().Get("X-Arrangement-Seed"))

	s, err := smf.ReadFrom(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Len(t, s.Tracks, 9)
}

func TestPersistAndFetchGeneration(t *testing.T) {
	router := setupArrangementRouter(t, true)

	w := postJSON(router, "/api/v1/arrangements", `{"root":"C","genre":"blues","structure":["intro"],"seed":5,"persist":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	var created ArrangementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	get := httptest.NewRecorder()
	router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/arrangements/"+created.ID, nil))
	require.Equal(t, http.StatusOK, get.Code)

	var stored services.StoredGeneration
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &stored))
	assert.Equal(t, created.ID, stored.ID)
	assert.Equal(t, "blues", stored.Genre)
	assert.Equal(t, int64(5), stored.Seed)
	assert.Equal(t, "anonymous", stored.UserID)
	assert.Equal(t, created.Tracks, stored.Tracks)

	list := httptest.NewRecorder()
	router.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/v1/arrangements?genre=blues", nil))
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), created.ID)

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/arrangements/nope", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestStoreEndpointsWithoutDatabase(t *testing.T) {
	router := setupArrangementRouter(t, false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/arrangements/abc", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// persist is ignored without a store
	resp := postJSON(router, "/api/v1/arrangements", `{"root":"C","structure":["verse"],"persist":true}`)
	assert.Equal(t, http.StatusOK, resp.Code)
}
