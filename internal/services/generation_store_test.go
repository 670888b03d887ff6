package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/magda-accompanist/internal/arranger"
	"github.com/Conceptual-Machines/magda-accompanist/internal/database"
	"github.com/Conceptual-Machines/magda-accompanist/internal/theory"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Connect("sqlite", dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func generate(t *testing.T, genre string, seed int64) *arranger.Result {
	t.Helper()
	res, err := arranger.New(theory.Default()).Generate(context.Background(), arranger.Request{
		Root:      60,
		Genre:     genre,
		Structure: []string{"intro", "verse"},
	}, arranger.NewRand(seed))
	require.NoError(t, err)
	return res
}

func TestGenerationStoreSaveAndGet(t *testing.T) {
	store := NewGenerationStore(newTestDB(t))
	ctx := context.Background()
	res := generate(t, "polka", 4)

	rec, err := store.Save(ctx, GenerationMeta{
		RequestID: "req-1",
		UserID:    "user-1",
		Root:      60,
		Seed:      4,
		Duration:  15 * time.Millisecond,
	}, res)
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, "pop", rec.Genre)
	assert.Equal(t, "intro,verse", rec.Structure)
	assert.Equal(t, 15, rec.DurationMS)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, int64(4), got.Seed)
	assert.Equal(t, res.Tracks, got.Tracks)
	assert.Equal(t, res.Substitutions, got.Substitutions)
	assert.Equal(t, res.Arrangement().NoteCount(), got.NoteCount)
}

func TestGenerationStoreGetMissing(t *testing.T) {
	store := NewGenerationStore(newTestDB(t))

	_, err := store.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrGenerationNotFound)
}

func TestGenerationStoreList(t *testing.T) {
	store := NewGenerationStore(newTestDB(t))
	ctx := context.Background()

	for i, genre := range []string{"pop", "jazz", "pop"} {
		_, err := store.Save(ctx, GenerationMeta{Root: 60, Seed: int64(i)}, generate(t, genre, int64(i)))
		require.NoError(t, err)
	}

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pop, err := store.List(ctx, "pop", 10)
	require.NoError(t, err)
	assert.Len(t, pop, 2)
	for _, g := range pop {
		assert.Equal(t, "pop", g.Genre)
	}

	limited, err := store.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestConnectUnknownType(t *testing.T) {
	_, err := database.Connect("oracle", "dsn", false)
	assert.Error(t, err)
}
