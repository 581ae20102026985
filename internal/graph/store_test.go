package graph

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid/internal/apperr"
	"grid/internal/models"
)

func newTestStore(t *testing.T) GraphStore {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "grid_test.db")})
	require.NoError(t, err)
	store := NewGraphStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestSession(id string) *models.GenerationSession {
	return &models.GenerationSession{
		ID:                 id,
		Name:               "portrait study",
		Timestamp:          time.Now(),
		BaseParameters:     `{"steps": 28, "seed": 1234}`,
		BasePromptPositive: "1girl, solo",
		BasePromptNegative: "lowres",
		OverallStatus:      models.SessionPending,
	}
}

func newTestImage(id string) *models.GeneratedImage {
	return &models.GeneratedImage{
		ID:                   id,
		ImagePath:            "data/generated/2026/08/31/session-1/1234.png",
		Seed:                 1234,
		ActualParameters:     map[string]any{"steps": float64(28), "sampler": "k_euler"},
		ActualPromptPositive: "1girl, solo",
		GenerationStatus:     models.ImageSuccess,
	}
}

func TestCheckConnectivity(t *testing.T) {
	store := newTestStore(t)
	assert.True(t, store.CheckConnectivity(context.Background()))
}

func TestCloseIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())
	// A second close must not blow up.
	_ = store.Close()
}

func TestEnsureUserAndModelAreIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureUser(ctx, "default"))
	require.NoError(t, store.EnsureUser(ctx, "default"))
	require.NoError(t, store.EnsureModel(ctx, "nai-diffusion-4-full"))
	require.NoError(t, store.EnsureModel(ctx, "nai-diffusion-4-full"))
}

func TestCreateSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := newTestSession("session-1")
	require.NoError(t, store.CreateSession(ctx, session, "default", "nai-diffusion-4-full"))

	got, err := store.GetSession(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "portrait study", got.Name)
	assert.Equal(t, "default", got.UserID)
	assert.Equal(t, "nai-diffusion-4-full", got.ModelName)
	assert.Equal(t, models.SessionPending, got.OverallStatus)
}

func TestGetSessionAbsenceIsNotAnError(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetSession(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateSessionStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, newTestSession("session-1"), "default", "m"))
	require.NoError(t, store.UpdateSessionStatus(ctx, "session-1", models.SessionPartiallyFailed))

	got, err := store.GetSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionPartiallyFailed, got.OverallStatus)

	err = store.UpdateSessionStatus(ctx, "session-1", models.SessionStatus("exploded"))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = store.UpdateSessionStatus(ctx, "no-such-session", models.SessionCompleted)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestCreateImageRequiresSession(t *testing.T) {
	store := newTestStore(t)

	err := store.CreateImage(context.Background(), newTestImage("img-1"), "no-such-session")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Contains(t, err.Error(), "no-such-session")
}

func TestCreateImageRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, newTestSession("session-1"), "default", "m"))
	require.NoError(t, store.CreateImage(ctx, newTestImage("img-1"), "session-1"))

	got, err := store.GetImage(ctx, "img-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, int64(1234), got.Seed)
	// Parameters survive the JSON serializer round trip.
	assert.Equal(t, float64(28), got.ActualParameters["steps"])
	assert.Equal(t, "k_euler", got.ActualParameters["sampler"])
	assert.Equal(t, 0, got.Rating)
}

func TestUpdateImageRatingBounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, newTestSession("session-1"), "default", "m"))
	require.NoError(t, store.CreateImage(ctx, newTestImage("img-1"), "session-1"))

	for rating := models.MinRating; rating <= models.MaxRating; rating++ {
		require.NoError(t, store.UpdateImageRating(ctx, "img-1", rating))
		got, err := store.GetImage(ctx, "img-1")
		require.NoError(t, err)
		assert.Equal(t, rating, got.Rating)
	}

	for _, rating := range []int{-1, 6, 100} {
		err := store.UpdateImageRating(ctx, "img-1", rating)
		require.Error(t, err, "rating %d", rating)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}

	// The stored rating is unchanged after rejected updates.
	got, err := store.GetImage(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, models.MaxRating, got.Rating)
}

func TestUpdateImageStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, newTestSession("session-1"), "default", "m"))
	image := newTestImage("img-1")
	image.GenerationStatus = models.ImagePending
	require.NoError(t, store.CreateImage(ctx, image, "session-1"))

	require.NoError(t, store.UpdateImageStatus(ctx, "img-1", models.ImageError, "disk full"))
	got, err := store.GetImage(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, models.ImageError, got.GenerationStatus)
	assert.Equal(t, "disk full", got.ErrorMessage)

	err = store.UpdateImageStatus(ctx, "img-1", models.ImageStatus("nope"), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateImageEagleID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, newTestSession("session-1"), "default", "m"))
	require.NoError(t, store.CreateImage(ctx, newTestImage("img-1"), "session-1"))

	require.NoError(t, store.UpdateImageEagleID(ctx, "img-1", "EAGLE123"))
	got, err := store.GetImage(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, "EAGLE123", got.EagleItemID)

	err = store.UpdateImageEagleID(ctx, "no-such-image", "EAGLE123")
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestAddTagToImageIsSetUnion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, newTestSession("session-1"), "default", "m"))
	require.NoError(t, store.CreateImage(ctx, newTestImage("img-1"), "session-1"))
	require.NoError(t, store.CreateImage(ctx, newTestImage("img-2"), "session-1"))

	require.NoError(t, store.AddTagToImage(ctx, "img-1", "keyword:solo"))
	require.NoError(t, store.AddTagToImage(ctx, "img-1", "keyword:solo"))
	require.NoError(t, store.AddTagToImage(ctx, "img-1", "param:steps:28"))
	// The tag node is shared between images.
	require.NoError(t, store.AddTagToImage(ctx, "img-2", "keyword:solo"))

	tags, err := store.ListImageTags(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"keyword:solo", "param:steps:28"}, tags)

	tags, err = store.ListImageTags(ctx, "img-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"keyword:solo"}, tags)
}

func TestVibeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Now()
	vibe := &models.VibeImage{
		ID:              "vibe-1",
		ImagePath:       "data/vibe/source.png",
		VibeType:        models.VibeParent,
		EncodedIE:       0.8,
		EncodedVibePath: "data/encoded/2026/08/31/vibe_vibe-1.naiv4vibe",
		Notes:           "warm palette",
		CreatedAt:       created,
	}
	require.NoError(t, store.CreateVibe(ctx, vibe))

	got, err := store.GetVibe(ctx, "vibe-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, vibe.ImagePath, got.ImagePath)
	assert.Equal(t, models.VibeParent, got.VibeType)
	assert.InDelta(t, 0.8, got.EncodedIE, 1e-9)
	assert.Equal(t, vibe.EncodedVibePath, got.EncodedVibePath)
	assert.Equal(t, "warm palette", got.Notes)
	assert.WithinDuration(t, created, got.CreatedAt, time.Second)

	missing, err := store.GetVibe(ctx, "no-such-vibe")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateVibeRejectsBadType(t *testing.T) {
	store := newTestStore(t)

	err := store.CreateVibe(context.Background(), &models.VibeImage{
		ID:        "vibe-1",
		ImagePath: "x.png",
		VibeType:  models.VibeType("Cousin"),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
