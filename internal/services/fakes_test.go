package services

import (
	"context"
	"io"
	"log/slog"

	"grid/internal/apperr"
	"grid/internal/eagle"
	"grid/internal/graph"
	"grid/internal/models"
	"grid/internal/novelai"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory GraphStore with switchable failure points.
type fakeStore struct {
	sessions map[string]*models.GenerationSession
	images   map[string]*models.GeneratedImage
	tags     map[string][]string
	vibes    map[string]*models.VibeImage

	createSessionErr  error
	createVibeErr     error
	updateRatingErr   error
	updateEagleIDErr  error
	failCreateImageAt int // 1-based call index that fails, 0 = never
	addTagErrFor      map[string]error

	createImageCalls int
	statusHistory    []models.SessionStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:     make(map[string]*models.GenerationSession),
		images:       make(map[string]*models.GeneratedImage),
		tags:         make(map[string][]string),
		vibes:        make(map[string]*models.VibeImage),
		addTagErrFor: make(map[string]error),
	}
}

var _ graph.GraphStore = (*fakeStore)(nil)

func (f *fakeStore) CheckConnectivity(context.Context) bool { return true }
func (f *fakeStore) Close() error                           { return nil }

func (f *fakeStore) EnsureUser(_ context.Context, userID string) error { return nil }
func (f *fakeStore) EnsureModel(_ context.Context, name string) error  { return nil }

func (f *fakeStore) CreateSession(_ context.Context, session *models.GenerationSession, userID, modelName string) error {
	if f.createSessionErr != nil {
		return f.createSessionErr
	}
	session.UserID = userID
	session.ModelName = modelName
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*models.GenerationSession, error) {
	return f.sessions[id], nil
}

func (f *fakeStore) UpdateSessionStatus(_ context.Context, id string, status models.SessionStatus) error {
	if s, ok := f.sessions[id]; ok {
		s.OverallStatus = status
	}
	f.statusHistory = append(f.statusHistory, status)
	return nil
}

func (f *fakeStore) CreateVibe(_ context.Context, vibe *models.VibeImage) error {
	if f.createVibeErr != nil {
		return f.createVibeErr
	}
	f.vibes[vibe.ID] = vibe
	return nil
}

func (f *fakeStore) GetVibe(_ context.Context, id string) (*models.VibeImage, error) {
	return f.vibes[id], nil
}

func (f *fakeStore) CreateImage(_ context.Context, image *models.GeneratedImage, sessionID string) error {
	f.createImageCalls++
	if f.failCreateImageAt != 0 && f.createImageCalls == f.failCreateImageAt {
		return apperr.Persistencef("create image %s: forced failure", image.ID)
	}
	image.SessionID = sessionID
	f.images[image.ID] = image
	return nil
}

func (f *fakeStore) GetImage(_ context.Context, id string) (*models.GeneratedImage, error) {
	return f.images[id], nil
}

func (f *fakeStore) UpdateImageStatus(_ context.Context, id string, status models.ImageStatus, errorMessage string) error {
	if img, ok := f.images[id]; ok {
		img.GenerationStatus = status
		img.ErrorMessage = errorMessage
	}
	return nil
}

func (f *fakeStore) UpdateImageRating(_ context.Context, id string, rating int) error {
	if err := models.ValidateRating(rating); err != nil {
		return apperr.Validationf("image %s: %v", id, err)
	}
	if f.updateRatingErr != nil {
		return f.updateRatingErr
	}
	if img, ok := f.images[id]; ok {
		img.Rating = rating
	}
	return nil
}

func (f *fakeStore) UpdateImageEagleID(_ context.Context, id, eagleItemID string) error {
	if f.updateEagleIDErr != nil {
		return f.updateEagleIDErr
	}
	if img, ok := f.images[id]; ok {
		img.EagleItemID = eagleItemID
	}
	return nil
}

func (f *fakeStore) AddTagToImage(_ context.Context, imageID, tagName string) error {
	if err, ok := f.addTagErrFor[tagName]; ok {
		return err
	}
	for _, existing := range f.tags[imageID] {
		if existing == tagName {
			return nil
		}
	}
	f.tags[imageID] = append(f.tags[imageID], tagName)
	return nil
}

func (f *fakeStore) ListImageTags(_ context.Context, imageID string) ([]string, error) {
	return f.tags[imageID], nil
}

// fakeProvider returns canned artifacts and records the calls it saw.
type fakeProvider struct {
	artifacts []novelai.Artifact
	err       error

	calls      int
	lastPrompt string
	lastModel  string
	seenParams []map[string]any
}

func (f *fakeProvider) GenerateImage(_ context.Context, prompt, model, action string, parameters map[string]any) ([]novelai.Artifact, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastModel = model
	f.seenParams = append(f.seenParams, parameters)
	if f.err != nil {
		return nil, f.err
	}
	return f.artifacts, nil
}

// fakeExporter records add/update calls and fails on demand.
type fakeExporter struct {
	addResult []eagle.Item
	addErr    error
	updateErr error

	addCalls       int
	updateCalls    int
	lastPaths      []string
	lastNames      []string
	lastTags       []string
	lastAnnotation string
	lastUpdateID   string
	lastRating     *int
}

func (f *fakeExporter) AddItems(_ context.Context, paths, names, tags []string, annotation string) ([]eagle.Item, error) {
	f.addCalls++
	f.lastPaths = paths
	f.lastNames = names
	f.lastTags = tags
	f.lastAnnotation = annotation
	if f.addErr != nil {
		return nil, f.addErr
	}
	return f.addResult, nil
}

func (f *fakeExporter) UpdateItem(_ context.Context, id string, tags []string, annotation string, rating *int) (*eagle.Item, error) {
	f.updateCalls++
	f.lastUpdateID = id
	f.lastRating = rating
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &eagle.Item{ID: id, Star: *rating}, nil
}
