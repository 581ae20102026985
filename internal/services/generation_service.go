package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"grid/internal/apperr"
	"grid/internal/config"
	"grid/internal/graph"
	"grid/internal/models"
	"grid/internal/novelai"
)

// GenerationService turns a session definition into zero or more
// persisted images. Per-artifact failures are logged and skipped; a
// failed provider call fails the whole invocation.
type GenerationService struct {
	store    graph.GraphStore
	provider ImageProvider
	cfg      *config.Config
	logger   *slog.Logger
	limiter  *rate.Limiter
}

func NewGenerationService(store graph.GraphStore, provider ImageProvider, cfg *config.Config, logger *slog.Logger) *GenerationService {
	return &GenerationService{
		store:    store,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		// One provider call per second keeps batches under upstream
		// rate limits and spaces out derived seeds.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// GenerateImages runs a single provider invocation for the session and
// persists every artifact it returns.
func (s *GenerationService) GenerateImages(ctx context.Context, session *models.GenerationSession, userID string) ([]models.GeneratedImage, error) {
	params, model, err := s.prepareSession(ctx, session, userID)
	if err != nil {
		return nil, err
	}

	images, attempted, err := s.runInvocation(ctx, session, params, model)
	if err != nil {
		s.finishSession(ctx, session.ID, models.SessionFailed)
		return nil, err
	}

	s.finishSession(ctx, session.ID, batchStatus(attempted, len(images)))
	return images, nil
}

// GenerateBatch performs count sequential provider invocations for the
// session, pacing calls with the rate limiter and deriving a distinct
// seed per invocation. One invocation's failure does not abort the rest.
func (s *GenerationService) GenerateBatch(ctx context.Context, session *models.GenerationSession, userID string, count int) ([]models.GeneratedImage, error) {
	if count < 1 {
		return nil, apperr.Validationf("session %s: batch count must be at least 1, got %d", session.ID, count)
	}

	params, model, err := s.prepareSession(ctx, session, userID)
	if err != nil {
		return nil, err
	}

	baseSeed := seedFrom(params)
	var all []models.GeneratedImage
	attempted := 0
	for i := 0; i < count; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			s.finishSession(ctx, session.ID, models.SessionFailed)
			return all, apperr.Providerf("session %s: batch interrupted: %v", session.ID, err)
		}
		invocationParams := copyParams(params)
		invocationParams["seed"] = baseSeed + int64(i)

		images, n, err := s.runInvocation(ctx, session, invocationParams, model)
		attempted += n
		if err != nil {
			s.logger.Error("batch invocation failed", "session_id", session.ID, "invocation", i, "error", err)
			attempted++
			continue
		}
		all = append(all, images...)
	}

	s.finishSession(ctx, session.ID, batchStatus(attempted, len(all)))
	return all, nil
}

// prepareSession persists the session and resolves its parameters and
// model. A persistence failure aborts the call; malformed parameter
// JSON aborts before any generation happens.
func (s *GenerationService) prepareSession(ctx context.Context, session *models.GenerationSession, userID string) (map[string]any, string, error) {
	model := s.cfg.DefaultModel
	if m := modelFrom(session.BaseParameters); m != "" {
		model = m
	}

	if err := s.store.CreateSession(ctx, session, userID, model); err != nil {
		return nil, "", err
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(session.BaseParameters), &params); err != nil {
		s.finishSession(ctx, session.ID, models.SessionFailed)
		return nil, "", apperr.Validationf("invalid JSON in base parameters of session %s: %v", session.ID, err)
	}
	params["model"] = model

	s.finishSession(ctx, session.ID, models.SessionRunning)
	return params, model, nil
}

// runInvocation performs one provider call and persists each returned
// artifact. Per-artifact file or store failures are logged and skipped.
func (s *GenerationService) runInvocation(ctx context.Context, session *models.GenerationSession, params map[string]any, model string) ([]models.GeneratedImage, int, error) {
	artifacts, err := s.provider.GenerateImage(ctx, session.BasePromptPositive, model, "generate", params)
	if err != nil {
		return nil, 0, fmt.Errorf("generate images for session %s: %w", session.ID, err)
	}

	seed := seedFrom(params)
	now := time.Now()
	dir := filepath.Join(s.cfg.GeneratedDir(),
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
		session.ID)

	images := make([]models.GeneratedImage, 0, len(artifacts))
	for i, artifact := range artifacts {
		// Providers increment the seed for each image of a batch.
		artifactSeed := seed + int64(i)
		ext := filepath.Ext(artifact.Name)
		if ext == "" {
			ext = ".png"
		}
		path := filepath.Join(dir, fmt.Sprintf("%d%s", artifactSeed, ext))

		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Error("skipping artifact, cannot create directory", "session_id", session.ID, "dir", dir, "error", err)
			continue
		}
		if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
			s.logger.Error("skipping artifact, file write failed", "session_id", session.ID, "path", path, "error", err)
			continue
		}

		image := models.GeneratedImage{
			ID:                   uuid.NewString(),
			ImagePath:            path,
			Seed:                 artifactSeed,
			ActualParameters:     copyParams(params),
			ActualPromptPositive: session.BasePromptPositive,
			ActualPromptNegative: session.BasePromptNegative,
			Rating:               0,
			GenerationStatus:     models.ImageSuccess,
		}
		if err := s.store.CreateImage(ctx, &image, session.ID); err != nil {
			s.logger.Error("skipping artifact, store write failed", "session_id", session.ID, "image_id", image.ID, "error", err)
			continue
		}
		images = append(images, image)
	}

	return images, len(artifacts), nil
}

// finishSession records a session status transition, best effort.
func (s *GenerationService) finishSession(ctx context.Context, sessionID string, status models.SessionStatus) {
	if err := s.store.UpdateSessionStatus(ctx, sessionID, status); err != nil {
		s.logger.Error("failed to update session status", "session_id", sessionID, "status", status, "error", err)
	}
}

func batchStatus(attempted, persisted int) models.SessionStatus {
	switch {
	case attempted == 0 || persisted == attempted:
		return models.SessionCompleted
	case persisted == 0:
		return models.SessionFailed
	default:
		return models.SessionPartiallyFailed
	}
}

// seedFrom reads the seed parameter, deriving one from the clock when
// the caller left it unset. Seed uniqueness between invocations is the
// caller's job; the provider does not guarantee it.
func seedFrom(params map[string]any) int64 {
	if v, ok := params["seed"]; ok {
		switch n := v.(type) {
		case float64:
			return int64(n)
		case int64:
			return n
		case int:
			return int64(n)
		}
	}
	return time.Now().Unix()
}

// modelFrom peeks at the model parameter without failing on malformed
// JSON; validation proper happens after the session is persisted.
func modelFrom(rawParams string) string {
	var params map[string]any
	if err := json.Unmarshal([]byte(rawParams), &params); err != nil {
		return ""
	}
	if m, ok := params["model"].(string); ok {
		return m
	}
	return ""
}

func copyParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

var _ ImageProvider = (*novelai.Client)(nil)
