package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"grid/internal/eagle"
	"grid/internal/graph"
	"grid/internal/models"
)

// EvaluationService sequences rating persistence, tag generation, and
// curation export for a single image. The steps form a saga: each
// outcome is observable on its own and earlier steps are never rolled
// back when a later one fails. The rating committed in step 1 staying
// behind after a failed export is an accepted inconsistency window.
type EvaluationService struct {
	store    graph.GraphStore
	tagging  *TaggingService
	exporter CurationExporter
	logger   *slog.Logger
}

func NewEvaluationService(store graph.GraphStore, tagging *TaggingService, exporter CurationExporter, logger *slog.Logger) *EvaluationService {
	return &EvaluationService{store: store, tagging: tagging, exporter: exporter, logger: logger}
}

// EvaluateAndExport rates the image, tags it, and exports it to the
// curation library. It never returns an error: all failures come back
// as (false, message), with the message naming the affected entity so
// an operator can reconcile by hand.
func (s *EvaluationService) EvaluateAndExport(ctx context.Context, image *models.GeneratedImage, rating int) (bool, string) {
	// 1. Persist the rating. A failure here stops everything; nothing
	// downstream has happened yet.
	if err := s.store.UpdateImageRating(ctx, image.ID, rating); err != nil {
		s.logger.Error("rating update failed", "image_id", image.ID, "error", err)
		return false, err.Error()
	}
	image.Rating = rating

	// 2. Derive and attach tags. Per-tag write failures are already
	// swallowed inside the tagging service.
	tags := s.tagging.GenerateAndAddTags(ctx, image)

	// 3. Human-readable annotation for the curated entry.
	annotation := buildAnnotation(image, tags)

	// 4. Add to the curation library. Add cannot carry the rating.
	name := fmt.Sprintf("%s_seed%d", image.ID, image.Seed)
	items, err := s.exporter.AddItems(ctx, []string{image.ImagePath}, []string{name}, tags, annotation)
	if err != nil {
		s.logger.Error("curation add failed", "image_id", image.ID, "error", err)
		return false, fmt.Sprintf("curation add failed for image %s: %v", image.ID, err)
	}
	if len(items) == 0 || items[0].ID == "" {
		return false, fmt.Sprintf("curation add for image %s returned no item id", image.ID)
	}
	eagleItemID := items[0].ID

	// 5. Patch the rating onto the created item. If this fails the item
	// already exists externally without a rating; name its id so the
	// orphaned entry can be located.
	if _, err := s.exporter.UpdateItem(ctx, eagleItemID, nil, "", &rating); err != nil {
		s.logger.Error("curation rating patch failed", "image_id", image.ID, "eagle_item_id", eagleItemID, "error", err)
		return false, fmt.Sprintf("rating patch failed for curation item %s (already created for image %s): %v", eagleItemID, image.ID, err)
	}

	// 6. Persist the external id back onto the image record.
	if err := s.store.UpdateImageEagleID(ctx, image.ID, eagleItemID); err != nil {
		s.logger.Error("persisting curation id failed", "image_id", image.ID, "eagle_item_id", eagleItemID, "error", err)
		return false, fmt.Sprintf("image %s exported as curation item %s but persisting the id failed: %v", image.ID, eagleItemID, err)
	}
	image.EagleItemID = eagleItemID

	s.logger.Info("image evaluated and exported", "image_id", image.ID, "eagle_item_id", eagleItemID, "rating", rating)
	return true, ""
}

// buildAnnotation summarizes id, seed, prompts, rating, and tags for
// the curated entry.
func buildAnnotation(image *models.GeneratedImage, tags []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Image ID: %s\n", image.ID)
	fmt.Fprintf(&b, "Seed: %d\n", image.Seed)
	fmt.Fprintf(&b, "Prompt: %s\n", image.ActualPromptPositive)
	if image.ActualPromptNegative != "" {
		fmt.Fprintf(&b, "Negative Prompt: %s\n", image.ActualPromptNegative)
	}
	fmt.Fprintf(&b, "Rating: %d\n", image.Rating)
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(tags, ", "))
	return b.String()
}

var _ CurationExporter = (*eagle.Client)(nil)
