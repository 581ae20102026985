package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"grid/internal/graph"
	"grid/internal/models"
)

// paramTagKeys is the allow-list of generation parameters that become
// param: tags.
var paramTagKeys = []string{"steps", "scale", "sampler", "width", "height"}

// TaggingService derives a deterministic tag set from an image's
// parameters and prompts and attaches it in the graph store.
type TaggingService struct {
	store  graph.GraphStore
	logger *slog.Logger
}

func NewTaggingService(store graph.GraphStore, logger *slog.Logger) *TaggingService {
	return &TaggingService{store: store, logger: logger}
}

// GenerateAndAddTags derives the tag set for image and writes each tag
// via the store. A failed tag write is logged and does not abort the
// rest; the full derived set is returned regardless of write outcomes.
func (s *TaggingService) GenerateAndAddTags(ctx context.Context, image *models.GeneratedImage) []string {
	tags := DeriveTags(image)

	for _, tag := range tags {
		if err := s.store.AddTagToImage(ctx, image.ID, tag); err != nil {
			s.logger.Error("failed to attach tag", "image_id", image.ID, "tag", tag, "error", err)
		}
	}

	return tags
}

// DeriveTags is the pure derivation: order-independent and
// deterministic for a given image. The result is sorted and free of
// duplicates.
func DeriveTags(image *models.GeneratedImage) []string {
	set := make(map[string]struct{})

	for _, key := range paramTagKeys {
		if value, ok := image.ActualParameters[key]; ok {
			set[fmt.Sprintf("param:%s:%s", key, formatParamValue(value))] = struct{}{}
		}
	}

	for _, keyword := range splitPrompt(image.ActualPromptPositive) {
		set["keyword:"+keyword] = struct{}{}
	}
	for _, keyword := range splitPrompt(image.ActualPromptNegative) {
		set["negative_keyword:"+keyword] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// splitPrompt tokenizes a prompt by comma, trimming whitespace and
// dropping empty tokens.
func splitPrompt(prompt string) []string {
	if strings.TrimSpace(prompt) == "" {
		return nil
	}
	var tokens []string
	for _, part := range strings.Split(prompt, ",") {
		if token := strings.TrimSpace(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// formatParamValue renders JSON-decoded values without a trailing ".0"
// on whole numbers, so steps 28 tags as param:steps:28.
func formatParamValue(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
