// Package services holds the workflow logic of the generation and
// evaluation pipeline, layered on the graph store and the external
// provider/curation clients.
package services

import (
	"context"
	"log/slog"

	"grid/internal/config"
	"grid/internal/eagle"
	"grid/internal/graph"
	"grid/internal/novelai"
)

// ImageProvider is the slice of the generation provider the pipeline
// needs: one prompt in, a batch of named artifacts out.
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt, model, action string, parameters map[string]any) ([]novelai.Artifact, error)
}

// VibeEncoder turns a JPEG source image into an encoded style blob.
type VibeEncoder interface {
	EncodeVibe(ctx context.Context, jpegImage []byte, informationExtracted float64, model string) ([]byte, error)
}

// CurationExporter is the slice of the curation system the evaluation
// workflow needs. Add cannot carry a rating; UpdateItem can.
type CurationExporter interface {
	AddItems(ctx context.Context, paths, names, tags []string, annotation string) ([]eagle.Item, error)
	UpdateItem(ctx context.Context, id string, tags []string, annotation string, rating *int) (*eagle.Item, error)
}

// Services aggregates the pipeline services.
type Services struct {
	Generation *GenerationService
	Tagging    *TaggingService
	Evaluation *EvaluationService
	Library    *LibraryService
}

// NewServices constructs the service container.
func NewServices(store graph.GraphStore, provider *novelai.Client, exporter *eagle.Client, cfg *config.Config, logger *slog.Logger) *Services {
	tagging := NewTaggingService(store, logger)
	return &Services{
		Generation: NewGenerationService(store, provider, cfg, logger),
		Tagging:    tagging,
		Evaluation: NewEvaluationService(store, tagging, exporter, logger),
		Library:    NewLibraryService(store, provider, cfg, logger),
	}
}
