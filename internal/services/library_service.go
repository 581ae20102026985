package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yargevad/filepathx"

	"grid/internal/apperr"
	"grid/internal/config"
	"grid/internal/graph"
	"grid/internal/models"
)

// LibraryService manages vibe images: source images pre-processed into
// encoded style blobs usable as a generation influence.
type LibraryService struct {
	store   graph.GraphStore
	encoder VibeEncoder
	cfg     *config.Config
	logger  *slog.Logger
}

func NewLibraryService(store graph.GraphStore, encoder VibeEncoder, cfg *config.Config, logger *slog.Logger) *LibraryService {
	return &LibraryService{store: store, encoder: encoder, cfg: cfg, logger: logger}
}

// RegisterVibe encodes the source image via the provider, writes the
// blob under the date-partitioned encoded directory, and persists the
// vibe record.
func (s *LibraryService) RegisterVibe(ctx context.Context, imagePath string, vibeType models.VibeType, informationExtracted float64, notes string) (*models.VibeImage, error) {
	if !vibeType.Valid() {
		return nil, apperr.Validationf("invalid vibe type %q", vibeType)
	}

	jpegImage, err := readAsJPEG(imagePath)
	if err != nil {
		return nil, err
	}

	blob, err := s.encoder.EncodeVibe(ctx, jpegImage, informationExtracted, s.cfg.DefaultModel)
	if err != nil {
		return nil, err
	}

	vibeID := uuid.NewString()
	now := time.Now()
	dir := filepath.Join(s.cfg.EncodedDir(),
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Persistencef("create encoded vibe directory %s: %v", dir, err)
	}
	blobPath := filepath.Join(dir, fmt.Sprintf("vibe_%s.naiv4vibe", vibeID))
	if err := os.WriteFile(blobPath, blob, 0o644); err != nil {
		return nil, apperr.Persistencef("write encoded vibe %s: %v", blobPath, err)
	}

	vibe := &models.VibeImage{
		ID:              vibeID,
		ImagePath:       imagePath,
		VibeType:        vibeType,
		EncodedIE:       informationExtracted,
		EncodedVibePath: blobPath,
		Notes:           notes,
		CreatedAt:       now,
	}
	if err := s.store.CreateVibe(ctx, vibe); err != nil {
		return nil, err
	}

	s.logger.Info("vibe registered", "vibe_id", vibeID, "blob_path", blobPath)
	return vibe, nil
}

// GetVibe fetches a registered vibe; nil means not found.
func (s *LibraryService) GetVibe(ctx context.Context, id string) (*models.VibeImage, error) {
	return s.store.GetVibe(ctx, id)
}

// ScanVibeCandidates walks root recursively and returns every image
// file that could be registered as a vibe source.
func (s *LibraryService) ScanVibeCandidates(root string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, pattern := range []string{"*.png", "*.jpg", "*.jpeg"} {
		matches, err := filepathx.Glob(filepath.Join(root, "**", pattern))
		if err != nil {
			return nil, apperr.Validationf("scan %s: %v", root, err)
		}
		for _, m := range matches {
			seen[m] = struct{}{}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// readAsJPEG loads an image file and re-encodes it as JPEG, the only
// format the encode endpoint accepts.
func readAsJPEG(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Validationf("open source image %s: %v", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, apperr.Validationf("decode source image %s: %v", path, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, apperr.Validationf("re-encode source image %s as JPEG: %v", path, err)
	}
	return buf.Bytes(), nil
}
