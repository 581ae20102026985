// Package graph persists sessions, images, vibes, tags, and their
// relationships. The node labels and edges of the domain graph are
// rendered onto relational tables: CREATED_BY, USES_MODEL, and
// GENERATED_IN become foreign keys, HAS_TAG a join table.
//
// Every call opens its own unit of work; there are no transactions
// spanning store calls.
package graph

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grid/internal/apperr"
	"grid/internal/models"
)

type GraphStore interface {
	// CheckConnectivity is a liveness probe callers run before starting
	// a workflow.
	CheckConnectivity(ctx context.Context) bool
	// Close releases the underlying connection. Idempotent.
	Close() error

	// EnsureUser and EnsureModel are explicit idempotent merges,
	// callable independently of session creation.
	EnsureUser(ctx context.Context, userID string) error
	EnsureModel(ctx context.Context, modelName string) error

	CreateSession(ctx context.Context, session *models.GenerationSession, userID, modelName string) error
	GetSession(ctx context.Context, id string) (*models.GenerationSession, error)
	UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error

	CreateVibe(ctx context.Context, vibe *models.VibeImage) error
	GetVibe(ctx context.Context, id string) (*models.VibeImage, error)

	CreateImage(ctx context.Context, image *models.GeneratedImage, sessionID string) error
	GetImage(ctx context.Context, id string) (*models.GeneratedImage, error)
	UpdateImageStatus(ctx context.Context, id string, status models.ImageStatus, errorMessage string) error
	UpdateImageRating(ctx context.Context, id string, rating int) error
	UpdateImageEagleID(ctx context.Context, id, eagleItemID string) error

	// AddTagToImage merge-creates the tag and attaches it. Attaching the
	// same tag twice is a no-op.
	AddTagToImage(ctx context.Context, imageID, tagName string) error
	ListImageTags(ctx context.Context, imageID string) ([]string, error)
}

type graphStore struct {
	db *gorm.DB
}

func NewGraphStore(db *gorm.DB) GraphStore {
	return &graphStore{db: db}
}

func (s *graphStore) CheckConnectivity(ctx context.Context) bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

func (s *graphStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}

func (s *graphStore) EnsureUser(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.Validationf("user id is required")
	}
	user := models.User{ID: userID, CreatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user).Error
	if err != nil {
		return apperr.Persistencef("ensure user %s: %v", userID, err)
	}
	return nil
}

func (s *graphStore) EnsureModel(ctx context.Context, modelName string) error {
	if modelName == "" {
		return apperr.Validationf("model name is required")
	}
	model := models.AiModel{Name: modelName, Type: "unknown"}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
	if err != nil {
		return apperr.Persistencef("ensure model %s: %v", modelName, err)
	}
	return nil
}

func (s *graphStore) CreateSession(ctx context.Context, session *models.GenerationSession, userID, modelName string) error {
	if session == nil || session.ID == "" {
		return apperr.Validationf("session id is required")
	}
	if !session.OverallStatus.Valid() {
		return apperr.Validationf("invalid session status %q", session.OverallStatus)
	}
	if err := s.EnsureUser(ctx, userID); err != nil {
		return err
	}
	if err := s.EnsureModel(ctx, modelName); err != nil {
		return err
	}
	session.UserID = userID
	session.ModelName = modelName
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return apperr.Persistencef("create session %s: %v", session.ID, err)
	}
	return nil
}

func (s *graphStore) GetSession(ctx context.Context, id string) (*models.GenerationSession, error) {
	var session models.GenerationSession
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Persistencef("get session %s: %v", id, err)
	}
	return &session, nil
}

func (s *graphStore) UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error {
	if !status.Valid() {
		return apperr.Validationf("invalid session status %q", status)
	}
	res := s.db.WithContext(ctx).
		Model(&models.GenerationSession{}).
		Where("id = ?", id).
		Update("overall_status", status)
	if res.Error != nil {
		return apperr.Persistencef("update status of session %s: %v", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Persistencef("session %s not found", id)
	}
	return nil
}

func (s *graphStore) CreateVibe(ctx context.Context, vibe *models.VibeImage) error {
	if vibe == nil || vibe.ID == "" {
		return apperr.Validationf("vibe id is required")
	}
	if !vibe.VibeType.Valid() {
		return apperr.Validationf("invalid vibe type %q", vibe.VibeType)
	}
	if err := s.db.WithContext(ctx).Create(vibe).Error; err != nil {
		return apperr.Persistencef("create vibe %s: %v", vibe.ID, err)
	}
	return nil
}

func (s *graphStore) GetVibe(ctx context.Context, id string) (*models.VibeImage, error) {
	var vibe models.VibeImage
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&vibe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Persistencef("get vibe %s: %v", id, err)
	}
	return &vibe, nil
}

func (s *graphStore) CreateImage(ctx context.Context, image *models.GeneratedImage, sessionID string) error {
	if image == nil || image.ID == "" {
		return apperr.Validationf("image id is required")
	}
	if !image.GenerationStatus.Valid() {
		return apperr.Validationf("invalid image status %q", image.GenerationStatus)
	}
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return apperr.Persistencef("create image %s: session %s does not exist", image.ID, sessionID)
	}
	image.SessionID = sessionID
	if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
		return apperr.Persistencef("create image %s in session %s: %v", image.ID, sessionID, err)
	}
	return nil
}

func (s *graphStore) GetImage(ctx context.Context, id string) (*models.GeneratedImage, error) {
	var image models.GeneratedImage
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Persistencef("get image %s: %v", id, err)
	}
	return &image, nil
}

func (s *graphStore) UpdateImageStatus(ctx context.Context, id string, status models.ImageStatus, errorMessage string) error {
	if !status.Valid() {
		return apperr.Validationf("invalid image status %q", status)
	}
	res := s.db.WithContext(ctx).
		Model(&models.GeneratedImage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"generation_status": status,
			"error_message":     errorMessage,
		})
	if res.Error != nil {
		return apperr.Persistencef("update status of image %s: %v", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Persistencef("image %s not found", id)
	}
	return nil
}

func (s *graphStore) UpdateImageRating(ctx context.Context, id string, rating int) error {
	// Reject out-of-range values before issuing any write.
	if err := models.ValidateRating(rating); err != nil {
		return apperr.Validationf("image %s: %v", id, err)
	}
	res := s.db.WithContext(ctx).
		Model(&models.GeneratedImage{}).
		Where("id = ?", id).
		Update("rating", rating)
	if res.Error != nil {
		return apperr.Persistencef("update rating of image %s: %v", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Persistencef("image %s not found", id)
	}
	return nil
}

func (s *graphStore) UpdateImageEagleID(ctx context.Context, id, eagleItemID string) error {
	res := s.db.WithContext(ctx).
		Model(&models.GeneratedImage{}).
		Where("id = ?", id).
		Update("eagle_item_id", eagleItemID)
	if res.Error != nil {
		return apperr.Persistencef("update eagle id of image %s: %v", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Persistencef("image %s not found", id)
	}
	return nil
}

func (s *graphStore) AddTagToImage(ctx context.Context, imageID, tagName string) error {
	if tagName == "" {
		return apperr.Validationf("tag name is required")
	}
	tag := models.Tag{Name: tagName}
	err := s.db.WithContext(ctx).
		Where("name = ?", tagName).
		FirstOrCreate(&tag).Error
	if err != nil {
		return apperr.Persistencef("merge tag %q: %v", tagName, err)
	}
	edge := models.ImageTag{ImageID: imageID, TagID: tag.ID}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge).Error
	if err != nil {
		return apperr.Persistencef("tag image %s with %q: %v", imageID, tagName, err)
	}
	return nil
}

func (s *graphStore) ListImageTags(ctx context.Context, imageID string) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&models.ImageTag{}).
		Joins("JOIN tags ON tags.id = image_tags.tag_id").
		Where("image_tags.image_id = ?", imageID).
		Order("tags.name").
		Pluck("tags.name", &names).Error
	if err != nil {
		return nil, apperr.Persistencef("list tags of image %s: %v", imageID, err)
	}
	return names, nil
}
