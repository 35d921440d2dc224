package repositories

import (
	"context"
	"errors"

	"github.com/edplatform/upload-manager/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateSession(ctx context.Context, sess *models.UploadSession) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

func (s *GormStore) GetSessionByID(ctx context.Context, id string) (*models.UploadSession, error) {
	var sess models.UploadSession
	err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *GormStore) ListSessionsByDatastore(ctx context.Context, datastoreID string, statuses []models.SessionStatus, limit, offset int) ([]models.UploadSession, error) {
	q := s.db.WithContext(ctx).Where("datastore_id = ?", datastoreID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var rows []models.UploadSession
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (s *GormStore) UpdateSession(ctx context.Context, id string, patch SessionPatch) (*models.UploadSession, error) {
	updates := map[string]any{}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.Error != nil {
		updates["error"] = *patch.Error
	}
	if patch.Tags != nil {
		updates["tags"] = models.StringList(patch.Tags)
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.UploadSession{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetSessionByID(ctx, id)
}

func (s *GormStore) CreateFile(ctx context.Context, f *models.File) error {
	return s.db.WithContext(ctx).Create(f).Error
}

func (s *GormStore) GetFileByID(ctx context.Context, id string) (*models.File, error) {
	var f models.File
	err := s.db.WithContext(ctx).First(&f, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *GormStore) GetFileByObjectKey(ctx context.Context, objectKey string) (*models.File, error) {
	var f models.File
	err := s.db.WithContext(ctx).First(&f, "object_key = ?", objectKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// EnsureFile relies on the object_key unique index: the conditional insert
// is a no-op when the row already exists, so two concurrent finalize
// deliveries can never produce two rows.
func (s *GormStore) EnsureFile(ctx context.Context, seed *models.File) (*models.File, error) {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "object_key"}},
			DoNothing: true,
		}).
		Create(seed).Error
	if err != nil {
		return nil, err
	}
	return s.GetFileByObjectKey(ctx, seed.ObjectKey)
}

func (s *GormStore) MergeFinalize(ctx context.Context, objectKey, contentType string, size int64, md5, crc32c string) error {
	updates := map[string]any{"size": size}
	if contentType != "" {
		updates["content_type"] = contentType
	}
	if md5 != "" {
		updates["checksum_md5"] = md5
	}
	if crc32c != "" {
		updates["checksum_crc32c"] = crc32c
	}
	return s.db.WithContext(ctx).Model(&models.File{}).
		Where("object_key = ? AND status <> ?", objectKey, models.FileReady).
		Updates(updates).Error
}

func (s *GormStore) LinkFileSession(ctx context.Context, fileID, sessionID string) error {
	// Set-once: the guard keeps an existing link from being overwritten.
	return s.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ? AND (upload_session_id IS NULL OR upload_session_id = '')", fileID).
		Update("upload_session_id", sessionID).Error
}

func (s *GormStore) SetFileStatus(ctx context.Context, fileID string, to models.FileStatus, allowedFrom ...models.FileStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ? AND status IN ?", fileID, allowedFrom).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) SetFileStatusByObjectKey(ctx context.Context, objectKey string, to models.FileStatus, allowedFrom ...models.FileStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.File{}).
		Where("object_key = ? AND status IN ?", objectKey, allowedFrom).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) SetSessionStatus(ctx context.Context, sessionID string, to models.SessionStatus, allowedFrom ...models.SessionStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.UploadSession{}).
		Where("id = ? AND status IN ?", sessionID, allowedFrom).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) SetFileError(ctx context.Context, fileID, message string) error {
	return s.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ?", fileID).
		Updates(map[string]any{"status": models.FileError, "error": message}).Error
}

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
