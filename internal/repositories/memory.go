package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edplatform/upload-manager/internal/models"
)

// MemoryStore is a map-backed Store with the same transition semantics as
// the Postgres implementation. Used for local development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.UploadSession
	files    map[string]*models.File // by file id
	byKey    map[string]string       // object key -> file id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string]*models.UploadSession{},
		files:    map[string]*models.File{},
		byKey:    map[string]string{},
	}
}

func copySession(s *models.UploadSession) *models.UploadSession {
	c := *s
	c.Tags = append(models.StringList{}, s.Tags...)
	return &c
}

func copyFile(f *models.File) *models.File {
	c := *f
	return &c
}

func (m *MemoryStore) CreateSession(ctx context.Context, s *models.UploadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := copySession(s)
	row.CreatedAt = time.Now()
	m.sessions[s.ID] = row
	return nil
}

func (m *MemoryStore) GetSessionByID(ctx context.Context, id string) (*models.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(s), nil
}

func (m *MemoryStore) ListSessionsByDatastore(ctx context.Context, datastoreID string, statuses []models.SessionStatus, limit, offset int) ([]models.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := map[models.SessionStatus]bool{}
	for _, s := range statuses {
		allowed[s] = true
	}

	var rows []models.UploadSession
	for _, s := range m.sessions {
		if s.DatastoreID != datastoreID {
			continue
		}
		if len(allowed) > 0 && !allowed[s.Status] {
			continue
		}
		rows = append(rows, *copySession(s))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })

	if offset >= len(rows) {
		return []models.UploadSession{}, nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *MemoryStore) UpdateSession(ctx context.Context, id string, patch SessionPatch) (*models.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Status != nil {
		s.Status = *patch.Status
	}
	if patch.Error != nil {
		s.Error = *patch.Error
	}
	if patch.Tags != nil {
		s.Tags = append(models.StringList{}, patch.Tags...)
	}
	return copySession(s), nil
}

func (m *MemoryStore) CreateFile(ctx context.Context, f *models.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := copyFile(f)
	row.CreatedAt = time.Now()
	m.files[f.ID] = row
	m.byKey[f.ObjectKey] = f.ID
	return nil
}

func (m *MemoryStore) GetFileByID(ctx context.Context, id string) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyFile(f), nil
}

func (m *MemoryStore) GetFileByObjectKey(ctx context.Context, objectKey string) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fileByKeyLocked(objectKey)
}

func (m *MemoryStore) fileByKeyLocked(objectKey string) (*models.File, error) {
	id, ok := m.byKey[objectKey]
	if !ok {
		return nil, ErrNotFound
	}
	return copyFile(m.files[id]), nil
}

func (m *MemoryStore) EnsureFile(ctx context.Context, seed *models.File) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[seed.ObjectKey]; !ok {
		row := copyFile(seed)
		m.files[seed.ID] = row
		m.byKey[seed.ObjectKey] = seed.ID
	}
	return m.fileByKeyLocked(seed.ObjectKey)
}

func (m *MemoryStore) MergeFinalize(ctx context.Context, objectKey, contentType string, size int64, md5, crc32c string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[objectKey]
	if !ok {
		return nil
	}
	f := m.files[id]
	if f.Status == models.FileReady {
		return nil
	}
	f.Size = size
	if contentType != "" {
		f.ContentType = contentType
	}
	if md5 != "" {
		f.ChecksumMD5 = md5
	}
	if crc32c != "" {
		f.ChecksumCRC32C = crc32c
	}
	return nil
}

func (m *MemoryStore) LinkFileSession(ctx context.Context, fileID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return nil
	}
	if f.UploadSessionID == "" {
		f.UploadSessionID = sessionID
	}
	return nil
}

func (m *MemoryStore) SetFileStatus(ctx context.Context, fileID string, to models.FileStatus, allowedFrom ...models.FileStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return false, nil
	}
	return moveFileLocked(f, to, allowedFrom), nil
}

func (m *MemoryStore) SetFileStatusByObjectKey(ctx context.Context, objectKey string, to models.FileStatus, allowedFrom ...models.FileStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[objectKey]
	if !ok {
		return false, nil
	}
	return moveFileLocked(m.files[id], to, allowedFrom), nil
}

func moveFileLocked(f *models.File, to models.FileStatus, allowedFrom []models.FileStatus) bool {
	for _, from := range allowedFrom {
		if f.Status == from {
			f.Status = to
			return true
		}
	}
	return false
}

func (m *MemoryStore) SetSessionStatus(ctx context.Context, sessionID string, to models.SessionStatus, allowedFrom ...models.SessionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}
	for _, from := range allowedFrom {
		if s.Status == from {
			s.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) SetFileError(ctx context.Context, fileID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[fileID]; ok {
		f.Status = models.FileError
		f.Error = message
	}
	return nil
}

// Transaction snapshots the whole store and restores it when fn fails.
// Coarse, but it gives tests the same rollback behavior the Postgres
// implementation gets from a real transaction.
func (m *MemoryStore) Transaction(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	sessions := make(map[string]*models.UploadSession, len(m.sessions))
	for k, v := range m.sessions {
		sessions[k] = copySession(v)
	}
	files := make(map[string]*models.File, len(m.files))
	for k, v := range m.files {
		files[k] = copyFile(v)
	}
	byKey := make(map[string]string, len(m.byKey))
	for k, v := range m.byKey {
		byKey[k] = v
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.sessions = sessions
		m.files = files
		m.byKey = byKey
		m.mu.Unlock()
		return err
	}
	return nil
}
