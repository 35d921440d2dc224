package repositories

import (
	"context"
	"errors"

	"github.com/edplatform/upload-manager/internal/models"
)

// ErrNotFound is returned by lookups that miss.
var ErrNotFound = errors.New("not found")

// SessionPatch is the administrative update surface for a session. Nil
// fields are left untouched.
type SessionPatch struct {
	Status *models.SessionStatus
	Error  *string
	Tags   []string
}

// Store is the persistence contract for UploadSession and File rows.
//
// Status transitions go through SetFileStatus/SetSessionStatus, which apply
// a single guarded update: the row only moves when its current status is in
// the allowed-from set. That is what keeps state progression monotonic even
// under duplicate finalize delivery — callers never read-then-write status.
type Store interface {
	CreateSession(ctx context.Context, s *models.UploadSession) error
	GetSessionByID(ctx context.Context, id string) (*models.UploadSession, error)
	ListSessionsByDatastore(ctx context.Context, datastoreID string, statuses []models.SessionStatus, limit, offset int) ([]models.UploadSession, error)
	UpdateSession(ctx context.Context, id string, patch SessionPatch) (*models.UploadSession, error)

	CreateFile(ctx context.Context, f *models.File) error
	GetFileByID(ctx context.Context, id string) (*models.File, error)
	GetFileByObjectKey(ctx context.Context, objectKey string) (*models.File, error)

	// EnsureFile inserts seed unless a row with the same object key already
	// exists, then returns the current row. The insert is conditional on the
	// object_key uniqueness constraint, so concurrent callers cannot create
	// two rows.
	EnsureFile(ctx context.Context, seed *models.File) (*models.File, error)

	// MergeFinalize folds authoritative finalize fields into the row without
	// touching its status. Rows already in ready are left alone.
	MergeFinalize(ctx context.Context, objectKey, contentType string, size int64, md5, crc32c string) error

	// LinkFileSession sets the session back-reference if and only if it is
	// still unset.
	LinkFileSession(ctx context.Context, fileID, sessionID string) error

	// SetFileStatus moves the file to status `to` when its current status is
	// one of allowedFrom, and reports whether a row actually moved.
	SetFileStatus(ctx context.Context, fileID string, to models.FileStatus, allowedFrom ...models.FileStatus) (bool, error)
	SetFileStatusByObjectKey(ctx context.Context, objectKey string, to models.FileStatus, allowedFrom ...models.FileStatus) (bool, error)
	SetSessionStatus(ctx context.Context, sessionID string, to models.SessionStatus, allowedFrom ...models.SessionStatus) (bool, error)

	// SetFileError moves the file to error with a message, from any state.
	SetFileError(ctx context.Context, fileID, message string) error

	// Transaction runs fn against a Store bound to one database transaction;
	// an error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(Store) error) error
}
