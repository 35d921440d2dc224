package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/edplatform/upload-manager/internal/config"
	"github.com/edplatform/upload-manager/internal/models"
	"github.com/edplatform/upload-manager/internal/repositories"
	"github.com/edplatform/upload-manager/internal/utils"
)

const defaultContentType = "application/octet-stream"

// FileSpec is one requested upload within a batch. Filename is required;
// the rest is best-effort client input.
type FileSpec struct {
	Filename    string
	ContentType string
	SizeBytes   int64
	ClientToken string
	Checksum    string
}

// FileResult is the per-file outcome of batch initiation. Error is set when
// the storage backend refused the session; the File row exists either way.
type FileResult struct {
	SessionID           string `json:"sessionId"`
	FileID              string `json:"fileId"`
	ObjectKey           string `json:"objectKey"`
	UploadURL           string `json:"uploadUrl,omitempty"`
	ContentType         string `json:"contentType"`
	SuggestedChunkBytes int64  `json:"suggestedChunkBytes"`
	Error               string `json:"error,omitempty"`
}

// BatchResult is the initiation outcome for a whole session.
type BatchResult struct {
	SessionID string       `json:"sessionId"`
	Files     []FileResult `json:"files"`
	// Partial is true when at least one file failed initiation.
	Partial bool `json:"partial"`
}

// Initiator turns a batch upload request into persisted tracking rows plus
// one resumable storage session per file.
type Initiator struct {
	store      repositories.Store
	storage    repositories.StorageBackend
	bucket     string
	basePrefix string
	policy     config.PartialFailurePolicy
	chunkBytes int64
}

func NewInitiator(store repositories.Store, storage repositories.StorageBackend, cfg config.Config) *Initiator {
	return &Initiator{
		store:      store,
		storage:    storage,
		bucket:     cfg.Storage.Bucket,
		basePrefix: cfg.Storage.BasePrefix,
		policy:     cfg.PartialFailures,
		chunkBytes: cfg.SuggestedChunkBytes,
	}
}

// CreateBatch creates the UploadSession and, per file in input order, a File
// row followed by a storage-side resumable session. The row goes in before
// the external call: a row in authorized state with no issued URL marks a
// failed initiation, and that condition is always reported, never dropped.
func (i *Initiator) CreateBatch(ctx context.Context, datastoreID string, tags []string, files []FileSpec) (*BatchResult, error) {
	if datastoreID == "" {
		return nil, &ValidationError{Msg: "datastoreId is required"}
	}
	if len(files) == 0 {
		return nil, &ValidationError{Msg: "at least one file is required"}
	}
	for _, f := range files {
		if f.Filename == "" {
			return nil, &ValidationError{Msg: "filename is required for every file"}
		}
	}
	if tags == nil {
		tags = []string{}
	}

	session := &models.UploadSession{
		ID:          utils.NewID(utils.KindUploadSession),
		DatastoreID: datastoreID,
		Tags:        models.StringList(tags),
		Status:      models.SessionAuthorized,
	}
	if err := i.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	tagsJSON, _ := json.Marshal(tags)

	result := &BatchResult{SessionID: session.ID, Files: make([]FileResult, 0, len(files))}
	for _, spec := range files {
		contentType := spec.ContentType
		if contentType == "" {
			contentType = defaultContentType
		}

		fileID := utils.NewID(utils.KindFile)
		objectKey := utils.DeriveObjectKey(i.basePrefix, datastoreID, session.ID, fileID, spec.Filename)

		row := &models.File{
			ID:              fileID,
			DatastoreID:     datastoreID,
			UploadSessionID: session.ID,
			Bucket:          i.bucket,
			ObjectKey:       objectKey,
			Filename:        utils.SanitizeFilename(spec.Filename),
			ContentType:     contentType,
			Size:            spec.SizeBytes,
			ChecksumMD5:     spec.Checksum,
			Status:          models.FileAuthorized,
		}
		if err := i.store.CreateFile(ctx, row); err != nil {
			return nil, err
		}

		uploadURL, err := i.storage.InitiateResumableUpload(ctx, objectKey, contentType, spec.SizeBytes, map[string]string{
			"uploadId":    session.ID,
			"datastoreId": datastoreID,
			"fileId":      fileID,
			"tags":        string(tagsJSON),
		})
		if err != nil {
			initErr := &StorageInitiationError{Filename: spec.Filename, Err: err}
			log.Printf("upload initiation failed: session=%s file=%s: %v", session.ID, fileID, initErr)
			if markErr := i.store.SetFileError(ctx, fileID, initErr.Error()); markErr != nil {
				return nil, markErr
			}
			result.Files = append(result.Files, FileResult{
				SessionID:   session.ID,
				FileID:      fileID,
				ObjectKey:   objectKey,
				ContentType: contentType,
				Error:       initErr.Error(),
			})
			result.Partial = true
			if i.policy == config.PartialAbort {
				if _, err := i.store.SetSessionStatus(ctx, session.ID, models.SessionError,
					models.SessionInitiated, models.SessionAuthorized); err != nil {
					return nil, err
				}
				return result, nil
			}
			continue
		}

		result.Files = append(result.Files, FileResult{
			SessionID:           session.ID,
			FileID:              fileID,
			ObjectKey:           objectKey,
			UploadURL:           uploadURL,
			ContentType:         contentType,
			SuggestedChunkBytes: i.chunkBytes,
		})
	}

	return result, nil
}
