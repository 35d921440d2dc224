package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/edplatform/upload-manager/internal/api/services"
	"github.com/edplatform/upload-manager/internal/models"
	"github.com/edplatform/upload-manager/internal/repositories"
	"github.com/edplatform/upload-manager/internal/utils"
)

type SessionHandler struct {
	store     repositories.Store
	storage   repositories.StorageBackend
	initiator *services.Initiator
}

func NewSessionHandler(store repositories.Store, storage repositories.StorageBackend, initiator *services.Initiator) *SessionHandler {
	return &SessionHandler{store: store, storage: storage, initiator: initiator}
}

type createFileSpec struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	ClientToken string `json:"clientToken"`
	Checksum    string `json:"checksum"`
}

type createSessionBody struct {
	DatastoreID string           `json:"datastoreId"`
	Tags        json.RawMessage  `json:"tags"`
	Files       []createFileSpec `json:"files"`
}

// POST /api/v1/upload-sessions/
// CreateUploadSession godoc
// @Summary Create an upload session for a batch of files
// @Description Persists tracking rows and opens one resumable storage session per file. Clients upload bytes directly to the returned URLs.
// @Tags Upload Sessions
// @Accept json
// @Produce json
// @Param body body createSessionBody true "Batch upload request"
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/upload-sessions/ [post]
func (h *SessionHandler) CreateUploadSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	specs := make([]services.FileSpec, 0, len(body.Files))
	for _, f := range body.Files {
		specs = append(specs, services.FileSpec{
			Filename:    f.Filename,
			ContentType: f.ContentType,
			SizeBytes:   f.SizeBytes,
			ClientToken: f.ClientToken,
			Checksum:    f.Checksum,
		})
	}

	result, err := h.initiator.CreateBatch(r.Context(), body.DatastoreID, utils.NormalizeTags(body.Tags), specs)
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			utils.JSONError(w, http.StatusBadRequest, ve.Error())
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "Failed to create upload session")
		return
	}

	msg := "Upload session created"
	if result.Partial {
		msg = "Upload session created with per-file failures"
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: msg,
		Data:    result,
	})
}

// GET /api/v1/upload-sessions/?upload_id=...|object_key=...
// GetUploadSession godoc
// @Summary Fetch one upload session
// @Description Looks a session up by its id, or by the object key of one of its files.
// @Tags Upload Sessions
// @Produce json
// @Param upload_id query string false "Session id"
// @Param object_key query string false "Object key of a file in the session"
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/upload-sessions/ [get]
func (h *SessionHandler) GetUploadSession(w http.ResponseWriter, r *http.Request) {
	uploadID := r.URL.Query().Get("upload_id")
	objectKey := r.URL.Query().Get("object_key")
	if uploadID == "" && objectKey == "" {
		utils.JSONError(w, http.StatusBadRequest, "upload_id or object_key required")
		return
	}

	if uploadID == "" {
		file, err := h.store.GetFileByObjectKey(r.Context(), objectKey)
		if err != nil || file.UploadSessionID == "" {
			utils.JSONError(w, http.StatusNotFound, "Upload session not found")
			return
		}
		uploadID = file.UploadSessionID
	}

	session, err := h.store.GetSessionByID(r.Context(), uploadID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "Upload session not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "Lookup failed")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "OK", Data: session})
}

// GET /api/v1/upload-sessions/list?datastore_id=...&statuses=a,b&limit=&offset=
// ListUploadSessions godoc
// @Summary List upload sessions for a datastore
// @Tags Upload Sessions
// @Produce json
// @Param datastore_id query string true "Datastore id"
// @Param statuses query string false "Comma-separated status filter"
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Page offset"
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/upload-sessions/list [get]
func (h *SessionHandler) ListUploadSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	datastoreID := q.Get("datastore_id")
	if datastoreID == "" {
		utils.JSONError(w, http.StatusBadRequest, "datastore_id required")
		return
	}

	var statuses []models.SessionStatus
	if s := q.Get("statuses"); s != "" {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				statuses = append(statuses, models.SessionStatus(part))
			}
		}
	}
	limit := 50
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		offset = v
	}

	rows, err := h.store.ListSessionsByDatastore(r.Context(), datastoreID, statuses, limit, offset)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "Listing failed")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "OK",
		Data: map[string]any{
			"items":  rows,
			"count":  len(rows),
			"limit":  limit,
			"offset": offset,
		},
	})
}

type updateSessionBody struct {
	Status    *string         `json:"status"`
	Error     *string         `json:"error"`
	Tags      json.RawMessage `json:"tags"`
	ObjectKey string          `json:"objectKey"`
}

// PUT /api/v1/upload-sessions/{uploadId}
// UpdateUploadSession godoc
// @Summary Administrative session correction
// @Description Sets session status/error/tags directly. This bypasses the engine's state machine on purpose; it exists for manual correction. When objectKey is given, the matching file row is corrected too, after the object's existence is verified in the bucket.
// @Tags Upload Sessions
// @Accept json
// @Produce json
// @Param uploadId path string true "Session id"
// @Param body body updateSessionBody true "Fields to set"
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/upload-sessions/{uploadId} [put]
func (h *SessionHandler) UpdateUploadSession(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("uploadId")
	if uploadID == "" {
		utils.JSONError(w, http.StatusBadRequest, "Missing upload id")
		return
	}

	var body updateSessionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	patch := repositories.SessionPatch{Error: body.Error}
	if body.Status != nil {
		status := models.SessionStatus(*body.Status)
		if !models.ValidSessionStatus(status) {
			utils.JSONError(w, http.StatusBadRequest, "Unknown status "+*body.Status)
			return
		}
		patch.Status = &status
	}
	if len(body.Tags) > 0 {
		patch.Tags = utils.NormalizeTags(body.Tags)
	}

	if body.ObjectKey != "" {
		if err := h.correctFile(r, uploadID, body); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				utils.JSONError(w, http.StatusNotFound, "File not found for object key")
				return
			}
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	session, err := h.store.UpdateSession(r.Context(), uploadID, patch)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "Upload session not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "Update failed")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Upload session updated", Data: session})
}

// correctFile applies an administrative status/error correction to the file
// row behind objectKey. Forcing a file to ready requires the object to
// actually be in the bucket.
func (h *SessionHandler) correctFile(r *http.Request, uploadID string, body updateSessionBody) error {
	ctx := r.Context()
	file, err := h.store.GetFileByObjectKey(ctx, body.ObjectKey)
	if err != nil {
		return err
	}
	if file.UploadSessionID != "" && file.UploadSessionID != uploadID {
		return errors.New("object key belongs to a different session")
	}

	if body.Status != nil {
		status := models.FileStatus(*body.Status)
		if status == models.FileReady {
			exists, err := h.storage.ObjectExists(ctx, body.ObjectKey)
			if err != nil {
				return errors.New("could not verify object in bucket")
			}
			if !exists {
				return errors.New("object not found in bucket")
			}
		}
		switch status {
		case models.FileAuthorized, models.FileProcessing, models.FileReady:
			if _, err := h.store.SetFileStatusByObjectKey(ctx, body.ObjectKey, status,
				models.FileAuthorized, models.FileProcessing, models.FileReady, models.FileError); err != nil {
				return err
			}
		case models.FileError:
			msg := ""
			if body.Error != nil {
				msg = *body.Error
			}
			if err := h.store.SetFileError(ctx, file.ID, msg); err != nil {
				return err
			}
		}
	}
	return nil
}
