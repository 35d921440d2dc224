package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/edplatform/upload-manager/internal/api/services"
	"github.com/edplatform/upload-manager/internal/utils"
)

type StorageEventHandler struct {
	processor *services.FinalizeProcessor
}

func NewStorageEventHandler(processor *services.FinalizeProcessor) *StorageEventHandler {
	return &StorageEventHandler{processor: processor}
}

// POST /internal/storage/object-finalized
// ObjectFinalized godoc
// @Summary Ingest a storage finalize notification
// @Description Push endpoint for OBJECT_FINALIZE notifications. 204 acks the message; 400 marks it structurally unusable (the transport's dead-letter policy applies); any 5xx makes the transport redeliver.
// @Tags Internal
// @Accept json
// @Success 204
// @Failure 400 {object} utils.Payload
// @Failure 500 {object} utils.Payload
// @Router /internal/storage/object-finalized [post]
func (h *StorageEventHandler) ObjectFinalized(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Unreadable body")
		return
	}

	if err := h.processor.Process(r.Context(), body); err != nil {
		var malformed *services.MalformedEventError
		var missing *services.MissingFieldsError
		if errors.As(err, &malformed) || errors.As(err, &missing) {
			// Structurally invalid: retrying the same envelope cannot help.
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Anything else (store failure, DispatchError) must be redelivered.
		log.Printf("finalize handling failed: %v", err)
		utils.JSONError(w, http.StatusInternalServerError, "Finalize handling failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
