package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/edplatform/upload-manager/internal/models"
	"github.com/edplatform/upload-manager/internal/repositories"
	"github.com/edplatform/upload-manager/internal/utils"
)

// PushEnvelope is the transport wrapper around a storage finalize
// notification. message.data holds base64-encoded object metadata JSON.
type PushEnvelope struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// finalizePayload is the decoded object metadata. size arrives as a string
// from some backends and as a number from others.
type finalizePayload struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Size        any               `json:"size"`
	MD5Hash     string            `json:"md5Hash"`
	CRC32C      string            `json:"crc32c"`
	Metadata    map[string]string `json:"metadata"`
}

// FinalizeProcessor ingests storage finalize notifications. Delivery is
// at-least-once: the whole sequence is safe to re-run for the same object
// key, and a re-run after the file reached ready is a no-op.
type FinalizeProcessor struct {
	store      repositories.Store
	dispatcher repositories.Dispatcher
}

func NewFinalizeProcessor(store repositories.Store, dispatcher repositories.Dispatcher) *FinalizeProcessor {
	return &FinalizeProcessor{store: store, dispatcher: dispatcher}
}

// Process handles one raw push body end to end: decode, upsert, session
// transition, job routing. Errors of type MalformedEventError and
// MissingFieldsError are terminal; a DispatchError (or any store error)
// must make the caller nack so the transport redelivers.
func (p *FinalizeProcessor) Process(ctx context.Context, body []byte) error {
	payload, err := decodePushBody(body)
	if err != nil {
		return err
	}

	missing := []string{}
	if payload.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if payload.Name == "" {
		missing = append(missing, "name")
	}
	meta := payload.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	datastoreID := meta["datastoreId"]
	if datastoreID == "" {
		missing = append(missing, "metadata.datastoreId")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}

	uploadID := meta["uploadId"]
	contentType := payload.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	size := parseSize(payload.Size)
	objectKey := payload.Name
	filename := objectKey[strings.LastIndex(objectKey, "/")+1:]

	fileID := meta["fileId"]
	if fileID == "" {
		fileID = utils.NewID(utils.KindFile)
	}

	// Create-if-absent keyed on object_key. Covers late-arriving metadata:
	// storage may finalize an object before the initiator's row exists.
	seed := &models.File{
		ID:              fileID,
		DatastoreID:     datastoreID,
		UploadSessionID: uploadID,
		Bucket:          payload.Bucket,
		ObjectKey:       objectKey,
		Filename:        filename,
		ContentType:     contentType,
		Size:            size,
		Status:          models.FileAuthorized,
	}
	file, err := p.store.EnsureFile(ctx, seed)
	if err != nil {
		return err
	}

	if err := p.store.MergeFinalize(ctx, objectKey, contentType, size, payload.MD5Hash, payload.CRC32C); err != nil {
		return err
	}

	if uploadID != "" {
		// Marking an already-uploaded-or-later session is a no-op.
		if _, err := p.store.SetSessionStatus(ctx, uploadID, models.SessionUploaded,
			models.SessionInitiated, models.SessionAuthorized); err != nil {
			return err
		}
		if file.UploadSessionID == "" {
			if err := p.store.LinkFileSession(ctx, file.ID, uploadID); err != nil {
				return err
			}
		}
	}

	if file.Status == models.FileReady {
		// Duplicate delivery after the terminal state: nothing to do.
		return nil
	}

	topic := DetectJobTopic(contentType)
	if topic == "" {
		// Nothing downstream wants this content; terminal at finalize time.
		if _, err := p.store.SetFileStatusByObjectKey(ctx, objectKey, models.FileReady,
			models.FileAuthorized, models.FileProcessing); err != nil {
			return err
		}
		if uploadID != "" {
			// The session already passed through uploaded above, so ready
			// is only ever reached from uploaded or processing here.
			if _, err := p.store.SetSessionStatus(ctx, uploadID, models.SessionReady,
				models.SessionUploaded, models.SessionProcessing); err != nil {
				return err
			}
		}
		return nil
	}

	job := map[string]any{
		"uploadId":    uploadID,
		"fileId":      file.ID,
		"datastoreId": datastoreID,
		"bucket":      payload.Bucket,
		"objectKey":   objectKey,
		"contentType": contentType,
		"size":        size,
		"receivedAt":  time.Now().Unix(),
	}

	// Claim authorized -> processing and enqueue inside one transaction.
	// The guarded update serializes concurrent deliveries of the same key:
	// exactly one claims the row and enqueues; the rest see the claim and
	// skip. An enqueue failure rolls the claim back, so the row is never
	// left in processing without a job in flight.
	err = p.store.Transaction(ctx, func(tx repositories.Store) error {
		claimed, err := tx.SetFileStatusByObjectKey(ctx, objectKey, models.FileProcessing,
			models.FileAuthorized)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}
		if err := p.dispatcher.Enqueue(ctx, topic, job); err != nil {
			return &DispatchError{Topic: topic, Err: err}
		}
		if uploadID != "" {
			if _, err := tx.SetSessionStatus(ctx, uploadID, models.SessionProcessing,
				models.SessionUploaded); err != nil {
				return err
			}
		}
		log.Printf("finalize: enqueued %s job for %s", topic, objectKey)
		return nil
	})
	return err
}

func decodePushBody(body []byte) (*finalizePayload, error) {
	var env PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &MalformedEventError{Err: err}
	}
	if env.Message.Data == "" {
		return nil, &MalformedEventError{Err: fmt.Errorf("missing message.data")}
	}
	raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return nil, &MalformedEventError{Err: fmt.Errorf("decode message.data: %w", err)}
	}
	var payload finalizePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &MalformedEventError{Err: fmt.Errorf("decode object metadata: %w", err)}
	}
	return &payload, nil
}

// parseSize tolerates both string and numeric size fields; anything
// unparseable counts as 0.
func parseSize(v any) int64 {
	switch n := v.(type) {
	case string:
		if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
			return parsed
		}
	case float64:
		return int64(n)
	case json.Number:
		if parsed, err := n.Int64(); err == nil {
			return parsed
		}
	}
	return 0
}
