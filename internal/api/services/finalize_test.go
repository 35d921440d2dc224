package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edplatform/upload-manager/internal/config"
	"github.com/edplatform/upload-manager/internal/models"
	"github.com/edplatform/upload-manager/internal/repositories"
)

func envelope(t *testing.T, payload map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"message": map[string]any{
			"data":        base64.StdEncoding.EncodeToString(raw),
			"messageId":   "m1",
			"publishTime": "2026-01-02T03:04:05Z",
		},
		"subscription": "projects/p/subscriptions/files-raw",
	})
	require.NoError(t, err)
	return body
}

// initiateOne creates a session with a single file and returns its result.
func initiateOne(t *testing.T, store repositories.Store, filename, contentType string) FileResult {
	t.Helper()
	init := NewInitiator(store, newFakeStorage(), testConfig(config.PartialContinue))
	result, err := init.CreateBatch(context.Background(), "ds1", nil, []FileSpec{
		{Filename: filename, ContentType: contentType},
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	return result.Files[0]
}

func finalizeEvent(fr FileResult, contentType string) map[string]any {
	return map[string]any{
		"bucket":      "raw-bucket",
		"name":        fr.ObjectKey,
		"contentType": contentType,
		"size":        "2048",
		"md5Hash":     "abc==",
		"crc32c":      "def=",
		"metadata": map[string]string{
			"uploadId":    fr.SessionID,
			"datastoreId": "ds1",
			"fileId":      fr.FileID,
		},
	}
}

func TestFinalizeRoutesPDF(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	proc := NewFinalizeProcessor(store, dispatcher)

	fr := initiateOne(t, store, "a.pdf", "application/pdf")
	require.NoError(t, proc.Process(ctx, envelope(t, finalizeEvent(fr, "application/pdf"))))

	file, err := store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, models.FileProcessing, file.Status)
	assert.Equal(t, int64(2048), file.Size)
	assert.Equal(t, "abc==", file.ChecksumMD5)
	assert.Equal(t, "def=", file.ChecksumCRC32C)

	sess, err := store.GetSessionByID(ctx, fr.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionProcessing, sess.Status)

	require.Equal(t, 1, dispatcher.count())
	job := dispatcher.jobs[0]
	assert.Equal(t, TopicProcessPDF, job.topic)
	assert.Equal(t, fr.SessionID, job.payload["uploadId"])
	assert.Equal(t, fr.FileID, job.payload["fileId"])
	assert.Equal(t, "ds1", job.payload["datastoreId"])
	assert.Equal(t, "raw-bucket", job.payload["bucket"])
	assert.Equal(t, fr.ObjectKey, job.payload["objectKey"])
	assert.Equal(t, int64(2048), job.payload["size"])
	assert.NotNil(t, job.payload["receivedAt"])
}

func TestFinalizeNoProcessorMarksReady(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	proc := NewFinalizeProcessor(store, dispatcher)

	fr := initiateOne(t, store, "blob.bin", "application/octet-stream")
	require.NoError(t, proc.Process(ctx, envelope(t, finalizeEvent(fr, "application/octet-stream"))))

	file, err := store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, models.FileReady, file.Status)

	sess, err := store.GetSessionByID(ctx, fr.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionReady, sess.Status)

	assert.Zero(t, dispatcher.count())
}

func TestFinalizeIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	proc := NewFinalizeProcessor(store, dispatcher)

	fr := initiateOne(t, store, "a.pdf", "application/pdf")
	body := envelope(t, finalizeEvent(fr, "application/pdf"))

	require.NoError(t, proc.Process(ctx, body))
	after1, err := store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)

	// Same notification again: no state change, no second job.
	require.NoError(t, proc.Process(ctx, body))
	after2, err := store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)

	assert.Equal(t, after1.Status, after2.Status)
	assert.Equal(t, after1.Size, after2.Size)
	assert.Equal(t, after1.UploadSessionID, after2.UploadSessionID)
	assert.Equal(t, 1, dispatcher.count())
}

func TestFinalizeReadyNeverRegresses(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	proc := NewFinalizeProcessor(store, dispatcher)

	fr := initiateOne(t, store, "blob.bin", "application/octet-stream")
	body := envelope(t, finalizeEvent(fr, "application/octet-stream"))
	require.NoError(t, proc.Process(ctx, body))
	require.NoError(t, proc.Process(ctx, body))

	file, err := store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, models.FileReady, file.Status)

	sess, err := store.GetSessionByID(ctx, fr.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionReady, sess.Status)
	assert.Zero(t, dispatcher.count())
}

func TestFinalizeMissingFields(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	proc := NewFinalizeProcessor(store, &fakeDispatcher{})

	fr := initiateOne(t, store, "a.pdf", "application/pdf")
	before, err := store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)

	event := finalizeEvent(fr, "application/pdf")
	delete(event, "bucket")
	err = proc.Process(ctx, envelope(t, event))

	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Fields, "bucket")

	// No rows mutated.
	after, err := store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFinalizeMissingDatastoreID(t *testing.T) {
	proc := NewFinalizeProcessor(repositories.NewMemoryStore(), &fakeDispatcher{})
	err := proc.Process(context.Background(), envelope(t, map[string]any{
		"bucket": "raw-bucket",
		"name":   "raw/x",
	}))
	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Fields, "metadata.datastoreId")
}

func TestFinalizeMalformedEnvelope(t *testing.T) {
	proc := NewFinalizeProcessor(repositories.NewMemoryStore(), &fakeDispatcher{})

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("nope")},
		{"no data field", []byte(`{"message":{"attributes":{}},"subscription":"s"}`)},
		{"bad base64", []byte(`{"message":{"data":"!!!"},"subscription":"s"}`)},
		{"data not json", []byte(`{"message":{"data":"` + base64.StdEncoding.EncodeToString([]byte("not-json")) + `"},"subscription":"s"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := proc.Process(context.Background(), tt.body)
			var malformed *MalformedEventError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestFinalizeDispatchFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	dispatcher := &fakeDispatcher{failures: 1}
	proc := NewFinalizeProcessor(store, dispatcher)

	fr := initiateOne(t, store, "a.pdf", "application/pdf")
	body := envelope(t, finalizeEvent(fr, "application/pdf"))

	err := proc.Process(ctx, body)
	var de *DispatchError
	require.ErrorAs(t, err, &de)

	// The claim was rolled back, so the object is not stuck in processing
	// with no job in flight.
	file, err := store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, models.FileAuthorized, file.Status)

	// Redelivery succeeds and enqueues exactly once.
	require.NoError(t, proc.Process(ctx, body))
	file, err = store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, models.FileProcessing, file.Status)
	assert.Equal(t, 1, dispatcher.count())
}

func TestFinalizeLateArrivingObject(t *testing.T) {
	// The object finalized before any initiator row existed.
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	proc := NewFinalizeProcessor(store, dispatcher)

	err := proc.Process(ctx, envelope(t, map[string]any{
		"bucket":      "raw-bucket",
		"name":        "raw/datastore/ds1/strays/report.pdf",
		"contentType": "application/pdf",
		"size":        float64(512),
		"metadata":    map[string]string{"datastoreId": "ds1"},
	}))
	require.NoError(t, err)

	file, err := store.GetFileByObjectKey(ctx, "raw/datastore/ds1/strays/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.FileProcessing, file.Status)
	assert.Equal(t, "report.pdf", file.Filename)
	assert.Equal(t, int64(512), file.Size)
	assert.Empty(t, file.UploadSessionID)
	assert.Equal(t, 1, dispatcher.count())
}

func TestFinalizeSessionLinkIsSetOnce(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	proc := NewFinalizeProcessor(store, &fakeDispatcher{})

	fr := initiateOne(t, store, "blob.bin", "application/octet-stream")

	event := finalizeEvent(fr, "application/octet-stream")
	event["metadata"] = map[string]string{
		"uploadId":    "UPLD_someoneelse",
		"datastoreId": "ds1",
	}
	// The foreign session id does not exist; the link must stay untouched.
	require.NoError(t, proc.Process(ctx, envelope(t, event)))

	file, err := store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, fr.SessionID, file.UploadSessionID)
}

func TestFinalizeConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	dispatcher := &fakeDispatcher{}
	proc := NewFinalizeProcessor(store, dispatcher)

	fr := initiateOne(t, store, "a.pdf", "application/pdf")
	body := envelope(t, finalizeEvent(fr, "application/pdf"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = proc.Process(ctx, body)
		}()
	}
	wg.Wait()

	// Exactly one row, at most one job.
	file, err := store.GetFileByObjectKey(ctx, fr.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, models.FileProcessing, file.Status)
	assert.Equal(t, 1, dispatcher.count())
}
