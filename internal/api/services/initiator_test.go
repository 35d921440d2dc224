package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edplatform/upload-manager/internal/config"
	"github.com/edplatform/upload-manager/internal/models"
	"github.com/edplatform/upload-manager/internal/repositories"
)

func testConfig(policy config.PartialFailurePolicy) config.Config {
	return config.Config{
		Storage: config.StorageConfig{
			Bucket:     "raw-bucket",
			BasePrefix: "raw",
		},
		PartialFailures:     policy,
		SuggestedChunkBytes: 8 << 20,
	}
}

func TestCreateBatch(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	storage := newFakeStorage()
	init := NewInitiator(store, storage, testConfig(config.PartialContinue))

	result, err := init.CreateBatch(ctx, "ds1", []string{"tag1"}, []FileSpec{
		{Filename: "a.pdf", ContentType: "application/pdf", SizeBytes: 1024},
		{Filename: "b.csv", ContentType: "text/csv"},
		{Filename: "c.bin"},
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 3)
	assert.False(t, result.Partial)

	sess, err := store.GetSessionByID(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAuthorized, sess.Status)
	assert.Equal(t, "ds1", sess.DatastoreID)
	assert.Equal(t, models.StringList{"tag1"}, sess.Tags)

	keys := map[string]bool{}
	for _, fr := range result.Files {
		assert.Equal(t, result.SessionID, fr.SessionID)
		assert.NotEmpty(t, fr.UploadURL)
		assert.Equal(t, int64(8<<20), fr.SuggestedChunkBytes)
		assert.False(t, keys[fr.ObjectKey], "object keys must be distinct")
		keys[fr.ObjectKey] = true

		row, err := store.GetFileByID(ctx, fr.FileID)
		require.NoError(t, err)
		assert.Equal(t, models.FileAuthorized, row.Status)
		assert.Equal(t, "raw-bucket", row.Bucket)
	}

	// Missing content type falls back to the generic default.
	assert.Equal(t, "application/octet-stream", result.Files[2].ContentType)

	// Correlation metadata travels with every storage call.
	require.Len(t, storage.calls, 3)
	for i, call := range storage.calls {
		assert.Equal(t, result.SessionID, call.metadata["uploadId"])
		assert.Equal(t, "ds1", call.metadata["datastoreId"])
		assert.Equal(t, result.Files[i].FileID, call.metadata["fileId"])
	}
}

func TestCreateBatchValidation(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	init := NewInitiator(store, newFakeStorage(), testConfig(config.PartialContinue))

	tests := []struct {
		name        string
		datastoreID string
		files       []FileSpec
	}{
		{"missing datastore", "", []FileSpec{{Filename: "a.pdf"}}},
		{"no files", "ds1", nil},
		{"file without name", "ds1", []FileSpec{{Filename: "a.pdf"}, {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := init.CreateBatch(ctx, tt.datastoreID, nil, tt.files)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}

	// Rejected before any persistence.
	rows, err := store.ListSessionsByDatastore(ctx, "ds1", nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateBatchPartialContinue(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	storage := newFakeStorage()
	storage.failKeys["bad.pdf"] = true
	init := NewInitiator(store, storage, testConfig(config.PartialContinue))

	result, err := init.CreateBatch(ctx, "ds1", nil, []FileSpec{
		{Filename: "bad.pdf", ContentType: "application/pdf"},
		{Filename: "good.csv", ContentType: "text/csv"},
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 2)
	assert.True(t, result.Partial)

	failed, ok := result.Files[0], result.Files[1]
	assert.NotEmpty(t, failed.Error)
	assert.Empty(t, failed.UploadURL)
	assert.NotEmpty(t, ok.UploadURL)
	assert.Empty(t, ok.Error)

	// The failed file's row is durable and visibly in error: a row with no
	// usable upload URL is reported, never silently dropped.
	row, err := store.GetFileByID(ctx, failed.FileID)
	require.NoError(t, err)
	assert.Equal(t, models.FileError, row.Status)
	assert.NotEmpty(t, row.Error)

	sess, err := store.GetSessionByID(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAuthorized, sess.Status)
}

func TestCreateBatchPartialAbort(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	storage := newFakeStorage()
	storage.failKeys["bad.pdf"] = true
	init := NewInitiator(store, storage, testConfig(config.PartialAbort))

	result, err := init.CreateBatch(ctx, "ds1", nil, []FileSpec{
		{Filename: "bad.pdf", ContentType: "application/pdf"},
		{Filename: "never-reached.csv", ContentType: "text/csv"},
	})
	require.NoError(t, err)

	// Abort stops at the first failure; the second file was never attempted.
	require.Len(t, result.Files, 1)
	assert.True(t, result.Partial)
	assert.Empty(t, storage.calls)

	sess, err := store.GetSessionByID(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionError, sess.Status)
}
