package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// fakeStorage records initiation calls and can be told to fail for given
// filenames (matched on the object key suffix).
type fakeStorage struct {
	mu       sync.Mutex
	calls    []storageCall
	failKeys map[string]bool
}

type storageCall struct {
	objectKey   string
	contentType string
	sizeHint    int64
	metadata    map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{failKeys: map[string]bool{}}
}

func (f *fakeStorage) InitiateResumableUpload(ctx context.Context, objectKey, contentType string, sizeHint int64, metadata map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for suffix := range f.failKeys {
		if strings.HasSuffix(objectKey, suffix) {
			return "", errors.New("backend refused session")
		}
	}
	f.calls = append(f.calls, storageCall{objectKey, contentType, sizeHint, metadata})
	return "https://storage.example/upload/" + objectKey, nil
}

func (f *fakeStorage) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	return true, nil
}

// fakeDispatcher records enqueued jobs; failures is the number of leading
// Enqueue calls that return an error.
type fakeDispatcher struct {
	mu       sync.Mutex
	jobs     []enqueuedJob
	failures int
}

type enqueuedJob struct {
	topic   string
	payload map[string]any
}

func (f *fakeDispatcher) Enqueue(ctx context.Context, topic string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("broker down")
	}
	f.jobs = append(f.jobs, enqueuedJob{topic: topic, payload: payload})
	return nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}
