package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3AttachmentStore_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3AttachmentStore(ctx, nil)
	assert.ErrorContains(t, err, "configuration is required")

	_, err = NewS3AttachmentStore(ctx, &config.StorageConfig{})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = NewS3AttachmentStore(ctx, &config.StorageConfig{Bucket: "b", AccessKeyID: "only-id"})
	assert.ErrorContains(t, err, "must be set together")
}

// fakeS3 answers HEAD requests for path-style object URLs
func fakeS3(t *testing.T, objects map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, ok := objects[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T, endpoint string) *S3AttachmentStore {
	t.Helper()
	store, err := NewS3AttachmentStore(context.Background(), &config.StorageConfig{
		Endpoint:        endpoint,
		Bucket:          "receipts",
		AccessKeyID:     "test",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}, WithPresignExpiration(5*time.Minute))
	require.NoError(t, err)
	return store
}

func TestS3AttachmentStore_ObjectExists(t *testing.T) {
	srv := fakeS3(t, map[string]int{
		"receipts/2026/rent.pdf":   http.StatusOK,
		"receipts/2026/locked.pdf": http.StatusForbidden,
	})
	store := newTestStore(t, srv.URL)
	ctx := context.Background()

	ok, err := store.ObjectExists(ctx, "2026/rent.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ObjectExists(ctx, "2026/missing.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.ObjectExists(ctx, "2026/locked.pdf")
	assert.Error(t, err)

	_, err = store.ObjectExists(ctx, "")
	assert.Error(t, err)
}

func TestS3AttachmentStore_GenerateUploadURL(t *testing.T) {
	store := newTestStore(t, "http://127.0.0.1:9000")

	u, expires, err := store.GenerateUploadURL(context.Background(), "2026/rent.pdf", "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://127.0.0.1:9000/receipts/2026/rent.pdf?"))
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expires, 5*time.Second)
	assert.Equal(t, "receipts", store.Bucket())
}

func TestMemoryAttachmentStore(t *testing.T) {
	store := NewMemoryAttachmentStore("a.pdf")
	ctx := context.Background()

	ok, err := store.ObjectExists(ctx, "a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ObjectExists(ctx, "b.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	store.Put("b.pdf")
	ok, _ = store.ObjectExists(ctx, "b.pdf")
	assert.True(t, ok)

	_, err = store.ObjectExists(ctx, "")
	assert.Error(t, err)
}
