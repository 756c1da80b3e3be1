package object

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfHeader = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

func TestPutStoresUnderOwnerPrefix(t *testing.T) {
	store := newFakeObjectStore()
	service := NewService(store, "certificates", 0)

	ownerID := uuid.New()
	info, err := service.Put(context.Background(), ownerID, "1700000000000-ab12.pdf", bytes.NewReader(pdfHeader), int64(len(pdfHeader)), "application/pdf")
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	wantPath := ownerID.String() + "/1700000000000-ab12.pdf"
	if info.Path != wantPath {
		t.Fatalf("unexpected path %q, want %q", info.Path, wantPath)
	}
	if !bytes.Equal(store.objects[wantPath], pdfHeader) {
		t.Fatalf("expected object contents stored")
	}
	if info.Checksum == "" {
		t.Fatalf("expected checksum")
	}
}

func TestPutSniffsMissingContentType(t *testing.T) {
	store := newFakeObjectStore()
	service := NewService(store, "certificates", 0)

	info, err := service.Put(context.Background(), uuid.New(), "scan.pdf", bytes.NewReader(pdfHeader), int64(len(pdfHeader)), "")
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", info.ContentType)
	assert.Equal(t, pdfHeader, store.objects[info.Path], "sniffing must not drop the consumed head")
}

func TestPutRejectsOversizedObject(t *testing.T) {
	store := newFakeObjectStore()
	service := NewService(store, "certificates", 8)

	_, err := service.Put(context.Background(), uuid.New(), "big.pdf", strings.NewReader("0123456789"), 10, "application/pdf")
	if err != ErrObjectTooLarge {
		t.Fatalf("expected ErrObjectTooLarge, got %v", err)
	}
	if store.putCount != 0 {
		t.Fatalf("expected no store call, got %d", store.putCount)
	}
}

func TestPutRejectsTraversingName(t *testing.T) {
	service := NewService(newFakeObjectStore(), "certificates", 0)

	for _, name := range []string{"", "..", "a/b.pdf", `a\b.pdf`} {
		_, err := service.Put(context.Background(), uuid.New(), name, strings.NewReader("x"), 1, "application/pdf")
		assert.ErrorIs(t, err, ErrInvalidPath, "name %q", name)
	}
}

func TestOpenAndRemove(t *testing.T) {
	store := newFakeObjectStore()
	service := NewService(store, "certificates", 0)

	ownerID := uuid.New()
	info, err := service.Put(context.Background(), ownerID, "a.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)

	got, reader, err := service.Open(context.Background(), info.Path)
	require.NoError(t, err)
	defer reader.Close()
	body, _ := io.ReadAll(reader)
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, "image/png", got.ContentType)

	require.NoError(t, service.Remove(context.Background(), ownerID, "a.png"))
	_, _, err = service.Open(context.Background(), info.Path)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestParsePath(t *testing.T) {
	ownerID := uuid.New()

	gotOwner, gotName, err := ParsePath(Path(ownerID, "x.pdf"))
	require.NoError(t, err)
	assert.Equal(t, ownerID, gotOwner)
	assert.Equal(t, "x.pdf", gotName)

	_, _, err = ParsePath("not-a-uuid/x.pdf")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, _, err = ParsePath(ownerID.String())
	assert.ErrorIs(t, err, ErrInvalidPath)
}

// --- helpers & fakes ---

type fakeObjectStore struct {
	objects  map[string][]byte
	types    map[string]string
	putCount int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeObjectStore) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.putCount++
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[objectName] = data
	f.types[objectName] = opts.ContentType
	return minio.UploadInfo{Size: int64(len(data))}, nil
}

func (f *fakeObjectStore) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	data, ok := f.objects[objectName]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return minio.ObjectInfo{Key: objectName, Size: int64(len(data)), ContentType: f.types[objectName]}, nil
}

func (f *fakeObjectStore) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.objects[objectName])), nil
}

func (f *fakeObjectStore) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	delete(f.objects, objectName)
	return nil
}
