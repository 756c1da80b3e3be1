package object

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const defaultMaxObjectSize = 10 * 1024 * 1024 // 10MiB

// Info describes a stored object.
type Info struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Checksum    string `json:"checksum,omitempty"`
}

type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Service stores certificate binaries under owner-prefixed keys.
type Service struct {
	store        objectStore
	objectBucket string
	maxSize      int64
}

// NewService constructs an object service. A non-positive maxSize selects the 10MiB default.
func NewService(store objectStore, objectBucket string, maxSize int64) *Service {
	if maxSize <= 0 {
		maxSize = defaultMaxObjectSize
	}
	return &Service{
		store:        store,
		objectBucket: objectBucket,
		maxSize:      maxSize,
	}
}

// Bucket returns the storage bucket objects are written to.
func (s *Service) Bucket() string {
	return s.objectBucket
}

// Put stores the object at {owner}/{name}. An empty contentType is sniffed
// from the content.
func (s *Service) Put(ctx context.Context, ownerID uuid.UUID, name string, reader io.Reader, size int64, contentType string) (Info, error) {
	if err := ValidateName(name); err != nil {
		return Info{}, err
	}
	if size > s.maxSize {
		return Info{}, ErrObjectTooLarge
	}

	contentType = NormalizeType(contentType)
	if contentType == "" {
		sniffed, replay, err := Sniff(reader)
		if err != nil {
			return Info{}, fmt.Errorf("sniff content type: %w", err)
		}
		contentType, reader = sniffed, replay
	}

	objectName := Path(ownerID, name)
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	uploadInfo, err := s.store.PutObject(ctx, s.objectBucket, objectName, tee, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Info{}, fmt.Errorf("store object: %w", err)
	}

	actualSize := uploadInfo.Size
	if actualSize <= 0 {
		actualSize = size
	}
	if actualSize > s.maxSize {
		_ = s.store.RemoveObject(ctx, s.objectBucket, objectName, minio.RemoveObjectOptions{})
		return Info{}, ErrObjectTooLarge
	}

	return Info{
		Path:        objectName,
		Size:        actualSize,
		ContentType: contentType,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Stat returns info about the object at path.
func (s *Service) Stat(ctx context.Context, path string) (Info, error) {
	if _, _, err := ParsePath(path); err != nil {
		return Info{}, err
	}

	stat, err := s.store.StatObject(ctx, s.objectBucket, path, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return Info{}, ErrObjectNotFound
		}
		return Info{}, fmt.Errorf("stat object: %w", err)
	}
	return Info{Path: path, Size: stat.Size, ContentType: stat.ContentType}, nil
}

// Open returns a reader over the object at path along with its info.
func (s *Service) Open(ctx context.Context, path string) (Info, io.ReadCloser, error) {
	info, err := s.Stat(ctx, path)
	if err != nil {
		return Info{}, nil, err
	}

	reader, err := s.store.GetObject(ctx, s.objectBucket, path, minio.GetObjectOptions{})
	if err != nil {
		return Info{}, nil, fmt.Errorf("fetch object: %w", err)
	}
	return info, reader, nil
}

// Remove deletes the object at {owner}/{name}.
func (s *Service) Remove(ctx context.Context, ownerID uuid.UUID, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := s.store.RemoveObject(ctx, s.objectBucket, Path(ownerID, name), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
