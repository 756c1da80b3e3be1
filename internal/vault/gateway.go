package vault

import (
	"context"
	"io"
	"time"

	"github.com/abduss/certvault/internal/certificate"
	"github.com/google/uuid"
)

// Gateway is the remote service holding records and objects. Every call is
// scoped by the session; implementations never trust an owner from anywhere
// else.
type Gateway interface {
	ListCertificates(ctx context.Context, session Session) ([]certificate.Certificate, error)
	InsertCertificate(ctx context.Context, session Session, in certificate.NewCertificate) (certificate.Certificate, error)
	UpdateCertificate(ctx context.Context, session Session, id uuid.UUID, changes certificate.Changes) (certificate.Certificate, error)
	DeleteCertificate(ctx context.Context, session Session, id uuid.UUID) error

	// StoreObject writes the binary at {owner}/{name} and returns that path.
	StoreObject(ctx context.Context, session Session, name string, content io.Reader, size int64, contentType string) (string, error)
	// SignURL returns a read link for path valid for ttl, or "" if none was issued.
	SignURL(ctx context.Context, session Session, path string, ttl time.Duration) (string, error)
	DeleteObject(ctx context.Context, session Session, path string) error
}
