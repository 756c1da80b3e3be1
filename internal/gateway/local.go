package gateway

import (
	"context"
	"io"
	"time"

	"github.com/abduss/certvault/internal/certificate"
	"github.com/abduss/certvault/internal/object"
	"github.com/abduss/certvault/internal/presigned"
	"github.com/abduss/certvault/internal/vault"
	"github.com/google/uuid"
)

type recordService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in certificate.NewCertificate) (certificate.Certificate, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]certificate.Certificate, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, changes certificate.Changes) (certificate.Certificate, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (certificate.Certificate, error)
}

type objectService interface {
	Put(ctx context.Context, ownerID uuid.UUID, name string, reader io.Reader, size int64, contentType string) (object.Info, error)
	Stat(ctx context.Context, path string) (object.Info, error)
	Remove(ctx context.Context, ownerID uuid.UUID, name string) error
}

type urlSigner interface {
	Sign(ctx context.Context, path string, ttl time.Duration) (presigned.SignedURL, error)
}

// Local serves vault flows in-process from the gateway's own services. The
// session's user id is trusted as the owner, so sessions must come from a
// validated access token.
type Local struct {
	records recordService
	objects objectService
	signer  urlSigner
}

// NewLocal builds an in-process gateway.
func NewLocal(records recordService, objects objectService, signer urlSigner) *Local {
	return &Local{records: records, objects: objects, signer: signer}
}

var _ vault.Gateway = (*Local)(nil)

func (l *Local) ListCertificates(ctx context.Context, session vault.Session) ([]certificate.Certificate, error) {
	return l.records.List(ctx, session.UserID)
}

func (l *Local) InsertCertificate(ctx context.Context, session vault.Session, in certificate.NewCertificate) (certificate.Certificate, error) {
	return l.records.Create(ctx, session.UserID, in)
}

func (l *Local) UpdateCertificate(ctx context.Context, session vault.Session, id uuid.UUID, changes certificate.Changes) (certificate.Certificate, error) {
	return l.records.Update(ctx, session.UserID, id, changes)
}

func (l *Local) DeleteCertificate(ctx context.Context, session vault.Session, id uuid.UUID) error {
	_, err := l.records.Delete(ctx, session.UserID, id)
	return err
}

func (l *Local) StoreObject(ctx context.Context, session vault.Session, name string, content io.Reader, size int64, contentType string) (string, error) {
	info, err := l.objects.Put(ctx, session.UserID, name, content, size, contentType)
	if err != nil {
		return "", err
	}
	return info.Path, nil
}

func (l *Local) SignURL(ctx context.Context, session vault.Session, path string, ttl time.Duration) (string, error) {
	if _, err := ownedName(session, path); err != nil {
		return "", err
	}
	if _, err := l.objects.Stat(ctx, path); err != nil {
		return "", err
	}
	signed, err := l.signer.Sign(ctx, path, ttl)
	if err != nil {
		return "", err
	}
	return signed.URL, nil
}

func (l *Local) DeleteObject(ctx context.Context, session vault.Session, path string) error {
	name, err := ownedName(session, path)
	if err != nil {
		return err
	}
	return l.objects.Remove(ctx, session.UserID, name)
}

func ownedName(session vault.Session, path string) (string, error) {
	ownerID, name, err := object.ParsePath(path)
	if err != nil {
		return "", err
	}
	if ownerID != session.UserID {
		return "", object.ErrForbidden
	}
	return name, nil
}
