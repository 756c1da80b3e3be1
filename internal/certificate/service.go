package certificate

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type recordStore interface {
	Create(ctx context.Context, ownerID uuid.UUID, in NewCertificate) (Certificate, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]Certificate, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, changes Changes) (Certificate, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (Certificate, error)
}

// Service enforces record invariants on top of the store. Every method takes
// the owner explicitly; callers resolve it from the authenticated session.
type Service struct {
	repo    recordStore
	nowFunc func() time.Time
}

// NewService constructs a certificate service.
func NewService(repo recordStore) *Service {
	return &Service{repo: repo, nowFunc: time.Now}
}

// Create validates and inserts a record for ownerID.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in NewCertificate) (Certificate, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return Certificate{}, ErrTitleRequired
	}
	if strings.TrimSpace(in.FileURL) == "" || strings.TrimSpace(in.FileName) == "" || in.FileSize < 0 {
		return Certificate{}, ErrInvalidFile
	}
	in.Description = normalizeDescription(in.Description)
	return s.repo.Create(ctx, ownerID, in)
}

// List returns the owner's certificates ordered by creation time, newest first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]Certificate, error) {
	return s.repo.List(ctx, ownerID)
}

// Update writes title, description and updated_at. A zero UpdatedAt is
// stamped with the current time.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, changes Changes) (Certificate, error) {
	changes.Title = strings.TrimSpace(changes.Title)
	if changes.Title == "" {
		return Certificate{}, ErrTitleRequired
	}
	changes.Description = normalizeDescription(changes.Description)
	if changes.UpdatedAt.IsZero() {
		changes.UpdatedAt = s.nowFunc()
	}
	return s.repo.Update(ctx, ownerID, id, changes)
}

// Delete removes the record and returns what was deleted so callers can
// clean up the backing object.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) (Certificate, error) {
	return s.repo.Delete(ctx, ownerID, id)
}

func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*d)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
