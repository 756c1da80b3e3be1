package vault

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/abduss/certvault/internal/certificate"
	"github.com/abduss/certvault/internal/metrics"
	"github.com/abduss/certvault/internal/object"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Draft is the edit buffer for one certificate.
type Draft struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// Library is the in-memory certificate list of one session together with the
// edit and delete flows that mutate it. It is owned by a single interaction
// and is not safe for concurrent use.
type Library struct {
	gateway  Gateway
	session  Session
	notifier Notifier
	log      *zap.Logger
	nowFunc  func() time.Time

	certs   []certificate.Certificate
	editing *Draft
}

// NewLibrary binds a library to a session.
func NewLibrary(gateway Gateway, session Session, notifier Notifier) *Library {
	return &Library{
		gateway:  gateway,
		session:  session,
		notifier: notifier,
		log:      zap.L().With(zap.String("user_id", session.UserID.String())),
		nowFunc:  time.Now,
		certs:    []certificate.Certificate{},
	}
}

// Load fetches the session's certificates, newest first. On failure the list
// is left empty and the user is notified; nothing is retried.
func (l *Library) Load(ctx context.Context) error {
	if !l.session.SignedIn(l.nowFunc()) {
		return ErrNotSignedIn
	}

	certs, err := l.gateway.ListCertificates(ctx, l.session)
	if err != nil {
		l.certs = []certificate.Certificate{}
		l.log.Error("load certificates", zap.Error(err))
		notifyError(l.notifier, "Failed to load certificates")
		return fmt.Errorf("list certificates: %w", err)
	}
	if certs == nil {
		certs = []certificate.Certificate{}
	}
	l.certs = certs
	return nil
}

// Certificates returns a copy of the in-memory list.
func (l *Library) Certificates() []certificate.Certificate {
	out := make([]certificate.Certificate, len(l.certs))
	copy(out, l.certs)
	return out
}

// Groups filters the list by query and buckets it by month in loc.
func (l *Library) Groups(query string, loc *time.Location) []Group {
	return Arrange(l.certs, query, loc)
}

// Find looks up a loaded certificate.
func (l *Library) Find(id uuid.UUID) (certificate.Certificate, bool) {
	i := l.indexOf(id)
	if i < 0 {
		return certificate.Certificate{}, false
	}
	return l.certs[i], true
}

// BeginEdit copies the certificate's title and description into the buffer,
// replacing any edit already in progress.
func (l *Library) BeginEdit(id uuid.UUID) (Draft, error) {
	c, ok := l.Find(id)
	if !ok {
		return Draft{}, certificate.ErrCertificateNotFound
	}
	l.editing = &Draft{ID: c.ID, Title: c.Title, Description: c.DescriptionText()}
	return *l.editing, nil
}

// Editing returns the current buffer.
func (l *Library) Editing() (Draft, bool) {
	if l.editing == nil {
		return Draft{}, false
	}
	return *l.editing, true
}

// SetDraft replaces the buffered title and description.
func (l *Library) SetDraft(title, description string) error {
	if l.editing == nil {
		return ErrNotEditing
	}
	l.editing.Title = title
	l.editing.Description = description
	return nil
}

// Cancel drops the buffer without touching remote or local state.
func (l *Library) Cancel() {
	l.editing = nil
}

// Save writes the buffer with a fresh updated_at and patches the in-memory
// entry with the edited values. On failure the buffer is kept so the user can
// retry.
func (l *Library) Save(ctx context.Context) error {
	if l.editing == nil {
		return ErrNotEditing
	}
	if !l.session.SignedIn(l.nowFunc()) {
		return ErrNotSignedIn
	}

	draft := *l.editing
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		err := &ValidationError{Message: "Title is required"}
		notifyError(l.notifier, err.Message)
		return err
	}

	var description *string
	if d := strings.TrimSpace(draft.Description); d != "" {
		description = &d
	}
	changes := certificate.Changes{Title: title, Description: description, UpdatedAt: l.nowFunc().UTC()}

	if _, err := l.gateway.UpdateCertificate(ctx, l.session, draft.ID, changes); err != nil {
		l.log.Error("update certificate", zap.String("certificate_id", draft.ID.String()), zap.Error(err))
		notifyError(l.notifier, Message(err, "Failed to update certificate"))
		return fmt.Errorf("update certificate: %w", err)
	}

	if i := l.indexOf(draft.ID); i >= 0 {
		l.certs[i].Title = changes.Title
		l.certs[i].Description = changes.Description
		l.certs[i].UpdatedAt = changes.UpdatedAt
	}
	l.editing = nil
	notifySuccess(l.notifier, "Certificate updated successfully!")
	return nil
}

// Delete removes a certificate once confirm approves it. The record goes
// first; the backing object is removed afterwards and a failure there is
// logged, not returned. It reports whether anything was deleted.
func (l *Library) Delete(ctx context.Context, id uuid.UUID, confirm func(certificate.Certificate) bool) (bool, error) {
	if !l.session.SignedIn(l.nowFunc()) {
		return false, ErrNotSignedIn
	}
	c, ok := l.Find(id)
	if !ok {
		return false, certificate.ErrCertificateNotFound
	}
	if confirm == nil || !confirm(c) {
		return false, nil
	}

	if err := l.gateway.DeleteCertificate(ctx, l.session, id); err != nil {
		metrics.Deletes.WithLabelValues("failed").Inc()
		l.log.Error("delete certificate", zap.String("certificate_id", id.String()), zap.Error(err))
		notifyError(l.notifier, Message(err, "Failed to delete certificate"))
		return false, fmt.Errorf("delete certificate: %w", err)
	}

	l.removeObject(ctx, c)

	if i := l.indexOf(id); i >= 0 {
		l.certs = append(l.certs[:i], l.certs[i+1:]...)
	}
	if l.editing != nil && l.editing.ID == id {
		l.editing = nil
	}
	metrics.Deletes.WithLabelValues("succeeded").Inc()
	notifySuccess(l.notifier, "Certificate deleted successfully!")
	return true, nil
}

func (l *Library) removeObject(ctx context.Context, c certificate.Certificate) {
	name, err := ObjectName(c.FileURL)
	if err != nil {
		metrics.OrphanedObjects.Inc()
		l.log.Warn("object left in storage: unparsable file url",
			zap.String("certificate_id", c.ID.String()), zap.String("file_url", c.FileURL), zap.Error(err))
		return
	}

	objectPath := object.Path(l.session.UserID, name)
	if err := l.gateway.DeleteObject(ctx, l.session, objectPath); err != nil {
		metrics.OrphanedObjects.Inc()
		l.log.Warn("object left in storage after record delete",
			zap.String("certificate_id", c.ID.String()), zap.String("path", objectPath), zap.Error(err))
	}
}

func (l *Library) indexOf(id uuid.UUID) int {
	for i := range l.certs {
		if l.certs[i].ID == id {
			return i
		}
	}
	return -1
}

// ObjectName derives the stored object's name from a certificate's file
// reference: the last segment of the URL path, query dropped.
func ObjectName(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}
	name := path.Base(u.Path)
	if err := object.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}
