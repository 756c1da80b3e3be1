package vault

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/abduss/certvault/internal/certificate"
	"github.com/abduss/certvault/internal/metrics"
	"github.com/abduss/certvault/internal/object"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadState is a step of the upload flow.
type UploadState int

const (
	Idle UploadState = iota
	FileSelected
	Uploading
	Succeeded
	Failed
)

func (s UploadState) String() string {
	switch s {
	case Idle:
		return "idle"
	case FileSelected:
		return "file_selected"
	case Uploading:
		return "uploading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("UploadState(%d)", int(s))
	}
}

// MaxUploadSize is the largest accepted file, 10 MiB.
const MaxUploadSize = 10 * 1024 * 1024

// LinkTTL is the validity window of the link stored with every record.
const LinkTTL = 31536000 * time.Second

// File is a locally selected file.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadPolicy bounds what Select accepts and how long stored links live.
type UploadPolicy struct {
	MaxSize      int64
	AllowedTypes []string
	LinkTTL      time.Duration
}

// DefaultUploadPolicy accepts PDF, JPEG and PNG up to 10 MiB with one-year links.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxSize:      MaxUploadSize,
		AllowedTypes: []string{"application/pdf", "image/jpeg", "image/png", "image/jpg"},
		LinkTTL:      LinkTTL,
	}
}

func (p UploadPolicy) allows(contentType string) bool {
	for _, t := range p.AllowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

// Upload drives one certificate upload: Idle → FileSelected → Uploading →
// Succeeded or Failed. A failed upload can be resubmitted; a succeeded one
// needs a new file selected first.
type Upload struct {
	gateway  Gateway
	session  Session
	notifier Notifier
	policy   UploadPolicy
	log      *zap.Logger
	nowFunc  func() time.Time

	state  UploadState
	file   *File
	result certificate.Certificate
	err    error
}

// NewUpload starts an idle upload for session. A zero policy selects DefaultUploadPolicy.
func NewUpload(gateway Gateway, session Session, notifier Notifier, policy UploadPolicy) *Upload {
	defaults := DefaultUploadPolicy()
	if policy.MaxSize <= 0 {
		policy.MaxSize = defaults.MaxSize
	}
	if len(policy.AllowedTypes) == 0 {
		policy.AllowedTypes = defaults.AllowedTypes
	}
	if policy.LinkTTL <= 0 {
		policy.LinkTTL = defaults.LinkTTL
	}
	return &Upload{
		gateway:  gateway,
		session:  session,
		notifier: notifier,
		policy:   policy,
		log:      zap.L().With(zap.String("user_id", session.UserID.String())),
		nowFunc:  time.Now,
	}
}

// State returns the current step.
func (u *Upload) State() UploadState { return u.state }

// Result returns the inserted record once the upload has succeeded.
func (u *Upload) Result() certificate.Certificate { return u.result }

// Err returns the failure of the last submission.
func (u *Upload) Err() error { return u.err }

// Select validates and stages a file. A rejected file leaves the state and
// any previously staged file untouched. An empty declared type is sniffed
// from the content.
func (u *Upload) Select(file File) error {
	if u.state == Uploading {
		return ErrUploadInProgress
	}

	contentType := object.NormalizeType(file.ContentType)
	if contentType == "" && file.Content != nil {
		sniffed, replay, err := object.Sniff(file.Content)
		if err != nil {
			return u.reject("Could not read the selected file")
		}
		contentType = sniffed
		if seeker, ok := file.Content.(io.Seeker); ok {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return u.reject("Could not read the selected file")
			}
		} else {
			file.Content = replay
		}
	}
	if !u.policy.allows(contentType) {
		return u.reject("Please select a PDF or image file (JPEG, PNG)")
	}
	if file.Size > u.policy.MaxSize {
		return u.reject("File size must be less than " + sizeLabel(u.policy.MaxSize))
	}

	file.ContentType = contentType
	u.file = &file
	u.state = FileSelected
	return nil
}

// CanSubmit reports whether a file is staged, not yet stored, and title is
// non-blank.
func (u *Upload) CanSubmit(title string) bool {
	if u.state == Uploading || u.state == Succeeded || u.file == nil {
		return false
	}
	return strings.TrimSpace(title) != ""
}

// Submit stores the binary, signs a link to it and inserts the record, in that
// order, stopping at the first failure. Only the insert creates a record.
func (u *Upload) Submit(ctx context.Context, title, description string) (certificate.Certificate, error) {
	if !u.CanSubmit(title) {
		return certificate.Certificate{}, ErrNotReady
	}
	if !u.session.SignedIn(u.nowFunc()) {
		return certificate.Certificate{}, ErrNotSignedIn
	}

	u.state = Uploading
	u.err = nil

	cert, err := u.run(ctx, strings.TrimSpace(title), strings.TrimSpace(description))
	if err != nil {
		u.state = Failed
		u.err = err
		metrics.Uploads.WithLabelValues("failed").Inc()
		u.log.Error("upload certificate", zap.String("file_name", u.file.Name), zap.Error(err))
		notifyError(u.notifier, Message(err, "Failed to upload certificate"))
		return certificate.Certificate{}, err
	}

	u.state = Succeeded
	u.result = cert
	metrics.Uploads.WithLabelValues("succeeded").Inc()
	notifySuccess(u.notifier, "Certificate uploaded successfully!")
	return cert, nil
}

func (u *Upload) run(ctx context.Context, title, description string) (certificate.Certificate, error) {
	file := u.file
	if seeker, ok := file.Content.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return certificate.Certificate{}, fmt.Errorf("rewind file: %w", err)
		}
	}
	name := objectName(u.nowFunc(), file.Name)

	objectPath, err := u.gateway.StoreObject(ctx, u.session, name, file.Content, file.Size, file.ContentType)
	if err != nil {
		return certificate.Certificate{}, fmt.Errorf("store object: %w", err)
	}

	link, err := u.gateway.SignURL(ctx, u.session, objectPath, u.policy.LinkTTL)
	if err != nil {
		return certificate.Certificate{}, fmt.Errorf("sign url: %w", err)
	}
	if link == "" {
		return certificate.Certificate{}, ErrNoSignedURL
	}

	in := certificate.NewCertificate{
		Title:    title,
		FileURL:  link,
		FileName: file.Name,
		FileSize: file.Size,
	}
	if description != "" {
		in.Description = &description
	}

	cert, err := u.gateway.InsertCertificate(ctx, u.session, in)
	if err != nil {
		metrics.OrphanedObjects.Inc()
		u.log.Warn("object left in storage after failed insert", zap.String("path", objectPath), zap.Error(err))
		return certificate.Certificate{}, fmt.Errorf("insert certificate: %w", err)
	}
	return cert, nil
}

func (u *Upload) reject(message string) error {
	metrics.Uploads.WithLabelValues("rejected").Inc()
	notifyError(u.notifier, message)
	return &ValidationError{Message: message}
}

// objectName builds "{unix millis}-{random}{.ext}" from the original file name.
func objectName(now time.Time, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString()[:8], ext)
}

func sizeLabel(n int64) string {
	const mib = 1024 * 1024
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
