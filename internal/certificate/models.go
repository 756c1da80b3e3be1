package certificate

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is the metadata record for one stored certificate file.
type Certificate struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	FileURL     string    `json:"file_url"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DescriptionText returns the description or "" when absent.
func (c Certificate) DescriptionText() string {
	if c.Description == nil {
		return ""
	}
	return *c.Description
}

// NewCertificate is the client-supplied part of an insert. Ownership is never
// part of it; the gateway takes the owner from the authenticated session.
type NewCertificate struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	FileURL     string  `json:"file_url"`
	FileName    string  `json:"file_name"`
	FileSize    int64   `json:"file_size"`
}

// Changes is a metadata edit.
type Changes struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}
