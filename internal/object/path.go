package object

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Path joins an owner and object name into the storage key {owner}/{name}.
func Path(ownerID uuid.UUID, name string) string {
	return ownerID.String() + "/" + name
}

// ParsePath splits a storage key into owner and name.
func ParsePath(p string) (uuid.UUID, string, error) {
	owner, name, ok := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	if !ok {
		return uuid.Nil, "", ErrInvalidPath
	}
	ownerID, err := uuid.Parse(owner)
	if err != nil {
		return uuid.Nil, "", ErrInvalidPath
	}
	if err := ValidateName(name); err != nil {
		return uuid.Nil, "", err
	}
	return ownerID, name, nil
}

// ValidateName accepts a single, non-traversing path segment.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") || path.Clean(name) != name {
		return ErrInvalidPath
	}
	return nil
}
