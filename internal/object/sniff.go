package object

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072

// Sniff detects the media type from the head of r. The returned reader
// replays the consumed bytes followed by the rest of r.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	return NormalizeType(mimetype.Detect(head).String()), io.MultiReader(bytes.NewReader(head), r), nil
}

// NormalizeType lower-cases a media type and drops its parameters.
func NormalizeType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
