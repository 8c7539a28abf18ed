package wizard

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/JoshPattman/cvwizard/parse"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxUploadBytes is the largest CV accepted, 15 MB.
const DefaultMaxUploadBytes int64 = 15 * 1024 * 1024

// AllowedMimeTypes are the document types the wizard accepts.
var AllowedMimeTypes = []string{parse.MimePDF, parse.MimeDOC, parse.MimeDOCX}

var (
	ErrEmptyFile       = errors.New("uploaded file is empty")
	ErrFileTooLarge    = errors.New("uploaded file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Incoming is a single file offered to the wizard.
type Incoming struct {
	FileName string
	MimeType string
	Size     int64
	Body     io.Reader
}

// CheckSize rejects empty files and files larger than maxBytes.
func CheckSize(size, maxBytes int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if size > maxBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, size, maxBytes)
	}
	return nil
}

// ResolveMimeType returns the file's MIME type if it is on the allow-list.
// The declared type wins; when it is missing or generic the content is sniffed.
func ResolveMimeType(declared string, content []byte) (string, error) {
	resolved := normalizeMime(declared)
	if resolved == "" || resolved == "application/octet-stream" {
		resolved = normalizeMime(mimetype.Detect(content).String())
	}
	if !mimetype.EqualsAny(resolved, AllowedMimeTypes...) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, resolved)
	}
	return resolved, nil
}

func normalizeMime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(s)
	if err != nil {
		return strings.ToLower(s)
	}
	return mediaType
}

// readUpload validates and reads an incoming file. Size is checked against the
// declared size before anything is read, and again while reading.
func readUpload(in Incoming, maxBytes int64) (parse.Upload, error) {
	if in.Size > 0 {
		if err := CheckSize(in.Size, maxBytes); err != nil {
			return parse.Upload{}, err
		}
	}
	if in.Body == nil {
		return parse.Upload{}, ErrEmptyFile
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(in.Body, maxBytes+1)); err != nil {
		return parse.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	if err := CheckSize(int64(buf.Len()), maxBytes); err != nil {
		return parse.Upload{}, err
	}
	mimeType, err := ResolveMimeType(in.MimeType, buf.Bytes())
	if err != nil {
		return parse.Upload{}, err
	}
	return parse.Upload{
		FileName: in.FileName,
		MimeType: mimeType,
		Data:     buf.Bytes(),
	}, nil
}
