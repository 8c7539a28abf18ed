package datamodels

import "time"

// A CV represents an uploaded CV file, spooled for the lifetime of a wizard session.
type CV struct {
	UUID       string
	SessionID  string
	FileName   string
	MimeType   string
	Size       int64
	Text       string
	RawDoc     string
	UploadedAt time.Time
}
