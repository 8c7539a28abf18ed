// Package parse turns an uploaded CV document into a datamodels.ParsedCV.
package parse

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JoshPattman/cvwizard/datamodels"
)

var ErrEmptyParse = errors.New("parser returned no cv data")

// Upload is a validated CV document ready to be parsed.
type Upload struct {
	FileName string
	MimeType string
	Data     []byte
	// Text is the extracted plain text, if it has already been extracted.
	Text string
}

// Parser parses a single upload.
type Parser interface {
	Parse(ctx context.Context, upload Upload) (datamodels.ParsedCV, error)
}

// FallbackMode decides what happens when the primary parser fails.
type FallbackMode string

const (
	// FallbackMock substitutes the mock dataset.
	FallbackMock FallbackMode = "mock"
	// FallbackError propagates the parse error.
	FallbackError FallbackMode = "error"
)

// Outcome is the settled result of a parse, including whether the mock
// dataset was substituted and the failure that caused it.
type Outcome struct {
	CV       datamodels.ParsedCV
	Fallback bool
	Cause    error
}

// FallbackParser runs a primary parser and, depending on its mode, hides
// failures behind the mock dataset. Nothing is retried.
type FallbackParser struct {
	primary Parser
	mock    Parser
	mode    FallbackMode
	logger  *slog.Logger
}

func NewFallbackParser(primary Parser, mode FallbackMode, logger *slog.Logger) *FallbackParser {
	return &FallbackParser{
		primary: primary,
		mock:    MockParser{},
		mode:    mode,
		logger:  logger,
	}
}

// Resolve parses the upload, applying the fallback mode on failure.
func (p *FallbackParser) Resolve(ctx context.Context, upload Upload) (Outcome, error) {
	cv, err := p.primary.Parse(ctx, upload)
	if err == nil && isEmpty(cv) {
		err = ErrEmptyParse
	}
	if err == nil {
		return Outcome{CV: cv}, nil
	}
	if p.mode != FallbackMock || ctx.Err() != nil {
		p.logger.Warn("Parse failed", "file_name", upload.FileName, "error", err)
		return Outcome{}, err
	}
	p.logger.Warn("Parse failed, substituting mock data", "file_name", upload.FileName, "error", err)
	mock, mockErr := p.mock.Parse(ctx, upload)
	if mockErr != nil {
		return Outcome{}, errors.Join(err, mockErr)
	}
	return Outcome{CV: mock, Fallback: true, Cause: err}, nil
}

func isEmpty(cv datamodels.ParsedCV) bool {
	return cv.PersonalInfo == (datamodels.ParsedPersonalInfo{}) &&
		len(cv.Skills) == 0 &&
		len(cv.Experience) == 0 &&
		len(cv.Education) == 0 &&
		len(cv.Languages) == 0 &&
		len(cv.Certifications) == 0 &&
		len(cv.Projects) == 0
}
