package parse

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JoshPattman/cvwizard/datamodels"
	"github.com/JoshPattman/jpf"
)

var ErrNoText = errors.New("no text could be extracted from the document")

// LLMParser extracts the document text locally and asks an LLM to structure it.
type LLMParser struct {
	modelBuilder ModelBuilder
	logger       *slog.Logger
	maxChars     int
}

func NewLLMParser(modelBuilder ModelBuilder, logger *slog.Logger) *LLMParser {
	return &LLMParser{modelBuilder: modelBuilder, logger: logger, maxChars: 40000}
}

type cvParseRequest struct {
	FileName string
	Text     string
}

func (p *LLMParser) Parse(ctx context.Context, upload Upload) (datamodels.ParsedCV, error) {
	text := upload.Text
	if text == "" {
		var err error
		text, err = ExtractText(upload.MimeType, upload.Data)
		if err != nil {
			return datamodels.ParsedCV{}, err
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return datamodels.ParsedCV{}, ErrNoText
	}
	text = truncateText(text, p.maxChars)

	logger := p.logger.With("file_name", upload.FileName)
	logger.Info("Beginning llm parse", "num_chars", len(text))
	tstart := time.Now()
	mf := buildParseMapFunc(p.modelBuilder, logger)
	result, _, err := mf.Call(ctx, cvParseRequest{FileName: upload.FileName, Text: text})
	if err != nil {
		logger.Error("Failed llm parse", "err", err)
		return datamodels.ParsedCV{}, err
	}
	logger.Info("Completed llm parse", "time_taken", time.Since(tstart))
	return result, nil
}

// Build a mapfunc (a typed LLM call with retry logic) for parsing a CV.
func buildParseMapFunc(modelBuilder ModelBuilder, logger *slog.Logger) jpf.MapFunc[cvParseRequest, datamodels.ParsedCV] {
	enc := jpf.NewTemplateMessageEncoder[cvParseRequest]("", cvParseTemplate)
	dec := wrapJsonDecoder(jpf.NewJsonResponseDecoder[cvParseRequest, datamodels.ParsedCV]())
	dec = jpf.NewValidatingResponseDecoder(
		dec,
		func(_ cvParseRequest, response datamodels.ParsedCV) error {
			if isEmpty(response) {
				return errors.New("the response contained no cv data, extract at least the personal info")
			}
			return nil
		},
	)
	fed := jpf.NewRawMessageFeedbackGenerator()
	model := modelBuilder.BuildParseModel(logger)
	return jpf.NewFeedbackMapFunc(enc, dec, fed, model, jpf.UserRole, 3)
}

// wrapJsonDecoder trims any prose around the outermost JSON object before decoding.
func wrapJsonDecoder[T, U any](dec jpf.ResponseDecoder[T, U]) jpf.ResponseDecoder[T, U] {
	return jpf.NewSubstringResponseDecoder(
		dec,
		func(s string) (string, error) {
			startIndex := strings.Index(s, "{")
			endIndex := strings.LastIndex(s, "}")
			if startIndex == -1 {
				startIndex = 0
			}
			if endIndex == -1 || endIndex <= startIndex {
				endIndex = len(s) - 1
			}
			return s[startIndex : endIndex+1], nil
		},
	)
}

const cvParseTemplate = `You are an expert CV parser. Read the CV text below and extract its contents.

Return a single JSON object with exactly these keys:
- "personalInfo": {"name", "email", "phone", "location", "title", "summary", "linkedin", "website"}
- "skills": [{"name", "level", "category"}]
- "experience": [{"company", "position", "location", "startDate", "endDate", "current", "description", "achievements"}]
- "education": [{"institution", "degree", "field", "startDate", "endDate", "gpa"}]
- "languages": [{"language", "proficiency"}]
- "certifications": [{"name", "issuer", "date", "expiryDate", "credentialId", "url"}]
- "projects": [{"name", "description", "technologies", "url", "startDate", "endDate"}]

Dates use YYYY-MM where possible, or "Present" for ongoing roles. Use empty strings or empty arrays for anything missing. Do not invent information.

File name: {{ .FileName }}

CV text:
{{ .Text }}`

// truncateText cuts s to at most maxBytes without splitting a UTF-8 sequence.
func truncateText(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
