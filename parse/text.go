package parse

import (
	"bytes"
	"errors"
	"fmt"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
)

const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var ErrNoExtractor = errors.New("no text extractor for mime type")

// ExtractText returns the plain text content of a PDF, DOC or DOCX document.
func ExtractText(mimeType string, data []byte) (string, error) {
	switch mimeType {
	case MimePDF:
		return textFromPDF(data)
	case MimeDOCX:
		text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("convert docx: %w", err)
		}
		return text, nil
	case MimeDOC:
		text, _, err := docconv.ConvertDoc(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("convert doc: %w", err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrNoExtractor, mimeType)
	}
}

func textFromPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return "", err
	}
	return buf.String(), nil
}
