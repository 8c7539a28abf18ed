package parse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/JoshPattman/cvwizard/backend"
	"github.com/JoshPattman/cvwizard/datamodels"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type parserFunc func(context.Context, Upload) (datamodels.ParsedCV, error)

func (f parserFunc) Parse(ctx context.Context, u Upload) (datamodels.ParsedCV, error) { return f(ctx, u) }

func TestFallbackParserSuccess(t *testing.T) {
	want := datamodels.ParsedCV{PersonalInfo: datamodels.ParsedPersonalInfo{Name: "Ada"}}
	p := NewFallbackParser(parserFunc(func(context.Context, Upload) (datamodels.ParsedCV, error) {
		return want, nil
	}), FallbackMock, discardLogger())

	out, err := p.Resolve(context.Background(), Upload{FileName: "cv.pdf"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out.Fallback || out.Cause != nil {
		t.Fatalf("expected no fallback, got %+v", out)
	}
	if !reflect.DeepEqual(out.CV, want) {
		t.Fatalf("got %+v, want %+v", out.CV, want)
	}
}

func TestFallbackParserSubstitutesMock(t *testing.T) {
	boom := errors.New("boom")
	p := NewFallbackParser(parserFunc(func(context.Context, Upload) (datamodels.ParsedCV, error) {
		return datamodels.ParsedCV{}, boom
	}), FallbackMock, discardLogger())

	out, err := p.Resolve(context.Background(), Upload{FileName: "cv.pdf"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !out.Fallback {
		t.Fatal("expected fallback")
	}
	if !errors.Is(out.Cause, boom) {
		t.Fatalf("expected cause boom, got %v", out.Cause)
	}
	if out.CV.PersonalInfo.Name != "John Doe" {
		t.Fatalf("expected mock John Doe, got %q", out.CV.PersonalInfo.Name)
	}
}

func TestFallbackParserEmptyResultFallsBack(t *testing.T) {
	p := NewFallbackParser(parserFunc(func(context.Context, Upload) (datamodels.ParsedCV, error) {
		return datamodels.ParsedCV{}, nil
	}), FallbackMock, discardLogger())

	out, err := p.Resolve(context.Background(), Upload{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !out.Fallback || !errors.Is(out.Cause, ErrEmptyParse) {
		t.Fatalf("expected empty-parse fallback, got %+v", out)
	}
}

func TestFallbackParserErrorMode(t *testing.T) {
	boom := errors.New("boom")
	p := NewFallbackParser(parserFunc(func(context.Context, Upload) (datamodels.ParsedCV, error) {
		return datamodels.ParsedCV{}, boom
	}), FallbackError, discardLogger())

	if _, err := p.Resolve(context.Background(), Upload{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestFallbackParserCancelledContextIsNotMasked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewFallbackParser(parserFunc(func(ctx context.Context, _ Upload) (datamodels.ParsedCV, error) {
		return datamodels.ParsedCV{}, ctx.Err()
	}), FallbackMock, discardLogger())

	if _, err := p.Resolve(ctx, Upload{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMockCVIsFreshCopy(t *testing.T) {
	a := MockCV()
	a.Skills[0].Name = "changed"
	if MockCV().Skills[0].Name == "changed" {
		t.Fatal("MockCV shares state between calls")
	}
}

func TestRemoteParser(t *testing.T) {
	var gotAuth, gotFile, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/cv/parse" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		f, h, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotFile = h.Filename
		gotType = h.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data": {"personalInfo": {"name": "Grace Hopper", "email": null}, "skills": [{"name": "COBOL"}], "experience": null}}`)
	}))
	defer srv.Close()

	client := backend.NewClient(srv.URL, 5*time.Second, discardLogger())
	p := NewRemoteParser(client, 0, 1, time.Second, discardLogger())
	ctx := backend.WithAuthorization(context.Background(), "Bearer token")

	cv, err := p.Parse(ctx, Upload{FileName: "grace.pdf", MimeType: MimePDF, Data: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("expected forwarded auth header, got %q", gotAuth)
	}
	if gotFile != "grace.pdf" || gotType != MimePDF {
		t.Fatalf("unexpected upload %q %q", gotFile, gotType)
	}
	if cv.PersonalInfo.Name != "Grace Hopper" || len(cv.Skills) != 1 || cv.Skills[0].Name != "COBOL" {
		t.Fatalf("unexpected cv %+v", cv)
	}
}

func TestRemoteParserServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := backend.NewClient(srv.URL, 5*time.Second, discardLogger())
	p := NewRemoteParser(client, 0, 1, time.Second, discardLogger())
	_, err := p.Parse(context.Background(), Upload{FileName: "cv.pdf", MimeType: MimePDF, Data: []byte("x")})
	if backend.StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("expected 502 api error, got %v", err)
	}
}

func TestDecodeParsedCVRejectsBadShape(t *testing.T) {
	_, err := DecodeParsedCV([]byte(`{"skills": "go, rust"}`))
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if !strings.Contains(err.Error(), "skills") {
		t.Fatalf("expected error to mention skills, got %v", err)
	}
}

func TestDecodeParsedCVRequiresSkillName(t *testing.T) {
	if _, err := DecodeParsedCV([]byte(`{"skills": [{"level": "expert"}]}`)); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	if _, err := ExtractText("image/png", []byte("png")); !errors.Is(err, ErrNoExtractor) {
		t.Fatalf("expected ErrNoExtractor, got %v", err)
	}
}

func TestTruncateTextKeepsRunesWhole(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"Zoë Brontë", 3, "Zo"},
		{"Zoë Brontë", 4, "Zoë"},
		{"日本語", 4, "日"},
		{"日本語", 2, ""},
	}
	for _, c := range cases {
		got := truncateText(c.in, c.max)
		if got != c.want {
			t.Errorf("truncateText(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncateText(%q, %d) produced invalid UTF-8", c.in, c.max)
		}
	}
}
