package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JoshPattman/cvwizard/datamodels"
	"github.com/JoshPattman/cvwizard/parse"
	"github.com/JoshPattman/cvwizard/wizard"
	"github.com/caarlos0/env/v11"
	"github.com/gin-gonic/gin"
)

const pdfContent = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"

type recordingCompletion struct {
	mu   sync.Mutex
	reqs []datamodels.ApplyRequest
}

func (r *recordingCompletion) complete(_ context.Context, req datamodels.ApplyRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return nil
}

func testApp(t *testing.T, completion *recordingCompletion) (*App, http.Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager, err := wizard.NewManager(wizard.Config{
		Resolver:         parse.NewFallbackParser(parse.MockParser{}, parse.FallbackMock, logger),
		OnComplete:       completion.complete,
		ApplyDelay:       time.Millisecond,
		ProgressInterval: time.Millisecond,
		Logger:           logger,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	app := &App{
		config: Config{MaxUploadBytes: wizard.DefaultMaxUploadBytes, CORSOrigins: []string{"*"}},
		logger: logger,
		wizard: manager,
	}
	return app, app.router()
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer test")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) wizard.View {
	t.Helper()
	var v wizard.View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v (%s)", err, w.Body.String())
	}
	return v
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v (%s)", err, w.Body.String())
	}
	return body.Error
}

func multipartFile(t *testing.T, name, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func createSession(t *testing.T, h http.Handler) wizard.View {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/v1/wizard/sessions", nil, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d", w.Code)
	}
	v := decodeView(t, w)
	if v.Step != wizard.StepUpload {
		t.Fatalf("new session should start at upload, got %s", v.Step)
	}
	return v
}

func waitForStep(t *testing.T, h http.Handler, id string, step wizard.Step) wizard.View {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		w := do(t, h, http.MethodGet, "/api/v1/wizard/sessions/"+id, nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("get session: status %d", w.Code)
		}
		v := decodeView(t, w)
		if v.Step == step {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never reached %s, stuck at %s", step, v.Step)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	_, h := testApp(t, &recordingCompletion{})
	w := do(t, h, http.MethodGet, "/api/v1/health", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"healthy"`) {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestWizardFlow(t *testing.T) {
	completion := &recordingCompletion{}
	_, h := testApp(t, completion)
	id := createSession(t, h).ID

	body, ct := multipartFile(t, "cv.pdf", "application/pdf", pdfContent)
	w := do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/upload", body, ct)
	if w.Code != http.StatusAccepted {
		t.Fatalf("upload: status %d %s", w.Code, w.Body.String())
	}

	v := waitForStep(t, h, id, wizard.StepReview)
	if v.Review == nil || v.Review.PersonalInfo.Name != "John Doe" || v.Progress != 100 {
		t.Fatalf("unexpected review view %+v", v)
	}
	numSkills := len(v.Review.Skills)

	w = do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/review/skills", nil, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("add skill: status %d %s", w.Code, w.Body.String())
	}
	var added struct {
		Index int `json:"index"`
	}
	json.Unmarshal(w.Body.Bytes(), &added)
	if added.Index != numSkills {
		t.Fatalf("expected new skill at %d, got %d", numSkills, added.Index)
	}

	w = do(t, h, http.MethodPut, fmt.Sprintf("/api/v1/wizard/sessions/%s/review/skills/%d", id, added.Index),
		strings.NewReader(`{"name": "Terraform", "level": "Intermediate"}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("update skill: status %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodDelete, "/api/v1/wizard/sessions/"+id+"/review/skills/0", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("remove skill: status %d %s", w.Code, w.Body.String())
	}
	v = decodeView(t, w)
	if len(v.Review.Skills) != numSkills || v.Review.Skills[numSkills-1].Name != "Terraform" {
		t.Fatalf("unexpected skills after edits %+v", v.Review.Skills)
	}

	w = do(t, h, http.MethodPut, "/api/v1/wizard/sessions/"+id+"/review/personal",
		strings.NewReader(`{"name": "Jane Doe"}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("update personal: status %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/apply", nil, "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("apply: status %d %s", w.Code, w.Body.String())
	}
	v = waitForStep(t, h, id, wizard.StepComplete)
	if v.Applied == nil || v.Applied.Skills != numSkills {
		t.Fatalf("unexpected applied summary %+v", v.Applied)
	}

	completion.mu.Lock()
	defer completion.mu.Unlock()
	if len(completion.reqs) != 1 {
		t.Fatalf("expected one completion, got %d", len(completion.reqs))
	}
	req := completion.reqs[0]
	if req.Original.PersonalInfo.Name != "John Doe" {
		t.Fatalf("completion original should be the parsed data, got %q", req.Original.PersonalInfo.Name)
	}
	if req.Reviewed.PersonalInfo.Name != "Jane Doe" {
		t.Fatalf("completion reviewed data missing edits, got %q", req.Reviewed.PersonalInfo.Name)
	}

	w = do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/upload", nil, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("upload from complete should conflict, got %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/reset", nil, "")
	if w.Code != http.StatusOK || decodeView(t, w).Step != wizard.StepUpload {
		t.Fatalf("reset: status %d %s", w.Code, w.Body.String())
	}
}

func TestUploadRejections(t *testing.T) {
	_, h := testApp(t, &recordingCompletion{})
	id := createSession(t, h).ID

	body, ct := multipartFile(t, "photo.png", "image/png", "not a cv")
	w := do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/upload", body, ct)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported type, got %d %s", w.Code, w.Body.String())
	}
	if msg := decodeError(t, w); !strings.Contains(msg, "Unsupported file type") {
		t.Fatalf("expected unsupported type message, got %q", msg)
	}

	big := pdfContent + strings.Repeat("x", int(wizard.DefaultMaxUploadBytes))
	body, ct = multipartFile(t, "big.pdf", "application/pdf", big)
	w = do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/upload", body, ct)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/upload", strings.NewReader(""), "multipart/form-data; boundary=x")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file, got %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/v1/wizard/sessions/"+id, nil, "")
	if v := decodeView(t, w); v.Step != wizard.StepUpload {
		t.Fatalf("rejected uploads should leave the session in upload, got %s", v.Step)
	}
}

func TestSessionErrors(t *testing.T) {
	_, h := testApp(t, &recordingCompletion{})

	w := do(t, h, http.MethodGet, "/api/v1/wizard/sessions/missing", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	id := createSession(t, h).ID
	w = do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/review/skills", nil, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("editing before review should conflict, got %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/apply", nil, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("apply before review should conflict, got %d", w.Code)
	}

	w = do(t, h, http.MethodDelete, "/api/v1/wizard/sessions/"+id, nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("close: expected 204, got %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/api/v1/wizard/sessions/"+id, nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("closed session should be gone, got %d", w.Code)
	}
}

func TestReviewEditErrors(t *testing.T) {
	_, h := testApp(t, &recordingCompletion{})
	id := createSession(t, h).ID
	body, ct := multipartFile(t, "cv.pdf", "application/pdf", pdfContent)
	do(t, h, http.MethodPost, "/api/v1/wizard/sessions/"+id+"/upload", body, ct)
	waitForStep(t, h, id, wizard.StepReview)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/review/hobbies", "", http.StatusBadRequest},
		{http.MethodDelete, "/review/skills/99", "", http.StatusBadRequest},
		{http.MethodDelete, "/review/skills/abc", "", http.StatusBadRequest},
		{http.MethodPut, "/review/skills/0", "{not json", http.StatusBadRequest},
		{http.MethodPut, "/review/skills", `{"name": "x"}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		w := do(t, h, c.method, "/api/v1/wizard/sessions/"+id+c.path, strings.NewReader(c.body), "application/json")
		if w.Code != c.want {
			t.Errorf("%s %s: expected %d, got %d %s", c.method, c.path, c.want, w.Code, w.Body.String())
		}
	}
}

func TestWizardPages(t *testing.T) {
	_, h := testApp(t, &recordingCompletion{})

	w := do(t, h, http.MethodGet, "/", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Import your CV") {
		t.Fatalf("home page: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/wizard", nil, "")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("start wizard: expected redirect, got %d", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/wizard/") {
		t.Fatalf("unexpected redirect %q", loc)
	}

	w = do(t, h, http.MethodGet, loc, nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Upload your CV") {
		t.Fatalf("upload panel: %d %s", w.Code, w.Body.String())
	}

	body, ct := multipartFile(t, "cv.pdf", "application/pdf", pdfContent)
	w = do(t, h, http.MethodPost, loc+"/upload", body, ct)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != loc {
		t.Fatalf("form upload: %d %q", w.Code, w.Header().Get("Location"))
	}
	waitForStep(t, h, strings.TrimPrefix(loc, "/wizard/"), wizard.StepReview)

	w = do(t, h, http.MethodGet, loc, nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "John Doe") {
		t.Fatalf("review panel: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/wizard/missing", nil, "")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("missing session page should redirect home, got %d", w.Code)
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(env.Options{Prefix: envPrefix, Environment: map[string]string{}})
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Parser != "remote" || cfg.ParseFallback != "mock" ||
		cfg.ApplyDelay != 3*time.Second || cfg.ProgressInterval != 200*time.Millisecond ||
		cfg.MaxUploadBytes != 15*1024*1024 || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	cfg, err = ParseConfig(env.Options{Prefix: envPrefix, Environment: map[string]string{
		"CVWIZARD_PARSER":         "mock",
		"CVWIZARD_PARSE_FALLBACK": "error",
		"CVWIZARD_LOG_LEVEL":      "debug",
		"CVWIZARD_CORS_ORIGINS":   "https://a.example,https://b.example",
		"CVWIZARD_APPLY_DELAY":    "500ms",
	}})
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if cfg.Parser != "mock" || cfg.ParseFallback != "error" || cfg.LogLevel != slog.LevelDebug ||
		len(cfg.CORSOrigins) != 2 || cfg.ApplyDelay != 500*time.Millisecond {
		t.Fatalf("unexpected overrides %+v", cfg)
	}

	for _, bad := range []map[string]string{
		{"CVWIZARD_PARSER": "magic"},
		{"CVWIZARD_PARSER": "llm"},
		{"CVWIZARD_PARSE_FALLBACK": "retry"},
	} {
		if _, err := ParseConfig(env.Options{Prefix: envPrefix, Environment: bad}); err == nil {
			t.Errorf("expected error for %v", bad)
		}
	}
}
