package web

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/nihss/internal/config"
	"github.com/hpungsan/nihss/internal/history"
	"github.com/hpungsan/nihss/internal/kv"
	"github.com/hpungsan/nihss/internal/scale"
)

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	return setupTestWithStorage(t, kv.NewMemory(nil))
}

func setupTestWithStorage(t *testing.T, storage kv.Storage) *Handlers {
	t.Helper()

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}

	return &Handlers{
		store:    history.New(storage),
		cfg:      config.DefaultConfig(),
		renderer: NewRenderer(templateSub, "test", zerolog.Nop()),
		log:      zerolog.Nop(),
		now:      func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.Local) },
	}
}

// seedAssessment saves an assessment and returns it.
func seedAssessment(t *testing.T, h *Handlers, raw map[string]int, notes string) scale.Assessment {
	t.Helper()
	sel, err := scale.NewSelections(raw)
	if err != nil {
		t.Fatalf("NewSelections: %v", err)
	}
	a, err := scale.NewAssessment(sel, notes, h.now())
	if err != nil {
		t.Fatalf("NewAssessment: %v", err)
	}
	if err := h.store.Save(a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return a
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest("POST", target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// --- HandleList ---

func TestHandleList_Default(t *testing.T) {
	h := setupTest(t)
	seedAssessment(t, h, map[string]int{"loc": 1, "gaze": 2}, "")

	req := httptest.NewRequest("GET", "/assessments", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"History", "1 saved", "Mild (1-4)", "Mar 9, 2024", "12:00 PM", "severity-mild"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestHandleList_Empty(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/assessments", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No saved assessments") {
		t.Error("expected empty-state message")
	}
}

func TestHandleList_SeverityFilter(t *testing.T) {
	h := setupTest(t)
	seedAssessment(t, h, map[string]int{"loc": 1}, "mild one")
	seedAssessment(t, h, map[string]int{"motorArmLeft": 4, "motorArmRight": 4, "motorLegLeft": 4, "motorLegRight": 4}, "severe one")

	req := httptest.NewRequest("GET", "/assessments?severity=severe", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	var resp struct {
		Assessments []scale.Assessment `json:"assessments"`
		Summary     history.Summary    `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Assessments) != 1 || resp.Assessments[0].Notes != "severe one" {
		t.Errorf("filtered = %+v, want the severe assessment only", resp.Assessments)
	}
	if resp.Summary.Count != 2 {
		t.Errorf("summary count = %d, want 2 (unfiltered)", resp.Summary.Count)
	}
}

func TestHandleList_InvalidSeverity(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/assessments?severity=critical", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleList_CorruptHistoryShowsWarning(t *testing.T) {
	h := setupTestWithStorage(t, kv.NewMemory(map[string]string{history.AssessmentsKey: "not json"}))

	req := httptest.NewRequest("GET", "/assessments", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "could not be read") {
		t.Error("expected recovery warning")
	}
}

func TestHandleList_HtmxReturnsContentOnly(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/assessments", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("HTMX response should not include layout")
	}
	if !strings.Contains(body, "History") {
		t.Error("HTMX response should include content")
	}
}

// --- HandleNew / HandleScore ---

func TestHandleNew_RendersAllItems(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/assessments/new", nil)
	rec := httptest.NewRecorder()
	h.HandleNew(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, it := range scale.Items() {
		if !strings.Contains(body, `name="`+it.ID+`"`) {
			t.Errorf("missing inputs for item %q", it.ID)
		}
	}
	if !strings.Contains(body, "0 of 15 items scored") {
		t.Error("expected empty score panel")
	}
}

func TestHandleScore_Fragment(t *testing.T) {
	h := setupTest(t)

	req := postForm("/assessments/score", url.Values{"loc": {"3"}, "gaze": {"2"}})
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleScore(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("score panel should be a fragment")
	}
	if !strings.Contains(body, `<span class="total">5</span>`) {
		t.Errorf("expected total 5, got: %s", body)
	}
	if !strings.Contains(body, "Moderate (5-15)") {
		t.Error("expected moderate label")
	}
	if len(h.store.List().Assessments) != 0 {
		t.Error("scoring must not save")
	}
}

func TestHandleScore_InvalidValue(t *testing.T) {
	h := setupTest(t)

	for _, v := range []string{"9", "abc"} {
		req := postForm("/assessments/score", url.Values{"gaze": {v}})
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		h.HandleScore(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("gaze=%s: status = %d, want 400", v, rec.Code)
		}
	}
}

func TestHandleScore_JSONMissingIsEmptyArray(t *testing.T) {
	h := setupTest(t)

	values := url.Values{}
	for _, id := range scale.ItemIDs() {
		values.Set(id, "0")
	}
	req := postForm("/assessments/score", values)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleScore(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"missing":[]`) {
		t.Errorf("expected empty missing array, got: %s", rec.Body.String())
	}
}

// --- HandleCreate ---

func TestHandleCreate_RedirectsToDetail(t *testing.T) {
	h := setupTest(t)

	req := postForm("/assessments", url.Values{"loc": {"1"}, "motorArmLeft": {"2"}, "notes": {"  drift  "}})
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	list := h.store.List().Assessments
	if len(list) != 1 {
		t.Fatalf("saved = %d, want 1", len(list))
	}
	a := list[0]
	if rec.Header().Get("Location") != "/assessments/"+a.ID {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}
	if a.TotalScore != 3 || a.Severity != scale.SeverityMild || a.Notes != "drift" {
		t.Errorf("saved = %+v", a)
	}
}

func TestHandleCreate_JSON(t *testing.T) {
	h := setupTest(t)

	req := postForm("/assessments", url.Values{"language": {"3"}})
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var a scale.Assessment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.TotalScore != 3 || a.Items["language"] != 3 {
		t.Errorf("response = %+v", a)
	}
	if a.Notes != "" {
		t.Errorf("blank notes should be empty, got %q", a.Notes)
	}
}

func TestHandleCreate_Htmx(t *testing.T) {
	h := setupTest(t)

	req := postForm("/assessments", url.Values{})
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("HX-Redirect"), "/assessments/") {
		t.Errorf("HX-Redirect = %q", rec.Header().Get("HX-Redirect"))
	}
}

func TestHandleCreate_RequireComplete(t *testing.T) {
	h := setupTest(t)
	h.cfg.RequireComplete = true

	req := postForm("/assessments", url.Values{"loc": {"1"}, "notes": {"keep me"}})
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "14 item(s) not scored") {
		t.Error("expected missing-items message")
	}
	if !strings.Contains(body, "keep me") {
		t.Error("form should keep entered notes")
	}
	if len(h.store.List().Assessments) != 0 {
		t.Error("incomplete assessment should not be saved")
	}

	// JSON clients get the coded error
	req = postForm("/assessments", url.Values{"loc": {"1"}})
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	h.HandleCreate(rec, req)
	if !strings.Contains(rec.Body.String(), `"INCOMPLETE"`) {
		t.Errorf("expected INCOMPLETE code, got: %s", rec.Body.String())
	}

	// Forced save goes through
	req = postForm("/assessments", url.Values{"loc": {"1"}, "force": {"true"}})
	rec = httptest.NewRecorder()
	h.HandleCreate(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("forced save status = %d, want 303", rec.Code)
	}
}

// --- HandleDetail ---

func TestHandleDetail_Found(t *testing.T) {
	h := setupTest(t)
	a := seedAssessment(t, h, map[string]int{"loc": 1}, "**aphasia** noted")

	req := httptest.NewRequest("GET", "/assessments/"+a.ID, nil)
	req.SetPathValue("id", a.ID)
	rec := httptest.NewRecorder()
	h.HandleDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>aphasia</strong>") {
		t.Error("expected markdown-rendered notes")
	}
	if !strings.Contains(body, "Not scored") {
		t.Error("expected unscored rows in breakdown")
	}
	if !strings.Contains(body, "Partial assessment") {
		t.Error("expected partial marker")
	}
}

func TestHandleDetail_NotesHTMLEscaped(t *testing.T) {
	h := setupTest(t)
	a := seedAssessment(t, h, nil, "<script>alert(1)</script>")

	req := httptest.NewRequest("GET", "/assessments/"+a.ID, nil)
	req.SetPathValue("id", a.ID)
	rec := httptest.NewRecorder()
	h.HandleDetail(rec, req)

	if strings.Contains(rec.Body.String(), "<script>alert(1)</script>") {
		t.Error("raw HTML in notes must not be rendered")
	}
}

func TestHandleDetail_NotFound(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/assessments/nope", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.HandleDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// --- HandleDelete ---

func TestHandleDelete_JSONRequest(t *testing.T) {
	h := setupTest(t)
	a := seedAssessment(t, h, nil, "")

	for _, want := range []bool{true, false} {
		req := httptest.NewRequest("DELETE", "/assessments/"+a.ID, nil)
		req.SetPathValue("id", a.ID)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		h.HandleDelete(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp["deleted"] != want {
			t.Errorf("deleted = %v, want %v", resp["deleted"], want)
		}
	}
}

func TestHandleDelete_HtmxRequest(t *testing.T) {
	h := setupTest(t)
	a := seedAssessment(t, h, nil, "")

	req := httptest.NewRequest("DELETE", "/assessments/"+a.ID, nil)
	req.SetPathValue("id", a.ID)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleDelete(rec, req)

	if rec.Header().Get("HX-Redirect") != "/assessments" {
		t.Errorf("HX-Redirect = %q, want /assessments", rec.Header().Get("HX-Redirect"))
	}
	if len(h.store.List().Assessments) != 0 {
		t.Error("assessment should be deleted")
	}
}

// --- HandleClear / HandleExport ---

func TestHandleClear(t *testing.T) {
	h := setupTest(t)
	seedAssessment(t, h, nil, "")
	seedAssessment(t, h, nil, "")

	req := postForm("/assessments/clear", url.Values{})
	rec := httptest.NewRecorder()
	h.HandleClear(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing confirm: status = %d, want 400", rec.Code)
	}

	req = postForm("/assessments/clear", url.Values{"confirm": {"true"}})
	rec = httptest.NewRecorder()
	h.HandleClear(rec, req)
	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}
	if len(h.store.List().Assessments) != 0 {
		t.Error("history should be empty")
	}
}

func TestHandleExport(t *testing.T) {
	h := setupTest(t)
	a := seedAssessment(t, h, map[string]int{"loc": 2}, "")

	req := httptest.NewRequest("GET", "/assessments/export", nil)
	rec := httptest.NewRecorder()
	h.HandleExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "nihss-assessments-2024-03-09.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	var records []scale.Assessment
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(records) != 1 || records[0].ID != a.ID {
		t.Errorf("export = %+v", records)
	}
}

// --- Routing and rendering ---

func TestRoutes(t *testing.T) {
	h := setupTest(t)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		t.Fatalf("static sub-FS: %v", err)
	}
	srv := httptest.NewServer(securityHeaders(routes(h, staticSub)))
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp, err := client.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/assessments" {
		t.Errorf("GET / = %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}

	for _, path := range []string{"/assessments", "/assessments/new", "/assessments/export", "/static/style.css", "/static/app.js"} {
		resp, err := client.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestErrorRendering_JSONError(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/assessments/missing", nil)
	req.SetPathValue("id", "missing")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleDetail(rec, req)

	var resp map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["error"]["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", resp["error"]["code"])
	}
}

func TestErrorRendering_HtmxFragment(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/assessments/missing", nil)
	req.SetPathValue("id", "missing")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleDetail(rec, req)

	if !strings.HasPrefix(rec.Body.String(), `<div class="error-message">`) {
		t.Errorf("expected error fragment, got: %s", rec.Body.String())
	}
}

func TestFormatDateAndClock(t *testing.T) {
	ms := time.Date(2024, 3, 9, 15, 4, 0, 0, time.Local).UnixMilli()
	if got := formatDate(ms); got != "Mar 9, 2024" {
		t.Errorf("formatDate = %q", got)
	}
	if got := formatClock(ms); got != "03:04 PM" {
		t.Errorf("formatClock = %q", got)
	}
}
