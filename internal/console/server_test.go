package console

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joelkehle/triage-console/internal/anatomy"
	"github.com/joelkehle/triage-console/internal/triageclient"
)

// fakeCareServer mimics the analysis service endpoints used by the console.
func fakeCareServer(t *testing.T, analyzeStatus int, roadmapCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/analyze":
			if analyzeStatus != http.StatusOK {
				w.WriteHeader(analyzeStatus)
				_, _ = io.WriteString(w, `{"error":"boom"}`)
				return
			}
			_, _ = io.WriteString(w, `{"patient_id": 17, "results": [
				{"name":"Migraine","probability":72,"explanation":"Throbbing headache.","suggested_tests":["MRI (to rule out others)","Neurological Exam"]}
			]}`)
		case "/api/roadmap":
			if roadmapCalls != nil {
				roadmapCalls.Add(1)
			}
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["patient_id"] != "17" {
				t.Errorf("expected patient_id \"17\" as string, got %#v", req["patient_id"])
			}
			_, _ = io.WriteString(w, `{"roadmap":{"medication":["Triptans"]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

type fakePDFRenderer struct {
	title    string
	markdown string
	err      error
}

func (f *fakePDFRenderer) Render(ctx context.Context, title, markdown string) ([]byte, error) {
	f.title = title
	f.markdown = markdown
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

type testConsole struct {
	handler http.Handler
	pages   *PageStore
	pdf     *fakePDFRenderer
	metrics *Metrics
}

func setupConsole(t *testing.T, analyzeStatus int, roadmapCalls *atomic.Int32) *testConsole {
	t.Helper()
	care := fakeCareServer(t, analyzeStatus, roadmapCalls)
	t.Cleanup(care.Close)

	metrics := NewMetrics()
	backend := InstrumentBackend(triageclient.NewClient(care.URL), metrics)
	pages := NewPageStore(backend, metrics)
	pdf := &fakePDFRenderer{}
	return &testConsole{
		handler: newServer(pages, metrics, pdf),
		pages:   pages,
		pdf:     pdf,
		metrics: metrics,
	}
}

func (c *testConsole) do(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	return rr
}

func (c *testConsole) newPage(t *testing.T) string {
	t.Helper()
	rr := c.do(t, http.MethodGet, "/", nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	loc := rr.Header().Get("Location")
	if !strings.HasPrefix(loc, "/page/") {
		t.Fatalf("unexpected redirect %q", loc)
	}
	return strings.TrimPrefix(loc, "/page/")
}

func (c *testConsole) state(t *testing.T, token string) PageState {
	t.Helper()
	rr := c.do(t, http.MethodGet, "/page/"+token+"/state", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("state: %d %s", rr.Code, rr.Body.String())
	}
	var st PageState
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func janeForm() url.Values {
	return url.Values{
		"name":     {"Jane"},
		"age":      {"30"},
		"sex":      {"Female"},
		"symptoms": {"severe headache, vision loss"},
	}
}

func TestNewPageStartsEmpty(t *testing.T) {
	c := setupConsole(t, http.StatusOK, nil)
	token := c.newPage(t)

	rr := c.do(t, http.MethodGet, "/page/"+token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"0 Symptoms", "--", string(anatomy.Neutral), "Analyze Symptoms"} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if strings.Contains(body, `id="roadmap-view"`) {
		t.Fatal("no roadmap should be rendered yet")
	}
	if c.pages.Len() != 1 {
		t.Fatalf("expected 1 page, got %d", c.pages.Len())
	}
}

func TestAnalyzeSelectBackFlow(t *testing.T) {
	c := setupConsole(t, http.StatusOK, nil)
	token := c.newPage(t)

	rr := c.do(t, http.MethodPost, "/page/"+token+"/analyze", janeForm())
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("analyze: expected 303, got %d", rr.Code)
	}

	st := c.state(t, token)
	if !st.HasPatient || st.View != "analysis" {
		t.Fatalf("unexpected state after analyze %+v", st)
	}
	if st.Results == nil || len(st.Results.Cards) != 1 || st.Results.Cards[0].Badge != "72% Probable" {
		t.Fatalf("unexpected results %+v", st.Results)
	}
	if st.Anatomy.Head != anatomy.Critical || st.SidePanel.Confidence != "Moderate" {
		t.Fatalf("unexpected side views %+v %+v", st.Anatomy, st.SidePanel)
	}

	page := c.do(t, http.MethodGet, "/page/"+token, nil).Body.String()
	for _, want := range []string{"72% Probable", "opacity: 0.86", "2 Symptoms", "MRI (to rule out others), Neurological Exam", `value="Migraine"`} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}

	// The name is edited before selecting; the summary reflects the edit.
	form := janeForm()
	form.Set("name", "Janet")
	form.Set("condition", "Migraine")
	if rr := c.do(t, http.MethodPost, "/page/"+token+"/select", form); rr.Code != http.StatusSeeOther {
		t.Fatalf("select: expected 303, got %d", rr.Code)
	}
	st = c.state(t, token)
	if st.View != "roadmap" || !st.ScrollTop {
		t.Fatalf("expected roadmap view scrolled to top, got %+v", st)
	}
	if st.Roadmap == nil || st.Roadmap.Summary != "Janet, 30y" || st.Roadmap.Disease != "Migraine" {
		t.Fatalf("unexpected roadmap %+v", st.Roadmap)
	}
	if !st.Roadmap.Lifestyle.Placeholder || !st.Roadmap.Monitoring.Placeholder {
		t.Fatalf("absent categories should be placeholders, got %+v", st.Roadmap)
	}

	md := c.do(t, http.MethodGet, "/page/"+token+"/roadmap.md", nil)
	if md.Code != http.StatusOK || !strings.Contains(md.Body.String(), "- Triptans") || !strings.Contains(md.Body.String(), "_No specific data available._") {
		t.Fatalf("unexpected markdown %d %s", md.Code, md.Body.String())
	}
	pdf := c.do(t, http.MethodGet, "/page/"+token+"/roadmap.pdf", nil)
	if pdf.Code != http.StatusOK || pdf.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected pdf response %d", pdf.Code)
	}
	if c.pdf.title != "Care Roadmap: Migraine" || !strings.Contains(c.pdf.markdown, "Janet, 30y") {
		t.Fatalf("unexpected pdf input %q %q", c.pdf.title, c.pdf.markdown)
	}

	if rr := c.do(t, http.MethodPost, "/page/"+token+"/back", url.Values{}); rr.Code != http.StatusSeeOther {
		t.Fatalf("back: expected 303, got %d", rr.Code)
	}
	st = c.state(t, token)
	if st.View != "analysis" || st.Results == nil || st.Roadmap == nil {
		t.Fatalf("back should keep rendered content, got %+v", st)
	}
}

func TestAnalyzeScrollsResultsIntoViewOnce(t *testing.T) {
	c := setupConsole(t, http.StatusOK, nil)
	token := c.newPage(t)

	rr := c.do(t, http.MethodPost, "/page/"+token+"/analyze", janeForm())
	if loc := rr.Header().Get("Location"); loc != "/page/"+token+"#results-area" {
		t.Fatalf("unexpected redirect %q", loc)
	}

	page := c.do(t, http.MethodGet, "/page/"+token, nil).Body.String()
	for _, want := range []string{
		`<html lang="en" class="smooth-scroll">`,
		`data-scroll-into-view="true"`,
		`data-smooth="true"`,
		"results.scrollIntoView(",
		"button.disabled = true",
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}

	again := c.do(t, http.MethodGet, "/page/"+token, nil).Body.String()
	if !strings.Contains(again, `data-scroll-into-view="false"`) {
		t.Fatal("a reload should not scroll the results area again")
	}
}

func TestSelectRejectsMalformedForm(t *testing.T) {
	c := setupConsole(t, http.StatusOK, nil)
	token := c.newPage(t)

	req := httptest.NewRequest(http.MethodPost, "/page/"+token+"/select", strings.NewReader("condition=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "invalid form") {
		t.Fatalf("expected the parse error to be reported, got %s", rr.Body.String())
	}
}

func TestAnalyzeFailureShowsNotice(t *testing.T) {
	c := setupConsole(t, http.StatusInternalServerError, nil)
	token := c.newPage(t)

	rr := c.do(t, http.MethodPost, "/page/"+token+"/analyze", janeForm())
	if loc := rr.Header().Get("Location"); loc != "/page/"+token {
		t.Fatalf("failed analysis should not target the results area, got %q", loc)
	}
	st := c.state(t, token)
	if st.HasPatient || st.Results != nil {
		t.Fatalf("failed analysis must not change state, got %+v", st)
	}
	if st.Notice == nil || st.Notice.Severity != "error" || st.Notice.Message != "An error occurred during analysis." {
		t.Fatalf("expected error notice, got %+v", st.Notice)
	}
	if st.Busy {
		t.Fatal("busy must be cleared after failure")
	}

	page := c.do(t, http.MethodGet, "/page/"+token, nil).Body.String()
	if !strings.Contains(page, "An error occurred during analysis.") {
		t.Fatal("page should show the notice once")
	}
	if strings.Contains(page, "smooth-scroll") || strings.Contains(page, `id="results-area"`) {
		t.Fatal("no results area should be rendered or scrolled to")
	}
	if st := c.state(t, token); st.Notice != nil {
		t.Fatalf("notice should be cleared after render, got %+v", st.Notice)
	}
}

func TestSelectWithoutPatientIsIgnored(t *testing.T) {
	var calls atomic.Int32
	c := setupConsole(t, http.StatusOK, &calls)
	token := c.newPage(t)

	rr := c.do(t, http.MethodPost, "/page/"+token+"/select", url.Values{"condition": {"Migraine"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if calls.Load() != 0 {
		t.Fatal("no roadmap request without a patient")
	}
	if st := c.state(t, token); st.View != "analysis" || st.Notice != nil {
		t.Fatalf("unexpected state %+v", st)
	}

	if rr := c.do(t, http.MethodPost, "/page/"+token+"/select", url.Values{}); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing condition: expected 400, got %d", rr.Code)
	}
}

func TestUnknownPage(t *testing.T) {
	c := setupConsole(t, http.StatusOK, nil)
	if rr := c.do(t, http.MethodGet, "/page/nope", nil); rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect to a fresh page, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if rr := c.do(t, http.MethodPost, "/page/nope/analyze", janeForm()); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	token := c.newPage(t)
	if rr := c.do(t, http.MethodGet, "/page/"+token+"/roadmap.md", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a roadmap, got %d", rr.Code)
	}
}

func TestRoadmapPDFRenderFailure(t *testing.T) {
	c := setupConsole(t, http.StatusOK, nil)
	c.pdf.err = errors.New("no chromium")
	token := c.newPage(t)
	c.do(t, http.MethodPost, "/page/"+token+"/analyze", janeForm())
	c.do(t, http.MethodPost, "/page/"+token+"/select", url.Values{"condition": {"Migraine"}})

	if rr := c.do(t, http.MethodGet, "/page/"+token+"/roadmap.pdf", nil); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestSweepDropsIdlePages(t *testing.T) {
	c := setupConsole(t, http.StatusOK, nil)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	c.pages.clock = func() time.Time { return now }

	stale := c.newPage(t)
	now = now.Add(20 * time.Minute)
	fresh := c.newPage(t)
	now = now.Add(5 * time.Minute)

	if removed := c.pages.Sweep(15 * time.Minute); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if c.pages.Get(stale) != nil || c.pages.Get(fresh) == nil {
		t.Fatal("only the idle page should be dropped")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	c := setupConsole(t, http.StatusOK, nil)
	token := c.newPage(t)
	c.do(t, http.MethodPost, "/page/"+token+"/analyze", janeForm())

	if rr := c.do(t, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"pages":1`) {
		t.Fatalf("unexpected health %d %s", rr.Code, rr.Body.String())
	}
	rr := c.do(t, http.MethodGet, "/metrics", nil)
	body := rr.Body.String()
	for _, want := range []string{
		`triage_console_backend_requests_total{op="analyze",outcome="ok"} 1`,
		`triage_console_active_pages 1`,
		`route="POST /page/{token}/analyze"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q\n%s", want, body)
		}
	}
}
