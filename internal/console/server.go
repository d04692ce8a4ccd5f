// Package console serves the symptom-triage console. Each page load gets its
// own triage session; the page's forms drive the session controller and the
// HTML is re-rendered from the views the controller last pushed.
package console

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joelkehle/triage-console/internal/triage"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"opacity": func(f float64) string { return fmt.Sprintf("%.2f", f) },
}).ParseFS(templateFiles, "templates/page.html"))

type Server struct {
	pages       *PageStore
	metrics     *Metrics
	pdfRenderer ReportPDFRenderer
}

func NewServer(pages *PageStore, metrics *Metrics) http.Handler {
	return newServer(pages, metrics, NewChromiumPDFRenderer(""))
}

func newServer(pages *PageStore, metrics *Metrics, pdfRenderer ReportPDFRenderer) http.Handler {
	s := &Server{
		pages:       pages,
		metrics:     metrics,
		pdfRenderer: pdfRenderer,
	}

	static, _ := fs.Sub(staticFiles, "static")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleNewPage)
	mux.HandleFunc("GET /page/{token}", s.handlePage)
	mux.HandleFunc("GET /page/{token}/state", s.handleState)
	mux.HandleFunc("POST /page/{token}/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /page/{token}/select", s.handleSelect)
	mux.HandleFunc("POST /page/{token}/back", s.handleBack)
	mux.HandleFunc("GET /page/{token}/roadmap.md", s.handleRoadmapMarkdown)
	mux.HandleFunc("GET /page/{token}/roadmap.pdf", s.handleRoadmapPDF)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	return metrics.Middleware(mux)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func pageURL(token string) string {
	return "/page/" + token
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pages": s.pages.Len()})
}

// A fresh load is a fresh session; there is no resumption across loads.
func (s *Server) handleNewPage(w http.ResponseWriter, r *http.Request) {
	p := s.pages.Create()
	http.Redirect(w, r, pageURL(p.Token), http.StatusSeeOther)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *Page {
	p := s.pages.Get(r.PathValue("token"))
	if p == nil {
		writeError(w, http.StatusNotFound, "page not found")
	}
	return p
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p := s.pages.Get(r.PathValue("token"))
	if p == nil {
		// Expired or unknown pages start over.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	// Prevent a cached page from showing a stale session.
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	st := p.Snapshot()
	if err := pageTemplate.Execute(w, st); err != nil {
		log.Printf("render page token=%s err=%v", p.Token, err)
		return
	}
	p.display.consumeOneShot()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	p := s.lookup(w, r)
	if p == nil {
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

func readForm(r *http.Request) triage.PatientInput {
	return triage.PatientInput{
		Name:        r.PostFormValue("name"),
		Age:         r.PostFormValue("age"),
		Sex:         r.PostFormValue("sex"),
		SymptomsRaw: r.PostFormValue("symptoms"),
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	p := s.lookup(w, r)
	if p == nil {
		return
	}
	in := readForm(r)
	p.form.set(in)
	if err := p.Controller.SubmitAnalysis(r.Context(), in); err != nil {
		logActionError(p, triage.OpAnalyze, err)
	}
	target := pageURL(p.Token)
	// The fragment is the fallback when the page script does not run.
	if st := p.Snapshot(); st.Results != nil && st.Results.ScrollIntoView {
		target += "#results-area"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleSelect receives the whole patient form (the card buttons submit it via
// formaction), so the roadmap summary sees whatever the fields hold now.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	p := s.lookup(w, r)
	if p == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}
	if _, ok := r.PostForm["name"]; ok {
		p.form.set(readForm(r))
	}
	condition := strings.TrimSpace(r.PostFormValue("condition"))
	if condition == "" {
		writeError(w, http.StatusBadRequest, "condition is required")
		return
	}
	if err := p.Dispatcher.Select(r.Context(), triage.SelectAction{Condition: condition}); err != nil {
		logActionError(p, triage.OpRoadmap, err)
	}
	http.Redirect(w, r, pageURL(p.Token), http.StatusSeeOther)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	p := s.lookup(w, r)
	if p == nil {
		return
	}
	p.Controller.GoBack()
	http.Redirect(w, r, pageURL(p.Token), http.StatusSeeOther)
}

func logActionError(p *Page, op string, err error) {
	if errors.Is(err, triage.ErrSuperseded) {
		log.Printf("page action superseded token=%s op=%s", p.Token, op)
		return
	}
	log.Printf("page action failed token=%s op=%s err=%v", p.Token, op, err)
}

func (s *Server) currentRoadmap(w http.ResponseWriter, r *http.Request) (*Page, *triage.RoadmapView) {
	p := s.lookup(w, r)
	if p == nil {
		return nil, nil
	}
	st := p.Snapshot()
	if st.Roadmap == nil {
		writeError(w, http.StatusNotFound, "no roadmap loaded")
		return nil, nil
	}
	return p, st.Roadmap
}

func (s *Server) handleRoadmapMarkdown(w http.ResponseWriter, r *http.Request) {
	_, rm := s.currentRoadmap(w, r)
	if rm == nil {
		return
	}
	filename := fmt.Sprintf("roadmap-%s.md", sanitizeFilename(rm.Disease))
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(RoadmapMarkdown(*rm)))
}

func (s *Server) handleRoadmapPDF(w http.ResponseWriter, r *http.Request) {
	if s.pdfRenderer == nil {
		writeError(w, http.StatusServiceUnavailable, "pdf renderer unavailable")
		return
	}
	p, rm := s.currentRoadmap(w, r)
	if rm == nil {
		return
	}
	pdf, err := s.pdfRenderer.Render(r.Context(), "Care Roadmap: "+rm.Disease, RoadmapMarkdown(*rm))
	if err != nil {
		log.Printf("render roadmap pdf failed token=%s disease=%q err=%v", p.Token, rm.Disease, err)
		writeError(w, http.StatusInternalServerError, "failed to render pdf")
		return
	}
	filename := fmt.Sprintf("roadmap-%s.pdf", sanitizeFilename(rm.Disease))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func sanitizeFilename(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "roadmap"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, v)
}
