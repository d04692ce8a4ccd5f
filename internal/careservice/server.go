package careservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/triage-console/internal/triage"
)

const maxBodyBytes = 1 << 20

type Server struct {
	store Store
}

type analyzeRequest struct {
	Name     string   `json:"name"`
	Age      age      `json:"age"`
	Sex      string   `json:"sex"`
	Symptoms []string `json:"symptoms"`
}

type analyzeResponse struct {
	PatientID string                  `json:"patient_id"`
	Results   []triage.AnalysisResult `json:"results"`
}

// age accepts a JSON number, a numeric string, an empty string or null.
type age int

func (a *age) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	raw := string(b)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*a = 0
			return nil
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("age must be an integer, got %s", raw)
	}
	*a = age(n)
	return nil
}

func NewServer(store Store) http.Handler {
	s := &Server{store: store}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(traceRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/roadmap", s.handleRoadmap)
		r.Get("/patients/{id}/visits", s.handleVisits)
	})
	return r
}

func traceRequests(next http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/joelkehle/triage-console/internal/careservice")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		span.SetAttributes(attribute.String("http.request.method", r.Method))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if req.Symptoms == nil {
		req.Symptoms = []string{}
	}

	patient, err := s.store.FindOrCreatePatient(r.Context(), req.Name, int(req.Age), req.Sex)
	if err != nil {
		log.Printf("find patient name=%q: %v", req.Name, err)
		writeError(w, http.StatusInternalServerError, "failed to load patient")
		return
	}

	results := Rank(req.Symptoms, int(req.Age), req.Sex)
	if _, err := s.store.RecordVisit(r.Context(), patient.ID, req.Symptoms, results); err != nil {
		log.Printf("record visit patient=%d: %v", patient.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to record visit")
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		PatientID: strconv.FormatInt(patient.ID, 10),
		Results:   results,
	})
}

func (s *Server) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	var req triage.RoadmapRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	if req.PatientID != "" {
		if id, err := strconv.ParseInt(string(req.PatientID), 10, 64); err == nil {
			if _, err := s.store.LockLatestVisit(r.Context(), id, req.Disease); err != nil {
				log.Printf("lock visit patient=%d disease=%q: %v", id, req.Disease, err)
				writeError(w, http.StatusInternalServerError, "failed to update visit")
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"roadmap": roadmapPayload(RoadmapFor(req.Disease))})
}

func (s *Server) handleVisits(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "patient id must be an integer")
		return
	}
	visits, err := s.store.Visits(r.Context(), id)
	if err != nil {
		log.Printf("list visits patient=%d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to list visits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": visits})
}

// roadmapPayload omits categories the roadmap has no data for, so an unknown
// disease answers with an empty object.
func roadmapPayload(rm triage.Roadmap) map[string][]string {
	out := map[string][]string{}
	add := func(key string, items []string) {
		if items != nil {
			out[key] = items
		}
	}
	add("medication", rm.Medication)
	add("lifestyle", rm.Lifestyle)
	add("diet", rm.Diet)
	add("monitoring", rm.Monitoring)
	return out
}
