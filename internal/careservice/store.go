package careservice

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/joelkehle/triage-console/internal/triage"
)

type Patient struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Sex       string    `json:"sex"`
	CreatedAt time.Time `json:"created_at"`
}

type Visit struct {
	ID            int64                   `json:"id"`
	PatientID     int64                   `json:"patient_id"`
	Symptoms      []string                `json:"symptoms"`
	Results       []triage.AnalysisResult `json:"results"`
	LockedDisease string                  `json:"locked_disease,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

// Store keeps patients and their visit log. Implementations must be safe for
// concurrent use.
type Store interface {
	// FindOrCreatePatient looks a patient up by name and creates one on first
	// sight. Details of an existing patient are left as they are.
	FindOrCreatePatient(ctx context.Context, name string, age int, sex string) (Patient, error)
	RecordVisit(ctx context.Context, patientID int64, symptoms []string, results []triage.AnalysisResult) (Visit, error)
	// LockLatestVisit stamps disease onto the patient's most recent visit and
	// reports whether there was one.
	LockLatestVisit(ctx context.Context, patientID int64, disease string) (bool, error)
	Visits(ctx context.Context, patientID int64) ([]Visit, error)
	Close() error
}

type MemoryStore struct {
	mu        sync.Mutex
	patients  []Patient
	visits    []Visit
	nextVisit int64
	clock     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clock: time.Now}
}

func (s *MemoryStore) FindOrCreatePatient(_ context.Context, name string, age int, sex string) (Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.patients {
		if p.Name == name {
			return p, nil
		}
	}
	p := Patient{
		ID:        int64(len(s.patients) + 1),
		Name:      name,
		Age:       age,
		Sex:       sex,
		CreatedAt: s.clock().UTC(),
	}
	s.patients = append(s.patients, p)
	return p, nil
}

func (s *MemoryStore) RecordVisit(_ context.Context, patientID int64, symptoms []string, results []triage.AnalysisResult) (Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextVisit++
	v := Visit{
		ID:        s.nextVisit,
		PatientID: patientID,
		Symptoms:  slices.Clone(symptoms),
		Results:   slices.Clone(results),
		CreatedAt: s.clock().UTC(),
	}
	s.visits = append(s.visits, v)
	return v, nil
}

func (s *MemoryStore) LockLatestVisit(_ context.Context, patientID int64, disease string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.visits) - 1; i >= 0; i-- {
		if s.visits[i].PatientID == patientID {
			s.visits[i].LockedDisease = disease
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Visits(_ context.Context, patientID int64) ([]Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Visit{}
	for _, v := range s.visits {
		if v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
