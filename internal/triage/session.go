package triage

import "sync"

// View is the visible screen of a page.
type View int

const (
	ViewAnalysis View = iota
	ViewRoadmap
)

func (v View) String() string {
	switch v {
	case ViewAnalysis:
		return "analysis"
	case ViewRoadmap:
		return "roadmap"
	default:
		return "unknown"
	}
}

// Event drives the view state machine.
type Event int

const (
	// EventRoadmapLoaded fires after a roadmap was received and rendered.
	EventRoadmapLoaded Event = iota
	// EventBack fires when the user leaves the roadmap.
	EventBack
)

// Transition is the outcome of feeding an event to a view.
type Transition struct {
	From      View
	To        View
	ScrollTop bool
}

// Next returns the view reached from v on e. Back is unconditional, so it is
// accepted from either state.
func (v View) Next(e Event) (Transition, bool) {
	switch e {
	case EventRoadmapLoaded:
		if v == ViewAnalysis || v == ViewRoadmap {
			return Transition{From: v, To: ViewRoadmap, ScrollTop: true}, true
		}
	case EventBack:
		if v == ViewAnalysis || v == ViewRoadmap {
			return Transition{From: v, To: ViewAnalysis}, true
		}
	}
	return Transition{From: v, To: v}, false
}

// Session is the single mutable record of one page: the active patient and the
// visible view. It is owned by one Controller.
type Session struct {
	mu        sync.RWMutex
	patientID Identifier
	view      View
}

// NewSession returns a session with no patient on the analysis view.
func NewSession() *Session {
	return &Session{view: ViewAnalysis}
}

func (s *Session) PatientID() Identifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.patientID
}

func (s *Session) HasPatient() bool {
	return s.PatientID() != ""
}

func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Session) setPatient(id Identifier) {
	s.mu.Lock()
	s.patientID = id
	s.mu.Unlock()
}

func (s *Session) apply(e Event) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.view.Next(e)
	if ok {
		s.view = t.To
	}
	return t
}
