package triage

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/joelkehle/triage-console/internal/anatomy"
	"github.com/joelkehle/triage-console/internal/symptoms"
)

// Display receives rendered views. Implementations replace what they show
// with every call; they never derive state of their own.
type Display interface {
	SetBusy(busy bool)
	ShowResults(ResultsView)
	ShowSidePanel(SidePanelView)
	ShowAnatomy(anatomy.State)
	ShowRoadmap(RoadmapView)
	ShowView(Transition)
}

// Form reads the patient fields as they are at the moment of the call. The
// roadmap summary uses it at render time, so edits made after submitting show
// up in the summary.
type Form interface {
	Summary() PatientSummary
}

// Controller orchestrates the analyze and roadmap calls for one session.
type Controller struct {
	session  *Session
	backend  Backend
	display  Display
	form     Form
	notifier Notifier

	mu         sync.Mutex
	analyzeSeq uint64
	roadmapSeq uint64
	inFlight   int
}

// NewController wires a controller to its session and collaborators and
// registers SelectCondition on dispatcher when one is given.
func NewController(session *Session, backend Backend, display Display, form Form, notifier Notifier, dispatcher *Dispatcher) *Controller {
	if notifier == nil {
		notifier = NotifierFunc(func(n Notice) { log.Printf("triage notice: %s", n) })
	}
	c := &Controller{
		session:  session,
		backend:  backend,
		display:  display,
		form:     form,
		notifier: notifier,
	}
	if dispatcher != nil {
		dispatcher.OnSelect(c.SelectCondition)
	}
	return c
}

func (c *Controller) Session() *Session {
	return c.session
}

// SubmitAnalysis requests a ranked condition list for in. On success the
// patient id is replaced and results, side panel and anatomy are rendered;
// the view does not change. On failure nothing but the busy state changes.
func (c *Controller) SubmitAnalysis(ctx context.Context, in PatientInput) error {
	parsed := symptoms.Parse(in.SymptomsRaw)

	c.mu.Lock()
	c.analyzeSeq++
	seq := c.analyzeSeq
	c.setBusyLocked(+1)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.setBusyLocked(-1)
		c.mu.Unlock()
	}()

	resp, err := c.backend.Analyze(ctx, AnalyzeRequest{
		Name:     in.Name,
		Age:      in.Age,
		Sex:      in.Sex,
		Symptoms: parsed,
	})
	if err == nil && resp.Results == nil {
		err = fmt.Errorf("analyze response has no results: %w", ErrMalformedResponse)
	}

	c.mu.Lock()
	if latest := c.analyzeSeq; seq != latest {
		c.mu.Unlock()
		log.Printf("triage: discarded stale analyze response seq=%d latest=%d", seq, latest)
		return ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		c.notifier.Notify(failureNotice(OpAnalyze, err))
		return fmt.Errorf("analyze: %w", err)
	}
	c.session.setPatient(resp.PatientID)
	c.display.ShowResults(RenderResults(resp.Results))
	c.display.ShowSidePanel(RenderSidePanel(resp.Results, len(parsed)))
	c.display.ShowAnatomy(anatomy.Highlight(parsed))
	c.mu.Unlock()
	return nil
}

// SelectCondition locks in name and loads its roadmap. Without an active
// patient it does nothing.
func (c *Controller) SelectCondition(ctx context.Context, name string) error {
	patientID := c.session.PatientID()
	if patientID == "" {
		return nil
	}

	c.mu.Lock()
	c.roadmapSeq++
	seq := c.roadmapSeq
	c.mu.Unlock()

	resp, err := c.backend.Roadmap(ctx, RoadmapRequest{Disease: name, PatientID: patientID})
	if err == nil && resp.Roadmap == nil {
		err = fmt.Errorf("roadmap response has no roadmap: %w", ErrMalformedResponse)
	}

	c.mu.Lock()
	if seq != c.roadmapSeq || c.session.PatientID() != patientID {
		c.mu.Unlock()
		log.Printf("triage: discarded stale roadmap response disease=%q patient=%s", name, patientID)
		return ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		c.notifier.Notify(failureNotice(OpRoadmap, err))
		return fmt.Errorf("roadmap: %w", err)
	}
	c.display.ShowRoadmap(RenderRoadmap(name, *resp.Roadmap, c.form.Summary()))
	c.display.ShowView(c.session.apply(EventRoadmapLoaded))
	c.mu.Unlock()
	return nil
}

// GoBack returns to the analysis view. Rendered results and roadmap are kept.
func (c *Controller) GoBack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.ShowView(c.session.apply(EventBack))
}

func (c *Controller) setBusyLocked(delta int) {
	before := c.inFlight > 0
	c.inFlight += delta
	if after := c.inFlight > 0; after != before {
		c.display.SetBusy(after)
	}
}
