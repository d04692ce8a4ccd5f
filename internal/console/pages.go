package console

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/triage-console/internal/anatomy"
	"github.com/joelkehle/triage-console/internal/triage"
)

// Page is one loaded console page: a session with its own controller and the
// last views pushed to it.
type Page struct {
	Token      string
	CreatedAt  time.Time
	Controller *triage.Controller
	Dispatcher *triage.Dispatcher

	display *pageDisplay
	form    *pageForm

	mu       sync.Mutex
	lastSeen time.Time
}

func (p *Page) touch(now time.Time) {
	p.mu.Lock()
	p.lastSeen = now
	p.mu.Unlock()
}

func (p *Page) idleSince() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

// Snapshot returns what the page currently shows.
func (p *Page) Snapshot() PageState {
	st := p.display.snapshot()
	st.Token = p.Token
	st.Form = p.form.values()
	st.View = p.Controller.Session().View().String()
	st.HasPatient = p.Controller.Session().HasPatient()
	return st
}

// PageState is the projection rendered into the page template.
type PageState struct {
	Token      string               `json:"token"`
	View       string               `json:"view"`
	HasPatient bool                 `json:"has_patient"`
	Busy       bool                 `json:"busy"`
	Form       triage.PatientInput  `json:"form"`
	Results    *triage.ResultsView  `json:"results,omitempty"`
	SidePanel  triage.SidePanelView `json:"side_panel"`
	Anatomy    anatomy.State        `json:"anatomy"`
	Roadmap    *triage.RoadmapView  `json:"roadmap,omitempty"`
	ScrollTop  bool                 `json:"scroll_top"`
	Notice     *NoticeView          `json:"notice,omitempty"`
}

type NoticeView struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type pageDisplay struct {
	mu        sync.Mutex
	busy      bool
	results   *triage.ResultsView
	sidePanel triage.SidePanelView
	anatomy   anatomy.State
	roadmap   *triage.RoadmapView
	scrollTop bool
	notice    *NoticeView
}

func newPageDisplay() *pageDisplay {
	return &pageDisplay{
		sidePanel: triage.InitialSidePanel(),
		anatomy:   anatomy.Initial(),
	}
}

// SetBusy only shows on a render that overlaps the call, since the analyze
// POST holds its redirect until the service answers. The page script disables
// the button on submit for the requesting tab.
func (d *pageDisplay) SetBusy(busy bool) {
	d.mu.Lock()
	d.busy = busy
	d.mu.Unlock()
}

func (d *pageDisplay) ShowResults(v triage.ResultsView) {
	d.mu.Lock()
	d.results = &v
	d.notice = nil
	d.mu.Unlock()
}

func (d *pageDisplay) ShowSidePanel(v triage.SidePanelView) {
	d.mu.Lock()
	d.sidePanel = v
	d.mu.Unlock()
}

func (d *pageDisplay) ShowAnatomy(s anatomy.State) {
	d.mu.Lock()
	d.anatomy = s
	d.mu.Unlock()
}

func (d *pageDisplay) ShowRoadmap(v triage.RoadmapView) {
	d.mu.Lock()
	d.roadmap = &v
	d.notice = nil
	d.mu.Unlock()
}

func (d *pageDisplay) ShowView(t triage.Transition) {
	d.mu.Lock()
	d.scrollTop = t.ScrollTop
	d.mu.Unlock()
}

func (d *pageDisplay) Notify(n triage.Notice) {
	d.mu.Lock()
	d.notice = &NoticeView{Severity: string(n.Severity), Message: n.Message}
	d.mu.Unlock()
}

// consumeOneShot clears flags that apply to a single render.
func (d *pageDisplay) consumeOneShot() {
	d.mu.Lock()
	d.scrollTop = false
	if d.results != nil {
		d.results.ScrollIntoView = false
	}
	d.notice = nil
	d.mu.Unlock()
}

func (d *pageDisplay) snapshot() PageState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := PageState{
		Busy:      d.busy,
		SidePanel: d.sidePanel,
		Anatomy:   d.anatomy,
		ScrollTop: d.scrollTop,
	}
	if d.results != nil {
		r := *d.results
		st.Results = &r
	}
	if d.roadmap != nil {
		rm := *d.roadmap
		st.Roadmap = &rm
	}
	if d.notice != nil {
		n := *d.notice
		st.Notice = &n
	}
	return st
}

// pageForm holds the latest field values posted from the page. The roadmap
// summary reads it when the roadmap renders.
type pageForm struct {
	mu  sync.Mutex
	cur triage.PatientInput
}

func (f *pageForm) set(in triage.PatientInput) {
	f.mu.Lock()
	f.cur = in
	f.mu.Unlock()
}

func (f *pageForm) values() triage.PatientInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur
}

func (f *pageForm) Summary() triage.PatientSummary {
	v := f.values()
	return triage.PatientSummary{Name: v.Name, Age: v.Age}
}

// PageStore owns the live pages keyed by token.
type PageStore struct {
	mu      sync.RWMutex
	pages   map[string]*Page
	backend triage.Backend
	metrics *Metrics
	clock   func() time.Time
}

func NewPageStore(backend triage.Backend, metrics *Metrics) *PageStore {
	return &PageStore{
		pages:   make(map[string]*Page),
		backend: backend,
		metrics: metrics,
		clock:   time.Now,
	}
}

// Create starts a fresh session for a newly loaded page.
func (s *PageStore) Create() *Page {
	now := s.clock()
	display := newPageDisplay()
	form := &pageForm{}
	dispatcher := triage.NewDispatcher()
	p := &Page{
		Token:      uuid.NewString(),
		CreatedAt:  now,
		Dispatcher: dispatcher,
		display:    display,
		form:       form,
		lastSeen:   now,
	}
	notifier := triage.NotifierFunc(func(n triage.Notice) {
		log.Printf("page notice token=%s %s", p.Token, n)
		s.metrics.observeNotice(n)
		display.Notify(n)
	})
	p.Controller = triage.NewController(triage.NewSession(), s.backend, display, form, notifier, dispatcher)

	s.mu.Lock()
	s.pages[p.Token] = p
	n := len(s.pages)
	s.mu.Unlock()
	s.metrics.setActivePages(n)
	return p
}

func (s *PageStore) Get(token string) *Page {
	s.mu.RLock()
	p := s.pages[token]
	s.mu.RUnlock()
	if p != nil {
		p.touch(s.clock())
	}
	return p
}

func (s *PageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Sweep drops pages not seen for longer than maxIdle and returns how many
// were removed.
func (s *PageStore) Sweep(maxIdle time.Duration) int {
	cutoff := s.clock().Add(-maxIdle)
	s.mu.Lock()
	removed := 0
	for token, p := range s.pages {
		if p.idleSince().Before(cutoff) {
			delete(s.pages, token)
			removed++
		}
	}
	n := len(s.pages)
	s.mu.Unlock()
	s.metrics.setActivePages(n)
	if removed > 0 {
		log.Printf("swept idle pages removed=%d remaining=%d", removed, n)
	}
	return removed
}
