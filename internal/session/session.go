// Package session holds the analysis a user is currently looking at.
//
// A Session keeps two copies of an analysis: the one fetched from the
// backend, and the current one that filter passes narrow down. Each
// ApplyFilters call starts from the current copy. Every group stays in it,
// so a group hidden by one pass shows again under looser filters, but URLs
// and pairs dropped by an earlier pass stay dropped until Reload brings the
// fetched analysis back.
// All methods are safe for concurrent use.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/nao1215/cannibalscan/internal/filter"
	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/render"
	"github.com/nao1215/cannibalscan/internal/report"
)

// ErrNoAnalysis is returned when the session has nothing loaded yet.
var ErrNoAnalysis = errors.New("no analysis loaded")

// Session is the state of one report view.
type Session struct {
	mu sync.RWMutex

	// fetched is the analysis as returned by the backend. Never mutated.
	fetched *model.AnalysisReport

	// current is the analysis narrowed by every filter pass so far.
	current *model.AnalysisReport

	// displayed are the groups of the last filter pass, in display order.
	displayed []model.KeywordGroup

	criteria filter.Criteria
	initial  *filter.Criteria
	header   *report.Header
	options  render.Options
	now      func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock used for report dates.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithRenderOptions sets how similarities are displayed.
func WithRenderOptions(opts render.Options) Option {
	return func(s *Session) {
		s.options = opts
	}
}

// WithCriteria sets the filters of the first Load instead of the reset
// state. A minimum similarity that was never set becomes the analysis
// threshold; an explicit one, 0 included, is kept.
func WithCriteria(c filter.Criteria) Option {
	return func(s *Session) {
		s.initial = &c
	}
}

// New creates an empty session.
func New(opts ...Option) *Session {
	s := &Session{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the session content with a freshly fetched analysis and
// assembles its header. The minimum similarity of the filters is re-primed
// to the analysis threshold, the other filter settings are kept, and a
// first filter pass selects the displayed groups. The first Load of a
// session created WithCriteria uses those criteria, with an unset minimum
// similarity taken from the analysis.
func (s *Session) Load(analysis *model.AnalysisReport) error {
	if analysis == nil {
		return ErrNoAnalysis
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	criteria := s.criteria
	switch {
	case s.fetched != nil:
		criteria = criteria.WithMinSimilarity(analysis.Threshold())
	case s.initial != nil:
		criteria = s.initial.ForThreshold(analysis.Threshold())
	default:
		criteria = filter.DefaultCriteria(analysis.Threshold())
	}

	current := analysis.Clone()
	narrowed, groups, err := filter.Narrow(current.Groups, criteria)
	if err != nil {
		return err
	}
	current.Groups = narrowed

	s.fetched = analysis.Clone()
	s.current = current
	s.displayed = model.CloneGroups(groups)
	s.criteria = criteria
	s.header = report.Assemble(s.fetched, s.now())
	return nil
}

// ApplyFilters runs a filter pass over the current analysis, keeps what the
// pass narrowed as the new current analysis and displays the surviving
// groups. On error, including an invalid pattern, the session is left
// unchanged. c.MinSimilarity is used as given.
func (s *Session) ApplyFilters(c filter.Criteria) ([]model.KeywordGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrNoAnalysis
	}

	c = c.WithMinSimilarity(c.MinSimilarity)
	narrowed, groups, err := filter.Narrow(s.current.Groups, c)
	if err != nil {
		return nil, err
	}

	s.current.Groups = narrowed
	s.displayed = model.CloneGroups(groups)
	s.criteria = c
	return model.CloneGroups(groups), nil
}

// Reload restores the fetched analysis, undoing every filter pass. The
// header date is refreshed.
func (s *Session) Reload() error {
	s.mu.RLock()
	fetched := s.fetched
	s.mu.RUnlock()

	if fetched == nil {
		return ErrNoAnalysis
	}
	return s.Load(fetched)
}

// ResetFilters applies the default filters to the current analysis.
func (s *Session) ResetFilters() ([]model.KeywordGroup, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current == nil {
		return nil, ErrNoAnalysis
	}
	return s.ApplyFilters(filter.DefaultCriteria(current.Threshold()))
}

// Loaded reports whether an analysis is loaded.
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetched != nil
}

// Criteria returns the criteria of the last filter pass, or the reset
// criteria after Load.
func (s *Session) Criteria() filter.Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// Header returns the header of the loaded analysis.
func (s *Session) Header() (*report.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.header == nil {
		return nil, ErrNoAnalysis
	}
	h := *s.header
	return &h, nil
}

// Groups returns a copy of the displayed groups.
func (s *Session) Groups() ([]model.KeywordGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, ErrNoAnalysis
	}
	return model.CloneGroups(s.displayed), nil
}

// Document assembles the displayed state for export. The embedded analysis
// is the fetched one so exports can be filtered again from scratch.
func (s *Session) Document() (*report.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, ErrNoAnalysis
	}

	groups := model.CloneGroups(s.displayed)
	return &report.Document{
		Header:   s.header,
		Criteria: s.criteria,
		Groups:   groups,
		Views:    render.Groups(groups, s.options),
		Analysis: s.fetched.Clone(),
	}, nil
}
