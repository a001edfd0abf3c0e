package search

import (
	"sync"

	"golang.org/x/text/language"

	"github.com/and161185/ecoeat/internal/model"
)

// State holds the search state of one listing view over a product source.
// It is not persisted; a new view starts from a zero State.
type State struct {
	source func() []model.Product

	mu sync.RWMutex
	q  Query
}

// NewState binds a State to source, usually the catalog's Products method.
func NewState(source func() []model.Product) *State {
	return &State{source: source}
}

func (s *State) SetQuery(text string) {
	s.mu.Lock()
	s.q.Text = text
	s.mu.Unlock()
}

// SetRiskFilter sets the risk filter; nil clears it.
func (s *State) SetRiskFilter(r *model.WasteRisk) {
	s.mu.Lock()
	if r != nil {
		v := *r
		r = &v
	}
	s.q.Risk = r
	s.mu.Unlock()
}

func (s *State) SetSortKey(k SortKey) {
	s.mu.Lock()
	s.q.Sort = k
	s.mu.Unlock()
}

// SetLang sets the collation language used when sorting by name.
func (s *State) SetLang(tag language.Tag) {
	s.mu.Lock()
	s.q.Lang = tag
	s.mu.Unlock()
}

// Query returns a copy of the current search state.
func (s *State) Query() Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q
}

// Filtered recomputes the display list from the current source contents.
func (s *State) Filtered() []model.Product {
	return Apply(s.source(), s.Query())
}
