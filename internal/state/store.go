package state

import (
	"slices"
	"sync"

	"github.com/goliatone/go-listbind/internal/domain"
)

// DefaultLimit is the page size of a list that did not declare one.
const DefaultLimit = 20

// ListState is the per-list source of truth for rendering decisions.
type ListState struct {
	Filters     domain.Filters
	Records     []domain.Record
	Status      domain.ListStatus
	Loading     bool
	Err         error
	Offset      int
	Limit       int
	TotalCount  int
	HasNextPage bool
	Generation  uint64
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Filters     *domain.Filters
	Records     *[]domain.Record
	Status      *domain.ListStatus
	Loading     *bool
	Err         *error
	Offset      *int
	Limit       *int
	TotalCount  *int
	HasNextPage *bool
}

// Ptr returns a pointer to v for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// Store maps list identifiers to their state. Entries are created lazily and
// never removed for the lifetime of the store.
type Store struct {
	mu    sync.RWMutex
	lists map[string]*ListState
	limit int
}

// Option customises the store.
type Option func(*Store)

// WithDefaultLimit overrides the page size used for new entries.
func WithDefaultLimit(limit int) Option {
	return func(s *Store) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// NewStore constructs an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		lists: make(map[string]*ListState),
		limit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a snapshot of the list state, creating defaults on first access.
func (s *Store) Get(id string) ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.entry(id))
}

// Update shallow-merges patch into the list state and returns the result.
func (s *Store) Update(id string, patch Patch) ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.entry(id)
	apply(current, patch)
	return snapshot(current)
}

// MergeFilters merges patch into the list filters and rewinds the offset to
// the first record. Unset values remove their filter.
func (s *Store) MergeFilters(id string, patch domain.Filters) ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.entry(id)
	current.Filters = current.Filters.Merge(patch)
	current.Offset = 0
	return snapshot(current)
}

// Begin starts a new load for the list and returns its generation token.
// Any load begun earlier becomes stale.
func (s *Store) Begin(id string, patch Patch) (uint64, ListState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.entry(id)
	current.Generation++
	apply(current, patch)
	return current.Generation, snapshot(current)
}

// Commit applies patch only when gen is still the latest generation of the
// list. It reports whether the patch was applied.
func (s *Store) Commit(id string, gen uint64, patch Patch) (ListState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.entry(id)
	if current.Generation != gen {
		return snapshot(current), false
	}
	apply(current, patch)
	return snapshot(current), true
}

// IDs lists the known list identifiers in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.lists))
	for id := range s.lists {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Store) entry(id string) *ListState {
	current, ok := s.lists[id]
	if !ok {
		current = &ListState{
			Filters: domain.Filters{},
			Status:  domain.ListUninitialized,
			Limit:   s.limit,
		}
		s.lists[id] = current
	}
	return current
}

func apply(target *ListState, patch Patch) {
	if patch.Filters != nil {
		target.Filters = patch.Filters.Clone()
	}
	if patch.Records != nil {
		target.Records = slices.Clone(*patch.Records)
	}
	if patch.Status != nil {
		target.Status = *patch.Status
	}
	if patch.Loading != nil {
		target.Loading = *patch.Loading
	}
	if patch.Err != nil {
		target.Err = *patch.Err
	}
	if patch.Offset != nil {
		target.Offset = *patch.Offset
	}
	if patch.Limit != nil && *patch.Limit > 0 {
		target.Limit = *patch.Limit
	}
	if patch.TotalCount != nil {
		target.TotalCount = *patch.TotalCount
	}
	if patch.HasNextPage != nil {
		target.HasNextPage = *patch.HasNextPage
	}
}

func snapshot(src *ListState) ListState {
	out := *src
	out.Filters = src.Filters.Clone()
	out.Records = slices.Clone(src.Records)
	return out
}
