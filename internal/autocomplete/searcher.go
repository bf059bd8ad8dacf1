package autocomplete

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/shiporbit-client/internal/api"
	"github.com/example/shiporbit-client/internal/logging"
)

// FetchFunc performs the backing city lookup for a query.
type FetchFunc func(ctx context.Context, query string) ([]api.City, error)

// FormatCity renders a city for display: "Name, RegionCode", falling back to
// the country code when the region is unknown.
func FormatCity(city api.City) string {
	region := city.RegionCode
	if region == "" {
		region = city.CountryCode
	}
	return fmt.Sprintf("%s, %s", city.Name, region)
}

// Searcher drives one typeahead input: it debounces keystrokes, keeps only
// the newest lookup's results, and remembers the committed selection.
type Searcher struct {
	fetch     FetchFunc
	debouncer *Debouncer
	logger    *slog.Logger

	mu           sync.Mutex
	display      string
	results      []api.City
	selected     *api.City
	dropdownOpen bool
	loading      bool
	suppressNext bool
	seq          uint64

	// onSettled, when set, is called after a lookup completes or is
	// discarded.
	onSettled func()
}

// NewSearcher builds a Searcher over the given lookup with the given
// debounce window.
func NewSearcher(fetch FetchFunc, window time.Duration, logger *slog.Logger) *Searcher {
	return &Searcher{
		fetch:     fetch,
		debouncer: NewDebouncer(window),
		logger:    logging.Default(logger),
	}
}

// OnSettled registers a callback invoked after a lookup completes or is
// discarded, letting callers synchronise with the fetch goroutine instead of
// polling Loading.
func (s *Searcher) OnSettled(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSettled = fn
}

// OnQueryChange reacts to the input's text changing. The write that follows
// committing a selection is swallowed so it does not reopen the dropdown.
// An emptied input cancels any pending lookup and clears results without
// touching the network.
func (s *Searcher) OnQueryChange(ctx context.Context, query string) {
	s.mu.Lock()
	if s.suppressNext {
		s.suppressNext = false
		s.display = query
		s.mu.Unlock()
		return
	}
	s.display = query
	s.selected = nil

	if query == "" {
		// Invalidate any lookup already in flight; its completion must
		// not repopulate a cleared input.
		s.seq++
		s.results = nil
		s.dropdownOpen = false
		s.loading = false
		s.mu.Unlock()
		s.debouncer.Cancel()
		return
	}

	s.loading = true
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.debouncer.Schedule(func() {
		s.lookup(ctx, seq, query)
	})
}

func (s *Searcher) lookup(ctx context.Context, seq uint64, query string) {
	cities, err := s.fetch(ctx, query)

	s.mu.Lock()
	defer func() {
		settled := s.onSettled
		s.mu.Unlock()
		if settled != nil {
			settled()
		}
	}()

	// A newer keystroke superseded this lookup; drop it.
	if seq != s.seq {
		return
	}
	s.loading = false

	if err != nil {
		logging.ServiceLogger(ctx, s.logger, "Searcher", "lookup", "query", query).
			WarnContext(ctx, "city lookup failed", "error", err, "error_kind", api.ErrorKind(err))
		s.results = nil
		s.dropdownOpen = false
		return
	}

	s.results = cities
	s.dropdownOpen = len(cities) > 0
}

// Select commits a result: the display takes the formatted city, the
// dropdown closes, and the resulting input change is suppressed.
func (s *Searcher) Select(city api.City) {
	s.debouncer.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Invalidate any lookup already in flight so it cannot reopen the
	// dropdown over the committed selection.
	s.seq++
	selected := city
	s.selected = &selected
	s.display = FormatCity(city)
	s.results = nil
	s.dropdownOpen = false
	s.loading = false
	s.suppressNext = true
}

// CloseDropdown hides the result list without discarding the selection,
// mirroring the input losing focus.
func (s *Searcher) CloseDropdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropdownOpen = false
}

// Focus reopens the dropdown when results are already on hand.
func (s *Searcher) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) > 0 {
		s.dropdownOpen = true
	}
}

// Display returns the current input text.
func (s *Searcher) Display() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// Results returns the current dropdown entries.
func (s *Searcher) Results() []api.City {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.City(nil), s.results...)
}

// Selected returns the committed city, or nil when none is committed.
func (s *Searcher) Selected() *api.City {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	selected := *s.selected
	return &selected
}

// DropdownOpen reports whether the result list is showing.
func (s *Searcher) DropdownOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropdownOpen
}

// Loading reports whether a lookup is pending or in flight.
func (s *Searcher) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}
