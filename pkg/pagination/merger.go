package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrLoadInFlight is returned when LoadMore is called while a page is still
// being fetched for any source.
var ErrLoadInFlight = errors.New("load already in flight")

// ErrLoadSuperseded is returned when a Reset happened while a load was in
// flight and none of its pages were kept. The load does not count towards
// Target.
var ErrLoadSuperseded = errors.New("load superseded by reset")

// Window describes the page being requested from a source.
type Window[T any] struct {
	// Offset is the number of items already held for the source
	Offset int

	// Limit is the page size
	Limit int

	// Last is the most recent item of the source, nil on the first page.
	// Cursor-paged backends continue after it instead of using Offset.
	Last *T
}

// PageFetcher fetches one page of a source.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, window Window[T]) ([]T, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, window Window[T]) ([]T, error)

// FetchPage calls f(ctx, window).
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, window Window[T]) ([]T, error) {
	return f(ctx, window)
}

// Source is a named page fetcher participating in a merge.
type Source[T any] struct {
	Name    string
	Fetcher PageFetcher[T]
}

// Config holds merger configuration.
type Config struct {
	// PageSize is the number of items requested per source and load
	PageSize int
}

// DefaultConfig returns the default merger configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: 20,
	}
}

type sourceState[T any] struct {
	Source[T]
	items      []T
	fetching   bool
	exhausted  bool
	generation int
}

// Merger accumulates pages from one or more sources. It is safe for
// concurrent use.
type Merger[T any] struct {
	mu      sync.Mutex
	config  Config
	sources []*sourceState[T]
	items   []T
	loads   int
	logger  zerolog.Logger
}

// NewMerger creates a merger over the given sources. Sources with a nil
// fetcher are ignored.
func NewMerger[T any](config Config, sources ...Source[T]) *Merger[T] {
	if config.PageSize <= 0 {
		config.PageSize = DefaultConfig().PageSize
	}

	m := &Merger[T]{
		config: config,
		logger: log.With().Str("component", "pagination").Logger(),
	}
	for _, source := range sources {
		if source.Fetcher == nil {
			continue
		}
		m.sources = append(m.sources, &sourceState[T]{Source: source})
	}
	return m
}

type pageResult[T any] struct {
	source     *sourceState[T]
	generation int
	window     Window[T]
	items      []T
	err        error
}

// LoadMore requests the next page of every source that is not exhausted and
// blocks until all of them answered.
//
// If any source still has a page in flight the call is dropped and
// ErrLoadInFlight is returned. onComplete, when non-nil, runs once after every
// participating source appended its page. A failed source keeps its guard set
// and the joined fetch errors are returned; call Reset to allow another load.
// A load whose every page was discarded by a Reset returns ErrLoadSuperseded
// without running onComplete.
func (m *Merger[T]) LoadMore(ctx context.Context, onComplete func()) error {
	m.mu.Lock()
	for _, s := range m.sources {
		if s.fetching {
			m.mu.Unlock()
			loadsDroppedTotal.Inc()
			m.logger.Debug().Str("source", s.Name).Msg("Load dropped, page in flight")
			return ErrLoadInFlight
		}
	}

	m.loads++
	var pending []pageResult[T]
	for _, s := range m.sources {
		if s.exhausted {
			continue
		}
		s.fetching = true
		window := Window[T]{Offset: len(s.items), Limit: m.config.PageSize}
		if n := len(s.items); n > 0 {
			last := s.items[n-1]
			window.Last = &last
		}
		pending = append(pending, pageResult[T]{source: s, generation: s.generation, window: window})
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for i := range pending {
		wg.Add(1)
		go func(p *pageResult[T]) {
			defer wg.Done()
			p.items, p.err = p.source.Fetcher.FetchPage(ctx, p.window)
		}(&pending[i])
	}
	wg.Wait()

	var errs []error
	applied := 0
	m.mu.Lock()
	for _, p := range pending {
		ok, err := m.apply(p)
		if err != nil {
			errs = append(errs, err)
		}
		if ok {
			applied++
		}
	}
	superseded := len(pending) > 0 && applied == 0 && len(errs) == 0
	if superseded {
		m.loads--
	}
	m.mu.Unlock()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if superseded {
		loadsSupersededTotal.Inc()
		m.logger.Debug().Int("pages", len(pending)).Msg("Load superseded by reset")
		return ErrLoadSuperseded
	}

	if onComplete != nil {
		onComplete()
	}
	return nil
}

// apply merges one page result and reports whether it was kept. Caller must
// hold m.mu.
func (m *Merger[T]) apply(p pageResult[T]) (bool, error) {
	s := p.source

	if p.generation != s.generation || p.window.Offset != len(s.items) {
		stalePagesTotal.WithLabelValues(s.Name).Inc()
		m.logger.Debug().
			Str("source", s.Name).
			Int("offset", p.window.Offset).
			Int("held", len(s.items)).
			Msg("Discarding stale page")
		return false, nil
	}

	if p.err != nil {
		pageErrorsTotal.WithLabelValues(s.Name).Inc()
		m.logger.Warn().
			Err(p.err).
			Str("source", s.Name).
			Int("offset", p.window.Offset).
			Msg("Page fetch failed")
		return false, fmt.Errorf("source %s: %w", s.Name, p.err)
	}

	s.fetching = false
	if len(p.items) == 0 {
		s.exhausted = true
		m.logger.Debug().Str("source", s.Name).Int("items", len(s.items)).Msg("Source exhausted")
		return true, nil
	}

	s.items = append(s.items, p.items...)
	m.items = append(m.items, p.items...)
	pagesTotal.WithLabelValues(s.Name).Inc()

	m.logger.Debug().
		Str("source", s.Name).
		Int("offset", p.window.Offset).
		Int("page_items", len(p.items)).
		Int("total", len(m.items)).
		Msg("Page appended")
	return true, nil
}

// Reset clears every in-flight guard so a failed load can be retried. Pages
// still in flight when Reset is called are discarded on arrival. Accumulated
// items are kept.
func (m *Merger[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sources {
		if s.fetching {
			m.logger.Debug().Str("source", s.Name).Msg("Clearing in-flight guard")
		}
		s.fetching = false
		s.generation++
	}
}

// Items returns a copy of the merged list in arrival order.
func (m *Merger[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

// SourceItems returns a copy of the items received from one source.
func (m *Merger[T]) SourceItems(name string) []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sources {
		if s.Name == name {
			out := make([]T, len(s.items))
			copy(out, s.items)
			return out
		}
	}
	return nil
}

// Len returns the number of merged items.
func (m *Merger[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Loads returns how many LoadMore calls were accepted and not superseded.
func (m *Merger[T]) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// Target is the number of items a display should show: one page per accepted load.
func (m *Merger[T]) Target() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads * m.config.PageSize
}

// Fetching reports whether any source has a page in flight or a failed fetch
// awaiting Reset.
func (m *Merger[T]) Fetching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sources {
		if s.fetching {
			return true
		}
	}
	return false
}

// Exhausted reports whether every source returned an empty page.
func (m *Merger[T]) Exhausted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sources {
		if !s.exhausted {
			return false
		}
	}
	return true
}
