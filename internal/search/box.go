// Package search implements a debounced type-ahead box over any item type.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/EpicMandM/station-calendar/internal/debounce"
	"github.com/EpicMandM/station-calendar/internal/logger"
	"github.com/EpicMandM/station-calendar/internal/metrics"
	"github.com/EpicMandM/station-calendar/internal/supersede"
)

// Options configures a Box. Fetch, Key and Label are required.
type Options[T any] struct {
	Fetch func(ctx context.Context, query string) ([]T, error)
	Key   func(T) string
	Label func(T) string
	// OnSelect receives the item the user picked.
	OnSelect func(T)
	// OnChange runs after every state change, outside the box's lock.
	OnChange    func()
	Placeholder string
	// Delay is the debounce quiet period; zero means debounce.DefaultDelay.
	Delay  time.Duration
	Logger *logger.Logger
	// Name labels superseded-result metrics; defaults to "search".
	Name string
}

// Session is a copy of the box's visible state.
type Session[T any] struct {
	RawQuery       string
	DebouncedQuery string
	Results        []T
	Open           bool
	Loading        bool
}

// NoResults reports whether the dropdown should say there is nothing to show.
func (s Session[T]) NoResults() bool {
	return s.Open && !s.Loading && len(s.Results) == 0
}

// Box is a debounced search input with a results dropdown. Only the most
// recently issued fetch may update results or the loading flag.
type Box[T any] struct {
	opts      Options[T]
	debouncer *debounce.Debouncer[string]
	ctx       context.Context
	cancel    context.CancelFunc

	mu          sync.Mutex
	session     Session[T]
	fetches     supersede.Slot
	cancelFetch context.CancelFunc
	mounted     bool
	closed      bool
}

func New[T any](opts Options[T]) *Box[T] {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Name == "" {
		opts.Name = "search"
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Box[T]{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	b.debouncer = debounce.New(opts.Delay, b.debounced)
	return b
}

// Mount runs the initial browse-all fetch. Later calls do nothing.
func (b *Box[T]) Mount() {
	b.mu.Lock()
	if b.mounted || b.closed {
		b.mu.Unlock()
		return
	}
	b.mounted = true
	b.issueLocked(b.session.DebouncedQuery)
	b.mu.Unlock()
	b.changed()
}

// QueryChanged records new input, opens the dropdown and restarts the debounce.
func (b *Box[T]) QueryChanged(text string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.session.RawQuery = text
	b.session.Open = true
	b.mu.Unlock()

	b.debouncer.Push(text)
	b.changed()
}

// debounced runs once the input has been quiet for the debounce period.
func (b *Box[T]) debounced(query string) {
	b.mu.Lock()
	if b.closed || query == b.session.DebouncedQuery {
		b.mu.Unlock()
		return
	}
	b.session.DebouncedQuery = query
	// Blank input browses everything; whitespace typed into a non-empty box does not.
	if strings.TrimSpace(query) != "" || b.session.RawQuery == "" {
		b.issueLocked(query)
	}
	b.mu.Unlock()
	b.changed()
}

func (b *Box[T]) issueLocked(query string) {
	if b.cancelFetch != nil {
		b.cancelFetch()
	}
	ctx, cancel := context.WithCancel(b.ctx)
	b.cancelFetch = cancel
	tok := b.fetches.Issue()
	b.session.Loading = true

	b.opts.Logger.Debug("Search fetch issued", logger.Query(query), logger.Generation(tok.Generation()))
	go b.fetch(ctx, cancel, query, tok)
}

func (b *Box[T]) fetch(ctx context.Context, cancel context.CancelFunc, query string, tok supersede.Token) {
	defer cancel()
	results, err := b.opts.Fetch(ctx, query)

	b.mu.Lock()
	if !tok.Current() {
		b.mu.Unlock()
		metrics.Superseded.WithLabelValues(b.opts.Name).Inc()
		b.opts.Logger.Debug("Discarding superseded search result", logger.Query(query), logger.Generation(tok.Generation()))
		return
	}
	b.session.Loading = false
	if err != nil {
		b.mu.Unlock()
		b.opts.Logger.Warn("Search fetch failed", logger.Query(query), logger.Error(err))
		b.changed()
		return
	}
	b.session.Results = append([]T{}, results...)
	b.mu.Unlock()

	b.opts.Logger.Debug("Search results applied", logger.Query(query), logger.Count(len(results)))
	b.changed()
}

// Select reports item to OnSelect, then clears the input and closes the dropdown.
func (b *Box[T]) Select(item T) {
	if b.opts.OnSelect != nil {
		b.opts.OnSelect(item)
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.session.RawQuery = ""
	b.session.Open = false
	b.mu.Unlock()

	b.debouncer.Push("")
	b.changed()
}

// Focus opens the dropdown.
func (b *Box[T]) Focus() {
	b.setOpen(true)
}

// Dismiss closes the dropdown, as when the user interacts elsewhere.
func (b *Box[T]) Dismiss() {
	b.setOpen(false)
}

func (b *Box[T]) setOpen(open bool) {
	b.mu.Lock()
	if b.closed || b.session.Open == open {
		b.mu.Unlock()
		return
	}
	b.session.Open = open
	b.mu.Unlock()
	b.changed()
}

func (b *Box[T]) Session() Session[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.session
	s.Results = append([]T{}, b.session.Results...)
	return s
}

func (b *Box[T]) Key(item T) string {
	return b.opts.Key(item)
}

func (b *Box[T]) Label(item T) string {
	return b.opts.Label(item)
}

func (b *Box[T]) Placeholder() string {
	return b.opts.Placeholder
}

// Close stops the debounce timer and discards every in-flight fetch.
func (b *Box[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.fetches.Invalidate()
	b.session.Loading = false
	b.mu.Unlock()

	b.debouncer.Stop()
	b.cancel()
}

func (b *Box[T]) changed() {
	if b.opts.OnChange != nil {
		b.opts.OnChange()
	}
}
