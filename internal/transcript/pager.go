package transcript

import (
	"context"
	"fmt"
	"log/slog"

	"lifeos/internal/models"
)

// Fetcher is the history side of the collaborator contract. Implementations
// return up to pageSize messages for the given 1-based page, newest first.
type Fetcher interface {
	FetchHistory(ctx context.Context, page, pageSize int) ([]models.Message, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, page, pageSize int) ([]models.Message, error)

func (f FetcherFunc) FetchHistory(ctx context.Context, page, pageSize int) ([]models.Message, error) {
	return f(ctx, page, pageSize)
}

// Pager tracks the backward-paging cursor and guards against concurrent or
// duplicate history fetches. Like Store, it is owned by the UI update loop.
//
// The fetch itself runs elsewhere (a tea.Cmd goroutine in the TUI): Begin
// reserves the in-flight slot and names the page to request, Apply folds the
// outcome back into the store. LoadNextPage composes the two phases for
// callers without an event loop.
type Pager struct {
	store    *Store
	fetch    Fetcher
	logger   *slog.Logger
	pageSize int

	nextPage  int
	reserved  int
	exhausted bool
	inFlight  bool
}

// NewPager creates a pager over store, fetching pageSize messages per page.
func NewPager(store *Store, fetch Fetcher, pageSize int, logger *slog.Logger) *Pager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pager{
		store:    store,
		fetch:    fetch,
		logger:   logger,
		pageSize: pageSize,
		nextPage: 1,
	}
}

// Loading reports whether a history fetch is outstanding.
func (p *Pager) Loading() bool { return p.inFlight }

// HasMore reports whether older history may still exist.
func (p *Pager) HasMore() bool { return !p.exhausted }

// PageSize returns the fixed per-session page size.
func (p *Pager) PageSize() int { return p.pageSize }

// Begin reserves the in-flight slot and returns the page to request.
// It returns ok=false when a fetch is already outstanding or history is
// exhausted; such requests are dropped, not queued.
func (p *Pager) Begin() (page int, ok bool) {
	if p.inFlight || p.exhausted {
		return 0, false
	}
	p.inFlight = true
	p.reserved = p.nextPage
	return p.nextPage, true
}

// Apply folds a fetch outcome into the cursor and the store. The batch is
// newest-first as the service returns it; Apply reverses it to oldest-first
// before handing it to the store's prefix-insertion contract.
//
// On a fetch error the cursor is left untouched so the user can retry; the
// transcript is never mutated. The in-flight slot is released on every path.
//
// A result for a page no Begin reserved is stale; like the store's missing
// placeholder, it is logged and ignored so it cannot corrupt the cursor.
func (p *Pager) Apply(page int, batch []models.Message, fetchErr error) error {
	if !p.inFlight || page != p.reserved {
		p.logger.Warn("ignoring history result with no matching request", "page", page)
		return nil
	}
	p.inFlight = false

	if fetchErr != nil {
		p.logger.Warn("history fetch failed", "page", page, "error", fetchErr)
		return fmt.Errorf("fetch history page %d: %w", page, fetchErr)
	}

	reversed := make([]models.Message, len(batch))
	for i, m := range batch {
		reversed[len(batch)-1-i] = m
	}

	var err error
	if page == 1 {
		err = p.store.ReplaceAll(reversed)
	} else {
		err = p.store.PrependHistory(reversed)
	}
	if err != nil {
		return err
	}

	p.nextPage = page + 1
	if len(batch) < p.pageSize {
		p.exhausted = true
	}
	return nil
}

// Fetch requests one page from the history service. It holds no pager state
// and is safe to call from the goroutine running the fetch.
func (p *Pager) Fetch(ctx context.Context, page int) ([]models.Message, error) {
	return p.fetch.FetchHistory(ctx, page, p.pageSize)
}

// LoadNextPage runs one full guard-fetch-apply round trip. It returns
// loaded=false when the request was dropped by the concurrency guard or the
// exhaustion flag.
func (p *Pager) LoadNextPage(ctx context.Context) (loaded bool, err error) {
	page, ok := p.Begin()
	if !ok {
		return false, nil
	}
	batch, fetchErr := p.fetch.FetchHistory(ctx, page, p.pageSize)
	if err := p.Apply(page, batch, fetchErr); err != nil {
		return false, err
	}
	return true, nil
}
