package listing

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Phase is the lifecycle state of a cursor
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

// State is an immutable snapshot of a browsing session
type State struct {
	Prefix     string
	Sort       SortSpec
	PageIndex  int
	PageSize   int
	Markers    MarkerTable
	TotalPages int
	Entries    []Entry
}

// Cursor sequences page fetches for one browsing session.
//
// Starting a fetch cancels the one in flight. A fetch that completes after a newer one
// has started returns ErrStaleFetch and leaves the session untouched. A failed fetch
// keeps the last ready state.
type Cursor struct {
	lister Lister
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	fetched bool
	token   uint64
	cancel  context.CancelFunc
}

// NewCursor creates a cursor over lister. A nil logger disables logging.
func NewCursor(lister Lister, logger *zap.Logger) *Cursor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cursor{lister: lister, logger: logger}
}

// State returns the last ready state
func (c *Cursor) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Phase reports whether a fetch is in flight
func (c *Cursor) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return PhaseLoading
	}
	return PhaseReady
}

// Fetch loads pageIndex of prefix. Changing the prefix or the page size starts a new
// marker table, since recorded markers are only valid for the listing that produced them.
func (c *Cursor) Fetch(ctx context.Context, pageIndex int, prefix string, sort SortSpec, pageSize int) (State, error) {
	c.mu.Lock()
	c.token++
	token := c.token
	if c.cancel != nil {
		c.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	markers := c.state.Markers
	if !c.fetched || prefix != c.state.Prefix || pageSize != c.state.PageSize {
		markers = MarkerTable{}
	}
	c.mu.Unlock()

	res, err := FetchPage(fetchCtx, c.lister, Request{
		PageIndex: pageIndex,
		Prefix:    prefix,
		Sort:      sort,
		PageSize:  pageSize,
		Markers:   markers,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	cancel()
	if token != c.token {
		c.logger.Debug("Discarding superseded page fetch",
			zap.String("prefix", prefix),
			zap.Int("page", pageIndex),
			zap.Uint64("token", token),
			zap.Uint64("latest", c.token))
		return State{}, ErrStaleFetch
	}
	c.cancel = nil

	if err != nil {
		if !errors.Is(err, ErrInvalidRequest) && !errors.Is(err, ErrInvalidState) {
			c.logger.Warn("Page fetch failed",
				zap.String("prefix", prefix),
				zap.Int("page", pageIndex),
				zap.Error(err))
		}
		return State{}, err
	}

	c.state = State{
		Prefix:     prefix,
		Sort:       sort,
		PageIndex:  pageIndex,
		PageSize:   pageSize,
		Markers:    res.Markers,
		TotalPages: res.TotalPages,
		Entries:    res.Entries,
	}
	c.fetched = true
	c.logger.Debug("Fetched page",
		zap.String("prefix", prefix),
		zap.Int("page", pageIndex),
		zap.Int("entries", len(res.Entries)),
		zap.Int("total_pages", res.TotalPages))
	return c.state, nil
}
