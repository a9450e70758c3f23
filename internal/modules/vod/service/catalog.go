// Package service manages per-channel VOD listings with cursor pagination.
package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/reshetovitsme/livewatch/internal/modules/vod/domain"
	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"
)

const defaultFetchTimeout = 30 * time.Second

// PageFetcher loads one page of a channel's VODs. An empty cursor asks for
// the first page.
type PageFetcher interface {
	FetchVodPage(ctx context.Context, channelID, cursor string) (domain.Page, error)
}

type listing struct {
	vods     []domain.Vod
	seen     map[string]struct{}
	cursor   string
	terminal bool
}

func newListing() *listing {
	return &listing{seen: make(map[string]struct{})}
}

// Catalog keeps one listing per channel. Concurrent loads for the same
// channel share a single in-flight fetch.
type Catalog struct {
	fetcher PageFetcher
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	listings map[string]*listing
	flights  singleflight.Group
}

func NewCatalog(fetcher PageFetcher, logger *slog.Logger) *Catalog {
	return &Catalog{
		fetcher:  fetcher,
		logger:   logger.With("component", "vod_catalog"),
		timeout:  defaultFetchTimeout,
		listings: make(map[string]*listing),
	}
}

// LoadPage fetches the page at cursor and appends it to the channel's
// listing. An empty cursor starts a new listing. A rejected cursor restarts
// the listing from the first page and is reported through Restarted.
func (c *Catalog) LoadPage(ctx context.Context, channelID, cursor string) (domain.PageResult, error) {
	if channelID == "" {
		return domain.PageResult{}, oops.In("vod").Code("invalid_channel").Wrap(errs.ErrInvalidChannel)
	}

	ch := c.flights.DoChan(channelID, func() (any, error) {
		// The fetch outlives any single caller sharing the flight.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.load(fetchCtx, channelID, cursor)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.PageResult{}, res.Err
		}
		return res.Val.(domain.PageResult), nil
	case <-ctx.Done():
		return domain.PageResult{}, ctx.Err()
	}
}

// LoadNext continues the channel's listing from its stored cursor, starting
// a new one when none exists.
func (c *Catalog) LoadNext(ctx context.Context, channelID string) (domain.PageResult, error) {
	c.mu.Lock()
	l, ok := c.listings[channelID]
	if ok && l.terminal {
		res := l.result(channelID, 0, false)
		c.mu.Unlock()
		return res, nil
	}
	cursor := ""
	if ok {
		cursor = l.cursor
	}
	c.mu.Unlock()

	return c.LoadPage(ctx, channelID, cursor)
}

// Reset drops the channel's cached listing and cursor.
func (c *Catalog) Reset(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listings, channelID)
}

// Listing returns the VODs loaded so far for the channel.
func (c *Catalog) Listing(channelID string) (domain.PageResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.listings[channelID]
	if !ok {
		return domain.PageResult{ChannelID: channelID}, false
	}
	return l.result(channelID, 0, false), true
}

func (c *Catalog) load(ctx context.Context, channelID, cursor string) (domain.PageResult, error) {
	l := c.listingFor(channelID, cursor == "")

	page, err := c.fetcher.FetchVodPage(ctx, channelID, cursor)
	restarted := false
	if err != nil && cursor != "" && errors.Is(err, errs.ErrStaleCursor) {
		c.logger.Info("vod cursor rejected, restarting listing", "channel_id", channelID)
		restarted = true
		l = c.listingFor(channelID, true)
		page, err = c.fetcher.FetchVodPage(ctx, channelID, "")
	}
	if err != nil {
		return domain.PageResult{}, oops.In("vod").With("channel_id", channelID, "cursor", cursor).Wrap(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listings[channelID] != l {
		// Reset while the fetch was in flight; the page belongs to a dead listing.
		c.logger.Debug("dropping vod page for reset listing", "channel_id", channelID)
		return domain.PageResult{ChannelID: channelID, Restarted: restarted}, nil
	}

	added := l.append(channelID, page)
	if skipped := len(page.Vods) - added; skipped > 0 {
		c.logger.Debug("skipped vod entries", "channel_id", channelID, "skipped", skipped)
	}
	return l.result(channelID, added, restarted), nil
}

// listingFor returns the channel's listing, replacing it when fresh is set.
func (c *Catalog) listingFor(channelID string, fresh bool) *listing {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.listings[channelID]
	if !ok || fresh {
		l = newListing()
		c.listings[channelID] = l
	}
	return l
}

// append merges a page, skipping malformed and already listed entries, and
// keeps the listing ordered newest first.
func (l *listing) append(channelID string, page domain.Page) int {
	added := 0
	for _, v := range page.Vods {
		if !v.Valid() {
			continue
		}
		if _, dup := l.seen[v.ID]; dup {
			continue
		}
		v.ChannelID = lo.CoalesceOrEmpty(v.ChannelID, channelID)
		l.seen[v.ID] = struct{}{}
		l.vods = append(l.vods, v)
		added++
	}
	slices.SortStableFunc(l.vods, func(a, b domain.Vod) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	l.cursor = page.NextCursor
	l.terminal = page.NextCursor == ""
	return added
}

func (l *listing) result(channelID string, added int, restarted bool) domain.PageResult {
	return domain.PageResult{
		ChannelID:  channelID,
		Vods:       slices.Clone(l.vods),
		Added:      added,
		NextCursor: l.cursor,
		Terminal:   l.terminal,
		Restarted:  restarted,
	}
}
