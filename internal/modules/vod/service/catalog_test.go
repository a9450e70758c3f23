package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reshetovitsme/livewatch/internal/modules/vod/domain"
	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func vod(id string, hoursAgo int) domain.Vod {
	return domain.Vod{ID: id, Title: "vod " + id, DurationSeconds: 3600, CreatedAt: base.Add(-time.Duration(hoursAgo) * time.Hour)}
}

// pagedFetcher serves fixed pages keyed by cursor.
type pagedFetcher struct {
	mu     sync.Mutex
	pages  map[string]domain.Page
	stale  map[string]bool
	gate   chan struct{}
	calls  atomic.Int32
	cursor []string
}

func (f *pagedFetcher) FetchVodPage(ctx context.Context, channelID, cursor string) (domain.Page, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.cursor = append(f.cursor, cursor)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Page{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stale[cursor] {
		return domain.Page{}, oops.With("cursor", cursor).Wrap(errs.ErrStaleCursor)
	}
	page, ok := f.pages[cursor]
	if !ok {
		return domain.Page{}, errs.ErrMalformedResponse
	}
	return page, nil
}

func newTestCatalog(f *pagedFetcher) *Catalog {
	return NewCatalog(f, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func twoPages() map[string]domain.Page {
	return map[string]domain.Page{
		"":   {Vods: []domain.Vod{vod("v1", 1), vod("v2", 2)}, NextCursor: "c2"},
		"c2": {Vods: []domain.Vod{vod("v2", 2), vod("v3", 3), {ID: "", CreatedAt: base}}, NextCursor: ""},
	}
}

func ids(vods []domain.Vod) []string {
	return lo.Map(vods, func(v domain.Vod, _ int) string { return v.ID })
}

func TestCatalogLoadsTwoPages(t *testing.T) {
	f := &pagedFetcher{pages: twoPages()}
	c := newTestCatalog(f)
	ctx := context.Background()

	first, err := c.LoadPage(ctx, "chan", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, ids(first.Vods))
	assert.Equal(t, "c2", first.NextCursor)
	assert.False(t, first.Terminal)

	second, err := c.LoadPage(ctx, "chan", first.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2", "v3"}, ids(second.Vods))
	assert.Equal(t, 1, second.Added, "duplicate and malformed entries are skipped")
	assert.True(t, second.Terminal)
	assert.Empty(t, second.NextCursor)

	for i := 1; i < len(second.Vods); i++ {
		assert.False(t, second.Vods[i].CreatedAt.After(second.Vods[i-1].CreatedAt))
	}
	assert.Equal(t, "chan", second.Vods[0].ChannelID)
}

func TestCatalogLoadNextStopsAtTerminal(t *testing.T) {
	f := &pagedFetcher{pages: twoPages()}
	c := newTestCatalog(f)
	ctx := context.Background()

	_, err := c.LoadNext(ctx, "chan")
	require.NoError(t, err)
	_, err = c.LoadNext(ctx, "chan")
	require.NoError(t, err)
	res, err := c.LoadNext(ctx, "chan")
	require.NoError(t, err)

	assert.True(t, res.Terminal)
	assert.Len(t, res.Vods, 3)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestCatalogStaleCursorRestarts(t *testing.T) {
	f := &pagedFetcher{pages: twoPages(), stale: map[string]bool{"c2": true}}
	c := newTestCatalog(f)
	ctx := context.Background()

	_, err := c.LoadPage(ctx, "chan", "")
	require.NoError(t, err)

	res, err := c.LoadPage(ctx, "chan", "c2")
	require.NoError(t, err)
	assert.True(t, res.Restarted)
	assert.Equal(t, []string{"v1", "v2"}, ids(res.Vods))
	assert.Equal(t, "c2", res.NextCursor)
	assert.Equal(t, []string{"", "c2", ""}, f.cursor)
}

func TestCatalogPropagatesOtherErrors(t *testing.T) {
	f := &pagedFetcher{pages: map[string]domain.Page{}}
	c := newTestCatalog(f)

	_, err := c.LoadPage(context.Background(), "chan", "")
	require.ErrorIs(t, err, errs.ErrMalformedResponse)

	_, err = c.LoadPage(context.Background(), "", "")
	require.ErrorIs(t, err, errs.ErrInvalidChannel)
}

func TestCatalogSharesInFlightFetch(t *testing.T) {
	f := &pagedFetcher{pages: twoPages(), gate: make(chan struct{})}
	c := newTestCatalog(f)

	var wg sync.WaitGroup
	results := make([]domain.PageResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.LoadPage(context.Background(), "chan", "")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the flight.
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.EqualValues(t, 1, f.calls.Load())
	for _, res := range results {
		assert.Equal(t, []string{"v1", "v2"}, ids(res.Vods))
	}
}

func TestCatalogResetDropsListing(t *testing.T) {
	f := &pagedFetcher{pages: twoPages()}
	c := newTestCatalog(f)
	ctx := context.Background()

	_, err := c.LoadPage(ctx, "chan", "")
	require.NoError(t, err)
	_, ok := c.Listing("chan")
	require.True(t, ok)

	c.Reset("chan")
	_, ok = c.Listing("chan")
	assert.False(t, ok)

	res, err := c.LoadNext(ctx, "chan")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, ids(res.Vods))
}

func TestCatalogDropsPageLoadedAcrossReset(t *testing.T) {
	f := &pagedFetcher{pages: twoPages(), gate: make(chan struct{})}
	c := newTestCatalog(f)

	done := make(chan domain.PageResult, 1)
	go func() {
		res, err := c.LoadPage(context.Background(), "chan", "")
		assert.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	c.Reset("chan")
	close(f.gate)

	res := <-done
	assert.Empty(t, res.Vods)
	_, ok := c.Listing("chan")
	assert.False(t, ok)
}
