package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/reshetovitsme/livewatch/internal/engine"
	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/registry"
	channelRepo "github.com/reshetovitsme/livewatch/internal/modules/channel/repository"
	channelService "github.com/reshetovitsme/livewatch/internal/modules/channel/service"
	feedService "github.com/reshetovitsme/livewatch/internal/modules/feed/service"
	notifyDomain "github.com/reshetovitsme/livewatch/internal/modules/notify/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/poller"
	"github.com/reshetovitsme/livewatch/internal/modules/view"
	vodDomain "github.com/reshetovitsme/livewatch/internal/modules/vod/domain"
	vodService "github.com/reshetovitsme/livewatch/internal/modules/vod/service"
	"github.com/reshetovitsme/livewatch/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct{}

func (stubDirectory) Search(_ context.Context, query string) ([]channelDomain.Snapshot, error) {
	return []channelDomain.Snapshot{{ID: "42", Login: query, DisplayName: "Found"}}, nil
}

func (stubDirectory) LookupChannels(context.Context, []string) ([]channelDomain.Snapshot, error) {
	return nil, nil
}

func (stubDirectory) FetchFeatured(context.Context) ([]channelDomain.Snapshot, error) {
	return nil, nil
}

func (stubDirectory) FetchTopGames(context.Context) ([]channelDomain.GameSnapshot, error) {
	return nil, nil
}

type noopRefresher struct{}

func (noopRefresher) Refresh(context.Context, []string) {}

type stubPages struct{}

func (stubPages) FetchVodPage(_ context.Context, channelID, cursor string) (vodDomain.Page, error) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if cursor == "" {
		return vodDomain.Page{
			Vods:       []vodDomain.Vod{{ID: "v1", ChannelID: channelID, Title: "first", CreatedAt: created}},
			NextCursor: "c2",
		}, nil
	}
	return vodDomain.Page{
		Vods: []vodDomain.Vod{{ID: "v2", ChannelID: channelID, Title: "second", CreatedAt: created.Add(-time.Hour)}},
	}, nil
}

type stubStats struct{}

func (stubStats) Stats() poller.Stats { return poller.Stats{Ticks: 3} }

type fixture struct {
	handler  http.Handler
	registry *registry.Registry
	views    *view.Hub
	feed     *feedService.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	loop := engine.NewLoop(16, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)

	reg, err := registry.New(64, logger)
	require.NoError(t, err)
	hub := view.NewHub(reg)
	repo, err := channelRepo.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	channels := channelService.New(loop, reg, hub, repo, stubDirectory{}, noopRefresher{}, time.Hour, logger)
	feed := feedService.New(10)
	catalog := vodService.NewCatalog(stubPages{}, logger)
	cfg := &config.Config{HTTPPort: "0", PublicURL: "http://watch.test"}

	srv := New(cfg, channels, hub, catalog, feed, stubStats{}, logger)
	return &fixture{handler: srv.Handler(), registry: reg, views: hub, feed: feed}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestFollowAndListFavourites(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/favourites/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ch := decodeBody[channelDomain.Channel](t, rec)
	assert.Equal(t, "a", ch.ID)
	assert.True(t, ch.Favourite)

	rec = f.do(t, http.MethodGet, "/api/favourites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[channelList](t, rec)
	assert.Equal(t, "favourites", list.View)
	require.Len(t, list.Channels, 1)
	assert.Equal(t, "a", list.Channels[0].ID)

	rec = f.do(t, http.MethodDelete, "/api/favourites/a", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/favourites", "")
	assert.Empty(t, decodeBody[channelList](t, rec).Channels)
}

func TestUnknownChannelIsNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/channels/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "channel not found")
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/search", `{"query":"speedrun"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[channelList](t, rec)
	assert.Equal(t, "speedrun", list.Query)
	require.Len(t, list.Channels, 1)
	assert.Equal(t, "42", list.Channels[0].ID)

	rec = f.do(t, http.MethodGet, "/api/results", "")
	assert.Equal(t, "speedrun", decodeBody[channelList](t, rec).Query)
}

func TestSearchRejectsInvalidBodies(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `query=x`},
		{name: "empty query", body: `{"query":""}`},
		{name: "too long", body: `{"query":"` + strings.Repeat("x", 101) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/search", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSetFilter(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/views/featured/filter", `{"filter":"Zelda"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "zelda", f.views.Featured.Filter())
	assert.Empty(t, f.views.Favourites.Filter())

	rec = f.do(t, http.MethodPut, "/api/views/nope/filter", `{"filter":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMountValidatesIDs(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/mount", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/mount", `{"ids":["x","y"]}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, f.registry.Referenced("x"))

	rec = f.do(t, http.MethodPost, "/api/unmount", `{"ids":["x","y"]}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.registry.Referenced("x"))
}

func TestVodPaging(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/channels/7/vods", "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeBody[vodDomain.PageResult](t, rec)
	assert.Len(t, first.Vods, 1)
	assert.Equal(t, "c2", first.NextCursor)
	assert.False(t, first.Terminal)

	rec = f.do(t, http.MethodGet, "/api/channels/7/vods?next=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeBody[vodDomain.PageResult](t, rec)
	assert.Len(t, second.Vods, 2)
	assert.True(t, second.Terminal)

	// Without parameters the loaded listing is returned as is.
	rec = f.do(t, http.MethodGet, "/api/channels/7/vods", "")
	assert.Len(t, decodeBody[vodDomain.PageResult](t, rec).Vods, 2)

	rec = f.do(t, http.MethodDelete, "/api/channels/7/vods", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWatchReturnsOnChange(t *testing.T) {
	f := newFixture(t)
	since := f.views.Version()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- f.do(t, http.MethodGet, "/api/watch?timeout=5s&since="+strconv.FormatUint(since, 10), "")
	}()

	time.Sleep(20 * time.Millisecond)
	f.do(t, http.MethodPut, "/api/favourites/a", "")

	select {
	case rec := <-done:
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, true, body["changed"])
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not return after a change")
	}
}

func TestWatchTimesOut(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/watch?timeout=10ms&since="+strconv.FormatUint(f.views.Version(), 10), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody[map[string]any](t, rec)["changed"])
}

func TestRSSFeed(t *testing.T) {
	f := newFixture(t)
	ch := channelDomain.Channel{ID: "a", DisplayName: "Alice", GameName: "Chess"}
	require.NoError(t, f.feed.Deliver(context.Background(), notifyDomain.NewWentLive(ch, time.Now())))

	rec := f.do(t, http.MethodGet, "/rss/live", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	assert.Contains(t, rec.Body.String(), "Alice is live playing Chess")
	assert.Contains(t, rec.Body.String(), "http://watch.test/rss/live")
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ticks":3`)
}

func TestGetScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "http", getScheme(req))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https", getScheme(req))
}
