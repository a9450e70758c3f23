package view

import (
	"context"
	"sync"
)

// Hub owns every view, subscribes them to the registry, and exposes one
// combined version for clients that watch everything at once.
type Hub struct {
	Favourites *ListView
	Featured   *ListView
	Games      *GamesView
	Results    *ResultsView

	mu      sync.Mutex
	version uint64
	changed chan struct{}
}

// NewHub builds the views and subscribes them to src.
func NewHub(src Source) *Hub {
	h := &Hub{
		Favourites: NewFavourites(src),
		Featured:   NewFeatured(src),
		Games:      NewGames(src),
		Results:    NewResults(src),
		changed:    make(chan struct{}),
	}
	for _, b := range []*base{&h.Favourites.base, &h.Featured.base, &h.Games.base, &h.Results.base} {
		b.onBump = h.bump
	}

	src.Subscribe(h.Favourites)
	src.Subscribe(h.Featured)
	src.Subscribe(h.Games)
	src.Subscribe(h.Results)
	return h
}

// Filterable is a view that can be narrowed by a text filter.
type Filterable interface {
	Name() string
	Filter() string
	SetFilter(filter string)
}

// Filterable looks a view up by its transport name.
func (h *Hub) Filterable(name string) (Filterable, bool) {
	switch name {
	case h.Favourites.Name():
		return h.Favourites, true
	case h.Featured.Name():
		return h.Featured, true
	case h.Games.Name():
		return h.Games, true
	case h.Results.Name():
		return h.Results, true
	}
	return nil, false
}

func (h *Hub) bump() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version++
	close(h.changed)
	h.changed = make(chan struct{})
}

// Version is the combined version of all views.
func (h *Hub) Version() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.version
}

// WaitChange blocks until the combined version moves past since or ctx ends,
// and returns the version observed.
func (h *Hub) WaitChange(ctx context.Context, since uint64) uint64 {
	for {
		h.mu.Lock()
		version, changed := h.version, h.changed
		h.mu.Unlock()
		if version != since {
			return version
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return version
		}
	}
}
