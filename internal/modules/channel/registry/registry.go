// Package registry is the canonical in-memory store of tracked channels.
//
// Mutations are expected to come from the control loop only. Reads are safe
// from any goroutine. Every mutation notifies subscribers synchronously before
// it returns, after the registry lock has been released, so subscribers can
// read the registry while handling the change.
package registry

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const DefaultCapacity = 500

// Change lists the channel ids touched by one registry mutation.
type Change struct {
	Updated []string
	Removed []string
	// Interest lists ids whose first view reference was taken or whose last
	// one was dropped.
	Interest []string
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return len(c.Updated) == 0 && len(c.Removed) == 0 && len(c.Interest) == 0
}

// Touches reports whether the change concerns any of ids.
func (c Change) Touches(ids map[string]struct{}) bool {
	for _, group := range [][]string{c.Updated, c.Removed, c.Interest} {
		for _, id := range group {
			if _, ok := ids[id]; ok {
				return true
			}
		}
	}
	return false
}

// Subscriber is notified after every registry mutation.
type Subscriber interface {
	OnRegistryChange(change Change)
}

// Entry is one channel id with the update to merge into it.
type Entry struct {
	ID     string
	Update domain.StatusUpdate
}

// Registry owns every Channel record, keyed by id.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*domain.Channel
	refs     map[string]int
	// idle tracks unreferenced non-favourite channels, oldest first.
	idle    *simplelru.LRU[string, struct{}]
	evicted []string

	subsMu      sync.RWMutex
	subscribers []Subscriber

	now    func() time.Time
	logger *slog.Logger
}

// New creates a registry that keeps at most capacity idle channels.
func New(capacity int, logger *slog.Logger) (*Registry, error) {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	r := &Registry{
		channels: make(map[string]*domain.Channel),
		refs:     make(map[string]int),
		now:      time.Now,
		logger:   logger.With("component", "registry"),
	}
	idle, err := simplelru.NewLRU[string, struct{}](capacity, func(id string, _ struct{}) {
		r.evicted = append(r.evicted, id)
	})
	if err != nil {
		return nil, oops.In("registry").With("capacity", capacity).Wrap(err)
	}
	r.idle = idle
	return r, nil
}

// Subscribe registers s for mutation notifications.
func (r *Registry) Subscribe(s Subscriber) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	r.subscribers = append(r.subscribers, s)
}

func (r *Registry) publish(change Change) {
	if change.Empty() {
		return
	}
	r.subsMu.RLock()
	subs := slices.Clone(r.subscribers)
	r.subsMu.RUnlock()

	for _, s := range subs {
		s.OnRegistryChange(change)
	}
}

// Upsert merges update into the channel with the given id, creating it when
// missing. Local fields (favourite, featured, last notified) are never touched.
// Applying the same update twice yields an empty delta the second time.
func (r *Registry) Upsert(id string, update domain.StatusUpdate) domain.Delta {
	deltas := r.UpsertMany([]Entry{{ID: id, Update: update}})
	if len(deltas) == 0 {
		return domain.Delta{ChannelID: id}
	}
	return deltas[0]
}

// UpsertMany applies several updates under one notification. Empty ids are
// skipped; the result has one delta per applied entry, in input order.
func (r *Registry) UpsertMany(entries []Entry) []domain.Delta {
	r.mu.Lock()
	deltas := make([]domain.Delta, 0, len(entries))
	var change Change
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		delta := r.upsertLocked(e.ID, e.Update)
		if !delta.Empty() {
			change.Updated = append(change.Updated, e.ID)
		}
		deltas = append(deltas, delta)
	}
	change.Removed = r.collectEvictedLocked()
	r.mu.Unlock()

	r.publish(change)
	return deltas
}

func (r *Registry) upsertLocked(id string, u domain.StatusUpdate) domain.Delta {
	ch, ok := r.channels[id]
	created := !ok
	if created {
		ch = &domain.Channel{
			ID:                 id,
			LiveStatus:         domain.LiveStatusUnknown,
			LastNotifiedStatus: domain.LiveStatusUnknown,
		}
		r.channels[id] = ch
	}

	old := ch.LiveStatus
	changed := false
	changed = mergeString(&ch.Login, u.Login) || changed
	changed = mergeString(&ch.DisplayName, u.DisplayName) || changed
	changed = mergeString(&ch.Title, u.Title) || changed
	changed = mergeString(&ch.GameID, u.GameID) || changed
	changed = mergeString(&ch.GameName, u.GameName) || changed
	changed = mergeString(&ch.Thumbnail, u.Thumbnail) || changed
	if u.LiveStatus != nil && *u.LiveStatus != ch.LiveStatus {
		ch.LiveStatus = *u.LiveStatus
		changed = true
	}
	if u.ViewerCount != nil {
		viewers := max(*u.ViewerCount, 0)
		if viewers != ch.ViewerCount {
			ch.ViewerCount = viewers
			changed = true
		}
	}
	if ch.DisplayName == "" {
		ch.DisplayName = lo.CoalesceOrEmpty(ch.Login, id)
	}
	if created || changed {
		ch.UpdatedAt = r.now()
	}
	r.touchIdleLocked(id)

	return domain.Delta{
		ChannelID: id,
		Created:   created,
		Changed:   changed,
		OldStatus: old,
		NewStatus: ch.LiveStatus,
		Channel:   *ch,
	}
}

func mergeString(dst *string, v *string) bool {
	if v == nil || *dst == *v {
		return false
	}
	*dst = *v
	return true
}

// touchIdleLocked keeps the idle LRU in sync with the channel's retention state.
func (r *Registry) touchIdleLocked(id string) {
	ch, ok := r.channels[id]
	if !ok {
		return
	}
	if ch.Favourite || r.refs[id] > 0 {
		r.idle.Remove(id)
		return
	}
	r.idle.Add(id, struct{}{})
}

// collectEvictedLocked drops channels pushed out of the idle LRU, unless they
// became favourite or referenced in the meantime.
func (r *Registry) collectEvictedLocked() []string {
	if len(r.evicted) == 0 {
		return nil
	}
	var removed []string
	for _, id := range r.evicted {
		ch, ok := r.channels[id]
		if !ok || ch.Favourite || r.refs[id] > 0 {
			continue
		}
		delete(r.channels, id)
		removed = append(removed, id)
	}
	r.evicted = r.evicted[:0]
	if len(removed) > 0 {
		r.logger.Debug("evicted idle channels", "count", len(removed))
	}
	return removed
}

// Get returns a copy of the channel.
func (r *Registry) Get(id string) (domain.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	if !ok {
		return domain.Channel{}, false
	}
	return *ch, true
}

// SetFavourite flags or unflags a channel, creating an empty record when the
// channel has not been observed yet. Live status is never touched.
func (r *Registry) SetFavourite(id string, favourite bool) bool {
	if id == "" {
		return false
	}
	r.mu.Lock()
	ch, ok := r.channels[id]
	if !ok {
		if !favourite {
			r.mu.Unlock()
			return false
		}
		ch = &domain.Channel{
			ID:                 id,
			DisplayName:        id,
			LiveStatus:         domain.LiveStatusUnknown,
			LastNotifiedStatus: domain.LiveStatusUnknown,
			UpdatedAt:          r.now(),
		}
		r.channels[id] = ch
	}
	if ok && ch.Favourite == favourite {
		r.mu.Unlock()
		return false
	}
	ch.Favourite = favourite
	r.touchIdleLocked(id)
	change := Change{Updated: []string{id}, Removed: r.collectEvictedLocked()}
	r.mu.Unlock()

	r.publish(change)
	return true
}

// SetFeatured marks exactly ids as featured, in the given order.
func (r *Registry) SetFeatured(ids []string) {
	rank := make(map[string]int, len(ids))
	for i, id := range lo.Uniq(ids) {
		rank[id] = i + 1
	}

	r.mu.Lock()
	var change Change
	for id, ch := range r.channels {
		newRank := rank[id]
		if ch.FeaturedRank == newRank {
			continue
		}
		ch.FeaturedRank = newRank
		ch.Featured = newRank > 0
		change.Updated = append(change.Updated, id)
	}
	r.mu.Unlock()

	r.publish(change)
}

// MarkNotified records the last status a notification was emitted for.
// Views do not depend on it, so subscribers are not notified.
func (r *Registry) MarkNotified(id string, status domain.LiveStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[id]; ok {
		ch.LastNotifiedStatus = status
	}
}

// Retain marks channels as referenced by a view.
func (r *Registry) Retain(ids ...string) {
	r.mu.Lock()
	var change Change
	for _, id := range ids {
		if id == "" {
			continue
		}
		if r.refs[id] == 0 {
			change.Interest = append(change.Interest, id)
		}
		r.refs[id]++
		r.idle.Remove(id)
	}
	r.evicted = r.evicted[:0]
	r.mu.Unlock()

	r.publish(change)
}

// Release drops one reference per id. Unreferenced non-favourites become
// eligible for eviction.
func (r *Registry) Release(ids ...string) {
	r.mu.Lock()
	var change Change
	for _, id := range ids {
		switch n := r.refs[id]; {
		case n == 0:
			continue
		case n == 1:
			delete(r.refs, id)
			change.Interest = append(change.Interest, id)
		default:
			r.refs[id]--
		}
		r.touchIdleLocked(id)
	}
	change.Removed = r.collectEvictedLocked()
	r.mu.Unlock()

	r.publish(change)
}

// Referenced reports whether any view holds the channel.
func (r *Registry) Referenced(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refs[id] > 0
}

// Iterate returns copies of every channel matching pred, ordered by id.
func (r *Registry) Iterate(pred func(domain.Channel) bool) []domain.Channel {
	r.mu.RLock()
	out := make([]domain.Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		if pred == nil || pred(*ch) {
			out = append(out, *ch)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Channel) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Favourites returns the ids of favourite channels, sorted.
func (r *Registry) Favourites() []string {
	return lo.Map(r.Iterate(func(c domain.Channel) bool { return c.Favourite }), func(c domain.Channel, _ int) string {
		return c.ID
	})
}

// InterestSet returns the ids the poller must refresh: favourites plus every
// channel a view currently references.
func (r *Registry) InterestSet() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.refs))
	for id, ch := range r.channels {
		if ch.Favourite || r.refs[id] > 0 {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Len returns the number of tracked channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
