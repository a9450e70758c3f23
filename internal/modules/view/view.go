// Package view keeps UI-facing projections of the registry current.
//
// Views hold channel ids and derived rows only. Channel data is resolved
// against the registry on read, so a view never serves a stale copy.
// Recomputation happens inside the registry subscriber callback, which runs
// on the control loop.
package view

import (
	"slices"
	"strings"
	"sync"

	"github.com/reshetovitsme/livewatch/internal/engine"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/registry"
)

// Source is the read side of the registry.
type Source interface {
	Get(id string) (domain.Channel, bool)
	Iterate(pred func(domain.Channel) bool) []domain.Channel
	Referenced(id string) bool
	Subscribe(s registry.Subscriber)
}

// base carries the state every view shares: current ids, a version that moves
// on every visible change, and the watcher signal.
type base struct {
	name    string
	mu      sync.RWMutex
	ids     []string
	filter  string
	version uint64
	signal  *engine.Signal
	onBump  func()
}

func newBase(name string) base {
	return base{name: name, signal: engine.NewSignal()}
}

// Name identifies the view in transports.
func (b *base) Name() string {
	return b.name
}

// Version increases every time the view's rows change.
func (b *base) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Watch subscribes to coalesced change signals.
func (b *base) Watch() (<-chan struct{}, func()) {
	return b.signal.Watch()
}

// IDs returns the ordered channel ids currently in the view.
func (b *base) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.ids)
}

// Filter returns the active text filter.
func (b *base) Filter() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

// replaceLocked swaps in ids and signals watchers when the ids moved or a row
// they point at changed. Callers hold b.mu.
func (b *base) replaceLocked(ids []string, change registry.Change) bool {
	if slices.Equal(b.ids, ids) && !change.Touches(toSet(ids)) {
		return false
	}
	b.ids = ids
	b.bumpLocked()
	return true
}

func (b *base) bumpLocked() {
	b.version++
	b.signal.Notify()
	if b.onBump != nil {
		b.onBump()
	}
}

func resolve(src Source, ids []string) []domain.Channel {
	out := make([]domain.Channel, 0, len(ids))
	for _, id := range ids {
		if ch, ok := src.Get(id); ok {
			out = append(out, ch)
		}
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// matchesFilter does a case-insensitive substring match on the names a user
// would type.
func matchesFilter(ch domain.Channel, filter string) bool {
	if filter == "" {
		return true
	}
	for _, field := range []string{ch.DisplayName, ch.Login, ch.GameName, ch.Title} {
		if strings.Contains(strings.ToLower(field), filter) {
			return true
		}
	}
	return false
}

func normalizeFilter(filter string) string {
	return strings.ToLower(strings.TrimSpace(filter))
}

func compareNames(a, b domain.Channel) int {
	if c := strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
