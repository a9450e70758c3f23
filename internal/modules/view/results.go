package view

import (
	"slices"

	"github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/registry"
	"github.com/samber/lo"
)

// ResultsView shows the last search in backend rank order. Each search
// replaces the previous result set wholesale.
type ResultsView struct {
	base
	source Source
	query  string
	ranked []string
}

func NewResults(src Source) *ResultsView {
	return &ResultsView{base: newBase("results"), source: src}
}

// Replace installs a new result set and returns the ids it displaced.
func (v *ResultsView) Replace(query string, ids []string) []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	previous := v.ranked
	v.query = query
	v.ranked = lo.Uniq(lo.Compact(ids))
	if !v.recomputeLocked(registry.Change{}) {
		// A new query is a visible change even when the ids are the same.
		v.bumpLocked()
	}
	return previous
}

// Query returns the query that produced the current results.
func (v *ResultsView) Query() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.query
}

// Ranked returns every result id, including ones the filter hides.
func (v *ResultsView) Ranked() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.ranked)
}

func (v *ResultsView) SetFilter(filter string) {
	v.mu.Lock()
	v.filter = normalizeFilter(filter)
	v.mu.Unlock()
	v.recompute(registry.Change{})
}

func (v *ResultsView) OnRegistryChange(change registry.Change) {
	v.recompute(change)
}

func (v *ResultsView) recompute(change registry.Change) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recomputeLocked(change)
}

func (v *ResultsView) recomputeLocked(change registry.Change) bool {
	ids := lo.Filter(v.ranked, func(id string, _ int) bool {
		ch, ok := v.source.Get(id)
		return ok && matchesFilter(ch, v.filter)
	})
	return v.replaceLocked(ids, change)
}

func (v *ResultsView) Rows() []domain.Channel {
	return resolve(v.source, v.IDs())
}
