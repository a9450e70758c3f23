package view

import (
	"slices"

	"github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/registry"
	"github.com/samber/lo"
)

// ListView selects channels by a predicate and keeps them in a fixed order.
type ListView struct {
	base
	source  Source
	include func(domain.Channel) bool
	compare func(a, b domain.Channel) int
}

func newListView(name string, src Source, include func(domain.Channel) bool, compare func(a, b domain.Channel) int) *ListView {
	v := &ListView{
		base:    newBase(name),
		source:  src,
		include: include,
		compare: compare,
	}
	v.recompute(registry.Change{})
	return v
}

// NewFavourites lists favourite channels, live ones first, then by name.
func NewFavourites(src Source) *ListView {
	return newListView("favourites", src,
		func(c domain.Channel) bool { return c.Favourite },
		func(a, b domain.Channel) int {
			if a.IsLive() != b.IsLive() {
				if a.IsLive() {
					return -1
				}
				return 1
			}
			return compareNames(a, b)
		},
	)
}

// NewFeatured lists featured channels in backend order.
func NewFeatured(src Source) *ListView {
	return newListView("featured", src,
		func(c domain.Channel) bool { return c.Featured },
		func(a, b domain.Channel) int {
			if a.FeaturedRank != b.FeaturedRank {
				return a.FeaturedRank - b.FeaturedRank
			}
			return compareNames(a, b)
		},
	)
}

func (v *ListView) OnRegistryChange(change registry.Change) {
	v.recompute(change)
}

// SetFilter narrows the view to channels whose names contain filter.
// It recomputes at once and must run on the control loop.
func (v *ListView) SetFilter(filter string) {
	v.mu.Lock()
	v.filter = normalizeFilter(filter)
	v.mu.Unlock()
	v.recompute(registry.Change{})
}

func (v *ListView) recompute(change registry.Change) {
	v.mu.Lock()
	defer v.mu.Unlock()

	filter := v.filter
	channels := v.source.Iterate(func(c domain.Channel) bool {
		return v.include(c) && matchesFilter(c, filter)
	})
	slices.SortStableFunc(channels, v.compare)
	v.replaceLocked(lo.Map(channels, func(c domain.Channel, _ int) string { return c.ID }), change)
}

// Rows resolves the view's ids against the registry.
func (v *ListView) Rows() []domain.Channel {
	return resolve(v.source, v.IDs())
}
