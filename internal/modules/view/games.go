package view

import (
	"slices"
	"strings"

	"github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/registry"
	"github.com/samber/lo"
)

// GamesView groups live channels by game, busiest game first. Only
// favourites and channels some view still references are counted.
type GamesView struct {
	base
	source     Source
	categories []domain.GameCategory
}

func NewGames(src Source) *GamesView {
	v := &GamesView{base: newBase("games"), source: src}
	v.recompute(registry.Change{})
	return v
}

func (v *GamesView) OnRegistryChange(change registry.Change) {
	v.recompute(change)
}

// SetFilter narrows the view to games whose name contains filter.
// It recomputes at once and must run on the control loop.
func (v *GamesView) SetFilter(filter string) {
	v.mu.Lock()
	v.filter = normalizeFilter(filter)
	v.mu.Unlock()
	v.recompute(registry.Change{})
}

func (v *GamesView) recompute(change registry.Change) {
	v.mu.Lock()
	defer v.mu.Unlock()

	live := lo.Filter(v.source.Iterate(func(c domain.Channel) bool {
		return c.IsLive() && c.GameKey() != ""
	}), func(c domain.Channel, _ int) bool {
		return c.Favourite || v.source.Referenced(c.ID)
	})
	categories := aggregateGames(live)
	if v.filter != "" {
		categories = lo.Filter(categories, func(g domain.GameCategory, _ int) bool {
			return strings.Contains(strings.ToLower(g.Name), v.filter)
		})
	}

	if slices.EqualFunc(v.categories, categories, equalCategory) && !change.Touches(toSet(v.ids)) {
		return
	}
	v.categories = categories
	v.ids = lo.FlatMap(categories, func(g domain.GameCategory, _ int) []string { return g.ChannelIDs })
	v.bumpLocked()
}

func aggregateGames(live []domain.Channel) []domain.GameCategory {
	groups := lo.GroupBy(live, func(c domain.Channel) string { return c.GameKey() })

	categories := make([]domain.GameCategory, 0, len(groups))
	for key, channels := range groups {
		slices.SortFunc(channels, func(a, b domain.Channel) int {
			if a.ViewerCount != b.ViewerCount {
				return b.ViewerCount - a.ViewerCount
			}
			return compareNames(a, b)
		})
		categories = append(categories, domain.GameCategory{
			ID:         key,
			Name:       lo.CoalesceOrEmpty(channels[0].GameName, key),
			Viewers:    lo.SumBy(channels, func(c domain.Channel) int { return c.ViewerCount }),
			ChannelIDs: lo.Map(channels, func(c domain.Channel, _ int) string { return c.ID }),
		})
	}

	slices.SortFunc(categories, func(a, b domain.GameCategory) int {
		if a.Viewers != b.Viewers {
			return b.Viewers - a.Viewers
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return categories
}

func equalCategory(a, b domain.GameCategory) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Viewers == b.Viewers && slices.Equal(a.ChannelIDs, b.ChannelIDs)
}

// Rows returns the current categories.
func (v *GamesView) Rows() []domain.GameCategory {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return lo.Map(v.categories, func(g domain.GameCategory, _ int) domain.GameCategory {
		g.ChannelIDs = slices.Clone(g.ChannelIDs)
		return g
	})
}

// Channels resolves the channels of one game, busiest first. It reports
// false when the game is not in the view.
func (v *GamesView) Channels(gameID string) ([]domain.Channel, bool) {
	v.mu.RLock()
	g, ok := lo.Find(v.categories, func(g domain.GameCategory) bool { return g.ID == gameID })
	v.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return resolve(v.source, g.ChannelIDs), true
}
