package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/reshetovitsme/livewatch/internal/engine"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/channel/registry"
	channelRepo "github.com/reshetovitsme/livewatch/internal/modules/channel/repository"
	"github.com/reshetovitsme/livewatch/internal/modules/view"
	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const DefaultDirectoryInterval = 10 * time.Minute

// Directory is the remote catalog of channels beyond the user's favourites.
type Directory interface {
	Search(ctx context.Context, query string) ([]domain.Snapshot, error)
	LookupChannels(ctx context.Context, logins []string) ([]domain.Snapshot, error)
	FetchFeatured(ctx context.Context) ([]domain.Snapshot, error)
	FetchTopGames(ctx context.Context) ([]domain.GameSnapshot, error)
}

// StatusRefresher polls channels outside the regular schedule.
type StatusRefresher interface {
	Refresh(ctx context.Context, ids []string)
}

// Service is the command side used by transports. Every registry mutation
// goes through the control loop.
type Service struct {
	loop      *engine.Loop
	registry  *registry.Registry
	views     *view.Hub
	repo      channelRepo.FavouriteRepository
	directory Directory
	refresher StatusRefresher
	interval  time.Duration
	logger    *slog.Logger

	// Owned by the control loop.
	featured []string
	games    []string

	saveMu   sync.Mutex
	saveSeq  uint64
	savedSeq uint64
}

// New creates a new channel service
func New(
	loop *engine.Loop,
	reg *registry.Registry,
	views *view.Hub,
	repo channelRepo.FavouriteRepository,
	directory Directory,
	refresher StatusRefresher,
	interval time.Duration,
	logger *slog.Logger,
) *Service {
	if interval <= 0 {
		interval = DefaultDirectoryInterval
	}
	return &Service{
		loop:      loop,
		registry:  reg,
		views:     views,
		repo:      repo,
		directory: directory,
		refresher: refresher,
		interval:  interval,
		logger:    logger.With("component", "channel_service"),
	}
}

// Start loads the persisted favourite set into the registry. A load failure
// is logged and the service starts with no favourites.
func (s *Service) Start(ctx context.Context) error {
	ids, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load favourites", "error", err)
		ids = nil
	}

	if err := s.loop.Call(ctx, func() {
		for _, id := range ids {
			s.registry.SetFavourite(id, true)
		}
	}); err != nil {
		return oops.In("channel").With("context", "failed to restore favourites").Wrap(err)
	}

	s.logger.Info("favourites restored", "count", len(ids))
	return nil
}

// Run refreshes the featured and top games lists until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.refreshDirectory(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.refreshDirectory(ctx)
		}
	}
}

func (s *Service) refreshDirectory(ctx context.Context) {
	if err := s.RefreshFeatured(ctx); err != nil {
		s.logger.Warn("Failed to refresh featured channels", "error", err)
	}
	if err := s.RefreshGames(ctx); err != nil {
		s.logger.Warn("Failed to refresh top games", "error", err)
	}
}

// Follow marks a channel as favourite and persists the full set.
func (s *Service) Follow(ctx context.Context, channelID string) error {
	return s.setFavourite(ctx, channelID, true)
}

// Unfollow removes a channel from the favourites and persists the full set.
func (s *Service) Unfollow(ctx context.Context, channelID string) error {
	return s.setFavourite(ctx, channelID, false)
}

// FollowByLogin resolves a login name and follows the channel.
func (s *Service) FollowByLogin(ctx context.Context, login string) (domain.Channel, error) {
	ch, err := s.Resolve(ctx, login)
	if err != nil {
		return domain.Channel{}, err
	}
	if err := s.Follow(ctx, ch.ID); err != nil {
		return domain.Channel{}, err
	}
	ch, _ = s.registry.Get(ch.ID)
	return ch, nil
}

// Resolve finds a channel by id among known channels, or by login remotely.
func (s *Service) Resolve(ctx context.Context, loginOrID string) (domain.Channel, error) {
	key := strings.ToLower(strings.TrimSpace(loginOrID))
	if key == "" {
		return domain.Channel{}, oops.In("channel").Wrap(errs.ErrInvalidChannel)
	}
	if ch, ok := s.registry.Get(key); ok {
		return ch, nil
	}
	if known := s.registry.Iterate(func(c domain.Channel) bool { return strings.EqualFold(c.Login, key) }); len(known) > 0 {
		return known[0], nil
	}

	snaps, err := s.directory.LookupChannels(ctx, []string{key})
	if err != nil {
		return domain.Channel{}, oops.In("channel").With("login", key).Wrap(err)
	}
	if len(snaps) == 0 {
		return domain.Channel{}, oops.In("channel").With("login", key).Wrap(errs.ErrChannelNotFound)
	}

	snap := snaps[0]
	if err := s.loop.Call(ctx, func() { s.registry.Upsert(snap.ID, snap.Descriptor()) }); err != nil {
		return domain.Channel{}, err
	}
	ch, _ := s.registry.Get(snap.ID)
	return ch, nil
}

func (s *Service) setFavourite(ctx context.Context, channelID string, favourite bool) error {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return oops.In("channel").Wrap(errs.ErrInvalidChannel)
	}

	var (
		changed bool
		ids     []string
		seq     uint64
	)
	if err := s.loop.Call(ctx, func() {
		changed = s.registry.SetFavourite(channelID, favourite)
		if changed {
			ids = s.registry.Favourites()
			s.saveSeq++
			seq = s.saveSeq
		}
	}); err != nil {
		return oops.In("channel").With("channel_id", channelID).Wrap(err)
	}
	if !changed {
		return nil
	}

	s.persist(ctx, ids, seq)
	if favourite {
		s.refresher.Refresh(ctx, []string{channelID})
	}
	s.logger.Info("favourite updated", "channel_id", channelID, "favourite", favourite)
	return nil
}

// persist writes the full favourite set. Snapshots are numbered on the
// control loop; an older snapshot never overwrites a newer one.
func (s *Service) persist(ctx context.Context, ids []string, seq uint64) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if seq <= s.savedSeq {
		return
	}
	if err := s.repo.Save(context.WithoutCancel(ctx), ids); err != nil {
		s.logger.Error("Failed to save favourites", "count", len(ids), "error", err)
		return
	}
	s.savedSeq = seq
}

// Search replaces the result view with channels matching query.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Channel, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, oops.In("channel").Wrap(errs.ErrEmptyQuery)
	}

	snaps, err := s.directory.Search(ctx, query)
	if err != nil {
		return nil, oops.In("channel").With("query", query).Wrap(err)
	}
	ids := snapshotIDs(snaps)

	if err := s.loop.Call(ctx, func() {
		s.registry.Retain(ids...)
		s.registry.UpsertMany(descriptors(snaps))
		previous := s.views.Results.Replace(query, ids)
		s.registry.Release(previous...)
	}); err != nil {
		return nil, oops.In("channel").With("query", query).Wrap(err)
	}

	s.refresher.Refresh(ctx, ids)
	return s.views.Results.Rows(), nil
}

// RefreshFeatured replaces the featured list with the backend's current one.
func (s *Service) RefreshFeatured(ctx context.Context) error {
	snaps, err := s.directory.FetchFeatured(ctx)
	if err != nil {
		return oops.In("channel").With("context", "failed to fetch featured").Wrap(err)
	}
	ids := snapshotIDs(snaps)

	if err := s.loop.Call(ctx, func() {
		s.registry.Retain(ids...)
		s.registry.UpsertMany(descriptors(snaps))
		s.registry.SetFeatured(ids)
		s.registry.Release(s.featured...)
		s.featured = ids
	}); err != nil {
		return err
	}

	s.refresher.Refresh(ctx, ids)
	s.logger.Debug("featured channels refreshed", "count", len(ids))
	return nil
}

// RefreshGames loads the top games with their top channels.
func (s *Service) RefreshGames(ctx context.Context) error {
	games, err := s.directory.FetchTopGames(ctx)
	if err != nil {
		return oops.In("channel").With("context", "failed to fetch top games").Wrap(err)
	}
	snaps := lo.FlatMap(games, func(g domain.GameSnapshot, _ int) []domain.Snapshot {
		return lo.Map(g.Channels, func(c domain.Snapshot, _ int) domain.Snapshot {
			c.GameID = lo.CoalesceOrEmpty(c.GameID, g.ID)
			c.GameName = lo.CoalesceOrEmpty(c.GameName, g.Name)
			return c
		})
	})
	ids := snapshotIDs(snaps)

	if err := s.loop.Call(ctx, func() {
		s.registry.Retain(ids...)
		s.registry.UpsertMany(descriptors(snaps))
		s.registry.Release(s.games...)
		s.games = ids
	}); err != nil {
		return err
	}

	s.refresher.Refresh(ctx, ids)
	s.logger.Debug("top games refreshed", "games", len(games), "channels", len(ids))
	return nil
}

// Mount declares that a client displays ids, keeping them cached and polled.
func (s *Service) Mount(ctx context.Context, ids []string) error {
	ids = lo.Uniq(lo.Compact(ids))
	if err := s.loop.Call(ctx, func() { s.registry.Retain(ids...) }); err != nil {
		return err
	}
	s.refresher.Refresh(ctx, ids)
	return nil
}

// Unmount releases ids retained by Mount.
func (s *Service) Unmount(ctx context.Context, ids []string) error {
	ids = lo.Uniq(lo.Compact(ids))
	return s.loop.Call(ctx, func() { s.registry.Release(ids...) })
}

// SetFilter applies a text filter to the named view on the control loop.
func (s *Service) SetFilter(ctx context.Context, name, filter string) error {
	v, ok := s.views.Filterable(name)
	if !ok {
		return oops.In("channel").With("view", name).Wrap(errs.ErrUnknownView)
	}
	return s.loop.Call(ctx, func() { v.SetFilter(filter) })
}

// GetChannel retrieves a channel by ID
func (s *Service) GetChannel(channelID string) (domain.Channel, error) {
	ch, ok := s.registry.Get(channelID)
	if !ok {
		return domain.Channel{}, oops.In("channel").With("channel_id", channelID).Wrap(errs.ErrChannelNotFound)
	}
	return ch, nil
}

// Favourites returns the favourite channels in view order.
func (s *Service) Favourites() []domain.Channel {
	return s.views.Favourites.Rows()
}

// LiveFavourites returns the favourites that are currently broadcasting.
func (s *Service) LiveFavourites() []domain.Channel {
	return lo.Filter(s.Favourites(), func(c domain.Channel, _ int) bool { return c.IsLive() })
}

func snapshotIDs(snaps []domain.Snapshot) []string {
	return lo.Uniq(lo.FilterMap(snaps, func(s domain.Snapshot, _ int) (string, bool) {
		return s.ID, s.ID != ""
	}))
}

// descriptors never carry live status: status only moves through the poller.
func descriptors(snaps []domain.Snapshot) []registry.Entry {
	return lo.FilterMap(snaps, func(s domain.Snapshot, _ int) (registry.Entry, bool) {
		return registry.Entry{ID: s.ID, Update: s.Descriptor()}, s.ID != ""
	})
}
