package service

import (
	"context"
	"fmt"
	"html"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/feeds"
	feedDomain "github.com/reshetovitsme/livewatch/internal/modules/feed/domain"
	notifyDomain "github.com/reshetovitsme/livewatch/internal/modules/notify/domain"
)

const DefaultHistorySize = 50

// Service keeps the most recent notifications in memory and renders them
// as a feed. Nothing is persisted: the history starts empty on every run.
type Service struct {
	mu      sync.RWMutex
	size    int
	events  []notifyDomain.Event
	updated time.Time
}

// New creates a new feed service
func New(historySize int) *Service {
	if historySize < 1 {
		historySize = DefaultHistorySize
	}
	return &Service{size: historySize}
}

func (s *Service) Name() string { return "rss" }

// Deliver records ev, dropping the oldest entry once the history is full.
func (s *Service) Deliver(_ context.Context, ev notifyDomain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	if over := len(s.events) - s.size; over > 0 {
		s.events = slices.Delete(s.events, 0, over)
	}
	s.updated = ev.Timestamp
	return nil
}

// History returns the recorded events, newest first.
func (s *Service) History() []notifyDomain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.events)
	slices.Reverse(out)
	return out
}

// Config describes the feed served at baseURL.
func (s *Service) Config(baseURL string) feedDomain.FeedConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return feedDomain.FeedConfig{
		Title:       "Live channels",
		Link:        fmt.Sprintf("%s/rss/live", baseURL),
		Description: "Favourite channels that went live",
		Updated:     s.updated,
	}
}

// GenerateFeed renders the history as a feed.
func (s *Service) GenerateFeed(baseURL string) *feeds.Feed {
	cfg := s.Config(baseURL)
	feed := &feeds.Feed{
		Title:       cfg.Title,
		Link:        &feeds.Link{Href: cfg.Link},
		Description: cfg.Description,
		Created:     cfg.Updated,
		Updated:     cfg.Updated,
	}

	for _, ev := range s.History() {
		feed.Items = append(feed.Items, eventToFeedItem(ev, baseURL))
	}
	return feed
}

func eventToFeedItem(ev notifyDomain.Event, baseURL string) *feeds.Item {
	description := ev.Summary
	if ev.Title != "" {
		description = fmt.Sprintf("%s: %s", ev.Summary, ev.Title)
	}

	content := fmt.Sprintf("<p>%s</p>", html.EscapeString(description))
	if ev.Thumbnail != "" {
		content += fmt.Sprintf(`<p><img src="%s" alt="%s"/></p>`, html.EscapeString(ev.Thumbnail), html.EscapeString(ev.DisplayName))
	}

	return &feeds.Item{
		Title:       truncate(ev.Summary, 100),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/api/channels/%s", baseURL, ev.ChannelID)},
		Description: description,
		Content:     content,
		Author:      &feeds.Author{Name: ev.DisplayName},
		Created:     ev.Timestamp,
		Id:          ev.ID.String(),
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
