package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	channelService "github.com/reshetovitsme/livewatch/internal/modules/channel/service"
	feedService "github.com/reshetovitsme/livewatch/internal/modules/feed/service"
	"github.com/reshetovitsme/livewatch/internal/modules/poller"
	"github.com/reshetovitsme/livewatch/internal/modules/view"
	vodService "github.com/reshetovitsme/livewatch/internal/modules/vod/service"
	"github.com/reshetovitsme/livewatch/internal/shared/config"
	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	sloghttp "github.com/samber/slog-http"
)

const (
	defaultWatchTimeout = 25 * time.Second
	maxWatchTimeout     = 60 * time.Second
	maxRequestBody      = 1 << 20
)

// StatsProvider reports polling activity.
type StatsProvider interface {
	Stats() poller.Stats
}

// Server exposes the views, channel commands and the notification feed
type Server struct {
	cfg            *config.Config
	channelService *channelService.Service
	views          *view.Hub
	catalog        *vodService.Catalog
	feedService    *feedService.Service
	stats          StatsProvider
	validate       *validator.Validate
	logger         *slog.Logger
	server         *http.Server
}

// New creates a new HTTP server
func New(
	cfg *config.Config,
	channelService *channelService.Service,
	views *view.Hub,
	catalog *vodService.Catalog,
	feedService *feedService.Service,
	stats StatsProvider,
	logger *slog.Logger,
) *Server {
	s := &Server{
		cfg:            cfg,
		channelService: channelService,
		views:          views,
		catalog:        catalog,
		feedService:    feedService,
		stats:          stats,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		logger:         logger.With("component", "http"),
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: maxWatchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the routed, logged and panic-safe handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Views
	mux.HandleFunc("GET /api/favourites", s.handleFavourites)
	mux.HandleFunc("GET /api/featured", s.handleFeatured)
	mux.HandleFunc("GET /api/games", s.handleGames)
	mux.HandleFunc("GET /api/games/{gameID}/channels", s.handleGameChannels)
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("PUT /api/views/{name}/filter", s.handleSetFilter)
	mux.HandleFunc("GET /api/watch", s.handleWatch)

	// Commands
	mux.HandleFunc("PUT /api/favourites/{channelID}", s.handleFollow)
	mux.HandleFunc("DELETE /api/favourites/{channelID}", s.handleUnfollow)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/mount", s.handleMount)
	mux.HandleFunc("POST /api/unmount", s.handleUnmount)

	// Channels and VODs
	mux.HandleFunc("GET /api/channels/{channelID}", s.handleChannel)
	mux.HandleFunc("GET /api/channels/{channelID}/vods", s.handleVods)
	mux.HandleFunc("DELETE /api/channels/{channelID}/vods", s.handleResetVods)

	// RSS feed endpoint
	mux.HandleFunc("GET /rss/live", s.handleRSSFeed)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	// Use slog-http middleware with recovery
	handler := sloghttp.Recovery(mux)
	return sloghttp.New(s.logger)(handler)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type channelList struct {
	View     string                  `json:"view"`
	Version  uint64                  `json:"version"`
	Filter   string                  `json:"filter,omitempty"`
	Query    string                  `json:"query,omitempty"`
	Channels []channelDomain.Channel `json:"channels"`
}

type gameList struct {
	Version uint64                       `json:"version"`
	Filter  string                       `json:"filter,omitempty"`
	Games   []channelDomain.GameCategory `json:"games"`
}

type searchRequest struct {
	Query string `json:"query" validate:"required,min=1,max=100"`
}

type idsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,required"`
}

type filterRequest struct {
	Filter string `json:"filter" validate:"max=100"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleFavourites(w http.ResponseWriter, r *http.Request) {
	v := s.views.Favourites
	s.writeJSON(w, http.StatusOK, channelList{View: v.Name(), Version: v.Version(), Filter: v.Filter(), Channels: v.Rows()})
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	v := s.views.Featured
	s.writeJSON(w, http.StatusOK, channelList{View: v.Name(), Version: v.Version(), Filter: v.Filter(), Channels: v.Rows()})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	v := s.views.Results
	s.writeJSON(w, http.StatusOK, channelList{
		View:     v.Name(),
		Version:  v.Version(),
		Filter:   v.Filter(),
		Query:    v.Query(),
		Channels: v.Rows(),
	})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	v := s.views.Games
	s.writeJSON(w, http.StatusOK, gameList{Version: v.Version(), Filter: v.Filter(), Games: v.Rows()})
}

func (s *Server) handleGameChannels(w http.ResponseWriter, r *http.Request) {
	channels, ok := s.views.Games.Channels(r.PathValue("gameID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "game not found")
		return
	}
	s.writeJSON(w, http.StatusOK, channelList{View: "games", Version: s.views.Games.Version(), Channels: channels})
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.channelService.SetFilter(r.Context(), r.PathValue("name"), req.Filter); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleWatch blocks until any view changes past ?since or the timeout ends.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	since, err := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	if err != nil {
		since = s.views.Version()
	}

	timeout := defaultWatchTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = min(d, maxWatchTimeout)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	version := s.views.WaitChange(ctx, since)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"version": version,
		"changed": version != since,
	})
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelID")
	if err := s.channelService.Follow(r.Context(), channelID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.handleChannel(w, r)
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	if err := s.channelService.Unfollow(r.Context(), r.PathValue("channelID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}

	channels, err := s.channelService.Search(r.Context(), req.Query)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, channelList{
		View:     s.views.Results.Name(),
		Version:  s.views.Results.Version(),
		Query:    s.views.Results.Query(),
		Channels: channels,
	})
}

func (s *Server) handleMount(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.channelService.Mount(r.Context(), req.IDs); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnmount(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.channelService.Unmount(r.Context(), req.IDs); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := s.channelService.GetChannel(r.PathValue("channelID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ch)
}

// handleVods loads the page at ?cursor, or the next page when ?next is set.
func (s *Server) handleVods(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelID")
	q := r.URL.Query()

	var (
		err    error
		result any
	)
	switch {
	case q.Has("next"):
		result, err = s.catalog.LoadNext(r.Context(), channelID)
	case q.Has("cursor"):
		result, err = s.catalog.LoadPage(r.Context(), channelID, q.Get("cursor"))
	default:
		if listing, ok := s.catalog.Listing(channelID); ok {
			result = listing
		} else {
			result, err = s.catalog.LoadPage(r.Context(), channelID, "")
		}
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResetVods(w http.ResponseWriter, r *http.Request) {
	s.catalog.Reset(r.PathValue("channelID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	baseURL := s.cfg.PublicURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s://%s", getScheme(r), r.Host)
	}

	feed := s.feedService.GenerateFeed(baseURL)

	// Generate RSS XML
	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"poller":     s.stats.Stats(),
		"favourites": len(s.views.Favourites.IDs()),
		"featured":   len(s.views.Featured.IDs()),
		"version":    s.views.Version(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>livewatch</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0; }
        code { background: #e8e8e8; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>livewatch</h1>
    <div class="info">
        <p>Tracks favourite channels and tells you when they go live.</p>
        <p>Views: <code>/api/favourites</code>, <code>/api/featured</code>, <code>/api/games</code>, <code>/api/results</code></p>
        <p>Changes: <code>/api/watch?since=0</code></p>
        <p>Live notifications feed: <code>/rss/live</code></p>
    </div>
    <p><a href="/health">Health Check</a></p>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidChannel), errors.Is(err, errs.ErrEmptyQuery):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrChannelNotFound), errors.Is(err, errs.ErrUnknownView):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrRateLimited):
		s.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, errs.ErrNetwork), errors.Is(err, errs.ErrMalformedResponse), errors.Is(err, errs.ErrUnauthorized):
		s.writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, errs.ErrLoopStopped):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("Request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
