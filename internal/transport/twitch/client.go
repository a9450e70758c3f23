// Package twitch is the Helix-style HTTP client for the streaming platform.
package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	vodDomain "github.com/reshetovitsme/livewatch/internal/modules/vod/domain"
	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const (
	DefaultBaseURL = "https://api.twitch.tv/helix"

	// MaxIDsPerRequest is the API's limit on ids in one status request.
	MaxIDsPerRequest = 100

	defaultTimeout   = 15 * time.Second
	vodPageSize      = 20
	searchPageSize   = 20
	featuredPageSize = 20
	topGamesCount    = 10
	channelsPerGame  = 5
	maxBodyBytes     = 4 << 20
)

// Config holds client credentials and endpoints.
type Config struct {
	BaseURL  string
	ClientID string
	Token    string
	Timeout  time.Duration
}

// Client talks to the remote API.
type Client struct {
	baseURL  string
	clientID string
	token    string
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(lo.CoalesceOrEmpty(cfg.BaseURL, DefaultBaseURL), "/"),
		clientID: cfg.ClientID,
		token:    cfg.Token,
		http:     &http.Client{Timeout: lo.CoalesceOrEmpty(cfg.Timeout, defaultTimeout)},
		logger:   logger.With("component", "twitch"),
	}
}

// FetchChannelStatuses returns a snapshot for every channel among ids that is
// live. Channels missing from the result are offline.
func (c *Client) FetchChannelStatuses(ctx context.Context, ids []string) ([]channelDomain.Snapshot, error) {
	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxIDsPerRequest {
		return nil, oops.In("twitch").With("count", len(ids)).Errorf("at most %d ids per request", MaxIDsPerRequest)
	}

	q := url.Values{}
	for _, id := range ids {
		q.Add("user_id", id)
	}
	q.Set("first", strconv.Itoa(MaxIDsPerRequest))

	var env envelope
	if err := c.get(ctx, "/streams", q, &env); err != nil {
		return nil, err
	}
	streams := decode[streamDTO](c, "/streams", env.Data)
	return lo.Map(streams, func(s streamDTO, _ int) channelDomain.Snapshot { return s.snapshot() }), nil
}

// FetchVodPage loads one page of a channel's archives, newest first.
func (c *Client) FetchVodPage(ctx context.Context, channelID, cursor string) (vodDomain.Page, error) {
	q := url.Values{}
	q.Set("user_id", channelID)
	q.Set("type", "archive")
	q.Set("first", strconv.Itoa(vodPageSize))
	if cursor != "" {
		q.Set("after", cursor)
	}

	var env envelope
	err := c.get(ctx, "/videos", q, &env)
	if err != nil {
		var se *statusError
		if cursor != "" && errors.As(err, &se) && se.status == http.StatusBadRequest {
			return vodDomain.Page{}, oops.In("twitch").With("channel_id", channelID, "cursor", cursor).Wrap(errs.ErrStaleCursor)
		}
		return vodDomain.Page{}, err
	}

	vods := lo.FilterMap(decode[videoDTO](c, "/videos", env.Data), func(v videoDTO, _ int) (vodDomain.Vod, bool) {
		vod, err := v.vod(channelID)
		if err != nil {
			c.logger.Debug("skipping malformed vod", "vod_id", v.ID, "error", err)
			return vodDomain.Vod{}, false
		}
		return vod, true
	})
	return vodDomain.Page{Vods: vods, NextCursor: env.Pagination.Cursor}, nil
}

// Search finds channels by name.
func (c *Client) Search(ctx context.Context, query string) ([]channelDomain.Snapshot, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("first", strconv.Itoa(searchPageSize))

	var env envelope
	if err := c.get(ctx, "/search/channels", q, &env); err != nil {
		return nil, err
	}
	channels := decode[channelDTO](c, "/search/channels", env.Data)
	return lo.Map(channels, func(ch channelDTO, _ int) channelDomain.Snapshot { return ch.snapshot() }), nil
}

// LookupChannels resolves login names to channels.
func (c *Client) LookupChannels(ctx context.Context, logins []string) ([]channelDomain.Snapshot, error) {
	logins = lo.Uniq(lo.Compact(logins))
	if len(logins) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, l := range logins {
		q.Add("login", l)
	}

	var env envelope
	if err := c.get(ctx, "/users", q, &env); err != nil {
		return nil, err
	}
	users := decode[userDTO](c, "/users", env.Data)
	return lo.Map(users, func(u userDTO, _ int) channelDomain.Snapshot { return u.snapshot() }), nil
}

// FetchFeatured returns the platform's most watched live channels, in rank order.
func (c *Client) FetchFeatured(ctx context.Context) ([]channelDomain.Snapshot, error) {
	return c.topStreams(ctx, "", featuredPageSize)
}

// FetchTopGames returns the most watched games with their top channels.
func (c *Client) FetchTopGames(ctx context.Context) ([]channelDomain.GameSnapshot, error) {
	q := url.Values{}
	q.Set("first", strconv.Itoa(topGamesCount))

	var env envelope
	if err := c.get(ctx, "/games/top", q, &env); err != nil {
		return nil, err
	}

	top := decode[gameDTO](c, "/games/top", env.Data)
	games := make([]channelDomain.GameSnapshot, 0, len(top))
	for _, g := range top {
		channels, err := c.topStreams(ctx, g.ID, channelsPerGame)
		if err != nil {
			return nil, err
		}
		games = append(games, channelDomain.GameSnapshot{
			ID:       g.ID,
			Name:     g.Name,
			BoxArt:   sizedThumbnail(g.BoxArtURL, 188, 250),
			Channels: channels,
		})
	}
	return games, nil
}

func (c *Client) topStreams(ctx context.Context, gameID string, first int) ([]channelDomain.Snapshot, error) {
	q := url.Values{}
	q.Set("first", strconv.Itoa(first))
	if gameID != "" {
		q.Set("game_id", gameID)
	}

	var env envelope
	if err := c.get(ctx, "/streams", q, &env); err != nil {
		return nil, err
	}
	streams := decode[streamDTO](c, "/streams", env.Data)
	return lo.Map(streams, func(s streamDTO, _ int) channelDomain.Snapshot { return s.snapshot() }), nil
}

func decode[T any](c *Client, endpoint string, raw []json.RawMessage) []T {
	out, dropped := decodeItems[T](raw)
	if dropped > 0 {
		c.logger.Debug("skipped invalid entries", "endpoint", endpoint, "dropped", dropped)
	}
	return out
}

// statusError carries a non-2xx response status.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.status) + ": " + e.body
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) error {
	endpoint := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return oops.In("twitch").With("path", path).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.clientID != "" {
		req.Header.Set("Client-Id", c.clientID)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return oops.In("twitch").With("path", path).Wrap(errors.Join(errs.ErrNetwork, ctx.Err()))
		}
		return oops.In("twitch").With("path", path).Wrap(errors.Join(errs.ErrNetwork, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return oops.In("twitch").With("path", path).Wrap(errors.Join(errs.ErrNetwork, err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return oops.In("twitch").
			With("path", path, "reset", resp.Header.Get("Ratelimit-Reset")).
			Wrap(errs.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return oops.In("twitch").With("path", path, "status", resp.StatusCode).Wrap(errs.ErrUnauthorized)
	case resp.StatusCode >= 500:
		return oops.In("twitch").With("path", path, "status", resp.StatusCode).
			Wrap(errors.Join(errs.ErrNetwork, &statusError{status: resp.StatusCode, body: string(body)}))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return oops.In("twitch").With("path", path, "status", resp.StatusCode).
			Wrap(&statusError{status: resp.StatusCode, body: string(body)})
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return oops.In("twitch").With("path", path).Wrap(errors.Join(errs.ErrMalformedResponse, err))
	}
	return nil
}
