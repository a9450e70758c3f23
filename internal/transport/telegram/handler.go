package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	channelDomain "github.com/reshetovitsme/livewatch/internal/modules/channel/domain"
	channelService "github.com/reshetovitsme/livewatch/internal/modules/channel/service"
	"github.com/reshetovitsme/livewatch/internal/modules/poller"
	userService "github.com/reshetovitsme/livewatch/internal/modules/user/service"
	vodDomain "github.com/reshetovitsme/livewatch/internal/modules/vod/domain"
	vodService "github.com/reshetovitsme/livewatch/internal/modules/vod/service"
	"github.com/reshetovitsme/livewatch/internal/shared/config"
	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/samber/lo"
)

const (
	maxListed = 20
	maxVods   = 10
)

// StatsProvider reports polling activity.
type StatsProvider interface {
	Stats() poller.Stats
}

// Handler handles Telegram bot interactions
type Handler struct {
	cfg            *config.Config
	channelService *channelService.Service
	catalog        *vodService.Catalog
	userService    *userService.Service
	stats          StatsProvider
	logger         *slog.Logger
}

// New creates a new Telegram handler
func New(
	cfg *config.Config,
	channelService *channelService.Service,
	catalog *vodService.Catalog,
	userService *userService.Service,
	stats StatsProvider,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		cfg:            cfg,
		channelService: channelService,
		catalog:        catalog,
		userService:    userService,
		stats:          stats,
		logger:         logger.With("component", "telegram"),
	}
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stop", bot.MatchTypeExact, h.handleStop)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/mute", bot.MatchTypeExact, h.handleMute)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/unmute", bot.MatchTypeExact, h.handleUnmute)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/follow", bot.MatchTypePrefix, h.handleFollow)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/unfollow", bot.MatchTypePrefix, h.handleUnfollow)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/favourites", bot.MatchTypeExact, h.handleFavourites)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/live", bot.MatchTypeExact, h.handleLive)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/search", bot.MatchTypePrefix, h.handleSearch)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/vods", bot.MatchTypePrefix, h.handleVods)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.handleStatus)
}

// HandleUpdate answers anything no command matched.
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	if strings.HasPrefix(update.Message.Text, "/") {
		h.reply(ctx, b, update, "Unknown command. Send /help for the list.")
	}
}

func (h *Handler) checkAuthorization(ctx context.Context, b *bot.Bot, update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	if !h.userService.IsAuthorized(update.Message.From.ID) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return false
	}
	return true
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send reply", "chat_id", update.Message.Chat.ID, "error", err)
	}
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(ctx, b, update) {
		return
	}

	from := update.Message.From
	if _, err := h.userService.Subscribe(from.ID, update.Message.Chat.ID, from.Username); err != nil {
		h.logger.Error("Failed to subscribe user", "user_id", from.ID, "error", err)
		h.reply(ctx, b, update, "❌ Failed to subscribe, try again later.")
		return
	}

	h.reply(ctx, b, update, "👋 Welcome to livewatch!\n\nYou will get a message whenever a favourite channel goes live.\n\n"+helpText)
}

func (h *Handler) handleStop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(ctx, b, update) {
		return
	}
	if err := h.userService.Unsubscribe(update.Message.From.ID); err != nil && !errors.Is(err, errs.ErrUserNotFound) {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to unsubscribe: %v", err))
		return
	}
	h.reply(ctx, b, update, "👋 Unsubscribed. Send /start to subscribe again.")
}

func (h *Handler) handleMute(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.setMuted(ctx, b, update, true)
}

func (h *Handler) handleUnmute(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.setMuted(ctx, b, update, false)
}

func (h *Handler) setMuted(ctx context.Context, b *bot.Bot, update *models.Update, muted bool) {
	if !h.checkAuthorization(ctx, b, update) {
		return
	}
	if err := h.userService.SetMuted(update.Message.From.ID, muted); err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			h.reply(ctx, b, update, "Send /start first.")
			return
		}
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to update: %v", err))
		return
	}
	if muted {
		h.reply(ctx, b, update, "🔕 Notifications muted.")
	} else {
		h.reply(ctx, b, update, "🔔 Notifications resumed.")
	}
}

const helpText = `Available commands:
/help - Show this help message
/follow <login> - Add a channel to your favourites
/unfollow <login or id> - Remove a channel from your favourites
/favourites - List favourite channels
/live - List favourites that are live now
/search <query> - Search channels
/vods <login> [more] - List recent broadcasts
/mute, /unmute - Pause or resume notifications
/stop - Stop notifications
/status - Show polling status`

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.reply(ctx, b, update, helpText)
}

func (h *Handler) handleFollow(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(ctx, b, update) {
		return
	}

	login, ok := commandArg(update.Message.Text)
	if !ok {
		h.reply(ctx, b, update, "Usage: /follow <login>\nExample: /follow some_streamer")
		return
	}

	ch, err := h.channelService.FollowByLogin(ctx, login)
	if err != nil {
		h.reply(ctx, b, update, describeError("follow", err))
		return
	}
	h.reply(ctx, b, update, fmt.Sprintf("✅ Following %s", formatChannel(ch)))
}

func (h *Handler) handleUnfollow(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(ctx, b, update) {
		return
	}

	arg, ok := commandArg(update.Message.Text)
	if !ok {
		h.reply(ctx, b, update, "Usage: /unfollow <login or id>")
		return
	}

	ch, err := h.channelService.Resolve(ctx, arg)
	if err != nil {
		h.reply(ctx, b, update, describeError("unfollow", err))
		return
	}
	if err := h.channelService.Unfollow(ctx, ch.ID); err != nil {
		h.reply(ctx, b, update, describeError("unfollow", err))
		return
	}
	h.reply(ctx, b, update, fmt.Sprintf("✅ Unfollowed %s", ch.DisplayName))
}

func (h *Handler) handleFavourites(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(ctx, b, update) {
		return
	}
	h.reply(ctx, b, update, formatChannelList("⭐ Favourites", h.channelService.Favourites(), "No favourites yet. Use /follow <login>."))
}

func (h *Handler) handleLive(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(ctx, b, update) {
		return
	}
	h.reply(ctx, b, update, formatChannelList("🔴 Live now", h.channelService.LiveFavourites(), "None of your favourites is live."))
}

func (h *Handler) handleSearch(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(ctx, b, update) {
		return
	}

	query, ok := commandArg(update.Message.Text)
	if !ok {
		h.reply(ctx, b, update, "Usage: /search <query>")
		return
	}

	channels, err := h.channelService.Search(ctx, query)
	if err != nil {
		h.reply(ctx, b, update, describeError("search", err))
		return
	}
	h.reply(ctx, b, update, formatChannelList(fmt.Sprintf("🔍 Results for %q", query), channels, "Nothing found."))
}

func (h *Handler) handleVods(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(ctx, b, update) {
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		h.reply(ctx, b, update, "Usage: /vods <login> [more]")
		return
	}

	ch, err := h.channelService.Resolve(ctx, parts[1])
	if err != nil {
		h.reply(ctx, b, update, describeError("load broadcasts", err))
		return
	}

	var result vodDomain.PageResult
	if len(parts) > 2 && parts[2] == "more" {
		result, err = h.catalog.LoadNext(ctx, ch.ID)
	} else {
		result, err = h.catalog.LoadPage(ctx, ch.ID, "")
	}
	if err != nil {
		h.reply(ctx, b, update, describeError("load broadcasts", err))
		return
	}
	h.reply(ctx, b, update, formatVods(ch, result))
}

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(ctx, b, update) {
		return
	}
	h.reply(ctx, b, update, formatStatus(h.stats.Stats(), len(h.channelService.Favourites()), h.cfg))
}

// commandArg returns everything after the command word.
func commandArg(text string) (string, bool) {
	_, arg, found := strings.Cut(strings.TrimSpace(text), " ")
	arg = strings.TrimSpace(arg)
	return arg, found && arg != ""
}

func describeError(action string, err error) string {
	switch {
	case errors.Is(err, errs.ErrChannelNotFound):
		return "❌ Channel not found"
	case errors.Is(err, errs.ErrRateLimited):
		return "⏳ Rate limited, try again in a minute"
	case errors.Is(err, errs.ErrNetwork):
		return fmt.Sprintf("❌ Failed to %s: service unreachable", action)
	default:
		return fmt.Sprintf("❌ Failed to %s: %v", action, err)
	}
}

func formatChannel(ch channelDomain.Channel) string {
	name := ch.DisplayName
	if ch.Login != "" && !strings.EqualFold(ch.Login, ch.DisplayName) {
		name = fmt.Sprintf("%s (%s)", ch.DisplayName, ch.Login)
	}
	if !ch.IsLive() {
		return name
	}

	details := []string{fmt.Sprintf("%d viewers", ch.ViewerCount)}
	if ch.GameName != "" {
		details = append([]string{ch.GameName}, details...)
	}
	return fmt.Sprintf("%s 🔴 %s", name, strings.Join(details, ", "))
}

func formatChannelList(header string, channels []channelDomain.Channel, empty string) string {
	if len(channels) == 0 {
		return empty
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")
	for i, ch := range lo.Slice(channels, 0, maxListed) {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, formatChannel(ch)))
	}
	if len(channels) > maxListed {
		sb.WriteString(fmt.Sprintf("…and %d more\n", len(channels)-maxListed))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatVods(ch channelDomain.Channel, result vodDomain.PageResult) string {
	if len(result.Vods) == 0 {
		return fmt.Sprintf("%s has no broadcasts.", ch.DisplayName)
	}

	start := max(len(result.Vods)-max(result.Added, 0), 0)
	if result.Restarted || start == len(result.Vods) {
		start = 0
	}
	shown := lo.Slice(result.Vods, start, start+maxVods)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📼 Broadcasts of %s\n\n", ch.DisplayName))
	for _, v := range shown {
		sb.WriteString(fmt.Sprintf("• %s (%s, %s)\n", v.Title, formatDuration(v.DurationSeconds), v.CreatedAt.Format("2006-01-02")))
		if v.URL != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", v.URL))
		}
	}
	if !result.Terminal {
		sb.WriteString(fmt.Sprintf("\nMore: /vods %s more", lo.CoalesceOrEmpty(ch.Login, ch.ID)))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatDuration(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}

func formatStatus(stats poller.Stats, favourites int, cfg *config.Config) string {
	lastTick := "never"
	if !stats.LastTick.IsZero() {
		lastTick = stats.LastTick.Format(time.RFC3339)
	}
	lastSuccess := "never"
	if !stats.LastSuccess.IsZero() {
		lastSuccess = stats.LastSuccess.Format(time.RFC3339)
	}

	return fmt.Sprintf(`📊 Status

Favourites: %d
Poll interval: %s
Polls: %d (skipped %d)
Failed batches: %d
Pending batches: %d
Last poll: %s
Last success: %s
RSS: %s/rss/live`,
		favourites,
		cfg.PollInterval,
		stats.Ticks, stats.SkippedTicks,
		stats.FailedBatches,
		stats.PendingBatches,
		lastTick,
		lastSuccess,
		cfg.PublicURL,
	)
}
