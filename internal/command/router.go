package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/config"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/constants"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/marketpoll"
)

var commandNames = map[string]bool{
	"marketpoll": true,
	"market":     true,
	"mp":         true,
}

// Router is the operator-facing command surface. It only translates
// between chat text and the engine's structured outcomes; no market
// logic lives here.
type Router struct {
	engine *marketpoll.Engine
	store  marketpoll.Store
	prefix string
	logger zerolog.Logger
}

func NewRouter(engine *marketpoll.Engine, store marketpoll.Store, cfg *config.Config, logger zerolog.Logger) *Router {
	return &Router{
		engine: engine,
		store:  store,
		prefix: cfg.CommandPrefix,
		logger: logger.With().Str("component", "command").Logger(),
	}
}

// Register attaches the message handler to the gateway session.
func (r *Router) Register(session *discordgo.Session) {
	session.AddHandler(r.handleMessage)
}

func (r *Router) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if !strings.HasPrefix(m.Content, r.prefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, r.prefix))
	if len(fields) == 0 || !commandNames[strings.ToLower(fields[0])] {
		return
	}
	args := fields[1:]

	ctx, cancel := context.WithTimeout(context.Background(), constants.ExternalAPITimeout)
	defer cancel()

	reply := r.dispatch(ctx, s, m, args)
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		r.logger.Error().Err(err).Str("channel_id", m.ChannelID).Msg("reply failed")
	}
}

func (r *Router) dispatch(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, args []string) string {
	sub := "help"
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "help":
		return helpText(r.prefix)
	case "status":
		return r.status(ctx, m.GuildID)
	case "leaderboard":
		return r.leaderboard(ctx)
	case "history":
		assetKey := ""
		if len(args) > 1 {
			assetKey = strings.Join(args[1:], " ")
		}
		return r.history(ctx, assetKey)
	case "tiers":
		if !r.isPrivileged(s, m) {
			return "You need Manage Server permission for that."
		}
		return tiersText()
	case "config":
		if !r.isPrivileged(s, m) {
			return "You need Manage Server permission for that."
		}
		return r.configCmd(ctx, m, args[1:])
	case "poll":
		if len(args) > 1 && strings.ToLower(args[1]) == "now" {
			if !r.isPrivileged(s, m) {
				return "You need Manage Server permission for that."
			}
			return r.pollNow(ctx, m.GuildID)
		}
		return "Did you mean `poll now`?"
	default:
		return fmt.Sprintf("Unknown subcommand %q. Try `%smarketpoll help`.", sub, r.prefix)
	}
}

func (r *Router) isPrivileged(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		r.logger.Warn().Err(err).Str("user_id", m.Author.ID).Msg("permission lookup failed")
		return false
	}
	return perms&discordgo.PermissionManageServer != 0
}

func helpText(prefix string) string {
	return strings.Join([]string{
		"**MarketPoll commands** (aliases: `market`, `mp`)",
		fmt.Sprintf("`%smarketpoll status` - scheduler and catalog state", prefix),
		fmt.Sprintf("`%smarketpoll leaderboard` - top-rated assets", prefix),
		fmt.Sprintf("`%smarketpoll history [asset]` - recent closed polls", prefix),
		fmt.Sprintf("`%smarketpoll tiers` - tier table (admin)", prefix),
		fmt.Sprintf("`%smarketpoll config show|channel|enabled|cadence|duration|cooldown|minvotes` (admin)", prefix),
		fmt.Sprintf("`%smarketpoll poll now` - post a poll immediately (admin)", prefix),
	}, "\n")
}

func tiersText() string {
	var b strings.Builder
	b.WriteString("**Wealth tiers**\n")
	for i, t := range marketpoll.Tiers {
		b.WriteString(fmt.Sprintf("%2d. %s (%s)\n", i+1, t.Label, t.ID))
	}
	return b.String()
}

func (r *Router) status(ctx context.Context, guildID string) string {
	settings, err := r.store.GetSettings(ctx, guildID)
	if err != nil {
		r.logger.Error().Err(err).Msg("status: settings lookup failed")
		return "Couldn't load settings, try again later."
	}
	openPolls, err := r.store.CountOpenPolls(ctx, guildID)
	if err != nil {
		r.logger.Error().Err(err).Msg("status: open poll count failed")
		return "Couldn't load poll state, try again later."
	}
	catalog, _ := r.engine.Catalog()

	state := "disabled"
	if settings.Enabled {
		state = "enabled"
	}
	catalogState := fmt.Sprintf("%d seeded assets", len(catalog.Rows))
	if !catalog.Valid() {
		catalogState = fmt.Sprintf("INVALID (%d errors, first: %s)", len(catalog.Errors), catalog.Errors[0])
	}

	return fmt.Sprintf(
		"MarketPoll is **%s**.\nChannel: %s\nCadence: %d min, duration: %d min, cooldown: %d days, min votes: %d\nOpen polls: %d\nCatalog: %s",
		state, channelMention(settings.ChannelID), settings.CadenceMinutes, settings.PollMinutes,
		settings.PairCooldownDays, settings.MinVotes, openPolls, catalogState)
}

func channelMention(id string) string {
	if id == "" {
		return "(not set)"
	}
	return "<#" + id + ">"
}

func (r *Router) leaderboard(ctx context.Context) string {
	scores, err := r.store.ListLeaderboard(ctx, constants.LeaderboardLimit)
	if err != nil {
		r.logger.Error().Err(err).Msg("leaderboard lookup failed")
		return "Couldn't load the leaderboard, try again later."
	}
	if len(scores) == 0 {
		return "No rated assets yet."
	}

	var b strings.Builder
	b.WriteString("**MarketPoll leaderboard**\n")
	for i, sc := range scores {
		b.WriteString(fmt.Sprintf("%2d. %s - %.0f (%dW/%dL/%dT)\n",
			i+1, sc.AssetKey, sc.Elo, sc.Wins, sc.Losses, sc.Ties))
	}
	return b.String()
}

func (r *Router) history(ctx context.Context, assetKey string) string {
	runs, err := r.store.ListHistory(ctx, assetKey, constants.HistoryLimit)
	if err != nil {
		r.logger.Error().Err(err).Msg("history lookup failed")
		return "Couldn't load history, try again later."
	}
	if len(runs) == 0 {
		return "No closed polls yet."
	}

	var b strings.Builder
	b.WriteString("**Recent polls**\n")
	for _, run := range runs {
		when := time.UnixMilli(run.ClosedAtMs).UTC().Format("2006-01-02")
		b.WriteString(fmt.Sprintf("%s: %s vs %s - %s (%d-%d)\n",
			when,
			strings.Join(run.LeftAssetKeys, "+"),
			strings.Join(run.RightAssetKeys, "+"),
			run.Result, run.VotesLeft, run.VotesRight))
	}
	return b.String()
}

func (r *Router) pollNow(ctx context.Context, guildID string) string {
	outcome, err := r.engine.PostPoll(ctx, guildID)
	if err != nil {
		r.logger.Error().Err(err).Str("guild_id", guildID).Msg("manual poll failed")
		return "Posting failed: " + outcome.Reason
	}
	if !outcome.Posted {
		return "Skipped: " + outcome.Reason
	}
	return "Poll posted: " + outcome.PairKey
}

func (r *Router) configCmd(ctx context.Context, m *discordgo.MessageCreate, args []string) string {
	if len(args) == 0 || strings.ToLower(args[0]) == "show" {
		return r.status(ctx, m.GuildID)
	}

	key := strings.ToLower(args[0])
	patch := domain.SettingsPatch{}

	switch key {
	case "channel":
		channelID := m.ChannelID
		if len(args) > 1 {
			channelID = strings.Trim(args[1], "<#>")
		}
		patch.ChannelID = &channelID
	case "enabled":
		if len(args) < 2 {
			return "Usage: `config enabled on|off`"
		}
		enabled := strings.EqualFold(args[1], "on") || strings.EqualFold(args[1], "true")
		patch.Enabled = &enabled
	case "cadence", "duration", "cooldown", "minvotes":
		if len(args) < 2 {
			return fmt.Sprintf("Usage: `config %s <number>`", key)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return "That needs a positive number."
		}
		switch key {
		case "cadence":
			patch.CadenceMinutes = &n
		case "duration":
			patch.PollMinutes = &n
		case "cooldown":
			patch.PairCooldownDays = &n
		case "minvotes":
			patch.MinVotes = &n
		}
	default:
		return fmt.Sprintf("Unknown config key %q.", key)
	}

	if err := r.store.UpdateSettings(ctx, m.GuildID, patch); err != nil {
		r.logger.Error().Err(err).Str("guild_id", m.GuildID).Msg("settings update failed")
		return "Couldn't save settings, try again later."
	}
	return "Settings updated."
}
