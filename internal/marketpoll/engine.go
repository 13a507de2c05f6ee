package marketpoll

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/constants"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/platform"
	"golang.org/x/sync/errgroup"
)

// Engine owns the poll lifecycle: posting candidate matchups, closing
// due runs, and the cadence-driven scheduler tick. All mutable state
// (catalog snapshot, tick guard, RNG) lives here rather than in
// package-level variables, so independent instances stay independent.
type Engine struct {
	store    Store
	chat     platform.ChatPlatform
	catalog  *CatalogSource
	logger   zerolog.Logger
	matchCfg MatchupConfig

	clock func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	tickInFlight atomic.Bool
}

// Option tweaks an Engine at construction; used by tests to inject a
// deterministic clock and RNG.
type Option func(*Engine)

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithRNG(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithMatchupConfig(cfg MatchupConfig) Option {
	return func(e *Engine) { e.matchCfg = cfg }
}

func NewEngine(store Store, chat platform.ChatPlatform, catalog *CatalogSource, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		chat:     chat,
		catalog:  catalog,
		logger:   logger.With().Str("component", "marketpoll").Logger(),
		matchCfg: DefaultMatchupConfig(),
		clock:    time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) nowMs() int64 {
	return e.clock().UnixMilli()
}

// PostOutcome is the structured result of a posting attempt. Callers
// translate it to user-facing text; the engine never renders any.
type PostOutcome struct {
	Posted    bool
	Reason    string
	PairKey   string
	MessageID string
}

const (
	ReasonDisabled       = "disabled"
	ReasonNoChannel      = "no_channel"
	ReasonCatalogInvalid = "catalog_invalid"
	ReasonNoEligiblePair = "no_eligible_pair"
	ReasonSendFailed     = "send_failed"
	ReasonStoreFailed    = "store_failed"
)

func bundleLabel(keys []string) string {
	return strings.Join(keys, " + ")
}

// PostPoll selects a candidate matchup for the guild and posts it as a
// timed poll. A nil matchmaker result is a skip, not an error.
func (e *Engine) PostPoll(ctx context.Context, guildID string) (PostOutcome, error) {
	settings, err := e.store.GetSettings(ctx, guildID)
	if err != nil {
		return PostOutcome{Reason: ReasonStoreFailed}, fmt.Errorf("get settings: %w", err)
	}
	if !settings.Enabled {
		return PostOutcome{Reason: ReasonDisabled}, nil
	}
	if settings.ChannelID == "" {
		return PostOutcome{Reason: ReasonNoChannel}, nil
	}

	catalog, universe := e.catalog.Snapshot()
	if !catalog.Valid() {
		return PostOutcome{Reason: ReasonCatalogInvalid}, nil
	}

	nowMs := e.nowMs()

	openPairs, err := e.store.ListOpenPairKeys(ctx, guildID)
	if err != nil {
		return PostOutcome{Reason: ReasonStoreFailed}, fmt.Errorf("list open pairs: %w", err)
	}
	cooldowns, err := e.store.GetCooldownMap(ctx, nowMs)
	if err != nil {
		return PostOutcome{Reason: ReasonStoreFailed}, fmt.Errorf("get cooldown map: %w", err)
	}

	excl := Exclusions{OpenPairKeys: openPairs, CooldownUntil: cooldowns, NowMs: nowMs}

	e.rngMu.Lock()
	matchup := SelectCandidateMatchup(catalog, universe, excl, e.matchCfg, e.rng)
	var flip bool
	if matchup != nil {
		flip = e.rng.Intn(2) == 1
	}
	e.rngMu.Unlock()

	if matchup == nil {
		return PostOutcome{Reason: ReasonNoEligiblePair}, nil
	}

	left, right := matchup.Left, matchup.Right
	if flip {
		left, right = right, left
	}
	pairKey := CanonicalPairKey(left.Key, right.Key)

	durationHours := (settings.PollMinutes + 59) / 60
	if durationHours < 1 {
		durationHours = 1
	}
	if durationHours > 24 {
		durationHours = 24
	}

	messageID, err := e.chat.SendPoll(ctx, platform.SendPollParams{
		ChannelID:     settings.ChannelID,
		Question:      fmt.Sprintf("Which is worth more: %s or %s?", bundleLabel(left.AssetKeys), bundleLabel(right.AssetKeys)),
		Answers:       []string{bundleLabel(left.AssetKeys), bundleLabel(right.AssetKeys)},
		DurationHours: durationHours,
	})
	if err != nil {
		e.logger.Error().Err(err).Str("guild_id", guildID).Str("pair_key", pairKey).Msg("poll post failed")
		return PostOutcome{Reason: ReasonSendFailed}, nil
	}

	runID, err := gonanoid.New()
	if err != nil {
		return PostOutcome{Reason: ReasonStoreFailed}, fmt.Errorf("generate run id: %w", err)
	}

	run := domain.PollRun{
		ID:             runID,
		GuildID:        guildID,
		ChannelID:      settings.ChannelID,
		MessageID:      messageID,
		PairKey:        pairKey,
		LeftAssetKeys:  left.AssetKeys,
		RightAssetKeys: right.AssetKeys,
		StartedAtMs:    nowMs,
		EndsAtMs:       nowMs + int64(settings.PollMinutes)*60_000,
	}
	if err := e.store.InsertPollRun(ctx, run); err != nil {
		e.logger.Error().Err(err).Str("message_id", messageID).Msg("poll posted but run insert failed")
		return PostOutcome{Reason: ReasonStoreFailed}, fmt.Errorf("insert poll run: %w", err)
	}

	// Best effort; a missing notice never fails the post.
	notice := fmt.Sprintf("Poll closes in %d minutes. Vote away!", settings.PollMinutes)
	if err := e.chat.SendNotice(ctx, settings.ChannelID, notice); err != nil {
		e.logger.Warn().Err(err).Str("channel_id", settings.ChannelID).Msg("close notice failed")
	}

	e.logger.Info().
		Str("guild_id", guildID).
		Str("pair_key", pairKey).
		Str("message_id", messageID).
		Bool("fallback_gender", matchup.UsedFallbackGender).
		Msg("poll posted")

	return PostOutcome{Posted: true, PairKey: pairKey, MessageID: messageID}, nil
}

// CloseDueRuns closes every run whose end time has passed. Runs are
// closed with bounded parallelism, and failures are isolated per run:
// a failing run is marked closed with result "error" rather than being
// left open or retried.
func (e *Engine) CloseDueRuns(ctx context.Context) {
	nowMs := e.nowMs()
	runs, err := e.store.ListDuePollRuns(ctx, nowMs, constants.DueRunsBatchLimit)
	if err != nil {
		e.logger.Error().Err(err).Msg("list due runs failed")
		return
	}
	if len(runs) == 0 {
		return
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.CloseConcurrency)
	for _, run := range runs {
		g.Go(func() error {
			if err := e.closeRun(gCtx, run); err != nil {
				e.logger.Error().Err(err).Str("run_id", run.ID).Str("pair_key", run.PairKey).Msg("run close failed, marking error")
				if markErr := e.store.MarkRunError(gCtx, run.ID, e.nowMs()); markErr != nil {
					e.logger.Error().Err(markErr).Str("run_id", run.ID).Msg("mark run error failed")
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) closeRun(ctx context.Context, run domain.PollRun) error {
	// Best effort; Discord expires polls on its own.
	if err := e.chat.EndPoll(ctx, run.ChannelID, run.MessageID); err != nil {
		e.logger.Debug().Err(err).Str("run_id", run.ID).Msg("end poll call failed, continuing")
	}

	msg, err := e.chat.FetchPollMessage(ctx, run.ChannelID, run.MessageID)
	if err != nil {
		return fmt.Errorf("fetch poll message: %w", err)
	}
	if len(msg.Answers) < 2 {
		return fmt.Errorf("poll %s has %d answers, want at least 2", run.MessageID, len(msg.Answers))
	}

	votesLeft, err := e.countVoters(ctx, run, msg.Answers[0].ID)
	if err != nil {
		return fmt.Errorf("count left voters: %w", err)
	}
	votesRight, err := e.countVoters(ctx, run, msg.Answers[1].ID)
	if err != nil {
		return fmt.Errorf("count right voters: %w", err)
	}

	settings, err := e.store.GetSettings(ctx, run.GuildID)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}

	allKeys := append(append([]string(nil), run.LeftAssetKeys...), run.RightAssetKeys...)
	scores, err := e.store.GetScoresForAssets(ctx, allKeys)
	if err != nil {
		return fmt.Errorf("get scores: %w", err)
	}

	scoreFor := func(key string) domain.AssetScore {
		if s, ok := scores[key]; ok {
			return s
		}
		return domain.AssetScore{AssetKey: key, Elo: constants.StartingElo}
	}

	leftScores := make([]domain.AssetScore, len(run.LeftAssetKeys))
	leftRatings := make([]float64, len(run.LeftAssetKeys))
	for i, key := range run.LeftAssetKeys {
		leftScores[i] = scoreFor(key)
		leftRatings[i] = leftScores[i].Elo
	}
	rightScores := make([]domain.AssetScore, len(run.RightAssetKeys))
	rightRatings := make([]float64, len(run.RightAssetKeys))
	for i, key := range run.RightAssetKeys {
		rightScores[i] = scoreFor(key)
		rightRatings[i] = rightScores[i].Elo
	}

	outcome := ApplyEloFromVotesBundles(leftRatings, rightRatings, votesLeft, votesRight, settings.MinVotes)

	nowMs := e.nowMs()

	if outcome.AffectsScore {
		updates := make([]domain.AssetScore, 0, len(leftScores)+len(rightScores))
		updates = append(updates, applyResult(leftScores, outcome.Left, outcome.Result == domain.ResultLeft, outcome.Result == domain.ResultTie, votesLeft, votesRight, nowMs)...)
		updates = append(updates, applyResult(rightScores, outcome.Right, outcome.Result == domain.ResultRight, outcome.Result == domain.ResultTie, votesRight, votesLeft, nowMs)...)
		if err := e.store.UpsertScores(ctx, updates); err != nil {
			return fmt.Errorf("upsert scores: %w", err)
		}
	}

	cooldownMs := int64(settings.PairCooldownDays) * 86_400_000
	if err := e.store.UpsertCooldown(ctx, domain.PairCooldown{
		PairKey:          run.PairKey,
		LeftBundleKey:    BundleKey(run.LeftAssetKeys),
		RightBundleKey:   BundleKey(run.RightAssetKeys),
		LastPolledAtMs:   nowMs,
		NextEligibleAtMs: nowMs + cooldownMs,
	}); err != nil {
		return fmt.Errorf("upsert cooldown: %w", err)
	}

	if err := e.store.ClosePollRun(ctx, CloseRunParams{
		ID:           run.ID,
		ClosedAtMs:   nowMs,
		VotesLeft:    votesLeft,
		VotesRight:   votesRight,
		Result:       outcome.Result,
		AffectsScore: outcome.AffectsScore,
	}); err != nil {
		return fmt.Errorf("close poll run: %w", err)
	}

	e.logger.Info().
		Str("run_id", run.ID).
		Str("pair_key", run.PairKey).
		Int("votes_left", votesLeft).
		Int("votes_right", votesRight).
		Str("result", outcome.Result).
		Bool("affects_score", outcome.AffectsScore).
		Msg("poll closed")

	return nil
}

func applyResult(scores []domain.AssetScore, ratings []float64, won, tied bool, votesFor, votesAgainst int, nowMs int64) []domain.AssetScore {
	out := make([]domain.AssetScore, len(scores))
	for i, s := range scores {
		s.Elo = ratings[i]
		switch {
		case tied:
			s.Ties++
		case won:
			s.Wins++
		default:
			s.Losses++
		}
		s.PollsCount++
		s.VotesFor += votesFor
		s.VotesAgainst += votesAgainst
		s.LastPollAtMs = nowMs
		out[i] = s
	}
	return out
}

func (e *Engine) countVoters(ctx context.Context, run domain.PollRun, answerID int) (int, error) {
	total := 0
	after := ""
	for {
		page, err := e.chat.ListAnswerVoters(ctx, run.ChannelID, run.MessageID, answerID, constants.VoterPageSize, after)
		if err != nil {
			return 0, err
		}
		total += len(page)
		if len(page) < constants.VoterPageSize {
			return total, nil
		}
		after = page[len(page)-1]
	}
}

// Tick is the scheduler entry point, invoked every minute. Overlapping
// invocations are dropped, not queued. Each enabled guild whose cadence
// has elapsed gets one posting attempt, and every attempt lands in the
// scheduler log regardless of outcome.
func (e *Engine) Tick(ctx context.Context) {
	if !e.tickInFlight.CompareAndSwap(false, true) {
		e.logger.Debug().Msg("tick already in flight, dropping")
		return
	}
	defer e.tickInFlight.Store(false)

	e.CloseDueRuns(ctx)

	settingsList, err := e.store.ListEnabledSettings(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("list enabled settings failed")
		return
	}

	nowMs := e.nowMs()
	for _, settings := range settingsList {
		lastRun, err := e.store.GetLastSchedulerRunMs(ctx, settings.GuildID)
		if err != nil {
			e.logger.Error().Err(err).Str("guild_id", settings.GuildID).Msg("last scheduler run lookup failed")
			continue
		}
		if lastRun > 0 && nowMs-lastRun < int64(settings.CadenceMinutes)*60_000 {
			continue
		}

		outcome, err := e.PostPoll(ctx, settings.GuildID)
		status, reason := schedulerStatus(outcome, err)

		logID, idErr := gonanoid.New()
		if idErr != nil {
			e.logger.Error().Err(idErr).Msg("generate scheduler log id failed")
			continue
		}
		entry := domain.SchedulerLog{
			ID:        logID,
			GuildID:   settings.GuildID,
			RunAtMs:   nowMs,
			Status:    status,
			Reason:    reason,
			PairKey:   outcome.PairKey,
			MessageID: outcome.MessageID,
		}
		if err := e.store.InsertSchedulerLog(ctx, entry); err != nil {
			e.logger.Error().Err(err).Str("guild_id", settings.GuildID).Msg("scheduler log insert failed")
		}

		e.logger.Info().
			Str("guild_id", settings.GuildID).
			Str("status", status).
			Str("reason", reason).
			Msg("scheduler attempt")
	}
}

func schedulerStatus(outcome PostOutcome, err error) (status, reason string) {
	switch {
	case err != nil:
		return "error", outcome.Reason
	case outcome.Posted:
		return "posted", ""
	case outcome.Reason == ReasonSendFailed:
		return "error", outcome.Reason
	default:
		return "skipped", outcome.Reason
	}
}

// Catalog exposes the current snapshot for the command surface.
func (e *Engine) Catalog() (*SeedCatalog, *AssetUniverse) {
	return e.catalog.Snapshot()
}
