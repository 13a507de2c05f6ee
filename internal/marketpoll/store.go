package marketpoll

import (
	"context"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
)

// CloseRunParams finalizes one poll run.
type CloseRunParams struct {
	ID           string
	ClosedAtMs   int64
	VotesLeft    int
	VotesRight   int
	Result       string
	AffectsScore bool
}

// Store is the persistence gateway the engine consumes. The sqlite
// implementation lives in internal/repository; tests use an in-memory
// fake.
type Store interface {
	GetSettings(ctx context.Context, guildID string) (domain.GuildSettings, error)
	UpdateSettings(ctx context.Context, guildID string, patch domain.SettingsPatch) error
	ListEnabledSettings(ctx context.Context) ([]domain.GuildSettings, error)

	InsertSchedulerLog(ctx context.Context, entry domain.SchedulerLog) error
	GetLastSchedulerRunMs(ctx context.Context, guildID string) (int64, error)

	InsertPollRun(ctx context.Context, run domain.PollRun) error
	ListDuePollRuns(ctx context.Context, nowMs int64, limit int) ([]domain.PollRun, error)
	ClosePollRun(ctx context.Context, params CloseRunParams) error
	MarkRunError(ctx context.Context, id string, closedAtMs int64) error
	CountOpenPolls(ctx context.Context, guildID string) (int, error)

	ListOpenPairKeys(ctx context.Context, guildID string) (map[string]struct{}, error)
	GetCooldownMap(ctx context.Context, nowMs int64) (map[string]int64, error)
	UpsertCooldown(ctx context.Context, cd domain.PairCooldown) error

	GetScoresForAssets(ctx context.Context, assetKeys []string) (map[string]domain.AssetScore, error)
	UpsertScores(ctx context.Context, scores []domain.AssetScore) error
	ListLeaderboard(ctx context.Context, limit int) ([]domain.AssetScore, error)
	ListHistory(ctx context.Context, assetKey string, limit int) ([]domain.PollRun, error)
}
