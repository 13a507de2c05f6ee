package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/constants"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/database"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/marketpoll"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// A single connection keeps the in-memory database alive across
	// queries.
	db.SetMaxOpenConns(1)
	require.NoError(t, database.RunMigrations(db, zerolog.Nop()))
	return NewStore(db, zerolog.Nop())
}

func ptr[T any](v T) *T { return &v }

func TestSettings(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("first access inserts defaults", func(t *testing.T) {
		gs, err := store.GetSettings(ctx, "g1")
		require.NoError(t, err)
		assert.False(t, gs.Enabled)
		assert.Empty(t, gs.ChannelID)
		assert.Equal(t, constants.DefaultCadenceMinutes, gs.CadenceMinutes)
		assert.Equal(t, constants.DefaultPollMinutes, gs.PollMinutes)
		assert.Equal(t, constants.DefaultPairCooldownDays, gs.PairCooldownDays)
		assert.Equal(t, constants.DefaultMinVotes, gs.MinVotes)

		again, err := store.GetSettings(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, gs, again)
	})

	t.Run("patch updates only set fields", func(t *testing.T) {
		err := store.UpdateSettings(ctx, "g1", domain.SettingsPatch{
			Enabled:   ptr(true),
			ChannelID: ptr("c1"),
			MinVotes:  ptr(3),
		})
		require.NoError(t, err)

		gs, err := store.GetSettings(ctx, "g1")
		require.NoError(t, err)
		assert.True(t, gs.Enabled)
		assert.Equal(t, "c1", gs.ChannelID)
		assert.Equal(t, 3, gs.MinVotes)
		assert.Equal(t, constants.DefaultCadenceMinutes, gs.CadenceMinutes)
	})

	t.Run("patching a fresh guild creates its row", func(t *testing.T) {
		err := store.UpdateSettings(ctx, "g2", domain.SettingsPatch{CadenceMinutes: ptr(60)})
		require.NoError(t, err)
		gs, err := store.GetSettings(ctx, "g2")
		require.NoError(t, err)
		assert.Equal(t, 60, gs.CadenceMinutes)
	})

	t.Run("enabled list needs both flag and channel", func(t *testing.T) {
		_, err := store.GetSettings(ctx, "g3")
		require.NoError(t, err)
		require.NoError(t, store.UpdateSettings(ctx, "g3", domain.SettingsPatch{Enabled: ptr(true)}))

		list, err := store.ListEnabledSettings(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "g1", list[0].GuildID)
	})
}

func insertOpenRun(t *testing.T, store *Store, id, guildID, pairKey string, endsAtMs int64, left, right []string) {
	t.Helper()
	require.NoError(t, store.InsertPollRun(context.Background(), domain.PollRun{
		ID:             id,
		GuildID:        guildID,
		ChannelID:      "c1",
		MessageID:      "msg-" + id,
		PairKey:        pairKey,
		LeftAssetKeys:  left,
		RightAssetKeys: right,
		StartedAtMs:    endsAtMs - 60_000,
		EndsAtMs:       endsAtMs,
	}))
}

func TestPollRuns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	insertOpenRun(t, store, "r1", "g1", "Abra|M||Machop|M", 1_000, []string{"Abra|M"}, []string{"Machop|M"})
	insertOpenRun(t, store, "r2", "g1", "Eevee|F||Gastly|F", 2_000, []string{"Gastly|F"}, []string{"Eevee|F"})
	insertOpenRun(t, store, "r3", "g2", "Abra|M||Moltres|G", 1_500, []string{"Abra|M", "Moltres|G"}, []string{"Machop|M"})

	t.Run("due runs come back oldest first", func(t *testing.T) {
		due, err := store.ListDuePollRuns(ctx, 1_600, 10)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, "r1", due[0].ID)
		assert.Equal(t, "r3", due[1].ID)
		assert.Equal(t, []string{"Abra|M", "Moltres|G"}, due[1].LeftAssetKeys)
	})

	t.Run("limit caps the batch", func(t *testing.T) {
		due, err := store.ListDuePollRuns(ctx, 5_000, 1)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "r1", due[0].ID)
	})

	t.Run("open pair keys are per guild", func(t *testing.T) {
		keys, err := store.ListOpenPairKeys(ctx, "g1")
		require.NoError(t, err)
		assert.Len(t, keys, 2)
		assert.Contains(t, keys, "Abra|M||Machop|M")
		assert.NotContains(t, keys, "Abra|M||Moltres|G")
	})

	t.Run("closing removes a run from due and open sets", func(t *testing.T) {
		err := store.ClosePollRun(ctx, marketpoll.CloseRunParams{
			ID:           "r1",
			ClosedAtMs:   1_700,
			VotesLeft:    8,
			VotesRight:   3,
			Result:       domain.ResultLeft,
			AffectsScore: true,
		})
		require.NoError(t, err)

		due, err := store.ListDuePollRuns(ctx, 5_000, 10)
		require.NoError(t, err)
		for _, run := range due {
			assert.NotEqual(t, "r1", run.ID)
		}

		n, err := store.CountOpenPolls(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("mark error closes terminally", func(t *testing.T) {
		require.NoError(t, store.MarkRunError(ctx, "r3", 1_800))

		due, err := store.ListDuePollRuns(ctx, 5_000, 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "r2", due[0].ID)

		hist, err := store.ListHistory(ctx, "Moltres|G", 10)
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, domain.ResultError, hist[0].Result)
		assert.False(t, hist[0].AffectsScore)
	})

	t.Run("history filters by member asset key", func(t *testing.T) {
		hist, err := store.ListHistory(ctx, "Abra|M", 10)
		require.NoError(t, err)
		require.Len(t, hist, 2)
		// Newest first.
		assert.Equal(t, "r3", hist[0].ID)
		assert.Equal(t, "r1", hist[1].ID)

		hist, err = store.ListHistory(ctx, "Eevee|F", 10)
		require.NoError(t, err)
		assert.Empty(t, hist)

		all, err := store.ListHistory(ctx, "", 10)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("history filter treats wildcards literally", func(t *testing.T) {
		insertOpenRun(t, store, "r4", "g1", "AbraX|M||Machop|M", 2_100, []string{"AbraX|M"}, []string{"Machop|M"})
		require.NoError(t, store.ClosePollRun(ctx, marketpoll.CloseRunParams{
			ID: "r4", ClosedAtMs: 2_200, VotesLeft: 5, VotesRight: 2,
			Result: domain.ResultLeft, AffectsScore: true,
		}))

		hist, err := store.ListHistory(ctx, "AbraX|M", 10)
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, "r4", hist[0].ID)

		// "_" and "%" in the query are literals, not LIKE wildcards.
		hist, err = store.ListHistory(ctx, "Abra_|M", 10)
		require.NoError(t, err)
		assert.Empty(t, hist)

		hist, err = store.ListHistory(ctx, "Abra%", 10)
		require.NoError(t, err)
		assert.Empty(t, hist)
	})
}

func TestCooldowns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	cd := domain.PairCooldown{
		PairKey:          "Abra|M||Machop|M",
		LeftBundleKey:    "Abra|M",
		RightBundleKey:   "Machop|M",
		LastPolledAtMs:   1_000,
		NextEligibleAtMs: 2_000,
	}
	require.NoError(t, store.UpsertCooldown(ctx, cd))

	t.Run("map filters expired windows", func(t *testing.T) {
		m, err := store.GetCooldownMap(ctx, 1_500)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"Abra|M||Machop|M": 2_000}, m)

		m, err = store.GetCooldownMap(ctx, 2_000)
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("re-upsert refreshes window and bumps counter", func(t *testing.T) {
		cd.LastPolledAtMs = 3_000
		cd.NextEligibleAtMs = 4_000
		require.NoError(t, store.UpsertCooldown(ctx, cd))

		m, err := store.GetCooldownMap(ctx, 3_500)
		require.NoError(t, err)
		assert.Equal(t, int64(4_000), m["Abra|M||Machop|M"])

		var polls int
		err = store.db.QueryRowContext(ctx,
			`SELECT polls_count FROM marketpoll_cooldowns WHERE pair_key = ?`, cd.PairKey).Scan(&polls)
		require.NoError(t, err)
		assert.Equal(t, 2, polls)
	})
}

func TestScores(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("missing assets have no entries", func(t *testing.T) {
		m, err := store.GetScoresForAssets(ctx, []string{"Abra|M"})
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	scores := []domain.AssetScore{
		{AssetKey: "Abra|M", Elo: 1512.5, Wins: 1, PollsCount: 1, VotesFor: 8, VotesAgainst: 3, LastPollAtMs: 9_000},
		{AssetKey: "Machop|M", Elo: 1487.5, Losses: 1, PollsCount: 1, VotesFor: 3, VotesAgainst: 8, LastPollAtMs: 9_000},
		{AssetKey: "Gastly|F", Elo: 1530.1234, Wins: 2, PollsCount: 2},
	}
	require.NoError(t, store.UpsertScores(ctx, scores))

	t.Run("round trip keeps every field", func(t *testing.T) {
		m, err := store.GetScoresForAssets(ctx, []string{"Abra|M", "Machop|M", "Missing|?"})
		require.NoError(t, err)
		require.Len(t, m, 2)
		assert.Equal(t, scores[0], m["Abra|M"])
		assert.Equal(t, scores[1], m["Machop|M"])
	})

	t.Run("upsert replaces prior values", func(t *testing.T) {
		updated := scores[0]
		updated.Elo = 1520.0
		updated.Wins = 2
		updated.PollsCount = 2
		require.NoError(t, store.UpsertScores(ctx, []domain.AssetScore{updated}))

		m, err := store.GetScoresForAssets(ctx, []string{"Abra|M"})
		require.NoError(t, err)
		assert.Equal(t, updated, m["Abra|M"])
	})

	t.Run("leaderboard orders by elo descending", func(t *testing.T) {
		top, err := store.ListLeaderboard(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "Gastly|F", top[0].AssetKey)
		assert.Equal(t, "Abra|M", top[1].AssetKey)
	})

	t.Run("empty upsert is a no-op", func(t *testing.T) {
		assert.NoError(t, store.UpsertScores(ctx, nil))
	})
}

func TestSchedulerLog(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("no runs yet means zero", func(t *testing.T) {
		last, err := store.GetLastSchedulerRunMs(ctx, "g1")
		require.NoError(t, err)
		assert.Zero(t, last)
	})

	entries := []domain.SchedulerLog{
		{ID: "s1", GuildID: "g1", RunAtMs: 1_000, Status: "posted", PairKey: "a||b", MessageID: "m1"},
		{ID: "s2", GuildID: "g1", RunAtMs: 2_000, Status: "skipped", Reason: "no_eligible_pair"},
		{ID: "s3", GuildID: "g2", RunAtMs: 3_000, Status: "posted", PairKey: "c||d", MessageID: "m2"},
	}
	for _, e := range entries {
		require.NoError(t, store.InsertSchedulerLog(ctx, e))
	}

	t.Run("latest run per guild", func(t *testing.T) {
		last, err := store.GetLastSchedulerRunMs(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, int64(2_000), last)

		last, err = store.GetLastSchedulerRunMs(ctx, "g2")
		require.NoError(t, err)
		assert.Equal(t, int64(3_000), last)
	})
}

func TestKeyJoining(t *testing.T) {
	assert.Equal(t, "a,b", joinKeys([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, splitKeys("a,b"))
	assert.Nil(t, splitKeys(""))
}
