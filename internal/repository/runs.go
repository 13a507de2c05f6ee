package repository

import (
	"context"
	"fmt"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/marketpoll"
)

func (s *Store) InsertPollRun(ctx context.Context, run domain.PollRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO marketpoll_runs
			(id, guild_id, channel_id, message_id, pair_key, left_asset_keys, right_asset_keys,
			 started_at_ms, ends_at_ms, closed_at_ms, votes_left, votes_right, result, affects_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, '', 0)`,
		run.ID, run.GuildID, run.ChannelID, run.MessageID, run.PairKey,
		joinKeys(run.LeftAssetKeys), joinKeys(run.RightAssetKeys),
		run.StartedAtMs, run.EndsAtMs)
	if err != nil {
		return fmt.Errorf("insert poll run: %w", err)
	}
	return nil
}

const runColumns = `id, guild_id, channel_id, message_id, pair_key, left_asset_keys, right_asset_keys,
	started_at_ms, ends_at_ms, closed_at_ms, votes_left, votes_right, result, affects_score`

func scanRun(scanner interface{ Scan(...any) error }) (domain.PollRun, error) {
	var run domain.PollRun
	var left, right string
	err := scanner.Scan(&run.ID, &run.GuildID, &run.ChannelID, &run.MessageID, &run.PairKey,
		&left, &right, &run.StartedAtMs, &run.EndsAtMs, &run.ClosedAtMs,
		&run.VotesLeft, &run.VotesRight, &run.Result, &run.AffectsScore)
	if err != nil {
		return domain.PollRun{}, err
	}
	run.LeftAssetKeys = splitKeys(left)
	run.RightAssetKeys = splitKeys(right)
	return run, nil
}

// ListDuePollRuns returns open runs whose end time has passed, oldest
// first.
func (s *Store) ListDuePollRuns(ctx context.Context, nowMs int64, limit int) ([]domain.PollRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM marketpoll_runs
		WHERE closed_at_ms = 0 AND ends_at_ms <= ?
		ORDER BY ends_at_ms ASC
		LIMIT ?`, nowMs, limit)
	if err != nil {
		return nil, fmt.Errorf("list due runs: %w", err)
	}
	defer rows.Close()

	var out []domain.PollRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *Store) ClosePollRun(ctx context.Context, params marketpoll.CloseRunParams) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE marketpoll_runs
		SET closed_at_ms = ?, votes_left = ?, votes_right = ?, result = ?, affects_score = ?
		WHERE id = ? AND closed_at_ms = 0`,
		params.ClosedAtMs, params.VotesLeft, params.VotesRight, params.Result, params.AffectsScore, params.ID)
	if err != nil {
		return fmt.Errorf("close poll run: %w", err)
	}
	return nil
}

// MarkRunError closes a run terminally with result "error"; it will
// never be retried.
func (s *Store) MarkRunError(ctx context.Context, id string, closedAtMs int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE marketpoll_runs
		SET closed_at_ms = ?, result = ?, affects_score = 0
		WHERE id = ? AND closed_at_ms = 0`,
		closedAtMs, domain.ResultError, id)
	if err != nil {
		return fmt.Errorf("mark run error: %w", err)
	}
	return nil
}

func (s *Store) CountOpenPolls(ctx context.Context, guildID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM marketpoll_runs
		WHERE guild_id = ? AND closed_at_ms = 0`, guildID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open polls: %w", err)
	}
	return count, nil
}

// ListOpenPairKeys returns the pair keys of currently open runs. Open
// pairs are excluded from matchmaking independently of cooldown rows.
func (s *Store) ListOpenPairKeys(ctx context.Context, guildID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pair_key FROM marketpoll_runs
		WHERE guild_id = ? AND closed_at_ms = 0`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list open pair keys: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan pair key: %w", err)
		}
		out[key] = struct{}{}
	}
	return out, rows.Err()
}

// ListHistory returns closed runs, newest first, optionally filtered to
// runs that involved the given asset key.
func (s *Store) ListHistory(ctx context.Context, assetKey string, limit int) ([]domain.PollRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM marketpoll_runs
		WHERE closed_at_ms != 0`
	args := []any{}
	if assetKey != "" {
		query += ` AND (',' || left_asset_keys || ',' LIKE ? ESCAPE '\' OR ',' || right_asset_keys || ',' LIKE ? ESCAPE '\')`
		pattern := "%," + likeEscaper.Replace(assetKey) + ",%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY closed_at_ms DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []domain.PollRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
