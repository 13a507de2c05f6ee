package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
)

const scoreColumns = `asset_key, elo, wins, losses, ties, polls_count, votes_for, votes_against, last_poll_at_ms`

func scanScore(scanner interface{ Scan(...any) error }) (domain.AssetScore, error) {
	var sc domain.AssetScore
	err := scanner.Scan(&sc.AssetKey, &sc.Elo, &sc.Wins, &sc.Losses, &sc.Ties,
		&sc.PollsCount, &sc.VotesFor, &sc.VotesAgainst, &sc.LastPollAtMs)
	return sc, err
}

// GetScoresForAssets returns existing score rows keyed by asset key.
// Missing assets simply have no entry; callers default them.
func (s *Store) GetScoresForAssets(ctx context.Context, assetKeys []string) (map[string]domain.AssetScore, error) {
	out := make(map[string]domain.AssetScore)
	if len(assetKeys) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(assetKeys))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(assetKeys))
	for i, k := range assetKeys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM marketpoll_scores WHERE asset_key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		out[sc.AssetKey] = sc
	}
	return out, rows.Err()
}

// UpsertScores writes all updates in one transaction so a poll's score
// mutations land atomically.
func (s *Store) UpsertScores(ctx context.Context, scores []domain.AssetScore) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scores transaction: %w", err)
	}
	defer tx.Rollback()

	for _, sc := range scores {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO marketpoll_scores
				(asset_key, elo, wins, losses, ties, polls_count, votes_for, votes_against, last_poll_at_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (asset_key) DO UPDATE SET
				elo = excluded.elo,
				wins = excluded.wins,
				losses = excluded.losses,
				ties = excluded.ties,
				polls_count = excluded.polls_count,
				votes_for = excluded.votes_for,
				votes_against = excluded.votes_against,
				last_poll_at_ms = excluded.last_poll_at_ms`,
			sc.AssetKey, sc.Elo, sc.Wins, sc.Losses, sc.Ties,
			sc.PollsCount, sc.VotesFor, sc.VotesAgainst, sc.LastPollAtMs)
		if err != nil {
			return fmt.Errorf("upsert score for %s: %w", sc.AssetKey, err)
		}
	}

	return tx.Commit()
}

func (s *Store) ListLeaderboard(ctx context.Context, limit int) ([]domain.AssetScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM marketpoll_scores ORDER BY elo DESC, asset_key ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	defer rows.Close()

	var out []domain.AssetScore
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
