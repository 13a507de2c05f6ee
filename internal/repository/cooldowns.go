package repository

import (
	"context"
	"fmt"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
)

// GetCooldownMap returns pairKey -> nextEligibleAtMs for cooldowns that
// are still in the future relative to nowMs.
func (s *Store) GetCooldownMap(ctx context.Context, nowMs int64) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pair_key, next_eligible_at_ms
		FROM marketpoll_cooldowns
		WHERE next_eligible_at_ms > ?`, nowMs)
	if err != nil {
		return nil, fmt.Errorf("get cooldown map: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var until int64
		if err := rows.Scan(&key, &until); err != nil {
			return nil, fmt.Errorf("scan cooldown row: %w", err)
		}
		out[key] = until
	}
	return out, rows.Err()
}

// UpsertCooldown refreshes the pair's cooldown window and bumps its
// poll counter.
func (s *Store) UpsertCooldown(ctx context.Context, cd domain.PairCooldown) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO marketpoll_cooldowns
			(pair_key, left_bundle_key, right_bundle_key, last_polled_at_ms, next_eligible_at_ms, polls_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (pair_key) DO UPDATE SET
			last_polled_at_ms = excluded.last_polled_at_ms,
			next_eligible_at_ms = excluded.next_eligible_at_ms,
			polls_count = marketpoll_cooldowns.polls_count + 1`,
		cd.PairKey, cd.LeftBundleKey, cd.RightBundleKey, cd.LastPolledAtMs, cd.NextEligibleAtMs)
	if err != nil {
		return fmt.Errorf("upsert cooldown: %w", err)
	}
	return nil
}
