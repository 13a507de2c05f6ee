package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
)

func (s *Store) InsertSchedulerLog(ctx context.Context, entry domain.SchedulerLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO marketpoll_scheduler_log (id, guild_id, run_at_ms, status, reason, pair_key, message_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.GuildID, entry.RunAtMs, entry.Status, entry.Reason, entry.PairKey, entry.MessageID)
	if err != nil {
		return fmt.Errorf("insert scheduler log: %w", err)
	}
	return nil
}

// GetLastSchedulerRunMs returns 0 when the guild has no prior run.
func (s *Store) GetLastSchedulerRunMs(ctx context.Context, guildID string) (int64, error) {
	var runAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT run_at_ms FROM marketpoll_scheduler_log
		WHERE guild_id = ?
		ORDER BY run_at_ms DESC
		LIMIT 1`, guildID).Scan(&runAt)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get last scheduler run: %w", err)
	}
	return runAt, nil
}
