package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/constants"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
)

func defaultSettings(guildID string) domain.GuildSettings {
	return domain.GuildSettings{
		GuildID:          guildID,
		CadenceMinutes:   constants.DefaultCadenceMinutes,
		PollMinutes:      constants.DefaultPollMinutes,
		PairCooldownDays: constants.DefaultPairCooldownDays,
		MinVotes:         constants.DefaultMinVotes,
	}
}

// GetSettings returns the guild's row, inserting defaults on first
// access so every guild always has one.
func (s *Store) GetSettings(ctx context.Context, guildID string) (domain.GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, enabled, channel_id, cadence_minutes, poll_minutes, pair_cooldown_days, min_votes
		FROM marketpoll_settings WHERE guild_id = ?`, guildID)

	var out domain.GuildSettings
	err := row.Scan(&out.GuildID, &out.Enabled, &out.ChannelID,
		&out.CadenceMinutes, &out.PollMinutes, &out.PairCooldownDays, &out.MinVotes)
	if err == sql.ErrNoRows {
		out = defaultSettings(guildID)
		nowMs := time.Now().UnixMilli()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO marketpoll_settings
				(guild_id, enabled, channel_id, cadence_minutes, poll_minutes, pair_cooldown_days, min_votes, created_at, updated_at)
			VALUES (?, 0, '', ?, ?, ?, ?, ?, ?)
			ON CONFLICT (guild_id) DO NOTHING`,
			guildID, out.CadenceMinutes, out.PollMinutes, out.PairCooldownDays, out.MinVotes, nowMs, nowMs)
		if err != nil {
			return domain.GuildSettings{}, fmt.Errorf("insert default settings: %w", err)
		}
		return out, nil
	}
	if err != nil {
		return domain.GuildSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateSettings(ctx context.Context, guildID string, patch domain.SettingsPatch) error {
	current, err := s.GetSettings(ctx, guildID)
	if err != nil {
		return err
	}

	if patch.Enabled != nil {
		current.Enabled = *patch.Enabled
	}
	if patch.ChannelID != nil {
		current.ChannelID = *patch.ChannelID
	}
	if patch.CadenceMinutes != nil {
		current.CadenceMinutes = *patch.CadenceMinutes
	}
	if patch.PollMinutes != nil {
		current.PollMinutes = *patch.PollMinutes
	}
	if patch.PairCooldownDays != nil {
		current.PairCooldownDays = *patch.PairCooldownDays
	}
	if patch.MinVotes != nil {
		current.MinVotes = *patch.MinVotes
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE marketpoll_settings
		SET enabled = ?, channel_id = ?, cadence_minutes = ?, poll_minutes = ?,
			pair_cooldown_days = ?, min_votes = ?, updated_at = ?
		WHERE guild_id = ?`,
		current.Enabled, current.ChannelID, current.CadenceMinutes, current.PollMinutes,
		current.PairCooldownDays, current.MinVotes, time.Now().UnixMilli(), guildID)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// ListEnabledSettings returns only guilds that are enabled and have a
// target channel configured.
func (s *Store) ListEnabledSettings(ctx context.Context) ([]domain.GuildSettings, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, enabled, channel_id, cadence_minutes, poll_minutes, pair_cooldown_days, min_votes
		FROM marketpoll_settings
		WHERE enabled = 1 AND channel_id != ''
		ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("list enabled settings: %w", err)
	}
	defer rows.Close()

	var out []domain.GuildSettings
	for rows.Next() {
		var gs domain.GuildSettings
		if err := rows.Scan(&gs.GuildID, &gs.Enabled, &gs.ChannelID,
			&gs.CadenceMinutes, &gs.PollMinutes, &gs.PairCooldownDays, &gs.MinVotes); err != nil {
			return nil, fmt.Errorf("scan settings row: %w", err)
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}
