package storage

import (
	"context"
	"database/sql"
	"errors"
)

type GuildRepo struct{ db *sql.DB }

func NewGuildRepo(db *sql.DB) *GuildRepo { return &GuildRepo{db: db} }

// Get devuelve los settings del guild; fila vacía si nunca se configuró.
func (r *GuildRepo) Get(ctx context.Context, guildID string) (GuildSettings, error) {
	var g GuildSettings
	err := r.db.QueryRowContext(ctx, `
SELECT guild_id, pomodoro_channel_id, updated_at
  FROM guild_settings
 WHERE guild_id = $1
`, guildID).Scan(&g.GuildID, &g.PomodoroChannelID, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return GuildSettings{GuildID: guildID}, nil
	}
	return g, err
}

func (r *GuildRepo) SetPomodoroChannel(ctx context.Context, guildID string, channelID *string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO guild_settings (guild_id, pomodoro_channel_id)
VALUES ($1,$2)
ON CONFLICT (guild_id) DO UPDATE SET
  pomodoro_channel_id = EXCLUDED.pomodoro_channel_id,
  updated_at          = now()
`, guildID, channelID)
	return err
}
