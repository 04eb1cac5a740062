package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	pq "github.com/lib/pq"
)

var ErrNotFound = errors.New("not found")

type TimerRepo struct{ db *sql.DB }

func NewTimerRepo(db *sql.DB) *TimerRepo { return &TimerRepo{db: db} }

const timerCols = `
channel_id, guild_id, owner_id, manager_role_id, notification_channel_id,
focus_length, break_length, last_started, last_message_id, voice_alerts,
inactivity_threshold, auto_restart, channel_name, pretty_name, created_at, updated_at`

func scanTimer(row interface{ Scan(...any) error }) (TimerRow, error) {
	var t TimerRow
	err := row.Scan(
		&t.ChannelID, &t.GuildID, &t.OwnerID, &t.ManagerRoleID, &t.NotificationChannelID,
		&t.FocusLength, &t.BreakLength, &t.LastStarted, &t.LastMessageID, &t.VoiceAlerts,
		&t.InactivityThreshold, &t.AutoRestart, &t.ChannelName, &t.PrettyName, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return TimerRow{}, ErrNotFound
	}
	return t, err
}

func (r *TimerRepo) Get(ctx context.Context, channelID string) (TimerRow, error) {
	return scanTimer(r.db.QueryRowContext(ctx, `
SELECT `+timerCols+`
  FROM timers
 WHERE channel_id = $1
`, channelID))
}

// ListByGuilds trae todos los timers de los guilds dados (carga de arranque).
func (r *TimerRepo) ListByGuilds(ctx context.Context, guildIDs []string) ([]TimerRow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+timerCols+`
  FROM timers
 WHERE guild_id = ANY($1)
 ORDER BY guild_id, channel_id
`, pq.Array(guildIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimerRow
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TimerRepo) Create(ctx context.Context, t TimerRow) (TimerRow, error) {
	return scanTimer(r.db.QueryRowContext(ctx, `
INSERT INTO timers
  (channel_id, guild_id, owner_id, manager_role_id, notification_channel_id,
   focus_length, break_length, voice_alerts, inactivity_threshold, auto_restart,
   channel_name, pretty_name)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING `+timerCols+`
`,
		t.ChannelID, t.GuildID, t.OwnerID, t.ManagerRoleID, t.NotificationChannelID,
		t.FocusLength, t.BreakLength, t.VoiceAlerts, t.InactivityThreshold, t.AutoRestart,
		t.ChannelName, t.PrettyName,
	))
}

// SetStarted fija last_started (nil == detenido) y el flag auto_restart.
func (r *TimerRepo) SetStarted(ctx context.Context, channelID string, startedAt *time.Time, autoRestart bool) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE timers
   SET last_started = $2, auto_restart = $3, updated_at = now()
 WHERE channel_id = $1
`, channelID, startedAt, autoRestart)
	return err
}

func (r *TimerRepo) SetLastMessage(ctx context.Context, channelID string, messageID *string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE timers
   SET last_message_id = $2, updated_at = now()
 WHERE channel_id = $1
`, channelID, messageID)
	return err
}

// UpdateConfig aplica un patch parcial (COALESCE: solo campos no-nulos).
func (r *TimerRepo) UpdateConfig(ctx context.Context, channelID string, p TimerPatch) (TimerRow, error) {
	return scanTimer(r.db.QueryRowContext(ctx, `
UPDATE timers SET
  focus_length            = COALESCE($2, focus_length),
  break_length            = COALESCE($3, break_length),
  notification_channel_id = COALESCE($4, notification_channel_id),
  manager_role_id         = COALESCE($5, manager_role_id),
  inactivity_threshold    = COALESCE($6, inactivity_threshold),
  voice_alerts            = COALESCE($7, voice_alerts),
  channel_name            = COALESCE($8, channel_name),
  pretty_name             = COALESCE($9, pretty_name),
  updated_at              = now()
 WHERE channel_id = $1
RETURNING `+timerCols+`
`,
		channelID,
		p.FocusLength, p.BreakLength, p.NotificationChannelID, p.ManagerRoleID,
		p.InactivityThreshold, p.VoiceAlerts, p.ChannelName, p.PrettyName,
	))
}

func (r *TimerRepo) Delete(ctx context.Context, channelID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM timers WHERE channel_id = $1`, channelID)
	return err
}

// DeleteMany borra en lote los timers cuyos canales ya no existen.
func (r *TimerRepo) DeleteMany(ctx context.Context, channelIDs []string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timers WHERE channel_id = ANY($1)`, pq.Array(channelIDs))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
