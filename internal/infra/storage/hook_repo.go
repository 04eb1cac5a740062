package storage

import (
	"context"
	"database/sql"
	"errors"
)

type HookRepo struct{ db *sql.DB }

func NewHookRepo(db *sql.DB) *HookRepo { return &HookRepo{db: db} }

func (r *HookRepo) Get(ctx context.Context, channelID string) (NotifyHook, error) {
	var h NotifyHook
	err := r.db.QueryRowContext(ctx, `
SELECT channel_id, webhook_id, token, created_at
  FROM notify_hooks
 WHERE channel_id = $1
`, channelID).Scan(&h.ChannelID, &h.WebhookID, &h.Token, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return NotifyHook{}, ErrNotFound
	}
	return h, err
}

func (r *HookRepo) Upsert(ctx context.Context, h NotifyHook) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO notify_hooks (channel_id, webhook_id, token)
VALUES ($1,$2,$3)
ON CONFLICT (channel_id) DO UPDATE SET
  webhook_id = EXCLUDED.webhook_id,
  token      = EXCLUDED.token
`, h.ChannelID, h.WebhookID, h.Token)
	return err
}

func (r *HookRepo) Delete(ctx context.Context, channelID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notify_hooks WHERE channel_id = $1`, channelID)
	return err
}
