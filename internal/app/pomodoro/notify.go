package pomodoro

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/jose-valero/pomodoro-bot/internal/infra/storage"
)

// notificationChannelID resuelve a dónde van las notificaciones:
// canal explícito del timer → default del guild → el propio canal de voz.
func (t *Timer) notificationChannelID(ctx context.Context) string {
	row := t.Row()
	if cid := row.NotificationChannelID; cid != nil && t.deps.Gateway.ChannelExists(*cid) {
		return *cid
	}
	if g, err := t.deps.Guilds.Get(ctx, row.GuildID); err == nil {
		if cid := g.PomodoroChannelID; cid != nil && t.deps.Gateway.ChannelExists(*cid) {
			return *cid
		}
	}
	return row.ChannelID
}

// notifyHook devuelve el webhook de notificación cacheado, buscándolo en
// storage o creándolo si hace falta. Sin permiso de manage_webhooks cae a
// un aviso plano en el canal (si puede) y devuelve nil: nada de esto
// propaga errores hacia arriba.
func (t *Timer) notifyHook(ctx context.Context) *storage.NotifyHook {
	channelID := t.notificationChannelID(ctx)

	t.hookMu.Lock()
	defer t.hookMu.Unlock()

	if t.hook != nil && t.hook.ChannelID == channelID {
		return t.hook
	}
	t.hook = nil

	h, err := t.deps.Hooks.Get(ctx, channelID)
	switch {
	case err == nil:
		t.hook = &h
		return t.hook
	case !errors.Is(err, storage.ErrNotFound):
		log.Warn().Err(err).Str("tid", t.ChannelID()).Msg("[notify] no pude leer el webhook guardado")
		return nil
	}

	perms := t.deps.Gateway.BotPermissions(t.GuildID(), channelID)
	switch {
	case perms.ManageWebhooks:
		id, token, err := t.deps.Gateway.CreateWebhook(ctx, channelID, "Pomodoro Notifications")
		if err != nil {
			log.Warn().Err(err).Str("tid", t.ChannelID()).Str("channel", channelID).Msg("[notify] no pude crear el webhook")
			return nil
		}
		h = storage.NotifyHook{ChannelID: channelID, WebhookID: id, Token: token}
		if err := t.deps.Hooks.Upsert(ctx, h); err != nil {
			log.Warn().Err(err).Str("tid", t.ChannelID()).Msg("[notify] no pude persistir el webhook")
		}
		t.hook = &h
		return t.hook
	case perms.SendMessages:
		_ = t.deps.Gateway.SendChannelMessage(ctx, channelID,
			"I require the `MANAGE_WEBHOOKS` permission to send pomodoro notifications here!")
	}
	return nil
}

// dropHook descarta el webhook cacheado y su fila (el webhook fue
// borrado del lado de Discord).
func (t *Timer) dropHook(ctx context.Context, channelID string) {
	t.hookMu.Lock()
	t.hook = nil
	t.hookMu.Unlock()
	if err := t.deps.Hooks.Delete(ctx, channelID); err != nil {
		log.Warn().Err(err).Str("tid", t.ChannelID()).Msg("[notify] no pude borrar el webhook muerto")
	}
}

// NotificationStale dice si el destino cacheado ya no coincide con el
// canal resuelto (cambió el setting del guild). El registry lo usa para
// decidir qué timers re-postean su status.
func (t *Timer) NotificationStale(ctx context.Context) bool {
	channelID := t.notificationChannelID(ctx)
	t.hookMu.Lock()
	defer t.hookMu.Unlock()
	return t.hook == nil || t.hook.ChannelID != channelID
}
