package pomodoro

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jose-valero/pomodoro-bot/internal/infra/storage"
)

func TestNotificationChannelPrefersExplicitSetting(t *testing.T) {
	f := newFixture()
	f.gw.channels["notif"] = "announcements"
	row := baseRow()
	row.NotificationChannelID = strPtr("notif")
	tm := f.timer(row)

	require.Equal(t, "notif", tm.notificationChannelID(context.Background()))
}

func TestNotificationChannelFallsBackToGuildDefault(t *testing.T) {
	f := newFixture()
	f.gw.channels["gdefault"] = "pomodoro"
	f.guilds.settings["guild1"] = storage.GuildSettings{
		GuildID:           "guild1",
		PomodoroChannelID: strPtr("gdefault"),
	}
	row := baseRow()
	row.NotificationChannelID = strPtr("deleted-channel") // ya no existe
	tm := f.timer(row)

	require.Equal(t, "gdefault", tm.notificationChannelID(context.Background()))
}

func TestNotificationChannelDefaultsToOwnChannel(t *testing.T) {
	f := newFixture()
	tm := f.timer(baseRow())

	require.Equal(t, "chan1", tm.notificationChannelID(context.Background()))
}

func TestNotifyHookIsCachedPerChannel(t *testing.T) {
	f := newFixture()
	tm := f.timer(baseRow())

	h1 := tm.notifyHook(context.Background())
	require.NotNil(t, h1)
	require.Equal(t, "chan1", h1.ChannelID)

	// Segunda llamada no vuelve al storage ni crea webhooks.
	f.hooks.hooks = nil
	h2 := tm.notifyHook(context.Background())
	require.Equal(t, h1, h2)
	require.Zero(t, f.gw.webhooks)
}

func TestNotificationStaleAfterGuildSettingChange(t *testing.T) {
	f := newFixture()
	f.gw.channels["gdefault"] = "pomodoro"
	f.hooks.hooks["gdefault"] = storage.NotifyHook{ChannelID: "gdefault", WebhookID: "wh-g", Token: "token"}
	tm := f.timer(baseRow())

	require.NotNil(t, tm.notifyHook(context.Background()))
	require.False(t, tm.NotificationStale(context.Background()))

	f.guilds.mu.Lock()
	f.guilds.settings["guild1"] = storage.GuildSettings{
		GuildID:           "guild1",
		PomodoroChannelID: strPtr("gdefault"),
	}
	f.guilds.mu.Unlock()

	require.True(t, tm.NotificationStale(context.Background()))
}
