package pomodoro

import (
	"context"
	"errors"
	"time"

	"github.com/jose-valero/pomodoro-bot/internal/infra/storage"
)

// Errores centinela: el adapter de Discord mapea los RESTError acá para
// que el core pueda degradar sin conocer códigos HTTP.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// Perms son las capacidades del bot sobre un canal concreto.
type Perms struct {
	ManageChannels bool
	MoveMembers    bool
	Connect        bool
	Speak          bool
	SendMessages   bool
	ManageWebhooks bool
}

// StatusMessage es la notificación de estado ya compuesta; el adapter le
// agrega embed y botones al enviarla.
type StatusMessage struct {
	Content     string
	ChannelID   string
	Running     bool
	AutoRestart bool
	Stage       *Stage
	BaseName    string
	Pattern     string
	MemberCount int
}

// Gateway es lo que el core necesita del adapter de chat. Lo implementa
// internal/adapters/discord.
type Gateway interface {
	ChannelExists(channelID string) bool
	ChannelName(channelID string) (string, bool)
	VoiceMembers(guildID, channelID string) []string
	BotPermissions(guildID, channelID string) Perms

	RenameChannel(ctx context.Context, channelID, name, reason string) error
	DisconnectMember(ctx context.Context, guildID, userID, reason string) error

	CreateWebhook(ctx context.Context, channelID, name string) (id, token string, err error)
	SendChannelMessage(ctx context.Context, channelID, content string) error

	HookSend(ctx context.Context, h storage.NotifyHook, msg StatusMessage) (messageID string, err error)
	HookSendText(ctx context.Context, h storage.NotifyHook, content string) error
	HookEdit(ctx context.Context, h storage.NotifyHook, messageID string, msg StatusMessage) error
	HookDelete(ctx context.Context, h storage.NotifyHook, messageID string) error
}

// VoiceDialer abre la conexión de voz para los alerts. La llamada es un
// recurso único por guild; el AlertPlayer lo serializa con el voice lock.
type VoiceDialer interface {
	Join(ctx context.Context, guildID, channelID string) (VoiceCall, error)
}

type VoiceCall interface {
	// Play reproduce el cue del stage y espera a que termine o expire ctx.
	Play(ctx context.Context, focused bool) error
	Close() error
}

// Lo implementa internal/infra/storage.TimerRepo
type TimerStore interface {
	Get(ctx context.Context, channelID string) (storage.TimerRow, error)
	ListByGuilds(ctx context.Context, guildIDs []string) ([]storage.TimerRow, error)
	Create(ctx context.Context, t storage.TimerRow) (storage.TimerRow, error)
	SetStarted(ctx context.Context, channelID string, startedAt *time.Time, autoRestart bool) error
	SetLastMessage(ctx context.Context, channelID string, messageID *string) error
	UpdateConfig(ctx context.Context, channelID string, p storage.TimerPatch) (storage.TimerRow, error)
	Delete(ctx context.Context, channelID string) error
	DeleteMany(ctx context.Context, channelIDs []string) (int64, error)
}

// Lo implementa internal/infra/storage.HookRepo
type HookStore interface {
	Get(ctx context.Context, channelID string) (storage.NotifyHook, error)
	Upsert(ctx context.Context, h storage.NotifyHook) error
	Delete(ctx context.Context, channelID string) error
}

// Lo implementa internal/infra/storage.GuildRepo
type GuildStore interface {
	Get(ctx context.Context, guildID string) (storage.GuildSettings, error)
}

// Deps agrupa los colaboradores externos de timers y registry.
type Deps struct {
	Gateway Gateway
	Voice   VoiceDialer
	Timers  TimerStore
	Hooks   HookStore
	Guilds  GuildStore
	Now     func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}
