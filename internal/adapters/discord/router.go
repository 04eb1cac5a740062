package discord

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/jose-valero/pomodoro-bot/internal/app/pomodoro"
)

// GuildSettingsStore es la escritura de settings que necesita el router
// (la lectura la hace el core vía pomodoro.GuildStore).
type GuildSettingsStore interface {
	SetPomodoroChannel(ctx context.Context, guildID string, channelID *string) error
}

type Router struct {
	s        *discordgo.Session
	registry *pomodoro.Registry
	timers   pomodoro.TimerStore
	guilds   GuildSettingsStore

	clickLimiter *clickLimiter

	mu     sync.Mutex
	loaded map[string]bool // guilds ya cargados en el registry
}

func NewRouter(
	s *discordgo.Session,
	registry *pomodoro.Registry,
	timers pomodoro.TimerStore,
	guilds GuildSettingsStore,
) *Router {
	return &Router{
		s:            s,
		registry:     registry,
		timers:       timers,
		guilds:       guilds,
		clickLimiter: newClickLimiter(2*time.Second, 1),
		loaded:       map[string]bool{},
	}
}

// Register publica los slash commands globales.
func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	// Carga inicial: restauramos los timers de todos los guilds del shard.
	r.s.AddHandler(func(s *discordgo.Session, ready *discordgo.Ready) {
		ids := make([]string, 0, len(ready.Guilds))
		r.mu.Lock()
		for _, g := range ready.Guilds {
			ids = append(ids, g.ID)
			r.loaded[g.ID] = true
		}
		r.mu.Unlock()

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := r.registry.LoadGuilds(ctx, ids); err != nil {
				log.Error().Err(err).Msg("[router] fallo la carga inicial de timers")
			}
		}()
	})

	// Interacciones: slash y componentes.
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		switch ic.Type {
		case discordgo.InteractionApplicationCommand:
			r.handleSlash(s, ic)
		case discordgo.InteractionMessageComponent:
			r.handleMessageComponent(s, ic)
		}
	})

	// Voz: presencia, auto-restart y refresh del status card.
	r.s.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		before := ""
		if vs.BeforeUpdate != nil {
			before = vs.BeforeUpdate.ChannelID
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			r.registry.HandleVoiceUpdate(ctx, vs.GuildID, vs.UserID, before, vs.ChannelID)
		}()
	})

	// Canal de voz borrado -> el timer muere con él.
	r.s.AddHandler(func(s *discordgo.Session, ev *discordgo.ChannelDelete) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			r.registry.DestroyChannel(ctx, ev.GuildID, ev.ID)
		}()
	})

	// Guild nuevo después del ready.
	r.s.AddHandler(func(s *discordgo.Session, ev *discordgo.GuildCreate) {
		r.mu.Lock()
		seen := r.loaded[ev.ID]
		r.loaded[ev.ID] = true
		r.mu.Unlock()
		if seen {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := r.registry.LoadGuild(ctx, ev.ID); err != nil {
				log.Error().Err(err).Str("guild", ev.ID).Msg("[router] no pude cargar el guild nuevo")
			}
		}()
	})

	// Nos fuimos (o nos echaron): soltamos los timers sin tocar la DB.
	r.s.AddHandler(func(s *discordgo.Session, ev *discordgo.GuildDelete) {
		if ev.Unavailable {
			return
		}
		r.mu.Lock()
		delete(r.loaded, ev.ID)
		r.mu.Unlock()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			r.registry.UnloadGuild(ctx, ev.ID)
		}()
	})
}
