package pomodoro

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/jose-valero/pomodoro-bot/internal/infra/storage"
)

// Cuántos refresh de status corremos en paralelo durante la carga.
const loadConcurrency = 10

// Registry es el único dueño de los Timer vivos: guild -> canal -> Timer.
// Se construye una vez en el arranque y se pasa por referencia; nada de
// singletons a nivel de paquete.
type Registry struct {
	deps   Deps
	alerts *AlertPlayer

	mu         sync.Mutex
	timers     map[string]map[string]*Timer
	voiceLocks map[string]*sync.Mutex

	ready atomic.Bool
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:       deps,
		alerts:     NewAlertPlayer(deps.Voice),
		timers:     map[string]map[string]*Timer{},
		voiceLocks: map[string]*sync.Mutex{},
	}
}

// Ready indica si la carga inicial terminó; hasta entonces los eventos
// de voz se ignoran (la carga ya refresca los estados).
func (r *Registry) Ready() bool { return r.ready.Load() }

// VoiceLock devuelve el lock de voz del guild. Compartido con cualquier
// otra feature que use la conexión de voz (recurso único por guild).
func (r *Registry) VoiceLock(guildID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.voiceLocks[guildID]
	if !ok {
		l = &sync.Mutex{}
		r.voiceLocks[guildID] = l
	}
	return l
}

func (r *Registry) Get(guildID, channelID string) *Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.timers[guildID][channelID]
	if t != nil && t.Destroyed() {
		return nil
	}
	return t
}

func (r *Registry) GuildTimers(guildID string) []*Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Timer, 0, len(r.timers[guildID]))
	for _, t := range r.timers[guildID] {
		if !t.Destroyed() {
			out = append(out, t)
		}
	}
	return out
}

func (r *Registry) put(t *Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.timers[t.GuildID()]
	if g == nil {
		g = map[string]*Timer{}
		r.timers[t.GuildID()] = g
	}
	g[t.ChannelID()] = t
}

func (r *Registry) remove(guildID, channelID string) *Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.timers[guildID][channelID]
	delete(r.timers[guildID], channelID)
	return t
}

// ----- carga / descarga -----

// LoadGuilds restaura los timers persistidos de los guilds dados: borra
// filas de canales que ya no existen, relanza los que estaban corriendo
// y refresca los status con concurrencia acotada.
func (r *Registry) LoadGuilds(ctx context.Context, guildIDs []string) error {
	rows, err := r.deps.Timers.ListByGuilds(ctx, guildIDs)
	if err != nil {
		return err
	}

	now := r.deps.now()
	var orphans []string
	var loaded []*Timer
	for _, row := range rows {
		if !r.deps.Gateway.ChannelExists(row.ChannelID) {
			orphans = append(orphans, row.ChannelID)
			continue
		}
		if prev := r.remove(row.GuildID, row.ChannelID); prev != nil {
			prev.Unload(ctx)
		}
		t := NewTimer(r.deps, r.alerts, r.VoiceLock(row.GuildID), row)
		t.presence.Reset(t.Members(), now)
		r.put(t)
		loaded = append(loaded, t)
	}

	if len(orphans) > 0 {
		if n, err := r.deps.Timers.DeleteMany(ctx, orphans); err != nil {
			log.Warn().Err(err).Msg("[registry] no pude borrar timers huérfanos")
		} else {
			log.Info().Int64("count", n).Msg("[registry] timers huérfanos borrados")
		}
	}

	running := 0
	for _, t := range loaded {
		if t.Running() {
			t.Launch()
			running++
		}
	}

	// Refresh de status acotado, como para no comernos el ratelimit
	// global con cientos de timers.
	sem := semaphore.NewWeighted(loadConcurrency)
	var wg sync.WaitGroup
	for _, t := range loaded {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(t *Timer) {
			defer wg.Done()
			defer sem.Release(1)
			t.UpdateStatusCard(ctx)
		}(t)
	}
	wg.Wait()

	r.ready.Store(true)
	log.Info().Int("loaded", len(loaded)).Int("running", running).Msg("[registry] timers restaurados")
	return nil
}

// LoadGuild carga los timers de un guild recién joineado.
func (r *Registry) LoadGuild(ctx context.Context, guildID string) error {
	return r.LoadGuilds(ctx, []string{guildID})
}

// UnloadGuild apaga los timers del guild sin tocar estado persistido
// (nos fuimos del guild, o shutdown parcial).
func (r *Registry) UnloadGuild(ctx context.Context, guildID string) {
	r.mu.Lock()
	timers := r.timers[guildID]
	delete(r.timers, guildID)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, t := range timers {
		wg.Add(1)
		go func(t *Timer) {
			defer wg.Done()
			t.Unload(ctx)
		}(t)
	}
	wg.Wait()
	log.Info().Str("guild", guildID).Int("count", len(timers)).Msg("[registry] timers descargados")
}

// UnloadAll es el shutdown: espera el trabajo de fondo de todos.
func (r *Registry) UnloadAll(ctx context.Context) {
	r.mu.Lock()
	var all []*Timer
	for _, g := range r.timers {
		for _, t := range g {
			all = append(all, t)
		}
	}
	r.timers = map[string]map[string]*Timer{}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, t := range all {
		wg.Add(1)
		go func(t *Timer) {
			defer wg.Done()
			t.Unload(ctx)
		}(t)
	}
	wg.Wait()
}

// ----- altas / bajas -----

// Create persiste y registra un timer nuevo para el canal.
func (r *Registry) Create(ctx context.Context, row storage.TimerRow) (*Timer, error) {
	created, err := r.deps.Timers.Create(ctx, row)
	if err != nil {
		return nil, err
	}
	t := NewTimer(r.deps, r.alerts, r.VoiceLock(created.GuildID), created)
	t.presence.Reset(t.Members(), r.deps.now())
	r.put(t)
	return t, nil
}

// Destroy saca el timer del registry y lo desarma.
func (r *Registry) Destroy(ctx context.Context, t *Timer, reason string) {
	r.remove(t.GuildID(), t.ChannelID())
	t.Destroy(ctx, reason)
}

// DestroyChannel reacciona al borrado del canal de voz.
func (r *Registry) DestroyChannel(ctx context.Context, guildID, channelID string) {
	if t := r.Get(guildID, channelID); t != nil {
		r.Destroy(ctx, t, "Voice channel deleted")
	}
}

// ----- eventos -----

// HandleVoiceUpdate procesa un cambio de canal de voz de un miembro:
// refresca el status del timer que deja y del que entra, registra
// presencia y auto-arranca timers detenidos con auto_restart.
func (r *Registry) HandleVoiceUpdate(ctx context.Context, guildID, userID, beforeChannel, afterChannel string) {
	if !r.Ready() || beforeChannel == afterChannel {
		return
	}

	if beforeChannel != "" {
		if leaving := r.Get(guildID, beforeChannel); leaving != nil {
			leaving.UpdateStatusCard(ctx)
		}
	}
	if afterChannel != "" {
		if joining := r.Get(guildID, afterChannel); joining != nil {
			joining.Touch(userID)
			if !joining.Running() && joining.AutoRestart() {
				joining.Start(ctx)
			} else {
				joining.UpdateStatusCard(ctx)
			}
		}
	}
}

// NotifyChannelSettingChanged re-postea el status de los timers del
// guild cuyo destino cacheado quedó viejo tras cambiar el canal de
// notificación default.
func (r *Registry) NotifyChannelSettingChanged(ctx context.Context, guildID string) {
	for _, t := range r.GuildTimers(guildID) {
		if t.NotificationStale(ctx) {
			t.SendStatus(ctx)
		}
	}
}
