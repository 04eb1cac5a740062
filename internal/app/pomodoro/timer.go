package pomodoro

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jose-valero/pomodoro-bot/internal/infra/storage"
)

// Margen de drift admitido al dormir hasta el próximo stage.
const loopDrift = 10 * time.Second

// Tope de sueño del loop: aunque falte mucho para el próximo stage,
// despertamos cada 5 minutos para refrescar nombre y status.
const loopCeiling = 5 * time.Minute

const defaultInactivityThreshold = 3

// Timer maneja el ciclo pomodoro de un canal de voz: su loop de fondo,
// los cambios de stage y todos los side effects (rename, alert de voz,
// notificaciones). Exactamente una instancia por canal; el Registry es
// el único dueño.
type Timer struct {
	deps      Deps
	alerts    *AlertPlayer
	voiceLock *sync.Mutex // compartido por guild

	// Lock de mutación: serializa start/stop/destroy/cambio de stage/
	// update de status. A lo sumo una de esas corre a la vez.
	mu sync.Mutex

	rowMu sync.RWMutex
	row   storage.TimerRow

	presence *PresenceTracker
	renamer  *Renamer

	hookMu sync.Mutex
	hook   *storage.NotifyHook // destino de notificación cacheado

	sleepMu     sync.Mutex
	sleepCancel context.CancelFunc

	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	destroyed atomic.Bool
}

// NewTimer arma el timer sin side effects: no toca Discord ni la DB.
func NewTimer(deps Deps, alerts *AlertPlayer, voiceLock *sync.Mutex, row storage.TimerRow) *Timer {
	return &Timer{
		deps:      deps,
		alerts:    alerts,
		voiceLock: voiceLock,
		row:       row,
		presence:  NewPresenceTracker(),
		renamer:   NewRenamer(),
	}
}

// ----- lecturas -----

func (t *Timer) Row() storage.TimerRow {
	t.rowMu.RLock()
	defer t.rowMu.RUnlock()
	return t.row
}

func (t *Timer) setRow(mut func(r *storage.TimerRow)) {
	t.rowMu.Lock()
	defer t.rowMu.Unlock()
	mut(&t.row)
}

func (t *Timer) ChannelID() string { return t.Row().ChannelID }
func (t *Timer) GuildID() string   { return t.Row().GuildID }
func (t *Timer) Destroyed() bool   { return t.destroyed.Load() }

func (t *Timer) FocusLength() time.Duration {
	return time.Duration(t.Row().FocusLength) * time.Second
}

func (t *Timer) BreakLength() time.Duration {
	return time.Duration(t.Row().BreakLength) * time.Second
}

// Running: last_started presente == corriendo. Única fuente de verdad.
func (t *Timer) Running() bool { return t.Row().LastStarted != nil }

func (t *Timer) AutoRestart() bool { return t.Row().AutoRestart }

func (t *Timer) VoiceAlerts() bool {
	if v := t.Row().VoiceAlerts; v != nil {
		return *v
	}
	return true
}

func (t *Timer) InactivityThreshold() int {
	if v := t.Row().InactivityThreshold; v != nil {
		return *v
	}
	return defaultInactivityThreshold
}

func (t *Timer) Owned() bool { return t.Row().OwnerID != nil }

// CurrentStage calcula el stage vigente, nil si está detenido.
func (t *Timer) CurrentStage() *Stage {
	row := t.Row()
	return CurrentStage(
		row.LastStarted,
		time.Duration(row.FocusLength)*time.Second,
		time.Duration(row.BreakLength)*time.Second,
		t.deps.now(),
	)
}

// Members son los humanos presentes en el canal de voz del timer.
func (t *Timer) Members() []string {
	return t.deps.Gateway.VoiceMembers(t.GuildID(), t.ChannelID())
}

// Pattern es el "25/5" visible en nombres y listados.
func (t *Timer) Pattern() string {
	row := t.Row()
	return fmt.Sprintf("%d/%d", row.FocusLength/60, row.BreakLength/60)
}

func (t *Timer) BaseName() string {
	if name := t.Row().PrettyName; name != nil && *name != "" {
		return *name
	}
	return "Timer " + t.Pattern()
}

// FormattedChannelName renderiza el template configurado con el estado
// actual. Rara vez coincide con el nombre real del canal, por el
// ratelimit de renames.
func (t *Timer) FormattedChannelName() string {
	row := t.Row()
	template := "{name} - {stage}"
	if row.ChannelName != nil && *row.ChannelName != "" {
		template = *row.ChannelName
	}

	nc := NameContext{
		BaseName:    t.BaseName(),
		Pattern:     t.Pattern(),
		MemberCount: len(t.Members()),
	}
	if st := t.CurrentStage(); st != nil {
		nc.RemainingMinutes = st.RemainingMinutes(t.deps.now())
		nc.StageLabel = st.Label()
	} else {
		nc.RemainingMinutes = row.FocusLength / 60
		nc.StageLabel = "FOCUS"
	}
	return RenderChannelName(template, nc)
}

// ApplyConfig reemplaza la fila del timer tras un edit y relanza el loop
// para recalcular el próximo borde con las duraciones nuevas.
func (t *Timer) ApplyConfig(row storage.TimerRow) {
	t.setRow(func(r *storage.TimerRow) { *r = row })
	t.Launch()
}

// Touch registra presencia del miembro (botón tick o join de voz).
func (t *Timer) Touch(userID string) {
	t.presence.Touch(userID, t.deps.now())
}

// ----- ciclo de vida -----

// Start arranca (o reinicia) el timer: resetea presencia, persiste
// last_started=now, manda status fresco y relanza el loop.
func (t *Timer) Start(ctx context.Context) {
	if t.Destroyed() {
		return
	}
	err := func() error {
		t.mu.Lock()
		defer t.mu.Unlock()

		now := t.deps.now()
		t.presence.Reset(t.Members(), now)
		if err := t.deps.Timers.SetStarted(ctx, t.ChannelID(), &now, t.AutoRestart()); err != nil {
			return err
		}
		t.setRow(func(r *storage.TimerRow) { r.LastStarted = &now })
		// Sin warnings: todos acaban de "llegar".
		t.sendStatus(ctx, true, statusOpts{withNotify: true})
		return nil
	}()
	if err != nil {
		log.Error().Err(err).Str("tid", t.ChannelID()).Msg("[timer] fallo el start")
		return
	}
	t.Launch()
	log.Info().Str("tid", t.ChannelID()).Str("pattern", t.Pattern()).Msg("[timer] arrancado")
}

// Stop detiene el timer. Cancela el sleep pendiente del loop (el loop
// nota running=false y sale solo) y actualiza el status a "stopped".
// Idempotente.
func (t *Timer) Stop(ctx context.Context, autoRestart bool) {
	if t.Destroyed() {
		return
	}
	err := func() error {
		t.mu.Lock()
		defer t.mu.Unlock()

		t.interruptSleep()
		if err := t.deps.Timers.SetStarted(ctx, t.ChannelID(), nil, autoRestart); err != nil {
			return err
		}
		t.setRow(func(r *storage.TimerRow) {
			r.LastStarted = nil
			r.AutoRestart = autoRestart
		})
		return nil
	}()
	if err != nil {
		log.Error().Err(err).Str("tid", t.ChannelID()).Msg("[timer] fallo el stop")
		return
	}
	t.UpdateStatusCard(ctx)
	log.Info().Str("tid", t.ChannelID()).Bool("auto_restart", autoRestart).Msg("[timer] detenido")
}

// Destroy desarma el timer: cancela el loop, revierte el nombre del
// canal (best effort), borra la fila y el último status. Terminal;
// una segunda llamada es no-op.
func (t *Timer) Destroy(ctx context.Context, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.destroyed.CompareAndSwap(false, true) {
		return
	}
	t.interruptSleep()

	row := t.Row()
	if row.PrettyName != nil && t.deps.Gateway.ChannelExists(row.ChannelID) {
		go func() {
			err := t.deps.Gateway.RenameChannel(context.Background(), row.ChannelID, *row.PrettyName, "Reverting timer channel name")
			if err != nil {
				log.Debug().Err(err).Str("tid", row.ChannelID).Msg("[timer] no pude revertir el nombre del canal")
			}
		}()
	}

	if err := t.deps.Timers.Delete(ctx, row.ChannelID); err != nil {
		log.Error().Err(err).Str("tid", row.ChannelID).Msg("[timer] fallo el delete de la fila")
	}

	if row.LastMessageID != nil {
		if hook := t.notifyHook(ctx); hook != nil {
			if err := t.deps.Gateway.HookDelete(ctx, *hook, *row.LastMessageID); err != nil {
				log.Debug().Err(err).Str("tid", row.ChannelID).Msg("[timer] no pude borrar el último status")
			}
		}
	}
	log.Info().Str("tid", row.ChannelID).Str("reason", reason).Msg("[timer] destruido")
}

// Launch (re)lanza el loop de fondo si el timer está corriendo,
// cancelando cualquier loop previo para que no corran dos a la vez.
func (t *Timer) Launch() {
	t.loopMu.Lock()
	defer t.loopMu.Unlock()

	if t.loopCancel != nil {
		t.loopCancel()
	}
	if t.Destroyed() || !t.Running() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.loopCancel = cancel
	t.loopDone = done
	go t.runLoop(ctx, done)
}

// Unload apaga el trabajo de fondo sin tocar estado persistido. Se usa
// cuando el proceso suelta el canal (guild leave, shutdown). No toma
// t.mu: las tasks que el loop supervisa lo necesitan para terminar, y
// done no cierra hasta que terminen.
func (t *Timer) Unload(ctx context.Context) {
	t.loopMu.Lock()
	cancel := t.loopCancel
	done := t.loopDone
	t.loopMu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.interruptSleep()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			log.Warn().Str("tid", t.ChannelID()).Msg("[timer] unload abandonado por timeout")
		}
	}
}

// ----- loop -----

// loopSleep decide cuánto dormir hasta el próximo despertar.
func loopSleep(toNextStage time.Duration) time.Duration {
	if toNextStage > loopCeiling-loopDrift {
		return loopCeiling
	}
	if toNextStage < 0 {
		return 0
	}
	return toNextStage
}

// sleepStep duerme de forma cancelable. true == interrumpido
// (stop/destroy/unload o cancelación del loop).
func (t *Timer) sleepStep(ctx context.Context, d time.Duration) bool {
	sctx, cancel := context.WithCancel(ctx)
	t.sleepMu.Lock()
	t.sleepCancel = cancel
	t.sleepMu.Unlock()
	defer func() {
		t.sleepMu.Lock()
		t.sleepCancel = nil
		t.sleepMu.Unlock()
		cancel()
	}()

	tm := time.NewTimer(d)
	defer tm.Stop()
	select {
	case <-sctx.Done():
		return true
	case <-tm.C:
		return false
	}
}

func (t *Timer) interruptSleep() {
	t.sleepMu.Lock()
	if t.sleepCancel != nil {
		t.sleepCancel()
	}
	t.sleepMu.Unlock()
}

// runLoop es el único motor de transiciones autónomas de stage.
// Despierta en cada borde de stage (o cada 5 minutos, lo que llegue
// antes) y dispara el trabajo como tasks supervisadas que se esperan
// antes de que el loop termine.
func (t *Timer) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if !t.Running() {
		return
	}
	if !t.deps.Gateway.ChannelExists(t.ChannelID()) {
		t.Destroy(context.Background(), "el canal de voz ya no existe")
		return
	}

	var bg errgroup.Group
	current := t.CurrentStage()

	for {
		if current == nil {
			// Invariante roto: corriendo sin stage. Fatal para este timer.
			log.Error().Str("tid", t.ChannelID()).Msg("[timer] loop cerrado: stage indefinido con timer corriendo")
			break
		}

		if t.sleepStep(ctx, loopSleep(current.End.Sub(t.deps.now()))) {
			break
		}
		if !t.Running() {
			log.Warn().Str("tid", t.ChannelID()).Msg("[timer] loop cerrado: ya no estamos corriendo")
			break
		}
		if !t.deps.Gateway.ChannelExists(t.ChannelID()) {
			t.Destroy(context.Background(), "el canal de voz ya no existe")
			break
		}

		now := t.deps.now()
		if !current.End.After(now) {
			from := current
			next := t.CurrentStage()
			bg.Go(func() error {
				t.NotifyChangeStage(context.Background(), from, next, true)
				return nil
			})
			current = next
		} else if len(t.Members()) > 0 {
			// Despertamos por el tope de 5 minutos: refrescamos nombre y
			// status para que el display no quede viejo.
			bg.Go(func() error {
				t.requestRename(context.Background())
				return nil
			})
			bg.Go(func() error {
				t.UpdateStatusCard(context.Background())
				return nil
			})
		}
	}

	if err := bg.Wait(); err != nil {
		log.Warn().Err(err).Str("tid", t.ChannelID()).Msg("[timer] error cerrando tasks de fondo")
	}
}

// ----- cambio de stage -----

// NotifyChangeStage corre la coreografía del borde de stage: rename,
// expulsión de inactivos, alert de voz y status nuevo. Con el canal
// vacío no molesta a nadie: auto-stop con auto_restart para que el
// próximo join lo rearranque.
func (t *Timer) NotifyChangeStage(ctx context.Context, from, to *Stage, kick bool) {
	if t.Destroyed() {
		return
	}
	if len(t.Members()) == 0 {
		t.Stop(ctx, true)
		return
	}

	var after errgroup.Group

	t.mu.Lock()
	after.Go(func() error {
		t.requestRename(ctx)
		return nil
	})

	if kick {
		t.kickInactive(ctx)
	}

	if t.VoiceAlerts() && to != nil {
		if p := t.deps.Gateway.BotPermissions(t.GuildID(), t.ChannelID()); p.Connect && p.Speak {
			focused := to.Focused
			after.Go(func() error {
				t.alerts.Play(ctx, t.voiceLock, t.GuildID(), t.ChannelID(), focused)
				return nil
			})
		}
	}

	t.sendStatus(ctx, true, statusOpts{withNotify: true, withWarnings: true})
	t.mu.Unlock()

	if err := after.Wait(); err != nil {
		log.Warn().Err(err).Str("tid", t.ChannelID()).Msg("[timer] error en post-tasks del cambio de stage")
	}
}

// kickInactive desconecta a los miembros que pasaron el umbral de
// inactividad y manda un único mensaje agrupado (o el aviso de permiso
// faltante). Llamar con t.mu tomado.
func (t *Timer) kickInactive(ctx context.Context) {
	threshold := WarningThreshold(t.InactivityThreshold(), t.FocusLength(), t.BreakLength(), t.deps.now())
	if threshold == nil {
		return
	}
	needsKick := t.presence.InactiveSince(*threshold, t.Members(), t.deps.now())
	if len(needsKick) == 0 {
		return
	}

	row := t.Row()
	perms := t.deps.Gateway.BotPermissions(row.GuildID, row.ChannelID)

	var msg string
	if perms.MoveMembers {
		for _, uid := range needsKick {
			err := t.deps.Gateway.DisconnectMember(ctx, row.GuildID, uid, "Disconnecting inactive member from timer.")
			switch {
			case err == nil:
			case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotFound):
				log.Warn().Err(err).Str("tid", row.ChannelID).Str("uid", uid).Msg("[timer] no pude desconectar al inactivo")
			default:
				log.Error().Err(err).Str("tid", row.ChannelID).Str("uid", uid).Msg("[timer] error desconectando al inactivo")
			}
		}
		msg = fmt.Sprintf(
			"%s removed from <#%s> for inactivity! Remember to press ✅ to register your presence every stage.",
			mentionList(needsKick, ", "), row.ChannelID,
		)
	} else {
		msg = fmt.Sprintf(
			"**Warning!** Timer <#%s> is configured to disconnect on inactivity, but I lack the 'Move Members' permission to do this!",
			row.ChannelID,
		)
	}

	if hook := t.notifyHook(ctx); hook != nil {
		if err := t.deps.Gateway.HookSendText(ctx, *hook, msg); err != nil {
			log.Warn().Err(err).Str("tid", row.ChannelID).Msg("[timer] no pude mandar el aviso de expulsión")
		}
	}
}

func (t *Timer) requestRename(ctx context.Context) {
	row := t.Row()
	res := t.renamer.Request(ctx,
		func() (string, bool) { return t.deps.Gateway.ChannelName(row.ChannelID) },
		t.FormattedChannelName,
		func() bool { return t.deps.Gateway.BotPermissions(row.GuildID, row.ChannelID).ManageChannels },
		func(ctx context.Context, name string) error {
			return t.deps.Gateway.RenameChannel(ctx, row.ChannelID, name, "Pomodoro stage change")
		},
	)
	if res == RenameApplied {
		log.Debug().Str("tid", row.ChannelID).Msg("[timer] nombre de canal actualizado")
	}
}

// ----- status -----

type statusOpts struct {
	withNotify   bool
	withWarnings bool
}

// composeStatus arma el contenido textual del mensaje de estado.
func (t *Timer) composeStatus(opts statusOpts) StatusMessage {
	row := t.Row()
	now := t.deps.now()
	st := t.CurrentStage()
	members := t.Members()

	msg := StatusMessage{
		ChannelID:   row.ChannelID,
		Running:     st != nil,
		AutoRestart: row.AutoRestart,
		Stage:       st,
		BaseName:    t.BaseName(),
		Pattern:     t.Pattern(),
		MemberCount: len(members),
	}

	if st == nil {
		if row.AutoRestart {
			msg.Content = fmt.Sprintf("Timer stopped! Join <#%s> to start the timer.", row.ChannelID)
		} else {
			msg.Content = "Timer stopped! Press `Start` to restart the timer."
		}
		return msg
	}

	var stageline string
	if st.Focused {
		stageline = fmt.Sprintf(
			"<#%s> is now in **FOCUS**! Good luck, **BREAK** starts <t:%d:R>",
			row.ChannelID, st.End.Unix(),
		)
	} else {
		stageline = fmt.Sprintf(
			"<#%s> is now on **BREAK**! Take a rest, **FOCUS** starts <t:%d:R>",
			row.ChannelID, st.End.Unix(),
		)
	}

	var warningline string
	var needsWarning []string
	if opts.withWarnings {
		if thr := WarningThreshold(t.InactivityThreshold(), t.FocusLength(), t.BreakLength(), now); thr != nil {
			needsWarning = t.presence.InactiveSince(*thr, members, now)
			if len(needsWarning) > 0 {
				warningline = fmt.Sprintf(
					"**Warning:** %s, please press ✅ to avoid being removed on the next stage.",
					mentionList(needsWarning, " "),
				)
			}
		}
	}

	var notifyline string
	if opts.withNotify && len(members) > 0 {
		warned := make(map[string]struct{}, len(needsWarning))
		for _, id := range needsWarning {
			warned[id] = struct{}{}
		}
		var b strings.Builder
		for _, id := range members {
			if _, ok := warned[id]; ok {
				continue
			}
			b.WriteString("<@" + id + ">")
		}
		if b.Len() > 0 {
			notifyline = "||" + b.String() + "||"
		}
	}

	var lines []string
	for _, l := range []string{stageline, warningline, notifyline} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	msg.Content = strings.Join(lines, "\n")
	return msg
}

// sendStatus manda una notificación de estado nueva al destino
// resuelto, borrando la anterior si se pide. Llamar con t.mu tomado.
func (t *Timer) sendStatus(ctx context.Context, deleteLast bool, opts statusOpts) {
	t.sendStatusInner(ctx, deleteLast, opts, false)
}

func (t *Timer) sendStatusInner(ctx context.Context, deleteLast bool, opts statusOpts, retried bool) {
	hook := t.notifyHook(ctx)
	if hook == nil {
		return
	}

	row := t.Row()
	if deleteLast && row.LastMessageID != nil {
		if err := t.deps.Gateway.HookDelete(ctx, *hook, *row.LastMessageID); err != nil {
			log.Debug().Err(err).Str("tid", row.ChannelID).Msg("[timer] no pude borrar el status anterior")
		}
	}

	msg := t.composeStatus(opts)
	var newID *string
	id, err := t.deps.Gateway.HookSend(ctx, *hook, msg)
	switch {
	case err == nil:
		newID = &id
	case errors.Is(err, ErrNotFound):
		// Webhook borrado por fuera: tiramos la fila cacheada y
		// reintentamos una sola vez tras una pausa corta.
		t.dropHook(ctx, hook.ChannelID)
		if !retried {
			_ = sleepCtx(ctx, time.Second)
			t.sendStatusInner(ctx, deleteLast, opts, true)
			return
		}
	default:
		log.Warn().Err(err).Str("tid", row.ChannelID).Msg("[timer] fallo el envío del status")
	}

	if !sameID(row.LastMessageID, newID) || deleteLast {
		if err := t.deps.Timers.SetLastMessage(ctx, row.ChannelID, newID); err != nil {
			log.Warn().Err(err).Str("tid", row.ChannelID).Msg("[timer] no pude persistir last_message_id")
		}
		t.setRow(func(r *storage.TimerRow) { r.LastMessageID = newID })
	}
}

// UpdateStatusCard edita in-place el último status; si ya no existe,
// repostea sin volver a pingear a nadie.
func (t *Timer) UpdateStatusCard(ctx context.Context) {
	if t.Destroyed() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	row := t.Row()
	if row.LastMessageID != nil {
		if hook := t.notifyHook(ctx); hook != nil {
			msg := t.composeStatus(statusOpts{withWarnings: true})
			err := t.deps.Gateway.HookEdit(ctx, *hook, *row.LastMessageID, msg)
			if err == nil {
				return
			}
			if !errors.Is(err, ErrNotFound) {
				log.Warn().Err(err).Str("tid", row.ChannelID).Msg("[timer] fallo el edit del status")
				return
			}
			// Mensaje borrado por fuera: repostear.
		}
	}
	t.sendStatus(ctx, false, statusOpts{withWarnings: true})
}

// SendStatus manda un status nuevo (entrada externa del registry, p.ej.
// cuando cambia el canal de notificación del guild).
func (t *Timer) SendStatus(ctx context.Context) {
	if t.Destroyed() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendStatus(ctx, true, statusOpts{withNotify: true, withWarnings: true})
}

func mentionList(ids []string, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "<@" + id + ">"
	}
	return strings.Join(parts, sep)
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
