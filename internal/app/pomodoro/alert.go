package pomodoro

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	alertBudget         = 60 * time.Second
	alertConnectTimeout = 30 * time.Second
	alertPlayCeiling    = 10 * time.Second
)

// AlertPlayer reproduce el cue de audio de cada cambio de stage. La
// conexión de voz es un recurso único por guild, así que toda la
// secuencia corre bajo el voice lock del guild (compartido entre timers
// y cualquier otra feature de voz).
type AlertPlayer struct {
	dialer VoiceDialer
}

func NewAlertPlayer(d VoiceDialer) *AlertPlayer { return &AlertPlayer{dialer: d} }

// Play conecta, reproduce y desconecta. Nunca devuelve error: cualquier
// fallo de plataforma o timeout se loguea y el alert se saltea este ciclo.
func (a *AlertPlayer) Play(ctx context.Context, guildLock *sync.Mutex, guildID, channelID string, focused bool) {
	if a == nil || a.dialer == nil {
		return
	}

	guildLock.Lock()
	defer guildLock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, alertBudget)
	defer cancel()

	jctx, jcancel := context.WithTimeout(ctx, alertConnectTimeout)
	call, err := a.dialer.Join(jctx, guildID, channelID)
	jcancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Str("channel", channelID).Msg("[alert] timeout conectando a voz")
		} else {
			log.Warn().Err(err).Str("channel", channelID).Msg("[alert] no pude conectar a voz")
		}
		return
	}
	defer func() {
		if err := call.Close(); err != nil {
			log.Warn().Err(err).Str("channel", channelID).Msg("[alert] fallo al desconectar de voz")
		}
	}()

	pctx, pcancel := context.WithTimeout(ctx, alertPlayCeiling)
	defer pcancel()
	if err := call.Play(pctx, focused); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Err(err).Str("channel", channelID).Msg("[alert] fallo reproduciendo el cue")
	}
}
