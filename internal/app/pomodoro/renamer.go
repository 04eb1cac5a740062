package pomodoro

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Ventana mínima entre renames de canal (ratelimit duro de Discord).
const renameWindow = 5 * time.Minute

// RenameResult indica qué hizo Request con el pedido.
type RenameResult int

const (
	RenameApplied RenameResult = iota
	RenameDroppedBusy
	RenameCancelled
	RenameSkipped
)

// Renamer serializa y espacia los renames del canal de voz de un timer.
// Single-flight con drop-on-busy: si hay un rename en vuelo, los pedidos
// nuevos se descartan en vez de encolarse (menos hits de ratelimit gana
// sobre frescura del nombre).
type Renamer struct {
	mu   sync.Mutex
	last time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRenamer() *Renamer {
	return &Renamer{now: time.Now, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Request intenta aplicar un rename. current devuelve el nombre actual del
// canal (ok=false si el canal ya no existe), can chequea el permiso
// manage_channels, apply ejecuta el edit. current/desired/can se evalúan
// recién después de la espera de ratelimit, con datos frescos.
// Falle o no apply, la marca de tiempo avanza igual: repetir requests
// fallidos es peor que el ratelimit normal.
func (r *Renamer) Request(
	ctx context.Context,
	current func() (string, bool),
	desired func() string,
	can func() bool,
	apply func(ctx context.Context, name string) error,
) RenameResult {
	if !r.mu.TryLock() {
		return RenameDroppedBusy
	}
	defer r.mu.Unlock()

	if !r.last.IsZero() {
		if wait := r.last.Add(renameWindow).Sub(r.now()); wait > 0 {
			if err := r.sleep(ctx, wait); err != nil {
				return RenameCancelled
			}
		}
	}

	name, ok := current()
	if !ok || !can() {
		return RenameSkipped
	}
	next := desired()
	if next == name {
		return RenameSkipped
	}

	err := apply(ctx, next)
	r.last = r.now()
	if err != nil {
		log.Warn().Err(err).Str("name", next).Msg("[renamer] fallo el rename del canal")
	}
	return RenameApplied
}
