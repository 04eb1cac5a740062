package pomodoro

import (
	"sync"
	"time"
)

// PresenceTracker guarda el last_seen en memoria por miembro del canal.
// Se reconstruye al arrancar; no se persiste.
type PresenceTracker struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{lastSeen: map[string]time.Time{}}
}

// Touch registra actividad del miembro (botón tick, join de voz).
func (p *PresenceTracker) Touch(memberID string, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeen[memberID] = now
}

func (p *PresenceTracker) LastSeen(memberID string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ts, ok := p.lastSeen[memberID]
	return ts, ok
}

// Reset descarta todo y marca a los miembros presentes como vistos ahora.
// Se usa al arrancar el timer: todos "acaban de llegar".
func (p *PresenceTracker) Reset(memberIDs []string, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeen = make(map[string]time.Time, len(memberIDs))
	for _, id := range memberIDs {
		p.lastSeen[id] = now
	}
}

// InactiveSince devuelve los miembros presentes cuyo last_seen es anterior
// al threshold. Un miembro sin registro se inicializa a "ahora" en vez de
// marcarse inactivo: recién llegados no se expulsan en su primer chequeo.
func (p *PresenceTracker) InactiveSince(threshold time.Time, present []string, now time.Time) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var stale []string
	for _, id := range present {
		seen, ok := p.lastSeen[id]
		if !ok {
			p.lastSeen[id] = now
			continue
		}
		if seen.Before(threshold) {
			stale = append(stale, id)
		}
	}
	return stale
}

// WarningThreshold calcula el corte de inactividad: cycles ciclos completos
// de focus+break hacia atrás desde ahora. Devuelve nil con cycles <= 0
// (feature deshabilitada).
func WarningThreshold(cycles int, focus, brk time.Duration, now time.Time) *time.Time {
	if cycles <= 0 {
		return nil
	}
	t := now.Add(-time.Duration(cycles) * (focus + brk))
	return &t
}
