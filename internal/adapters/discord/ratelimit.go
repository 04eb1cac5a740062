package discord

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clickLimiter espacia los clicks de botón por usuario; el spam de tick o
// start/stop no tiene por qué llegar ni al core ni a la REST API.
type clickLimiter struct {
	mu    sync.Mutex
	users map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func newClickLimiter(window time.Duration, burst int) *clickLimiter {
	return &clickLimiter{
		users: map[string]*rate.Limiter{},
		limit: rate.Every(window),
		burst: burst,
	}
}

func (l *clickLimiter) Allow(userID string) bool {
	l.mu.Lock()
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.users[userID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
