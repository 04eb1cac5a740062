package storage

import "time"

// TimerRow es la fila persistida de un timer: una por canal de voz.
// last_started no-nulo == timer corriendo; es la única fuente de verdad
// del estado run/stop.
type TimerRow struct {
	ChannelID             string
	GuildID               string
	OwnerID               *string
	ManagerRoleID         *string
	NotificationChannelID *string
	FocusLength           int // segundos
	BreakLength           int // segundos
	LastStarted           *time.Time
	LastMessageID         *string
	VoiceAlerts           *bool
	InactivityThreshold   *int
	AutoRestart           bool
	ChannelName           *string // template con placeholders
	PrettyName            *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TimerPatch son los campos editables vía /pomodoro edit (solo lo que venga).
type TimerPatch struct {
	FocusLength           *int
	BreakLength           *int
	NotificationChannelID *string
	ManagerRoleID         *string
	InactivityThreshold   *int
	VoiceAlerts           *bool
	ChannelName           *string
	PrettyName            *string
}

// NotifyHook es un webhook saliente cacheado, clave: canal de notificación.
type NotifyHook struct {
	ChannelID string
	WebhookID string
	Token     string
	CreatedAt time.Time
}

// GuildSettings guarda los defaults por guild.
type GuildSettings struct {
	GuildID           string
	PomodoroChannelID *string
	UpdatedAt         time.Time
}
