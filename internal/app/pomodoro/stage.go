package pomodoro

import "time"

// Stage es el intervalo focus/break activo de un timer corriendo.
// Se calcula on-demand desde last_started; nunca se persiste.
type Stage struct {
	Focused  bool
	Start    time.Time
	Duration time.Duration
	End      time.Time
}

// CurrentStage deriva el stage actual desde last_started y las duraciones
// configuradas. Devuelve nil si el timer está detenido (lastStarted nil).
// El instante exacto del borde focus→break pertenece al break.
func CurrentStage(lastStarted *time.Time, focus, brk time.Duration, now time.Time) *Stage {
	if lastStarted == nil {
		return nil
	}
	interval := focus + brk
	elapsed := now.Sub(*lastStarted) % interval
	if elapsed < 0 {
		elapsed += interval
	}

	st := Stage{}
	if elapsed >= focus {
		st.Focused = false
		st.Start = now.Add(-(elapsed - focus))
		st.Duration = brk
	} else {
		st.Focused = true
		st.Start = now.Add(-elapsed)
		st.Duration = focus
	}
	st.End = st.Start.Add(st.Duration)
	return &st
}

// RemainingMinutes redondea hacia arriba lo que queda del stage.
func (s *Stage) RemainingMinutes(now time.Time) int {
	secs := s.End.Sub(now).Seconds()
	mins := int(secs / 60)
	if float64(mins*60) < secs {
		mins++
	}
	return mins
}

// Label devuelve el nombre visible del stage.
func (s *Stage) Label() string {
	if s.Focused {
		return "FOCUS"
	}
	return "BREAK"
}
