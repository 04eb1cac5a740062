package pomodoro

import (
	"fmt"
	"strings"
)

// Límite de Discord para nombres de canal.
const maxChannelNameLen = 100

// NameContext trae los valores ya resueltos para los placeholders
// del formato de nombre de canal.
type NameContext struct {
	RemainingMinutes int
	StageLabel       string
	MemberCount      int
	BaseName         string
	Pattern          string // "25/5"
}

// RenderChannelName aplica los placeholders reconocidos sobre el template
// y trunca al límite de Discord. Placeholders desconocidos pasan tal cual.
func RenderChannelName(template string, nc NameContext) string {
	r := strings.NewReplacer(
		"{remaining}", fmt.Sprintf("%dm", nc.RemainingMinutes),
		"{stage}", nc.StageLabel,
		"{members}", fmt.Sprintf("%d", nc.MemberCount),
		"{name}", nc.BaseName,
		"{pattern}", nc.Pattern,
	)
	name := r.Replace(template)
	if runes := []rune(name); len(runes) > maxChannelNameLen {
		name = string(runes[:maxChannelNameLen])
	}
	return name
}
