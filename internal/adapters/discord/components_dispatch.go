package discord

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

func (r *Router) handleMessageComponent(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.MessageComponentData()

	_ = DeferEphemeral(s, ic)

	// custom_id: "<acción>:<canal del timer>"
	action, cid, ok := strings.Cut(data.CustomID, ":")
	if !ok {
		return
	}
	uid := ic.Member.User.ID

	tm := r.registry.Get(ic.GuildID, cid)
	if tm == nil {
		ReplyEphemeral(s, ic, "This timer no longer exists.")
		return
	}
	if !r.clickLimiter.Allow(uid) {
		ReplyEphemeral(s, ic, "⏳ Easy there, try again in a second.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	switch action {
	case "timer_tick":
		present := false
		for _, m := range tm.Members() {
			if m == uid {
				present = true
				break
			}
		}
		if !present {
			ReplyEphemeral(s, ic, "🎧 Join <#"+cid+"> first, then press ✅.")
			return
		}
		tm.Touch(uid)
		ReplyEphemeral(s, ic, "✅ Presence registered, see you next stage!")

	case "timer_start":
		if !r.startStopAllowed(ic, tm) {
			ReplyEphemeral(s, ic, "🔒 Join the channel (or be a manager) to start its timer.")
			return
		}
		if tm.Running() {
			ReplyEphemeral(s, ic, "The timer is already running.")
			return
		}
		tm.Start(ctx)
		ReplyEphemeral(s, ic, "▶️ Timer started.")

	case "timer_stop":
		if !r.startStopAllowed(ic, tm) {
			ReplyEphemeral(s, ic, "🔒 Join the channel (or be a manager) to stop its timer.")
			return
		}
		if !tm.Running() {
			ReplyEphemeral(s, ic, "The timer is already stopped.")
			return
		}
		tm.Stop(ctx, false)
		ReplyEphemeral(s, ic, "⏹️ Timer stopped.")

	default:
		log.Debug().Str("custom_id", data.CustomID).Msg("[router] componente desconocido")
	}
}
