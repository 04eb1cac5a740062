package discord

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/jose-valero/pomodoro-bot/internal/app/pomodoro"
	"github.com/jose-valero/pomodoro-bot/internal/infra/storage"
)

func (r *Router) handleSlash(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.ApplicationCommandData()
	log.Info().Str("cmd", data.Name).Str("uid", ic.Member.User.ID).Str("guild", ic.GuildID).Msg("[router] slash")

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("cmd", data.Name).Msg("[router] panic en slash")
			ReplyEphemeral(s, ic, "⚠️ Something went wrong, try again.")
		}
	}()

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	switch data.Name {
	case "timer":
		r.cmdTimerStatus(ctx, ic, data.Options)

	case "timers":
		r.cmdTimerList(ic)

	case "pomodoro":
		if len(data.Options) == 0 {
			ReplyEphemeral(s, ic, "Use `/pomodoro create`, `edit`, `delete`, `start`, `stop` or `notifyhere`.")
			return
		}
		sub := data.Options[0]
		switch sub.Name {
		case "create":
			r.cmdCreate(ctx, ic, sub.Options)
		case "edit":
			r.cmdEdit(ctx, ic, sub.Options)
		case "delete":
			r.cmdDelete(ctx, ic, sub.Options)
		case "start":
			r.cmdStart(ctx, ic, sub.Options)
		case "stop":
			r.cmdStop(ctx, ic, sub.Options)
		case "notifyhere":
			r.cmdNotifyHere(ctx, ic)
		}
	}
}

// ---------- resolución de opciones ----------

func optMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

// targetChannel: la opción `channel` si vino, si no el canal de voz donde
// está el usuario.
func (r *Router) targetChannel(ic *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (string, bool) {
	if o, ok := opts["channel"]; ok {
		return o.Value.(string), true
	}
	vs, err := r.s.State.VoiceState(ic.GuildID, ic.Member.User.ID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

func (r *Router) resolveTimer(ic *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (*pomodoro.Timer, bool) {
	cid, ok := r.targetChannel(ic, opts)
	if !ok {
		ReplyEphemeral(r.s, ic, "🎧 Join a voice channel (or pass `channel:`) first.")
		return nil, false
	}
	tm := r.registry.Get(ic.GuildID, cid)
	if tm == nil {
		ReplyEphemeral(r.s, ic, fmt.Sprintf("<#%s> has no pomodoro timer. Create one with `/pomodoro create`.", cid))
		return nil, false
	}
	return tm, true
}

// ---------- comandos ----------

func timerLine(tm *pomodoro.Timer) string {
	st := tm.CurrentStage()
	if st == nil {
		return fmt.Sprintf("<#%s> — **%s** (%s) — stopped", tm.ChannelID(), tm.BaseName(), tm.Pattern())
	}
	return fmt.Sprintf("<#%s> — **%s** (%s) — %s, next stage <t:%d:R>",
		tm.ChannelID(), tm.BaseName(), tm.Pattern(), st.Label(), st.End.Unix())
}

func (r *Router) cmdTimerStatus(ctx context.Context, ic *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	tm, ok := r.resolveTimer(ic, optMap(opts))
	if !ok {
		return
	}
	ReplyEphemeral(r.s, ic, timerLine(tm))
	// De paso reflotamos el card por si quedó viejo.
	go tm.UpdateStatusCard(context.Background())
}

func (r *Router) cmdTimerList(ic *discordgo.InteractionCreate) {
	timers := r.registry.GuildTimers(ic.GuildID)
	if len(timers) == 0 {
		ReplyEphemeral(r.s, ic, "This server has no pomodoro timers yet. `/pomodoro create` sets one up.")
		return
	}
	sort.Slice(timers, func(i, j int) bool { return timers[i].ChannelID() < timers[j].ChannelID() })

	var b strings.Builder
	for _, tm := range timers {
		b.WriteString("• " + timerLine(tm) + "\n")
	}
	ReplyEphemeral(r.s, ic, b.String())
}

func (r *Router) cmdCreate(ctx context.Context, ic *discordgo.InteractionCreate, subOpts []*discordgo.ApplicationCommandInteractionDataOption) {
	if !r.requireAdmin(ic) {
		return
	}
	opts := optMap(subOpts)
	cid, ok := r.targetChannel(ic, opts)
	if !ok {
		ReplyEphemeral(r.s, ic, "🎧 Join a voice channel (or pass `channel:`) first.")
		return
	}
	if r.registry.Get(ic.GuildID, cid) != nil {
		ReplyEphemeral(r.s, ic, fmt.Sprintf("<#%s> already has a timer. Use `/pomodoro edit`.", cid))
		return
	}

	focus := int(opts["focus"].IntValue())
	brk := int(opts["break"].IntValue())
	if focus <= 0 || brk <= 0 {
		ReplyEphemeral(r.s, ic, "⚠️ Focus and break lengths must be positive minutes.")
		return
	}

	uid := ic.Member.User.ID
	row := storage.TimerRow{
		ChannelID:   cid,
		GuildID:     ic.GuildID,
		OwnerID:     &uid,
		FocusLength: focus * 60,
		BreakLength: brk * 60,
	}
	if o, ok := opts["name"]; ok {
		v := o.StringValue()
		row.PrettyName = &v
	}
	if o, ok := opts["template"]; ok {
		v := o.StringValue()
		row.ChannelName = &v
	}
	if o, ok := opts["threshold"]; ok {
		v := int(o.IntValue())
		row.InactivityThreshold = &v
	}
	if o, ok := opts["voice_alerts"]; ok {
		v := o.BoolValue()
		row.VoiceAlerts = &v
	}

	tm, err := r.registry.Create(ctx, row)
	if err != nil {
		ReplyEphemeral(r.s, ic, "⚠️ Could not create the timer: "+err.Error())
		return
	}
	ReplyEphemeral(r.s, ic, fmt.Sprintf("✅ Timer **%s** created on <#%s>. Start it with `/pomodoro start` or the `Start` button.", tm.Pattern(), cid))
	go tm.SendStatus(context.Background())
}

func (r *Router) cmdEdit(ctx context.Context, ic *discordgo.InteractionCreate, subOpts []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optMap(subOpts)
	tm, ok := r.resolveTimer(ic, opts)
	if !ok {
		return
	}
	if !canManage(tm, r.memberContext(ic, tm.ChannelID())) {
		ReplyEphemeral(r.s, ic, "🔒 You don't manage this timer.")
		return
	}

	var patch storage.TimerPatch
	if o, ok := opts["focus"]; ok {
		v := int(o.IntValue()) * 60
		if v <= 0 {
			ReplyEphemeral(r.s, ic, "⚠️ Focus length must be positive minutes.")
			return
		}
		patch.FocusLength = &v
	}
	if o, ok := opts["break"]; ok {
		v := int(o.IntValue()) * 60
		if v <= 0 {
			ReplyEphemeral(r.s, ic, "⚠️ Break length must be positive minutes.")
			return
		}
		patch.BreakLength = &v
	}
	if o, ok := opts["name"]; ok {
		v := o.StringValue()
		patch.PrettyName = &v
	}
	if o, ok := opts["template"]; ok {
		v := o.StringValue()
		patch.ChannelName = &v
	}
	if o, ok := opts["threshold"]; ok {
		v := int(o.IntValue())
		patch.InactivityThreshold = &v
	}
	if o, ok := opts["voice_alerts"]; ok {
		v := o.BoolValue()
		patch.VoiceAlerts = &v
	}
	if o, ok := opts["notify_channel"]; ok {
		v := o.Value.(string)
		patch.NotificationChannelID = &v
	}

	row, err := r.timers.UpdateConfig(ctx, tm.ChannelID(), patch)
	if err != nil {
		ReplyEphemeral(r.s, ic, "⚠️ Could not update the timer: "+err.Error())
		return
	}
	tm.ApplyConfig(row)
	ReplyEphemeral(r.s, ic, "✅ Timer updated.")
	go tm.UpdateStatusCard(context.Background())
}

func (r *Router) cmdDelete(ctx context.Context, ic *discordgo.InteractionCreate, subOpts []*discordgo.ApplicationCommandInteractionDataOption) {
	if !r.requireAdmin(ic) {
		return
	}
	tm, ok := r.resolveTimer(ic, optMap(subOpts))
	if !ok {
		return
	}
	r.registry.Destroy(ctx, tm, "Deleted via /pomodoro delete")
	ReplyEphemeral(r.s, ic, fmt.Sprintf("🗑️ Timer removed from <#%s>.", tm.ChannelID()))
}

// startStopAllowed: managers siempre; miembros sólo si están en el canal.
func (r *Router) startStopAllowed(ic *discordgo.InteractionCreate, tm *pomodoro.Timer) bool {
	if canManage(tm, r.memberContext(ic, tm.ChannelID())) {
		return true
	}
	uid := ic.Member.User.ID
	for _, m := range tm.Members() {
		if m == uid {
			return true
		}
	}
	return false
}

func (r *Router) cmdStart(ctx context.Context, ic *discordgo.InteractionCreate, subOpts []*discordgo.ApplicationCommandInteractionDataOption) {
	tm, ok := r.resolveTimer(ic, optMap(subOpts))
	if !ok {
		return
	}
	if !r.startStopAllowed(ic, tm) {
		ReplyEphemeral(r.s, ic, "🔒 Join the channel (or be a manager) to start its timer.")
		return
	}
	tm.Start(ctx)
	ReplyEphemeral(r.s, ic, fmt.Sprintf("▶️ Timer started on <#%s>.", tm.ChannelID()))
}

func (r *Router) cmdStop(ctx context.Context, ic *discordgo.InteractionCreate, subOpts []*discordgo.ApplicationCommandInteractionDataOption) {
	tm, ok := r.resolveTimer(ic, optMap(subOpts))
	if !ok {
		return
	}
	if !r.startStopAllowed(ic, tm) {
		ReplyEphemeral(r.s, ic, "🔒 Join the channel (or be a manager) to stop its timer.")
		return
	}
	tm.Stop(ctx, false)
	ReplyEphemeral(r.s, ic, fmt.Sprintf("⏹️ Timer stopped on <#%s>.", tm.ChannelID()))
}

func (r *Router) cmdNotifyHere(ctx context.Context, ic *discordgo.InteractionCreate) {
	if !r.requireAdmin(ic) {
		return
	}
	cid := ic.ChannelID
	if err := r.guilds.SetPomodoroChannel(ctx, ic.GuildID, &cid); err != nil {
		ReplyEphemeral(r.s, ic, "⚠️ Could not save the setting: "+err.Error())
		return
	}
	ReplyEphemeral(r.s, ic, fmt.Sprintf("✅ Timer notifications for this server now default to <#%s>.", cid))
	go r.registry.NotifyChannelSettingChanged(context.Background(), ic.GuildID)
}
