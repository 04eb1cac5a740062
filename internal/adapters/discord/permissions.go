package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/pomodoro-bot/internal/app/pomodoro"
)

// memberContext arma lo que el core necesita para la escalera de roles,
// evaluando manage_channels sobre el canal del timer (no el del comando).
func (r *Router) memberContext(ic *discordgo.InteractionCreate, timerChannelID string) pomodoro.MemberContext {
	m := pomodoro.MemberContext{}
	if ic.Member == nil || ic.Member.User == nil {
		return m
	}
	m.UserID = ic.Member.User.ID
	m.RoleIDs = ic.Member.Roles

	if g, _ := r.s.State.Guild(ic.GuildID); g != nil && g.OwnerID == m.UserID {
		m.IsGuildAdmin = true
		return m
	}

	bits, err := r.s.State.UserChannelPermissions(m.UserID, timerChannelID)
	if err != nil {
		// Sin canal resoluble: caemos a los permisos de la interacción.
		bits = ic.Member.Permissions
	}
	m.IsGuildAdmin = bits&discordgo.PermissionAdministrator != 0
	m.ManageChannels = bits&discordgo.PermissionManageChannels != 0
	return m
}

// canManage: ¿puede este miembro operar el timer (start/stop/edit)?
func canManage(t *pomodoro.Timer, m pomodoro.MemberContext) bool {
	return t.RoleFor(m) >= pomodoro.RoleManager
}

// requireAdmin corta la interacción si el miembro no es admin del guild.
func (r *Router) requireAdmin(ic *discordgo.InteractionCreate) bool {
	mc := r.memberContext(ic, ic.ChannelID)
	if mc.IsGuildAdmin {
		return true
	}
	ReplyEphemeral(r.s, ic, "🔒 You need to be a server admin for this action.")
	return false
}
