package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/pomodoro-bot/internal/app/pomodoro"
	"github.com/jose-valero/pomodoro-bot/internal/infra/storage"
)

// Gateway implementa pomodoro.Gateway sobre la sesión de discordgo.
// Lecturas van contra el state cache; escrituras contra la REST API con
// los errores mapeados a los centinelas del core.
type Gateway struct {
	s *discordgo.Session
}

func NewGateway(s *discordgo.Session) *Gateway { return &Gateway{s: s} }

// mapErr traduce RESTError a los centinelas que entiende el core.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		switch re.Response.StatusCode {
		case http.StatusNotFound:
			return pomodoro.ErrNotFound
		case http.StatusForbidden:
			return pomodoro.ErrForbidden
		}
	}
	return err
}

// state primero, REST de fallback (y cacheamos lo que traiga).
func (g *Gateway) safeChannel(id string) (*discordgo.Channel, error) {
	if ch, err := g.s.State.Channel(id); err == nil && ch != nil {
		return ch, nil
	}
	ch, err := g.s.Channel(id)
	if err != nil {
		return nil, mapErr(err)
	}
	_ = g.s.State.ChannelAdd(ch)
	return ch, nil
}

func (g *Gateway) ChannelExists(channelID string) bool {
	_, err := g.safeChannel(channelID)
	return err == nil
}

func (g *Gateway) ChannelName(channelID string) (string, bool) {
	ch, err := g.safeChannel(channelID)
	if err != nil {
		return "", false
	}
	return ch.Name, true
}

// VoiceMembers lista los humanos conectados al canal de voz (bots fuera).
func (g *Gateway) VoiceMembers(guildID, channelID string) []string {
	guild, err := g.s.State.Guild(guildID)
	if err != nil {
		return nil
	}
	var out []string
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if m, err := g.s.State.Member(guildID, vs.UserID); err == nil && m.User != nil && m.User.Bot {
			continue
		}
		out = append(out, vs.UserID)
	}
	return out
}

func (g *Gateway) BotPermissions(guildID, channelID string) pomodoro.Perms {
	var me string
	if g.s.State.User != nil {
		me = g.s.State.User.ID
	}
	bits, err := g.s.State.UserChannelPermissions(me, channelID)
	if err != nil {
		return pomodoro.Perms{}
	}
	if bits&discordgo.PermissionAdministrator != 0 {
		return pomodoro.Perms{
			ManageChannels: true,
			MoveMembers:    true,
			Connect:        true,
			Speak:          true,
			SendMessages:   true,
			ManageWebhooks: true,
		}
	}
	return pomodoro.Perms{
		ManageChannels: bits&discordgo.PermissionManageChannels != 0,
		MoveMembers:    bits&discordgo.PermissionVoiceMoveMembers != 0,
		Connect:        bits&discordgo.PermissionVoiceConnect != 0,
		Speak:          bits&discordgo.PermissionVoiceSpeak != 0,
		SendMessages:   bits&discordgo.PermissionSendMessages != 0,
		ManageWebhooks: bits&discordgo.PermissionManageWebhooks != 0,
	}
}

func (g *Gateway) RenameChannel(ctx context.Context, channelID, name, reason string) error {
	_, err := g.s.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name},
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return mapErr(err)
}

// DisconnectMember saca al miembro de voz (move a canal nil).
func (g *Gateway) DisconnectMember(ctx context.Context, guildID, userID, reason string) error {
	err := g.s.GuildMemberMove(guildID, userID, nil,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return mapErr(err)
}

func (g *Gateway) CreateWebhook(ctx context.Context, channelID, name string) (string, string, error) {
	wh, err := g.s.WebhookCreate(channelID, name, "", discordgo.WithContext(ctx))
	if err != nil {
		return "", "", mapErr(err)
	}
	return wh.ID, wh.Token, nil
}

func (g *Gateway) SendChannelMessage(ctx context.Context, channelID, content string) error {
	_, err := g.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return mapErr(err)
}

func (g *Gateway) HookSend(ctx context.Context, h storage.NotifyHook, msg pomodoro.StatusMessage) (string, error) {
	m, err := g.s.WebhookExecute(h.WebhookID, h.Token, true, statusParams(msg),
		discordgo.WithContext(ctx))
	if err != nil {
		return "", mapErr(err)
	}
	return m.ID, nil
}

func (g *Gateway) HookSendText(ctx context.Context, h storage.NotifyHook, content string) error {
	_, err := g.s.WebhookExecute(h.WebhookID, h.Token, true,
		&discordgo.WebhookParams{Content: content}, discordgo.WithContext(ctx))
	return mapErr(err)
}

func (g *Gateway) HookEdit(ctx context.Context, h storage.NotifyHook, messageID string, msg pomodoro.StatusMessage) error {
	_, err := g.s.WebhookMessageEdit(h.WebhookID, h.Token, messageID, statusEdit(msg),
		discordgo.WithContext(ctx))
	return mapErr(err)
}

func (g *Gateway) HookDelete(ctx context.Context, h storage.NotifyHook, messageID string) error {
	return mapErr(g.s.WebhookMessageDelete(h.WebhookID, h.Token, messageID,
		discordgo.WithContext(ctx)))
}
