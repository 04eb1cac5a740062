package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/pomodoro-bot/internal/app/pomodoro"
)

const (
	colorFocus   = 0xE84545 // rojo tomate
	colorBreak   = 0x45A29E
	colorStopped = 0x5C6670
)

// statusEmbed arma la tarjeta de estado a partir del mensaje ya compuesto
// por el core. El contenido (stageline, warnings, pings) va como Content
// del webhook; el embed agrega el resumen estable del timer.
func statusEmbed(msg pomodoro.StatusMessage) *discordgo.MessageEmbed {
	color := colorStopped
	title := fmt.Sprintf("⏱️ %s (%s)", msg.BaseName, msg.Pattern)
	desc := "Timer stopped."
	if msg.Stage != nil {
		if msg.Stage.Focused {
			color = colorFocus
		} else {
			color = colorBreak
		}
		desc = fmt.Sprintf("**%s** until <t:%d:t> (<t:%d:R>)",
			msg.Stage.Label(), msg.Stage.End.Unix(), msg.Stage.End.Unix())
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: "<#" + msg.ChannelID + ">", Inline: true},
			{Name: "Members", Value: fmt.Sprintf("%d", msg.MemberCount), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// statusButtons: Start/Stop según estado, más el tick de presencia con el
// que los miembros evitan la expulsión por inactividad.
func statusButtons(msg pomodoro.StatusMessage) discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Style:    discordgo.SuccessButton,
				Label:    "Start",
				CustomID: "timer_start:" + msg.ChannelID,
				Disabled: msg.Running,
			},
			discordgo.Button{
				Style:    discordgo.DangerButton,
				Label:    "Stop",
				CustomID: "timer_stop:" + msg.ChannelID,
				Disabled: !msg.Running,
			},
			discordgo.Button{
				Style:    discordgo.SecondaryButton,
				Label:    "I'm here",
				CustomID: "timer_tick:" + msg.ChannelID,
				Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
			},
		},
	}
}

func statusParams(msg pomodoro.StatusMessage) *discordgo.WebhookParams {
	return &discordgo.WebhookParams{
		Content:    msg.Content,
		Embeds:     []*discordgo.MessageEmbed{statusEmbed(msg)},
		Components: []discordgo.MessageComponent{statusButtons(msg)},
	}
}

func statusEdit(msg pomodoro.StatusMessage) *discordgo.WebhookEdit {
	content := msg.Content
	embeds := []*discordgo.MessageEmbed{statusEmbed(msg)}
	comps := []discordgo.MessageComponent{statusButtons(msg)}
	return &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &embeds,
		Components: &comps,
	}
}
