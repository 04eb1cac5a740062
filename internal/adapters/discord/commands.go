package discord

import "github.com/bwmarrin/discordgo"

func channelOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         name,
		Description:  desc,
		Required:     required,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice},
	}
}

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "timer",
		Description: "Show the pomodoro timer of your voice channel",
		Options: []*discordgo.ApplicationCommandOption{
			channelOpt("channel", "Voice channel (default: the one you're in)", false),
		},
	},
	{
		Name:        "timers",
		Description: "List the pomodoro timers of this server",
	},
	{
		Name:        "pomodoro",
		Description: "Manage pomodoro timers",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "create",
				Description: "Attach a pomodoro timer to a voice channel (admins)",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "focus", Description: "Focus length in minutes", Required: true},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "break", Description: "Break length in minutes", Required: true},
					channelOpt("channel", "Voice channel (default: the one you're in)", false),
					{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Display name for the timer"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "template", Description: "Channel name template, e.g. {name} - {stage}"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "threshold", Description: "Stages of inactivity before kick (0 disables)"},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "voice_alerts", Description: "Play a voice cue on stage change"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "edit",
				Description: "Change a timer's configuration",
				Options: []*discordgo.ApplicationCommandOption{
					channelOpt("channel", "Voice channel (default: the one you're in)", false),
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "focus", Description: "Focus length in minutes"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "break", Description: "Break length in minutes"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Display name for the timer"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "template", Description: "Channel name template"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "threshold", Description: "Stages of inactivity before kick (0 disables)"},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "voice_alerts", Description: "Play a voice cue on stage change"},
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "notify_channel",
						Description: "Text channel for notifications",
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildText,
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "delete",
				Description: "Remove the timer from a voice channel (admins)",
				Options: []*discordgo.ApplicationCommandOption{
					channelOpt("channel", "Voice channel (default: the one you're in)", false),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "start",
				Description: "Start or restart a timer",
				Options: []*discordgo.ApplicationCommandOption{
					channelOpt("channel", "Voice channel (default: the one you're in)", false),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "Stop a timer",
				Options: []*discordgo.ApplicationCommandOption{
					channelOpt("channel", "Voice channel (default: the one you're in)", false),
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "notifyhere",
				Description: "Use this text channel as the server default for timer notifications (admins)",
			},
		},
	},
}
