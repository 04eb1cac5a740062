package pomodoro

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestRenderChannelNameReplacesPlaceholders(t *testing.T) {
	nc := NameContext{
		RemainingMinutes: 12,
		StageLabel:       "FOCUS",
		MemberCount:      4,
		BaseName:         "Study Hall",
		Pattern:          "25/5",
	}
	got := RenderChannelName("{name} ({pattern}) - {stage} {remaining} [{members}]", nc)
	require.Equal(t, "Study Hall (25/5) - FOCUS 12m [4]", got)
}

func TestRenderChannelNameLeavesUnknownPlaceholders(t *testing.T) {
	got := RenderChannelName("{name} {nope}", NameContext{BaseName: "Room"})
	require.Equal(t, "Room {nope}", got)
}

func TestRenderChannelNameTruncatesToDiscordLimit(t *testing.T) {
	got := RenderChannelName(strings.Repeat("x", 150), NameContext{})
	require.Equal(t, strings.Repeat("x", 100), got)
}

func TestRenderChannelNameTruncatesOnRuneBoundary(t *testing.T) {
	got := RenderChannelName(strings.Repeat("é", 150), NameContext{})
	require.Equal(t, 100, utf8.RuneCountInString(got))
	require.True(t, utf8.ValidString(got))
}
