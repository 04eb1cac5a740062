package discord

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/pomodoro-bot/internal/app/pomodoro"
)

// Nombres de los cues dentro del asset dir. Son archivos DCA: frames opus
// pre-codificados, cada uno precedido por su largo uint16 little-endian.
const (
	focusAlertFile = "focus-alert.dca"
	breakAlertFile = "break-alert.dca"
)

// Dialer implementa pomodoro.VoiceDialer sobre discordgo. Una conexión de
// voz por guild: si hay una colgada de antes, la soltamos antes de entrar.
type Dialer struct {
	s        *discordgo.Session
	assetDir string
}

func NewDialer(s *discordgo.Session, assetDir string) *Dialer {
	return &Dialer{s: s, assetDir: assetDir}
}

func (d *Dialer) Join(ctx context.Context, guildID, channelID string) (pomodoro.VoiceCall, error) {
	if prev, ok := d.s.VoiceConnections[guildID]; ok && prev != nil {
		_ = prev.Disconnect()
	}

	type joined struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	ch := make(chan joined, 1)
	go func() {
		vc, err := d.s.ChannelVoiceJoin(guildID, channelID, false, true)
		ch <- joined{vc, err}
	}()

	select {
	case <-ctx.Done():
		// El join sigue corriendo de fondo; si llega a conectar, soltamos.
		go func() {
			if j := <-ch; j.err == nil && j.vc != nil {
				_ = j.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	case j := <-ch:
		if j.err != nil {
			return nil, j.err
		}
		return &voiceCall{vc: j.vc, assetDir: d.assetDir}, nil
	}
}

type voiceCall struct {
	vc       *discordgo.VoiceConnection
	assetDir string
}

func (c *voiceCall) Play(ctx context.Context, focused bool) error {
	name := breakAlertFile
	if focused {
		name = focusAlertFile
	}
	f, err := os.Open(filepath.Join(c.assetDir, name))
	if err != nil {
		return fmt.Errorf("abrir cue %s: %w", name, err)
	}
	defer f.Close()

	if err := c.vc.Speaking(true); err != nil {
		return err
	}
	defer func() { _ = c.vc.Speaking(false) }()

	for {
		var frameLen uint16
		err := binary.Read(f, binary.LittleEndian, &frameLen)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("leer frame de %s: %w", name, err)
		}
		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(f, frame); err != nil {
			return fmt.Errorf("leer frame de %s: %w", name, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case c.vc.OpusSend <- frame:
		}
	}
}

func (c *voiceCall) Close() error {
	return c.vc.Disconnect()
}
