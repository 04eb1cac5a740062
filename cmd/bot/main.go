package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	discordrouter "github.com/jose-valero/pomodoro-bot/internal/adapters/discord"
	"github.com/jose-valero/pomodoro-bot/internal/app/pomodoro"
	"github.com/jose-valero/pomodoro-bot/internal/infra/config"
	"github.com/jose-valero/pomodoro-bot/internal/infra/logging"
	"github.com/jose-valero/pomodoro-bot/internal/infra/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFile)

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("abriendo la DB")
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrando la DB")
	}
	log.Info().Msg("✅ DB lista y migrada")

	// Repos
	timersRepo := storage.NewTimerRepo(db)
	hooksRepo := storage.NewHookRepo(db)
	guildRepo := storage.NewGuildRepo(db)

	// Discord session
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal().Err(err).Msg("creando la sesión")
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	// Core
	deps := pomodoro.Deps{
		Gateway: discordrouter.NewGateway(s),
		Voice:   discordrouter.NewDialer(s, cfg.AssetDir),
		Timers:  timersRepo,
		Hooks:   hooksRepo,
		Guilds:  guildRepo,
	}
	registry := pomodoro.NewRegistry(deps)

	// Router: handlers antes del Open para no perder el Ready.
	r := discordrouter.NewRouter(s, registry, timersRepo, guildRepo)
	r.Handlers()

	if err := s.Open(); err != nil {
		log.Fatal().Err(err).Msg("conectando al gateway")
	}
	defer s.Close()
	log.Info().Str("user", s.State.User.Username).Str("id", s.State.User.ID).Msg("✅ conectado")

	if err := r.Register(); err != nil {
		log.Fatal().Err(err).Msg("registrando comandos")
	}
	log.Info().Msg("✅ comandos registrados")

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop

	// Shutdown: esperamos el trabajo de fondo de los timers.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	registry.UnloadAll(ctx)
	log.Info().Msg("bye 👋")
}
