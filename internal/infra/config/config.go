package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string `env:"DATABASE_URL,required"`
	DiscordToken string `env:"DISCORD_BOT_TOKEN,required"`

	// Directorio con los cues de voz (focus-alert.dca / break-alert.dca).
	AssetDir string `env:"ASSET_DIR" envDefault:"assets"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"` // vacío = sólo consola
}

func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
