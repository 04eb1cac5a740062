package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Limpieza periódica: webhooks cacheados cuyo canal ya no tiene timer ni
// es default de ningún guild, y timers detenidos sin actividad en meses.
func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, _ = pool.Exec(cctx, `
DELETE FROM notify_hooks h
WHERE NOT EXISTS (
        SELECT 1 FROM timers t
         WHERE t.channel_id = h.channel_id
            OR t.notification_channel_id = h.channel_id)
  AND NOT EXISTS (
        SELECT 1 FROM guild_settings g
         WHERE g.pomodoro_channel_id = h.channel_id);`)

	_, _ = pool.Exec(cctx, `
DELETE FROM timers
WHERE last_started IS NULL
  AND updated_at < now() - INTERVAL '180 days';`)

	return "ok", nil
}

func main() { lambda.Start(handler) }
