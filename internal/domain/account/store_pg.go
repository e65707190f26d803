package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barangay/egov/internal/platform/db"
)

type pgCooldowns struct {
	pool *pgxpool.Pool
}

// NewPGCooldowns keeps cooldowns in the otp_request table so every gateway
// instance sees the same sends.
func NewPGCooldowns(pool *pgxpool.Pool) Cooldowns {
	return &pgCooldowns{pool: pool}
}

func (s *pgCooldowns) Reserve(ctx context.Context, phone string, now time.Time, cooldown time.Duration) (time.Duration, error) {
	var wait time.Duration
	err := db.InTx(ctx, s.pool, func(ctx context.Context) error {
		conn := db.Conn(ctx, s.pool)
		var last time.Time
		err := conn.QueryRow(ctx, `SELECT last_sent_at FROM otp_request WHERE phone = $1 FOR UPDATE`, phone).Scan(&last)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			_, err = conn.Exec(ctx, `INSERT INTO otp_request (phone, last_sent_at, send_count) VALUES ($1, $2, 1)`, phone, now)
			return err
		case err != nil:
			return err
		}
		if w := last.Add(cooldown).Sub(now); w > 0 {
			wait = w
			return nil
		}
		_, err = conn.Exec(ctx, `UPDATE otp_request SET last_sent_at = $2, send_count = send_count + 1 WHERE phone = $1`, phone, now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reserve otp send: %w", err)
	}
	return wait, nil
}

func (s *pgCooldowns) Release(ctx context.Context, phone string, sentAt time.Time) error {
	_, err := db.Conn(ctx, s.pool).Exec(ctx,
		`DELETE FROM otp_request WHERE phone = $1 AND last_sent_at = $2 AND send_count = 1`, phone, sentAt)
	if err != nil {
		return fmt.Errorf("release otp send: %w", err)
	}
	return nil
}
