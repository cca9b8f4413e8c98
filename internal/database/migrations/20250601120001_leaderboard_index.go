package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// Leaderboard reads are score DESC with user_id ASC as the tie-break.
		_, err := db.NewRaw(`
			CREATE INDEX IF NOT EXISTS idx_members_leaderboard
			ON members (guild_id, score DESC, user_id ASC)
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create leaderboard index: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`DROP INDEX IF EXISTS idx_members_leaderboard`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop leaderboard index: %w", err)
		}

		return nil
	})
}
