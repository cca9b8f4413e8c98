package migrations

import (
	"context"
	"fmt"

	"github.com/bytegrab/bytegrab/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// Guilds must exist before members can reference them.
		_, err := db.NewCreateTable().
			Model((*types.Guild)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create guilds table: %w", err)
		}

		_, err = db.NewCreateTable().
			Model((*types.Member)(nil)).
			IfNotExists().
			ForeignKey(`(guild_id) REFERENCES guilds (id)`).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create members table: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewDropTable().
			Model((*types.Member)(nil)).
			IfExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop members table: %w", err)
		}

		_, err = db.NewDropTable().
			Model((*types.Guild)(nil)).
			IfExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop guilds table: %w", err)
		}

		return nil
	})
}
