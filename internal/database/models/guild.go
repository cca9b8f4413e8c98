package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bytegrab/bytegrab/internal/database/dbretry"
	"github.com/bytegrab/bytegrab/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// GuildModel handles database operations for guild rows.
type GuildModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGuild creates a GuildModel with database access.
func NewGuild(db *bun.DB, logger *zap.Logger) *GuildModel {
	return &GuildModel{
		db:     db,
		logger: logger.Named("db_guild"),
	}
}

// Ensure inserts a guild row if absent, seeding the last claimant and the
// default cooldown. An existing guild is never modified, so a second call
// with a different seed is a no-op. Runs on the given connection or
// transaction; callers handle retries.
func (m *GuildModel) Ensure(ctx context.Context, idb bun.IDB, guildID, seedClaimant uint64) error {
	guild := &types.Guild{
		ID:              guildID,
		LastClaimantID:  seedClaimant,
		CooldownSeconds: types.DefaultCooldownSeconds,
	}

	_, err := idb.NewInsert().Model(guild).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure guild: %w (guildID=%d)", err, guildID)
	}

	return nil
}

// Get retrieves a guild row on the given connection or transaction.
// Returns ErrGuildNotFound when the guild has never been seen.
func (m *GuildModel) Get(ctx context.Context, idb bun.IDB, guildID uint64) (*types.Guild, error) {
	guild := new(types.Guild)

	err := idb.NewSelect().Model(guild).
		Where("id = ?", guildID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrGuildNotFound
		}

		return nil, fmt.Errorf("failed to get guild: %w (guildID=%d)", err, guildID)
	}

	return guild, nil
}

// SetLastClaimant records the most recent successful claimant for a guild.
// Only called inside the claim transaction, paired with the member update.
func (m *GuildModel) SetLastClaimant(ctx context.Context, idb bun.IDB, guildID, userID uint64) error {
	_, err := idb.NewUpdate().Model((*types.Guild)(nil)).
		Set("last_claimant_id = ?", userID).
		Where("id = ?", guildID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set last claimant: %w (guildID=%d, userID=%d)", err, guildID, userID)
	}

	return nil
}

// SetCooldown updates a guild's claim cooldown in seconds.
// The guild must already exist.
func (m *GuildModel) SetCooldown(ctx context.Context, guildID uint64, seconds int64) error {
	if seconds < 0 {
		return types.ErrInvalidCooldown
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		res, err := m.db.NewUpdate().Model((*types.Guild)(nil)).
			Set("cooldown_seconds = ?", seconds).
			Where("id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set cooldown: %w (guildID=%d)", err, guildID)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		if affected == 0 {
			return types.ErrGuildNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Updated guild cooldown",
		zap.Uint64("guildID", guildID),
		zap.Int64("seconds", seconds))

	return nil
}

// SetMasterRole updates the role granted to the guild's leaderboard leader.
// The role is stored opaquely; a zero roleID clears it.
func (m *GuildModel) SetMasterRole(ctx context.Context, guildID, roleID uint64) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		res, err := m.db.NewUpdate().Model((*types.Guild)(nil)).
			Set("master_role_id = ?", roleID).
			Where("id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set master role: %w (guildID=%d)", err, guildID)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		if affected == 0 {
			return types.ErrGuildNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Updated guild master role",
		zap.Uint64("guildID", guildID),
		zap.Uint64("roleID", roleID))

	return nil
}
