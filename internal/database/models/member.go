package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytegrab/bytegrab/internal/database/dbretry"
	"github.com/bytegrab/bytegrab/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// MemberModel handles database operations for per-guild member rows.
type MemberModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMember creates a MemberModel with database access.
func NewMember(db *bun.DB, logger *zap.Logger) *MemberModel {
	return &MemberModel{
		db:     db,
		logger: logger.Named("db_member"),
	}
}

// Ensure inserts a member row if absent with a zero score and no claim
// timestamp. The owning guild row must already exist.
func (m *MemberModel) Ensure(ctx context.Context, idb bun.IDB, userID, guildID uint64) error {
	member := &types.Member{
		UserID:  userID,
		GuildID: guildID,
	}

	_, err := idb.NewInsert().Model(member).
		On("CONFLICT (user_id, guild_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure member: %w (userID=%d, guildID=%d)", err, userID, guildID)
	}

	return nil
}

// Get retrieves a member row on the given connection or transaction.
// Returns ErrMemberNotFound when no row exists for the (user, guild) pair.
func (m *MemberModel) Get(ctx context.Context, idb bun.IDB, userID, guildID uint64) (*types.Member, error) {
	member := new(types.Member)

	err := idb.NewSelect().Model(member).
		Where("user_id = ?", userID).
		Where("guild_id = ?", guildID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrMemberNotFound
		}

		return nil, fmt.Errorf("failed to get member: %w (userID=%d, guildID=%d)", err, userID, guildID)
	}

	return member, nil
}

// Lock reads a member row with FOR UPDATE, serializing concurrent claims for
// the same (user, guild) pair for the rest of the transaction. Claims by
// other members of the guild lock different rows and proceed in parallel.
func (m *MemberModel) Lock(ctx context.Context, tx bun.IDB, userID, guildID uint64) (*types.Member, error) {
	member := new(types.Member)

	err := tx.NewSelect().Model(member).
		Where("user_id = ?", userID).
		Where("guild_id = ?", guildID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrMemberNotFound
		}

		return nil, fmt.Errorf("failed to lock member: %w (userID=%d, guildID=%d)", err, userID, guildID)
	}

	return member, nil
}

// ApplyClaim writes the score and claim timestamp produced by an accepted
// claim. Only called inside the claim transaction, paired with the guild's
// last-claimant update.
func (m *MemberModel) ApplyClaim(ctx context.Context, tx bun.IDB, userID, guildID uint64, newScore int64, now time.Time) error {
	_, err := tx.NewUpdate().Model((*types.Member)(nil)).
		Set("score = ?", newScore).
		Set("last_claim_at = ?", now).
		Where("user_id = ?", userID).
		Where("guild_id = ?", guildID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply claim: %w (userID=%d, guildID=%d)", err, userID, guildID)
	}

	return nil
}

// Leaderboard returns up to limit members of a guild ranked by score
// descending. Ties break on the lower user id so repeated calls on unchanged
// data return an identical order. A zero limit yields an empty slice.
func (m *MemberModel) Leaderboard(ctx context.Context, guildID uint64, limit int) ([]types.LeaderboardEntry, error) {
	if limit < 0 {
		return nil, types.ErrInvalidLimit
	}

	if limit == 0 {
		return []types.LeaderboardEntry{}, nil
	}

	entries, err := dbretry.Operation(ctx, func(ctx context.Context) ([]types.LeaderboardEntry, error) {
		var entries []types.LeaderboardEntry

		err := m.db.NewSelect().Model((*types.Member)(nil)).
			Column("user_id", "score").
			Where("guild_id = ?", guildID).
			OrderExpr("score DESC, user_id ASC").
			Limit(limit).
			Scan(ctx, &entries)
		if err != nil {
			return nil, fmt.Errorf("failed to get leaderboard: %w (guildID=%d)", err, guildID)
		}

		return entries, nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Fetched leaderboard",
		zap.Uint64("guildID", guildID),
		zap.Int("limit", limit),
		zap.Int("entries", len(entries)))

	return entries, nil
}
