package service

import (
	"context"
	"time"

	"github.com/bytegrab/bytegrab/internal/database/dbretry"
	"github.com/bytegrab/bytegrab/internal/database/models"
	"github.com/bytegrab/bytegrab/internal/database/types"
	"github.com/bytegrab/bytegrab/internal/economy"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// EconomyService composes the claim engine with the guild and member models.
// All multi-row writes go through a single transaction so a claim is either
// fully applied or not applied at all.
type EconomyService struct {
	db      *bun.DB
	guilds  *models.GuildModel
	members *models.MemberModel
	engine  *economy.Engine
	logger  *zap.Logger
}

// NewEconomy creates a new economy service.
func NewEconomy(
	db *bun.DB,
	guilds *models.GuildModel,
	members *models.MemberModel,
	engine *economy.Engine,
	logger *zap.Logger,
) *EconomyService {
	return &EconomyService{
		db:      db,
		guilds:  guilds,
		members: members,
		engine:  engine,
		logger:  logger.Named("economy_service"),
	}
}

// Claim attempts a claim for the user in the guild at the given time.
//
// The whole read-evaluate-write cycle runs in one transaction. The member
// row is taken FOR UPDATE, so concurrent claims for the same (guild, user)
// pair serialize instead of double-awarding; claims by different members
// lock different rows and interleave freely. The guild's last-claimant
// update commits with the member's score update or not at all.
func (s *EconomyService) Claim(ctx context.Context, guildID, userID uint64, now time.Time) (economy.Outcome, error) {
	var outcome economy.Outcome

	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		// First interaction by any member creates the guild row,
		// seeded with the claimant.
		if err := s.guilds.Ensure(ctx, tx, guildID, userID); err != nil {
			return err
		}

		// A stub row makes the FOR UPDATE lock available even for a
		// member's first claim.
		if err := s.members.Ensure(ctx, tx, userID, guildID); err != nil {
			return err
		}

		member, err := s.members.Lock(ctx, tx, userID, guildID)
		if err != nil {
			return err
		}

		guild, err := s.guilds.Get(ctx, tx, guildID)
		if err != nil {
			return err
		}

		outcome = s.engine.Evaluate(guild, member, now)
		if !outcome.Accepted {
			return nil
		}

		if err := s.members.ApplyClaim(ctx, tx, userID, guildID, outcome.NewScore, now); err != nil {
			return err
		}

		return s.guilds.SetLastClaimant(ctx, tx, guildID, userID)
	})
	if err != nil {
		return economy.Outcome{}, err
	}

	if outcome.Accepted {
		s.logger.Debug("Claim accepted",
			zap.Uint64("guildID", guildID),
			zap.Uint64("userID", userID),
			zap.Int64("awarded", outcome.Awarded),
			zap.Int64("newScore", outcome.NewScore))
	} else {
		s.logger.Debug("Claim rejected",
			zap.Uint64("guildID", guildID),
			zap.Uint64("userID", userID),
			zap.Duration("remaining", outcome.Remaining))
	}

	return outcome, nil
}

// Info returns the member's economy state, lazily creating the guild and
// member rows on first lookup.
func (s *EconomyService) Info(ctx context.Context, guildID, userID uint64) (*types.Member, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Member, error) {
		if err := s.guilds.Ensure(ctx, s.db, guildID, 0); err != nil {
			return nil, err
		}

		if err := s.members.Ensure(ctx, s.db, userID, guildID); err != nil {
			return nil, err
		}

		return s.members.Get(ctx, s.db, userID, guildID)
	})
}

// EnsureGuild creates the guild row if it does not exist yet. Idempotent;
// an existing guild keeps its cooldown and last claimant.
func (s *EconomyService) EnsureGuild(ctx context.Context, guildID, seedClaimant uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return s.guilds.Ensure(ctx, s.db, guildID, seedClaimant)
	})
}

// GetGuild returns the guild row or types.ErrGuildNotFound.
func (s *EconomyService) GetGuild(ctx context.Context, guildID uint64) (*types.Guild, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Guild, error) {
		return s.guilds.Get(ctx, s.db, guildID)
	})
}

// SetCooldown updates a guild's claim cooldown. The caller is responsible
// for authorization; this only validates the value and guild existence.
func (s *EconomyService) SetCooldown(ctx context.Context, guildID uint64, seconds int64) error {
	return s.guilds.SetCooldown(ctx, guildID, seconds)
}

// SetMasterRole updates the role granted to the guild's leaderboard leader.
func (s *EconomyService) SetMasterRole(ctx context.Context, guildID, roleID uint64) error {
	return s.guilds.SetMasterRole(ctx, guildID, roleID)
}

// Leaderboard returns the guild's ranking, score descending with the lower
// user id breaking ties.
func (s *EconomyService) Leaderboard(ctx context.Context, guildID uint64, limit int) ([]types.LeaderboardEntry, error) {
	return s.members.Leaderboard(ctx, guildID, limit)
}

// IsLeader reports whether the user currently holds rank 1 in the guild.
// Derived from the leaderboard query so rank has a single source of truth.
func (s *EconomyService) IsLeader(ctx context.Context, guildID, userID uint64) (bool, error) {
	top, err := s.members.Leaderboard(ctx, guildID, 1)
	if err != nil {
		return false, err
	}

	return len(top) == 1 && top[0].UserID == userID, nil
}
