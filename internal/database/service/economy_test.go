package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/bytegrab/bytegrab/internal/database/migrations"
	"github.com/bytegrab/bytegrab/internal/database/models"
	"github.com/bytegrab/bytegrab/internal/database/service"
	"github.com/bytegrab/bytegrab/internal/database/types"
	"github.com/bytegrab/bytegrab/internal/economy"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// setupEconomy starts a throwaway Postgres container, runs the migrations
// and returns a ready economy service together with the bun handle for
// direct row inspection.
func setupEconomy(t *testing.T) (*service.EconomyService, *bun.DB) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("bytegrab_test"),
		postgres.WithUsername("bytegrab"),
		postgres.WithPassword("bytegrab"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(pgContainer)
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	logger := zap.NewNop()
	svc := service.NewEconomy(
		db,
		models.NewGuild(db, logger),
		models.NewMember(db, logger),
		economy.NewEngine(economy.DefaultStreakMultiplier),
		logger,
	)

	return svc, db
}

func TestClaimLifecycle(t *testing.T) {
	t.Parallel()

	svc, _ := setupEconomy(t)
	ctx := t.Context()

	const (
		guildID = uint64(1000)
		u1      = uint64(1)
		u2      = uint64(2)
	)

	require.NoError(t, svc.EnsureGuild(ctx, guildID, 0))
	require.NoError(t, svc.SetCooldown(ctx, guildID, 0))

	// U1's first claim seeds the score.
	outcome, err := svc.Claim(ctx, guildID, u1, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, outcome.Accepted)
	assert.Equal(t, int64(1), outcome.NewScore)

	// U1 again with nobody in between: streak doubles.
	outcome, err = svc.Claim(ctx, guildID, u1, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, outcome.Accepted)
	assert.Equal(t, int64(2), outcome.NewScore)

	// U2's first claim is unaffected by U1's streak.
	outcome, err = svc.Claim(ctx, guildID, u2, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, outcome.Accepted)
	assert.Equal(t, int64(1), outcome.NewScore)

	// U2 interrupted U1's streak, so U1 only gets the flat increment.
	outcome, err = svc.Claim(ctx, guildID, u1, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, outcome.Accepted)
	assert.Equal(t, int64(1), outcome.Awarded)
	assert.Equal(t, int64(3), outcome.NewScore)
}

func TestClaimCooldownLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	svc, db := setupEconomy(t)
	ctx := t.Context()

	const (
		guildID = uint64(2000)
		userID  = uint64(1)
	)

	// Default cooldown is an hour, so the second claim must be rejected.
	outcome, err := svc.Claim(ctx, guildID, userID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, outcome.Accepted)

	var guildBefore types.Guild
	require.NoError(t, db.NewSelect().Model(&guildBefore).Where("id = ?", guildID).Scan(ctx))

	var memberBefore types.Member
	require.NoError(t, db.NewSelect().Model(&memberBefore).
		Where("user_id = ?", userID).Where("guild_id = ?", guildID).Scan(ctx))

	outcome, err = svc.Claim(ctx, guildID, userID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Positive(t, outcome.Remaining)

	var guildAfter types.Guild
	require.NoError(t, db.NewSelect().Model(&guildAfter).Where("id = ?", guildID).Scan(ctx))

	var memberAfter types.Member
	require.NoError(t, db.NewSelect().Model(&memberAfter).
		Where("user_id = ?", userID).Where("guild_id = ?", guildID).Scan(ctx))

	assert.Equal(t, guildBefore, guildAfter)
	assert.Equal(t, memberBefore, memberAfter)
}

func TestEnsureGuildIdempotent(t *testing.T) {
	t.Parallel()

	svc, _ := setupEconomy(t)
	ctx := t.Context()

	const guildID = uint64(3000)

	require.NoError(t, svc.EnsureGuild(ctx, guildID, 7))
	require.NoError(t, svc.SetCooldown(ctx, guildID, 120))

	// A second ensure with a different seed must change nothing.
	require.NoError(t, svc.EnsureGuild(ctx, guildID, 9))

	guild, err := svc.GetGuild(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), guild.LastClaimantID)
	assert.Equal(t, int64(120), guild.CooldownSeconds)
}

func TestGetGuildNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := setupEconomy(t)

	_, err := svc.GetGuild(t.Context(), 404)
	require.ErrorIs(t, err, types.ErrGuildNotFound)
}

func TestSetCooldownValidation(t *testing.T) {
	t.Parallel()

	svc, _ := setupEconomy(t)
	ctx := t.Context()

	const guildID = uint64(4000)

	require.NoError(t, svc.EnsureGuild(ctx, guildID, 0))

	require.ErrorIs(t, svc.SetCooldown(ctx, guildID, -1), types.ErrInvalidCooldown)
	require.ErrorIs(t, svc.SetCooldown(ctx, 404, 60), types.ErrGuildNotFound)
	require.NoError(t, svc.SetCooldown(ctx, guildID, 0))
}

func TestSetMasterRole(t *testing.T) {
	t.Parallel()

	svc, _ := setupEconomy(t)
	ctx := t.Context()

	const guildID = uint64(5000)

	require.ErrorIs(t, svc.SetMasterRole(ctx, guildID, 42), types.ErrGuildNotFound)

	require.NoError(t, svc.EnsureGuild(ctx, guildID, 0))
	require.NoError(t, svc.SetMasterRole(ctx, guildID, 42))

	guild, err := svc.GetGuild(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), guild.MasterRoleID)
}

func TestInfoCreatesRowLazily(t *testing.T) {
	t.Parallel()

	svc, _ := setupEconomy(t)
	ctx := t.Context()

	const (
		guildID = uint64(6000)
		userID  = uint64(1)
	)

	member, err := svc.Info(ctx, guildID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), member.Score)
	assert.False(t, member.HasClaimed())

	_, err = svc.Claim(ctx, guildID, userID, time.Now().UTC())
	require.NoError(t, err)

	member, err = svc.Info(ctx, guildID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), member.Score)
	assert.True(t, member.HasClaimed())
}

func TestLeaderboard(t *testing.T) {
	t.Parallel()

	svc, _ := setupEconomy(t)
	ctx := t.Context()

	const guildID = uint64(7000)

	require.NoError(t, svc.EnsureGuild(ctx, guildID, 0))
	require.NoError(t, svc.SetCooldown(ctx, guildID, 0))

	// User 9 claims three times (1 -> 2 -> 4), user 5 and user 3 once each.
	for range 3 {
		_, err := svc.Claim(ctx, guildID, 9, time.Now().UTC())
		require.NoError(t, err)
	}

	_, err := svc.Claim(ctx, guildID, 5, time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.Claim(ctx, guildID, 3, time.Now().UTC())
	require.NoError(t, err)

	expected := []types.LeaderboardEntry{
		{UserID: 9, Score: 4},
		{UserID: 3, Score: 1},
		{UserID: 5, Score: 1},
	}

	entries, err := svc.Leaderboard(ctx, guildID, 10)
	require.NoError(t, err)
	assert.Equal(t, expected, entries)

	// Repeated calls on unchanged data return the identical order.
	again, err := svc.Leaderboard(ctx, guildID, 10)
	require.NoError(t, err)
	assert.Equal(t, entries, again)

	// The limit bounds the result length.
	top, err := svc.Leaderboard(ctx, guildID, 2)
	require.NoError(t, err)
	assert.Equal(t, expected[:2], top)

	// A zero limit yields an empty slice, not an error.
	empty, err := svc.Leaderboard(ctx, guildID, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.Leaderboard(ctx, guildID, -1)
	require.ErrorIs(t, err, types.ErrInvalidLimit)

	leader, err := svc.IsLeader(ctx, guildID, 9)
	require.NoError(t, err)
	assert.True(t, leader)

	leader, err = svc.IsLeader(ctx, guildID, 5)
	require.NoError(t, err)
	assert.False(t, leader)
}

func TestLeaderboardIsGuildScoped(t *testing.T) {
	t.Parallel()

	svc, _ := setupEconomy(t)
	ctx := t.Context()

	const (
		guildA = uint64(8000)
		guildB = uint64(8001)
	)

	for _, guildID := range []uint64{guildA, guildB} {
		require.NoError(t, svc.EnsureGuild(ctx, guildID, 0))
		require.NoError(t, svc.SetCooldown(ctx, guildID, 0))
	}

	_, err := svc.Claim(ctx, guildA, 1, time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.Claim(ctx, guildB, 2, time.Now().UTC())
	require.NoError(t, err)

	entries, err := svc.Leaderboard(ctx, guildA, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(1), entries[0].UserID)
}

func TestConcurrentClaimsSameMember(t *testing.T) {
	t.Parallel()

	svc, _ := setupEconomy(t)
	ctx := t.Context()

	const (
		guildID = uint64(9000)
		userID  = uint64(1)
		claims  = 8
	)

	require.NoError(t, svc.EnsureGuild(ctx, guildID, 0))
	require.NoError(t, svc.SetCooldown(ctx, guildID, 0))

	// With no other claimant every accepted claim doubles, so the serial
	// replay of k claims ends at 2^(k-1). Any lost update would land lower.
	p := pool.New().WithErrors().WithMaxGoroutines(claims)
	for range claims {
		p.Go(func() error {
			outcome, err := svc.Claim(ctx, guildID, userID, time.Now().UTC())
			if err != nil {
				return err
			}

			if !outcome.Accepted {
				return fmt.Errorf("claim rejected with zero cooldown: %+v", outcome)
			}

			return nil
		})
	}
	require.NoError(t, p.Wait())

	member, err := svc.Info(ctx, guildID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<(claims-1)), member.Score)
}

func TestConcurrentClaimsDifferentMembers(t *testing.T) {
	t.Parallel()

	svc, _ := setupEconomy(t)
	ctx := t.Context()

	const (
		guildID = uint64(9100)
		users   = 10
	)

	require.NoError(t, svc.EnsureGuild(ctx, guildID, 0))
	require.NoError(t, svc.SetCooldown(ctx, guildID, 0))

	p := pool.New().WithErrors().WithMaxGoroutines(users)
	for i := range users {
		userID := uint64(i + 1)

		p.Go(func() error {
			_, err := svc.Claim(ctx, guildID, userID, time.Now().UTC())
			return err
		})
	}
	require.NoError(t, p.Wait())

	entries, err := svc.Leaderboard(ctx, guildID, users)
	require.NoError(t, err)
	require.Len(t, entries, users)

	// Every member's first claim seeds score 1 regardless of interleaving.
	for _, entry := range entries {
		assert.Equal(t, int64(1), entry.Score)
	}

	// Whoever committed last is the recorded claimant.
	guild, err := svc.GetGuild(ctx, guildID)
	require.NoError(t, err)
	assert.NotZero(t, guild.LastClaimantID)
}
