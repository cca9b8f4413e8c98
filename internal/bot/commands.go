package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytegrab/bytegrab/internal/database/types"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

const (
	byteCommandName        = "byte"
	infoCommandName        = "info"
	cooldownCommandName    = "cooldown"
	leaderboardCommandName = "leaderboard"
	masterRoleCommandName  = "masterrole"

	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 25
)

// commandDefinitions returns the slash commands registered on startup.
// Admin commands carry Manage Guild as their default permission; Discord
// enforces it, the core does not.
func commandDefinitions() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        byteCommandName,
			Description: "Grab a byte",
		},
		discord.SlashCommandCreate{
			Name:        infoCommandName,
			Description: "Show a member's byte count",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "member",
					Description: "Member to look up (defaults to you)",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        leaderboardCommandName,
			Description: "Show the guild's byte leaderboard",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "limit",
					Description: "Number of entries to show",
					MinValue:    json.Ptr(1),
					MaxValue:    json.Ptr(maxLeaderboardLimit),
				},
			},
		},
		discord.SlashCommandCreate{
			Name:                     cooldownCommandName,
			Description:              "Set the claim cooldown for this guild",
			DefaultMemberPermissions: json.NewNullablePtr(discord.PermissionManageGuild),
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "seconds",
					Description: "Minimum seconds between a member's claims (0 disables)",
					Required:    true,
					MinValue:    json.Ptr(0),
				},
			},
		},
		discord.SlashCommandCreate{
			Name:                     masterRoleCommandName,
			Description:              "Set the role granted to the leaderboard leader",
			DefaultMemberPermissions: json.NewNullablePtr(discord.PermissionManageGuild),
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionRole{
					Name:        "role",
					Description: "Role to grant",
					Required:    true,
				},
			},
		},
	}
}

// handleByte runs a claim for the invoking member and reports the outcome.
func (b *Bot) handleByte(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	guildID := uint64(*event.GuildID())
	userID := uint64(event.User().ID)
	svc := b.db.Service().Economy()

	outcome, err := svc.Claim(ctx, guildID, userID, time.Now().UTC())
	if err != nil {
		b.logger.Error("Claim failed", zap.Error(err),
			zap.Uint64("guildID", guildID), zap.Uint64("userID", userID))
		b.updateResponse(event, failureEmbed("Something went wrong, try again in a moment."))

		return
	}

	if !outcome.Accepted {
		b.updateResponse(event, failureEmbed(fmt.Sprintf(
			"You're still on cooldown. Try again in %s.", formatDuration(outcome.Remaining))))

		return
	}

	b.updateResponse(event, successEmbed(fmt.Sprintf(
		"%s grabbed a byte! +%d (total: %d)",
		event.User().EffectiveName(), outcome.Awarded, outcome.NewScore)))

	b.grantMasterRole(ctx, event, guildID, userID)
}

// grantMasterRole gives the configured role to the claimant when they hold
// rank 1. Best effort outside the claim transaction; a failed grant only
// logs, it never unwinds the claim.
func (b *Bot) grantMasterRole(ctx context.Context, event *events.ApplicationCommandInteractionCreate, guildID, userID uint64) {
	svc := b.db.Service().Economy()

	guild, err := svc.GetGuild(ctx, guildID)
	if err != nil || guild.MasterRoleID == 0 {
		return
	}

	leader, err := svc.IsLeader(ctx, guildID, userID)
	if err != nil || !leader {
		return
	}

	err = event.Client().Rest().AddMemberRole(
		snowflake.ID(guildID), snowflake.ID(userID), snowflake.ID(guild.MasterRoleID))
	if err != nil {
		b.logger.Warn("Failed to grant master role", zap.Error(err),
			zap.Uint64("guildID", guildID), zap.Uint64("userID", userID),
			zap.Uint64("roleID", guild.MasterRoleID))
	}
}

// handleInfo shows the invoker's byte count, or another member's when the
// option is set. Creates the member row on first lookup.
func (b *Bot) handleInfo(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	guildID := uint64(*event.GuildID())

	target := event.User()
	if user, ok := event.SlashCommandInteractionData().OptUser("member"); ok {
		target = user
	}

	member, err := b.db.Service().Economy().Info(ctx, guildID, uint64(target.ID))
	if err != nil {
		b.logger.Error("Info lookup failed", zap.Error(err), zap.Uint64("guildID", guildID))
		b.updateResponse(event, failureEmbed("Something went wrong, try again in a moment."))

		return
	}

	msg := fmt.Sprintf("%s has %d bytes.", target.EffectiveName(), member.Score)
	if !member.HasClaimed() {
		msg = fmt.Sprintf("%s hasn't grabbed a byte yet.", target.EffectiveName())
	}

	b.updateResponse(event, successEmbed(msg))
}

// handleCooldown updates the guild's claim cooldown.
func (b *Bot) handleCooldown(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	guildID := uint64(*event.GuildID())
	seconds := int64(event.SlashCommandInteractionData().Int("seconds"))
	svc := b.db.Service().Economy()

	if err := svc.EnsureGuild(ctx, guildID, 0); err != nil {
		b.logger.Error("Failed to ensure guild", zap.Error(err), zap.Uint64("guildID", guildID))
		b.updateResponse(event, failureEmbed("Something went wrong, try again in a moment."))

		return
	}

	if err := svc.SetCooldown(ctx, guildID, seconds); err != nil {
		if errors.Is(err, types.ErrInvalidCooldown) {
			b.updateResponse(event, failureEmbed("The cooldown must not be negative."))
			return
		}

		b.logger.Error("Failed to set cooldown", zap.Error(err), zap.Uint64("guildID", guildID))
		b.updateResponse(event, failureEmbed("Something went wrong, try again in a moment."))

		return
	}

	b.updateResponse(event, successEmbed(fmt.Sprintf(
		"Claim cooldown set to %s.", formatDuration(time.Duration(seconds)*time.Second))))
}

// handleLeaderboard renders the guild's ranking.
func (b *Bot) handleLeaderboard(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	guildID := uint64(*event.GuildID())

	limit := defaultLeaderboardLimit
	if n, ok := event.SlashCommandInteractionData().OptInt("limit"); ok {
		limit = n
	}

	entries, err := b.db.Service().Economy().Leaderboard(ctx, guildID, limit)
	if err != nil {
		b.logger.Error("Leaderboard failed", zap.Error(err), zap.Uint64("guildID", guildID))
		b.updateResponse(event, failureEmbed("Something went wrong, try again in a moment."))

		return
	}

	if len(entries) == 0 {
		b.updateResponse(event, successEmbed("Nobody has grabbed a byte yet."))
		return
	}

	var sb strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&sb, "%d. <@%d>: %d bytes\n", i+1, entry.UserID, entry.Score)
	}

	b.updateResponse(event, titledEmbed("Leaderboard", sb.String(), colorSuccess))
}

// handleMasterRole stores the role granted to the leaderboard leader.
func (b *Bot) handleMasterRole(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	guildID := uint64(*event.GuildID())
	role := event.SlashCommandInteractionData().Snowflake("role")
	svc := b.db.Service().Economy()

	if err := svc.EnsureGuild(ctx, guildID, 0); err != nil {
		b.logger.Error("Failed to ensure guild", zap.Error(err), zap.Uint64("guildID", guildID))
		b.updateResponse(event, failureEmbed("Something went wrong, try again in a moment."))

		return
	}

	if err := svc.SetMasterRole(ctx, guildID, uint64(role)); err != nil {
		b.logger.Error("Failed to set master role", zap.Error(err), zap.Uint64("guildID", guildID))
		b.updateResponse(event, failureEmbed("Something went wrong, try again in a moment."))

		return
	}

	b.updateResponse(event, successEmbed(fmt.Sprintf("Master role set to <@&%d>.", uint64(role))))
}
