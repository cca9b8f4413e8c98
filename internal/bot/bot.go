// Package bot is the Discord shim around the economy core: it registers the
// slash commands, translates interactions into service calls and renders the
// outcomes as embeds. All rules live in the economy engine and the database
// services; nothing here mutates state directly.
package bot

import (
	"context"
	"time"

	"github.com/bytegrab/bytegrab/internal/database"
	"github.com/disgoorg/disgo"
	botpkg "github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"go.uber.org/zap"
)

// Bot owns the Discord gateway connection and the command handlers.
type Bot struct {
	db     database.Client
	client botpkg.Client
	logger *zap.Logger
}

// New creates the Discord client with the gateway intents and event
// listeners the commands need.
func New(token string, db database.Client, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		db:     db,
		logger: logger.Named("bot"),
	}

	client, err := disgo.New(token,
		botpkg.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
			),
		),
		botpkg.WithEventListeners(&events.ListenerAdapter{
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
		}),
	)
	if err != nil {
		return nil, err
	}

	b.client = client

	return b, nil
}

// Start registers the slash commands globally and opens the gateway.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Registering commands")

	_, err := b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), commandDefinitions())
	if err != nil {
		return err
	}

	b.logger.Info("Starting bot")

	return b.client.OpenGateway(ctx)
}

// Close gracefully shuts down the Discord gateway connection.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.client.Close(ctx)
}

// handleApplicationCommandInteraction processes slash commands by deferring
// the response and handling the command in a goroutine so slow database
// calls never hit Discord's interaction timeout.
func (b *Bot) handleApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	go func() {
		if event.GuildID() == nil {
			_ = respondEmbed(event, failureEmbed("Commands only work inside a server."))
			return
		}

		if err := event.DeferCreateMessage(false); err != nil {
			b.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		name := event.SlashCommandInteractionData().CommandName()
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in command handler", zap.Any("panic", r))
				b.updateResponse(event, failureEmbed("Internal error. Please try again later."))
			}

			b.logger.Debug("Command handled",
				zap.String("command", name),
				zap.Duration("duration", time.Since(start)))
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		switch name {
		case byteCommandName:
			b.handleByte(ctx, event)
		case infoCommandName:
			b.handleInfo(ctx, event)
		case cooldownCommandName:
			b.handleCooldown(ctx, event)
		case leaderboardCommandName:
			b.handleLeaderboard(ctx, event)
		case masterRoleCommandName:
			b.handleMasterRole(ctx, event)
		default:
			b.updateResponse(event, failureEmbed("Unknown command."))
		}
	}()
}
