package bot

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"go.uber.org/zap"
)

const (
	colorSuccess = 0x1F8B4C
	colorFailure = 0xED4245
)

func successEmbed(msg string) discord.Embed {
	return titledEmbed("Success!", msg, colorSuccess)
}

func failureEmbed(msg string) discord.Embed {
	return titledEmbed("Uh oh!", msg, colorFailure)
}

func titledEmbed(title, msg string, color int) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(msg).
		SetColor(color).
		Build()
}

// respondEmbed replies immediately, for interactions rejected before the
// response was deferred.
func respondEmbed(event *events.ApplicationCommandInteractionCreate, embed discord.Embed) error {
	return event.CreateMessage(discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build())
}

// updateResponse fills in the deferred interaction response.
func (b *Bot) updateResponse(event *events.ApplicationCommandInteractionCreate, embed discord.Embed) {
	_, err := event.Client().Rest().UpdateInteractionResponse(
		event.ApplicationID(), event.Token(),
		discord.NewMessageUpdateBuilder().SetEmbeds(embed).Build())
	if err != nil {
		b.logger.Error("Failed to update interaction response", zap.Error(err))
	}
}

// formatDuration renders a cooldown as the largest two non-zero units.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	d = d.Round(time.Second)

	hours := d / time.Hour
	minutes := (d % time.Hour) / time.Minute
	seconds := (d % time.Minute) / time.Second

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0 && seconds > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
