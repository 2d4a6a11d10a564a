package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/robalyx/rollcall/internal/attendance"
	"go.uber.org/zap"
)

// CheckCommandName is the slash command that triggers a manual check.
const CheckCommandName = "check"

// RegisterCommands registers the /check command in the report channel's guild.
func (c *Client) RegisterCommands(ctx context.Context) error {
	channel, err := c.guildChannel(ctx, c.channelID)
	if err != nil {
		return err
	}

	_, err = c.client.Rest().SetGuildCommands(c.client.ApplicationID(), channel.GuildID(), []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        CheckCommandName,
			Description: "Run the daily report check now",
		},
	}, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", wrapRestError("register guild commands", err))
	}

	c.logger.Info("Registered commands", zap.Uint64("guild_id", uint64(channel.GuildID())))

	return nil
}

// onApplicationCommand serves /check. Only administrators may run it; the
// check itself runs in the background and the deferred reply is updated
// with the outcome.
func (c *Client) onApplicationCommand(event *events.ApplicationCommandInteractionCreate) {
	data, ok := event.Data.(discord.SlashCommandInteractionData)
	if !ok || data.CommandName() != CheckCommandName {
		return
	}

	if !isAdministrator(event.Member()) {
		err := event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(c.texts.AdminOnly()).
			SetEphemeral(true).
			Build())
		if err != nil {
			c.logger.Error("Failed to reject command", zap.Error(err))
		}

		return
	}

	if err := event.DeferCreateMessage(true); err != nil {
		c.logger.Error("Failed to defer create message", zap.Error(err))
		return
	}

	c.handlers.Go(func() {
		start := time.Now()
		content := c.runManualCheck(context.Background(), uint64(event.User().ID))

		_, err := event.Client().Rest().UpdateInteractionResponse(
			event.ApplicationID(),
			event.Token(),
			discord.NewMessageUpdateBuilder().SetContent(content).Build(),
		)
		if err != nil {
			c.logger.Error("Failed to update command response", zap.Error(err))
		}

		c.logger.Debug("Application command interaction handled",
			zap.String("command", CheckCommandName),
			zap.Duration("duration", time.Since(start)))
	})
}

// runManualCheck runs a check and renders the reply for the invoking administrator.
func (c *Client) runManualCheck(ctx context.Context, userID uint64) string {
	if c.runner == nil {
		return c.texts.RunFailed(attendance.ErrTransport)
	}

	c.logger.Info("Manual check requested", zap.Uint64("user_id", userID))

	report, err := c.runner.Run(ctx, attendance.TriggerManual, nil)
	if err != nil {
		return c.texts.RunFailed(err)
	}

	return c.texts.RunSummary(report)
}

// isAdministrator reports whether the invoking member holds the Administrator permission.
func isAdministrator(member *discord.ResolvedMember) bool {
	return member != nil && member.Permissions.Has(discord.PermissionAdministrator)
}
