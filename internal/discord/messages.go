package discord

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// Send posts a plain text message to the channel.
func (c *Client) Send(ctx context.Context, channelID uint64, content string) error {
	_, err := c.rest.CreateMessage(
		snowflake.ID(channelID),
		discord.NewMessageCreateBuilder().SetContent(content).Build(),
		rest.WithCtx(ctx),
	)
	if err != nil {
		return wrapRestError("send channel message", err)
	}

	return nil
}

// SendDirect opens a direct message channel with the user and posts to it.
func (c *Client) SendDirect(ctx context.Context, userID uint64, content string) error {
	channel, err := c.rest.CreateDMChannel(snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		return wrapRestError("open direct message channel", err)
	}

	_, err = c.rest.CreateMessage(
		channel.ID(),
		discord.NewMessageCreateBuilder().SetContent(content).Build(),
		rest.WithCtx(ctx),
	)
	if err != nil {
		return wrapRestError("send direct message", err)
	}

	return nil
}
