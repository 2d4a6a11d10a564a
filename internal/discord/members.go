package discord

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/rollcall/internal/attendance"
	"go.uber.org/zap"
)

const memberPageSize = 1000

// Members lists every member of the channel's guild with their read access
// to the channel.
func (c *Client) Members(ctx context.Context, channelID uint64) ([]attendance.Member, error) {
	scope, err := c.channelScope(ctx, snowflake.ID(channelID))
	if err != nil {
		return nil, err
	}

	var (
		members []attendance.Member
		after   snowflake.ID
	)

	for {
		page, err := c.rest.GetMembers(scope.guildID, memberPageSize, after, rest.WithCtx(ctx))
		if err != nil {
			return nil, wrapRestError("fetch guild members", err)
		}

		for _, m := range page {
			members = append(members, attendance.Member{
				ID:          uint64(m.User.ID),
				DisplayName: displayName(m),
				IsBot:       m.User.Bot,
				CanRead:     scope.canView(m),
			})
		}

		if len(page) < memberPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}

	c.logger.Debug("Fetched guild members",
		zap.Uint64("guild_id", uint64(scope.guildID)),
		zap.Int("count", len(members)))

	return members, nil
}

// channelScope loads the guild data needed to evaluate access to the channel.
func (c *Client) channelScope(ctx context.Context, channelID snowflake.ID) (*channelScope, error) {
	channel, err := c.guildChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	guild, err := c.rest.GetGuild(channel.GuildID(), false, rest.WithCtx(ctx))
	if err != nil {
		return nil, wrapRestError("fetch guild", err)
	}

	roles, err := c.rest.GetRoles(channel.GuildID(), rest.WithCtx(ctx))
	if err != nil {
		return nil, wrapRestError("fetch guild roles", err)
	}

	// Threads carry no overwrites of their own and inherit the parent's
	overwrites := channel.PermissionOverwrites()
	if isThread(channel.Type()) {
		parent, err := c.guildChannel(ctx, *channel.ParentID())
		if err != nil {
			return nil, err
		}

		overwrites = parent.PermissionOverwrites()
	}

	return newChannelScope(channel.GuildID(), guild.OwnerID, roles, overwrites), nil
}

// isThread reports whether the channel type is a thread.
func isThread(channelType discord.ChannelType) bool {
	switch channelType {
	case discord.ChannelTypeGuildNewsThread, discord.ChannelTypeGuildPublicThread, discord.ChannelTypeGuildPrivateThread:
		return true
	default:
		return false
	}
}

// guildChannel fetches the channel and checks that it belongs to a guild.
func (c *Client) guildChannel(ctx context.Context, channelID snowflake.ID) (discord.GuildChannel, error) {
	channel, err := c.rest.GetChannel(channelID, rest.WithCtx(ctx))
	if err != nil {
		return nil, wrapRestError("fetch channel", err)
	}

	guildChannel, ok := channel.(discord.GuildChannel)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotGuildChannel, channelID)
	}

	return guildChannel, nil
}

// displayName prefers the guild nickname, then the global name, then the username.
func displayName(m discord.Member) string {
	if m.Nick != nil && *m.Nick != "" {
		return *m.Nick
	}

	if m.User.GlobalName != nil && *m.User.GlobalName != "" {
		return *m.User.GlobalName
	}

	return m.User.Username
}
