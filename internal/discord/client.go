package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/rollcall/internal/attendance"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// readyTimeout bounds the wait for the Ready event after opening the gateway.
// A revoked token is closed by Discord without ever sending Ready.
const readyTimeout = 30 * time.Second

// restAPI is the subset of the Discord REST API used by the client.
type restAPI interface {
	GetChannel(channelID snowflake.ID, opts ...rest.RequestOpt) (discord.Channel, error)
	GetGuild(guildID snowflake.ID, withCounts bool, opts ...rest.RequestOpt) (*discord.RestGuild, error)
	GetRoles(guildID snowflake.ID, opts ...rest.RequestOpt) ([]discord.Role, error)
	GetMembers(guildID snowflake.ID, limit int, after snowflake.ID, opts ...rest.RequestOpt) ([]discord.Member, error)
	GetMessages(
		channelID snowflake.ID, around snowflake.ID, before snowflake.ID, after snowflake.ID, limit int, opts ...rest.RequestOpt,
	) ([]discord.Message, error)
	CreateMessage(
		channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt,
	) (*discord.Message, error)
	CreateDMChannel(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.DMChannel, error)
}

// Runner runs an attendance check on demand.
type Runner interface {
	Run(ctx context.Context, trigger attendance.Trigger, window *attendance.Window) (*attendance.Report, error)
}

// Client implements attendance.Platform on top of a Discord bot account.
// It owns the gateway connection and serves the /check command.
type Client struct {
	client    bot.Client
	rest      restAPI
	channelID snowflake.ID
	texts     attendance.Texts
	logger    *zap.Logger

	runner   Runner
	handlers conc.WaitGroup

	ready        chan struct{}
	readyOnce    sync.Once
	readyTimeout time.Duration
}

var _ attendance.Platform = (*Client)(nil)

// New creates a Client for the bot token. The gateway is not opened until Connect.
func New(token string, channelID uint64, texts attendance.Texts, logger *zap.Logger) (*Client, error) {
	c := newClient(nil, channelID, texts, logger)

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(gateway.IntentGuilds),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnReady:                         c.onReady,
			OnApplicationCommandInteraction: c.onApplicationCommand,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	c.client = client
	c.rest = client.Rest()

	return c, nil
}

// newClient builds a Client around an existing REST implementation.
func newClient(api restAPI, channelID uint64, texts attendance.Texts, logger *zap.Logger) *Client {
	return &Client{
		rest:         api,
		channelID:    snowflake.ID(channelID),
		texts:        texts,
		logger:       logger.Named("discord"),
		ready:        make(chan struct{}),
		readyTimeout: readyTimeout,
	}
}

// SetRunner sets the check runner invoked by the /check command.
func (c *Client) SetRunner(runner Runner) {
	c.runner = runner
}

// Connect opens the gateway and blocks until the session is ready.
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to Discord")

	if err := c.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("%w: failed to open gateway: %w", attendance.ErrTransport, err)
	}

	return c.waitReady(ctx)
}

// waitReady blocks until the Ready event, the ready timeout or ctx cancellation.
func (c *Client) waitReady(ctx context.Context) error {
	timer := time.NewTimer(c.readyTimeout)
	defer timer.Stop()

	select {
	case <-c.ready:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %w after %s", attendance.ErrTransport, ErrReadyTimeout, c.readyTimeout)
	case <-ctx.Done():
		return fmt.Errorf("waiting for ready event: %w", ctx.Err())
	}
}

// Close waits for running command handlers and closes the gateway.
func (c *Client) Close(ctx context.Context) {
	if recovered := c.handlers.WaitAndRecover(); recovered != nil {
		c.logger.Error("Command handler panicked",
			zap.Any("panic", recovered.Value),
			zap.ByteString("stack", recovered.Stack))
	}

	if c.client != nil {
		c.logger.Info("Closing Discord client")
		c.client.Close(ctx)
	}
}

// onReady marks the session as ready.
func (c *Client) onReady(event *events.Ready) {
	c.logger.Info("Bot online",
		zap.String("user", event.User.Username),
		zap.Uint64("user_id", uint64(event.User.ID)))

	c.readyOnce.Do(func() { close(c.ready) })
}
