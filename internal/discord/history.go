package discord

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/rollcall/internal/attendance"
	"go.uber.org/zap"
)

const messagePageSize = 100

// Messages reads the channel history posted inside the window, oldest pages first.
func (c *Client) Messages(
	ctx context.Context, channelID uint64, window attendance.Window,
) ([]attendance.Message, error) {
	// Snowflakes encode their creation time, so the first page starts just before the window
	after := snowflake.New(window.Start.Add(-time.Millisecond))

	var messages []attendance.Message
	pages := 0

	for {
		page, err := c.rest.GetMessages(snowflake.ID(channelID), 0, 0, after, messagePageSize, rest.WithCtx(ctx))
		if err != nil {
			return nil, wrapRestError("read channel history", err)
		}
		pages++

		pastEnd := false
		for _, msg := range page {
			if msg.ID > after {
				after = msg.ID
			}

			if !window.Contains(msg.CreatedAt) {
				if msg.CreatedAt.After(window.End) {
					pastEnd = true
				}
				continue
			}

			messages = append(messages, attendance.Message{
				ID:        uint64(msg.ID),
				AuthorID:  uint64(msg.Author.ID),
				CreatedAt: msg.CreatedAt,
			})
		}

		if len(page) < messagePageSize || pastEnd {
			break
		}
	}

	c.logger.Debug("Read channel history",
		zap.Uint64("channel_id", channelID),
		zap.Int("pages", pages),
		zap.Int("messages", len(messages)))

	return messages, nil
}
