package attendance

import "context"

// Directory lists the members of the guild owning a channel.
type Directory interface {
	// Members returns every member of the channel's guild with CanRead
	// evaluated against the channel. It must not be served from a cache.
	Members(ctx context.Context, channelID uint64) ([]Member, error)
}

// History reads channel messages.
type History interface {
	// Messages returns every message posted in the channel inside the window.
	Messages(ctx context.Context, channelID uint64, window Window) ([]Message, error)
}

// Messenger delivers notifications.
type Messenger interface {
	Send(ctx context.Context, channelID uint64, content string) error
	SendDirect(ctx context.Context, userID uint64, content string) error
}

// Platform is everything a check needs from the chat platform.
type Platform interface {
	Directory
	History
	Messenger
}
