package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks a failed request to the chat platform.
	ErrTransport = errors.New("chat platform request failed")
	// ErrPermission marks a request the bot is not allowed to make.
	ErrPermission = errors.New("missing permission")
)

// DeliveryError records a direct reminder that could not be delivered.
type DeliveryError struct {
	Member Member
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver reminder to %s (%d): %v", e.Member.DisplayName, e.Member.ID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
