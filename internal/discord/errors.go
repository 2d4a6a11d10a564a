package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/disgoorg/disgo/rest"
	"github.com/robalyx/rollcall/internal/attendance"
)

// ErrNotGuildChannel is returned when the report channel is not part of a guild.
var ErrNotGuildChannel = errors.New("report channel is not a guild channel")

// ErrReadyTimeout is returned when the gateway never reports the session as ready,
// which is how Discord answers a revoked or invalid token.
var ErrReadyTimeout = errors.New("timed out waiting for gateway ready event")

// wrapRestError classifies a REST failure as a permission or transport error.
func wrapRestError(action string, err error) error {
	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: failed to %s: %w", attendance.ErrPermission, action, err)
		}
	}

	return fmt.Errorf("%w: failed to %s: %w", attendance.ErrTransport, action, err)
}
