package attendance_test

import (
	"errors"
	"testing"
	"time"

	"github.com/robalyx/rollcall/internal/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBlocked = errors.New("cannot send messages to this user")

func testWindow() attendance.Window {
	return attendance.DefaultSchedule(kst).WindowAt(time.Date(2024, 6, 1, 12, 0, 0, 0, kst))
}

func TestNotifyEveryonePresent(t *testing.T) {
	t.Parallel()

	platform := &fakePlatform{}
	notifier := attendance.NewNotifier(platform, attendance.NewTexts("en"), zap.NewNop())

	delivery, err := notifier.Notify(t.Context(), 42, testWindow(), nil)
	require.NoError(t, err)

	require.Len(t, platform.sent, 1)
	assert.Contains(t, platform.sent[0], "No missing reports")
	assert.Empty(t, platform.directTried)
	assert.Zero(t, delivery.Delivered)
	assert.Empty(t, delivery.Failures)
}

func TestNotifyAbsentees(t *testing.T) {
	t.Parallel()

	platform := &fakePlatform{}
	notifier := attendance.NewNotifier(platform, attendance.NewTexts("en"), zap.NewNop())

	absentees := []attendance.Member{member(3, "C"), member(4, "D")}

	delivery, err := notifier.Notify(t.Context(), 42, testWindow(), absentees)
	require.NoError(t, err)

	require.Len(t, platform.sent, 1)
	assert.Contains(t, platform.sent[0], "<@3> <@4>")
	assert.Equal(t, []uint64{3, 4}, platform.directTried)
	assert.Equal(t, 2, delivery.Delivered)
}

func TestNotifyDirectFailureIsIsolated(t *testing.T) {
	t.Parallel()

	platform := &fakePlatform{directErrs: map[uint64]error{1: errBlocked}}
	notifier := attendance.NewNotifier(platform, attendance.NewTexts("en"), zap.NewNop())

	absentees := []attendance.Member{member(1, "A"), member(2, "B"), member(3, "C")}

	delivery, err := notifier.Notify(t.Context(), 42, testWindow(), absentees)
	require.NoError(t, err)

	require.Len(t, platform.sent, 1, "summary is sent exactly once")
	assert.Equal(t, []uint64{1, 2, 3}, platform.directTried)
	assert.Equal(t, []uint64{2, 3}, platform.directSent)
	assert.Equal(t, 2, delivery.Delivered)

	require.Len(t, delivery.Failures, 1)
	assert.Equal(t, uint64(1), delivery.Failures[0].Member.ID)
	require.ErrorIs(t, delivery.Failures[0], errBlocked)

	var deliveryErr *attendance.DeliveryError
	require.ErrorAs(t, error(delivery.Failures[0]), &deliveryErr)
	assert.Contains(t, deliveryErr.Error(), "A (1)")
}

func TestNotifyPublicFailureSkipsReminders(t *testing.T) {
	t.Parallel()

	platform := &fakePlatform{sendErr: attendance.ErrTransport}
	notifier := attendance.NewNotifier(platform, attendance.NewTexts("en"), zap.NewNop())

	_, err := notifier.Notify(t.Context(), 42, testWindow(), []attendance.Member{member(1, "A")})
	require.ErrorIs(t, err, attendance.ErrTransport)
	assert.Empty(t, platform.directTried)
}
