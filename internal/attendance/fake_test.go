package attendance_test

import (
	"context"
	"sync"

	"github.com/robalyx/rollcall/internal/attendance"
)

// fakePlatform records outgoing messages and serves canned directory and history data.
type fakePlatform struct {
	mu sync.Mutex

	members    []attendance.Member
	membersErr error
	messages   []attendance.Message
	historyErr error
	sendErr    error
	directErrs map[uint64]error

	// release, when set, blocks Members until it is closed.
	release chan struct{}

	memberCalls  int
	historyCalls int
	sent         []string
	directTried  []uint64
	directSent   []uint64
}

func (f *fakePlatform) Members(ctx context.Context, _ uint64) ([]attendance.Member, error) {
	f.mu.Lock()
	f.memberCalls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return f.members, f.membersErr
}

func (f *fakePlatform) Messages(_ context.Context, _ uint64, _ attendance.Window) ([]attendance.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.historyCalls++

	return f.messages, f.historyErr
}

func (f *fakePlatform) Send(_ context.Context, _ uint64, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}

	f.sent = append(f.sent, content)

	return nil
}

func (f *fakePlatform) SendDirect(_ context.Context, userID uint64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.directTried = append(f.directTried, userID)
	if err := f.directErrs[userID]; err != nil {
		return err
	}

	f.directSent = append(f.directSent, userID)

	return nil
}

func (f *fakePlatform) calls() (members, history int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.memberCalls, f.historyCalls
}

func member(id uint64, name string) attendance.Member {
	return attendance.Member{ID: id, DisplayName: name, CanRead: true}
}
