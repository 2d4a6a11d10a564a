package discord

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/rollcall/internal/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testChannelID snowflake.ID = 40

var errConnReset = errors.New("connection reset")

// fakeREST serves a single guild with one text channel.
type fakeREST struct {
	mu sync.Mutex

	channel  discord.Channel
	channels map[snowflake.ID]discord.Channel
	roles    []discord.Role
	members  []discord.Member
	messages []discord.Message

	channelErr error
	sendErr    error
	dmErr      error

	memberPages  int
	messagePages int
	created      map[snowflake.ID][]string
}

func (f *fakeREST) GetChannel(channelID snowflake.ID, _ ...rest.RequestOpt) (discord.Channel, error) {
	if channel, ok := f.channels[channelID]; ok {
		return channel, nil
	}

	return f.channel, f.channelErr
}

func (f *fakeREST) GetGuild(guildID snowflake.ID, _ bool, _ ...rest.RequestOpt) (*discord.RestGuild, error) {
	return &discord.RestGuild{Guild: discord.Guild{ID: guildID, OwnerID: testOwnerID}}, nil
}

func (f *fakeREST) GetRoles(snowflake.ID, ...rest.RequestOpt) ([]discord.Role, error) {
	return f.roles, nil
}

func (f *fakeREST) GetMembers(_ snowflake.ID, limit int, after snowflake.ID, _ ...rest.RequestOpt) ([]discord.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.memberPages++

	var page []discord.Member
	for _, m := range f.members {
		if m.User.ID > after && len(page) < limit {
			page = append(page, m)
		}
	}

	return page, nil
}

func (f *fakeREST) GetMessages(
	_ snowflake.ID, _ snowflake.ID, _ snowflake.ID, after snowflake.ID, limit int, _ ...rest.RequestOpt,
) ([]discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messagePages++

	var page []discord.Message
	for _, m := range f.messages {
		if m.ID > after && len(page) < limit {
			page = append(page, m)
		}
	}

	return page, nil
}

func (f *fakeREST) CreateMessage(
	channelID snowflake.ID, messageCreate discord.MessageCreate, _ ...rest.RequestOpt,
) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return nil, f.sendErr
	}

	if f.created == nil {
		f.created = make(map[snowflake.ID][]string)
	}
	f.created[channelID] = append(f.created[channelID], messageCreate.Content)

	return &discord.Message{ChannelID: channelID, Content: messageCreate.Content}, nil
}

func (f *fakeREST) CreateDMChannel(userID snowflake.ID, _ ...rest.RequestOpt) (*discord.DMChannel, error) {
	if f.dmErr != nil {
		return nil, f.dmErr
	}

	var channel discord.DMChannel
	if err := json.Unmarshal([]byte(`{"id":"`+(userID+1000).String()+`","type":1}`), &channel); err != nil {
		return nil, err
	}

	return &channel, nil
}

// textChannel decodes a guild text channel the way the API returns it.
func textChannel(t *testing.T, overwrites string) discord.Channel {
	t.Helper()

	raw := `{"id":"` + testChannelID.String() + `","type":0,"guild_id":"` + testGuildID.String() +
		`","name":"weekly-report","permission_overwrites":` + overwrites + `}`

	var channel discord.GuildTextChannel
	require.NoError(t, json.Unmarshal([]byte(raw), &channel))

	return &channel
}

// threadChannel decodes a public thread under the test text channel.
func threadChannel(t *testing.T, id snowflake.ID) discord.Channel {
	t.Helper()

	raw := `{"id":"` + id.String() + `","type":11,"guild_id":"` + testGuildID.String() +
		`","parent_id":"` + testChannelID.String() + `","name":"2024-06-01"}`

	var channel discord.UnmarshalChannel
	require.NoError(t, json.Unmarshal([]byte(raw), &channel))

	return channel.Channel
}

func restErrorWithStatus(status int) error {
	return &rest.Error{Response: &http.Response{StatusCode: status}, Message: http.StatusText(status)}
}

func newTestClient(api restAPI) *Client {
	return newClient(api, uint64(testChannelID), attendance.NewTexts("en"), zap.NewNop())
}

func TestMembers(t *testing.T) {
	t.Parallel()

	nick := "Kim"
	global := "Lee Global"

	api := &fakeREST{
		// Hide the channel from @everyone, grant it back to staff
		channel: textChannel(t, `[
			{"id":"`+testGuildID.String()+`","type":0,"allow":"0","deny":"1024"},
			{"id":"`+staffRoleID.String()+`","type":0,"allow":"1024","deny":"0"}
		]`),
		roles: testRoles(discord.PermissionViewChannel),
	}
	api.members = []discord.Member{
		{User: discord.User{ID: 100, Username: "kim"}, Nick: &nick, RoleIDs: []snowflake.ID{staffRoleID}},
		{User: discord.User{ID: 101, Username: "lee", GlobalName: &global}, RoleIDs: []snowflake.ID{staffRoleID}},
		{User: discord.User{ID: 102, Username: "park"}},
		{User: discord.User{ID: 103, Username: "helper", Bot: true}, RoleIDs: []snowflake.ID{staffRoleID}},
	}

	members, err := newTestClient(api).Members(t.Context(), uint64(testChannelID))
	require.NoError(t, err)

	assert.Equal(t, []attendance.Member{
		{ID: 100, DisplayName: "Kim", CanRead: true},
		{ID: 101, DisplayName: "Lee Global", CanRead: true},
		{ID: 102, DisplayName: "park", CanRead: false},
		{ID: 103, DisplayName: "helper", IsBot: true, CanRead: true},
	}, members)
	assert.Equal(t, 1, api.memberPages)
}

func TestMembersInThreadUseParentOverwrites(t *testing.T) {
	t.Parallel()

	const threadID snowflake.ID = 41

	api := &fakeREST{
		// The parent hides itself from @everyone and grants staff
		channel: textChannel(t, `[
			{"id":"`+testGuildID.String()+`","type":0,"allow":"0","deny":"1024"},
			{"id":"`+staffRoleID.String()+`","type":0,"allow":"1024","deny":"0"}
		]`),
		channels: map[snowflake.ID]discord.Channel{threadID: threadChannel(t, threadID)},
		roles:    testRoles(discord.PermissionViewChannel),
		members: []discord.Member{
			{User: discord.User{ID: 100, Username: "kim"}, RoleIDs: []snowflake.ID{staffRoleID}},
			{User: discord.User{ID: 102, Username: "park"}},
		},
	}

	members, err := newTestClient(api).Members(t.Context(), uint64(threadID))
	require.NoError(t, err)

	assert.Equal(t, []attendance.Member{
		{ID: 100, DisplayName: "kim", CanRead: true},
		{ID: 102, DisplayName: "park", CanRead: false},
	}, members)
}

func TestMembersPaginates(t *testing.T) {
	t.Parallel()

	api := &fakeREST{
		channel: textChannel(t, `[]`),
		roles:   testRoles(discord.PermissionViewChannel),
	}
	for i := range memberPageSize + 5 {
		api.members = append(api.members, discord.Member{User: discord.User{ID: snowflake.ID(1000 + i), Username: "member"}})
	}

	members, err := newTestClient(api).Members(t.Context(), uint64(testChannelID))
	require.NoError(t, err)

	assert.Len(t, members, memberPageSize+5)
	assert.Equal(t, 2, api.memberPages)
}

func TestMembersRejectsNonGuildChannel(t *testing.T) {
	t.Parallel()

	var dm discord.DMChannel
	require.NoError(t, json.Unmarshal([]byte(`{"id":"40","type":1}`), &dm))

	_, err := newTestClient(&fakeREST{channel: &dm}).Members(t.Context(), uint64(testChannelID))
	require.ErrorIs(t, err, ErrNotGuildChannel)
}

func TestMembersClassifiesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "forbidden", err: restErrorWithStatus(http.StatusForbidden), want: attendance.ErrPermission},
		{name: "unauthorized", err: restErrorWithStatus(http.StatusUnauthorized), want: attendance.ErrPermission},
		{name: "not found", err: restErrorWithStatus(http.StatusNotFound), want: attendance.ErrTransport},
		{name: "network", err: errConnReset, want: attendance.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := newTestClient(&fakeREST{channelErr: tt.err}).Members(t.Context(), uint64(testChannelID))
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMessages(t *testing.T) {
	t.Parallel()

	kst := time.FixedZone("KST", 9*60*60)
	window := attendance.Window{
		Start: time.Date(2024, time.May, 1, 18, 0, 0, 0, kst),
		End:   time.Date(2024, time.May, 1, 23, 59, 59, 0, kst),
	}

	var history []discord.Message
	post := func(author snowflake.ID, at time.Time) {
		id := snowflake.New(at) + snowflake.ID(len(history)+1)
		history = append(history, discord.Message{ID: id, Author: discord.User{ID: author}, CreatedAt: at})
	}

	post(1, window.Start.Add(-time.Minute))
	post(2, window.Start)
	for i := range messagePageSize + 10 {
		post(3, window.Start.Add(time.Duration(i+1)*time.Minute))
	}
	post(4, window.End.Add(500*time.Millisecond))
	post(5, window.End.Add(time.Hour))
	post(6, window.End.Add(2*time.Hour))

	sort.Slice(history, func(i, j int) bool { return history[i].ID < history[j].ID })

	api := &fakeREST{messages: history}
	messages, err := newTestClient(api).Messages(t.Context(), uint64(testChannelID), window)
	require.NoError(t, err)

	authors := make(map[uint64]int)
	for _, m := range messages {
		authors[m.AuthorID]++
		assert.True(t, window.Contains(m.CreatedAt))
	}

	assert.Equal(t, map[uint64]int{2: 1, 3: messagePageSize + 10, 4: 1}, authors)
	assert.Equal(t, 2, api.messagePages)
}

func TestSendDirect(t *testing.T) {
	t.Parallel()

	api := &fakeREST{}
	client := newTestClient(api)

	require.NoError(t, client.Send(t.Context(), uint64(testChannelID), "summary"))
	require.NoError(t, client.SendDirect(t.Context(), 100, "reminder"))

	assert.Equal(t, map[snowflake.ID][]string{
		testChannelID: {"summary"},
		1100:          {"reminder"},
	}, api.created)
}

func TestSendDirectClassifiesErrors(t *testing.T) {
	t.Parallel()

	client := newTestClient(&fakeREST{dmErr: restErrorWithStatus(http.StatusForbidden)})
	require.ErrorIs(t, client.SendDirect(t.Context(), 100, "reminder"), attendance.ErrPermission)

	client = newTestClient(&fakeREST{sendErr: errConnReset})
	require.ErrorIs(t, client.Send(t.Context(), uint64(testChannelID), "summary"), attendance.ErrTransport)
}
