package attendance

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Member is a guild member as seen from the report channel.
type Member struct {
	ID          uint64 `json:"id,string"`
	DisplayName string `json:"displayName"`
	IsBot       bool   `json:"-"`
	// CanRead is false when the member cannot view the channel or when
	// their permissions could not be resolved.
	CanRead bool `json:"-"`
}

// Mention returns the chat mention markup for the member.
func (m Member) Mention() string {
	return "<@" + strconv.FormatUint(m.ID, 10) + ">"
}

// Message is the part of a channel message needed to track attendance.
type Message struct {
	ID        uint64
	AuthorID  uint64
	CreatedAt time.Time
}

// AllowList restricts eligibility to a fixed set of member IDs.
// An empty list allows everyone.
type AllowList map[uint64]struct{}

// ParseAllowList parses a comma separated list of member IDs.
// Entries that are not plain digits are ignored.
func ParseAllowList(raw string) AllowList {
	list := make(AllowList)

	for entry := range strings.SplitSeq(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.IndexFunc(entry, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			continue
		}

		id, err := strconv.ParseUint(entry, 10, 64)
		if err != nil {
			continue
		}

		list[id] = struct{}{}
	}

	return list
}

// Allows reports whether the member ID passes the list.
func (l AllowList) Allows(id uint64) bool {
	if len(l) == 0 {
		return true
	}

	_, ok := l[id]

	return ok
}

// IDs returns the listed IDs in ascending order.
func (l AllowList) IDs() []uint64 {
	ids := make([]uint64, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// ResolveEligible keeps the members that are not bots, can read the channel
// and pass the allow list. Input order is preserved.
func ResolveEligible(members []Member, allow AllowList) []Member {
	eligible := make([]Member, 0, len(members))

	for _, member := range members {
		if member.IsBot || !member.CanRead || !allow.Allows(member.ID) {
			continue
		}

		eligible = append(eligible, member)
	}

	return eligible
}

// ReporterSet is the set of members who posted inside a window.
type ReporterSet map[uint64]struct{}

// CollectReporters gathers the distinct authors of messages inside the window.
func CollectReporters(messages []Message, window Window) ReporterSet {
	reporters := make(ReporterSet)

	for _, msg := range messages {
		if !window.Contains(msg.CreatedAt) {
			continue
		}

		reporters[msg.AuthorID] = struct{}{}
	}

	return reporters
}

// Has reports whether the member posted.
func (r ReporterSet) Has(id uint64) bool {
	_, ok := r[id]
	return ok
}

// FindAbsentees returns the eligible members missing from reporters,
// in the order they appear in eligible.
func FindAbsentees(eligible []Member, reporters ReporterSet) []Member {
	absentees := make([]Member, 0)

	for _, member := range eligible {
		if !reporters.Has(member.ID) {
			absentees = append(absentees, member)
		}
	}

	return absentees
}
