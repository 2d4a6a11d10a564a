package discord

import (
	"errors"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// ErrPermissionsUnresolved is returned when a member's channel permissions
// cannot be computed from the fetched guild data.
var ErrPermissionsUnresolved = errors.New("member permissions could not be resolved")

// channelScope holds the guild data needed to evaluate channel permissions.
type channelScope struct {
	guildID    snowflake.ID
	ownerID    snowflake.ID
	roles      map[snowflake.ID]discord.Permissions
	overwrites discord.PermissionOverwrites
}

// newChannelScope indexes the guild roles by ID.
func newChannelScope(
	guildID, ownerID snowflake.ID, roles []discord.Role, overwrites discord.PermissionOverwrites,
) *channelScope {
	index := make(map[snowflake.ID]discord.Permissions, len(roles))
	for _, role := range roles {
		index[role.ID] = role.Permissions
	}

	return &channelScope{
		guildID:    guildID,
		ownerID:    ownerID,
		roles:      index,
		overwrites: overwrites,
	}
}

// permissionsFor computes the member's effective permissions in the channel
// following Discord's resolution order: guild owner, base role permissions,
// administrator, then the @everyone, role and member overwrites.
func (s *channelScope) permissionsFor(member discord.Member) (discord.Permissions, error) {
	if member.User.ID == s.ownerID {
		return discord.PermissionsAll, nil
	}

	// The @everyone role shares the guild's ID
	everyone, ok := s.roles[s.guildID]
	if !ok {
		return 0, ErrPermissionsUnresolved
	}

	base := everyone
	for _, roleID := range member.RoleIDs {
		if perms, ok := s.roles[roleID]; ok {
			base = base.Add(perms)
		}
	}

	if base.Has(discord.PermissionAdministrator) {
		return discord.PermissionsAll, nil
	}

	memberRoles := make(map[snowflake.ID]struct{}, len(member.RoleIDs))
	for _, roleID := range member.RoleIDs {
		memberRoles[roleID] = struct{}{}
	}

	var (
		everyoneAllow, everyoneDeny discord.Permissions
		roleAllow, roleDeny         discord.Permissions
		memberAllow, memberDeny     discord.Permissions
	)

	for _, overwrite := range s.overwrites {
		switch o := overwrite.(type) {
		case discord.RolePermissionOverwrite:
			if o.RoleID == s.guildID {
				everyoneAllow, everyoneDeny = o.Allow, o.Deny
				continue
			}

			if _, ok := memberRoles[o.RoleID]; ok {
				roleAllow = roleAllow.Add(o.Allow)
				roleDeny = roleDeny.Add(o.Deny)
			}
		case discord.MemberPermissionOverwrite:
			if o.UserID == member.User.ID {
				memberAllow, memberDeny = o.Allow, o.Deny
			}
		}
	}

	perms := base.Remove(everyoneDeny).Add(everyoneAllow)
	perms = perms.Remove(roleDeny).Add(roleAllow)
	perms = perms.Remove(memberDeny).Add(memberAllow)

	return perms, nil
}

// canView reports whether the member can see the channel. Members whose
// permissions cannot be resolved are treated as unable to see it.
func (s *channelScope) canView(member discord.Member) bool {
	perms, err := s.permissionsFor(member)
	if err != nil {
		return false
	}

	return perms.Has(discord.PermissionViewChannel)
}
