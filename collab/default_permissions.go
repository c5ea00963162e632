package collab

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lazyguild/lazyguild/permissions"
	"github.com/lazyguild/lazyguild/snowflake"
)

// DefaultPermissions is the in-scope permissions helper, wired as a
// PermissionsEvaluator so the engine depends on the interface rather than
// this concrete type. It resolves role/overwrite data from
// Storage and defers all of the actual bit arithmetic to the pure
// permissions package.
//
// By Discord convention the guild's @everyone role shares the guild's id;
// FetchRoles is expected to include that row like any other role.
type DefaultPermissions struct {
	Storage Storage
}

var _ PermissionsEvaluator = DefaultPermissions{}

func roleBaseMap(roles []RoleData) map[uint64]permissions.Permissions {
	m := make(map[uint64]permissions.Permissions, len(roles))
	for _, r := range roles {
		m[uint64(r.ID)] = r.Permissions
	}
	return m
}

func overwriteMap(ows []Overwrite) map[uint64]permissions.Overwrite {
	m := make(map[uint64]permissions.Overwrite, len(ows))
	for _, ow := range ows {
		m[ow.ID] = permissions.Overwrite{ID: ow.ID, Allow: ow.Allow, Deny: ow.Deny}
	}
	return m
}

// RolePermissions mixes a role's base permissions with the channel's
// overwrite for that role. An unknown role yields the zero permission set.
func (d DefaultPermissions) RolePermissions(
	ctx context.Context, guild snowflake.GuildID, role snowflake.RoleID, channel snowflake.ChannelID,
) (permissions.Permissions, error) {
	roles, err := d.Storage.FetchRoles(ctx, guild)
	if err != nil {
		return 0, errors.Wrap(err, "fetch roles")
	}

	base, ok := roleBaseMap(roles)[uint64(role)]
	if !ok {
		return 0, nil
	}

	ows, err := d.Storage.ChanOverwrites(ctx, channel)
	if err != nil {
		return 0, errors.Wrap(err, "fetch channel overwrites")
	}

	return permissions.MixWithOverwrite(base, overwriteMap(ows), uint64(role)), nil
}

// MemberPermissions resolves a member's effective permissions on a channel
// from their full role set plus the channel's overwrites.
func (d DefaultPermissions) MemberPermissions(
	ctx context.Context, member snowflake.UserID, channel snowflake.ChannelID,
) (permissions.Permissions, error) {
	guild, ok, err := d.Storage.GuildFromChannel(ctx, channel)
	if err != nil {
		return 0, errors.Wrap(err, "resolve guild from channel")
	}
	if !ok {
		// No known owning guild: treat as an unknown channel, zero perms.
		return 0, nil
	}

	roles, err := d.Storage.FetchRoles(ctx, guild)
	if err != nil {
		return 0, errors.Wrap(err, "fetch roles")
	}

	memberData, err := d.Storage.GetMemberDataOne(ctx, guild, member)
	if err != nil {
		return 0, errors.Wrap(err, "fetch member")
	}

	ows, err := d.Storage.ChanOverwrites(ctx, channel)
	if err != nil {
		return 0, errors.Wrap(err, "fetch channel overwrites")
	}

	memberRoles := make([]uint64, len(memberData.Roles))
	for i, r := range memberData.Roles {
		memberRoles[i] = uint64(r)
	}

	return permissions.MemberPermissions(
		roleBaseMap(roles), uint64(guild), memberRoles, overwriteMap(ows), uint64(member),
	), nil
}
