package memberlist

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lazyguild/lazyguild/collab"
	"github.com/lazyguild/lazyguild/permissions"
	"github.com/lazyguild/lazyguild/snowflake"
	"github.com/lazyguild/lazyguild/wire"
)

// refreshOverwrites re-fetches the channel's overwrites from storage. Called
// by the new_role and role_update handlers, since a role change is often
// accompanied by an overwrite change for the same role.
func (l *MemberList) refreshOverwrites(ctx context.Context) error {
	ows, err := l.storage.ChanOverwrites(ctx, l.ChannelID)
	if err != nil {
		return errors.Wrap(err, "refresh channel overwrites")
	}

	overwrites := make(map[uint64]permissions.Overwrite, len(ows))
	for _, ow := range ows {
		overwrites[ow.ID] = permissions.Overwrite{ID: ow.ID, Allow: ow.Allow, Deny: ow.Deny}
	}
	l.overwrites = overwrites
	return nil
}

// insertRoleGroup inserts a role group into l.groups, keeping the role-group
// prefix sorted by position descending and the two synthetic groups last.
func (l *MemberList) insertRoleGroup(candidate *GroupInfo) {
	synthetic := append([]*GroupInfo{}, l.groups[len(l.groups)-2:]...)
	roleGroups := append([]*GroupInfo{}, l.groups[:len(l.groups)-2]...)
	roleGroups = append(roleGroups, candidate)
	sortGroupsByPosition(roleGroups)
	l.groups = append(roleGroups, synthetic...)
}

// removeRoleGroup drops the group with the given id from l.groups.
func (l *MemberList) removeRoleGroup(id wire.GroupID) {
	idx := groupIndex(l.groups, id)
	if idx < 0 {
		return
	}
	l.groups = append(l.groups[:idx], l.groups[idx+1:]...)
}

// NewRole implements the new_role role lifecycle handler.
func (l *MemberList) NewRole(ctx context.Context, role collab.RoleData) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newRoleLocked(ctx, role)
}

func (l *MemberList) newRoleLocked(ctx context.Context, role collab.RoleData) error {
	if !l.initialized {
		return nil
	}

	if err := l.refreshOverwrites(ctx); err != nil {
		return err
	}

	mixed := permissions.MixWithOverwrite(role.Permissions, l.overwrites, uint64(role.ID))
	if !mixed.Has(permissions.ReadMessages) {
		return nil
	}

	gid := wire.RoleGroup(role.ID)
	if findGroup(l.groups, gid) != nil {
		return nil
	}

	l.insertRoleGroup(&GroupInfo{ID: gid, Name: role.Name, Position: role.Position, Permissions: mixed})
	l.data[gid] = []snowflake.UserID{}
	return nil
}

// RoleUpdate implements the role_update role lifecycle handler.
func (l *MemberList) RoleUpdate(ctx context.Context, role collab.RoleData) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return nil
	}

	gid := wire.RoleGroup(role.ID)
	existing := findGroup(l.groups, gid)

	if existing == nil {
		if role.Hoist {
			return l.newRoleLocked(ctx, role)
		}
		return nil
	}

	if err := l.refreshOverwrites(ctx); err != nil {
		return err
	}

	mixed := permissions.MixWithOverwrite(role.Permissions, l.overwrites, uint64(role.ID))
	if !role.Hoist || !mixed.Has(permissions.ReadMessages) {
		return l.roleDeleteLocked(ctx, role.ID)
	}

	existing.Permissions = mixed
	existing.Name = role.Name
	return nil
}

// RolePosUpdate implements the role_pos_update role lifecycle handler.
func (l *MemberList) RolePosUpdate(ctx context.Context, role collab.RoleData) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return nil
	}

	gid := wire.RoleGroup(role.ID)
	existing := findGroup(l.groups, gid)
	if existing == nil {
		return nil
	}

	oldIndex := l.itemIndexOfGroup(gid)

	existing.Position = role.Position
	synthetic := append([]*GroupInfo{}, l.groups[len(l.groups)-2:]...)
	roleGroups := append([]*GroupInfo{}, l.groups[:len(l.groups)-2]...)
	sortGroupsByPosition(roleGroups)
	l.groups = append(roleGroups, synthetic...)

	newIndex := l.itemIndexOfGroup(gid)

	sessions := map[string]struct{}{}
	for _, s := range l.getSubs(oldIndex) {
		sessions[s] = struct{}{}
	}
	for _, s := range l.getSubs(newIndex) {
		sessions[s] = struct{}{}
	}

	ids := make([]string, 0, len(sessions))
	for s := range sessions {
		ids = append(ids, s)
	}

	if oldIndex >= 0 {
		l.resync(ids, oldIndex)
	}
	if newIndex >= 0 && newIndex != oldIndex {
		l.resync(ids, newIndex)
	}
	return nil
}

// RoleDelete implements the role_delete role lifecycle handler.
func (l *MemberList) RoleDelete(ctx context.Context, roleID snowflake.RoleID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return nil
	}

	return l.roleDeleteLocked(ctx, roleID)
}

func (l *MemberList) roleDeleteLocked(ctx context.Context, roleID snowflake.RoleID) error {
	gid := wire.RoleGroup(roleID)
	if findGroup(l.groups, gid) == nil {
		return nil // not a group: no-op
	}

	oldIndex := l.itemIndexOfGroup(gid)
	snapshot := l.getSubs(oldIndex)

	orphans := l.data[gid]
	delete(l.data, gid)
	l.removeRoleGroup(gid)
	delete(l.overwrites, uint64(roleID))

	for _, member := range orphans {
		status := l.presences[member].Status
		newGid := assignGroup(l.groups, l.members[member].Roles, status)
		l.data[newGid] = append(l.data[newGid], member)
	}
	for _, ids := range l.data {
		sortByDisplayName(ids, l.members)
	}

	if oldIndex >= 0 {
		l.resync(snapshot, oldIndex)
	}
	return nil
}
