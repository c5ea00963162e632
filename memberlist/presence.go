package memberlist

import (
	"context"

	"github.com/lazyguild/lazyguild/collab"
	"github.com/lazyguild/lazyguild/snowflake"
	"github.com/lazyguild/lazyguild/wire"
)

// PresUpdate implements the presence update decision: a member not in the
// list is logged and skipped; a change that keeps the member's group and
// name sends a single UPDATE; a group change or a nickname change takes the
// complex (resync) path.
func (l *MemberList) PresUpdate(ctx context.Context, member snowflake.UserID, partial collab.PartialPresence) error {
	if err := l.ensureInit(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	oldGroup, inList := l.currentGroupOf(member)
	if !inList {
		l.log.Warn().Uint64("member_id", uint64(member)).Msg("pres_update: member not in list")
		return nil
	}

	memberData := l.members[member]
	if partial.Roles != nil {
		memberData.Roles = partial.Roles
		l.members[member] = memberData
	}

	merged := l.presences[member]
	if partial.Status != nil {
		merged.Status = *partial.Status
	}
	if partial.Game != nil {
		merged.Game = partial.Game
	}
	if partial.Roles != nil {
		merged.Roles = partial.Roles
	}
	l.presences[member] = merged

	if partial.HasNick {
		memberData.Nick = partial.Nick
		l.members[member] = memberData
	}

	newGroup := assignGroup(l.groups, memberData.Roles, merged.Status)

	if newGroup.Equal(oldGroup) && !partial.HasNick {
		l.presUpdateSimple(ctx, member)
		return nil
	}

	l.presUpdateComplex(ctx, member, oldGroup, newGroup)
	return nil
}

// presUpdateSimple handles the case where a member's group and name are both
// unchanged: a single UPDATE op at its current index, to every session whose
// range covers it.
func (l *MemberList) presUpdateSimple(ctx context.Context, member snowflake.UserID) {
	idx := l.itemIndexOfMember(member)
	if idx < 0 {
		return
	}

	item := wire.MemberListItem(l.members[member], l.presences[member])
	op := wire.Update(idx, item)

	l.dispatchMany(ctx, l.getSubs(idx), []wire.Operation{op})
}

// presUpdateComplex handles a group change or a nickname change: the member
// moves between data[gid] slices and the groups are resorted. This uses the
// resync fallback — a SYNC over the affected ranges rather than precise
// INSERT/DELETE ops — since index-precise arithmetic across concurrent
// client state was never validated against a real client.
func (l *MemberList) presUpdateComplex(ctx context.Context, member snowflake.UserID, oldGroup, newGroup wire.GroupID) {
	oldIndex := l.itemIndexOfMember(member)

	l.data[oldGroup] = removeFromGroup(l.data[oldGroup], member)
	l.data[newGroup] = append(l.data[newGroup], member)
	sortByDisplayName(l.data[oldGroup], l.members)
	sortByDisplayName(l.data[newGroup], l.members)

	newIndex := l.itemIndexOfMember(member)

	if oldIndex >= 0 {
		l.resyncByItem(oldIndex)
	}
	if newIndex >= 0 && newIndex != oldIndex {
		l.resyncByItem(newIndex)
	}
}
