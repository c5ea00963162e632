package memberlist

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/lazyguild/lazyguild/collab"
	"github.com/lazyguild/lazyguild/metrics"
	"github.com/lazyguild/lazyguild/permissions"
	"github.com/lazyguild/lazyguild/snowflake"
	"github.com/lazyguild/lazyguild/wire"
)

// rangeKey is an inclusive item-index range a session has subscribed to.
type rangeKey [2]int

// MemberList is the per-channel container: groups, their ordered member-id
// lists, member/presence snapshots, cached overwrites, and the subscription
// table of sessions watching index ranges into the flattened item sequence.
//
// Initialization and every handler entry point are serialized through two
// separate locks: initMu admits one initializer at a time, while mu is the
// exclusive critical section covering a handler from entry to dispatch.
type MemberList struct {
	GuildID   snowflake.GuildID
	ChannelID snowflake.ChannelID

	storage  collab.Storage
	presence collab.PresenceManager
	perms    collab.PermissionsEvaluator
	sessions collab.SessionRegistry

	// dispatcher is a non-owning back-reference used only to redirect a
	// range query to the guild's "everyone" list.
	dispatcher *Dispatcher

	metrics *metrics.Recorder
	log     zerolog.Logger

	initMu sync.Mutex
	mu     sync.Mutex

	initialized bool
	groups      []*GroupInfo
	data        map[wire.GroupID][]snowflake.UserID
	members     map[snowflake.UserID]collab.Member
	presences   map[snowflake.UserID]collab.Presence
	overwrites  map[uint64]permissions.Overwrite

	subs map[string]map[rangeKey]struct{}
}

func newMemberList(d *Dispatcher, guild snowflake.GuildID, channel snowflake.ChannelID) *MemberList {
	return &MemberList{
		GuildID:    guild,
		ChannelID:  channel,
		storage:    d.storage,
		presence:   d.presence,
		perms:      d.perms,
		sessions:   d.sessions,
		dispatcher: d,
		metrics:    d.metrics,
		log:        d.log.With().Uint64("guild_id", uint64(guild)).Uint64("channel_id", uint64(channel)).Logger(),
		subs:       map[string]map[rangeKey]struct{}{},
	}
}

// listID is the "id" field of the GUILD_MEMBER_LIST_UPDATE envelope: the
// literal "everyone" when this list's channel id equals its guild id (the
// guild-wide list), else the channel id.
func (l *MemberList) listID() string {
	if snowflake.ChannelID(l.GuildID) == l.ChannelID {
		return "everyone"
	}
	return l.ChannelID.String()
}

// clear resets the list to its empty, uninitialized state. The MemberList
// value itself survives — only its contents are dropped, once its last
// subscriber unsubscribes.
func (l *MemberList) clear() {
	l.initialized = false
	l.groups = nil
	l.data = nil
	l.members = nil
	l.presences = nil
	l.overwrites = nil
}

// ensureInit runs the list's initialization sequence if it isn't already
// initialized. It is serialized by initMu so concurrent callers collapse
// into a single initializer.
func (l *MemberList) ensureInit(ctx context.Context) error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	if l.initialized {
		return nil
	}

	memberIDs, err := l.storage.GetMemberIDs(ctx, l.GuildID)
	if err != nil {
		return errors.Wrap(err, "load member ids")
	}

	presences, err := l.presence.GuildPresences(ctx, memberIDs, l.GuildID)
	if err != nil {
		return errors.Wrap(err, "load presences")
	}
	presenceByID := make(map[snowflake.UserID]collab.Presence, len(presences))
	for _, p := range presences {
		presenceByID[p.User.ID] = p
	}

	groups, overwrites, err := buildGroups(ctx, l.storage, l.GuildID, l.ChannelID)
	if err != nil {
		return errors.Wrap(err, "build groups")
	}

	data := make(map[wire.GroupID][]snowflake.UserID, len(groups))
	for _, g := range groups {
		data[g.ID] = []snowflake.UserID{}
	}

	members := make(map[snowflake.UserID]collab.Member, len(memberIDs))

	for _, id := range memberIDs {
		member, err := l.storage.GetMemberDataOne(ctx, l.GuildID, id)
		if err != nil {
			l.log.Warn().Err(err).Uint64("member_id", uint64(id)).Msg("member snapshot missing during init")
			continue
		}

		pres := presenceByID[id]
		if !l.memberHasReadMessages(ctx, id, l.ChannelID) {
			continue // lacks read_messages on this channel: dropped entirely
		}
		gid := assignGroup(groups, member.Roles, pres.Status)

		members[id] = member
		data[gid] = append(data[gid], id)
	}

	for gid := range data {
		sortByDisplayName(data[gid], members)
	}

	l.groups = groups
	l.data = data
	l.members = members
	l.presences = presenceByID
	l.overwrites = overwrites
	l.initialized = true

	if l.metrics != nil {
		l.metrics.ActiveLists.Inc()
	}

	return nil
}

// memberHasReadMessages resolves a member's effective permissions via the
// injected evaluator. Errors are treated conservatively as "no access".
func (l *MemberList) memberHasReadMessages(ctx context.Context, member snowflake.UserID, channel snowflake.ChannelID) bool {
	perms, err := l.perms.MemberPermissions(ctx, member, channel)
	if err != nil {
		l.log.Warn().Err(err).Uint64("member_id", uint64(member)).Msg("permission lookup failed")
		return false
	}
	return perms.Has(permissions.ReadMessages)
}

// assignGroup chooses a member's group once read_messages access is already
// established: offline members always land in the offline group; online
// members land in the first group (in groups order) whose role they hold,
// else "online".
func assignGroup(groups []*GroupInfo, memberRoles []snowflake.RoleID, status string) wire.GroupID {
	if status == "offline" || status == "" {
		return wire.OfflineGroup
	}

	roleSet := make(map[snowflake.RoleID]struct{}, len(memberRoles))
	for _, r := range memberRoles {
		roleSet[r] = struct{}{}
	}

	for _, g := range groups {
		if g.ID.IsSynthetic() {
			continue
		}
		if _, ok := roleSet[g.ID.Role]; ok {
			return g.ID
		}
	}

	return wire.OnlineGroup
}

// sortByDisplayName sorts member ids ascending by display name,
// case-sensitive. A member id with no snapshot sorts to the end in id
// order rather than participating in name comparison.
func sortByDisplayName(ids []snowflake.UserID, members map[snowflake.UserID]collab.Member) {
	sort.SliceStable(ids, func(i, j int) bool {
		mi, oki := members[ids[i]]
		mj, okj := members[ids[j]]
		switch {
		case oki && okj:
			return mi.DisplayName() < mj.DisplayName()
		case oki && !okj:
			return true
		case !oki && okj:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}

// nonEmptyGroupHeaders returns the envelope's "groups" field: one header per
// group that will actually appear in the flattened sequence.
func (l *MemberList) nonEmptyGroupHeaders() []wire.GroupHeader {
	headers := make([]wire.GroupHeader, 0, len(l.groups))
	for _, g := range l.groups {
		count := len(l.data[g.ID])
		if count == 0 && !g.ID.Equal(wire.OfflineGroup) {
			continue
		}
		headers = append(headers, wire.GroupHeader{ID: g.ID, Count: count})
	}
	return headers
}

// items flattens groups+data+members+presences into the item sequence a
// client sees: each non-empty group (offline always included) emits a
// header followed by its members in order.
func (l *MemberList) items() []wire.ListItem {
	var out []wire.ListItem
	for _, g := range l.groups {
		ids := l.data[g.ID]
		if len(ids) == 0 && !g.ID.Equal(wire.OfflineGroup) {
			continue
		}
		out = append(out, wire.GroupItem(g.ID, len(ids)))
		for _, id := range ids {
			out = append(out, wire.MemberListItem(l.members[id], l.presences[id]))
		}
	}
	return out
}

// itemIndexOfGroup returns the flattened index of a group's header item, or
// -1 if that group currently has no header in the sequence.
func (l *MemberList) itemIndexOfGroup(id wire.GroupID) int {
	idx := 0
	for _, g := range l.groups {
		ids := l.data[g.ID]
		if len(ids) == 0 && !g.ID.Equal(wire.OfflineGroup) {
			continue
		}
		if g.ID.Equal(id) {
			return idx
		}
		idx += 1 + len(ids)
	}
	return -1
}

// itemIndexOfMember returns the flattened index of a member's item, or -1 if
// the member isn't currently placed in any group.
func (l *MemberList) itemIndexOfMember(member snowflake.UserID) int {
	idx := 0
	for _, g := range l.groups {
		ids := l.data[g.ID]
		empty := len(ids) == 0 && !g.ID.Equal(wire.OfflineGroup)
		if !empty {
			idx++ // group header
		}
		for _, id := range ids {
			if id == member {
				return idx
			}
			idx++
		}
	}
	return -1
}

// currentGroupOf returns the group a member id currently sits in, if any.
func (l *MemberList) currentGroupOf(member snowflake.UserID) (wire.GroupID, bool) {
	for gid, ids := range l.data {
		for _, id := range ids {
			if id == member {
				return gid, true
			}
		}
	}
	return wire.GroupID{}, false
}

// removeFromGroup removes a member id from a group's member slice.
func removeFromGroup(ids []snowflake.UserID, member snowflake.UserID) []snowflake.UserID {
	out := ids[:0]
	for _, id := range ids {
		if id != member {
			out = append(out, id)
		}
	}
	return out
}
