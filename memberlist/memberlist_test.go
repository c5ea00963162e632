package memberlist

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lazyguild/lazyguild/collab"
	"github.com/lazyguild/lazyguild/metrics"
	"github.com/lazyguild/lazyguild/permissions"
	"github.com/lazyguild/lazyguild/snowflake"
	"github.com/lazyguild/lazyguild/wire"
)

type harness struct {
	storage  *collab.MemStorage
	presence *collab.MemPresence
	sessions *collab.MemSessionRegistry
	dispatch *Dispatcher
}

func newHarness() *harness {
	storage := collab.NewMemStorage()
	presence := collab.NewMemPresence()
	sessions := collab.NewMemSessionRegistry()

	d := NewDispatcher(Config{
		Storage:  storage,
		Presence: presence,
		Perms:    collab.DefaultPermissions{Storage: storage},
		Sessions: sessions,
		Metrics:  metrics.NewNoop(),
		Log:      zerolog.Nop(),
	})

	return &harness{storage: storage, presence: presence, sessions: sessions, dispatch: d}
}

// connect registers a session and returns a channel that receives every
// GUILD_MEMBER_LIST_UPDATE delivered to it.
func (h *harness) connect(sessionID string) chan wire.Update {
	ch := make(chan wire.Update, 16)
	h.sessions.Connect(sessionID, func(event string, payload any) {
		if event != wire.EventMemberListUpdate {
			return
		}
		ch <- payload.(wire.Update)
	})
	return ch
}

func awaitUpdate(t *testing.T, ch chan wire.Update) wire.Update {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for GUILD_MEMBER_LIST_UPDATE")
		return wire.Update{}
	}
}

// everyoneGuild sets up guild=channel=1 with an @everyone role that can
// read the channel.
func everyoneGuild(h *harness) {
	h.storage.SetGuildChannel(1, 1)
	h.storage.SetRoles(1, []collab.RoleData{
		{ID: 1, Name: "@everyone", Permissions: permissions.ReadMessages},
	})
}

func TestInitialSyncReturnsGroupedItems(t *testing.T) {
	h := newHarness()
	everyoneGuild(h)

	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 10, Username: "Alice"}})
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 20, Username: "Bob"}})
	h.presence.Set(collab.Presence{User: collab.User{ID: 10}, Status: "online"})
	h.presence.Set(collab.Presence{User: collab.User{ID: 20}, Status: "offline"})

	ch := h.connect("s1")

	list, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "everyone", list.listID())

	require.NoError(t, list.ShardQuery(context.Background(), "s1", [][2]int{{0, 3}}))

	update := awaitUpdate(t, ch)
	require.Equal(t, "everyone", update.ID)
	require.Len(t, update.Ops, 1)
	require.Equal(t, wire.OpSync, update.Ops[0].Kind)

	items := update.Ops[0].Items
	require.Len(t, items, 4)
	require.NotNil(t, items[0].Group)
	require.Equal(t, wire.OnlineGroup, items[0].Group.ID)
	require.Equal(t, 1, items[0].Group.Count)
	require.NotNil(t, items[1].Member)
	require.Equal(t, snowflake.UserID(10), items[1].Member.Member.User.ID)
	require.NotNil(t, items[2].Group)
	require.Equal(t, wire.OfflineGroup, items[2].Group.ID)
	require.NotNil(t, items[3].Member)
	require.Equal(t, snowflake.UserID(20), items[3].Member.Member.User.ID)
}

func TestPresenceGoesOfflineMovesMemberAndResyncs(t *testing.T) {
	h := newHarness()
	everyoneGuild(h)

	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 10, Username: "Alice"}})
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 20, Username: "Bob"}})
	h.presence.Set(collab.Presence{User: collab.User{ID: 10}, Status: "online"})
	h.presence.Set(collab.Presence{User: collab.User{ID: 20}, Status: "offline"})

	ch := h.connect("s1")

	list, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, list.ShardQuery(context.Background(), "s1", [][2]int{{0, 3}}))
	awaitUpdate(t, ch) // drain the initial SYNC

	offline := "offline"
	require.NoError(t, list.PresUpdate(context.Background(), 10, collab.PartialPresence{Status: &offline}))

	// The complex path resyncs asynchronously; it should still produce a
	// GUILD_MEMBER_LIST_UPDATE for s1 since its range covers the affected indices.
	update := awaitUpdate(t, ch)
	require.Equal(t, wire.OpSync, update.Ops[0].Kind)

	var onlineCount, offlineCount int
	for _, g := range update.Groups {
		switch g.ID {
		case wire.OnlineGroup:
			onlineCount = g.Count
		case wire.OfflineGroup:
			offlineCount = g.Count
		}
	}
	require.Equal(t, 0, onlineCount)
	require.Equal(t, 2, offlineCount)
}

func TestHoistedRoleGroupAppearsBeforeOnlineOffline(t *testing.T) {
	h := newHarness()
	h.storage.SetGuildChannel(1, 1)
	h.storage.SetRoles(1, []collab.RoleData{
		{ID: 1, Name: "@everyone", Permissions: permissions.ReadMessages},
		{ID: 5, Name: "Mods", Hoist: true, Position: 1, Permissions: permissions.ReadMessages},
	})
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 10, Username: "Alice"}, Roles: []snowflake.RoleID{5}})
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 20, Username: "Bob"}})
	h.presence.Set(collab.Presence{User: collab.User{ID: 10}, Status: "online"})
	h.presence.Set(collab.Presence{User: collab.User{ID: 20}, Status: "offline"})

	ch := h.connect("s1")
	list, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, list.ShardQuery(context.Background(), "s1", [][2]int{{0, 10}}))

	update := awaitUpdate(t, ch)
	items := update.Ops[0].Items
	require.Len(t, items, 4) // Mods header+A, offline header+B ("online" omitted: empty)
	require.Equal(t, wire.RoleGroup(5), items[0].Group.ID)
	require.Equal(t, snowflake.UserID(10), items[1].Member.Member.User.ID)
	require.Equal(t, wire.OfflineGroup, items[2].Group.ID)
}

func TestBoundaryEmptyGuildOfflineOnly(t *testing.T) {
	h := newHarness()
	everyoneGuild(h)

	ch := h.connect("s1")
	list, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, list.ShardQuery(context.Background(), "s1", [][2]int{{0, 10}}))

	update := awaitUpdate(t, ch)
	items := update.Ops[0].Items
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Group)
	require.Equal(t, wire.OfflineGroup, items[0].Group.ID)
	require.Equal(t, 0, items[0].Group.Count)
}

func TestBoundaryRoleDeleteOnNonGroupIsNoop(t *testing.T) {
	h := newHarness()
	everyoneGuild(h)
	h.presence.Set(collab.Presence{User: collab.User{ID: 999}, Status: "offline"})

	list, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, list.ShardQuery(context.Background(), "warmup", [][2]int{{0, 0}}))

	require.NoError(t, list.RoleDelete(context.Background(), 404))
}

func TestInvalidRangeSilentlyDropped(t *testing.T) {
	h := newHarness()
	everyoneGuild(h)
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 10, Username: "Alice"}})
	h.presence.Set(collab.Presence{User: collab.User{ID: 10}, Status: "online"})

	ch := h.connect("s1")
	list, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)

	// One valid, one inverted (end<start) range: only the valid one should
	// produce an op.
	require.NoError(t, list.ShardQuery(context.Background(), "s1", [][2]int{{0, 1}, {5, 2}}))

	update := awaitUpdate(t, ch)
	require.Len(t, update.Ops, 1)
}

func TestEveryoneRedirect(t *testing.T) {
	h := newHarness()
	h.storage.SetGuildChannel(1, 1)
	h.storage.SetGuildChannel(2, 1)
	h.storage.SetRoles(1, []collab.RoleData{
		{ID: 1, Name: "@everyone", Permissions: permissions.ReadMessages},
	})
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 10, Username: "Alice"}})
	h.presence.Set(collab.Presence{User: collab.User{ID: 10}, Status: "online"})

	ch := h.connect("s1")

	channelList, err := h.dispatch.GetGML(context.Background(), 2)
	require.NoError(t, err)
	require.NoError(t, channelList.ShardQuery(context.Background(), "s1", [][2]int{{0, 10}}))

	update := awaitUpdate(t, ch)
	// The redirect delivers the everyone list's id, not the requested channel's.
	require.Equal(t, "everyone", update.ID)

	everyoneList, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, channelList.initialized, "channel list should never have been initialized: the everyone list served the query")
	require.True(t, everyoneList.initialized)
}

func TestNewRoleGroupAppearsMidSessionOnceAMemberJoinsIt(t *testing.T) {
	h := newHarness()
	everyoneGuild(h)
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 10, Username: "Alice"}})
	h.presence.Set(collab.Presence{User: collab.User{ID: 10}, Status: "online"})

	ch := h.connect("s1")
	list, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, list.ShardQuery(context.Background(), "s1", [][2]int{{0, 10}}))
	awaitUpdate(t, ch) // drain initial sync: online header+Alice, offline header

	require.NoError(t, list.NewRole(context.Background(), collab.RoleData{
		ID: 5, Name: "Mods", Hoist: true, Position: 1, Permissions: permissions.ReadMessages,
	}))
	require.NotNil(t, findGroup(list.groups, wire.RoleGroup(5)), "new_role should add the role's group immediately (its header stays hidden while empty)")

	// A role grant on its own doesn't move anyone: the group stays empty and
	// invisible until a presence update actually places a member under it.
	require.NoError(t, list.PresUpdate(context.Background(), 10, collab.PartialPresence{Roles: []snowflake.RoleID{5}}))

	update := awaitUpdate(t, ch)
	var sawMods bool
	for _, item := range update.Ops[0].Items {
		if item.Group != nil && item.Group.ID.Equal(wire.RoleGroup(5)) {
			sawMods = true
		}
	}
	require.True(t, sawMods, "expected the new role's group header to appear once a member is placed in it")
}

func TestRolePosUpdateResyncsSessionsCoveringOldAndNewHeaderIndex(t *testing.T) {
	h := newHarness()
	h.storage.SetGuildChannel(1, 1)
	h.storage.SetRoles(1, []collab.RoleData{
		{ID: 1, Name: "@everyone", Permissions: permissions.ReadMessages},
		{ID: 5, Name: "ModsA", Hoist: true, Position: 5, Permissions: permissions.ReadMessages},
		{ID: 6, Name: "ModsB", Hoist: true, Position: 1, Permissions: permissions.ReadMessages},
	})
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 10, Username: "Alice"}, Roles: []snowflake.RoleID{5}})
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 20, Username: "Bob"}, Roles: []snowflake.RoleID{6}})
	h.presence.Set(collab.Presence{User: collab.User{ID: 10}, Status: "online"})
	h.presence.Set(collab.Presence{User: collab.User{ID: 20}, Status: "online"})

	list, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)

	// ModsA sorts first (position 5): header@0, Alice@1, ModsB header@2, Bob@3, offline header@4.
	chOld := h.connect("sOld")
	require.NoError(t, list.ShardQuery(context.Background(), "sOld", [][2]int{{0, 0}}))
	awaitUpdate(t, chOld) // drain initial sync

	chNew := h.connect("sNew")
	require.NoError(t, list.ShardQuery(context.Background(), "sNew", [][2]int{{2, 2}}))
	awaitUpdate(t, chNew) // drain initial sync

	// Moving ModsA below ModsB swaps their header indices: ModsB header@0,
	// Bob@1, ModsA header@2, Alice@3, offline header@4.
	require.NoError(t, list.RolePosUpdate(context.Background(), collab.RoleData{
		ID: 5, Name: "ModsA", Hoist: true, Position: 0, Permissions: permissions.ReadMessages,
	}))

	oldResync := awaitUpdate(t, chOld)
	require.Equal(t, wire.OpSync, oldResync.Ops[0].Kind)

	newResync := awaitUpdate(t, chNew)
	require.Equal(t, wire.OpSync, newResync.Ops[0].Kind)
}

func TestRoleDeleteReassignsAndResortsOrphanedMembers(t *testing.T) {
	h := newHarness()
	h.storage.SetGuildChannel(1, 1)
	h.storage.SetRoles(1, []collab.RoleData{
		{ID: 1, Name: "@everyone", Permissions: permissions.ReadMessages},
		{ID: 5, Name: "Mods", Hoist: true, Position: 5, Permissions: permissions.ReadMessages},
	})
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 10, Username: "Zoe"}, Roles: []snowflake.RoleID{5}})
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 30, Username: "Aaron"}, Roles: []snowflake.RoleID{5}})
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 20, Username: "Mike"}})
	h.presence.Set(collab.Presence{User: collab.User{ID: 10}, Status: "online"})
	h.presence.Set(collab.Presence{User: collab.User{ID: 30}, Status: "online"})
	h.presence.Set(collab.Presence{User: collab.User{ID: 20}, Status: "online"})

	ch := h.connect("s1")
	list, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, list.ShardQuery(context.Background(), "s1", [][2]int{{0, 10}}))
	awaitUpdate(t, ch) // drain initial sync

	require.NoError(t, list.RoleDelete(context.Background(), 5))

	update := awaitUpdate(t, ch)
	items := update.Ops[0].Items

	var sawMods bool
	var names []string
	for _, item := range items {
		if item.Group != nil {
			if item.Group.ID.Equal(wire.RoleGroup(5)) {
				sawMods = true
			}
			continue
		}
		names = append(names, item.Member.Member.DisplayName())
	}

	require.False(t, sawMods, "deleted role's group header should no longer appear")
	require.Equal(t, []string{"Aaron", "Mike", "Zoe"}, names, "orphaned members should land in the online group, sorted by display name")
}

func TestRoundTripRepeatShardQueryIsStable(t *testing.T) {
	h := newHarness()
	everyoneGuild(h)
	h.storage.SetMember(1, collab.Member{User: collab.User{ID: 10, Username: "Alice"}})
	h.presence.Set(collab.Presence{User: collab.User{ID: 10}, Status: "online"})

	ch := h.connect("s1")
	list, err := h.dispatch.GetGML(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, list.ShardQuery(context.Background(), "s1", [][2]int{{0, 1}}))
	first := awaitUpdate(t, ch)

	require.NoError(t, list.ShardQuery(context.Background(), "s1", [][2]int{{0, 1}}))
	second := awaitUpdate(t, ch)

	require.Equal(t, first.Ops[0].Items, second.Ops[0].Items)
}
