package memberlist

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/lazyguild/lazyguild/collab"
	"github.com/lazyguild/lazyguild/permissions"
	"github.com/lazyguild/lazyguild/snowflake"
	"github.com/lazyguild/lazyguild/wire"
)

// MaxRoles bounds how many role groups a list's position space reserves
// before the synthetic online/offline groups.
const MaxRoles = 250

// GroupInfo is one group header's server-side bookkeeping: its id, display
// name, sort position, and effective (post-overwrite) permissions on the
// list's channel.
type GroupInfo struct {
	ID          wire.GroupID
	Name        string
	Position    int
	Permissions permissions.Permissions
}

func onlineGroup() *GroupInfo {
	return &GroupInfo{ID: wire.OnlineGroup, Name: "online", Position: MaxRoles + 1}
}

func offlineGroup() *GroupInfo {
	return &GroupInfo{ID: wire.OfflineGroup, Name: "offline", Position: MaxRoles + 2}
}

// buildGroups computes the ordered group list for a channel: hoisted roles
// mixed with the channel's overwrites, filtered to those that can still
// read the channel, sorted by position descending, with the two synthetic
// groups appended last.
func buildGroups(
	ctx context.Context, storage collab.Storage, guild snowflake.GuildID, channel snowflake.ChannelID,
) ([]*GroupInfo, map[uint64]permissions.Overwrite, error) {
	roles, err := storage.FetchRoles(ctx, guild)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetch roles")
	}

	ows, err := storage.ChanOverwrites(ctx, channel)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetch channel overwrites")
	}

	overwrites := make(map[uint64]permissions.Overwrite, len(ows))
	for _, ow := range ows {
		overwrites[ow.ID] = permissions.Overwrite{ID: ow.ID, Allow: ow.Allow, Deny: ow.Deny}
	}

	groups := make([]*GroupInfo, 0, len(roles))
	for _, r := range roles {
		if !r.Hoist {
			continue
		}

		mixed := permissions.MixWithOverwrite(r.Permissions, overwrites, uint64(r.ID))
		if !mixed.Has(permissions.ReadMessages) {
			continue
		}

		groups = append(groups, &GroupInfo{
			ID:          wire.RoleGroup(r.ID),
			Name:        r.Name,
			Position:    r.Position,
			Permissions: mixed,
		})
	}

	sortGroupsByPosition(groups)

	groups = append(groups, onlineGroup(), offlineGroup())

	return groups, overwrites, nil
}

func sortGroupsByPosition(groups []*GroupInfo) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Position > groups[j].Position
	})
}

// findGroup returns the group with the given id, or nil.
func findGroup(groups []*GroupInfo, id wire.GroupID) *GroupInfo {
	for _, g := range groups {
		if g.ID.Equal(id) {
			return g
		}
	}
	return nil
}

// groupIndex returns the slice index of the group with the given id, or -1.
func groupIndex(groups []*GroupInfo, id wire.GroupID) int {
	for i, g := range groups {
		if g.ID.Equal(id) {
			return i
		}
	}
	return -1
}
