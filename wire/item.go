// Package wire defines the on-the-wire shapes the member list engine emits:
// group ids, list items (group headers and member items), operations
// (SYNC/INVALIDATE/INSERT/UPDATE/DELETE) and the GUILD_MEMBER_LIST_UPDATE
// envelope that carries a batch of operations to one session. This package
// is the producing side of the contract a connected client parses.
package wire

import (
	"encoding/json"
	"strconv"

	"github.com/lazyguild/lazyguild/collab"
	"github.com/lazyguild/lazyguild/snowflake"
)

// GroupID is either a hoisted role id or one of the synthetic tags "online"
// and "offline". It carries no ordering of its own — groups are ordered by
// GroupInfo.Position only (see memberlist.GroupInfo).
type GroupID struct {
	Role snowflake.RoleID
	Tag  string
}

// RoleGroup builds a GroupID for a hoisted role.
func RoleGroup(id snowflake.RoleID) GroupID { return GroupID{Role: id} }

// OnlineGroup and OfflineGroup are the two synthetic groups every list carries.
var (
	OnlineGroup  = GroupID{Tag: "online"}
	OfflineGroup = GroupID{Tag: "offline"}
)

// IsSynthetic reports whether this is the "online"/"offline" tag group rather
// than a role group.
func (g GroupID) IsSynthetic() bool { return g.Tag != "" }

// Equal compares two group ids for identity.
func (g GroupID) Equal(o GroupID) bool { return g.Tag == o.Tag && g.Role == o.Role }

// String renders the id the way the wire protocol expects: the tag verbatim,
// or the role id in decimal.
func (g GroupID) String() string {
	if g.Tag != "" {
		return g.Tag
	}
	return strconv.FormatUint(uint64(g.Role), 10)
}

// GroupHeader is the "group" half of a list item: a group id and how many
// members currently sit under it.
type GroupHeader struct {
	ID    GroupID
	Count int
}

func (g GroupHeader) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}{g.ID.String(), g.Count})
}

// compactPresence is the presence object nested under a member item:
// {user:{id}, status, game, activities}.
type compactPresence struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Status     string            `json:"status"`
	Game       *collab.Activity  `json:"game"`
	Activities []collab.Activity `json:"activities"`
}

// MemberItem is the "member" half of a list item: a member snapshot merged
// with a compact presence view.
type MemberItem struct {
	Member   collab.Member
	Presence collab.Presence
}

func (m MemberItem) MarshalJSON() ([]byte, error) {
	var pres compactPresence
	pres.User.ID = m.Member.User.ID.String()
	pres.Status = m.Presence.Status
	pres.Game = m.Presence.Game
	pres.Activities = m.Presence.Activities

	// collab.Member has its own MarshalJSON, so its output is decoded into a
	// key map and the presence object is added alongside the member's keys.
	memberData, err := json.Marshal(m.Member)
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(memberData, &out); err != nil {
		return nil, err
	}
	presData, err := json.Marshal(pres)
	if err != nil {
		return nil, err
	}
	out["presence"] = presData

	return json.Marshal(out)
}

// ListItem is a tagged union of GroupHeader and MemberItem — exactly one of
// Group or Member is set.
type ListItem struct {
	Group  *GroupHeader
	Member *MemberItem
}

// IsNil reports whether the item carries neither a group nor a member.
func (it ListItem) IsNil() bool {
	return it.Group == nil && it.Member == nil
}

func GroupItem(id GroupID, count int) ListItem {
	return ListItem{Group: &GroupHeader{ID: id, Count: count}}
}

func MemberListItem(member collab.Member, presence collab.Presence) ListItem {
	return ListItem{Member: &MemberItem{Member: member, Presence: presence}}
}

func (it ListItem) MarshalJSON() ([]byte, error) {
	switch {
	case it.Group != nil:
		return json.Marshal(struct {
			Group GroupHeader `json:"group"`
		}{*it.Group})
	case it.Member != nil:
		return json.Marshal(struct {
			Member MemberItem `json:"member"`
		}{*it.Member})
	default:
		return []byte("{}"), nil
	}
}
