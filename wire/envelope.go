package wire

import "encoding/json"

// EventMemberListUpdate is the event name every op batch is dispatched
// under.
const EventMemberListUpdate = "GUILD_MEMBER_LIST_UPDATE"

// Update is the GUILD_MEMBER_LIST_UPDATE payload delivered to one session,
// carrying every op a single handler invocation produced for it.
type Update struct {
	ID      string
	GuildID string
	Groups  []GroupHeader
	Ops     []Operation
}

func (u Update) MarshalJSON() ([]byte, error) {
	groups := u.Groups
	if groups == nil {
		groups = []GroupHeader{}
	}
	ops := u.Ops
	if ops == nil {
		ops = []Operation{}
	}

	return json.Marshal(struct {
		ID      string        `json:"id"`
		GuildID string        `json:"guild_id"`
		Groups  []GroupHeader `json:"groups"`
		Ops     []Operation   `json:"ops"`
	}{u.ID, u.GuildID, groups, ops})
}
