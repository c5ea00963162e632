// Package collab defines the external collaborator contracts the member
// list engine is built against — storage, presence, permissions, and
// session dispatch — plus in-memory reference implementations of each; the
// stateful ones guard their maps behind a single mutex apiece. Persistent
// storage and the real presence/permission evaluators are out of scope for
// this engine; what lives here is the seam the engine talks to them through.
package collab

import (
	"encoding/json"

	"github.com/lazyguild/lazyguild/permissions"
	"github.com/lazyguild/lazyguild/snowflake"
)

// User is the public-facing user object nested in a member or presence.
type User struct {
	ID            snowflake.UserID `json:"id"`
	Username      string           `json:"username"`
	Discriminator string           `json:"discriminator,omitempty"`
	Avatar        string           `json:"avatar,omitempty"`
	Bot           bool             `json:"bot,omitempty"`
}

// Member is a guild member snapshot as returned by Storage. Extra carries
// any additional fields (joined_at, deaf, mute, ...) the engine doesn't
// interpret but must still pass through to clients verbatim.
type Member struct {
	User  User               `json:"user"`
	Nick  string              `json:"nick,omitempty"`
	Roles []snowflake.RoleID `json:"roles"`
	Extra map[string]any     `json:"-"`
}

// DisplayName is the name groups are sorted by: nickname if set, else
// username. Whether a member is present at all is decided by the caller,
// which holds the members map and can tell "absent" from "present with an
// empty name" — see memberlist's sort helper.
func (m Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.User.Username
}

func (m Member) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}

	roles := make([]string, len(m.Roles))
	for i, r := range m.Roles {
		roles[i] = r.String()
	}

	out["user"] = m.User
	out["roles"] = roles
	if m.Nick != "" {
		out["nick"] = m.Nick
	}

	return json.Marshal(out)
}

// Activity is a single presence activity ("game" in the legacy field name).
type Activity struct {
	Name string `json:"name"`
	Type int    `json:"type"`
}

// Presence is a member's presence snapshot as returned by PresenceManager.
type Presence struct {
	User       User               `json:"user"`
	Status     string             `json:"status"`
	Game       *Activity          `json:"game"`
	Activities []Activity         `json:"activities"`
	Roles      []snowflake.RoleID `json:"roles"`
}

// PartialPresence is an incoming presence delta: any field left unset
// should be read as "keep the stored value", except HasNick, which forces
// the complex/resync path even when the group doesn't change.
type PartialPresence struct {
	Status  *string
	Game    *Activity
	Roles   []snowflake.RoleID
	HasNick bool
	Nick    string
}

// RoleData is a role snapshot as returned by Storage.FetchRoles.
type RoleData struct {
	ID          snowflake.RoleID
	Name        string
	Hoist       bool
	Position    int
	Permissions permissions.Permissions
}

// Overwrite is a single channel permission-overwrite row, keyed by whatever
// id (role or member) it targets.
type Overwrite struct {
	ID    uint64
	Allow permissions.Permissions
	Deny  permissions.Permissions
}
