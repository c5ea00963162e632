package wire

import (
	"encoding/json"
	"testing"

	"github.com/lazyguild/lazyguild/collab"
)

func TestGroupIDStringAndEquality(t *testing.T) {
	role := RoleGroup(42)
	if role.String() != "42" {
		t.Fatalf("expected role group id to render as decimal, got %q", role.String())
	}
	if !OnlineGroup.Equal(OnlineGroup) {
		t.Fatal("expected OnlineGroup to equal itself")
	}
	if OnlineGroup.Equal(OfflineGroup) {
		t.Fatal("expected online and offline groups to differ")
	}
	if !OnlineGroup.IsSynthetic() || role.IsSynthetic() {
		t.Fatal("synthetic flag mismatch")
	}
}

func TestMemberItemMarshalNestsCompactPresence(t *testing.T) {
	item := MemberListItem(
		collab.Member{User: collab.User{ID: 10, Username: "Alice"}},
		collab.Presence{User: collab.User{ID: 10}, Status: "online"},
	)

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Member struct {
			User struct {
				Username string `json:"username"`
			} `json:"user"`
			Presence struct {
				Status string `json:"status"`
				User   struct {
					ID string `json:"id"`
				} `json:"user"`
			} `json:"presence"`
		} `json:"member"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Member.User.Username != "Alice" {
		t.Fatalf("expected username Alice, got %q", decoded.Member.User.Username)
	}
	if decoded.Member.Presence.Status != "online" {
		t.Fatalf("expected status online, got %q", decoded.Member.Presence.Status)
	}
	if decoded.Member.Presence.User.ID != "10" {
		t.Fatalf("expected presence user id \"10\", got %q", decoded.Member.Presence.User.ID)
	}
}

func TestListItemIsNil(t *testing.T) {
	if !(ListItem{}).IsNil() {
		t.Fatal("expected zero-value ListItem to be nil")
	}
	if GroupItem(OnlineGroup, 0).IsNil() {
		t.Fatal("expected a group item to not be nil")
	}
}
