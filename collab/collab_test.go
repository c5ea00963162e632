package collab

import (
	"context"
	"testing"

	"github.com/lazyguild/lazyguild/permissions"
	"github.com/lazyguild/lazyguild/snowflake"
)

func TestMemStorageRoundTrip(t *testing.T) {
	s := NewMemStorage()
	s.SetGuildChannel(100, 1)
	s.SetMember(1, Member{User: User{ID: 10, Username: "Alice"}})
	s.SetRoles(1, []RoleData{{ID: 1, Permissions: permissions.ReadMessages}})
	s.SetChannelOverwrites(100, []Overwrite{{ID: 1, Deny: permissions.SendMessages}})

	ctx := context.Background()

	guild, ok, err := s.GuildFromChannel(ctx, 100)
	if err != nil || !ok || guild != 1 {
		t.Fatalf("GuildFromChannel: guild=%v ok=%v err=%v", guild, ok, err)
	}

	member, err := s.GetMemberDataOne(ctx, 1, 10)
	if err != nil || member.User.Username != "Alice" {
		t.Fatalf("GetMemberDataOne: member=%+v err=%v", member, err)
	}

	if _, err := s.GetMemberDataOne(ctx, 1, 999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown member, got %v", err)
	}

	s.RemoveMember(1, 10)
	if _, err := s.GetMemberDataOne(ctx, 1, 10); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after RemoveMember, got %v", err)
	}
}

func TestDefaultPermissionsMemberPermissions(t *testing.T) {
	s := NewMemStorage()
	s.SetGuildChannel(100, 1)
	s.SetRoles(1, []RoleData{
		{ID: 1, Permissions: permissions.ReadMessages}, // @everyone
		{ID: 2, Permissions: permissions.SendMessages},
	})
	s.SetMember(1, Member{User: User{ID: 10}, Roles: []snowflake.RoleID{2}})
	s.SetChannelOverwrites(100, nil)

	perms := DefaultPermissions{Storage: s}
	got, err := perms.MemberPermissions(context.Background(), 10, 100)
	if err != nil {
		t.Fatalf("MemberPermissions: %v", err)
	}
	if !got.Has(permissions.ReadMessages) || !got.Has(permissions.SendMessages) {
		t.Fatalf("expected union of @everyone and role perms, got %v", got)
	}
}

func TestMemPresenceDefaultsUnseenToOffline(t *testing.T) {
	p := NewMemPresence()
	p.Set(Presence{User: User{ID: 10}, Status: "online"})

	out, err := p.GuildPresences(context.Background(), []snowflake.UserID{10, 20}, 1)
	if err != nil {
		t.Fatalf("GuildPresences: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 presences, got %d", len(out))
	}

	byID := map[uint64]Presence{}
	for _, pres := range out {
		byID[uint64(pres.User.ID)] = pres
	}
	if byID[10].Status != "online" {
		t.Fatalf("expected member 10 to keep its set status, got %q", byID[10].Status)
	}
	if byID[20].Status != "offline" {
		t.Fatalf("expected unseen member 20 to default to offline, got %q", byID[20].Status)
	}
}

func TestMemSessionRegistryDispatchToAbsentSession(t *testing.T) {
	r := NewMemSessionRegistry()
	delivered, err := r.Dispatch(context.Background(), "nobody", "EVENT", nil)
	if err != nil || delivered {
		t.Fatalf("expected delivered=false, nil error for absent session; got %v %v", delivered, err)
	}

	var received string
	cancel := r.Connect("s1", func(event string, payload any) { received = event })
	delivered, err = r.Dispatch(context.Background(), "s1", "EVENT", nil)
	if err != nil || !delivered {
		t.Fatalf("expected delivered=true for connected session; got %v %v", delivered, err)
	}
	if received != "EVENT" {
		t.Fatalf("expected handler to observe EVENT, got %q", received)
	}

	cancel()
	delivered, _ = r.Dispatch(context.Background(), "s1", "EVENT", nil)
	if delivered {
		t.Fatal("expected delivered=false after cancel")
	}
}
