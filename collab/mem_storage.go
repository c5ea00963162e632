package collab

import (
	"context"
	"sync"

	"github.com/lazyguild/lazyguild/snowflake"
)

// MemStorage is an in-memory Storage reference implementation, one
// read-write mutex guarding per-guild member/role/overwrite maps. Persistent
// storage is out of scope for this engine — production callers inject their
// own Storage over a real database; tests and cmd/lazyguildd use this one.
type MemStorage struct {
	mu sync.RWMutex

	members    map[snowflake.GuildID]map[snowflake.UserID]Member
	roles      map[snowflake.GuildID][]RoleData
	overwrites map[snowflake.ChannelID][]Overwrite
	channelOf  map[snowflake.ChannelID]snowflake.GuildID
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		members:    map[snowflake.GuildID]map[snowflake.UserID]Member{},
		roles:      map[snowflake.GuildID][]RoleData{},
		overwrites: map[snowflake.ChannelID][]Overwrite{},
		channelOf:  map[snowflake.ChannelID]snowflake.GuildID{},
	}
}

var _ Storage = (*MemStorage)(nil)

// SetGuildChannel records that channel belongs to guild, so
// GuildFromChannel can resolve it later.
func (s *MemStorage) SetGuildChannel(channel snowflake.ChannelID, guild snowflake.GuildID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelOf[channel] = guild
}

// SetMember upserts a member snapshot for a guild.
func (s *MemStorage) SetMember(guild snowflake.GuildID, member Member) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gm, ok := s.members[guild]
	if !ok {
		gm = map[snowflake.UserID]Member{}
		s.members[guild] = gm
	}
	gm[member.User.ID] = member
}

// RemoveMember drops a member from a guild's roster.
func (s *MemStorage) RemoveMember(guild snowflake.GuildID, member snowflake.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gm, ok := s.members[guild]; ok {
		delete(gm, member)
	}
}

// SetRoles replaces the full role list for a guild.
func (s *MemStorage) SetRoles(guild snowflake.GuildID, roles []RoleData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[guild] = roles
}

// SetChannelOverwrites replaces the overwrite list for a channel.
func (s *MemStorage) SetChannelOverwrites(channel snowflake.ChannelID, ows []Overwrite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overwrites[channel] = ows
}

func (s *MemStorage) GetMemberIDs(_ context.Context, guild snowflake.GuildID) ([]snowflake.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gm := s.members[guild]
	ids := make([]snowflake.UserID, 0, len(gm))
	for id := range gm {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemStorage) GetMemberData(_ context.Context, guild snowflake.GuildID) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gm := s.members[guild]
	out := make([]Member, 0, len(gm))
	for _, m := range gm {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemStorage) GetMemberDataOne(_ context.Context, guild snowflake.GuildID, member snowflake.UserID) (Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[guild][member]
	if !ok {
		return Member{}, ErrNotFound
	}
	return m, nil
}

func (s *MemStorage) ChanOverwrites(_ context.Context, channel snowflake.ChannelID) ([]Overwrite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Overwrite{}, s.overwrites[channel]...), nil
}

func (s *MemStorage) GuildFromChannel(_ context.Context, channel snowflake.ChannelID) (snowflake.GuildID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	guild, ok := s.channelOf[channel]
	return guild, ok, nil
}

func (s *MemStorage) FetchRoles(_ context.Context, guild snowflake.GuildID) ([]RoleData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RoleData{}, s.roles[guild]...), nil
}
