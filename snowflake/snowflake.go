// Package snowflake defines the identifier types used across the member
// list engine. They are thin wrappers over uint64 so that guild, channel,
// user and role ids can't be mixed up at compile time, mirroring the
// distinct ID types disgord's object model uses for the same purpose.
package snowflake

import "strconv"

// Snowflake is a Discord-style 64-bit identifier.
type Snowflake uint64

// String renders the snowflake in the decimal form the wire protocol uses.
func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// IsValid reports whether the snowflake is non-zero.
func (s Snowflake) IsValid() bool {
	return s != 0
}

// GuildID identifies a guild.
type GuildID Snowflake

func (id GuildID) String() string  { return Snowflake(id).String() }
func (id GuildID) IsValid() bool   { return Snowflake(id).IsValid() }

// ChannelID identifies a channel.
type ChannelID Snowflake

func (id ChannelID) String() string { return Snowflake(id).String() }
func (id ChannelID) IsValid() bool  { return Snowflake(id).IsValid() }

// UserID identifies a member/user.
type UserID Snowflake

func (id UserID) String() string { return Snowflake(id).String() }
func (id UserID) IsValid() bool  { return Snowflake(id).IsValid() }

// RoleID identifies a role.
type RoleID Snowflake

func (id RoleID) String() string { return Snowflake(id).String() }
func (id RoleID) IsValid() bool  { return Snowflake(id).IsValid() }
