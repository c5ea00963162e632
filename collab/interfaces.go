package collab

import (
	"context"

	"github.com/lazyguild/lazyguild/permissions"
	"github.com/lazyguild/lazyguild/snowflake"
)

// Storage is the opaque query interface over persistent guild data. The
// engine never mutates storage and never caches beyond a single
// MemberList's lifetime.
type Storage interface {
	GetMemberIDs(ctx context.Context, guild snowflake.GuildID) ([]snowflake.UserID, error)
	GetMemberData(ctx context.Context, guild snowflake.GuildID) ([]Member, error)
	GetMemberDataOne(ctx context.Context, guild snowflake.GuildID, member snowflake.UserID) (Member, error)
	ChanOverwrites(ctx context.Context, channel snowflake.ChannelID) ([]Overwrite, error)
	// GuildFromChannel resolves the guild owning a channel. ok is false when
	// the channel is unknown, in which case callers fall back to treating
	// the channel id as the guild id.
	GuildFromChannel(ctx context.Context, channel snowflake.ChannelID) (guild snowflake.GuildID, ok bool, err error)
	FetchRoles(ctx context.Context, guild snowflake.GuildID) ([]RoleData, error)
}

// PresenceManager is the opaque presence collaborator.
type PresenceManager interface {
	GuildPresences(ctx context.Context, members []snowflake.UserID, guild snowflake.GuildID) ([]Presence, error)
}

// PermissionsEvaluator is the permissions helper's collaborator-facing
// contract. DefaultPermissions in this package is the in-scope implementation the
// engine builds on role data and channel overwrites pulled from Storage; it
// is injected rather than hardwired so a real deployment's own evaluator
// can be substituted without touching the engine.
type PermissionsEvaluator interface {
	RolePermissions(ctx context.Context, guild snowflake.GuildID, role snowflake.RoleID, channel snowflake.ChannelID) (permissions.Permissions, error)
	MemberPermissions(ctx context.Context, member snowflake.UserID, channel snowflake.ChannelID) (permissions.Permissions, error)
}

// SessionRegistry is the opaque session/connection registry collaborator:
// fetch_raw + state.dispatch collapsed into one call. Dispatch returns
// delivered=false, err=nil for an absent session — a "skip and log" rule
// that is never surfaced as an error the caller must handle.
type SessionRegistry interface {
	Dispatch(ctx context.Context, sessionID string, event string, payload any) (delivered bool, err error)
}
