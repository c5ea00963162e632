// Package memberlist implements the per-channel lazy member list engine:
// the ordered, grouped view of a guild's members and the stream of
// SYNC/INSERT/UPDATE/DELETE/INVALIDATE ops that keeps subscribed sessions in
// sync with it.
package memberlist

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/lazyguild/lazyguild/collab"
	"github.com/lazyguild/lazyguild/metrics"
	"github.com/lazyguild/lazyguild/snowflake"
)

// defaultShardCount is used when Config.ShardCount is left at zero.
const defaultShardCount = 16

// dispatcherShard is one lock-partition bucket: its own mutex guarding a
// slice of the overall lists map, so a query against one guild's lists
// never blocks on another guild's insert happening to land in a different
// bucket.
type dispatcherShard struct {
	mu    sync.Mutex
	lists map[snowflake.ChannelID]*MemberList
}

// Dispatcher owns every per-channel MemberList, lazily creates them on
// first access, and routes guild-scoped events to every list belonging to
// that guild. Lists are partitioned across a fixed number of shards keyed
// by ShardFor(guild), so concurrent lookups for different guilds don't
// serialize behind one global mutex.
type Dispatcher struct {
	storage  collab.Storage
	presence collab.PresenceManager
	perms    collab.PermissionsEvaluator
	sessions collab.SessionRegistry

	metrics *metrics.Recorder
	log     zerolog.Logger

	shardCount uint32
	shards     []*dispatcherShard

	indexMu      sync.Mutex
	channels     map[snowflake.GuildID][]snowflake.ChannelID
	channelGuild map[snowflake.ChannelID]snowflake.GuildID
}

// Config bundles the collaborators a Dispatcher is built from: these are
// injected at construction, never process-wide singletons.
type Config struct {
	Storage  collab.Storage
	Presence collab.PresenceManager
	Perms    collab.PermissionsEvaluator
	Sessions collab.SessionRegistry
	Metrics  *metrics.Recorder
	Log      zerolog.Logger

	// ShardCount is the number of internal lock-partition buckets the
	// dispatcher's lists are spread across. Zero selects defaultShardCount.
	ShardCount uint32
}

func NewDispatcher(cfg Config) *Dispatcher {
	shardCount := cfg.ShardCount
	if shardCount == 0 {
		shardCount = defaultShardCount
	}

	shards := make([]*dispatcherShard, shardCount)
	for i := range shards {
		shards[i] = &dispatcherShard{lists: map[snowflake.ChannelID]*MemberList{}}
	}

	return &Dispatcher{
		storage:      cfg.Storage,
		presence:     cfg.Presence,
		perms:        cfg.Perms,
		sessions:     cfg.Sessions,
		metrics:      cfg.Metrics,
		log:          cfg.Log,
		shardCount:   shardCount,
		shards:       shards,
		channels:     map[snowflake.GuildID][]snowflake.ChannelID{},
		channelGuild: map[snowflake.ChannelID]snowflake.GuildID{},
	}
}

// shardFor resolves the lock-partition bucket a guild's lists live in.
// ShardFor is keyed on the guild id (cast to a ChannelID, since both are
// plain uint64 snowflakes) so that every channel belonging to the same
// guild lands in the same bucket, letting Dispatch fan out under a single
// shard lock.
func (d *Dispatcher) shardFor(guild snowflake.GuildID) *dispatcherShard {
	return d.shards[ShardFor(snowflake.ChannelID(guild), d.shardCount)]
}

// GetGML resolves (creating on demand) the MemberList for a channel. The
// owning guild is resolved from storage; an unknown channel defaults its
// guild id to its own channel id. The guild resolution is cached after the
// first lookup so a repeat GetGML for an already-created list only takes
// its shard's lock, never storage.
func (d *Dispatcher) GetGML(ctx context.Context, channel snowflake.ChannelID) (*MemberList, error) {
	d.indexMu.Lock()
	guild, cached := d.channelGuild[channel]
	d.indexMu.Unlock()

	if !cached {
		resolved, ok, err := d.storage.GuildFromChannel(ctx, channel)
		if err != nil {
			return nil, errors.Wrap(err, "resolve guild from channel")
		}
		guild = resolved
		if !ok {
			guild = snowflake.GuildID(channel)
		}
	}

	shard := d.shardFor(guild)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if l, ok := shard.lists[channel]; ok {
		return l, nil
	}

	l := newMemberList(d, guild, channel)
	shard.lists[channel] = l

	d.indexMu.Lock()
	d.channels[guild] = append(d.channels[guild], channel)
	d.channelGuild[channel] = guild
	d.indexMu.Unlock()

	return l, nil
}

// Dispatch routes a guild-scoped event to every member list currently
// resident for that guild. Lists that were never subscribed to don't exist
// yet and so see nothing, which is correct: there is nothing for them to
// update.
func (d *Dispatcher) Dispatch(ctx context.Context, guild snowflake.GuildID, event string, payload any) error {
	d.indexMu.Lock()
	channels := append([]snowflake.ChannelID{}, d.channels[guild]...)
	d.indexMu.Unlock()

	shard := d.shardFor(guild)

	shard.mu.Lock()
	lists := make([]*MemberList, 0, len(channels))
	for _, c := range channels {
		if l, ok := shard.lists[c]; ok {
			lists = append(lists, l)
		}
	}
	shard.mu.Unlock()

	for _, l := range lists {
		if err := d.dispatchOne(ctx, l, event, payload); err != nil {
			d.log.Warn().Err(err).Str("event", event).Uint64("channel_id", uint64(l.ChannelID)).Msg("event handler failed")
		}
	}
	return nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, l *MemberList, event string, payload any) error {
	switch event {
	case "new_role":
		return l.NewRole(ctx, payload.(collab.RoleData))
	case "role_update":
		return l.RoleUpdate(ctx, payload.(collab.RoleData))
	case "role_pos_update":
		return l.RolePosUpdate(ctx, payload.(collab.RoleData))
	case "role_delete":
		return l.RoleDelete(ctx, payload.(snowflake.RoleID))
	case "pres_update":
		pu := payload.(presenceUpdatePayload)
		return l.PresUpdate(ctx, pu.Member, pu.Partial)
	default:
		d.log.Warn().Str("event", event).Msg("unknown dispatch event")
		return ErrUnknownEvent
	}
}

// presenceUpdatePayload bundles a pres_update event's target member with its
// partial presence delta, since Dispatch's payload is a single opaque value.
type presenceUpdatePayload struct {
	Member  snowflake.UserID
	Partial collab.PartialPresence
}

// PresUpdateEvent builds the payload Dispatch expects for a "pres_update"
// event.
func PresUpdateEvent(member snowflake.UserID, partial collab.PartialPresence) (string, any) {
	return "pres_update", presenceUpdatePayload{Member: member, Partial: partial}
}
