package memberlist

import (
	"context"

	"github.com/lazyguild/lazyguild/permissions"
	"github.com/lazyguild/lazyguild/snowflake"
	"github.com/lazyguild/lazyguild/wire"
)

// ShardQuery redirects to the guild's "everyone" list when this channel
// grants @everyone read_messages, without initializing this list; otherwise
// it ensures the list is initialized, records the requested ranges against
// sessionID, and delivers one SYNC op per accepted range in a single
// envelope.
func (l *MemberList) ShardQuery(ctx context.Context, sessionID string, ranges [][2]int) error {
	if redirect, ok, err := l.everyoneRedirect(ctx); err != nil {
		return err
	} else if ok {
		return redirect.ShardQuery(ctx, sessionID, ranges)
	}

	if err := l.ensureInit(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	items := l.items()

	var ops []wire.Operation
	for _, r := range ranges {
		start, end := r[0], r[1]
		if end < start {
			continue // invalid range: silently dropped
		}

		if l.subs[sessionID] == nil {
			l.subs[sessionID] = map[rangeKey]struct{}{}
		}
		l.subs[sessionID][rangeKey{start, end}] = struct{}{}

		ops = append(ops, wire.Sync(start, end, sliceItems(items, start, end)))
	}

	l.dispatch(ctx, sessionID, ops)
	return nil
}

// sliceItems clamps [start,end] (inclusive, start possibly negative) to the
// bounds of items and returns the covered slice.
func sliceItems(items []wire.ListItem, start, end int) []wire.ListItem {
	if start < 0 {
		start = 0
	}
	if end >= len(items) {
		end = len(items) - 1
	}
	if end < start || start >= len(items) {
		return []wire.ListItem{}
	}
	return items[start : end+1]
}

// everyoneRedirect: a non-"everyone" list delegates entirely to the
// guild's everyone list when @everyone already has read_messages on this
// channel, since every member visible here is also visible on the everyone
// list.
func (l *MemberList) everyoneRedirect(ctx context.Context) (*MemberList, bool, error) {
	if snowflake.ChannelID(l.GuildID) == l.ChannelID {
		return nil, false, nil // already the everyone list
	}

	everyonePerms, err := l.perms.RolePermissions(ctx, l.GuildID, snowflake.RoleID(l.GuildID), l.ChannelID)
	if err != nil {
		return nil, false, err
	}
	if !everyonePerms.Has(permissions.ReadMessages) {
		return nil, false, nil
	}

	everyone, err := l.dispatcher.GetGML(ctx, snowflake.ChannelID(l.GuildID))
	if err != nil {
		return nil, false, err
	}
	return everyone, true, nil
}

// Unsub drops sessionID's subscription; if it was the last subscriber,
// clear the list's contents. The MemberList value itself remains resident
// for future subscribers.
func (l *MemberList) Unsub(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.subs, sessionID)

	if len(l.subs) == 0 {
		l.initMu.Lock()
		if l.initialized && l.metrics != nil {
			l.metrics.ActiveLists.Dec()
		}
		l.clear()
		l.initMu.Unlock()
	}
}

// getSubs returns the ids of every session whose range set covers item
// index i.
func (l *MemberList) getSubs(i int) []string {
	var out []string
	for sessionID, ranges := range l.subs {
		for r := range ranges {
			if i >= r[0] && i <= r[1] {
				out = append(out, sessionID)
				break
			}
		}
	}
	return out
}

// rangeCovering returns the (unique, first-found) range in sessionID's
// subscription set that brackets item index i.
func (l *MemberList) rangeCovering(sessionID string, i int) (rangeKey, bool) {
	for r := range l.subs[sessionID] {
		if i >= r[0] && i <= r[1] {
			return r, true
		}
	}
	return rangeKey{}, false
}
