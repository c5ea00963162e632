package memberlist

import (
	"context"

	"github.com/lazyguild/lazyguild/wire"
)

// dispatch wraps a batch of ops into the GUILD_MEMBER_LIST_UPDATE envelope
// and delivers it to one session via the injected SessionRegistry. A
// delivery failure (or absent session) is logged, never returned, so no
// per-session error reaches the handler. Handlers return only an error;
// they do not report which sessions were dispatched to.
func (l *MemberList) dispatch(ctx context.Context, sessionID string, ops []wire.Operation) {
	if len(ops) == 0 {
		return
	}

	update := wire.Update{
		ID:      l.listID(),
		GuildID: l.GuildID.String(),
		Groups:  l.nonEmptyGroupHeaders(),
		Ops:     ops,
	}

	delivered, err := l.sessions.Dispatch(ctx, sessionID, wire.EventMemberListUpdate, update)
	if err != nil {
		l.log.Warn().Err(err).Str("session_id", sessionID).Msg("dispatch failed")
		return
	}
	if !delivered {
		l.log.Debug().Str("session_id", sessionID).Msg("dispatch skipped: session absent")
		return
	}

	if l.metrics != nil {
		for _, op := range ops {
			l.metrics.OpsEmitted.WithLabelValues(string(op.Kind)).Inc()
		}
	}
}

// dispatchMany delivers the same op batch to every session in sessionIDs.
func (l *MemberList) dispatchMany(ctx context.Context, sessionIDs []string, ops []wire.Operation) {
	for _, id := range sessionIDs {
		l.dispatch(ctx, id, ops)
	}
}
