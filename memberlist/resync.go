package memberlist

import "context"

// resync finds, for each session, the range in its subscription set that
// brackets itemIndex and re-runs ShardQuery over just that range; a session
// with no covering range is skipped. Each resync is scheduled as its own
// goroutine, allowed to run concurrently with subsequent handlers as long
// as it re-acquires the initialization lock before touching list state,
// which ShardQuery already does. Every scheduled resync increments the
// resyncs-scheduled counter.
func (l *MemberList) resync(sessionIDs []string, itemIndex int) {
	for _, sessionID := range sessionIDs {
		r, ok := l.rangeCovering(sessionID, itemIndex)
		if !ok {
			continue
		}

		sessionID, r := sessionID, r
		go func() {
			if err := l.ShardQuery(context.Background(), sessionID, [][2]int{{r[0], r[1]}}); err != nil {
				l.log.Warn().Err(err).Str("session_id", sessionID).Msg("resync failed")
			}
		}()
		if l.metrics != nil {
			l.metrics.ResyncsScheduled.Inc()
		}
	}
}

// resyncByItem resyncs every session whose current subscription covers
// item index i.
func (l *MemberList) resyncByItem(i int) {
	l.resync(l.getSubs(i), i)
}
