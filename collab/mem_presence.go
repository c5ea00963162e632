package collab

import (
	"context"
	"errors"
	"sync"

	"github.com/lazyguild/lazyguild/snowflake"
)

// ErrNotFound is returned by the in-memory collaborators when an entity is
// absent.
var ErrNotFound = errors.New("collab: not found")

// MemPresence is an in-memory PresenceManager reference implementation: a
// single guild-agnostic map, since this engine only ever asks for
// presences scoped to one guild at a time.
type MemPresence struct {
	mu        sync.RWMutex
	presences map[snowflake.UserID]Presence
}

func NewMemPresence() *MemPresence {
	return &MemPresence{presences: map[snowflake.UserID]Presence{}}
}

var _ PresenceManager = (*MemPresence)(nil)

func (p *MemPresence) Set(presence Presence) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presences[presence.User.ID] = presence
}

func (p *MemPresence) GuildPresences(_ context.Context, members []snowflake.UserID, _ snowflake.GuildID) ([]Presence, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Presence, 0, len(members))
	for _, id := range members {
		if pres, ok := p.presences[id]; ok {
			out = append(out, pres)
			continue
		}
		// An unseen member defaults to offline rather than being dropped —
		// the engine still needs a presence record to build a group for it.
		out = append(out, Presence{User: User{ID: id}, Status: "offline"})
	}
	return out, nil
}
