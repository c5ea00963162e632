// Package natssession implements collab.SessionRegistry over NATS: each
// session is a subscriber on its own subject, and Dispatch publishes the
// GUILD_MEMBER_LIST_UPDATE envelope as JSON to that subject. Grounded on
// adred-codev-ws_poc's go-server/pkg/nats client (connect options, subject
// builder, PublishJSON), adapted from a direct-subscriber client into the
// session-registry shape this engine's collaborator interface needs.
package natssession

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/lazyguild/lazyguild/collab"
)

// Config mirrors the connection knobs ws_poc's nats.Config exposes.
type Config struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectJitter time.Duration
}

// Registry is a NATS-backed collab.SessionRegistry: Dispatch publishes to
// "sessions.<session_id>" rather than delivering in-process.
type Registry struct {
	conn *nats.Conn
	log  zerolog.Logger

	mu   sync.RWMutex
	live map[string]struct{}
}

var _ collab.SessionRegistry = (*Registry)(nil)

// Connect opens the NATS connection the Registry publishes through.
func Connect(cfg Config, log zerolog.Logger) (*Registry, error) {
	r := &Registry{log: log, live: map[string]struct{}{}}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(cfg.ReconnectJitter, cfg.ReconnectJitter),
		nats.ConnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("connected to nats")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("disconnected from nats")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("reconnected to nats")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Warn().Err(err).Msg("nats error")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "connect to nats")
	}
	r.conn = conn
	return r, nil
}

// subject is the per-session publish target.
func subject(sessionID string) string {
	return fmt.Sprintf("sessions.%s", sessionID)
}

// MarkConnected records that sessionID has an active subscriber, so
// Dispatch can report delivered=false (skip and log, never an error) for
// sessions nothing ever announced — this registry can't directly observe
// whether a remote subscriber is listening.
func (r *Registry) MarkConnected(sessionID string) {
	r.mu.Lock()
	r.live[sessionID] = struct{}{}
	r.mu.Unlock()
}

// MarkDisconnected is called on session teardown.
func (r *Registry) MarkDisconnected(sessionID string) {
	r.mu.Lock()
	delete(r.live, sessionID)
	r.mu.Unlock()
}

func (r *Registry) Dispatch(_ context.Context, sessionID string, event string, payload any) (bool, error) {
	r.mu.RLock()
	_, ok := r.live[sessionID]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}

	data, err := json.Marshal(struct {
		Event   string `json:"event"`
		Payload any    `json:"payload"`
	}{event, payload})
	if err != nil {
		return false, errors.Wrap(err, "marshal envelope")
	}

	if err := r.conn.Publish(subject(sessionID), data); err != nil {
		return false, errors.Wrap(err, "publish")
	}
	return true, nil
}

// Close closes the underlying NATS connection.
func (r *Registry) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}
