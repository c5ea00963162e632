// Command lazyguildd is the thin bootstrap that wires the member list
// engine's collaborators together. It loads configuration, stands up the
// in-memory collaborators, connects the NATS-backed session registry, and
// serves /metrics plus a minimal /debug/lists/{channelID} endpoint that
// drives the dispatcher directly — it has no real gateway or client-facing
// RPC surface of its own.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lazyguild/lazyguild/collab"
	"github.com/lazyguild/lazyguild/config"
	"github.com/lazyguild/lazyguild/logging"
	"github.com/lazyguild/lazyguild/memberlist"
	"github.com/lazyguild/lazyguild/metrics"
	"github.com/lazyguild/lazyguild/natssession"
	"github.com/lazyguild/lazyguild/snowflake"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	cfg.LogFields(log)

	registry := prometheus.NewRegistry()
	rec := metrics.New(registry)

	storage := collab.NewMemStorage()
	presence := collab.NewMemPresence()
	perms := collab.DefaultPermissions{Storage: storage}

	sessions, err := natssession.Connect(natssession.Config{
		URL:             cfg.NatsURL,
		MaxReconnects:   cfg.NatsMaxReconnects,
		ReconnectWait:   cfg.NatsReconnectWait,
		ReconnectJitter: cfg.NatsReconnectJitter,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to nats")
	}
	defer sessions.Close()

	dispatcher := memberlist.NewDispatcher(memberlist.Config{
		Storage:    storage,
		Presence:   presence,
		Perms:      perms,
		Sessions:   sessions,
		Metrics:    rec,
		Log:        log,
		ShardCount: cfg.DispatcherShards,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/lists/", debugListHandler(dispatcher))

	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	_ = srv.Close()
}

// debugListHandler drives the dispatcher end-to-end for a single channel: it
// resolves (creating on demand) that channel's member list and runs a
// one-off shard query against it, the same path a real gateway front-end
// would take on a GUILD_MEMBER_LIST_UPDATE subscription. It exists so this
// bootstrap actually exercises the engine it wires up, not just constructs
// it; GET /debug/lists/{channelID}?start=0&end=99.
func debugListHandler(dispatcher *memberlist.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/debug/lists/")
		channelID, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid channel id", http.StatusBadRequest)
			return
		}

		start, end := 0, 99
		if s := r.URL.Query().Get("start"); s != "" {
			start, _ = strconv.Atoi(s)
		}
		if e := r.URL.Query().Get("end"); e != "" {
			end, _ = strconv.Atoi(e)
		}

		list, err := dispatcher.GetGML(r.Context(), snowflake.ChannelID(channelID))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		sessionID := "debug-" + idStr
		if err := list.ShardQuery(r.Context(), sessionID, [][2]int{{start, end}}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}
