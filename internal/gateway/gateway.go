// Package gateway serves the chat and analyze endpoints.
//
// DESIGN: The Gateway owns the HTTP server and wires collaborators:
//   - auth.Verifier:       Authorization header -> user
//   - quota.Checker:       user -> tier, limit, remaining
//   - routing.Selector:    (task, tier) -> backend
//   - adapters.Registry:   provider -> adapter + transcoder
//   - quota.Recorder:      detached usage logging
//
// Routes:
//
//	POST /v1/chat     (alias /functions/v1/ai-chat)
//	POST /v1/analyze  (alias /functions/v1/ai-analyze)
//	GET  /health
//	GET  /stats       (loopback only)
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/starnote/ai-gateway/internal/adapters"
	"github.com/starnote/ai-gateway/internal/auth"
	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/monitoring"
	"github.com/starnote/ai-gateway/internal/quota"
	"github.com/starnote/ai-gateway/internal/routing"
	"github.com/starnote/ai-gateway/internal/supabase"
	"github.com/starnote/ai-gateway/internal/tokens"
)

// Route paths.
const (
	PathChat         = "/v1/chat"
	PathChatAlias    = "/functions/v1/ai-chat"
	PathAnalyze      = "/v1/analyze"
	PathAnalyzeAlias = "/functions/v1/ai-analyze"
	PathHealth       = "/health"
	PathStats        = "/stats"
)

// Deps are the collaborators a Gateway is built from. Nil fields are filled
// from config by New.
type Deps struct {
	Verifier auth.Verifier
	Store    quota.Store
	Tiers    quota.TierResolver
	Registry *adapters.Registry
	Counter  tokens.Counter
	Tracker  *monitoring.Tracker
	Metrics  *monitoring.MetricsCollector

	// AnalyzeClient forwards analyze requests. Defaults to a streaming client.
	AnalyzeClient *http.Client
}

// Gateway is the HTTP front of the LLM gateway.
type Gateway struct {
	config   *config.Config
	verifier auth.Verifier
	store    quota.Store
	quota    *quota.Checker
	selector routing.Selector
	registry *adapters.Registry
	counter  tokens.Counter
	usage    *quota.Recorder
	tracker  *monitoring.Tracker
	metrics  *monitoring.MetricsCollector
	limiter  *ipRateLimiter

	analyzeClient *http.Client
	server        *http.Server
	handler       http.Handler
}

// New creates a gateway. cfg must already be validated.
func New(cfg *config.Config, deps Deps) (*Gateway, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if deps.Verifier == nil {
		if deps.Verifier, err = auth.New(cfg.Auth); err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	if deps.Store == nil {
		if deps.Store, err = NewStore(cfg); err != nil {
			return nil, fmt.Errorf("quota store: %w", err)
		}
	}
	if deps.Tiers == nil {
		deps.Tiers = quota.NewTierResolver(cfg.Quota.DefaultTier, cfg.Quota.TierOverrides)
	}
	if deps.Registry == nil {
		deps.Registry = adapters.NewDefaultRegistry(cfg.Providers, adapters.NewStreamingClient())
	}
	if deps.Counter == nil {
		if deps.Counter, err = tokens.NewCounter(cfg.Usage.TokenCounter); err != nil {
			log.Warn().Err(err).Msg("token counter unavailable, using character estimate")
			deps.Counter = tokens.CharCounter{}
		}
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetricsCollector()
	}
	if deps.AnalyzeClient == nil {
		deps.AnalyzeClient = adapters.NewStreamingClient()
	}

	g := &Gateway{
		config:        cfg,
		verifier:      deps.Verifier,
		store:         deps.Store,
		quota:         quota.NewChecker(deps.Store, deps.Tiers, loc, quota.WithLookupTimeout(cfg.Quota.LookupTimeout)),
		selector:      routing.NewSelector(cfg.Routing),
		registry:      deps.Registry,
		counter:       deps.Counter,
		tracker:       deps.Tracker,
		metrics:       deps.Metrics,
		limiter:       newIPRateLimiter(cfg.Server.RateLimit),
		analyzeClient: deps.AnalyzeClient,
	}
	g.usage = quota.NewRecorder(deps.Store, cfg.Usage.LogTimeout, g.metrics.RecordUsageLog)
	g.handler = g.routes()

	g.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           g.handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return g, nil
}

// NewStore opens the quota store selected by cfg.Quota.Store.
func NewStore(cfg *config.Config) (quota.Store, error) {
	switch cfg.Quota.Store {
	case config.QuotaStoreRPC:
		return quota.NewRPCStore(supabase.NewClient(cfg.Quota.RPCURL, cfg.Quota.ServiceKey)), nil
	case config.QuotaStoreSQLite, "":
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}
		return quota.OpenSQLite(cfg.Quota.SQLitePath, loc)
	default:
		return nil, fmt.Errorf("unknown quota store %q", cfg.Quota.Store)
	}
}

func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	for _, p := range []string{PathChat, PathChatAlias} {
		mux.HandleFunc("POST "+p, g.handleChat)
		mux.HandleFunc("OPTIONS "+p, handlePreflight)
	}
	for _, p := range []string{PathAnalyze, PathAnalyzeAlias} {
		mux.HandleFunc("POST "+p, g.handleAnalyze)
		mux.HandleFunc("OPTIONS "+p, handlePreflight)
	}
	mux.HandleFunc("GET "+PathHealth, g.handleHealth)
	mux.HandleFunc("GET "+PathStats, g.handleStats)

	return g.withRecovery(withRequestID(g.withCORS(g.withThrottle(mux))))
}

// Handler returns the gateway's root handler.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (g *Gateway) Start() error {
	ln, err := net.Listen("tcp", g.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", g.server.Addr, err)
	}
	return g.Serve(ln)
}

// Serve accepts connections on ln.
func (g *Gateway) Serve(ln net.Listener) error {
	logInit(g.config, ln.Addr().String())
	log.Debug().Strs("registered", providerNames(g.registry)).Msg("adapters registered")

	if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight requests and
// pending usage writes, then closes the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	err := g.server.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		g.usage.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("shutdown: pending usage writes abandoned")
	}

	g.limiter.Stop()
	if cerr := g.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := g.tracker.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// WaitUsage blocks until pending usage writes finish.
func (g *Gateway) WaitUsage() {
	g.usage.Wait()
}

// Metrics returns the gateway's metrics collector.
func (g *Gateway) Metrics() *monitoring.MetricsCollector {
	return g.metrics
}

func providerNames(r *adapters.Registry) []string {
	providers := r.Providers()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.String()
	}
	return names
}
