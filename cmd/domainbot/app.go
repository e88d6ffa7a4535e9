package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"domainbot/internal/capability"
	"domainbot/internal/config"
	"domainbot/internal/dispatch"
	"domainbot/internal/metrics"
	"domainbot/internal/model"
	"domainbot/internal/policy"
	"domainbot/internal/router"
)

// app holds the wired components for one CLI invocation.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	policies   *policy.Registry
	providers  *capability.Registry
	router     *router.Router
	metrics    *metrics.Collector
	dispatcher *dispatch.Dispatcher
}

// newApp builds policies, rule overrides, fixture providers, router and
// dispatcher from cfg.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	policies := policy.NewRegistry(logger)
	policies.RegisterBuiltins()

	if dir := config.ExpandPath(cfg.Policies.RulesDir); dir != "" {
		files, err := policy.LoadRulesFromDirectory(dir, logger)
		if err != nil {
			return nil, fmt.Errorf("load rule overrides: %w", err)
		}
		policies.ApplyRules(files)
	}

	providers := capability.NewRegistry(logger)
	fixtures, err := capability.LoadFixtures(config.ExpandPath(cfg.Fixtures.Dir), logger)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	for _, p := range fixtures {
		providers.Register(p)
	}
	// Inline fixtures are registered last so they replace file fixtures.
	for _, p := range capability.FromInline(cfg.Fixtures.Inline) {
		providers.Register(p)
	}

	if policies.Get(cfg.Router.DefaultDomain) == nil {
		return nil, fmt.Errorf("%w: default domain %q", dispatch.ErrUnknownDomain, cfg.Router.DefaultDomain)
	}

	lm, err := model.FromConfig(cfg.Model, logger)
	if err != nil {
		return nil, fmt.Errorf("language model: %w", err)
	}

	rt := router.New(registeredRoutes(cfg.Router, policies, logger), logger)
	collector := metrics.NewCollector()

	dcfg := dispatch.Config{
		Policies:        policies,
		Router:          rt,
		Providers:       providers,
		Metrics:         collector,
		Logger:          logger,
		ProviderTimeout: time.Duration(cfg.Dispatch.ProviderTimeoutMs) * time.Millisecond,
		MaxConcurrent:   cfg.Dispatch.MaxConcurrentProviders,
	}
	// A nil Model must stay a nil interface so the dispatcher skips completion.
	if lm != nil {
		dcfg.Model = lm
		logger.Debug("language model configured", "model", lm.Name())
	}
	d := dispatch.New(dcfg)

	return &app{
		cfg:        cfg,
		logger:     logger,
		policies:   policies,
		providers:  providers,
		router:     rt,
		metrics:    collector,
		dispatcher: d,
	}, nil
}

// registeredRoutes drops routes naming a domain with no registered policy,
// so the router never picks a domain the dispatcher cannot handle.
func registeredRoutes(rc config.RouterConfig, policies *policy.Registry, logger *slog.Logger) config.RouterConfig {
	out := config.RouterConfig{
		DefaultDomain: rc.DefaultDomain,
		Domains:       make(map[string]config.DomainRoute, len(rc.Domains)),
	}
	for name, route := range rc.Domains {
		if policies.Get(name) == nil {
			logger.Warn("route names an unregistered domain, dropping", "domain", name)
			continue
		}
		out.Domains[name] = route
	}
	return out
}

// newLogger builds the text logger described by the general config section.
// The returned closer releases the log file, if one was opened.
func newLogger(general config.GeneralConfig) (*slog.Logger, func(), error) {
	level, err := config.ParseLogLevel(general.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closer := func() {}
	if general.LogFile != "" {
		f, err := os.OpenFile(config.ExpandPath(general.LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closer = func() { f.Close() }
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}

// printMetrics writes the collector in text format when enabled by config or flag.
func (a *app) printMetrics(w io.Writer, force bool) error {
	if !force && !a.cfg.Metrics.Enabled {
		return nil
	}
	return a.metrics.WriteText(w)
}
