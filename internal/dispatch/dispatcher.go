// Package dispatch runs one request through its domain policy: capability
// selection, concurrent gathering, validation, then either a UI directive
// or a follow-up question.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"domainbot/internal/domain"
	"domainbot/internal/metrics"
)

// ErrUnknownDomain is returned when no policy is registered for the chosen domain.
var ErrUnknownDomain = errors.New("unknown domain")

const (
	defaultProviderTimeout = 5 * time.Second
	defaultMaxConcurrent   = 4
)

// PolicySource looks up domain policies by name.
type PolicySource interface {
	Get(name string) domain.Policy
}

// ProviderSource looks up the provider for a capability.
type ProviderSource interface {
	Get(c domain.Capability) domain.CapabilityProvider
}

// DomainRouter picks a domain for a prompt.
type DomainRouter interface {
	Route(prompt string) string
}

// Config wires a Dispatcher. Model, Metrics, Now and the limits are optional.
type Config struct {
	Policies        PolicySource
	Router          DomainRouter
	Providers       ProviderSource
	Model           domain.LanguageModel
	Metrics         *metrics.Collector
	Logger          *slog.Logger
	ProviderTimeout time.Duration
	MaxConcurrent   int
	Now             func() time.Time
}

// Input is one user request.
type Input struct {
	Prompt string
	// Domain skips routing when set.
	Domain string
	// ModelText is used as the model response when set; otherwise Model is called.
	ModelText string
}

// Outcome is the result of one dispatch.
type Outcome struct {
	RequestID    string              `json:"requestId"`
	Domain       string              `json:"domain"`
	Capabilities []string            `json:"capabilities"`
	Gathered     []string            `json:"gathered"`
	Stage        Stage               `json:"stage"`
	Stages       []Stage             `json:"stages"`
	Valid        bool                `json:"valid"`
	Directive    *domain.UIDirective `json:"directive,omitempty"`
	FollowUp     string              `json:"followUp,omitempty"`
	SystemPrompt string              `json:"-"`
}

func (o *Outcome) advance(s Stage) {
	o.Stage = s
	o.Stages = append(o.Stages, s)
}

// Dispatcher is safe for concurrent use; all per-request state lives in Handle.
type Dispatcher struct {
	policies        PolicySource
	router          DomainRouter
	providers       ProviderSource
	model           domain.LanguageModel
	metrics         *metrics.Collector
	logger          *slog.Logger
	providerTimeout time.Duration
	maxConcurrent   int
	now             func() time.Time
}

// New returns a Dispatcher, filling in defaults for the optional Config fields.
func New(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Default
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{
		policies:        cfg.Policies,
		router:          cfg.Router,
		providers:       cfg.Providers,
		model:           cfg.Model,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		providerTimeout: cfg.ProviderTimeout,
		maxConcurrent:   cfg.MaxConcurrent,
		now:             cfg.Now,
	}
}

// Handle runs the request through selection, gathering and validation.
// Provider failures never surface here; they only make a capability absent.
func (d *Dispatcher) Handle(ctx context.Context, in Input) (*Outcome, error) {
	start := time.Now()
	inflight := d.metrics.InFlight()
	inflight.Inc()
	defer func() {
		inflight.Dec()
		d.metrics.DispatchLatency(time.Since(start))
	}()

	name := in.Domain
	if name == "" && d.router != nil {
		name = d.router.Route(in.Prompt)
	}
	p := d.policies.Get(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, name)
	}

	out := &Outcome{
		RequestID:    uuid.NewString(),
		Domain:       p.Name(),
		SystemPrompt: p.SystemPrompt(),
	}
	log := d.logger.With("request", out.RequestID, "domain", out.Domain)
	d.metrics.RequestRouted(out.Domain)

	caps := p.RequiredCapabilities(in.Prompt)
	out.Capabilities = caps.Strings()
	out.advance(StageCapabilitiesSelected)
	log.Debug("capabilities selected", "capabilities", out.Capabilities)

	bag := d.gather(ctx, log, in.Prompt, caps)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("gather capabilities: %w", err)
	}
	out.Gathered = bag.Keys()
	out.advance(StageDataGathered)

	out.Valid = p.Validate(bag)
	d.metrics.ValidationResult(out.Domain, out.Valid)
	if !out.Valid {
		out.advance(StageInvalid)
		if q, ok := p.FollowUp(bag); ok {
			out.FollowUp = q
		}
		out.advance(StageFollowUpAsked)
		log.Info("insufficient data, asking follow-up", "gathered", out.Gathered)
		return out, nil
	}
	out.advance(StageValidated)

	text := in.ModelText
	if text == "" && d.model != nil {
		var err error
		text, err = d.model.Complete(ctx, out.SystemPrompt, in.Prompt)
		if err != nil {
			return nil, fmt.Errorf("model completion: %w", err)
		}
	}

	out.Directive = &domain.UIDirective{
		Template: p.SelectTemplate(bag),
		Props:    p.PrepareProps(bag, text),
	}
	out.advance(StageUIReady)
	log.Info("response ready", "template", out.Directive.Template)
	return out, nil
}

// gather fetches every selected capability concurrently into a fresh bag.
// Only selected capabilities are fetched; the bag is never changed afterwards.
func (d *Dispatcher) gather(ctx context.Context, log *slog.Logger, prompt string, caps domain.CapabilitySet) domain.Bag {
	var mu sync.Mutex
	data := make(map[string]any, len(caps)+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxConcurrent)

	for _, c := range caps.Sorted() {
		prov := d.providers.Get(c)
		if prov == nil {
			log.Warn("no provider for capability", "capability", c)
			d.metrics.ProviderFailure(string(c), "missing")
			continue
		}
		g.Go(func() error {
			payload, err := d.fetch(gctx, prov, prompt)
			if err != nil {
				reason := "error"
				if errors.Is(err, context.DeadlineExceeded) {
					reason = "timeout"
				}
				log.Warn("capability provider failed", "capability", c, "reason", reason, "err", err)
				d.metrics.ProviderFailure(string(c), reason)
				return nil
			}
			mu.Lock()
			data[string(c)] = payload
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	data[domain.TimestampKey] = d.now().UTC().Format(time.RFC3339)
	return domain.NewBag(data)
}

// fetch bounds a provider call by the provider timeout, even when the
// provider ignores its context.
func (d *Dispatcher) fetch(ctx context.Context, prov domain.CapabilityProvider, prompt string) (any, error) {
	fctx, cancel := context.WithTimeout(ctx, d.providerTimeout)
	defer cancel()

	type result struct {
		payload any
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		payload, err := prov.Fetch(fctx, prompt)
		ch <- result{payload, err}
	}()

	select {
	case r := <-ch:
		return r.payload, r.err
	case <-fctx.Done():
		return nil, fctx.Err()
	}
}
