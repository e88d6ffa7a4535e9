package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domainbot/internal/capability"
	"domainbot/internal/config"
	"domainbot/internal/domain"
	"domainbot/internal/metrics"
	"domainbot/internal/policy"
	"domainbot/internal/router"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC) }

type fakeModel struct {
	text   string
	err    error
	system string
}

func (m *fakeModel) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	m.system = systemPrompt
	return m.text, m.err
}

func newDispatcher(t *testing.T, providers *capability.Registry, model domain.LanguageModel) (*Dispatcher, *metrics.Collector) {
	t.Helper()
	policies := policy.NewRegistry(testLogger())
	policies.RegisterBuiltins()
	col := metrics.NewCollector()
	return New(Config{
		Policies:        policies,
		Router:          router.New(config.Defaults().Router, testLogger()),
		Providers:       providers,
		Model:           model,
		Metrics:         col,
		Logger:          testLogger(),
		ProviderTimeout: 200 * time.Millisecond,
		Now:             fixedNow,
	}), col
}

func providersWith(payloads map[domain.Capability]any) *capability.Registry {
	reg := capability.NewRegistry(testLogger())
	for c, p := range payloads {
		reg.Register(capability.NewStatic(c, p))
	}
	return reg
}

func TestHandle_StudyExplanation(t *testing.T) {
	providers := providersWith(map[domain.Capability]any{
		domain.CapBrowser: true,
		domain.CapSearch:  map[string]any{"results": []any{"chlorophyll"}},
	})
	d, _ := newDispatcher(t, providers, nil)

	out, err := d.Handle(context.Background(), Input{Prompt: "explain photosynthesis", ModelText: "Plants make sugar"})
	require.NoError(t, err)

	assert.Equal(t, "study", out.Domain)
	assert.NotEmpty(t, out.RequestID)
	assert.Equal(t, []string{"browser", "search"}, out.Capabilities)
	assert.True(t, out.Valid)
	assert.Equal(t, StageUIReady, out.Stage)
	assert.Equal(t, []Stage{StageCapabilitiesSelected, StageDataGathered, StageValidated, StageUIReady}, out.Stages)
	require.NotNil(t, out.Directive)
	assert.Equal(t, policy.TemplateExplanation, out.Directive.Template)
	assert.Equal(t, "Plants make sugar", out.Directive.Props["userMessage"])
	assert.Equal(t, "2026-10-14T09:30:00Z", out.Directive.Props["timestamp"])
	assert.Empty(t, out.FollowUp)
}

func TestHandle_FlashcardsTemplate(t *testing.T) {
	cards := []any{map[string]any{"q": "Cell wall?", "a": "Plants"}}
	providers := providersWith(map[domain.Capability]any{
		domain.CapBrowser:    true,
		domain.CapSearch:     map[string]any{},
		domain.CapDocuments:  "notes",
		domain.CapFlashcards: cards,
	})
	d, _ := newDispatcher(t, providers, nil)

	out, err := d.Handle(context.Background(), Input{Prompt: "make flashcards on cell biology", ModelText: "deck"})
	require.NoError(t, err)
	assert.Equal(t, []string{"browser", "documents", "flashcards", "search"}, out.Capabilities)
	assert.Equal(t, policy.TemplateFlashcards, out.Directive.Template)
	assert.Equal(t, cards, out.Directive.Props["flashcards"])
}

func TestHandle_ShoppingRecommendation(t *testing.T) {
	providers := providersWith(map[domain.Capability]any{
		domain.CapBrowser: true,
		domain.CapSearch:  map[string]any{"results": []any{"Phone A"}},
		domain.CapReviews: []any{"great battery"},
		domain.CapPricing: map[string]any{"Phone A": 29999},
	})
	model := &fakeModel{text: "Buy Phone A"}
	d, col := newDispatcher(t, providers, model)

	out, err := d.Handle(context.Background(), Input{Prompt: "which phone should I buy under 30000"})
	require.NoError(t, err)
	assert.Equal(t, "shopping", out.Domain)
	assert.Equal(t, policy.TemplateRecommendation, out.Directive.Template)
	assert.Equal(t, "Buy Phone A", out.Directive.Props["userMessage"])
	assert.Equal(t, []any{"Phone A"}, out.Directive.Props["products"])
	assert.Contains(t, model.system, "shopping assistant")
	assert.Equal(t, int64(1), col.Counter("domainbot_requests_total", "", metrics.Labels("domain", "shopping")).Value())
}

func TestHandle_ModelTextWinsOverModel(t *testing.T) {
	providers := providersWith(map[domain.Capability]any{domain.CapBrowser: true, domain.CapSearch: map[string]any{}})
	model := &fakeModel{text: "from model"}
	d, _ := newDispatcher(t, providers, model)

	out, err := d.Handle(context.Background(), Input{Prompt: "explain gravity", ModelText: "given"})
	require.NoError(t, err)
	assert.Equal(t, "given", out.Directive.Props["userMessage"])
	assert.Empty(t, model.system, "model must not be called")
}

func TestHandle_ModelError(t *testing.T) {
	providers := providersWith(map[domain.Capability]any{domain.CapBrowser: true, domain.CapSearch: map[string]any{}})
	boom := errors.New("model down")
	d, _ := newDispatcher(t, providers, &fakeModel{err: boom})

	_, err := d.Handle(context.Background(), Input{Prompt: "explain gravity"})
	assert.ErrorIs(t, err, boom)
}

func TestHandle_MissingBrowserAsksFollowUp(t *testing.T) {
	providers := providersWith(map[domain.Capability]any{domain.CapSearch: map[string]any{}})
	d, col := newDispatcher(t, providers, nil)

	out, err := d.Handle(context.Background(), Input{Prompt: "explain gravity"})
	require.NoError(t, err)
	assert.False(t, out.Valid)
	assert.Nil(t, out.Directive)
	assert.Equal(t, StageFollowUpAsked, out.Stage)
	assert.Equal(t, []Stage{StageCapabilitiesSelected, StageDataGathered, StageInvalid, StageFollowUpAsked}, out.Stages)
	assert.Equal(t, policy.StudyAskBrowser, out.FollowUp)
	assert.Equal(t, int64(1), col.Counter("domainbot_provider_failures_total", "",
		metrics.Labels("capability", "browser", "reason", "missing")).Value())
}

func TestHandle_ShoppingEmptyLocationWithoutProducts(t *testing.T) {
	providers := providersWith(map[domain.Capability]any{
		domain.CapBrowser:  true,
		domain.CapLocation: "",
	})
	d, _ := newDispatcher(t, providers, nil)

	// search requested but unavailable, location requested but empty
	out, err := d.Handle(context.Background(), Input{Prompt: "laptop store nearby", Domain: "shopping"})
	require.NoError(t, err)
	assert.False(t, out.Valid)
	assert.Equal(t, policy.ShoppingAskProduct, out.FollowUp)
}

func TestHandle_ProviderErrorMakesCapabilityAbsent(t *testing.T) {
	providers := providersWith(map[domain.Capability]any{domain.CapBrowser: true})
	providers.Register(capability.NewFunc(domain.CapSearch, func(ctx context.Context, prompt string) (any, error) {
		return nil, errors.New("search backend unavailable")
	}))
	d, col := newDispatcher(t, providers, nil)

	out, err := d.Handle(context.Background(), Input{Prompt: "explain gravity"})
	require.NoError(t, err, "provider failures are not surfaced")
	assert.NotContains(t, out.Gathered, "search")
	assert.Equal(t, policy.StudyAskMaterial, out.FollowUp)
	assert.Equal(t, int64(1), col.Counter("domainbot_provider_failures_total", "",
		metrics.Labels("capability", "search", "reason", "error")).Value())
}

func TestHandle_SlowProviderTimesOut(t *testing.T) {
	providers := providersWith(map[domain.Capability]any{domain.CapBrowser: true})
	release := make(chan struct{})
	defer close(release)
	providers.Register(capability.NewFunc(domain.CapSearch, func(ctx context.Context, prompt string) (any, error) {
		<-release // ignores ctx
		return "late", nil
	}))
	d, col := newDispatcher(t, providers, nil)

	start := time.Now()
	out, err := d.Handle(context.Background(), Input{Prompt: "explain gravity"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, out.Valid)
	assert.Equal(t, int64(1), col.Counter("domainbot_provider_failures_total", "",
		metrics.Labels("capability", "search", "reason", "timeout")).Value())
}

func TestHandle_OnlySelectedCapabilitiesFetched(t *testing.T) {
	providers := providersWith(map[domain.Capability]any{
		domain.CapBrowser: true,
		domain.CapSearch:  map[string]any{},
	})
	var called bool
	providers.Register(capability.NewFunc(domain.CapPricing, func(ctx context.Context, prompt string) (any, error) {
		called = true
		return 1, nil
	}))
	d, _ := newDispatcher(t, providers, nil)

	out, err := d.Handle(context.Background(), Input{Prompt: "compare phones", Domain: "shopping"})
	require.NoError(t, err)
	assert.False(t, called, "pricing was not selected")
	assert.Equal(t, []string{"browser", "search", "timestamp"}, out.Gathered)
}

func TestHandle_UnknownDomain(t *testing.T) {
	d, _ := newDispatcher(t, providersWith(nil), nil)
	_, err := d.Handle(context.Background(), Input{Prompt: "x", Domain: "travel"})
	assert.ErrorIs(t, err, ErrUnknownDomain)
}

func TestHandle_CancelledContext(t *testing.T) {
	d, _ := newDispatcher(t, providersWith(map[domain.Capability]any{domain.CapBrowser: true}), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Handle(ctx, Input{Prompt: "explain gravity"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandle_Concurrent(t *testing.T) {
	providers := providersWith(map[domain.Capability]any{
		domain.CapBrowser:  true,
		domain.CapSearch:   map[string]any{"results": []any{}},
		domain.CapLocation: "Pune",
	})
	d, _ := newDispatcher(t, providers, nil)

	prompts := []string{"explain gravity", "laptop store nearby", "summarize chapter 2", "compare phones"}
	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(prompt string) {
			defer wg.Done()
			if _, err := d.Handle(context.Background(), Input{Prompt: prompt}); err != nil {
				errs <- err
			}
		}(prompts[i%len(prompts)])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestStage_Terminal(t *testing.T) {
	assert.True(t, StageUIReady.Terminal())
	assert.True(t, StageFollowUpAsked.Terminal())
	assert.False(t, StageInvalid.Terminal())
	assert.False(t, StageDataGathered.Terminal())
}
