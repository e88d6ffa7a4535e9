package policy

import "domainbot/internal/domain"

// Shopping UI templates. "ProductRecomendation" is the renderer's component name.
const (
	TemplateRecommendation = "ProductRecomendation"
	TemplateComparison     = "ProductComparisonTable"
	TemplateShoppingList   = "ShoppingList"
)

var shoppingVocabulary = domain.NewCapabilitySet(
	domain.CapBrowser,
	domain.CapSearch,
	domain.CapReviews,
	domain.CapPricing,
	domain.CapLocation,
)

// ShoppingRules is the built-in shopping rule table, scanned in order.
func ShoppingRules() []Rule {
	return []Rule{
		{ // comparison or search
			Keywords:     []string{"compare", "vs", "difference", "best", "suitable", "affordable"},
			Capabilities: []domain.Capability{domain.CapSearch},
		},
		{ // recommendation
			Keywords:     []string{"buy", "recommend", "suggest", "choose", "rating", "review"},
			Capabilities: []domain.Capability{domain.CapReviews},
		},
		{ // price
			Keywords:     []string{"price", "cheap", "budget", "under"},
			Capabilities: []domain.Capability{domain.CapPricing},
		},
		{ // location
			Keywords:     []string{"near", "nearby", "store", "offline"},
			Capabilities: []domain.Capability{domain.CapLocation},
		},
	}
}

const shoppingSystemPrompt = `You are a smart shopping assistant helping users make better purchase decisions.

Your capabilities:
- Compare products clearly and objectively
- Highlight pros and cons
- Recommend the best options based on user needs
- Consider budget, features, and overall value for money

Reasoning approach:
- First understand the user's intent and constraints
- Compare relevant options using available data
- Filter out poor-value choices
- Recommend 2-3 best options with clear justification

Rules:
- Do not hallucinate exact prices
- Use price ranges if unsure
- If information is incomplete, state assumptions clearly
- Stay unbiased and factual

Preference handling:
- If user preferences are provided (e.g., budget sensitivity, quality focus), prioritize recommendations accordingly

Output guidelines:
- Keep responses concise and structured
- Use bullet points for pros and cons
- Clearly state who each option is best for

Tone:
- Helpful
- Practical
- Decision-focused

Example:
"Based on your budget of ₹30,000, Phone A offers excellent battery life and consistent performance, while Phone B stands out for its camera quality. If battery life matters more, Phone A is the better choice; for photography, Phone B is preferable."`

// Shopping follow-up questions.
const (
	ShoppingAskBrowser = "I need access to your browsing context to help you better. " +
		"Could you please allow it?"
	ShoppingAskLocation = "To help you find nearby stores, could you share your city " +
		"or allow location access?"
	ShoppingAskProduct    = "Could you tell me which product or category you are interested in?"
	ShoppingAskPriorities = "To help me recommend the best option, could you tell me what matters most " +
		"to you for this product? For example: price, quality, performance, brand, " +
		"or specific features."
)

// Shopping handles product search, comparison, pricing and recommendation.
type Shopping struct {
	selector *Selector
}

var _ domain.Policy = (*Shopping)(nil)

// NewShopping returns the shopping policy with the built-in rule table.
func NewShopping() *Shopping {
	return &Shopping{
		selector: mustSelector(shoppingVocabulary, domain.CapBrowser, domain.CapSearch, ShoppingRules()),
	}
}

// WithRules returns a copy of the policy driven by a replacement rule table.
func (s *Shopping) WithRules(rules []Rule) (domain.Policy, error) {
	sel, err := NewSelector(shoppingVocabulary, domain.CapBrowser, domain.CapSearch, rules)
	if err != nil {
		return nil, err
	}
	return &Shopping{selector: sel}, nil
}

func (s *Shopping) Name() string { return "shopping" }

func (s *Shopping) Vocabulary() domain.CapabilitySet {
	return domain.NewCapabilitySet(shoppingVocabulary.Sorted()...)
}

func (s *Shopping) Rules() []Rule { return s.selector.Rules() }

func (s *Shopping) RequiredCapabilities(prompt string) domain.CapabilitySet {
	return s.selector.Select(prompt)
}

func (s *Shopping) SystemPrompt() string { return shoppingSystemPrompt }

func (s *Shopping) SelectTemplate(bag domain.Bag) string {
	switch {
	case bag.Has(domain.CapReviews) && bag.Has(domain.CapPricing):
		return TemplateRecommendation
	case bag.Has(domain.CapSearch):
		return TemplateComparison
	default:
		return TemplateShoppingList
	}
}

func (s *Shopping) PrepareProps(bag domain.Bag, modelText string) map[string]any {
	props := baseProps(bag, modelText)
	if bag.Has(domain.CapSearch) {
		products, ok := bag.Field(domain.CapSearch, "results")
		if !ok || products == nil {
			products = []any{}
		}
		props["products"] = products
	}
	copyProp(props, bag, domain.CapPricing, "pricing")
	copyProp(props, bag, domain.CapReviews, "reviews")
	copyProp(props, bag, domain.CapLocation, "location")
	return props
}

func (s *Shopping) Validate(bag domain.Bag) bool {
	if !bag.Has(domain.CapBrowser) {
		return false
	}
	if !hasAny(bag, domain.CapSearch, domain.CapReviews) {
		return false
	}
	// Requested but empty location blocks nearby-store answers.
	if bag.Has(domain.CapLocation) && !bag.Truthy(domain.CapLocation) {
		return false
	}
	return true
}

func (s *Shopping) FollowUp(bag domain.Bag) (string, bool) {
	if s.Validate(bag) {
		return "", false
	}
	return s.Clarify(bag), true
}

// Clarify walks the full clarification chain. Location is asked before the
// product question, so a bag with only browser context gets the location prompt.
func (s *Shopping) Clarify(bag domain.Bag) string {
	if !bag.Has(domain.CapBrowser) {
		return ShoppingAskBrowser
	}
	if !bag.Has(domain.CapLocation) {
		return ShoppingAskLocation
	}
	if !hasAny(bag, domain.CapSearch, domain.CapReviews) {
		return ShoppingAskProduct
	}
	return ShoppingAskPriorities
}
