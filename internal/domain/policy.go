package domain

// Policy is the contract every domain (study, shopping, ...) implements.
// Implementations hold no per-request state and are safe for concurrent use.
type Policy interface {
	// Name is the registry key, e.g. "study".
	Name() string

	// Vocabulary lists every capability the domain can ever require.
	Vocabulary() CapabilitySet

	// RequiredCapabilities selects capabilities from the raw prompt.
	// The result always holds the baseline and fallback capabilities.
	RequiredCapabilities(prompt string) CapabilitySet

	SystemPrompt() string

	// SelectTemplate picks a UI template from the capabilities present in bag.
	SelectTemplate(bag Bag) string

	// PrepareProps builds the UI prop bag. userMessage and timestamp are always set.
	PrepareProps(bag Bag, modelText string) map[string]any

	// Validate reports whether bag holds enough data for a final answer.
	Validate(bag Bag) bool

	// FollowUp returns a clarifying question when bag is insufficient.
	// ok is false when no clarification is needed.
	FollowUp(bag Bag) (question string, ok bool)
}

// UIDirective tells the renderer which template to use and with what props.
type UIDirective struct {
	Template string         `json:"template"`
	Props    map[string]any `json:"props"`
}

// Prop keys shared by every domain.
const (
	PropUserMessage = "userMessage"
	PropTimestamp   = "timestamp"
)
