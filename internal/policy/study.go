package policy

import "domainbot/internal/domain"

// Study UI templates.
const (
	TemplateFlashcards  = "FlashcardView"
	TemplateSummary     = "SummaryView"
	TemplateStudyNotes  = "StudyNotesView"
	TemplateExplanation = "ExplanationView"
)

var studyVocabulary = domain.NewCapabilitySet(
	domain.CapBrowser,
	domain.CapSearch,
	domain.CapDocuments,
	domain.CapSummarizer,
	domain.CapFlashcards,
)

// StudyRules is the built-in study rule table, scanned in order.
func StudyRules() []Rule {
	return []Rule{
		{ // concept explanation
			Keywords:     []string{"explain", "what is", "how does"},
			Capabilities: []domain.Capability{domain.CapSearch},
		},
		{ // summarization
			Keywords:     []string{"summarize", "summary", "short notes"},
			Capabilities: []domain.Capability{domain.CapDocuments, domain.CapSummarizer},
		},
		{ // flashcards / revision
			Keywords:     []string{"flashcard", "revise", "revision", "memorize"},
			Capabilities: []domain.Capability{domain.CapDocuments, domain.CapFlashcards},
		},
	}
}

const studySystemPrompt = `You are a supportive and intelligent study assistant designed to help users learn effectively.

Your goals:
- Help users understand concepts clearly and accurately
- Summarize study material into concise, meaningful points
- Assist with revision, recall, and exam preparation
- Generate learning aids such as examples, step-by-step explanations, and flashcards when appropriate

Reasoning approach:
- Identify the user's learning intent (explanation, summary, revision, or memorization)
- Adapt explanations to the user's apparent level (beginner-friendly by default)
- Break complex ideas into simple, logical steps
- Use analogies or examples when they improve understanding

Rules:
- Do not assume prior subject knowledge unless stated
- Avoid unnecessary jargon
- If information is missing or unclear, state assumptions explicitly
- Do not hallucinate facts; rely on provided material or general knowledge

Learning style:
- Prefer structured outputs (headings, bullet points, steps)
- Highlight key ideas and definitions
- Emphasize understanding over rote memorization

Tone:
- Calm
- Encouraging
- Clear and patient

Example behavior:
- When explaining, focus on intuition first, then details
- When summarizing, focus on core ideas rather than copying text
- When creating flashcards, keep questions simple and answers precise`

// Study follow-up questions.
const (
	StudyAskBrowser  = "Could you allow access to your study material or browser context?"
	StudyAskMaterial = "Do you have notes, text, a PDF, or a topic you want help with?"
	StudyAskGoal     = "How would you like me to help you study this? " +
		"For example: explanation, summary, flashcards, or revision."
)

// Study handles explanation, summarization and revision requests.
type Study struct {
	selector *Selector
}

var _ domain.Policy = (*Study)(nil)

// NewStudy returns the study policy with the built-in rule table.
func NewStudy() *Study {
	return &Study{
		selector: mustSelector(studyVocabulary, domain.CapBrowser, domain.CapSearch, StudyRules()),
	}
}

// WithRules returns a copy of the policy driven by a replacement rule table.
func (s *Study) WithRules(rules []Rule) (domain.Policy, error) {
	sel, err := NewSelector(studyVocabulary, domain.CapBrowser, domain.CapSearch, rules)
	if err != nil {
		return nil, err
	}
	return &Study{selector: sel}, nil
}

func (s *Study) Name() string { return "study" }

func (s *Study) Vocabulary() domain.CapabilitySet {
	return domain.NewCapabilitySet(studyVocabulary.Sorted()...)
}

func (s *Study) Rules() []Rule { return s.selector.Rules() }

func (s *Study) RequiredCapabilities(prompt string) domain.CapabilitySet {
	return s.selector.Select(prompt)
}

func (s *Study) SystemPrompt() string { return studySystemPrompt }

func (s *Study) SelectTemplate(bag domain.Bag) string {
	switch {
	case bag.Has(domain.CapFlashcards):
		return TemplateFlashcards
	case bag.Has(domain.CapSummarizer):
		return TemplateSummary
	case bag.Has(domain.CapDocuments):
		return TemplateStudyNotes
	default:
		return TemplateExplanation
	}
}

func (s *Study) PrepareProps(bag domain.Bag, modelText string) map[string]any {
	props := baseProps(bag, modelText)
	copyProp(props, bag, domain.CapDocuments, "content")
	copyProp(props, bag, domain.CapSummary, "summary")
	copyProp(props, bag, domain.CapFlashcards, "flashcards")
	return props
}

func (s *Study) Validate(bag domain.Bag) bool {
	if !bag.Has(domain.CapBrowser) {
		return false
	}
	return hasAny(bag, domain.CapDocuments, domain.CapSearch)
}

func (s *Study) FollowUp(bag domain.Bag) (string, bool) {
	if s.Validate(bag) {
		return "", false
	}
	return s.Clarify(bag), true
}

// Clarify walks the full clarification chain, including the generic
// goal question asked when nothing specific is missing.
func (s *Study) Clarify(bag domain.Bag) string {
	if !bag.Has(domain.CapBrowser) {
		return StudyAskBrowser
	}
	if !hasAny(bag, domain.CapDocuments, domain.CapSearch) {
		return StudyAskMaterial
	}
	return StudyAskGoal
}
