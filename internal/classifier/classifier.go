// Package classifier layers conversation context on top of the rule-based
// intent detection: follow-up and meta-conversation intents, confidence
// boosts from recent history, and reference resolution against the family
// roster.
package classifier

import (
	"regexp"
	"strings"

	"github.com/allie-ai/allie-core/internal/conversation"
	"github.com/allie-ai/allie-core/internal/core"
	"github.com/allie-ai/allie-core/internal/family"
	"github.com/allie-ai/allie-core/internal/nlu"
	logx "github.com/allie-ai/allie-core/pkg/logger"
)

// intents below this confidence are not written back into the
// conversation history
const confidenceThreshold = 0.6

type specializedIntent struct {
	name       string
	patterns   []*regexp.Regexp
	confidence float64
}

// Follow-up and meta-conversation intents layered over the base tables.
// Order matters: the first matching intent wins.
var specializedIntents = []specializedIntent{
	{
		name: "clarification.who",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:which|what|who)\s+(?:one|person|child|kid|family member)`),
			regexp.MustCompile(`(?i)(?:do you mean|are you referring to|are you talking about)\s+([A-Za-z]+)`),
		},
		confidence: 0.85,
	},
	{
		name: "clarification.when",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:which|what)\s+(?:date|day|time)`),
			regexp.MustCompile(`(?i)(?:do you mean|are you referring to|are you talking about)\s+(?:today|tomorrow|this weekend)`),
		},
		confidence: 0.85,
	},
	{
		name: "conversation.feedback",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:that(?:'s| is| was)|this is)\s+(?:not right|wrong|incorrect|unhelpful|not helpful|confusing)`),
			regexp.MustCompile(`(?i)(?:you're|you are|that's|that is)\s+(?:right|correct|helpful)`),
		},
		confidence: 0.8,
	},
	{
		name: "conversation.thanks",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:thank you|thanks|thx|ty|thank)`),
		},
		confidence: 0.9,
	},
	{
		name: "context.continue",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:tell me more|continue|go on|proceed|what else)`),
			regexp.MustCompile(`(?i)^(?:yes|yeah|sure|okay|ok|yep|continue)$`),
		},
		confidence: 0.7,
	},
	{
		name: "context.previous",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:go back|back to|return to)\s+(?:the|our|that|what we were)\s+(?:previous|earlier|before)`),
			regexp.MustCompile(`(?i)(?:let's|can we|i want to)\s+(?:talk|discuss|go back to)\s+(?:about|to)?\s+([A-Za-z]+)`),
		},
		confidence: 0.7,
	},
}

var (
	questionMarkPattern  = regexp.MustCompile(`\?$`)
	interrogativePattern = regexp.MustCompile(`(?i)^(?:who|what|when|where|why|how|is|are|can|could|would|will|should)`)
	pronounPattern       = regexp.MustCompile(`(?i)\b(?:he|she|him|her|they|them|my child|my kid)\b`)
)

var topicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:about|regarding|concerning|on the topic of)\s+([a-z]+(?:\s+[a-z]+){0,3})`),
	regexp.MustCompile(`(?i)(?:want|like|need)\s+to\s+(?:talk|discuss|know|learn)\s+(?:about|regarding)?\s+([a-z]+(?:\s+[a-z]+){0,3})`),
	regexp.MustCompile(`(?i)my\s+([a-z]+(?:\s+[a-z]+){0,2})`),
	regexp.MustCompile(`(?i)the\s+([a-z]+(?:\s+[a-z]+){0,2})`),
}

// Classification is the context-adjusted intent for one message.
type Classification struct {
	Intent         string  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	Category       string  `json:"category"`
	Action         string  `json:"action"`
	PreviousIntent string  `json:"previousIntent,omitempty"`
	BasedOnContext bool    `json:"basedOnContext"`
}

// Analysis is the full classified view of one message.
type Analysis struct {
	Classification
	Entities            nlu.Entities         `json:"entities"`
	IsQuestion          bool                 `json:"isQuestion"`
	ConversationContext conversation.Summary `json:"conversationContext"`
}

// Classifier combines base intent detection with per-family conversation
// state.
type Classifier struct {
	store *conversation.Store
	clock core.Clock
}

// New builds a classifier on top of the given conversation store. A nil
// clock falls back to the system clock.
func New(store *conversation.Store, clock core.Clock) *Classifier {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Classifier{store: store, clock: clock}
}

// ClassifyIntent detects the intent of a message, adjusted by conversation
// context and available family data. Confident results are recorded in the
// conversation history so later messages can build on them.
func (c *Classifier) ClassifyIntent(message, familyID string, fam *family.Data) Classification {
	base := nlu.DetectIntent(message)

	special := nlu.IntentResult{Intent: nlu.IntentUnknown}
	for _, si := range specializedIntents {
		for _, p := range si.patterns {
			if p.MatchString(message) {
				special = nlu.IntentResult{Intent: si.name, Confidence: si.confidence}
				break
			}
		}
		if special.Confidence > 0 {
			break
		}
	}

	ctx := c.store.GetContext(familyID)
	adjusted, previousIntent := adjustConfidence(base, ctx, fam)

	final := adjusted
	basedOnContext := adjusted.Confidence > base.Confidence
	if special.Confidence > adjusted.Confidence {
		final = special
		basedOnContext = false
	}

	if final.Confidence >= confidenceThreshold {
		c.store.UpdateContext(familyID, conversation.MessageInfo{
			Text:       message,
			Intent:     final.Intent,
			Confidence: final.Confidence,
		})
		if previousIntent != "" {
			c.store.SetPreviousIntent(familyID, previousIntent)
		}
	}

	logx.Debug().
		Str("family_id", familyID).
		Str("intent", final.Intent).
		Float64("confidence", final.Confidence).
		Msg("classified intent")

	return Classification{
		Intent:         final.Intent,
		Confidence:     final.Confidence,
		Category:       final.Category(),
		Action:         final.Action(),
		PreviousIntent: previousIntent,
		BasedOnContext: basedOnContext,
	}
}

// adjustConfidence applies the context boosts: topic continuity, recent
// same-category intents, clarification follow-ups, and matches against the
// family data that actually exists.
func adjustConfidence(base nlu.IntentResult, ctx conversation.Context, fam *family.Data) (nlu.IntentResult, string) {
	result := base
	previousIntent := ""

	if ctx.CurrentFocus != "" &&
		strings.HasPrefix(result.Intent, ctx.CurrentFocus) &&
		result.Confidence > 0.4 {
		result.Confidence = capAt(result.Confidence+0.2, 0.95)
	}

	if len(ctx.IntentHistory) > 0 {
		recent := ctx.IntentHistory
		if len(recent) > 3 {
			recent = recent[:3]
		}

		sameCategory := 0
		for _, rec := range recent {
			if (nlu.IntentResult{Intent: rec.Intent}).Category() == result.Category() {
				sameCategory++
			}
		}
		if sameCategory >= 2 && result.Confidence > 0.3 {
			result.Confidence = capAt(result.Confidence+0.15, 0.95)
		}

		// a clarification right after another intent refers back to it
		clarifying := result.Intent == "clarification.who" || result.Intent == "clarification.when"
		if clarifying && result.Confidence > 0.5 {
			result.Confidence = capAt(result.Confidence+0.3, 0.95)
			previousIntent = recent[0].Intent
		}
	}

	if fam != nil {
		switch {
		case strings.HasPrefix(result.Intent, "child.") && len(fam.Children()) > 0:
			result.Confidence = capAt(result.Confidence+0.1, 0.9)
		case (strings.HasPrefix(result.Intent, "survey.") || strings.HasPrefix(result.Intent, "balance.")) && fam.HasSurveyData:
			result.Confidence = capAt(result.Confidence+0.1, 0.9)
		case strings.HasPrefix(result.Intent, "task.") && len(fam.Tasks) > 0:
			result.Confidence = capAt(result.Confidence+0.1, 0.9)
		}
	}

	return result, previousIntent
}

// AnalyzeMessage classifies the message, extracts entities and references,
// folds everything into the conversation context, and returns the combined
// view.
func (c *Classifier) AnalyzeMessage(message, familyID string, fam *family.Data) Analysis {
	intentInfo := c.ClassifyIntent(message, familyID, fam)
	entities := nlu.ExtractEntities(message, fam, c.clock.Now())

	trimmed := strings.TrimSpace(message)
	isQuestion := questionMarkPattern.MatchString(trimmed) || interrogativePattern.MatchString(trimmed)

	c.store.UpdateContext(familyID, conversation.MessageInfo{
		Text:       message,
		Intent:     intentInfo.Intent,
		Confidence: intentInfo.Confidence,
		Entities:   entities.Flatten(),
		IsQuestion: isQuestion,
		Topic:      extractTopic(message),
		References: extractReferences(message, fam),
	})

	return Analysis{
		Classification:      intentInfo,
		Entities:            entities,
		IsQuestion:          isQuestion,
		ConversationContext: c.store.GetConversationSummary(familyID),
	}
}

// extractTopic pulls a short noun phrase out of the message, first match
// wins.
func extractTopic(message string) string {
	for _, p := range topicPatterns {
		if m := p.FindStringSubmatch(message); m != nil && m[1] != "" {
			return strings.ToLower(m[1])
		}
	}
	return ""
}

// extractReferences resolves name and pronoun mentions against the family
// roster.
func extractReferences(message string, fam *family.Data) map[string]string {
	refs := map[string]string{}
	if fam == nil {
		return refs
	}

	lower := strings.ToLower(message)

	children := fam.Children()
	for _, child := range children {
		if child.Name != "" && strings.Contains(lower, strings.ToLower(child.Name)) {
			refs["child"] = child.Name
		}
	}
	// pronouns are unambiguous with a single child
	if _, ok := refs["child"]; !ok && len(children) == 1 && pronounPattern.MatchString(message) {
		refs["child"] = children[0].Name
	}

	for _, parent := range fam.Parents() {
		if parent.Name != "" && strings.Contains(lower, strings.ToLower(parent.Name)) {
			refs["parent"] = parent.Name
		} else if parent.RoleType != "" && strings.Contains(lower, strings.ToLower(parent.RoleType)) {
			refs["parent"] = parent.Name
		}
	}

	return refs
}

func capAt(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}
