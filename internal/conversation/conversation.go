// Package conversation keeps short-lived per-family conversation state:
// recent topics, extracted entities, intent history, and open questions.
// Sessions live in memory and expire after a period of inactivity.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/allie-ai/allie-core/internal/core"
	logx "github.com/allie-ai/allie-core/pkg/logger"
)

const (
	sessionDuration = 30 * time.Minute
	maxTopics       = 10
	maxEntities     = 20 // per entity type
	maxIntents      = 20
	// focus only follows confident intent matches
	focusThreshold = 0.7
)

// IntentRecord is one detected intent, newest first in the history.
type IntentRecord struct {
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Question is a user question and whether it has been answered yet.
type Question struct {
	Question string    `json:"question"`
	Asked    time.Time `json:"asked"`
	Answered bool      `json:"answered"`
}

// Feedback is one piece of user feedback on an assistant response.
type Feedback struct {
	MessageID string    `json:"messageId"`
	Type      string    `json:"type"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Context is the state of one family's active conversation session.
type Context struct {
	SessionStart     time.Time           `json:"sessionStart"`
	LastAccessed     time.Time           `json:"lastAccessed"`
	Topics           []string            `json:"topics"`
	Entities         map[string][]string `json:"entities"`
	MessageCount     int                 `json:"messageCount"`
	IntentHistory    []IntentRecord      `json:"intentHistory"`
	UserQuestions    []Question          `json:"userQuestions"`
	RecentReferences map[string]string   `json:"recentReferences"`
	Feedback         []Feedback          `json:"feedback"`
	CurrentFocus     string              `json:"currentFocus,omitempty"`
	PreviousIntent   string              `json:"previousIntent,omitempty"`
}

// MessageInfo carries everything the store needs to fold one message
// into a conversation context.
type MessageInfo struct {
	Text       string
	Topic      string
	Intent     string
	Confidence float64
	Entities   map[string][]string
	IsQuestion bool
	References map[string]string
}

// Summary is the condensed view of a conversation injected into prompts.
type Summary struct {
	Topics            []string          `json:"topics"`
	MessageCount      int               `json:"messageCount"`
	DominantIntent    string            `json:"dominantIntent,omitempty"`
	OpenQuestions     []string          `json:"openQuestions"`
	ProminentEntities map[string]string `json:"prominentEntities"`
	CurrentFocus      string            `json:"currentFocus,omitempty"`
}

// Store holds all active conversation sessions, keyed by family ID.
// Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Context
	clock    core.Clock
}

// NewStore builds an empty session store. A nil clock falls back to the
// system clock.
func NewStore(clock core.Clock) *Store {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Store{
		sessions: map[string]*Context{},
		clock:    clock,
	}
}

// getLocked returns the live session for familyID, creating it when
// absent and sweeping expired sessions first. Callers must hold mu.
func (s *Store) getLocked(familyID string) *Context {
	now := s.clock.Now()

	for id, ctx := range s.sessions {
		if now.Sub(ctx.LastAccessed) > sessionDuration {
			logx.Debug().Str("family_id", id).Msg("conversation session expired")
			delete(s.sessions, id)
		}
	}

	ctx, ok := s.sessions[familyID]
	if !ok {
		ctx = &Context{
			SessionStart:     now,
			Entities:         map[string][]string{},
			RecentReferences: map[string]string{},
		}
		s.sessions[familyID] = ctx
	}
	ctx.LastAccessed = now
	return ctx
}

// GetContext returns a snapshot of the family's conversation context,
// creating a fresh session when none is active.
func (s *Store) GetContext(familyID string) Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.getLocked(familyID))
}

// UpdateContext folds one message into the family's conversation context
// and returns the updated snapshot.
func (s *Store) UpdateContext(familyID string, info MessageInfo) Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getLocked(familyID)
	now := s.clock.Now()

	ctx.MessageCount++

	if info.Topic != "" {
		topics := []string{info.Topic}
		for _, t := range ctx.Topics {
			if t != info.Topic {
				topics = append(topics, t)
			}
		}
		if len(topics) > maxTopics {
			topics = topics[:maxTopics]
		}
		ctx.Topics = topics
	}

	if info.Intent != "" {
		history := append([]IntentRecord{{
			Intent:     info.Intent,
			Confidence: info.Confidence,
			Timestamp:  now,
		}}, ctx.IntentHistory...)
		if len(history) > maxIntents {
			history = history[:maxIntents]
		}
		ctx.IntentHistory = history
	}

	for entityType, values := range info.Entities {
		merged := dedupe(append(append([]string{}, values...), ctx.Entities[entityType]...))
		if len(merged) > maxEntities {
			merged = merged[:maxEntities]
		}
		ctx.Entities[entityType] = merged
	}

	if info.IsQuestion {
		ctx.UserQuestions = append(ctx.UserQuestions, Question{
			Question: info.Text,
			Asked:    now,
		})
	}

	if info.Intent != "" && info.Confidence > focusThreshold {
		ctx.CurrentFocus = intentCategory(info.Intent)
	}

	for refType, entity := range info.References {
		ctx.RecentReferences[refType] = entity
	}

	return snapshot(ctx)
}

// SetPreviousIntent records the intent a follow-up clarification refers to.
func (s *Store) SetPreviousIntent(familyID, intent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getLocked(familyID).PreviousIntent = intent
}

// ResolveQuestion marks the question at the given index as answered.
func (s *Store) ResolveQuestion(familyID string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getLocked(familyID)
	if index >= 0 && index < len(ctx.UserQuestions) {
		ctx.UserQuestions[index].Answered = true
	}
}

// AddFeedback stores user feedback about a response.
func (s *Store) AddFeedback(familyID, messageID, feedbackType, details string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getLocked(familyID)
	ctx.Feedback = append(ctx.Feedback, Feedback{
		MessageID: messageID,
		Type:      feedbackType,
		Details:   details,
		Timestamp: s.clock.Now(),
	})
}

// GetProminent returns the most recently mentioned entity of each type.
func (s *Store) GetProminent(familyID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return prominent(s.getLocked(familyID))
}

// GetDominantIntent returns the most frequent intent category in the
// session history, or empty when there is no history yet.
func (s *Store) GetDominantIntent(familyID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dominantIntent(s.getLocked(familyID))
}

// GetConversationSummary builds the condensed context view used when
// assembling prompts.
func (s *Store) GetConversationSummary(familyID string) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getLocked(familyID)

	topics := ctx.Topics
	if len(topics) > 5 {
		topics = topics[:5]
	}

	var open []string
	for _, q := range ctx.UserQuestions {
		if !q.Answered {
			open = append(open, q.Question)
		}
	}

	return Summary{
		Topics:            append([]string{}, topics...),
		MessageCount:      ctx.MessageCount,
		DominantIntent:    dominantIntent(ctx),
		OpenQuestions:     open,
		ProminentEntities: prominent(ctx),
		CurrentFocus:      ctx.CurrentFocus,
	}
}

func prominent(ctx *Context) map[string]string {
	out := map[string]string{}
	for entityType, values := range ctx.Entities {
		if len(values) > 0 {
			out[entityType] = values[0]
		}
	}
	return out
}

// dominantIntent counts categories over the history; ties resolve to the
// category seen most recently so results stay deterministic.
func dominantIntent(ctx *Context) string {
	if len(ctx.IntentHistory) == 0 {
		return ""
	}

	counts := map[string]int{}
	var order []string
	for _, rec := range ctx.IntentHistory {
		category := intentCategory(rec.Intent)
		if _, seen := counts[category]; !seen {
			order = append(order, category)
		}
		counts[category]++
	}

	best := order[0]
	for _, category := range order[1:] {
		if counts[category] > counts[best] {
			best = category
		}
	}
	return best
}

func intentCategory(intent string) string {
	if i := strings.Index(intent, "."); i >= 0 {
		return intent[:i]
	}
	return intent
}

func dedupe(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func snapshot(ctx *Context) Context {
	out := *ctx

	out.Topics = append([]string{}, ctx.Topics...)
	out.IntentHistory = append([]IntentRecord{}, ctx.IntentHistory...)
	out.UserQuestions = append([]Question{}, ctx.UserQuestions...)
	out.Feedback = append([]Feedback{}, ctx.Feedback...)

	out.Entities = make(map[string][]string, len(ctx.Entities))
	for k, v := range ctx.Entities {
		out.Entities[k] = append([]string{}, v...)
	}
	out.RecentReferences = make(map[string]string, len(ctx.RecentReferences))
	for k, v := range ctx.RecentReferences {
		out.RecentReferences[k] = v
	}

	return out
}
