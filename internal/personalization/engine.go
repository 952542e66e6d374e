package personalization

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/allie-ai/allie-core/internal/core"
	logx "github.com/allie-ai/allie-core/pkg/logger"
)

const settingsCacheTTL = 5 * time.Minute

// Interaction is one observed exchange the engine can learn from.
type Interaction struct {
	Intent        string
	Feedback      string // "helpful" marks the intent as worth prioritizing
	MessageLength int
	UserReaction  string // "positive" or "negative"
	Topics        []string
	Duration      time.Duration
}

// Suggestion proposes one settings change derived from usage patterns.
type Suggestion struct {
	Type       string  `json:"type"` // verbosity, focusAreas, personalityProfile
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Suggestion types.
const (
	SuggestionVerbosity  = "verbosity"
	SuggestionFocusAreas = "focusAreas"
	SuggestionProfile    = "personalityProfile"
)

type cachedSettings struct {
	settings Settings
	fetched  time.Time
}

// Engine manages per-family personalization: settings with learning,
// prompt section assembly, and response post-processing.
type Engine struct {
	mu    sync.Mutex
	store Store
	clock core.Clock
	cache map[string]cachedSettings
}

// NewEngine builds an engine on the given store. A nil clock falls back
// to the system clock.
func NewEngine(store Store, clock core.Clock) *Engine {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Engine{
		store: store,
		clock: clock,
		cache: map[string]cachedSettings{},
	}
}

// GetSettings returns the family's settings, creating defaults on first
// access. Store failures degrade to defaults rather than blocking the
// response path.
func (e *Engine) GetSettings(ctx context.Context, familyID string) Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getLocked(ctx, familyID)
}

func (e *Engine) getLocked(ctx context.Context, familyID string) Settings {
	now := e.clock.Now()
	if cached, ok := e.cache[familyID]; ok && now.Sub(cached.fetched) < settingsCacheTTL {
		return cached.settings.clone()
	}

	settings, err := e.store.LoadSettings(ctx, familyID)
	switch {
	case errors.Is(err, ErrNotFound):
		settings = DefaultSettings()
		settings.CreatedAt = now
		settings.UpdatedAt = now
		if err := e.store.SaveSettings(ctx, familyID, settings); err != nil {
			logx.Warn().Err(err).Str("family_id", familyID).Msg("failed to initialize personalization settings")
		}
	case err != nil:
		logx.Warn().Err(err).Str("family_id", familyID).Msg("failed to load personalization settings, using defaults")
		return DefaultSettings()
	}

	e.cache[familyID] = cachedSettings{settings: settings, fetched: now}
	return settings.clone()
}

// UpdateSettings applies mutate to the family's current settings and
// persists the result.
func (e *Engine) UpdateSettings(ctx context.Context, familyID string, mutate func(*Settings)) (Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings := e.getLocked(ctx, familyID)
	mutate(&settings)
	settings.UpdatedAt = e.clock.Now()

	if err := e.store.SaveSettings(ctx, familyID, settings); err != nil {
		return Settings{}, err
	}
	e.cache[familyID] = cachedSettings{settings: settings, fetched: e.clock.Now()}
	return settings.clone(), nil
}

// LearnFromInteraction folds one interaction into the family's settings:
// helpful intents are prioritized, reaction-weighted length buckets drive
// the verbosity level, and engagement time accumulates per topic.
func (e *Engine) LearnFromInteraction(ctx context.Context, familyID string, in Interaction) error {
	if familyID == "" {
		return errors.New("personalization: family id required")
	}

	changed := false
	_, err := e.UpdateSettings(ctx, familyID, func(s *Settings) {
		if in.Feedback == "helpful" && in.Intent != "" {
			if s.PrioritizedIntents == nil {
				s.PrioritizedIntents = map[string]int{}
			}
			s.PrioritizedIntents[in.Intent]++
			changed = true
		}

		if in.MessageLength > 0 && in.UserReaction != "" {
			if s.LengthPreference == nil {
				s.LengthPreference = &LengthPreference{}
			}
			delta := 1
			if in.UserReaction != "positive" {
				delta = -1
			}
			switch {
			case in.MessageLength < 300:
				s.LengthPreference.Short += delta
			case in.MessageLength < 800:
				s.LengthPreference.Medium += delta
			default:
				s.LengthPreference.Long += delta
			}

			lp := s.LengthPreference
			switch {
			case lp.Short > lp.Medium && lp.Short > lp.Long:
				s.VerbosityLevel = VerbosityConcise
			case lp.Long > lp.Short && lp.Long > lp.Medium:
				s.VerbosityLevel = VerbosityDetailed
			default:
				s.VerbosityLevel = VerbosityBalanced
			}
			changed = true
		}

		if len(in.Topics) > 0 && in.Duration > 0 {
			if s.TopicInterests == nil {
				s.TopicInterests = map[string]float64{}
			}
			for _, topic := range in.Topics {
				s.TopicInterests[topic] += in.Duration.Seconds()
			}
			changed = true
		}
	})
	if err != nil {
		return err
	}
	if changed {
		logx.Debug().Str("family_id", familyID).Str("intent", in.Intent).Msg("learned from interaction")
	}
	return nil
}

// Topic keywords mapped onto focus areas, checked in order.
var focusAreaMapping = []struct {
	keyword string
	area    string
}{
	{"task", "task_management"},
	{"balance", "workload_balance"},
	{"child", "child_development"},
	{"relationship", "relationship_support"},
	{"calendar", "schedule_coordination"},
	{"survey", "data_insights"},
}

// AdaptationSuggestions derives settings changes from accumulated usage:
// verbosity from length-bucket shares, focus areas from top topic
// engagement, and personality profile from prioritized intent patterns.
func (e *Engine) AdaptationSuggestions(ctx context.Context, familyID string) []Suggestion {
	settings := e.GetSettings(ctx, familyID)

	var suggestions []Suggestion

	if lp := settings.LengthPreference; lp != nil {
		total := lp.Short + lp.Medium + lp.Long
		if total >= 10 {
			shortPct := float64(lp.Short) / float64(total) * 100
			longPct := float64(lp.Long) / float64(total) * 100

			if shortPct > 60 && settings.VerbosityLevel != VerbosityConcise {
				suggestions = append(suggestions, Suggestion{
					Type:       SuggestionVerbosity,
					Value:      VerbosityConcise,
					Confidence: shortPct / 100,
					Reason:     "User has positively responded to shorter messages more than 60% of the time.",
				})
			} else if longPct > 60 && settings.VerbosityLevel != VerbosityDetailed {
				suggestions = append(suggestions, Suggestion{
					Type:       SuggestionVerbosity,
					Value:      VerbosityDetailed,
					Confidence: longPct / 100,
					Reason:     "User has positively responded to detailed messages more than 60% of the time.",
				})
			}
		}
	}

	if len(settings.TopicInterests) >= 3 {
		topics := lo.Keys(settings.TopicInterests)
		sort.Slice(topics, func(i, j int) bool {
			a, b := settings.TopicInterests[topics[i]], settings.TopicInterests[topics[j]]
			if a != b {
				return a > b
			}
			return topics[i] < topics[j]
		})
		if len(topics) > 3 {
			topics = topics[:3]
		}

		var areas []string
		for _, topic := range topics {
			for _, m := range focusAreaMapping {
				if strings.Contains(topic, m.keyword) && !lo.Contains(areas, m.area) {
					areas = append(areas, m.area)
					break
				}
			}
		}

		covered := lo.Every(areas, settings.FocusAreas)
		if len(areas) > 0 && !covered {
			suggestions = append(suggestions, Suggestion{
				Type:       SuggestionFocusAreas,
				Value:      areas,
				Confidence: 0.7,
				Reason:     "User shows higher engagement with these topic areas.",
			})
		}
	}

	if len(settings.PrioritizedIntents) > 0 {
		if profile, count := bestProfileFit(settings.PrioritizedIntents); profile != settings.PersonalityProfile && count >= 3 {
			suggestions = append(suggestions, Suggestion{
				Type:       SuggestionProfile,
				Value:      profile,
				Confidence: 0.6 + float64(count)*0.05,
				Reason:     fmt.Sprintf("User's interaction patterns align better with the %s personality profile.", profile),
			})
		}
	}

	return suggestions
}

// bestProfileFit scores each personality profile by how many prioritized
// intents match its signature keywords.
func bestProfileFit(intents map[string]int) (string, int) {
	signatures := []struct {
		profile  string
		keywords []string
	}{
		{ProfileSupportive, []string{"help", "support", "advice"}},
		{ProfileEfficient, []string{"task", "schedule", "calendar"}},
		{ProfileAnalytical, []string{"data", "analysis", "survey"}},
		{ProfileCoach, []string{"learn", "improve", "develop"}},
	}

	best, bestCount := ProfileSupportive, 0
	for _, sig := range signatures {
		count := 0
		for intent := range intents {
			for _, kw := range sig.keywords {
				if strings.Contains(intent, kw) {
					count++
					break
				}
			}
		}
		if count > bestCount {
			best, bestCount = sig.profile, count
		}
	}
	return best, bestCount
}

// ApplyAutomaticAdaptations applies all suggestions with confidence at or
// above 0.8 and appends them to the family's adaptation log. It reports
// whether anything was applied.
func (e *Engine) ApplyAutomaticAdaptations(ctx context.Context, familyID string) (bool, error) {
	suggestions := e.AdaptationSuggestions(ctx, familyID)

	confident := lo.Filter(suggestions, func(s Suggestion, _ int) bool {
		return s.Confidence >= 0.8
	})
	if len(confident) == 0 {
		return false, nil
	}

	_, err := e.UpdateSettings(ctx, familyID, func(s *Settings) {
		for _, suggestion := range confident {
			switch suggestion.Type {
			case SuggestionVerbosity:
				if v, ok := suggestion.Value.(string); ok {
					s.VerbosityLevel = v
				}
			case SuggestionFocusAreas:
				if areas, ok := suggestion.Value.([]string); ok {
					s.FocusAreas = areas
				}
			case SuggestionProfile:
				if p, ok := suggestion.Value.(string); ok {
					s.PersonalityProfile = p
				}
			}
		}
	})
	if err != nil {
		return false, err
	}

	rec := AdaptationRecord{Timestamp: e.clock.Now(), Suggestions: confident}
	if err := e.store.AppendAdaptation(ctx, familyID, rec); err != nil {
		logx.Warn().Err(err).Str("family_id", familyID).Msg("failed to log adaptation")
	}

	logx.Info().
		Str("family_id", familyID).
		Int("applied", len(confident)).
		Msg("applied automatic personalization adaptations")
	return true, nil
}
