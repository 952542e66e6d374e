package personalization

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allie-ai/allie-core/internal/classifier"
	"github.com/allie-ai/allie-core/internal/conversation"
	"github.com/allie-ai/allie-core/internal/family"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine() (*Engine, *MemoryStore, *fakeClock) {
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)}
	return NewEngine(store, clock), store, clock
}

func testFamily() *family.Data {
	return &family.Data{
		FamilyID:   "fam-1",
		FamilyName: "Johnson",
		Members: []family.Member{
			{ID: "p1", Name: "Sara", Role: family.RoleParent, RoleType: family.RoleTypeMama},
			{ID: "p2", Name: "Tom", Role: family.RoleParent, RoleType: family.RoleTypePapa},
			{ID: "c1", Name: "Maya", Role: family.RoleChild},
		},
		Tasks: []family.Task{
			{ID: "t1", Title: "Grocery shopping", AssignedTo: "p1"},
			{ID: "t2", Title: "School pickup", AssignedTo: "p2", Completed: true},
		},
		MamaPercentage: 65.0,
	}
}

func TestGetSettingsCreatesDefaults(t *testing.T) {
	e, store, _ := newTestEngine()
	ctx := context.Background()

	settings := e.GetSettings(ctx, "fam-1")
	assert.Equal(t, ProfileSupportive, settings.PersonalityProfile)
	assert.Equal(t, VerbosityBalanced, settings.VerbosityLevel)
	assert.Equal(t, []string{"workload_balance", "communication", "family_time"}, settings.FocusAreas)
	assert.True(t, settings.Communication.UseEmoji)

	// defaults are persisted on first access
	persisted, err := store.LoadSettings(ctx, "fam-1")
	require.NoError(t, err)
	assert.Equal(t, ProfileSupportive, persisted.PersonalityProfile)
}

func TestSettingsCacheExpiry(t *testing.T) {
	e, store, clock := newTestEngine()
	ctx := context.Background()

	_ = e.GetSettings(ctx, "fam-1")

	// write behind the engine's back; the cache still serves the old value
	stale, err := store.LoadSettings(ctx, "fam-1")
	require.NoError(t, err)
	stale.PersonalityProfile = ProfileCoach
	require.NoError(t, store.SaveSettings(ctx, "fam-1", stale))

	assert.Equal(t, ProfileSupportive, e.GetSettings(ctx, "fam-1").PersonalityProfile)

	clock.advance(6 * time.Minute)
	assert.Equal(t, ProfileCoach, e.GetSettings(ctx, "fam-1").PersonalityProfile)
}

func TestUpdateSettingsMerges(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	updated, err := e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.VerbosityLevel = VerbosityConcise
	})
	require.NoError(t, err)
	assert.Equal(t, VerbosityConcise, updated.VerbosityLevel)
	// untouched fields keep their defaults
	assert.Equal(t, ProfileSupportive, updated.PersonalityProfile)

	assert.Equal(t, VerbosityConcise, e.GetSettings(ctx, "fam-1").VerbosityLevel)
}

func TestLearnFromInteraction(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, e.LearnFromInteraction(ctx, "fam-1", Interaction{
		Intent:   "task.add",
		Feedback: "helpful",
	}))
	require.NoError(t, e.LearnFromInteraction(ctx, "fam-1", Interaction{
		Intent:   "task.add",
		Feedback: "helpful",
	}))

	settings := e.GetSettings(ctx, "fam-1")
	assert.Equal(t, 2, settings.PrioritizedIntents["task.add"])

	assert.Error(t, e.LearnFromInteraction(ctx, "", Interaction{}))
}

func TestLearnVerbosityFromLengthReactions(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	// repeated positive reactions to short responses flip to concise
	for i := 0; i < 3; i++ {
		require.NoError(t, e.LearnFromInteraction(ctx, "fam-1", Interaction{
			MessageLength: 150,
			UserReaction:  "positive",
		}))
	}
	assert.Equal(t, VerbosityConcise, e.GetSettings(ctx, "fam-1").VerbosityLevel)

	// enough positive long reactions flip it back the other way
	for i := 0; i < 5; i++ {
		require.NoError(t, e.LearnFromInteraction(ctx, "fam-1", Interaction{
			MessageLength: 1000,
			UserReaction:  "positive",
		}))
	}
	assert.Equal(t, VerbosityDetailed, e.GetSettings(ctx, "fam-1").VerbosityLevel)
}

func TestLearnTopicEngagement(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, e.LearnFromInteraction(ctx, "fam-1", Interaction{
		Topics:   []string{"tasks", "balance"},
		Duration: 30 * time.Second,
	}))
	require.NoError(t, e.LearnFromInteraction(ctx, "fam-1", Interaction{
		Topics:   []string{"tasks"},
		Duration: 10 * time.Second,
	}))

	settings := e.GetSettings(ctx, "fam-1")
	assert.InDelta(t, 40, settings.TopicInterests["tasks"], 0.001)
	assert.InDelta(t, 30, settings.TopicInterests["balance"], 0.001)
}

func TestAdaptationSuggestionsVerbosity(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	// too few samples, no suggestion
	_, err := e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.LengthPreference = &LengthPreference{Short: 5, Medium: 1, Long: 1}
	})
	require.NoError(t, err)
	assert.Empty(t, e.AdaptationSuggestions(ctx, "fam-1"))

	_, err = e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.LengthPreference = &LengthPreference{Short: 9, Medium: 2, Long: 1}
	})
	require.NoError(t, err)

	suggestions := e.AdaptationSuggestions(ctx, "fam-1")
	require.Len(t, suggestions, 1)
	assert.Equal(t, SuggestionVerbosity, suggestions[0].Type)
	assert.Equal(t, VerbosityConcise, suggestions[0].Value)
	assert.InDelta(t, 0.75, suggestions[0].Confidence, 0.001)

	// already concise, nothing to suggest
	_, err = e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.VerbosityLevel = VerbosityConcise
	})
	require.NoError(t, err)
	assert.Empty(t, e.AdaptationSuggestions(ctx, "fam-1"))
}

func TestAdaptationSuggestionsFocusAreas(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.TopicInterests = map[string]float64{
			"child development": 120,
			"calendar planning": 90,
			"survey results":    60,
		}
	})
	require.NoError(t, err)

	suggestions := e.AdaptationSuggestions(ctx, "fam-1")
	require.Len(t, suggestions, 1)
	assert.Equal(t, SuggestionFocusAreas, suggestions[0].Type)
	assert.Equal(t, []string{"child_development", "schedule_coordination", "data_insights"}, suggestions[0].Value)
	assert.InDelta(t, 0.7, suggestions[0].Confidence, 0.001)
}

func TestAdaptationSuggestionsProfileFit(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.PrioritizedIntents = map[string]int{
			"task.add":      3,
			"task.complete": 2,
			"calendar.add":  1,
			"schedule.view": 1,
		}
	})
	require.NoError(t, err)

	suggestions := e.AdaptationSuggestions(ctx, "fam-1")
	require.Len(t, suggestions, 1)
	assert.Equal(t, SuggestionProfile, suggestions[0].Type)
	assert.Equal(t, ProfileEfficient, suggestions[0].Value)
	// 0.6 base plus 0.05 per matching intent
	assert.InDelta(t, 0.8, suggestions[0].Confidence, 0.001)
}

func TestApplyAutomaticAdaptations(t *testing.T) {
	e, store, _ := newTestEngine()
	ctx := context.Background()

	// profile fit at 0.8 confidence crosses the automatic threshold
	_, err := e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.PrioritizedIntents = map[string]int{
			"task.add":       1,
			"task.complete":  1,
			"calendar.check": 1,
			"schedule.view":  1,
		}
	})
	require.NoError(t, err)

	applied, err := e.ApplyAutomaticAdaptations(ctx, "fam-1")
	require.NoError(t, err)
	assert.True(t, applied)

	settings := e.GetSettings(ctx, "fam-1")
	assert.Equal(t, ProfileEfficient, settings.PersonalityProfile)

	log := store.Adaptations("fam-1")
	require.Len(t, log, 1)
	require.Len(t, log[0].Suggestions, 1)
	assert.Equal(t, SuggestionProfile, log[0].Suggestions[0].Type)

	// profile now matches, nothing further to apply
	applied, err = e.ApplyAutomaticAdaptations(ctx, "fam-1")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestGeneratePrompt(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	analysis := classifier.Analysis{
		Classification: classifier.Classification{Intent: "task.add", Confidence: 0.8},
		ConversationContext: conversation.Summary{
			Topics:            []string{"workload balance", "chores"},
			MessageCount:      3,
			DominantIntent:    "task",
			ProminentEntities: map[string]string{"childName": "Maya"},
			CurrentFocus:      "task",
		},
	}

	prompt := e.GeneratePrompt(ctx, "fam-1", analysis, testFamily())

	assert.Contains(t, prompt, "You are Allie")
	assert.Contains(t, prompt, "Today's date is 3/4/2026")
	assert.Contains(t, prompt, "PERSONALITY:")
	assert.Contains(t, prompt, "warm and encouraging")
	assert.Contains(t, prompt, "CONVERSATION CONTEXT:")
	assert.Contains(t, prompt, "Message count in this session: 3")
	assert.Contains(t, prompt, "Dominant intent category: task")
	assert.Contains(t, prompt, "- workload balance")
	assert.Contains(t, prompt, "- childName: Maya")
	assert.Contains(t, prompt, "RESPONSE FOCUS:")
	assert.Contains(t, prompt, "Primary intent detected: task.add (80% confidence)")
	assert.Contains(t, prompt, "For task management queries:")
	assert.Contains(t, prompt, "RESPONSE FORMATTING:")
	assert.Contains(t, prompt, "Family Name: Johnson")
	assert.Contains(t, prompt, "Children: Maya")
	assert.Contains(t, prompt, "Tasks: 2 tasks tracked")
	assert.Contains(t, prompt, "Current Workload Split: Mama 65.0%, Papa 35.0%")
}

func TestGeneratePromptPrioritizedIntent(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.PrioritizedIntents = map[string]int{"task.add": 2}
	})
	require.NoError(t, err)

	analysis := classifier.Analysis{
		Classification: classifier.Classification{Intent: "task.add", Confidence: 0.8},
	}
	prompt := e.GeneratePrompt(ctx, "fam-1", analysis, testFamily())
	assert.Contains(t, prompt, "high priority intent for this family")
}

func TestPersonalizeResponseVerbosityTrim(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.VerbosityLevel = VerbosityConcise
		s.Communication.UseEmoji = false
		s.Communication.FormatPreference = "text-only"
	})
	require.NoError(t, err)

	intro := strings.Repeat("Intro sentence here. ", 10)
	filler := strings.Repeat("Some filler text. ", 10)
	key := "We recommend splitting the school runs evenly."
	closing := "Let me know how it goes."
	long := strings.Join([]string{intro, filler, key, filler, closing}, "\n\n")

	out := e.PersonalizeResponse(ctx, "fam-1", long, nil)
	assert.Less(t, len(out), len(long))
	assert.Contains(t, out, "recommend splitting the school runs")
	assert.Contains(t, out, closing)
}

func TestPersonalizeResponseEnhanceDetail(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.VerbosityLevel = VerbosityDetailed
		s.Communication.UseEmoji = false
		s.Communication.FormatPreference = "text-only"
	})
	require.NoError(t, err)

	out := e.PersonalizeResponse(ctx, "fam-1", "Here is a quick thought on how you share tasks and the workload.", testFamily())
	assert.Contains(t, out, "pending tasks in the Johnson family dashboard")
	assert.Contains(t, out, `"Grocery shopping" assigned to Sara`)
	// name substitution rewrites the survey line's role words
	assert.Contains(t, out, "Sara 65.0%, Tom 35.0%")
}

func TestPersonalizeResponseEmoji(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	// defaults have emoji enabled
	out := e.PersonalizeResponse(ctx, "fam-1", "Here is an update on your task list for the week.", nil)
	assert.True(t, containsEmoji(out))

	_, err := e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.Communication.UseEmoji = false
		s.Communication.FormatPreference = "text-only"
	})
	require.NoError(t, err)

	out = e.PersonalizeResponse(ctx, "fam-1", "✅ Here is an update on your task list.", nil)
	assert.False(t, containsEmoji(out))
}

func TestPersonalizeResponseNameSubstitution(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.UpdateSettings(ctx, "fam-1", func(s *Settings) {
		s.Communication.UseEmoji = false
		s.Communication.FormatPreference = "text-only"
	})
	require.NoError(t, err)

	out := e.PersonalizeResponse(ctx, "fam-1",
		"Perhaps mom could handle mornings while dad covers pickups, so your child gets consistency and your family stays on track.",
		testFamily())
	assert.Contains(t, out, "Sara could handle mornings")
	assert.Contains(t, out, "Tom covers pickups")
	assert.Contains(t, out, "Maya gets consistency")
	assert.Contains(t, out, "the Johnson family stays on track")
}

func TestEnhanceVisualFormatting(t *testing.T) {
	in := "Here are some thoughts on your week.\n\nThree steps to get started:\n\nplan meals, share pickups, rotate bedtime"
	out := enhanceVisualFormatting(in)
	assert.Contains(t, out, "## Three steps to get started:")
	assert.Contains(t, out, "- plan meals")
	assert.Contains(t, out, "- share pickups")

	// already formatted text passes through untouched
	formatted := "Intro.\n\n- one\n- two"
	assert.Equal(t, formatted, enhanceVisualFormatting(formatted))
}

func TestToPlainText(t *testing.T) {
	in := "## Plan\n\n- first item\n1. second item\n**bold** and _quiet_"
	out := toPlainText(in)
	assert.NotContains(t, out, "##")
	assert.NotContains(t, out, "**")
	assert.Contains(t, out, "• first item")
	assert.Contains(t, out, "bold and quiet")
}
