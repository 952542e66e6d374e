package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)}
	return NewStore(clock), clock
}

func TestGetContextCreatesSession(t *testing.T) {
	store, clock := newTestStore()

	ctx := store.GetContext("fam-1")
	assert.Equal(t, clock.now, ctx.SessionStart)
	assert.Equal(t, 0, ctx.MessageCount)
	assert.Empty(t, ctx.Topics)
}

func TestSessionExpiresAfterInactivity(t *testing.T) {
	store, clock := newTestStore()

	store.UpdateContext("fam-1", MessageInfo{Topic: "tasks", Intent: "task.add", Confidence: 0.8})
	require.Equal(t, 1, store.GetContext("fam-1").MessageCount)

	// activity within the window keeps the session alive
	clock.advance(29 * time.Minute)
	assert.Equal(t, 1, store.GetContext("fam-1").MessageCount)

	// a 30+ minute gap starts fresh
	clock.advance(31 * time.Minute)
	ctx := store.GetContext("fam-1")
	assert.Equal(t, 0, ctx.MessageCount)
	assert.Empty(t, ctx.Topics)
}

func TestTopicsAreMostRecentFirstAndBounded(t *testing.T) {
	store, _ := newTestStore()

	for i := 0; i < 15; i++ {
		store.UpdateContext("fam-1", MessageInfo{Topic: fmt.Sprintf("topic-%d", i)})
	}
	ctx := store.GetContext("fam-1")
	require.Len(t, ctx.Topics, maxTopics)
	assert.Equal(t, "topic-14", ctx.Topics[0])

	// re-mentioning a topic moves it to the front without duplicating it
	store.UpdateContext("fam-1", MessageInfo{Topic: "topic-10"})
	ctx = store.GetContext("fam-1")
	assert.Equal(t, "topic-10", ctx.Topics[0])
	assert.Len(t, ctx.Topics, maxTopics)
}

func TestEntitiesMergeNewestFirstAndBounded(t *testing.T) {
	store, _ := newTestStore()

	store.UpdateContext("fam-1", MessageInfo{Entities: map[string][]string{"childName": {"Maya"}}})
	store.UpdateContext("fam-1", MessageInfo{Entities: map[string][]string{"childName": {"Leo", "Maya"}}})

	ctx := store.GetContext("fam-1")
	assert.Equal(t, []string{"Leo", "Maya"}, ctx.Entities["childName"])

	for i := 0; i < 30; i++ {
		store.UpdateContext("fam-1", MessageInfo{
			Entities: map[string][]string{"person": {fmt.Sprintf("p%d", i)}},
		})
	}
	ctx = store.GetContext("fam-1")
	assert.Len(t, ctx.Entities["person"], maxEntities)
	assert.Equal(t, "p29", ctx.Entities["person"][0])
}

func TestIntentHistoryBounded(t *testing.T) {
	store, _ := newTestStore()

	for i := 0; i < 25; i++ {
		store.UpdateContext("fam-1", MessageInfo{Intent: fmt.Sprintf("task.add.%d", i), Confidence: 0.5})
	}
	ctx := store.GetContext("fam-1")
	require.Len(t, ctx.IntentHistory, maxIntents)
	assert.Equal(t, "task.add.24", ctx.IntentHistory[0].Intent)
}

func TestCurrentFocusFollowsConfidentIntents(t *testing.T) {
	store, _ := newTestStore()

	store.UpdateContext("fam-1", MessageInfo{Intent: "task.add", Confidence: 0.5})
	assert.Empty(t, store.GetContext("fam-1").CurrentFocus)

	store.UpdateContext("fam-1", MessageInfo{Intent: "calendar.add", Confidence: 0.85})
	assert.Equal(t, "calendar", store.GetContext("fam-1").CurrentFocus)
}

func TestQuestionsTrackedAndResolved(t *testing.T) {
	store, _ := newTestStore()

	store.UpdateContext("fam-1", MessageInfo{Text: "who has the most tasks?", IsQuestion: true})
	store.UpdateContext("fam-1", MessageInfo{Text: "when is the checkup?", IsQuestion: true})

	summary := store.GetConversationSummary("fam-1")
	require.Len(t, summary.OpenQuestions, 2)

	store.ResolveQuestion("fam-1", 0)
	summary = store.GetConversationSummary("fam-1")
	require.Len(t, summary.OpenQuestions, 1)
	assert.Equal(t, "when is the checkup?", summary.OpenQuestions[0])

	// out-of-range indexes are ignored
	store.ResolveQuestion("fam-1", 99)
}

func TestDominantIntent(t *testing.T) {
	store, _ := newTestStore()

	assert.Empty(t, store.GetDominantIntent("fam-1"))

	store.UpdateContext("fam-1", MessageInfo{Intent: "task.add"})
	store.UpdateContext("fam-1", MessageInfo{Intent: "task.list"})
	store.UpdateContext("fam-1", MessageInfo{Intent: "calendar.add"})
	assert.Equal(t, "task", store.GetDominantIntent("fam-1"))
}

func TestGetProminentReturnsMostRecentPerType(t *testing.T) {
	store, _ := newTestStore()

	store.UpdateContext("fam-1", MessageInfo{Entities: map[string][]string{
		"childName": {"Maya"},
		"date":      {"tomorrow"},
	}})
	store.UpdateContext("fam-1", MessageInfo{Entities: map[string][]string{
		"childName": {"Leo"},
	}})

	prominent := store.GetProminent("fam-1")
	assert.Equal(t, "Leo", prominent["childName"])
	assert.Equal(t, "tomorrow", prominent["date"])
}

func TestFeedbackAndReferences(t *testing.T) {
	store, _ := newTestStore()

	store.AddFeedback("fam-1", "msg-1", "helpful", "")
	ctx := store.GetContext("fam-1")
	require.Len(t, ctx.Feedback, 1)
	assert.Equal(t, "helpful", ctx.Feedback[0].Type)

	store.UpdateContext("fam-1", MessageInfo{References: map[string]string{"child": "Maya"}})
	assert.Equal(t, "Maya", store.GetContext("fam-1").RecentReferences["child"])
}

func TestSnapshotIsolation(t *testing.T) {
	store, _ := newTestStore()

	store.UpdateContext("fam-1", MessageInfo{Topic: "tasks", Entities: map[string][]string{"person": {"Sara"}}})
	ctx := store.GetContext("fam-1")
	ctx.Topics[0] = "mutated"
	ctx.Entities["person"][0] = "mutated"

	fresh := store.GetContext("fam-1")
	assert.Equal(t, "tasks", fresh.Topics[0])
	assert.Equal(t, "Sara", fresh.Entities["person"][0])
}

func TestSessionsAreIsolatedByFamily(t *testing.T) {
	store, _ := newTestStore()

	store.UpdateContext("fam-1", MessageInfo{Topic: "tasks"})
	assert.Empty(t, store.GetContext("fam-2").Topics)
}
