package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allie-ai/allie-core/internal/conversation"
	"github.com/allie-ai/allie-core/internal/family"
	"github.com/allie-ai/allie-core/internal/graph"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

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
			{ID: "t2", Title: "School pickup", AssignedTo: "p2"},
		},
		Providers: []family.Provider{
			{ID: "pr1", Name: "Dr. Smith", Specialty: "pediatrician"},
		},
	}
}

func newTestService() (*Service, *conversation.Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)}
	conv := conversation.NewStore(clock)
	g := graph.NewService(graph.NewMemoryStore(), clock)
	return NewService(g, conv, clock), conv, clock
}

func TestKnowledgeBaseDirectAnswer(t *testing.T) {
	s, _, _ := newTestService()

	result := s.Retrieve(context.Background(), "How does Allie measure workload balance?", "", nil)

	require.NotEmpty(t, result.Content)
	assert.Equal(t, "direct-answer", result.Content[0].Type)
	assert.InDelta(t, 1.0, result.Content[0].Relevance, 0.001)
	assert.Contains(t, result.Content[0].Text, "80-question initial survey")
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, "faq", result.Sources[0].Type)
	assert.InDelta(t, 0.95, result.Sources[0].Confidence, 0.001)

	// direct answer lifts confidence to the top of the scale
	assert.InDelta(t, 1.0, result.Confidence, 0.001)
}

func TestKnowledgeBaseResearchFindings(t *testing.T) {
	s, _, _ := newTestService()

	result := s.Retrieve(context.Background(), "what does research say about mental load data", "", nil)

	var found *Content
	for i := range result.Content {
		if result.Content[i].Type == "research-finding" {
			found = &result.Content[i]
		}
	}
	require.NotNil(t, found)
	assert.Contains(t, found.Text, "mental load")

	// weak best match is penalized
	assert.Less(t, result.Confidence, 0.5)
}

func TestFamilyDataRetrieval(t *testing.T) {
	s, _, _ := newTestService()

	result := s.Retrieve(context.Background(), "what tasks do we have this week", "", testFamily())

	var tasks *Content
	for i := range result.Content {
		if result.Content[i].Type == "family-tasks" {
			tasks = &result.Content[i]
		}
	}
	require.NotNil(t, tasks)
	assert.Contains(t, tasks.Text, "Grocery shopping (assigned to Sara)")

	result = s.Retrieve(context.Background(), "who is our doctor", "", testFamily())
	var providers *Content
	for i := range result.Content {
		if result.Content[i].Type == "family-providers" {
			providers = &result.Content[i]
		}
	}
	require.NotNil(t, providers)
	assert.Contains(t, providers.Text, "Dr. Smith (pediatrician)")
}

func TestUpcomingAppointments(t *testing.T) {
	s, _, clock := newTestService()

	fam := testFamily()
	fam.Appointments = []family.Appointment{
		{ID: "a1", ChildID: "c1", Title: "Dentist visit", Date: clock.now.AddDate(0, 0, 3)},
		{ID: "a2", ChildID: "c1", Title: "Old checkup", Date: clock.now.AddDate(0, 0, -10)},
	}

	result := s.Retrieve(context.Background(), "any upcoming appointments", "", fam)

	var appts *Content
	for i := range result.Content {
		if result.Content[i].Type == "family-appointments" {
			appts = &result.Content[i]
		}
	}
	require.NotNil(t, appts)
	assert.Contains(t, appts.Text, "Dentist visit")
	assert.NotContains(t, appts.Text, "Old checkup")
}

func TestConversationHistoryRetrieval(t *testing.T) {
	s, conv, _ := newTestService()

	conv.UpdateContext("fam-1", conversation.MessageInfo{
		Text:       "What should we do about workload balance?",
		Topic:      "workload balance",
		IsQuestion: true,
		Entities:   map[string][]string{"childName": {"Maya"}},
	})
	conv.ResolveQuestion("fam-1", 0)

	result := s.Retrieve(context.Background(), "how do we balance workload at home with Maya", "fam-1", nil)

	types := make(map[string]bool)
	for _, c := range result.Content {
		types[c.Type] = true
	}
	assert.True(t, types["conversation-history"], "expected previous question content")
	assert.True(t, types["referenced-entity"], "expected referenced entity content")
}

func TestGraphRetrieval(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	_, err := s.graph.LoadFamilyData(ctx, testFamily())
	require.NoError(t, err)

	result := s.Retrieve(ctx, "show all tasks", "fam-1", nil)

	var entities int
	for _, c := range result.Content {
		if c.Type == "entity" {
			entities++
		}
	}
	assert.Equal(t, 2, entities)
}

func TestRetrievalCache(t *testing.T) {
	s, _, clock := newTestService()
	ctx := context.Background()

	fam := testFamily()
	first := s.Retrieve(ctx, "what tasks do we have", "", fam)
	require.NotEmpty(t, first.Content)

	// within the TTL the cached bundle is served even if data changed
	fam.Tasks = nil
	second := s.Retrieve(ctx, "what tasks do we have", "", fam)
	assert.Equal(t, first, second)

	clock.advance(6 * time.Minute)
	third := s.Retrieve(ctx, "what tasks do we have", "", fam)
	assert.Empty(t, third.Content)
}

func TestRetrievalConfidenceFactors(t *testing.T) {
	assert.Zero(t, retrievalConfidence(Result{}))

	// single weak item: mean minus the low-top penalty
	weak := retrievalConfidence(Result{
		Content: []Content{{Relevance: 0.5}},
		Sources: []Source{{Confidence: 0.5}},
	})
	assert.InDelta(t, 0.3, weak, 0.001)

	// multiple sources add a bonus
	multi := retrievalConfidence(Result{
		Content: []Content{{Relevance: 0.8}, {Relevance: 0.8}},
		Sources: []Source{{}, {}},
	})
	assert.InDelta(t, 0.9, multi, 0.001)
}

func TestEnhancePrompt(t *testing.T) {
	base := "BASE PROMPT"

	// no content leaves the prompt untouched
	assert.Equal(t, base, EnhancePrompt(base, Result{}, "query"))

	// weak content adds only a note
	weak := EnhancePrompt(base, Result{
		Content: []Content{{Text: "something", Relevance: 0.5}},
	}, "screen time")
	assert.Contains(t, weak, `couldn't find specific research on "screen time"`)
	assert.NotContains(t, weak, "RELEVANT RESEARCH INFORMATION")

	strong := EnhancePrompt(base, Result{
		Content: []Content{{Text: "Mental Load: falls disproportionately on women.", Relevance: 0.9}},
		Sources: []Source{{Type: "research", Title: "Mental Load", Confidence: 0.9}},
	}, "mental load")
	assert.Contains(t, strong, "RELEVANT RESEARCH INFORMATION FOR THIS QUERY:")
	assert.Contains(t, strong, "[1] research: Mental Load")
	assert.Contains(t, strong, "INSTRUCTIONS FOR USING THIS RESEARCH:")
}

func TestAddCitations(t *testing.T) {
	result := Result{
		Sources:    []Source{{Type: "research", Title: "Mental Load", Confidence: 0.9}},
		Confidence: 0.8,
	}
	response := "The Mental Load research is clear.\n\nHere is what you can do about it."

	cited := AddCitations(response, result)
	assert.Contains(t, cited, "Sources:")
	assert.Contains(t, cited, "[1] Mental Load (research)")

	// no title echo, no citations
	assert.NotContains(t, AddCitations("Nothing related here.\n\nSecond paragraph.", result), "Sources:")

	// single paragraph responses stay clean
	assert.NotContains(t, AddCitations("The Mental Load research is clear.", result), "Sources:")

	// low retrieval confidence suppresses citations
	lowConf := result
	lowConf.Confidence = 0.3
	assert.NotContains(t, AddCitations(response, lowConf), "Sources:")
}
