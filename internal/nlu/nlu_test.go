package nlu

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allie-ai/allie-core/internal/family"
)

// Wednesday morning, used as the anchor for every date/time resolution test.
var testNow = time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)

func testFamily() *family.Data {
	return &family.Data{
		FamilyID:   "fam-1",
		FamilyName: "Johnson",
		Members: []family.Member{
			{ID: "m1", Name: "Sara", Role: family.RoleParent, RoleType: family.RoleTypeMama},
			{ID: "m2", Name: "Tom", Role: family.RoleParent, RoleType: family.RoleTypePapa},
			{ID: "m3", Name: "Maya", Role: family.RoleChild},
		},
		Tasks: []family.Task{
			{ID: "t1", Title: "Grocery shopping", AssignedTo: "m1"},
		},
	}
}

var intentNameFormat = regexp.MustCompile(`^[a-z]+\.[a-z_.]+$|^unknown$`)

func TestAnalyzeMessageAppointmentScenario(t *testing.T) {
	text := "add a dentist appointment for Maya tomorrow at 3pm"
	analysis := AnalyzeMessage(text, testFamily(), testNow)

	assert.Contains(t, []string{"medical.appointment.add", "child.add_appointment"}, analysis.Intent)
	assert.GreaterOrEqual(t, analysis.Confidence, 0.6)

	require.Contains(t, analysis.Entities.ChildNames, "Maya")

	require.NotEmpty(t, analysis.Entities.Dates)
	d := analysis.Entities.Dates[0]
	assert.Equal(t, "tomorrow", d.Value)
	assert.Equal(t, testNow.AddDate(0, 0, 1).Day(), d.Date.Day())

	require.NotEmpty(t, analysis.Entities.Times)
	tm := analysis.Entities.Times[0]
	assert.Equal(t, 15, tm.Hours)
	assert.Equal(t, 0, tm.Minutes)

	require.NotEmpty(t, analysis.Entities.EventTypes)
	assert.Equal(t, "appointment", analysis.Entities.EventTypes[0].Type)
}

func TestAnalyzeMessageResultsAreWellFormed(t *testing.T) {
	messages := []string{
		"",
		"add a dentist appointment for Maya tomorrow at 3pm",
		"what tasks do I have this week?",
		"hello there",
		"I'm feeling really overwhelmed with everything",
		"schedule a date night with Tom on Friday",
		"who does more of the household work?",
		"Maya learned to ride a bike today!",
		"remind me about the parent-teacher meeting on 04/12",
		"asdf qwerty zxcv",
	}
	fam := testFamily()
	for _, msg := range messages {
		analysis := AnalyzeMessage(msg, fam, testNow)
		assert.Regexp(t, intentNameFormat, analysis.Intent, "message %q", msg)
		assert.GreaterOrEqual(t, analysis.Confidence, 0.0, "message %q", msg)
		assert.LessOrEqual(t, analysis.Confidence, 1.0, "message %q", msg)
	}
}

func TestAnalyzeMessageIsDeterministic(t *testing.T) {
	fam := testFamily()
	messages := []string{
		"add a dentist appointment for Maya tomorrow at 3pm",
		"plan a dinner date with Sara next Friday in the evening",
		"I met Dr. Smith at Riverside Clinic on Monday",
	}
	for _, msg := range messages {
		first := AnalyzeMessage(msg, fam, testNow)
		second := AnalyzeMessage(msg, fam, testNow)
		require.Equal(t, first, second, "message %q", msg)
	}
}

func TestExtractEntitiesBoundsPathologicalInput(t *testing.T) {
	text := strings.Repeat("with Anna at 3pm tomorrow ", 10000)
	entities := ExtractEntities(text, nil, testNow)

	assert.LessOrEqual(t, len(entities.ChildNames), maxEntityMatches)
	assert.LessOrEqual(t, len(entities.People), maxEntityMatches*2+len(rolePatterns))
	assert.LessOrEqual(t, len(entities.Dates), maxEntityMatches)
}

func TestIntentResultCategoryAction(t *testing.T) {
	r := IntentResult{Intent: "medical.appointment.add"}
	assert.Equal(t, "medical", r.Category())
	assert.Equal(t, "appointment.add", r.Action())

	u := IntentResult{Intent: IntentUnknown}
	assert.Equal(t, "unknown", u.Category())
	assert.Equal(t, "", u.Action())
}

func TestEntitiesFlatten(t *testing.T) {
	entities := ExtractEntities("add a dentist appointment for Maya tomorrow at 3pm", testFamily(), testNow)
	flat := entities.Flatten()

	assert.Equal(t, []string{"Maya"}, flat["childName"])
	assert.NotEmpty(t, flat["date"])
	assert.NotEmpty(t, flat["time"])
	assert.NotEmpty(t, flat["eventType"])
	assert.NotContains(t, flat, "location")
}

func TestDetectSentiment(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I'm so happy and excited about this, it's wonderful", "positive"},
		{"I'm frustrated and stressed, this is terrible", "negative"},
		{"the meeting is at three", "neutral"},
	}
	for _, tt := range tests {
		s := DetectSentiment(tt.text)
		assert.Equal(t, tt.want, s.Type, "text %q", tt.text)
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 1.0)
	}
}

func TestDetectTopicCategories(t *testing.T) {
	topics := DetectTopicCategories("how should we balance the workload and our child's schedule")
	assert.Contains(t, topics, "tasks")
	assert.Contains(t, topics, "children")
}
