package nlu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEventDetailsAppointment(t *testing.T) {
	ev, ok := ExtractEventDetails("add a dentist appointment for Maya tomorrow at 3pm", testFamily(), testNow)
	require.True(t, ok)

	assert.Equal(t, "Dentist Appointment", ev.Title)
	assert.Equal(t, "appointment", ev.Category)
	assert.Equal(t, "Maya", ev.Person)
	assert.Equal(t, time.Date(2026, time.March, 5, 15, 0, 0, 0, time.UTC), ev.StartDate)
	assert.Equal(t, ev.StartDate.Add(time.Hour), ev.EndDate)
	assert.Contains(t, ev.Description, "dentist appointment for Maya")
}

func TestExtractEventDetailsDefaults(t *testing.T) {
	// no date, no time: tomorrow at the category default hour
	ev, ok := ExtractEventDetails("schedule a team meeting", nil, testNow)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC), ev.StartDate)
}

func TestExtractRelationshipEventDetails(t *testing.T) {
	ev, ok := ExtractRelationshipEventDetails("plan a dinner date with my partner next Friday", testFamily(), testNow)
	require.True(t, ok)

	assert.Equal(t, "date", ev.Type)
	assert.Equal(t, "relationship", ev.Category)
	// evening default for couple events
	assert.Equal(t, time.Date(2026, time.March, 13, 19, 0, 0, 0, time.UTC), ev.StartDate)
	assert.Equal(t, ev.StartDate.Add(2*time.Hour), ev.EndDate)
	assert.Equal(t, "Restaurant", ev.Location)
}

func TestExtractChildTrackingDetailsGrowth(t *testing.T) {
	details, ok := ExtractChildTrackingDetails("record Maya's height 95 cm and weight 14 kg", testFamily(), testNow)
	require.True(t, ok)

	assert.Equal(t, "growth", details.Type)
	assert.Equal(t, "Maya", details.Child)
	assert.Equal(t, "95 cm", details.Height)
	assert.Equal(t, "14 kg", details.Weight)
}

func TestExtractChildTrackingDetailsAppointment(t *testing.T) {
	details, ok := ExtractChildTrackingDetails("dentist checkup for Maya on Friday", testFamily(), testNow)
	require.True(t, ok)

	assert.Equal(t, "appointment", details.Type)
	assert.Equal(t, "dental", details.AppointmentType)
	assert.Equal(t, "Maya", details.Child)
	assert.False(t, details.Date.IsZero())
}

func TestExtractChildTrackingDetailsSingleChildFallback(t *testing.T) {
	details, ok := ExtractChildTrackingDetails("how is the homework going", testFamily(), testNow)
	require.True(t, ok)
	assert.Equal(t, "homework", details.Type)
	// only one child in the roster, so an unnamed mention resolves to them
	assert.Equal(t, "Maya", details.Child)
}

func TestExtractChildTrackingDetailsUnrecognized(t *testing.T) {
	_, ok := ExtractChildTrackingDetails("what is the weather like", testFamily(), testNow)
	assert.False(t, ok)
}

func TestExtractTaskDetailsAdd(t *testing.T) {
	details, ok := ExtractTaskDetails("add a new task to the list: wash the dishes", testFamily(), testNow)
	require.True(t, ok)

	assert.Equal(t, "add", details.Action)
	assert.Equal(t, "wash the dishes", details.Title)
	assert.Equal(t, "Visible Household Tasks", details.Category)
}

func TestExtractTaskDetailsComplete(t *testing.T) {
	details, ok := ExtractTaskDetails("I'm done with task #3", testFamily(), testNow)
	require.True(t, ok)
	assert.Equal(t, "complete", details.Action)
	assert.Equal(t, "3", details.TaskID)
}

func TestExtractTaskDetailsMatchesKnownTask(t *testing.T) {
	details, ok := ExtractTaskDetails("mark the grocery shopping task complete", testFamily(), testNow)
	require.True(t, ok)
	assert.Equal(t, "complete", details.Action)
	assert.Equal(t, "t1", details.TaskID)
	assert.Equal(t, "Grocery shopping", details.Title)
}

func TestExtractTaskDetailsAssignee(t *testing.T) {
	details, ok := ExtractTaskDetails("add a task and assign to papa: take out the trash", testFamily(), testNow)
	require.True(t, ok)
	assert.Equal(t, "add", details.Action)
	assert.Equal(t, "papa", details.Assignee)
}

func TestExtractTaskDetailsNotATask(t *testing.T) {
	_, ok := ExtractTaskDetails("how are you today", testFamily(), testNow)
	assert.False(t, ok)
}

func TestExtractSurveyQuestion(t *testing.T) {
	tests := []struct {
		text     string
		wantType string
		category string
		task     string
	}{
		{"how balanced are things overall?", "overall", "", ""},
		{"show me the invisible household results", "category", "Invisible Household Tasks", ""},
		{"who does the cooking?", "task", "", "cooking"},
		{"compare how we split things", "comparison", "", ""},
	}
	for _, tt := range tests {
		q := ExtractSurveyQuestion(tt.text)
		assert.Equal(t, tt.wantType, q.Type, "text %q", tt.text)
		if tt.category != "" {
			assert.Equal(t, tt.category, q.Category, "text %q", tt.text)
		}
		if tt.task != "" {
			assert.Equal(t, tt.task, q.Task, "text %q", tt.text)
		}
	}
}
