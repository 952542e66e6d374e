package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		query  string
		intent string
		name1  string
		name2  string
	}{
		{"show all tasks", QueryEntitySearch, "", ""},
		{"find all people", QueryEntitySearch, "", ""},
		{"is Maya connected to Tom?", QueryPathQuery, "maya", "tom"},
		{"find a path between Sara and Maya", QueryPathQuery, "sara", "maya"},
		{"what insights do you have", QueryInsightQuery, "", ""},
		{"anything interesting in our data?", QueryInsightQuery, "", ""},
		{"analyze our family", QueryInsightQuery, "", ""},
		{"hello there", QueryUnknown, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			qi := classifyQuery(tt.query)
			assert.Equal(t, tt.intent, qi.intent)
			assert.Equal(t, tt.name1, qi.entityName1)
			assert.Equal(t, tt.name2, qi.entityName2)
		})
	}
}

func TestExecuteQueryEntitySearch(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	_, err := s.LoadFamilyData(ctx, testFamily())
	require.NoError(t, err)

	result, err := s.ExecuteQuery(ctx, "fam-1", "show all tasks")
	require.NoError(t, err)
	assert.Equal(t, QueryEntitySearch, result.Intent)
	assert.Len(t, result.Entities, 2)
	assert.Equal(t, "Found 2 matching entities.", result.Message)

	// plural alias resolves to the person type filtered by role
	result, err = s.ExecuteQuery(ctx, "fam-1", "show all children")
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Maya", result.Entities[0].Name())

	result, err = s.ExecuteQuery(ctx, "fam-1", "show all spaceships")
	require.NoError(t, err)
	assert.Empty(t, result.Entities)
	assert.Equal(t, "I couldn't find any matching entities in the knowledge graph.", result.Message)
}

func TestExecuteQueryPaths(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	_, err := s.LoadFamilyData(ctx, testFamily())
	require.NoError(t, err)

	result, err := s.ExecuteQuery(ctx, "fam-1", "is Maya connected to Tom?")
	require.NoError(t, err)
	assert.Equal(t, QueryPathQuery, result.Intent)
	assert.NotEmpty(t, result.Paths)
	assert.Contains(t, result.Message, "Yes, Maya is connected to Tom")

	// tasks are more than three hops apart, so connectivity is denied
	result, err = s.ExecuteQuery(ctx, "fam-1", "is grocery connected to pickup?")
	require.NoError(t, err)
	assert.Empty(t, result.Paths)
	assert.Contains(t, result.Message, "No, Grocery shopping is not connected to School pickup")

	result, err = s.ExecuteQuery(ctx, "fam-1", "is Maya connected to Zorgon?")
	require.NoError(t, err)
	assert.Contains(t, result.Message, `I couldn't find an entity named "zorgon"`)
}

func TestExecuteQueryInsights(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	_, err := s.LoadFamilyData(ctx, testFamily())
	require.NoError(t, err)

	// balanced workload and no tracking data means nothing noteworthy
	result, err := s.ExecuteQuery(ctx, "fam-1", "what insights do you have?")
	require.NoError(t, err)
	assert.Equal(t, QueryInsightQuery, result.Intent)
	assert.Empty(t, result.Insights)
	assert.Contains(t, result.Message, "couldn't find any significant insights")
}

func TestExecuteQueryUnknown(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	result, err := s.ExecuteQuery(ctx, "fam-1", "make me a sandwich")
	require.NoError(t, err)
	assert.Equal(t, QueryUnknown, result.Intent)
	assert.Contains(t, result.Message, "couldn't understand your query")
}

func TestExecuteQueryRecordsLastQuery(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	_, err := s.LoadFamilyData(ctx, testFamily())
	require.NoError(t, err)

	_, err = s.ExecuteQuery(ctx, "fam-1", "show all tasks")
	require.NoError(t, err)

	g, err := s.InitializeGraph(ctx, "fam-1")
	require.NoError(t, err)
	require.NotNil(t, g.Stats.LastQuery)
	assert.Equal(t, "show all tasks", g.Stats.LastQuery.Query)
	assert.Equal(t, QueryEntitySearch, g.Stats.LastQuery.Intent)
}
