package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allie-ai/allie-core/internal/family"
	"github.com/allie-ai/allie-core/internal/graph"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func testGraph(t *testing.T) *graph.Service {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)}
	g := graph.NewService(graph.NewMemoryStore(), clock)

	fam := &family.Data{
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
	}
	_, err := g.LoadFamilyData(context.Background(), fam)
	require.NoError(t, err)
	return g
}

func invokable(t *testing.T, bt tool.BaseTool) tool.InvokableTool {
	t.Helper()
	it, ok := bt.(tool.InvokableTool)
	require.True(t, ok, "tool must be invokable")
	return it
}

func TestGetToolInfos(t *testing.T) {
	g := testGraph(t)
	ts := GetQueryTools(g)
	require.Len(t, ts, 2)

	infos, err := GetToolInfos(context.Background(), ts)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, ToolSearchFamilyGraph, infos[0].Name)
	assert.Equal(t, ToolGetFamilyInsights, infos[1].Name)
}

func TestSearchFamilyGraphTool(t *testing.T) {
	g := testGraph(t)
	search := invokable(t, createSearchFamilyGraphTool(g))
	ctx := context.Background()

	out, err := search.InvokableRun(ctx, `{"family_id":"fam-1","query":"show all tasks"}`)
	require.NoError(t, err)

	var result SearchFamilyGraphOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, graph.QueryEntitySearch, result.Intent)
	assert.Len(t, result.Entities, 2)
	assert.Contains(t, result.Entities, "Grocery shopping (task)")

	// connection checks return the path verdict in the message
	out, err = search.InvokableRun(ctx, `{"family_id":"fam-1","query":"is Maya connected to Tom?"}`)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, graph.QueryPathQuery, result.Intent)
	assert.Contains(t, result.Message, "Yes")

	// missing arguments are rejected
	_, err = search.InvokableRun(ctx, `{"query":"show all tasks"}`)
	assert.Error(t, err)
}

func TestFamilyInsightsTool(t *testing.T) {
	g := testGraph(t)
	insights := invokable(t, createFamilyInsightsTool(g))
	ctx := context.Background()

	// balanced family produces no findings
	out, err := insights.InvokableRun(ctx, `{"family_id":"fam-1"}`)
	require.NoError(t, err)

	var result FamilyInsightsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Zero(t, result.Total)

	_, err = insights.InvokableRun(ctx, `{}`)
	assert.Error(t, err)
}
