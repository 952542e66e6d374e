package graph

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allie-ai/allie-core/internal/family"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestService() *Service {
	clock := &fakeClock{now: time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)}
	return NewService(NewMemoryStore(), clock)
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
	}
}

func TestInitializeGraphCreatesFamilyRoot(t *testing.T) {
	s := newTestService()

	g, err := s.InitializeGraph(context.Background(), "fam-1")
	require.NoError(t, err)

	require.Contains(t, g.Entities, "fam-1")
	assert.Equal(t, EntityFamily, g.Entities["fam-1"].Type)
	assert.Equal(t, 1, g.Stats.EntityCount)

	// re-initializing returns the same graph
	again, err := s.InitializeGraph(context.Background(), "fam-1")
	require.NoError(t, err)
	assert.Equal(t, g.Stats.EntityCount, again.Stats.EntityCount)
}

func TestAddEntityUpsert(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.AddEntity(ctx, "fam-1", "p1", EntityPerson, Properties{"name": "Sara"})
	require.NoError(t, err)

	// same ID merges properties instead of duplicating
	e, err := s.AddEntity(ctx, "fam-1", "p1", EntityPerson, Properties{"role": "parent"})
	require.NoError(t, err)
	assert.Equal(t, "Sara", e.Properties["name"])
	assert.Equal(t, "parent", e.Properties["role"])

	g, err := s.InitializeGraph(ctx, "fam-1")
	require.NoError(t, err)
	assert.Equal(t, 2, g.Stats.EntityCount) // family root + p1

	_, err = s.AddEntity(ctx, "fam-1", "x", "spaceship", nil)
	assert.Error(t, err)
}

func TestAddRelationshipIdempotent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.AddEntity(ctx, "fam-1", "p1", EntityPerson, Properties{"name": "Sara"})
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, "fam-1", "t1", EntityTask, Properties{"title": "Dishes"})
	require.NoError(t, err)

	r1, err := s.AddRelationship(ctx, "fam-1", "t1", "p1", RelAssignedTo, nil)
	require.NoError(t, err)
	r2, err := s.AddRelationship(ctx, "fam-1", "t1", "p1", RelAssignedTo, Properties{"priority": "high"})
	require.NoError(t, err)
	assert.Equal(t, r1.ID, r2.ID)
	assert.Equal(t, "high", r2.Properties["priority"])

	g, err := s.InitializeGraph(ctx, "fam-1")
	require.NoError(t, err)
	assert.Equal(t, 1, g.Stats.RelationshipCount)

	// both endpoints must exist
	_, err = s.AddRelationship(ctx, "fam-1", "t1", "ghost", RelAssignedTo, nil)
	assert.Error(t, err)
	// and the type must be known
	_, err = s.AddRelationship(ctx, "fam-1", "t1", "p1", "likes", nil)
	assert.Error(t, err)
}

func TestLoadFamilyDataBuildsGraph(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	g, err := s.LoadFamilyData(ctx, testFamily())
	require.NoError(t, err)

	people, err := s.QueryEntitiesByType(ctx, "fam-1", EntityPerson)
	require.NoError(t, err)
	assert.Len(t, people, 3)

	tasks, err := s.QueryEntitiesByType(ctx, "fam-1", EntityTask)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	// parent-child edges both ways
	conns, err := s.FindConnectedEntities(ctx, "fam-1", "c1", RelChildOf, "outgoing")
	require.NoError(t, err)
	assert.Len(t, conns, 2)

	assert.Equal(t, "Johnson", g.Entities["fam-1"].Name())
}

func TestFindConnectedEntitiesDirections(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	_, err := s.LoadFamilyData(ctx, testFamily())
	require.NoError(t, err)

	outgoing, err := s.FindConnectedEntities(ctx, "fam-1", "t1", RelAssignedTo, "outgoing")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, "p1", outgoing[0].Entity.ID)
	assert.Equal(t, "outgoing", outgoing[0].Direction)

	incoming, err := s.FindConnectedEntities(ctx, "fam-1", "p1", RelAssignedTo, "incoming")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "t1", incoming[0].Entity.ID)

	none, err := s.FindConnectedEntities(ctx, "fam-1", "t1", RelAssignedTo, "incoming")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindPaths(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	_, err := s.LoadFamilyData(ctx, testFamily())
	require.NoError(t, err)

	// task t1 -> Sara via assigned_to
	paths, err := s.FindPaths(ctx, "fam-1", "t1", "p1", 3)
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	assert.Len(t, paths[0], 1)
	assert.Equal(t, RelAssignedTo, paths[0][0].Relationship.Type)

	// every discovered path stays within the depth bound
	paths, err = s.FindPaths(ctx, "fam-1", "t1", "t2", 3)
	require.NoError(t, err)
	for _, p := range paths {
		assert.LessOrEqual(t, len(p), 3)
	}

	_, err = s.FindPaths(ctx, "fam-1", "t1", "ghost", 3)
	assert.Error(t, err)
}

func TestGraphSurvivesReload(t *testing.T) {
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)}
	ctx := context.Background()

	s1 := NewService(store, clock)
	_, err := s1.LoadFamilyData(ctx, testFamily())
	require.NoError(t, err)

	// a fresh service over the same store sees the persisted graph
	s2 := NewService(store, clock)
	people, err := s2.QueryEntitiesByType(ctx, "fam-1", EntityPerson)
	require.NoError(t, err)
	assert.Len(t, people, 3)
}

func TestWorkloadInsightThresholds(t *testing.T) {
	ctx := context.Background()

	build := func(saraTasks, tomTasks int) *Service {
		s := newTestService()
		_, err := s.AddEntity(ctx, "fam-1", "p1", EntityPerson, Properties{"name": "Sara", "role": "parent"})
		require.NoError(t, err)
		_, err = s.AddEntity(ctx, "fam-1", "p2", EntityPerson, Properties{"name": "Tom", "role": "parent"})
		require.NoError(t, err)

		for i := 0; i < saraTasks+tomTasks; i++ {
			id := fmt.Sprintf("t%d", i)
			assignee := "p1"
			if i >= saraTasks {
				assignee = "p2"
			}
			_, err = s.AddEntity(ctx, "fam-1", id, EntityTask, Properties{"title": id})
			require.NoError(t, err)
			_, err = s.AddRelationship(ctx, "fam-1", id, assignee, RelAssignedTo, nil)
			require.NoError(t, err)
		}
		return s
	}

	// gap of 11 is a high-severity imbalance
	insights, err := build(12, 1).GenerateInsights(ctx, "fam-1")
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "workload_imbalance", insights[0].Type)
	assert.Equal(t, "high", insights[0].Severity)

	// gap of 6 is medium
	insights, err = build(8, 2).GenerateInsights(ctx, "fam-1")
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "medium", insights[0].Severity)

	// gap of 2 is balanced
	insights, err = build(6, 4).GenerateInsights(ctx, "fam-1")
	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestInsightsPersistedAsEntities(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	_, err := s.AddEntity(ctx, "fam-1", "p1", EntityPerson, Properties{"name": "Sara", "role": "parent"})
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, "fam-1", "p2", EntityPerson, Properties{"name": "Tom", "role": "parent"})
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("t%d", i)
		_, err = s.AddEntity(ctx, "fam-1", id, EntityTask, nil)
		require.NoError(t, err)
		_, err = s.AddRelationship(ctx, "fam-1", id, "p1", RelAssignedTo, nil)
		require.NoError(t, err)
	}

	insights, err := s.GenerateInsights(ctx, "fam-1")
	require.NoError(t, err)
	require.Len(t, insights, 1)

	stored, err := s.QueryEntitiesByType(ctx, "fam-1", EntityInsight)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	about, err := s.FindConnectedEntities(ctx, "fam-1", stored[0].ID, RelInsightAbout, "outgoing")
	require.NoError(t, err)
	assert.Len(t, about, 2)
}

func TestGrowthInsight(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	fam := testFamily()
	base := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	fam.GrowthRecords = []family.GrowthRecord{
		{ID: "g1", ChildID: "c1", RecordedAt: base, HeightCm: 90},
		{ID: "g2", ChildID: "c1", RecordedAt: base.AddDate(0, 2, 0), HeightCm: 92},
		{ID: "g3", ChildID: "c1", RecordedAt: base.AddDate(0, 4, 0), HeightCm: 94},
	}
	_, err := s.LoadFamilyData(ctx, fam)
	require.NoError(t, err)
	require.NoError(t, s.LoadChildTracking(ctx, fam, "c1"))

	insights, err := s.GenerateInsights(ctx, "fam-1")
	require.NoError(t, err)

	var growth *Insight
	for i := range insights {
		if insights[i].Type == "child_growth" {
			growth = &insights[i]
		}
	}
	require.NotNil(t, growth)
	assert.Contains(t, growth.Title, "Maya")
	assert.Equal(t, "info", growth.Severity)
}

func TestEmotionalInsight(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	fam := testFamily()
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		mood := "sad"
		if i == 5 {
			mood = "happy"
		}
		fam.EmotionalRecords = append(fam.EmotionalRecords, family.EmotionalRecord{
			ID: fmt.Sprintf("e%d", i), ChildID: "c1",
			RecordedAt: base.AddDate(0, 0, i), Mood: mood,
		})
	}
	_, err := s.LoadFamilyData(ctx, fam)
	require.NoError(t, err)
	require.NoError(t, s.LoadChildTracking(ctx, fam, "c1"))

	insights, err := s.GenerateInsights(ctx, "fam-1")
	require.NoError(t, err)

	var emotional *Insight
	for i := range insights {
		if insights[i].Type == "emotional_pattern" {
			emotional = &insights[i]
		}
	}
	require.NotNil(t, emotional)
	// 5 of 6 sad check-ins is a high-severity negative pattern
	assert.Equal(t, "high", emotional.Severity)
	assert.Contains(t, emotional.Description, "sad")
}
