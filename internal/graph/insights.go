package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allie-ai/allie-core/internal/family"
	logx "github.com/allie-ai/allie-core/pkg/logger"
)

const (
	// parent task-count gaps below this are considered balanced
	workloadGapThreshold     = 5
	workloadGapHighThreshold = 10

	minGrowthPoints      = 3
	minGrowthSpanMonths  = 3.0
	minEmotionalCheckIns = 5
)

var negativeEmotions = map[string]bool{
	"sad": true, "angry": true, "upset": true,
	"afraid": true, "scared": true, "anxious": true,
}

// GenerateInsights derives heuristic findings from the family's graph:
// parent workload imbalance, child growth trends, and emotional patterns.
// Each insight is persisted back into the graph as an insight entity
// linked to the people it concerns.
func (s *Service) GenerateInsights(ctx context.Context, familyID string) ([]Insight, error) {
	s.mu.Lock()
	g, err := s.getLocked(ctx, familyID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	var insights []Insight
	insights = append(insights, workloadInsights(g)...)
	insights = append(insights, childInsights(g)...)
	people := entitiesOfType(g, EntityPerson)
	s.mu.Unlock()

	for _, insight := range insights {
		_, err := s.AddEntity(ctx, familyID, insight.ID, EntityInsight, Properties{
			"name":        insight.Title,
			"type":        insight.Type,
			"description": insight.Description,
			"severity":    insight.Severity,
			"actionItem":  insight.ActionItem,
		})
		if err != nil {
			return nil, err
		}
		for _, name := range insight.Entities {
			for _, person := range people {
				if person.Name() == name {
					if _, err := s.AddRelationship(ctx, familyID, insight.ID, person.ID, RelInsightAbout, nil); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	logx.Debug().Str("family_id", familyID).Int("insights", len(insights)).Msg("generated graph insights")
	return insights, nil
}

// workloadInsights flags an imbalance when the two most-loaded parents
// differ by more than the gap threshold.
func workloadInsights(g *Graph) []Insight {
	type load struct {
		name      string
		assigned  int
		completed int
	}

	loads := map[string]*load{}
	var order []string
	for _, e := range g.Entities {
		if e.Type == EntityPerson {
			role, _ := e.Properties["role"].(string)
			if role == family.RoleParent {
				loads[e.ID] = &load{name: e.Name()}
				order = append(order, e.ID)
			}
		}
	}
	if len(loads) < 2 {
		return nil
	}

	for _, task := range entitiesOfType(g, EntityTask) {
		for _, conn := range connections(g, task.ID, RelAssignedTo, "outgoing") {
			if l, ok := loads[conn.Entity.ID]; ok {
				l.assigned++
				if completed, _ := task.Properties["completed"].(bool); completed {
					l.completed++
				}
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return loads[order[i]].assigned > loads[order[j]].assigned
	})
	top, second := loads[order[0]], loads[order[1]]
	gap := top.assigned - second.assigned
	if gap <= workloadGapThreshold {
		return nil
	}

	severity := "medium"
	if gap > workloadGapHighThreshold {
		severity = "high"
	}

	var names []string
	for _, id := range order {
		names = append(names, loads[id].name)
	}

	return []Insight{{
		ID:          fmt.Sprintf("insight-%s", uuid.NewString()),
		Type:        "workload_imbalance",
		Title:       "Task Distribution Imbalance",
		Description: fmt.Sprintf("%s has %d more tasks assigned than %s.", top.name, gap, second.name),
		Entities:    names,
		Severity:    severity,
		ActionItem:  fmt.Sprintf("Consider reassigning some tasks to balance workload between %s and %s.", top.name, second.name),
	}}
}

// childInsights analyzes each child's milestone entities for growth trends
// and emotional patterns.
func childInsights(g *Graph) []Insight {
	var insights []Insight

	for _, person := range entitiesOfType(g, EntityPerson) {
		role, _ := person.Properties["role"].(string)
		if role != family.RoleChild {
			continue
		}

		var growth, emotional []Entity
		for _, conn := range connections(g, person.ID, RelMilestoneOf, "incoming") {
			switch conn.Entity.Properties["type"] {
			case "growth":
				growth = append(growth, conn.Entity)
			case "emotional":
				emotional = append(emotional, conn.Entity)
			}
		}

		if in, ok := growthInsight(person, growth); ok {
			insights = append(insights, in)
		}
		if in, ok := emotionalInsight(person, emotional); ok {
			insights = append(insights, in)
		}
	}

	return insights
}

func growthInsight(child Entity, growth []Entity) (Insight, bool) {
	if len(growth) < minGrowthPoints {
		return Insight{}, false
	}

	sort.Slice(growth, func(i, j int) bool {
		return milestoneDate(growth[i]).After(milestoneDate(growth[j]))
	})
	latest, oldest := growth[0], growth[len(growth)-1]

	span := milestoneDate(latest).Sub(milestoneDate(oldest))
	months := span.Hours() / (24 * 30)
	if months < minGrowthSpanMonths {
		return Insight{}, false
	}

	heightChange := numberProp(latest, "height") - numberProp(oldest, "height")
	rate := heightChange / months

	return Insight{
		ID:          fmt.Sprintf("insight-%s", uuid.NewString()),
		Type:        "child_growth",
		Title:       fmt.Sprintf("%s's Growth Trend", child.Name()),
		Description: fmt.Sprintf("Growing at %.1f cm per month over the past %.1f months.", rate, months),
		Entities:    []string{child.Name()},
		Severity:    "info",
		ActionItem:  "Continue monitoring growth with regular measurements.",
	}, true
}

func emotionalInsight(child Entity, emotional []Entity) (Insight, bool) {
	if len(emotional) < minEmotionalCheckIns {
		return Insight{}, false
	}

	counts := map[string]int{}
	var order []string
	for _, e := range emotional {
		emotion, _ := e.Properties["emotion"].(string)
		if emotion == "" {
			continue
		}
		if _, seen := counts[emotion]; !seen {
			order = append(order, emotion)
		}
		counts[emotion]++
	}
	if len(order) == 0 {
		return Insight{}, false
	}

	top := order[0]
	for _, emotion := range order[1:] {
		if counts[emotion] > counts[top] {
			top = emotion
		}
	}
	percentage := counts[top] * 100 / len(emotional)
	if percentage <= 50 {
		return Insight{}, false
	}

	isNegative := negativeEmotions[strings.ToLower(top)]
	severity := "info"
	action := "Continue supporting emotional well-being."
	if isNegative {
		action = "Consider discussing feelings more frequently to understand triggers."
		if percentage > 70 {
			severity = "high"
		}
	}

	return Insight{
		ID:          fmt.Sprintf("insight-%s", uuid.NewString()),
		Type:        "emotional_pattern",
		Title:       fmt.Sprintf("%s's Emotional Pattern", child.Name()),
		Description: fmt.Sprintf("Shows primarily %s emotions (%d%% of check-ins).", top, percentage),
		Entities:    []string{child.Name()},
		Severity:    severity,
		ActionItem:  action,
	}, true
}

func milestoneDate(e Entity) time.Time {
	switch v := e.Properties["date"].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func numberProp(e Entity, key string) float64 {
	switch v := e.Properties[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
