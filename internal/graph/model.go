// Package graph maintains a per-family knowledge graph: typed entities,
// typed relationships between them, traversal queries, and heuristic
// insights derived from the graph.
package graph

import (
	"fmt"
	"time"
)

// Entity types the graph accepts.
const (
	EntityFamily      = "family"
	EntityPerson      = "person"
	EntityEvent       = "event"
	EntityTask        = "task"
	EntityProvider    = "provider"
	EntityAppointment = "appointment"
	EntityDocument    = "document"
	EntityInsight     = "insight"
	EntityMilestone   = "milestone"
	EntityPreference  = "preference"
)

// Relationship types the graph accepts.
const (
	RelMemberOf       = "member_of"       // person -> family
	RelParentOf       = "parent_of"       // person -> person
	RelChildOf        = "child_of"        // person -> person
	RelAssignedTo     = "assigned_to"     // task -> person
	RelCreatedBy      = "created_by"      // task/event/doc -> person
	RelParticipatesIn = "participates_in" // person -> event
	RelAttends        = "attends"         // person -> appointment
	RelProvides       = "provides"        // provider -> appointment
	RelRelatedTo      = "related_to"      // entity -> entity
	RelPrefers        = "prefers"         // person -> preference
	RelMilestoneOf    = "milestone_of"    // milestone -> person
	RelInsightAbout   = "insight_about"   // insight -> entity
)

var entityTypes = map[string]bool{
	EntityFamily:      true,
	EntityPerson:      true,
	EntityEvent:       true,
	EntityTask:        true,
	EntityProvider:    true,
	EntityAppointment: true,
	EntityDocument:    true,
	EntityInsight:     true,
	EntityMilestone:   true,
	EntityPreference:  true,
}

var relationshipTypes = map[string]bool{
	RelMemberOf:       true,
	RelParentOf:       true,
	RelChildOf:        true,
	RelAssignedTo:     true,
	RelCreatedBy:      true,
	RelParticipatesIn: true,
	RelAttends:        true,
	RelProvides:       true,
	RelRelatedTo:      true,
	RelPrefers:        true,
	RelMilestoneOf:    true,
	RelInsightAbout:   true,
}

// Properties is the free-form attribute bag on entities and relationships.
type Properties map[string]any

// Entity is one node in a family's knowledge graph.
type Entity struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
}

// Name returns the entity's name property, falling back to its title
// for entities like tasks that carry one instead.
func (e Entity) Name() string {
	if e.Properties == nil {
		return ""
	}
	if name, _ := e.Properties["name"].(string); name != "" {
		return name
	}
	title, _ := e.Properties["title"].(string)
	return title
}

// Relationship is one typed edge between two entities. Its ID is derived
// from the endpoints and type, so re-adding the same edge updates it in
// place.
type Relationship struct {
	ID         string     `json:"id"`
	SourceID   string     `json:"sourceId"`
	TargetID   string     `json:"targetId"`
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
}

func relationshipID(sourceID, relType, targetID string) string {
	return fmt.Sprintf("%s-%s-%s", sourceID, relType, targetID)
}

// Stats tracks graph size and the last natural language query served.
type Stats struct {
	EntityCount       int        `json:"entityCount"`
	RelationshipCount int        `json:"relationshipCount"`
	LastQuery         *LastQuery `json:"lastQuery,omitempty"`
}

// LastQuery records the most recent natural language query.
type LastQuery struct {
	Query     string    `json:"query"`
	Intent    string    `json:"intent"`
	Timestamp time.Time `json:"timestamp"`
}

// Graph is one family's full knowledge graph document.
type Graph struct {
	FamilyID      string             `json:"familyId"`
	Entities      map[string]*Entity `json:"entities"`
	Relationships []*Relationship    `json:"relationships"`
	Stats         Stats              `json:"stats"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func (g *Graph) relationship(id string) *Relationship {
	for _, rel := range g.Relationships {
		if rel.ID == id {
			return rel
		}
	}
	return nil
}

// Connection is one edge incident to a queried entity, seen from that
// entity's side.
type Connection struct {
	Entity       Entity       `json:"entity"`
	Relationship Relationship `json:"relationship"`
	Direction    string       `json:"direction"` // outgoing, incoming
}

// PathStep is one hop in a path between two entities.
type PathStep struct {
	Entity       Entity       `json:"entity"`
	Relationship Relationship `json:"relationship"`
}

// Path is a sequence of hops from a start entity toward a target.
type Path []PathStep

// Insight is a heuristic finding derived from the graph.
type Insight struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Entities    []string `json:"entities,omitempty"`
	Severity    string   `json:"severity"` // info, medium, high
	ActionItem  string   `json:"actionItem,omitempty"`
}
