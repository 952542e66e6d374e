package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/allie-ai/allie-core/internal/core"
	"github.com/allie-ai/allie-core/internal/family"
	logx "github.com/allie-ai/allie-core/pkg/logger"
)

// Service is the knowledge graph engine. It caches each family's graph in
// memory and writes every mutation through to the store.
type Service struct {
	mu    sync.Mutex
	store Store
	clock core.Clock
	cache map[string]*Graph
}

// NewService builds a graph service on the given store. A nil clock falls
// back to the system clock.
func NewService(store Store, clock core.Clock) *Service {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Service{
		store: store,
		clock: clock,
		cache: map[string]*Graph{},
	}
}

// InitializeGraph loads the family's graph, creating an empty one rooted
// at a family entity when none exists yet.
func (s *Service) InitializeGraph(ctx context.Context, familyID string) (*Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, familyID)
}

func (s *Service) getLocked(ctx context.Context, familyID string) (*Graph, error) {
	if g, ok := s.cache[familyID]; ok {
		return g, nil
	}

	g, err := s.store.Load(ctx, familyID)
	switch {
	case err == nil:
		s.cache[familyID] = g
		return g, nil
	case errors.Is(err, ErrNotFound):
		// fall through to create
	default:
		return nil, err
	}

	now := s.clock.Now()
	g = &Graph{
		FamilyID:      familyID,
		Entities:      map[string]*Entity{},
		Relationships: []*Relationship{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	g.Entities[familyID] = &Entity{
		ID:   familyID,
		Type: EntityFamily,
		Properties: Properties{
			"name":      "Family Graph",
			"createdAt": now,
		},
	}
	g.Stats.EntityCount = 1

	if err := s.store.Save(ctx, g); err != nil {
		return nil, err
	}
	s.cache[familyID] = g

	logx.Info().Str("family_id", familyID).Msg("initialized knowledge graph")
	return g, nil
}

func (s *Service) saveLocked(ctx context.Context, g *Graph) error {
	g.UpdatedAt = s.clock.Now()
	return s.store.Save(ctx, g)
}

// AddEntity upserts an entity. Adding an existing ID merges the new
// properties into the old ones.
func (s *Service) AddEntity(ctx context.Context, familyID, entityID, entityType string, props Properties) (Entity, error) {
	if !entityTypes[entityType] {
		return Entity{}, fmt.Errorf("graph: invalid entity type %q", entityType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getLocked(ctx, familyID)
	if err != nil {
		return Entity{}, err
	}

	now := s.clock.Now()
	if existing, ok := g.Entities[entityID]; ok {
		if existing.Properties == nil {
			existing.Properties = Properties{}
		}
		for k, v := range props {
			existing.Properties[k] = v
		}
		existing.Properties["updatedAt"] = now
	} else {
		merged := Properties{}
		for k, v := range props {
			merged[k] = v
		}
		merged["createdAt"] = now
		g.Entities[entityID] = &Entity{ID: entityID, Type: entityType, Properties: merged}
		g.Stats.EntityCount++
	}

	if err := s.saveLocked(ctx, g); err != nil {
		return Entity{}, err
	}
	return *g.Entities[entityID], nil
}

// AddRelationship upserts a typed edge between two existing entities.
// The same source, type, and target always map to the same edge.
func (s *Service) AddRelationship(ctx context.Context, familyID, sourceID, targetID, relType string, props Properties) (Relationship, error) {
	if !relationshipTypes[relType] {
		return Relationship{}, fmt.Errorf("graph: invalid relationship type %q", relType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getLocked(ctx, familyID)
	if err != nil {
		return Relationship{}, err
	}

	if g.Entities[sourceID] == nil || g.Entities[targetID] == nil {
		return Relationship{}, fmt.Errorf("graph: relationship endpoints %q -> %q not found", sourceID, targetID)
	}

	id := relationshipID(sourceID, relType, targetID)
	now := s.clock.Now()

	rel := g.relationship(id)
	if rel != nil {
		if rel.Properties == nil {
			rel.Properties = Properties{}
		}
		for k, v := range props {
			rel.Properties[k] = v
		}
		rel.Properties["updatedAt"] = now
	} else {
		merged := Properties{}
		for k, v := range props {
			merged[k] = v
		}
		merged["createdAt"] = now
		rel = &Relationship{ID: id, SourceID: sourceID, TargetID: targetID, Type: relType, Properties: merged}
		g.Relationships = append(g.Relationships, rel)
		g.Stats.RelationshipCount++
	}

	if err := s.saveLocked(ctx, g); err != nil {
		return Relationship{}, err
	}
	return *rel, nil
}

// QueryEntitiesByType returns all entities of the given type.
func (s *Service) QueryEntitiesByType(ctx context.Context, familyID, entityType string) ([]Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getLocked(ctx, familyID)
	if err != nil {
		return nil, err
	}
	return entitiesOfType(g, entityType), nil
}

func entitiesOfType(g *Graph, entityType string) []Entity {
	var out []Entity
	for _, e := range g.Entities {
		if e.Type == entityType {
			out = append(out, *e)
		}
	}
	return out
}

// FindConnectedEntities returns the entities one hop from entityID.
// relType filters by edge type when non-empty; direction is "outgoing",
// "incoming", or "both".
func (s *Service) FindConnectedEntities(ctx context.Context, familyID, entityID, relType, direction string) ([]Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getLocked(ctx, familyID)
	if err != nil {
		return nil, err
	}
	return connections(g, entityID, relType, direction), nil
}

func connections(g *Graph, entityID, relType, direction string) []Connection {
	var out []Connection
	for _, rel := range g.Relationships {
		if relType != "" && rel.Type != relType {
			continue
		}

		var otherID string
		switch {
		case (direction == "outgoing" || direction == "both") && rel.SourceID == entityID:
			otherID = rel.TargetID
		case (direction == "incoming" || direction == "both") && rel.TargetID == entityID:
			otherID = rel.SourceID
		default:
			continue
		}

		other := g.Entities[otherID]
		if other == nil {
			continue
		}

		dir := "incoming"
		if rel.SourceID == entityID {
			dir = "outgoing"
		}
		out = append(out, Connection{Entity: *other, Relationship: *rel, Direction: dir})
	}
	return out
}

// FindPaths searches breadth-first for paths from startID to endID, up to
// maxDepth hops. Each entity is expanded at most once, so the result is
// the set of shortest discovered paths.
func (s *Service) FindPaths(ctx context.Context, familyID, startID, endID string, maxDepth int) ([]Path, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getLocked(ctx, familyID)
	if err != nil {
		return nil, err
	}

	if g.Entities[startID] == nil || g.Entities[endID] == nil {
		return nil, fmt.Errorf("graph: path endpoints %q -> %q not found", startID, endID)
	}

	type frame struct {
		entityID string
		path     Path
		depth    int
	}

	visited := map[string]bool{}
	queue := []frame{{entityID: startID}}
	var paths []Path

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if visited[cur.entityID] || cur.depth > maxDepth {
			continue
		}
		visited[cur.entityID] = true

		if cur.entityID == endID {
			paths = append(paths, cur.path)
			continue
		}

		for _, conn := range connections(g, cur.entityID, "", "both") {
			if visited[conn.Entity.ID] {
				continue
			}
			step := PathStep{Entity: *g.Entities[cur.entityID], Relationship: conn.Relationship}
			next := make(Path, len(cur.path), len(cur.path)+1)
			copy(next, cur.path)
			queue = append(queue, frame{
				entityID: conn.Entity.ID,
				path:     append(next, step),
				depth:    cur.depth + 1,
			})
		}
	}

	return paths, nil
}

// LoadFamilyData projects a family record into the graph: one person
// entity per member with membership and parent/child edges, and one task
// entity per task with assignment edges.
func (s *Service) LoadFamilyData(ctx context.Context, fam *family.Data) (*Graph, error) {
	if fam == nil || fam.FamilyID == "" {
		return nil, errors.New("graph: family data required")
	}
	familyID := fam.FamilyID

	if _, err := s.InitializeGraph(ctx, familyID); err != nil {
		return nil, err
	}

	name := fam.FamilyName
	if name == "" {
		name = "Family"
	}
	if _, err := s.AddEntity(ctx, familyID, familyID, EntityFamily, Properties{"name": name}); err != nil {
		return nil, err
	}

	children := fam.Children()
	for _, member := range fam.Members {
		_, err := s.AddEntity(ctx, familyID, member.ID, EntityPerson, Properties{
			"name":     member.Name,
			"role":     member.Role,
			"roleType": member.RoleType,
		})
		if err != nil {
			return nil, err
		}
		if _, err := s.AddRelationship(ctx, familyID, member.ID, familyID, RelMemberOf, nil); err != nil {
			return nil, err
		}

		if member.Role == family.RoleParent {
			for _, child := range children {
				if _, err := s.AddRelationship(ctx, familyID, member.ID, child.ID, RelParentOf, nil); err != nil {
					return nil, err
				}
				if _, err := s.AddRelationship(ctx, familyID, child.ID, member.ID, RelChildOf, nil); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, task := range fam.Tasks {
		_, err := s.AddEntity(ctx, familyID, task.ID, EntityTask, Properties{
			"title":     task.Title,
			"completed": task.Completed,
		})
		if err != nil {
			return nil, err
		}
		if task.AssignedTo != "" {
			if _, err := s.AddRelationship(ctx, familyID, task.ID, task.AssignedTo, RelAssignedTo, nil); err != nil {
				return nil, err
			}
		}
		if task.CreatedBy != "" {
			if _, err := s.AddRelationship(ctx, familyID, task.ID, task.CreatedBy, RelCreatedBy, nil); err != nil {
				return nil, err
			}
		}
	}

	for _, provider := range fam.Providers {
		_, err := s.AddEntity(ctx, familyID, provider.ID, EntityProvider, Properties{
			"name":      provider.Name,
			"specialty": provider.Specialty,
		})
		if err != nil {
			return nil, err
		}
	}

	logx.Info().
		Str("family_id", familyID).
		Int("members", len(fam.Members)).
		Int("tasks", len(fam.Tasks)).
		Msg("loaded family data into knowledge graph")

	return s.InitializeGraph(ctx, familyID)
}

// LoadChildTracking projects a child's appointments, growth records, and
// emotional check-ins into the graph. The child entity must already exist.
func (s *Service) LoadChildTracking(ctx context.Context, fam *family.Data, childID string) error {
	if fam == nil {
		return errors.New("graph: family data required")
	}
	familyID := fam.FamilyID

	g, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return err
	}
	if g.Entities[childID] == nil {
		return fmt.Errorf("graph: child %q not found", childID)
	}

	for _, appt := range fam.Appointments {
		if appt.ChildID != childID {
			continue
		}
		_, err := s.AddEntity(ctx, familyID, appt.ID, EntityAppointment, Properties{
			"title": appt.Title,
			"date":  appt.Date,
			"type":  "medical",
		})
		if err != nil {
			return err
		}
		if _, err := s.AddRelationship(ctx, familyID, childID, appt.ID, RelAttends, nil); err != nil {
			return err
		}
		if appt.ProviderID != "" {
			if g.Entities[appt.ProviderID] == nil {
				provName := "Provider"
				if p, ok := fam.ProviderByID(appt.ProviderID); ok {
					provName = p.Name
				}
				if _, err := s.AddEntity(ctx, familyID, appt.ProviderID, EntityProvider, Properties{"name": provName, "type": "medical"}); err != nil {
					return err
				}
			}
			if _, err := s.AddRelationship(ctx, familyID, appt.ProviderID, appt.ID, RelProvides, nil); err != nil {
				return err
			}
		}
	}

	for _, rec := range fam.GrowthRecords {
		if rec.ChildID != childID {
			continue
		}
		id := fmt.Sprintf("growth-%s-%s", childID, rec.RecordedAt.Format("2006-01-02"))
		_, err := s.AddEntity(ctx, familyID, id, EntityMilestone, Properties{
			"type":   "growth",
			"date":   rec.RecordedAt,
			"height": rec.HeightCm,
			"weight": rec.WeightKg,
		})
		if err != nil {
			return err
		}
		if _, err := s.AddRelationship(ctx, familyID, id, childID, RelMilestoneOf, nil); err != nil {
			return err
		}
	}

	for _, rec := range fam.EmotionalRecords {
		if rec.ChildID != childID {
			continue
		}
		id := fmt.Sprintf("emotion-%s-%s", childID, rec.RecordedAt.Format("2006-01-02"))
		_, err := s.AddEntity(ctx, familyID, id, EntityMilestone, Properties{
			"type":    "emotional",
			"date":    rec.RecordedAt,
			"emotion": rec.Mood,
		})
		if err != nil {
			return err
		}
		if _, err := s.AddRelationship(ctx, familyID, id, childID, RelMilestoneOf, nil); err != nil {
			return err
		}
	}

	return nil
}
