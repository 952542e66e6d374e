package graph

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Query intents the natural language dispatcher recognizes.
const (
	QueryEntitySearch      = "entity_search"
	QueryRelationshipQuery = "relationship_query"
	QueryPathQuery         = "path_query"
	QueryInsightQuery      = "insight_query"
	QueryUnknown           = "unknown"
)

// QueryResult is the answer to one natural language graph query. Only the
// result slice matching the intent is populated.
type QueryResult struct {
	Intent      string       `json:"intent"`
	Query       string       `json:"query"`
	Message     string       `json:"message"`
	Entities    []Entity     `json:"entities,omitempty"`
	Connections []Connection `json:"connections,omitempty"`
	Paths       []Path       `json:"paths,omitempty"`
	Insights    []Insight    `json:"insights,omitempty"`
}

type queryIntent struct {
	intent      string
	entityType  string
	entityName1 string
	entityName2 string
}

type queryPattern struct {
	intent  string
	pattern *regexp.Regexp
}

// Ordered by specificity: the first matching pattern decides the intent.
var queryPatterns = []queryPattern{
	{QueryInsightQuery, regexp.MustCompile(`(?:what|any|show)\s+(?:insights|patterns|analysis)`)},
	{QueryInsightQuery, regexp.MustCompile(`(?:what|anything)\s+(?:interesting|notable|important)`)},
	{QueryInsightQuery, regexp.MustCompile(`(?:analyze|understand)\s+(?:our|my|the)\s+(?:family|data|relationships)`)},
	{QueryPathQuery, regexp.MustCompile(`(?:is|are)\s+(.+?)\s+(?:connected|related)\s+(?:to|with)\s+(.+)`)},
	{QueryPathQuery, regexp.MustCompile(`(?:find|show)\s+(?:a|the|any)\s+(?:path|connection|link)\s+(?:between|from)\s+(.+?)\s+(?:to|and)\s+(.+)`)},
	{QueryRelationshipQuery, regexp.MustCompile(`(?:how|what)\s+(?:is|are)\s+(.+?)\s+(?:related|connected)\s+(?:to|with)\s+(.+)`)},
	{QueryRelationshipQuery, regexp.MustCompile(`(?:who|what)\s+(?:is|are)\s+(?:the|a)\s+(\w+)\s+(?:of|for)\s+(.+)`)},
	{QueryEntitySearch, regexp.MustCompile(`(?:find|show|get)\s+(?:all|the)\s+(\w+)`)},
	{QueryEntitySearch, regexp.MustCompile(`(?:what|which)\s+(\w+)\s+(?:do|does)\s+(.+?)\s+(?:have|assigned)`)},
}

// QueryIntent reports which graph query intent a natural language query
// maps to, QueryUnknown when none matches.
func QueryIntent(query string) string {
	return classifyQuery(query).intent
}

// classifyQuery maps a natural language query onto a graph query intent
// and pulls out the referenced names.
func classifyQuery(query string) queryIntent {
	normalized := strings.ToLower(strings.TrimSpace(query))

	for _, qp := range queryPatterns {
		m := qp.pattern.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}

		qi := queryIntent{intent: qp.intent}
		switch qp.intent {
		case QueryEntitySearch:
			if len(m) > 1 {
				qi.entityType = m[1]
			}
			if len(m) > 2 {
				qi.entityName1 = m[2]
			}
		case QueryRelationshipQuery, QueryPathQuery:
			if len(m) > 1 {
				qi.entityName1 = strings.TrimRight(m[1], "?. ")
			}
			if len(m) > 2 {
				qi.entityName2 = strings.TrimRight(m[2], "?. ")
			}
		}
		return qi
	}

	return queryIntent{intent: QueryUnknown}
}

// ExecuteQuery answers a natural language question about the family's
// graph: entity listings, relationships around an entity, connectivity
// between two entities, or derived insights.
func (s *Service) ExecuteQuery(ctx context.Context, familyID, query string) (QueryResult, error) {
	qi := classifyQuery(query)
	result := QueryResult{Intent: qi.intent, Query: query}

	s.mu.Lock()
	g, err := s.getLocked(ctx, familyID)
	if err != nil {
		s.mu.Unlock()
		return QueryResult{}, err
	}
	g.Stats.LastQuery = &LastQuery{Query: query, Intent: qi.intent, Timestamp: s.clock.Now()}
	if err := s.saveLocked(ctx, g); err != nil {
		s.mu.Unlock()
		return QueryResult{}, err
	}
	s.mu.Unlock()

	switch qi.intent {
	case QueryEntitySearch:
		return s.entitySearch(ctx, familyID, result, qi)
	case QueryRelationshipQuery:
		return s.relationshipQuery(ctx, familyID, result, qi)
	case QueryPathQuery:
		return s.pathQuery(ctx, familyID, result, qi)
	case QueryInsightQuery:
		insights, err := s.GenerateInsights(ctx, familyID)
		if err != nil {
			return QueryResult{}, err
		}
		if len(insights) == 0 {
			result.Message = "I couldn't find any significant insights in the current family data. Try adding more data or relationships to the knowledge graph."
		} else {
			result.Insights = insights
			result.Message = fmt.Sprintf("I found %d %s in the family data.", len(insights), plural(len(insights), "insight"))
		}
		return result, nil
	default:
		result.Message = "I couldn't understand your query. Try asking about specific entities, relationships, or insights in the family knowledge graph."
		return result, nil
	}
}

func (s *Service) entitySearch(ctx context.Context, familyID string, result QueryResult, qi queryIntent) (QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getLocked(ctx, familyID)
	if err != nil {
		return QueryResult{}, err
	}

	var matches []Entity
	if qi.entityType != "" {
		matches = resolveEntityType(g, qi.entityType)
	} else {
		for _, e := range g.Entities {
			if e.Type != EntityFamily {
				matches = append(matches, *e)
			}
		}
	}

	if qi.entityName1 != "" {
		name := strings.ToLower(qi.entityName1)
		var filtered []Entity
		for _, e := range matches {
			if strings.Contains(strings.ToLower(e.Name()), name) {
				filtered = append(filtered, e)
			}
		}
		matches = filtered
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	if len(matches) == 0 {
		result.Message = "I couldn't find any matching entities in the knowledge graph."
	} else {
		result.Entities = matches
		result.Message = fmt.Sprintf("Found %d matching entities.", len(matches))
	}
	return result, nil
}

// resolveEntityType maps the word used in a query onto a stored entity
// type, handling plurals and the children/parents role shorthands.
func resolveEntityType(g *Graph, word string) []Entity {
	switch word {
	case "people", "members", "person":
		return entitiesOfType(g, EntityPerson)
	case "children", "kids":
		return filterByRole(entitiesOfType(g, EntityPerson), "child")
	case "parents":
		return filterByRole(entitiesOfType(g, EntityPerson), "parent")
	case "tasks", "todos":
		return entitiesOfType(g, EntityTask)
	}
	return entitiesOfType(g, strings.TrimSuffix(word, "s"))
}

func filterByRole(entities []Entity, role string) []Entity {
	var out []Entity
	for _, e := range entities {
		if r, _ := e.Properties["role"].(string); r == role {
			out = append(out, e)
		}
	}
	return out
}

func (s *Service) relationshipQuery(ctx context.Context, familyID string, result QueryResult, qi queryIntent) (QueryResult, error) {
	if qi.entityName1 == "" {
		result.Message = "I couldn't determine which entities to find relationships for."
		return result, nil
	}

	entity1, ok := s.findEntityByName(ctx, familyID, qi.entityName1)
	if !ok {
		result.Message = fmt.Sprintf("I couldn't find an entity named %q in the knowledge graph.", qi.entityName1)
		return result, nil
	}

	if qi.entityName2 != "" {
		entity2, ok := s.findEntityByName(ctx, familyID, qi.entityName2)
		if !ok {
			result.Message = fmt.Sprintf("I couldn't find an entity named %q in the knowledge graph.", qi.entityName2)
			return result, nil
		}

		paths, err := s.FindPaths(ctx, familyID, entity1.ID, entity2.ID, 0)
		if err != nil {
			return QueryResult{}, err
		}
		if len(paths) == 0 {
			result.Message = fmt.Sprintf("I couldn't find any relationships between %s and %s.", entity1.Name(), entity2.Name())
		} else {
			result.Paths = paths
			result.Message = fmt.Sprintf("Found %d %s between %s and %s.", len(paths), plural(len(paths), "connection"), entity1.Name(), entity2.Name())
		}
		return result, nil
	}

	conns, err := s.FindConnectedEntities(ctx, familyID, entity1.ID, "", "both")
	if err != nil {
		return QueryResult{}, err
	}
	if len(conns) == 0 {
		result.Message = fmt.Sprintf("I couldn't find any relationships for %s.", entity1.Name())
	} else {
		result.Connections = conns
		result.Message = fmt.Sprintf("Found %d %s for %s.", len(conns), plural(len(conns), "relationship"), entity1.Name())
	}
	return result, nil
}

func (s *Service) pathQuery(ctx context.Context, familyID string, result QueryResult, qi queryIntent) (QueryResult, error) {
	if qi.entityName1 == "" || qi.entityName2 == "" {
		result.Message = "I couldn't determine which entities to check connections for."
		return result, nil
	}

	entity1, ok1 := s.findEntityByName(ctx, familyID, qi.entityName1)
	if !ok1 {
		result.Message = fmt.Sprintf("I couldn't find an entity named %q in the knowledge graph.", qi.entityName1)
		return result, nil
	}
	entity2, ok2 := s.findEntityByName(ctx, familyID, qi.entityName2)
	if !ok2 {
		result.Message = fmt.Sprintf("I couldn't find an entity named %q in the knowledge graph.", qi.entityName2)
		return result, nil
	}

	paths, err := s.FindPaths(ctx, familyID, entity1.ID, entity2.ID, 0)
	if err != nil {
		return QueryResult{}, err
	}
	if len(paths) == 0 {
		result.Message = fmt.Sprintf("No, %s is not connected to %s in the knowledge graph.", entity1.Name(), entity2.Name())
	} else {
		result.Paths = paths
		result.Message = fmt.Sprintf("Yes, %s is connected to %s through %d %s.", entity1.Name(), entity2.Name(), len(paths), plural(len(paths), "path"))
	}
	return result, nil
}

// findEntityByName returns the first entity whose name contains the given
// text, case-insensitively. Ties resolve by entity ID for determinism.
func (s *Service) findEntityByName(ctx context.Context, familyID, name string) (Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getLocked(ctx, familyID)
	if err != nil {
		return Entity{}, false
	}

	needle := strings.ToLower(name)
	var matches []Entity
	for _, e := range g.Entities {
		if e.Name() != "" && strings.Contains(strings.ToLower(e.Name()), needle) {
			matches = append(matches, *e)
		}
	}
	if len(matches) == 0 {
		return Entity{}, false
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches[0], true
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
