package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/allie-ai/allie-core/internal/graph"
)

// ===================================
// Search Family Graph Tool
// ===================================

type SearchFamilyGraphInput struct {
	FamilyID string `json:"family_id"`
	Query    string `json:"query"`
}

type SearchFamilyGraphOutput struct {
	Intent   string   `json:"intent"`
	Message  string   `json:"message"`
	Entities []string `json:"entities,omitempty"`
	Paths    []string `json:"paths,omitempty"`
	Insights []string `json:"insights,omitempty"`
}

func createSearchFamilyGraphTool(g *graph.Service) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchFamilyGraph,
			Desc: "Search the family knowledge graph with a natural language question. Handles entity listings ('show all tasks'), connection checks ('is Maya connected to Tom?'), and insight requests ('what insights do you have?'). Use this tool whenever the conversation needs facts about family members, tasks, appointments, or how they relate.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"family_id": {
					Type:     "string",
					Desc:     "Identifier of the family whose graph to query. Use the family_id given in the system prompt.",
					Required: true,
				},
				"query": {
					Type:     "string",
					Desc:     "Natural language graph question. Examples: show all tasks, is Maya connected to Tom, what insights do you have.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *SearchFamilyGraphInput) (*SearchFamilyGraphOutput, error) {
			if in.FamilyID == "" {
				return nil, fmt.Errorf("family_id is required")
			}
			if strings.TrimSpace(in.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}

			qr, err := g.ExecuteQuery(ctx, in.FamilyID, in.Query)
			if err != nil {
				return nil, fmt.Errorf("graph query: %w", err)
			}

			out := &SearchFamilyGraphOutput{
				Intent:  qr.Intent,
				Message: qr.Message,
			}
			for _, entity := range qr.Entities {
				out.Entities = append(out.Entities, describeEntity(entity))
			}
			for _, path := range qr.Paths {
				out.Paths = append(out.Paths, describePath(path))
			}
			for _, insight := range qr.Insights {
				out.Insights = append(out.Insights, fmt.Sprintf("[%s] %s: %s", insight.Severity, insight.Title, insight.Description))
			}
			return out, nil
		},
	)
}

func describeEntity(entity graph.Entity) string {
	name := entity.Name()
	if name == "" {
		name = entity.ID
	}
	return fmt.Sprintf("%s (%s)", name, entity.Type)
}

func describePath(path graph.Path) string {
	parts := make([]string, 0, len(path)*2)
	for i, step := range path {
		name := step.Entity.Name()
		if name == "" {
			name = step.Entity.ID
		}
		if i > 0 && step.Relationship.Type != "" {
			parts = append(parts, step.Relationship.Type)
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " -> ")
}
