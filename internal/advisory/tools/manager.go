package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/allie-ai/allie-core/internal/graph"
)

// Tool names bound to the response model.
const (
	ToolSearchFamilyGraph = "search_family_graph"
	ToolGetFamilyInsights = "get_family_insights"
)

// GetQueryTools returns the business tools available during response
// generation, all backed by the family knowledge graph service.
func GetQueryTools(g *graph.Service) []tool.BaseTool {
	return []tool.BaseTool{
		createSearchFamilyGraphTool(g),
		createFamilyInsightsTool(g),
	}
}

// GetToolInfos resolves the ToolInfo descriptors for binding to the model.
func GetToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
