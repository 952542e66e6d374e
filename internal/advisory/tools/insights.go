package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/samber/lo"

	"github.com/allie-ai/allie-core/internal/graph"
)

// ===================================
// Family Insights Tool
// ===================================

type FamilyInsightsInput struct {
	FamilyID string `json:"family_id"`
	Severity string `json:"severity,omitempty"`
}

type FamilyInsightItem struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	ActionItem  string `json:"action_item,omitempty"`
}

type FamilyInsightsOutput struct {
	Insights []FamilyInsightItem `json:"insights"`
	Total    int                 `json:"total"`
}

func createFamilyInsightsTool(g *graph.Service) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetFamilyInsights,
			Desc: "Generate heuristic insights from the family knowledge graph: workload imbalance between parents, child growth trends, and emotional check-in patterns. Use this when the conversation asks how the family is doing or whether anything needs attention.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"family_id": {
					Type:     "string",
					Desc:     "Identifier of the family to analyze. Use the family_id given in the system prompt.",
					Required: true,
				},
				"severity": {
					Type: "string",
					Desc: "Optional severity filter: info, medium, or high.",
				},
			}),
		},
		func(ctx context.Context, in *FamilyInsightsInput) (*FamilyInsightsOutput, error) {
			if in.FamilyID == "" {
				return nil, fmt.Errorf("family_id is required")
			}

			insights, err := g.GenerateInsights(ctx, in.FamilyID)
			if err != nil {
				return nil, fmt.Errorf("generate insights: %w", err)
			}
			if in.Severity != "" {
				insights = lo.Filter(insights, func(i graph.Insight, _ int) bool {
					return i.Severity == in.Severity
				})
			}

			items := lo.Map(insights, func(i graph.Insight, _ int) FamilyInsightItem {
				return FamilyInsightItem{
					Type:        i.Type,
					Title:       i.Title,
					Description: i.Description,
					Severity:    i.Severity,
					ActionItem:  i.ActionItem,
				}
			})
			return &FamilyInsightsOutput{Insights: items, Total: len(items)}, nil
		},
	)
}
