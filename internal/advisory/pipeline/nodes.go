package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/allie-ai/allie-core/internal/advisory/conversations"
	"github.com/allie-ai/allie-core/internal/advisory/model"
	"github.com/allie-ai/allie-core/internal/advisory/prompts"
	advtools "github.com/allie-ai/allie-core/internal/advisory/tools"
	"github.com/allie-ai/allie-core/internal/classifier"
	"github.com/allie-ai/allie-core/internal/conversation"
	"github.com/allie-ai/allie-core/internal/family"
	"github.com/allie-ai/allie-core/internal/graph"
	"github.com/allie-ai/allie-core/internal/personalization"
	"github.com/allie-ai/allie-core/internal/retrieval"
	logx "github.com/allie-ai/allie-core/pkg/logger"
)

// Node names used when composing the graph.
const (
	NodeAnalyzer          = "Analyzer"
	NodeGraphAnswer       = "GraphAnswer"
	NodePromptAssembler   = "PromptAssembler"
	NodeResponseChatModel = "ResponseChatModel"
	NodeToolExecutor      = "ToolExecutor"
	NodePersonalizer      = "Personalizer"
)

// NewAnalyzerPreHandler creates the pre-handler for the Analyzer node
func NewAnalyzerPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		s.FamilyID = in.FamilyID
		s.Query = in.Query
		// Reset per-query state
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		s.Retrieval = nil
		return in, nil
	}
}

// NewAnalyzerNode creates the Analyzer node: it records the user turn,
// resolves the family snapshot, and runs the rule-based message analysis.
func NewAnalyzerNode(
	clf *classifier.Classifier,
	mm *conversations.MessagesManager,
	families model.FamilySource,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) (classifier.Analysis, error) {
		var fam *family.Data
		if families != nil {
			f, err := families.Lookup(ctx, input.FamilyID)
			if err != nil {
				logx.Warn().Err(err).Str("family_id", input.FamilyID).Msg("family lookup failed, continuing without family data")
			} else {
				fam = f
			}
		}

		if err := mm.RecordUserMessage(ctx, input.FamilyID, input.Query); err != nil {
			return classifier.Analysis{}, fmt.Errorf("record user message: %w", err)
		}

		analysis := clf.AnalyzeMessage(input.Query, input.FamilyID, fam)

		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.Family = fam
			return nil
		})
		if err != nil {
			return classifier.Analysis{}, fmt.Errorf("failed to access state: %w", err)
		}
		return analysis, nil
	})
}

// NewAnalyzerPostHandler creates the post-handler for the Analyzer node
func NewAnalyzerPostHandler() func(context.Context, classifier.Analysis, *model.AppState) (classifier.Analysis, error) {
	return func(ctx context.Context, out classifier.Analysis, state *model.AppState) (classifier.Analysis, error) {
		state.Analysis = &out

		logx.Debug().
			Str("family_id", state.FamilyID).
			Str("intent", out.Classification.Intent).
			Float64("confidence", out.Classification.Confidence).
			Str("category", out.Classification.Category).
			Bool("is_question", out.IsQuestion).
			Msg("Message analyzed")
		return out, nil
	}
}

// NewGraphRouteCondition routes queries the knowledge graph can answer
// directly to the GraphAnswer node, everything else to prompt assembly.
func NewGraphRouteCondition() func(context.Context, classifier.Analysis) (string, error) {
	return func(ctx context.Context, input classifier.Analysis) (string, error) {
		var query string
		compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			query = state.Query
			return nil
		})

		if intent := graph.QueryIntent(query); intent != graph.QueryUnknown {
			logx.Debug().Str("graph_intent", intent).Msg("Routing to GraphAnswer - query handled by knowledge graph")
			return NodeGraphAnswer, nil
		}
		logx.Debug().Msg("Routing to PromptAssembler - query needs generated response")
		return NodePromptAssembler, nil
	}
}

// NewGraphAnswerNode answers knowledge graph queries without invoking the
// response model.
func NewGraphAnswerNode(
	g *graph.Service,
	store *conversation.Store,
	mm *conversations.MessagesManager,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input classifier.Analysis) (*schema.Message, error) {
		var familyID, query string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			familyID = state.FamilyID
			query = state.Query
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		qr, err := g.ExecuteQuery(ctx, familyID, query)
		if err != nil {
			return nil, fmt.Errorf("graph query: %w", err)
		}

		var b strings.Builder
		b.WriteString(qr.Message)
		for _, entity := range qr.Entities {
			name := entity.Name()
			if name == "" {
				name = entity.ID
			}
			fmt.Fprintf(&b, "\n- %s (%s)", name, entity.Type)
		}
		for _, insight := range qr.Insights {
			fmt.Fprintf(&b, "\n- [%s] %s: %s", insight.Severity, insight.Title, insight.Description)
		}
		content := b.String()

		store.SetPreviousIntent(familyID, input.Classification.Intent)
		if err := mm.SaveResponse(ctx, familyID, content); err != nil {
			logx.Error().Err(err).Str("family_id", familyID).Msg("Error saving graph answer")
		}

		return schema.AssistantMessage(content, nil), nil
	})
}

// NewPromptAssemblerNode creates the PromptAssembler node: it retrieves
// supporting content, builds the personalized system prompt, and attaches
// the recent transcript.
func NewPromptAssemblerNode(
	rtr *retrieval.Service,
	eng *personalization.Engine,
	mm *conversations.MessagesManager,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, analysis classifier.Analysis) ([]*schema.Message, error) {
		var familyID, query string
		var fam *family.Data
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			familyID = state.FamilyID
			query = state.Query
			fam = state.Family
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		result := rtr.Retrieve(ctx, query, familyID, fam)
		err = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.Retrieval = &result
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		basePrompt := eng.GeneratePrompt(ctx, familyID, analysis, fam)
		enhanced := retrieval.EnhancePrompt(basePrompt, result, query)
		enhanced += fmt.Sprintf(
			"\n\nTOOLS:\nWhen you need facts from the family knowledge graph, call %s or %s with family_id %q.",
			advtools.ToolSearchFamilyGraph, advtools.ToolGetFamilyInsights, familyID,
		)

		systemPrompt, err := prompts.RenderAdvisorSystem(ctx, enhanced)
		if err != nil {
			return nil, fmt.Errorf("render advisor prompt: %w", err)
		}

		messages, err := mm.BuildResponseContext(ctx, familyID, systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("build response context: %w", err)
		}
		return messages, nil
	})
}

// NewResponseChatModelPreHandler creates the pre-handler for ResponseChatModel node
func NewResponseChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Heuristic fix for Gemini: ensure tool results carry tool_call_id
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			wrapUp := &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Please synthesize a helpful response using the information you've already gathered. "+
						"Acknowledge any limitations in your response if you couldn't complete all necessary tool calls.",
					maxToolCalls,
				),
			}
			state.History = append(state.History, wrapUp)
		}

		logx.Debug().Msg("AI thinking...")

		return state.History, nil
	}
}

// NewResponseChatModelPostHandler creates the post-handler for ResponseChatModel node
func NewResponseChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if model.CostEnabled() && out != nil && out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			pricing := model.ResolvePricing(modelName)
			inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra["usage_cost"] = map[string]any{
				"currency":          "USD",
				"model":             modelName,
				"prompt_tokens":     out.ResponseMeta.Usage.PromptTokens,
				"completion_tokens": out.ResponseMeta.Usage.CompletionTokens,
				"total_tokens":      out.ResponseMeta.Usage.TotalTokens,
				"input_cost":        inC,
				"output_cost":       outC,
				"total_cost":        totalC,
			}
			logx.Debug().
				Str("family_id", state.FamilyID).
				Str("node", NodeResponseChatModel).
				Str("model", modelName).
				Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
				Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
				Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")

			state.TotalCostUSD += totalC
			out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
		}

		// Normalize tool calls: Gemini may omit tool_call IDs.
		if out != nil && len(out.ToolCalls) > 0 {
			for i := range out.ToolCalls {
				if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
					state.ToolCallIDSeq++
					out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
				}
			}
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("AI response ready")
		}

		return out, nil
	}
}

// NewToolExecutorCondition creates the condition function for tool execution routing
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to personalizer")
			return NodePersonalizer, nil
		}

		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}

		logx.Debug().Msg("No tool calls - continuing to personalizer")
		return NodePersonalizer, nil
	}
}

// NewToolExecutorPreHandler creates the pre-handler for ToolExecutor node
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("family_id", state.FamilyID).
			Msg("Tool execution attempt")

		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Str("family_id", state.FamilyID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}

		return in, nil
	}
}

// NewPersonalizerNode shapes the generated response to the family's
// preferences, appends citations, and saves the final turn.
func NewPersonalizerNode(
	eng *personalization.Engine,
	store *conversation.Store,
	mm *conversations.MessagesManager,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, out *schema.Message) (*schema.Message, error) {
		if out == nil || strings.TrimSpace(out.Content) == "" {
			return out, nil
		}

		var familyID, intent string
		var fam *family.Data
		var bundle *retrieval.Result
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			familyID = state.FamilyID
			fam = state.Family
			bundle = state.Retrieval
			if state.Analysis != nil {
				intent = state.Analysis.Classification.Intent
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		content := eng.PersonalizeResponse(ctx, familyID, out.Content, fam)
		if bundle != nil {
			content = retrieval.AddCitations(content, *bundle)
		}

		if intent != "" {
			store.SetPreviousIntent(familyID, intent)
		}
		if err := mm.SaveResponse(ctx, familyID, content); err != nil {
			logx.Error().Err(err).Str("family_id", familyID).Msg("Error saving assistant response")
		} else {
			logx.Debug().Str("family_id", familyID).Msg("Saved assistant response")
		}

		final := *out
		final.Content = content
		return &final, nil
	})
}
