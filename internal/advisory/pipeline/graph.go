package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/allie-ai/allie-core/internal/advisory/conversations"
	"github.com/allie-ai/allie-core/internal/advisory/model"
	"github.com/allie-ai/allie-core/internal/advisory/observers"
	advtools "github.com/allie-ai/allie-core/internal/advisory/tools"
	"github.com/allie-ai/allie-core/internal/classifier"
	"github.com/allie-ai/allie-core/internal/conversation"
	"github.com/allie-ai/allie-core/internal/graph"
	"github.com/allie-ai/allie-core/internal/personalization"
	"github.com/allie-ai/allie-core/internal/retrieval"
	logx "github.com/allie-ai/allie-core/pkg/logger"
)

// apologyResponse is the last rung of the fallback ladder.
const apologyResponse = "I'm sorry, I'm having trouble putting together a good answer right now. Please try again in a moment."

// Runner is a thin wrapper to execute the compiled graph with the public QueryInput.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (string, error)
}

// Config holds everything needed to compose the full advisor pipeline end-to-end.
type Config struct {
	APIKey  string
	BaseURL string

	ResponseModel model.ResponseModelConfig
	Conversation  model.ConversationConfig

	ConversationRepo model.ConversationRepository
	Families         model.FamilySource

	Classifier      *classifier.Classifier
	ConversationCtx *conversation.Store
	Graph           *graph.Service
	Retrieval       *retrieval.Service
	Personalization *personalization.Engine
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels      *ChatModels
	MessagesManager *conversations.MessagesManager
	ToolMaxCalls    int

	Classifier      *classifier.Classifier
	ConversationCtx *conversation.Store
	Graph           *graph.Service
	Retrieval       *retrieval.Service
	Personalization *personalization.Engine
	Families        model.FamilySource
}

// GraphBuilder handles the construction of the advisor pipeline graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
	models   *ChatModels
	timeout  time.Duration
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logx.Error().Interface("panic", rec).Str("family_id", in.FamilyID).Msg("panic during pipeline invoke")
			out, err = apologyResponse, nil
		}
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	msg, invokeErr := r.runnable.Invoke(ctx, model.QueryInput{
		FamilyID: in.FamilyID,
		Query:    in.Query,
	}, compose.WithCallbacks(observers.NewAllCallbacks()))
	if invokeErr != nil {
		logx.Error().Err(invokeErr).Str("family_id", in.FamilyID).Msg("pipeline invoke failed, falling back to plain generation")
		return r.fallback(ctx, in), nil
	}
	if msg == nil {
		return "", nil
	}
	if len(msg.Extra) > 0 {
		if b, err := json.MarshalIndent(msg.Extra, "", "  "); err == nil {
			logx.Debug().RawJSON("extra", b).Msg("response extra")
		}
	}
	return msg.Content, nil
}

// fallback tries a single plain model call and finally a canned apology.
func (r *graphRunner) fallback(ctx context.Context, in model.QueryInput) string {
	msgs := []*schema.Message{
		schema.SystemMessage("You are Allie, a warm assistant that helps families coordinate tasks, schedules, and family life. Answer briefly and helpfully."),
		schema.UserMessage(in.Query),
	}
	out, err := r.models.Response.Generate(ctx, msgs)
	if err != nil || out == nil || strings.TrimSpace(out.Content) == "" {
		if err != nil {
			logx.Error().Err(err).Str("family_id", in.FamilyID).Msg("fallback generation failed")
		}
		return apologyResponse
	}
	return out.Content
}

// BuildAdvisorGraph composes chat models and the messages manager, builds
// the pipeline graph, and returns a Runner.
func BuildAdvisorGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.Classifier == nil || cfg.ConversationCtx == nil {
		return nil, fmt.Errorf("classifier or conversation store is nil")
	}
	if cfg.Graph == nil || cfg.Retrieval == nil || cfg.Personalization == nil {
		return nil, fmt.Errorf("graph, retrieval, or personalization service is nil")
	}

	cms, err := NewChatModels(ctx, ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		RespConfig: &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	mm := conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:      cms,
		MessagesManager: mm,
		ToolMaxCalls:    cfg.Conversation.Tools.MaxCalls,
		Classifier:      cfg.Classifier,
		ConversationCtx: cfg.ConversationCtx,
		Graph:           cfg.Graph,
		Retrieval:       cfg.Retrieval,
		Personalization: cfg.Personalization,
		Families:        cfg.Families,
	})
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(cfg.ResponseModel.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid response timeout %q: %w", cfg.ResponseModel.Timeout, err)
	}

	logx.Debug().Msg("Advisor graph built successfully")
	return &graphRunner{runnable: runnable, models: cms, timeout: timeout}, nil
}

// BuildGraph constructs and returns the compiled advisor pipeline
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Response == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools configures the knowledge graph tools and binds them to the response model
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	businessTools := advtools.GetQueryTools(b.config.Graph)
	toolInfos, err := advtools.GetToolInfos(ctx, businessTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindToolsToResponseModel(ctx, toolInfos); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to response model")
		return fmt.Errorf("failed to bind tools to response model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               businessTools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// Gracefully handle hallucinated or malformed tool calls
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			// Best-effort sanitize; never fail hard here
			var m map[string]any
			if err := json.Unmarshal([]byte(arguments), &m); err != nil {
				return arguments, nil
			}

			for _, key := range []string{"family_id", "query", "severity"} {
				v, ok := m[key]
				if !ok {
					continue
				}
				switch vv := v.(type) {
				case string:
					m[key] = strings.TrimSpace(vv)
				default:
					m[key] = strings.TrimSpace(fmt.Sprint(v))
				}
			}
			if sev, ok := m["severity"].(string); ok {
				switch sev {
				case "info", "medium", "high", "":
				default:
					delete(m, "severity")
				}
			}

			b, err := json.Marshal(m)
			if err != nil {
				return arguments, nil
			}
			return string(b), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)

	return nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(NodeAnalyzer,
		NewAnalyzerNode(b.config.Classifier, b.config.MessagesManager, b.config.Families),
		compose.WithStatePreHandler(NewAnalyzerPreHandler()),
		compose.WithStatePostHandler(NewAnalyzerPostHandler()),
	)

	b.graph.AddLambdaNode(NodeGraphAnswer,
		NewGraphAnswerNode(b.config.Graph, b.config.ConversationCtx, b.config.MessagesManager),
	)

	b.graph.AddLambdaNode(NodePromptAssembler,
		NewPromptAssemblerNode(b.config.Retrieval, b.config.Personalization, b.config.MessagesManager),
	)

	b.graph.AddChatModelNode(NodeResponseChatModel,
		NewResponseChatModelNode(b.config.ChatModels.Response),
		compose.WithStatePreHandler(NewResponseChatModelPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(NewResponseChatModelPostHandler(b.config.ChatModels.ResponseModelName)),
	)

	b.graph.AddLambdaNode(NodePersonalizer,
		NewPersonalizerNode(b.config.Personalization, b.config.ConversationCtx, b.config.MessagesManager),
	)
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, NodeAnalyzer},
		{NodeGraphAnswer, compose.END},
		{NodePromptAssembler, NodeResponseChatModel},
		{NodeToolExecutor, NodeResponseChatModel},
		{NodePersonalizer, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		NewGraphRouteCondition(),
		map[string]bool{
			NodeGraphAnswer:     true,
			NodePromptAssembler: true,
		},
	)
	if err := b.graph.AddBranch(NodeAnalyzer, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding graph route branch")
		return fmt.Errorf("error adding graph route branch: %w", err)
	}

	decisionBranch := compose.NewGraphBranch(
		NewToolExecutorCondition(),
		map[string]bool{
			NodeToolExecutor: true,
			NodePersonalizer: true,
		},
	)
	if err := b.graph.AddBranch(NodeResponseChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	maxSteps := 10 + b.config.ToolMaxCalls*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
