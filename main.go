package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	advmodel "github.com/allie-ai/allie-core/internal/advisory/model"
	"github.com/allie-ai/allie-core/internal/advisory/pipeline"
	advrepo "github.com/allie-ai/allie-core/internal/advisory/repo"
	"github.com/allie-ai/allie-core/internal/classifier"
	"github.com/allie-ai/allie-core/internal/conversation"
	"github.com/allie-ai/allie-core/internal/core"
	"github.com/allie-ai/allie-core/internal/family"
	"github.com/allie-ai/allie-core/internal/graph"
	"github.com/allie-ai/allie-core/internal/personalization"
	"github.com/allie-ai/allie-core/internal/retrieval"
	pkgredis "github.com/allie-ai/allie-core/pkg/redis"
)

// AppConfig defines all configurable parameters for the advisor demo,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Advisor configs
	Response     advmodel.ResponseModelConfig
	Conversation advmodel.ConversationConfig
}

func main() {
	fmt.Println("Starting Allie family advisor demo...")
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	fmt.Println("Connected to Redis successfully")

	// ====================================================
	// Domain services
	clock := core.SystemClock{}
	convStore := conversation.NewStore(clock)
	clf := classifier.New(convStore, clock)
	graphSvc := graph.NewService(graph.NewRedisStore(rdb), clock)
	engine := personalization.NewEngine(personalization.NewRedisStore(rdb), clock)
	retriever := retrieval.NewService(graphSvc, convStore, clock)

	fam := demoFamily()
	if _, err := graphSvc.LoadFamilyData(ctx, fam); err != nil {
		log.Fatalf("Failed to load family data into graph: %v", err)
	}

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	cfg := pipeline.Config{
		APIKey:           envCfg.APIKey,
		BaseURL:          envCfg.BaseURL,
		ResponseModel:    envCfg.Response,
		Conversation:     envCfg.Conversation,
		ConversationRepo: advrepo.NewRedisConversationRepository(rdb, ttl),
		Families:         advmodel.StaticFamilySource{"johnson-demo": fam},
		Classifier:       clf,
		ConversationCtx:  convStore,
		Graph:            graphSvc,
		Retrieval:        retriever,
		Personalization:  engine,
	}

	runner, err := pipeline.BuildAdvisorGraph(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build advisor graph: %v", err)
	}

	testQueries := []struct {
		description string
		query       string
	}{
		{
			description: "Workload question answered from survey knowledge",
			query:       "How does Allie measure workload balance?",
		},
		{
			description: "Knowledge graph entity listing",
			query:       "show all tasks",
		},
		{
			description: "Advice request grounded in research",
			query:       "What does research say about the mental load at home?",
		},
		{
			description: "Follow-up about the family's own data",
			query:       "Who is handling most of our tasks this week?",
		},
	}

	for i, test := range testQueries {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Query: %q\n", test.query)
		fmt.Println("Processing...")

		response, err := runner.Invoke(ctx, advmodel.QueryInput{
			FamilyID: fam.FamilyID,
			Query:    test.query,
		})
		if err != nil {
			log.Fatalf("Failed to invoke advisor for test %d: %v", i+1, err)
		}

		fmt.Printf("Response %d: %s\n", i+1, response)
		fmt.Println("------------------------------------------------")

		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println("All advisor demo queries completed")
}

// demoFamily builds the sample family snapshot used by the demo run.
func demoFamily() *family.Data {
	now := time.Now()
	return &family.Data{
		FamilyID:   "johnson-demo",
		FamilyName: "Johnson",
		Members: []family.Member{
			{ID: "parent-1", Name: "Sara", Role: family.RoleParent, RoleType: family.RoleTypeMama},
			{ID: "parent-2", Name: "Tom", Role: family.RoleParent, RoleType: family.RoleTypePapa},
			{ID: "child-1", Name: "Maya", Role: family.RoleChild},
		},
		Tasks: []family.Task{
			{ID: "task-1", Title: "Grocery shopping", AssignedTo: "parent-1"},
			{ID: "task-2", Title: "School pickup", AssignedTo: "parent-1"},
			{ID: "task-3", Title: "Meal planning", AssignedTo: "parent-1"},
			{ID: "task-4", Title: "Take out trash", AssignedTo: "parent-2", Completed: true},
		},
		Providers: []family.Provider{
			{ID: "provider-1", Name: "Dr. Smith", Specialty: "pediatrician"},
		},
		Appointments: []family.Appointment{
			{ID: "appt-1", ChildID: "child-1", ProviderID: "provider-1", Title: "Annual checkup", Date: now.AddDate(0, 0, 12)},
		},
		HasSurveyData:  true,
		HasBalanceData: true,
		CurrentWeek:    8,
		MamaPercentage: 68.0,
	}
}
