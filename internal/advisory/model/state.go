package model

import (
	"github.com/cloudwego/eino/schema"

	"github.com/allie-ai/allie-core/internal/classifier"
	"github.com/allie-ai/allie-core/internal/family"
	"github.com/allie-ai/allie-core/internal/retrieval"
)

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex/atomic is required as long as you never touch it outside handlers.
type AppState struct {
	FamilyID string
	Query    string

	Family    *family.Data         // resolved by the analyzer node, may stay nil
	Analysis  *classifier.Analysis // set by the analyzer post-handler
	Retrieval *retrieval.Result    // set by the prompt assembler, read by the personalizer

	History              []*schema.Message // mutated only inside Eino state handlers
	ToolCallCount        int
	ToolCallLimitReached bool
	ToolCallIDSeq        int // local sequence to synthesize tool_call_id when provider omits

	// Accumulated total LLM cost (USD) across model invocations for this query
	TotalCostUSD float64
}

// QueryInput represents the input for processing one family message.
type QueryInput struct {
	FamilyID string `json:"family_id"`
	Query    string `json:"query"`
}
