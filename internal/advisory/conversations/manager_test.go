package conversations

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allie-ai/allie-core/internal/advisory/model"
	"github.com/allie-ai/allie-core/internal/advisory/repo"
)

func newTestManager(maxTurns int) (*MessagesManager, *repo.MemoryConversationRepository) {
	store := repo.NewMemoryConversationRepository()
	var cfg model.ConversationConfig
	cfg.History.MaxTurns = maxTurns
	return NewMessagesManager(store, cfg), store
}

func TestRecordAndBuildResponseContext(t *testing.T) {
	mm, _ := newTestManager(10)
	ctx := context.Background()

	require.NoError(t, mm.RecordUserMessage(ctx, "fam-1", "how do we balance the workload?"))
	require.NoError(t, mm.SaveResponse(ctx, "fam-1", "Here is a suggestion."))

	messages, err := mm.BuildResponseContext(ctx, "fam-1", "SYSTEM PROMPT")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, schema.System, messages[0].Role)
	assert.Equal(t, "SYSTEM PROMPT", messages[0].Content)
	assert.Equal(t, schema.User, messages[1].Role)
	assert.Equal(t, schema.Assistant, messages[2].Role)
}

func TestBuildResponseContextTrimsHistory(t *testing.T) {
	mm, _ := newTestManager(4)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, mm.RecordUserMessage(ctx, "fam-1", fmt.Sprintf("message %d", i)))
	}

	messages, err := mm.BuildResponseContext(ctx, "fam-1", "SYSTEM PROMPT")
	require.NoError(t, err)
	// system prompt plus the four most recent turns
	require.Len(t, messages, 5)
	assert.Equal(t, "message 2", messages[1].Content)
	assert.Equal(t, "message 5", messages[4].Content)
}

func TestHistoryIsolatedPerFamily(t *testing.T) {
	mm, store := newTestManager(10)
	ctx := context.Background()

	require.NoError(t, mm.RecordUserMessage(ctx, "fam-1", "hello"))
	require.NoError(t, mm.RecordUserMessage(ctx, "fam-2", "hi there"))

	n, err := store.MessageCount(ctx, "fam-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	messages, err := mm.BuildResponseContext(ctx, "fam-2", "SYSTEM")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi there", messages[1].Content)
}
