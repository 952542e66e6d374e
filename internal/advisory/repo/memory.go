package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/allie-ai/allie-core/internal/advisory/model"
)

// MemoryConversationRepository keeps transcripts in process memory. Useful
// for demos and tests that run without Redis.
type MemoryConversationRepository struct {
	mu       sync.Mutex
	messages map[string][]*schema.Message
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{messages: map[string][]*schema.Message{}}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, familyID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[familyID] = append(r.messages[familyID], message)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, familyID string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]*schema.Message, len(r.messages[familyID]))
	copy(msgs, r.messages[familyID])
	return &model.ConversationHistory{FamilyID: familyID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, familyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, familyID)
	return nil
}

func (r *MemoryConversationRepository) MessageCount(_ context.Context, familyID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[familyID]), nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
