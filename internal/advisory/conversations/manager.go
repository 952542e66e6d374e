package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/allie-ai/allie-core/internal/advisory/model"
)

// MessagesManager persists conversation turns and assembles the message
// window handed to the response model.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         config.History.MaxTurns,
	}
}

// RecordUserMessage appends the incoming user message to the family's
// transcript before the pipeline runs.
func (cm *MessagesManager) RecordUserMessage(ctx context.Context, familyID string, query string) error {
	return cm.conversationRepo.AddMessage(ctx, familyID, schema.UserMessage(query))
}

// BuildResponseContext returns the system prompt followed by the most
// recent transcript turns.
func (cm *MessagesManager) BuildResponseContext(ctx context.Context, familyID string, systemPrompt string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, familyID)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
	}
	messages = append(messages, trimTail(history.Messages, cm.maxTurns)...)

	return messages, nil
}

func (cm *MessagesManager) SaveResponse(ctx context.Context, familyID string, content string) error {
	assistantMsg := schema.AssistantMessage(content, nil)
	return cm.conversationRepo.AddMessage(ctx, familyID, assistantMsg)
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
