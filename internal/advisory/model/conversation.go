package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// AddMessage appends a message to the family's conversation transcript
	AddMessage(ctx context.Context, familyID string, message *schema.Message) error

	// LoadHistory retrieves the conversation transcript for a family
	LoadHistory(ctx context.Context, familyID string) (*ConversationHistory, error)

	// ClearHistory removes the family's conversation transcript
	ClearHistory(ctx context.Context, familyID string) error

	// MessageCount returns the number of messages in the transcript
	MessageCount(ctx context.Context, familyID string) (int, error)
}

// ConversationHistory represents loaded transcript data with metadata.
type ConversationHistory struct {
	FamilyID string
	Messages []*schema.Message
}
