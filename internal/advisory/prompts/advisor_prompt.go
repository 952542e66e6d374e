package prompts

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// RenderAdvisorSystem passes an already-assembled system prompt through the
// Eino prompt component. The content is final at this point; the wrapping
// exists so prompt callbacks fire with the rendered text.
func RenderAdvisorSystem(ctx context.Context, content string) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("advisor prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("advisor prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}
