package chatextract

import (
	"context"
	"fmt"

	"github.com/ktiyab/coheara/internal/llmclient"
)

// ClientAdapter satisfies LLM using the local model runtime's client. The
// runtime's generate endpoint takes one prompt string, so system and user
// prompts are joined the same way Ollama-shaped instruction models expect:
// system text first, then the user turn.
type ClientAdapter struct {
	Client *llmclient.Client
}

func NewClientAdapter(client *llmclient.Client) *ClientAdapter {
	return &ClientAdapter{Client: client}
}

func (a *ClientAdapter) Generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	prompt := fmt.Sprintf("%s\n\n%s", systemPrompt, userPrompt)
	resp, err := a.Client.Generate(ctx, llmclient.GenerateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("chatextract.ClientAdapter.Generate: %w", err)
	}
	return resp.Response, nil
}

var _ LLM = (*ClientAdapter)(nil)
