package generate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// Gemini generates persona replies through the Google GenAI API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Generate requests one reply. The caller owns the timeout on ctx.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{}
	if req.Voice != "" {
		config.SystemInstruction = genai.NewContentFromText(
			fmt.Sprintf("You are %s, %s. Reply in character with a short paragraph of prose. Never break character or mention game mechanics.", req.PersonaName, req.Voice),
			genai.RoleUser,
		)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}

	return ValidateReply(result.Text())
}
