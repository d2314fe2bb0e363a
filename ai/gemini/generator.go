package gemini

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/core"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// Generator implements ai.Generator with a Gemini chat session per call.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float64
	logger      *slog.Logger
}

func newGenerator(client *genai.Client, model string, temperature float64) *Generator {
	return &Generator{
		client:      client,
		model:       model,
		temperature: temperature,
		logger:      slog.Default().With("component", "gemini-generator"),
	}
}

// Generate replays the prompt history into a fresh chat session and sends the user turn.
func (g *Generator) Generate(ctx context.Context, prompt ai.Prompt) (string, error) {
	// GenerativeModel carries per-request settings, so each call gets its own.
	model := g.client.GenerativeModel(g.model)
	configure(model, prompt, g.temperature)

	cs := model.StartChat()
	cs.History = history(prompt.History)

	g.logger.Debug("generating content", "history", len(prompt.History), "json", prompt.JSON)
	resp, err := cs.SendMessage(ctx, genai.Text(prompt.UserMessage()))
	if err != nil {
		g.logger.Error("failed to generate content", "err", err)
		return "", err
	}
	return responseText(resp)
}

func configure(model *genai.GenerativeModel, prompt ai.Prompt, temperature float64) {
	if prompt.Temperature != nil {
		temperature = *prompt.Temperature
	}
	model.SetTemperature(float32(temperature))
	if prompt.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}
	}
	if prompt.JSON {
		model.ResponseMIMEType = "application/json"
	}
}

func history(turns []core.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, 2*len(turns))
	for _, turn := range turns {
		out = append(out,
			&genai.Content{Role: roleUser, Parts: []genai.Part{genai.Text(turn.Question)}},
			&genai.Content{Role: roleModel, Parts: []genai.Part{genai.Text(turn.Answer)}},
		)
	}
	return out
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ai.ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", ai.ErrEmptyResponse
	}
	return sb.String(), nil
}
