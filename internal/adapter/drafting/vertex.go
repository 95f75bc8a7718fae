package drafting

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot provide",
	"as a large language model",
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexGenerator drafts letters with a Gemini model on Vertex AI.
type VertexGenerator struct {
	model  contentGenerator
	client *genai.Client
}

// NewVertexGenerator connects to Vertex AI and configures modelName for drafting.
func NewVertexGenerator(ctx context.Context, projectID, region, modelName string) (*VertexGenerator, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex generator: project and region cannot be empty")
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	m := client.GenerativeModel(modelName)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	return &VertexGenerator{model: m, client: client}, nil
}

// GenerateDraft sends the rendered intake to the model and returns its text.
func (g *VertexGenerator) GenerateDraft(ctx context.Context, intake model.Intake) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildPrompt(intake)))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := extractText(resp)
	if text == "" {
		return "", ErrEmptyDraft
	}
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", fmt.Errorf("model refused to draft the letter")
		}
	}
	return text, nil
}

// Close releases the underlying client.
func (g *VertexGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
