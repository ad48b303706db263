package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Identification is the structured result of a vision call.
type Identification struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
}

// VisionIdentifier names a dish from an image.
type VisionIdentifier interface {
	Identify(ctx context.Context, image []byte, contentType, userContext string) (*Identification, error)
}

// VisionService calls the Gemini vision model to identify a photographed
// dish.
type VisionService struct {
	client    *genai.Client
	modelName string
}

func NewVisionService(ctx context.Context) (*VisionService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(os.Getenv("GEMINI_API_KEY")))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	modelName := os.Getenv("GEMINI_MODEL")
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VisionService{client: client, modelName: modelName}, nil
}

const identifyPrompt = `Please identify this food or dish. Provide:
1) The name of the dish
2) A brief description (2-3 sentences) of what it is and why it's notable or interesting
3) The main ingredients you can identify

Respond with JSON only, no markdown, with these exact fields:
{ "name": "...", "description": "...", "ingredients": ["...", "..."] }`

// Identify sends the image and an optional user-supplied context string to
// the model and parses the structured reply. A reply without usable JSON
// still produces a fallback record rather than an error.
func (v *VisionService) Identify(ctx context.Context, image []byte, contentType, userContext string) (*Identification, error) {
	prompt := identifyPrompt
	if strings.TrimSpace(userContext) != "" {
		prompt = fmt.Sprintf("%s\n\nAdditional context from the user: %s", identifyPrompt, userContext)
	}

	model := v.client.GenerativeModel(v.modelName)
	img := genai.ImageData(imageFormat(contentType), image)
	resp, err := model.GenerateContent(ctx, img, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return ParseIdentification(responseText(resp)), nil
}

// ParseIdentification extracts a structured record from the model's
// free-text reply. Best effort, in order: the first-to-last brace substring,
// then the whole reply as JSON, then a synthetic record carrying the raw
// text as the description.
func ParseIdentification(raw string) *Identification {
	if sub, ok := braceSubstring(raw); ok {
		if ident := decodeIdentification(sub); ident != nil {
			return ident
		}
	}
	if ident := decodeIdentification(raw); ident != nil {
		return ident
	}

	return &Identification{
		Name:        "Unknown Dish",
		Description: raw,
		Ingredients: []string{},
	}
}

func decodeIdentification(s string) *Identification {
	var ident Identification
	if err := json.Unmarshal([]byte(s), &ident); err != nil {
		return nil
	}
	if ident.Name == "" {
		ident.Name = "Unknown Dish"
	}
	if ident.Ingredients == nil {
		ident.Ingredients = []string{}
	}
	return &ident
}

// imageFormat maps a MIME content type to the genai image format token.
func imageFormat(contentType string) string {
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 && parts[1] != "" {
		if parts[1] == "jpg" {
			return "jpeg"
		}
		return parts[1]
	}
	return "jpeg"
}
