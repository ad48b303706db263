package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kyleolivo/viet-food/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rektypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Moderation confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ModerationResult is the gate's verdict on a piece of content.
type ModerationResult struct {
	Appropriate bool   `json:"appropriate"`
	Reason      string `json:"reason,omitempty"`
	Confidence  string `json:"confidence"`
}

// Moderator screens content before the pipeline processes it.
type Moderator interface {
	ModerateText(ctx context.Context, text string) (ModerationResult, error)
	ModerateImage(ctx context.Context, data []byte, contentType string) (ModerationResult, error)
}

// ModerationService classifies text with the Gemini model and images with
// Rekognition moderation labels. FailOpen decides what a classifier failure
// means: true (the default) treats the content as appropriate with low
// confidence, favoring availability over strict enforcement.
type ModerationService struct {
	gemini    *genai.Client
	modelName string
	rek       *rekognition.Client
	FailOpen  bool
}

func NewModerationService(ctx context.Context) (*ModerationService, error) {
	gemini, err := genai.NewClient(ctx, option.WithAPIKey(os.Getenv("GEMINI_API_KEY")))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	modelName := os.Getenv("GEMINI_MODEL")
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &ModerationService{
		gemini:    gemini,
		modelName: modelName,
		rek:       rekognition.NewFromConfig(cfg),
		FailOpen:  true,
	}, nil
}

const textModerationPrompt = `Analyze this text for inappropriate content including hate speech, explicit content, violence, harassment, or spam. Respond with JSON containing: { "appropriate": true/false, "reason": "brief explanation if inappropriate", "confidence": "high/medium/low" }

Text to analyze: %q`

// ModerateText classifies free text. Empty text is appropriate by definition.
func (m *ModerationService) ModerateText(ctx context.Context, text string) (ModerationResult, error) {
	if strings.TrimSpace(text) == "" {
		return ModerationResult{Appropriate: true, Confidence: ConfidenceHigh}, nil
	}

	model := m.gemini.GenerativeModel(m.modelName)
	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(textModerationPrompt, text)))
	if err != nil {
		return m.classifierFailure(err)
	}

	return m.verdictFromReply(responseText(resp)), nil
}

// ModerateImage runs Rekognition moderation labels over the image bytes. Any
// label at or above the confidence floor rejects the image.
func (m *ModerationService) ModerateImage(ctx context.Context, data []byte, contentType string) (ModerationResult, error) {
	out, err := m.rek.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image:         &rektypes.Image{Bytes: data},
		MinConfidence: aws.Float32(60),
	})
	if err != nil {
		return m.classifierFailure(err)
	}

	var top *rektypes.ModerationLabel
	for i := range out.ModerationLabels {
		l := &out.ModerationLabels[i]
		if top == nil || derefFloat32(l.Confidence) > derefFloat32(top.Confidence) {
			top = l
		}
	}
	if top == nil {
		return ModerationResult{Appropriate: true, Confidence: ConfidenceHigh}, nil
	}

	conf := derefFloat32(top.Confidence)
	level := ConfidenceLow
	switch {
	case conf >= 90:
		level = ConfidenceHigh
	case conf >= 75:
		level = ConfidenceMedium
	}

	name := "inappropriate content"
	if top.Name != nil && *top.Name != "" {
		name = *top.Name
	}
	return ModerationResult{
		Appropriate: false,
		Reason:      name,
		Confidence:  level,
	}, nil
}

// classifierFailure applies the fail-open policy: allow with low confidence,
// or surface the error when the gate is configured strict.
func (m *ModerationService) classifierFailure(err error) (ModerationResult, error) {
	if m.FailOpen {
		logger.Warn("moderation classifier failed, failing open", "error", err)
		return ModerationResult{Appropriate: true, Confidence: ConfidenceLow}, nil
	}
	return ModerationResult{}, err
}

// verdictFromReply extracts the JSON verdict from the model's free-text
// reply. Unparseable replies follow the fail-open policy with low confidence.
func (m *ModerationService) verdictFromReply(raw string) ModerationResult {
	if result, ok := parseVerdict(raw); ok {
		return result
	}
	if !m.FailOpen {
		return ModerationResult{Appropriate: false, Reason: "unparseable moderation verdict", Confidence: ConfidenceLow}
	}
	return ModerationResult{Appropriate: true, Confidence: ConfidenceLow}
}

func parseVerdict(raw string) (ModerationResult, bool) {
	var verdict struct {
		Appropriate *bool  `json:"appropriate"`
		Reason      string `json:"reason"`
		Confidence  string `json:"confidence"`
	}

	sub, ok := braceSubstring(raw)
	if !ok || json.Unmarshal([]byte(sub), &verdict) != nil {
		return ModerationResult{}, false
	}

	confidence := verdict.Confidence
	switch confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		confidence = ConfidenceMedium
	}

	// Missing "appropriate" is treated as approval; only an explicit false
	// rejects.
	return ModerationResult{
		Appropriate: verdict.Appropriate == nil || *verdict.Appropriate,
		Reason:      verdict.Reason,
		Confidence:  confidence,
	}, true
}

// braceSubstring returns the first-to-last brace slice of raw, the widest
// candidate for an embedded JSON object.
func braceSubstring(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// responseText concatenates the text parts of a Gemini reply.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

func derefFloat32(f *float32) float32 {
	if f == nil {
		return 0
	}
	return *f
}
