package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/replyguy/memegen/internal/tracker"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// GenAISelector picks a template and captions it with a Gemini model. The
// model sees a numbered candidate list and answers in JSON.
type GenAISelector struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGenAISelector creates a Gemini-backed selector.
func NewGenAISelector(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GenAISelector, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai api key is required")
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

	return &GenAISelector{client: client, model: model, logger: logger}, nil
}

// Select asks the model for the most contextually fitting template and
// caption text.
func (s *GenAISelector) Select(ctx context.Context, req Request) (*Selection, error) {
	prompt := buildPrompt(req)

	resp, err := s.client.Models.GenerateContent(ctx,
		s.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0.8),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("genai select template: %w", err)
	}

	selection, err := ParseSelection(resp.Text(), req.Candidates)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("model selected template",
		zap.String("templateId", selection.TemplateID),
		zap.String("templateName", selection.TemplateName),
	)

	return selection, nil
}

func buildPrompt(req Request) string {
	var list strings.Builder

	for i, t := range req.Candidates {
		boxes := "boxes"
		if t.BoxCount == 1 {
			boxes = "box"
		}

		fmt.Fprintf(&list, "%d. %q (%d text %s)\n", i+1, t.Name, t.BoxCount, boxes)
	}

	return fmt.Sprintf(`You are a meme expert. Pick the meme template that best fits this conversation and write text for it.

CONVERSATION CONTEXT:
Original post: %q
Reply being sent: %q
Tone: %s

AVAILABLE MEME TEMPLATES:
%s
RULES:
1. Pick a template that relates to the conversation topic or the emotion being expressed.
2. Match the tone: a sarcastic reply needs a sarcastic meme.
3. Write SHORT, punchy caption text for the chosen template.

Respond in JSON:
{
  "templateIndex": <number 1-%d>,
  "templateName": "<exact name from the list>",
  "topText": "<text for the top box if multi-box>",
  "bottomText": "<text for the bottom box if multi-box>",
  "text": "<text if single box>"
}`, req.OriginalPost, req.Reply, req.Tone, list.String(), len(req.Candidates))
}

type modelReply struct {
	TemplateIndex int    `json:"templateIndex"`
	TemplateName  string `json:"templateName"`
	TopText       string `json:"topText"`
	BottomText    string `json:"bottomText"`
	Text          string `json:"text"`
}

// ParseSelection decodes a model's JSON reply and resolves the 1-based
// template index against the candidate list.
func ParseSelection(raw string, candidates []tracker.Template) (*Selection, error) {
	var reply modelReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &reply); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}

	idx := reply.TemplateIndex - 1
	if idx < 0 || idx >= len(candidates) {
		return nil, fmt.Errorf("model picked template %d of %d", reply.TemplateIndex, len(candidates))
	}

	chosen := candidates[idx]

	return &Selection{
		TemplateID:   chosen.ID,
		TemplateName: chosen.Name,
		TopText:      reply.TopText,
		BottomText:   reply.BottomText,
		Text:         reply.Text,
	}, nil
}

// Close releases the underlying client.
func (s *GenAISelector) Close() error {
	if s.client != nil {
		return s.client.Close()
	}

	return nil
}
