package judge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clipsift/clipsift/internal/scoring"
)

const systemPrompt = `You are a short-form video editor reviewing scenes cut from a longer video.
Rate the scene on five dimensions, each an integer from 1 to 10:
- aesthetic: visual composition, lighting, color
- credibility: how trustworthy and authentic the content appears
- impact: how strongly the scene grabs attention
- memorability: how likely a viewer is to remember it
- fun: entertainment value and pacing

Also classify the scene into exactly one category: hook, narrative, aesthetic, or commercial.

Respond with a single JSON object:
{"aesthetic": n, "credibility": n, "impact": n, "memorability": n, "fun": n, "category": "...", "rationale": "one sentence"}
If the frame or transcript gives you no basis to rate a dimension, omit that key instead of guessing.`

// OpenAIJudge rates scenes with a vision-capable chat model. The base URL is
// configurable so OpenAI-compatible local gateways work too.
type OpenAIJudge struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAIJudge(apiKey, baseURL, model string, logger *slog.Logger) (*OpenAIJudge, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("judge API key is not set")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIJudge{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

type judgeResponse struct {
	Aesthetic    *int   `json:"aesthetic"`
	Credibility  *int   `json:"credibility"`
	Impact       *int   `json:"impact"`
	Memorability *int   `json:"memorability"`
	Fun          *int   `json:"fun"`
	Category     string `json:"category"`
	Rationale    string `json:"rationale"`
}

func (j *OpenAIJudge) ScoreScene(ctx context.Context, scene Scene) (scoring.Record, error) {
	record := scoring.Record{SceneIndex: scene.SceneIndex}

	var userText strings.Builder
	fmt.Fprintf(&userText, "Video: %s\nScene %d.\n", scene.VideoTitle, scene.SceneIndex)
	if scene.Transcript != "" {
		fmt.Fprintf(&userText, "Transcript for this scene:\n%s\n", scene.Transcript)
	} else {
		userText.WriteString("No transcript is available for this scene.\n")
	}
	if scene.Category != scoring.CategoryDefault {
		fmt.Fprintf(&userText, "The video as a whole is a %s video.\n", scene.Category)
	}

	parts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: userText.String(),
		},
	}
	// Frame extraction can fail per scene; judge on the transcript alone then.
	if scene.FramePath != "" {
		imageData, err := os.ReadFile(scene.FramePath)
		if err != nil {
			return record, fmt.Errorf("read frame: %w", err)
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData),
				Detail: openai.ImageURLDetailLow,
			},
		})
	}

	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       j.model,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
	})
	if err != nil {
		return record, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return record, fmt.Errorf("empty completion response")
	}

	var parsed judgeResponse
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return record, fmt.Errorf("parse judge response: %w", err)
	}

	record.Values = map[scoring.Dimension]int{}
	setIfPresent(record.Values, scoring.DimAesthetic, parsed.Aesthetic)
	setIfPresent(record.Values, scoring.DimCredibility, parsed.Credibility)
	setIfPresent(record.Values, scoring.DimImpact, parsed.Impact)
	setIfPresent(record.Values, scoring.DimMemorability, parsed.Memorability)
	setIfPresent(record.Values, scoring.DimFun, parsed.Fun)
	record.Rationale = parsed.Rationale

	if parsed.Category != "" {
		cat, err := scoring.ParseCategory(parsed.Category)
		if err != nil {
			j.logger.Warn("judge returned unknown category", "category", parsed.Category, "scene", scene.SceneIndex)
		} else {
			record.Category = cat
		}
	}

	if err := record.Validate(); err != nil {
		return record, err
	}
	return record, nil
}

func setIfPresent(values map[scoring.Dimension]int, dim scoring.Dimension, v *int) {
	if v != nil {
		values[dim] = *v
	}
}
