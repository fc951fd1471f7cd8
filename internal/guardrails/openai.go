package guardrails

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIModerator uses the OpenAI moderation endpoint.
type OpenAIModerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIModerator(client *openai.Client, model string) *OpenAIModerator {
	return &OpenAIModerator{client: client, model: model}
}

func (m *OpenAIModerator) Moderate(ctx context.Context, text string) (Moderation, error) {
	if m.client == nil {
		return Moderation{}, errors.New("openai moderation client not configured")
	}
	resp, err := m.client.Moderations(ctx, openai.ModerationRequest{Input: text, Model: m.model})
	if err != nil {
		return Moderation{}, fmt.Errorf("openai moderation: %w", err)
	}
	if len(resp.Results) == 0 {
		return Moderation{}, errors.New("openai moderation: empty results")
	}
	result := resp.Results[0]
	return Moderation{
		Flagged:    result.Flagged,
		Categories: flaggedCategories(result.Categories),
	}, nil
}

func flaggedCategories(c openai.ResultCategories) []string {
	all := []struct {
		name    string
		flagged bool
	}{
		{"hate", c.Hate},
		{"hate/threatening", c.HateThreatening},
		{"harassment", c.Harassment},
		{"harassment/threatening", c.HarassmentThreatening},
		{"self-harm", c.SelfHarm},
		{"self-harm/intent", c.SelfHarmIntent},
		{"self-harm/instructions", c.SelfHarmInstructions},
		{"sexual", c.Sexual},
		{"sexual/minors", c.SexualMinors},
		{"violence", c.Violence},
		{"violence/graphic", c.ViolenceGraphic},
	}
	var out []string
	for _, cat := range all {
		if cat.flagged {
			out = append(out, cat.name)
		}
	}
	return out
}
