package ai

/*
Gemini-backed text classification for seller messages the rule-based classifier cannot
place. The model is pinned to JSON output and asked for exactly one label; anything else
is an error the caller degrades to "unclear".
*/

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini wraps a generative model for message labeling.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini builds a client for the given model name.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(modelName)

	// Set response MIME type to JSON
	model.ResponseMIMEType = "application/json"

	var temp float32 = 0
	model.Temperature = &temp

	return &Gemini{client: client, model: model}, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

type labelResponse struct {
	Label string `json:"label"`
}

// ClassifyText labels a seller message with one entry from the allowed set.
func (g *Gemini) ClassifyText(ctx context.Context, text string, labels []string) (string, error) {
	promptText := fmt.Sprintf(`You are classifying a message a marketplace seller sent to a buyer who made a cash offer on their listing.

Allowed labels:
%s

Label meanings:
- accept: seller agrees to the buyer's offer
- decline: seller refuses without naming a price
- counter_offer: seller names a different price they want
- ask_location: seller asks where the buyer is or where to meet
- ask_condition: seller asks about the buyer's condition requirements
- ask_payment: seller asks how the buyer will pay
- ask_timing: seller asks when to meet
- other_buyer: seller mentions other interested buyers
- item_sold: seller says the item is already sold
- ask_about_us: seller asks who the buyer is or why they are buying
- unclear: anything else, or a message too complex to place

Seller message:
%q

Respond in JSON only.

JSON Schema:
{
  "label": "one allowed label exactly as written above"
}
`, "- "+strings.Join(labels, "\n- "), text)

	resp, err := g.model.GenerateContent(ctx, genai.Text(promptText))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	part := resp.Candidates[0].Content.Parts[0]
	txt, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response type %T", part)
	}

	var parsed labelResponse
	if err := json.Unmarshal([]byte(txt), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse label JSON: %w", err)
	}
	if parsed.Label == "" {
		return "", fmt.Errorf("no label in response")
	}
	return parsed.Label, nil
}
