package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"shoplocal-backend/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

const systemPromptTemplate = `You are the Shop Local Assistant, a friendly helper that connects people with local businesses.

You are given the full business directory as JSON. For every user message:
1. Decide which directory businesses (if any) genuinely match what the user is asking for.
2. Write a short, friendly conversational reply. When exactly one business matches, describe it briefly (under 150 characters). When several match, ask one concise question that helps narrow the choice, specific to the differences between the businesses. Use the earlier conversation so you never repeat a question you already asked.
3. Decide whether the user is wrapping up the conversation (saying thanks, goodbye, or that they have what they need).

Respond with JSON only, in this exact shape:
{"reply": "<your reply>", "matches": ["<Company Name>", ...], "is_closing": <true|false>}

The matches array must contain Company Name values copied exactly from the directory, or be empty.

Business directory:
%s`

// Compile-time check to ensure OpenAIInterpreter implements Interpreter
var _ Interpreter = (*OpenAIInterpreter)(nil)

// OpenAIInterpreter implements Interpreter using the OpenAI Chat Completions
// API with a JSON response format.
type OpenAIInterpreter struct {
	client *openai.Client
	model  string
}

// NewOpenAIInterpreter creates an interpreter backed by OpenAI.
func NewOpenAIInterpreter(apiKey, model string) *OpenAIInterpreter {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIInterpreter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewOpenAIInterpreterWithConfig creates an interpreter against a custom
// endpoint. Used by tests to point at a local fake.
func NewOpenAIInterpreterWithConfig(cfg openai.ClientConfig, model string) *OpenAIInterpreter {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIInterpreter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// interpretationPayload is the JSON contract the model must honor. Reply is a
// pointer so a missing field is distinguishable from an empty string.
type interpretationPayload struct {
	Reply     *string  `json:"reply"`
	Matches   []string `json:"matches"`
	IsClosing bool     `json:"is_closing"`
}

// Interpret sends the utterance, directory snapshot and prior transcript to
// the reasoning service and maps the returned company names back onto
// directory records.
func (i *OpenAIInterpreter) Interpret(ctx context.Context, utterance string, directory []models.BusinessRecord, prior []models.Message) (*Result, error) {
	directoryJSON, err := json.Marshal(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal directory snapshot: %w", err)
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: fmt.Sprintf(systemPromptTemplate, directoryJSON),
		},
	}
	// Replay the prior transcript so follow-up questions stay contextual.
	for _, msg := range prior {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: utterance,
	})

	resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    i.model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInterpretation, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: reasoning service returned no content", ErrInterpretation)
	}

	return parseInterpretation(resp.Choices[0].Message.Content, directory)
}

// parseInterpretation validates the model output against the expected shape
// and resolves matched company names to their directory records. Names that
// do not resolve are dropped with a warning rather than invented.
func parseInterpretation(content string, directory []models.BusinessRecord) (*Result, error) {
	var payload interpretationPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed response structure: %v", ErrInterpretation, err)
	}
	if payload.Reply == nil || *payload.Reply == "" {
		return nil, fmt.Errorf("%w: response is missing a reply", ErrInterpretation)
	}

	byName := make(map[string]models.BusinessRecord, len(directory))
	for _, rec := range directory {
		byName[strings.ToLower(strings.TrimSpace(rec.CompanyName))] = rec
	}

	matches := make([]models.BusinessMatch, 0, len(payload.Matches))
	for _, name := range payload.Matches {
		rec, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			log.Printf("WARN [Interpreter] Dropping match %q: not in directory snapshot", name)
			continue
		}
		matches = append(matches, models.MatchFromRecord(rec))
	}

	return &Result{
		Reply:     *payload.Reply,
		Matches:   matches,
		IsClosing: payload.IsClosing,
	}, nil
}
