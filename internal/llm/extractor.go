package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dzhealth/clinic-assistant/pkg/logging"
)

const identitySystemPrompt = `Tu extrais les coordonnées d'un patient depuis un message en français ou en anglais.
Réponds UNIQUEMENT avec un objet JSON de la forme {"name": "", "phone": "", "email": ""}.
Laisse un champ vide si l'information est absente. N'invente jamais de valeur.`

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Identity is the model's reading of the contact details present in one message.
type Identity struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Extractor asks an OpenAI chat model to pull contact details out of free text.
// It backs up the regex extractors; callers treat any error as "nothing found".
type Extractor struct {
	client  chatClient
	model   string
	timeout time.Duration
	logger  *logging.Logger
}

// NewExtractor returns an LLM-backed identity extractor.
// A nil client yields a nil Extractor, which every method tolerates.
func NewExtractor(client *openai.Client, model string, timeout time.Duration, logger *logging.Logger) *Extractor {
	if client == nil {
		return nil
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Extractor{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// ExtractIdentity sends one user message to the model and parses the JSON reply.
func (e *Extractor) ExtractIdentity(ctx context.Context, message string) (Identity, error) {
	if e == nil {
		return Identity{}, errors.New("llm: extractor not configured")
	}
	if strings.TrimSpace(message) == "" {
		return Identity{}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: identitySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		e.logger.Warn("llm identity extraction failed", "error", err)
		return Identity{}, fmt.Errorf("llm: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Identity{}, errors.New("llm: completion returned no choices")
	}

	return ParseIdentity(resp.Choices[0].Message.Content)
}

// ParseIdentity decodes the first JSON object found in a model reply.
// Models sometimes wrap the object in markdown fences or prose.
func ParseIdentity(raw string) (Identity, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return Identity{}, fmt.Errorf("llm: no JSON object in reply")
	}

	var id Identity
	if err := json.Unmarshal([]byte(raw[start:end+1]), &id); err != nil {
		return Identity{}, fmt.Errorf("llm: failed to decode identity: %w", err)
	}
	id.Name = strings.TrimSpace(id.Name)
	id.Phone = strings.TrimSpace(id.Phone)
	id.Email = strings.TrimSpace(id.Email)
	return id, nil
}
