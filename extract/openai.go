package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Kevin-DeBruyne/expense-tracker/counter"
	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/Kevin-DeBruyne/expense-tracker/gemini"
	"github.com/sashabaranov/go-openai"
)

var (
	OpenAICalls  counter.Counter
	OpenAIErrors counter.Counter
)

// OpenAIClassifier is an optional secondary AI tier backed by the OpenAI (or
// Azure OpenAI) chat API. It sits between the primary classifier and the
// regex fallback when an API key is configured.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

func NewOpenAIClassifier(client *openai.Client, model string) *OpenAIClassifier {
	return &OpenAIClassifier{
		client: client,
		model:  model,
	}
}

func (o *OpenAIClassifier) Name() string { return "openai" }

func (o *OpenAIClassifier) Classify(ctx context.Context, body string) (expense.Candidate, error) {
	var prompt strings.Builder
	prompt.WriteString("Extract structured expense data from this bank SMS message: ")
	prompt.WriteString(body)
	prompt.WriteString("\n\nRespond with a JSON object with fields \"merchant\" (the merchant or person name, cleaned up), ")
	prompt.WriteString("\"amount\" (number), \"type\" (\"debit\" or \"credit\"), \"category\" (a short category such as Food, Travel, Shopping, Bills), ")
	prompt.WriteString("and \"confidence\" (0 to 1). If the message is not a transaction, respond with null. ")
	prompt.WriteString("Please respond only in JSON, do not respond in anything other than JSON.")

	OpenAICalls.Inc()
	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt.String(),
				},
			},
		},
	)
	if err != nil {
		OpenAIErrors.Inc()
		return expense.Candidate{}, fmt.Errorf("openai chat request: %w", err)
	}
	if len(resp.Choices) != 1 {
		OpenAIErrors.Inc()
		return expense.Candidate{}, fmt.Errorf("openai: unexpected number of choices %d", len(resp.Choices))
	}

	text := gemini.StripFences(resp.Choices[0].Message.Content)
	if text == "" || text == "null" {
		return expense.Candidate{}, ErrNoCandidate
	}

	var cand expense.Candidate
	if err := json.Unmarshal([]byte(text), &cand); err != nil {
		// Some models answer in English despite instructions.
		return expense.Candidate{}, ErrNoCandidate
	}
	if !cand.Valid() || cand.Type == "" {
		return expense.Candidate{}, ErrNoCandidate
	}

	return cand, nil
}
