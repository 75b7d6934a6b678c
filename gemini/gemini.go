// Package gemini makes requests to the Gemini generateContent API to turn
// raw transaction messages into structured expense candidates.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Kevin-DeBruyne/expense-tracker/counter"
	"github.com/Kevin-DeBruyne/expense-tracker/expense"
)

const DefaultURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

// Kind discriminates classifier failures. Callers use it to decide between
// backing off (RateLimited), degrading to the regex tier, or treating the
// message as non-transactional (EmptyResult).
type Kind int

const (
	KindConfigMissing Kind = iota // no API key configured, no request was made
	KindRateLimited               // remote signalled throttling (HTTP 429)
	KindTransport                 // network or response-parse failure
	KindEmptyResult               // well-formed response, no usable candidate
)

func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "config_missing"
	case KindRateLimited:
		return "rate_limited"
	case KindTransport:
		return "transport"
	case KindEmptyResult:
		return "empty_result"
	}
	return "unknown"
}

// Error is the failure type returned by Classify. All kinds are non-fatal to
// the extraction pipeline; they only cause tier fallback.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gemini: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("gemini: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a gemini Error of the given kind.
func IsKind(err error, k Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == k
}

var (
	APICalls  counter.Counter
	APIErrors counter.Counter
)

type Client struct {
	client *http.Client
	key    string
	url    string
}

func New(client *http.Client, apiKey, url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		client: client,
		key:    apiKey,
		url:    url,
	}
}

func (c *Client) Name() string { return "gemini" }

const systemPrompt = `You are an intelligent expense tracker assistant.
Your goal is to extract structured data from SMS transaction messages.

Input: An SMS text.
Output: A JSON object with these fields:
- "merchant": The name of the merchant or person (e.g., "Starbucks", "Uber", "Ramesh"). Clean it up (remove "VPA", "UPI", etc.).
- "amount": The transaction amount (number).
- "type": "debit" or "credit".
- "category": A short category (e.g., "Food", "Travel", "Shopping", "Bills").
- "confidence": A number between 0 and 1 indicating how sure you are.

If the message is NOT a transaction, return content: null.
Return ONLY raw JSON.`

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Classify sends the message body to Gemini and returns the extracted
// candidate. A response is accepted only if it carries a positive amount and
// a transaction type; anything else is an extraction miss, not a hard error.
func (c *Client) Classify(ctx context.Context, body string) (expense.Candidate, error) {
	if c.key == "" {
		return expense.Candidate{}, &Error{Kind: KindConfigMissing, Msg: "no API key configured"}
	}

	doc := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: systemPrompt + "\n\nSMS: \"" + body + "\""}}},
		},
		GenerationConfig: generationConfig{ResponseMIMEType: "application/json"},
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return expense.Candidate{}, &Error{Kind: KindTransport, Msg: "encoding request", Err: err}
	}

	r, err := http.NewRequestWithContext(ctx, "POST", c.url+"?key="+c.key, bytes.NewBuffer(payload))
	if err != nil {
		return expense.Candidate{}, &Error{Kind: KindTransport, Msg: "building request", Err: err}
	}
	r.Header.Add("Content-Type", "application/json")

	APICalls.Inc()
	resp, err := c.client.Do(r)
	if err != nil {
		APIErrors.Inc()
		return expense.Candidate{}, &Error{Kind: KindTransport, Msg: "sending request", Err: err}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		APIErrors.Inc()
		return expense.Candidate{}, &Error{Kind: KindRateLimited, Msg: "remote throttled the request"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		APIErrors.Inc()
		return expense.Candidate{}, &Error{Kind: KindTransport, Msg: fmt.Sprintf("got status %d %s", resp.StatusCode, resp.Status)}
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		APIErrors.Inc()
		return expense.Candidate{}, &Error{Kind: KindTransport, Msg: "decoding response", Err: err}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return expense.Candidate{}, &Error{Kind: KindEmptyResult, Msg: "response carried no candidates"}
	}

	text := StripFences(result.Candidates[0].Content.Parts[0].Text)
	if text == "" || text == "null" {
		return expense.Candidate{}, &Error{Kind: KindEmptyResult, Msg: "model returned no content"}
	}

	var cand expense.Candidate
	if err := json.Unmarshal([]byte(text), &cand); err != nil {
		return expense.Candidate{}, &Error{Kind: KindEmptyResult, Msg: "model returned invalid JSON", Err: err}
	}

	if !cand.Valid() || cand.Type == "" {
		return expense.Candidate{}, &Error{Kind: KindEmptyResult, Msg: "candidate missing amount or type"}
	}

	return cand, nil
}

// StripFences removes the Markdown code fences some models wrap around JSON
// output even when told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
