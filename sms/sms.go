// Package sms provides access to the device SMS gateway: batch listing of
// messages newer than a timestamp, and the live-push payload shape.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Kevin-DeBruyne/expense-tracker/counter"
)

// Message is a raw transaction notification. Transient, never persisted.
type Message struct {
	Body      string `json:"body"`
	Address   string `json:"address"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// SourceName is the record source derived from the originating address.
func (m Message) SourceName() string {
	if m.Address == "" {
		return "Bank"
	}
	return m.Address
}

// Source lists messages newer than a timestamp. The returned slice may be
// empty and is not guaranteed to be sorted.
type Source interface {
	ListSince(ctx context.Context, since int64) ([]Message, error)
}

// PushEvent is the payload delivered by the gateway webhook for a single
// live message.
type PushEvent struct {
	OriginatingAddress string `json:"originatingAddress"`
	Body               string `json:"body"`
	Timestamp          int64  `json:"timestamp"`
}

func (e PushEvent) Message() Message {
	return Message{
		Body:      e.Body,
		Address:   e.OriginatingAddress,
		Timestamp: e.Timestamp,
	}
}

var (
	APICalls  counter.Counter
	APIErrors counter.Counter
)

// Gateway is an HTTP client for the SMS gateway's listing endpoint.
type Gateway struct {
	client *http.Client
	url    string
}

func New(client *http.Client, url string) *Gateway {
	return &Gateway{
		client: client,
		url:    url,
	}
}

func (g *Gateway) ListSince(ctx context.Context, since int64) ([]Message, error) {
	APICalls.Inc()
	listURL := fmt.Sprintf("%s/sms?since=%d", g.url, since)

	r, err := http.NewRequestWithContext(ctx, "GET", listURL, nil)
	if err != nil {
		APIErrors.Inc()
		return nil, err
	}

	resp, err := g.client.Do(r)
	if err != nil {
		APIErrors.Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		APIErrors.Inc()
		return nil, fmt.Errorf("%s - %v", resp.Status, resp.StatusCode)
	}

	var messages []Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		APIErrors.Inc()
		return nil, err
	}

	return messages, nil
}
