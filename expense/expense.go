// Package expense defines the records produced by the extraction pipeline
// and shared by the store, the sync service, and the enhancement sweep.
package expense

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeDebit  = "debit"
	TypeCredit = "credit"

	// CategoryUncategorized is the category of a record no tier could classify.
	CategoryUncategorized = "Uncategorized"

	SourceManual = "Manual"
	SourceDebug  = "Debug"
)

// Candidate is the transient output of a single extraction tier. It becomes a
// Record only if the amount is positive.
type Candidate struct {
	Merchant   string          `json:"merchant"`
	Amount     decimal.Decimal `json:"amount"`
	Type       string          `json:"type"`
	Category   string          `json:"category"`
	Confidence float64         `json:"confidence"`
}

// Valid reports whether the candidate can be promoted to a record.
func (c Candidate) Valid() bool {
	return c.Amount.GreaterThan(decimal.Zero)
}

// Record is the durable unit persisted by the store.
//
// Records sourced from a message carry a deterministic id (see MessageID) so
// that the live listener and a later reconciliation pass collapse to one
// logical record. Manual records get a random id instead.
type Record struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	Source   string          `json:"source"`
	Date     string          `json:"date"`
	Time     string          `json:"time"`
	Category string          `json:"category"`

	// Processed carries the user's settlement note ("Fully Mine",
	// "Split with 2"). Empty while the record is still pending.
	Processed string `json:"processed,omitempty"`

	// RequiresEnhancement marks a record captured while the AI tier was
	// unreachable. OriginalBody is retained only while the flag is set so
	// the enhancement sweep can re-run extraction later.
	RequiresEnhancement bool   `json:"requiresEnhancement,omitempty"`
	OriginalBody        string `json:"originalBody,omitempty"`
}

// MessageID derives the id for a message-sourced record from the immutable
// message attributes. The same underlying message always yields the same id,
// which is the dedup key across the live and reconciliation paths.
func MessageID(timestamp int64, amount decimal.Decimal) string {
	return fmt.Sprintf("sms-%d-%s", timestamp, amount.String())
}

// DateTime formats an epoch-millisecond timestamp into the local display
// strings stored on a record.
func DateTime(millis int64) (date, clock string) {
	t := time.UnixMilli(millis)
	return t.Format(time.DateOnly), t.Format("15:04")
}

// TitleCase capitalizes the first letter of every word of a merchant name.
func TitleCase(s string) string {
	b := []byte(s)
	boundary := true
	for i, c := range b {
		if boundary && c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
		boundary = c == ' ' || c == '-' || c == '.'
	}
	return string(b)
}
