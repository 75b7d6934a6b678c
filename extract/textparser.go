package extract

import (
	"regexp"
	"strings"

	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/shopspring/decimal"
)

var (
	amountRe = regexp.MustCompile(`(?i)(?:Rs\.?|INR|₹)\s?([\d,]+(?:\.\d{1,2})?)`)

	// "paid to X on ..." style phrases, terminated by a boundary keyword.
	merchantRe = regexp.MustCompile(`(?i)(?:paid to|spent at|sent to|transfer to|purchase at|payment to)\s+([A-Za-z0-9\s&*-]+?)(?:\s+(?:on|using|via|ref|txn|from|ending)|$)`)

	// UPI identifiers like "VPA somename@okhdfc".
	upiRe = regexp.MustCompile(`(?i)(?:VPA|UPI Ref|UPI-Ref|to VPA)\s+([A-Za-z0-9@.-]+)`)

	senderNoiseRe = regexp.MustCompile(`[0-9-]`)
	upiSepRe      = regexp.MustCompile(`[._]`)
)

// Keyword maps a known brand substring to its canonical display name.
type Keyword struct {
	Match    string
	Merchant string
}

// defaultKeywords is scanned in order; the first hit wins, so the list
// ordering is part of the contract.
var defaultKeywords = []Keyword{
	{"swiggy", "Swiggy"},
	{"zomato", "Zomato"},
	{"uber", "Uber"},
	{"ola", "Ola"},
	{"rapido", "Rapido"},
	{"amazon", "Amazon"},
	{"flipkart", "Flipkart"},
	{"netflix", "Netflix"},
	{"spotify", "Spotify"},
	{"jio", "Jio Recharge"},
	{"airtel", "Airtel Recharge"},
	{"vi", "Vi Recharge"},
	{"bsnl", "BSNL Recharge"},
	{"metro", "Metro"},
	{"starbucks", "Starbucks"},
	{"mcdonalds", "McDonalds"},
	{"dominos", "Dominos"},
	{"pizza hut", "Pizza Hut"},
	{"burger king", "Burger King"},
	{"kfc", "KFC"},
	{"subway", "Subway"},
}

// TextParser is the always-available extraction tier. It is pure pattern
// matching: no I/O, never fails, and leaves category and type to the caller.
type TextParser struct {
	keywords []Keyword
}

// NewTextParser returns a parser scanning the built-in keyword table followed
// by any extra entries from configuration.
func NewTextParser(extra []Keyword) *TextParser {
	return &TextParser{
		keywords: append(append([]Keyword{}, defaultKeywords...), extra...),
	}
}

// Parse extracts a merchant and amount from a raw message body. ok is false
// when no positive amount could be found.
func (p *TextParser) Parse(body, sender string) (cand expense.Candidate, ok bool) {
	if m := amountRe.FindStringSubmatch(body); m != nil {
		// Multiple currency matches in one message use only the first.
		amt, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err == nil {
			cand.Amount = amt
		}
	}

	cand.Merchant = p.merchant(body, sender)

	if !cand.Valid() {
		return expense.Candidate{}, false
	}
	cand.Merchant = expense.TitleCase(cand.Merchant)
	return cand, true
}

func (p *TextParser) merchant(body, sender string) string {
	if m := merchantRe.FindStringSubmatch(body); m != nil && m[1] != "" {
		return strings.TrimSpace(m[1])
	}

	if m := upiRe.FindStringSubmatch(body); m != nil && m[1] != "" {
		// A name@handle identifier reads best as just the name part.
		name, _, _ := strings.Cut(m[1], "@")
		return upiSepRe.ReplaceAllString(name, " ")
	}

	lower := strings.ToLower(body)
	for _, kw := range p.keywords {
		if strings.Contains(lower, kw.Match) {
			return kw.Merchant
		}
	}

	// Last resort: derive something readable from the sender id.
	clean := senderNoiseRe.ReplaceAllString(sender, "")
	if clean == "" {
		clean = "Expense"
	}
	if len(clean) < 3 || strings.Contains(clean, "BANK") {
		clean = "Bank Transaction"
	}
	return clean
}
