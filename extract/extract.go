// Package extract turns raw transaction messages into expense records using
// an ordered chain of extraction tiers: remote AI classifiers first, the
// local regex parser as the always-available fallback.
package extract

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/Kevin-DeBruyne/expense-tracker/counter"
	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/Kevin-DeBruyne/expense-tracker/gemini"
	"github.com/Kevin-DeBruyne/expense-tracker/sms"
	"github.com/rs/zerolog/log"
)

// Classifier is one AI extraction tier. Implementations are tried in order
// until one produces a usable candidate.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, body string) (expense.Candidate, error)
}

// ErrNoCandidate is returned by a classifier that was reachable but found no
// transaction in the message. It does not mark the tier as unavailable.
var ErrNoCandidate = errors.New("no usable candidate in response")

// CategoryLookup resolves a merchant to the category the user previously
// chose for it.
type CategoryLookup interface {
	CategoryForMerchant(merchant string) (string, bool)
}

// BypassRule is a user-configured shortcut: when the raw body contains Match,
// the merchant and category are fixed without asking any classifier, or the
// message is skipped outright.
type BypassRule struct {
	Match    string
	Merchant string
	Category string
	Skip     bool
}

var (
	Processed      counter.Counter // messages accepted by the debit filter
	Dropped        counter.Counter // messages that yielded no record
	AITierHits     counter.Counter
	RegexFallbacks counter.Counter
)

var debitRe = regexp.MustCompile(`(?i)debited`)

type Pipeline struct {
	classifiers []Classifier
	parser      *TextParser
	history     CategoryLookup
	bypasses    []BypassRule
}

func NewPipeline(classifiers []Classifier, parser *TextParser, history CategoryLookup, bypasses []BypassRule) *Pipeline {
	return &Pipeline{
		classifiers: classifiers,
		parser:      parser,
		history:     history,
		bypasses:    bypasses,
	}
}

// Process turns one raw message into zero or one finalized record. Credits
// and non-transactional text are filtered out; messages both tiers fail on
// are silently dropped. Classifier failures never propagate: they degrade to
// the regex tier and, when the AI tier was unreachable, flag the record for
// a later enhancement pass.
func (p *Pipeline) Process(ctx context.Context, msg sms.Message) *expense.Record {
	if !debitRe.MatchString(msg.Body) {
		return nil
	}
	Processed.Inc()

	var (
		cand          expense.Candidate
		found         bool
		aiResolved    bool
		aiUnreachable bool
	)

	rule, bypassed := p.matchBypass(msg.Body)
	if bypassed && rule.Skip {
		return nil
	}

	if bypassed {
		// A bypass with a parsable amount never reaches the classifiers.
		if parsed, ok := p.parser.Parse(msg.Body, msg.Address); ok {
			cand = parsed
			found = true
		}
	}

	if !found {
		for _, c := range p.classifiers {
			got, err := c.Classify(ctx, msg.Body)
			if err != nil {
				if tierUnavailable(err) {
					aiUnreachable = true
				}
				log.Debug().Err(err).Str("classifier", c.Name()).Msg("Classifier miss, falling through")
				continue
			}
			if got.Valid() {
				cand = got
				found = true
				aiResolved = true
				AITierHits.Inc()
				log.Info().Str("classifier", c.Name()).Str("merchant", got.Merchant).Msg("🤖 Classifier extracted transaction")
				break
			}
		}
	}

	if !found {
		if parsed, ok := p.parser.Parse(msg.Body, msg.Address); ok {
			cand = parsed
			found = true
			RegexFallbacks.Inc()
		}
	}

	if !found {
		// Both tiers exhausted. Not an error condition.
		Dropped.Inc()
		return nil
	}

	if bypassed {
		// The rule stays authoritative no matter which tier supplied
		// the amount.
		cand.Merchant = rule.Merchant
		cand.Category = rule.Category
	}

	category := strings.TrimSpace(cand.Category)
	if category == "" {
		category = expense.CategoryUncategorized
	}
	title := expense.TitleCase(cand.Merchant)

	// User corrections and AI category drift converge to the user's own
	// historical choice for this merchant.
	if p.history != nil {
		if prior, ok := p.history.CategoryForMerchant(title); ok {
			category = prior
		}
	}

	date, clock := expense.DateTime(msg.Timestamp)
	rec := &expense.Record{
		ID:       expense.MessageID(msg.Timestamp, cand.Amount),
		Title:    title,
		Amount:   cand.Amount,
		Source:   msg.SourceName(),
		Date:     date,
		Time:     clock,
		Category: category,
	}

	// An AI retry is only worthwhile when the tier never got to answer.
	if !aiResolved && aiUnreachable {
		rec.RequiresEnhancement = true
		rec.OriginalBody = msg.Body
	}

	return rec
}

func (p *Pipeline) matchBypass(body string) (BypassRule, bool) {
	for _, rule := range p.bypasses {
		if strings.Contains(body, rule.Match) {
			return rule, true
		}
	}
	return BypassRule{}, false
}

// tierUnavailable reports whether a classifier error means the tier could not
// answer at all, as opposed to answering "not a transaction".
func tierUnavailable(err error) bool {
	if err == nil || errors.Is(err, ErrNoCandidate) {
		return false
	}
	return !gemini.IsKind(err, gemini.KindEmptyResult)
}
