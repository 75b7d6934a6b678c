package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/Kevin-DeBruyne/expense-tracker/httperror"
	"github.com/Kevin-DeBruyne/expense-tracker/sms"
)

// tierResult is the per-tier diagnostic detail of a debug analysis.
type tierResult struct {
	Tier      string             `json:"tier"`
	Candidate *expense.Candidate `json:"candidate,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type analyzeResponse struct {
	Tiers  []tierResult    `json:"tiers"`
	Record *expense.Record `json:"record,omitempty"`
}

// handleAnalyze runs the full tier chain over a posted message body and
// returns what every tier said. Unlike the automatic flows, classifier
// errors are surfaced verbatim here: the operator explicitly asked for the
// AI call and needs the diagnostic detail. Nothing is persisted.
func (a *App) handleAnalyze(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		httperror.Send(w, req, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var body struct {
		Body   string `json:"body"`
		Sender string `json:"sender"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httperror.Send(w, req, http.StatusBadRequest, "could not decode request: "+err.Error())
		return
	}
	if body.Body == "" {
		httperror.Send(w, req, http.StatusBadRequest, "body is required")
		return
	}

	var resp analyzeResponse
	for _, c := range a.classifiers {
		result := tierResult{Tier: c.Name()}
		cand, err := c.Classify(req.Context(), body.Body)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Candidate = &cand
		}
		resp.Tiers = append(resp.Tiers, result)
	}

	regex := tierResult{Tier: "regex"}
	if cand, ok := a.parser.Parse(body.Body, body.Sender); ok {
		regex.Candidate = &cand
	} else {
		regex.Error = "no positive amount found"
	}
	resp.Tiers = append(resp.Tiers, regex)

	// Show what the automatic pipeline would have produced for this text.
	msg := sms.Message{
		Body:      body.Body,
		Address:   body.Sender,
		Timestamp: time.Now().UnixMilli(),
	}
	if rec := a.pipeline.Process(req.Context(), msg); rec != nil {
		rec.Source = expense.SourceDebug
		resp.Record = rec
	}

	httperror.JSON(w, http.StatusOK, resp)
}
