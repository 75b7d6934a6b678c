package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/Kevin-DeBruyne/expense-tracker/httperror"
	"github.com/Kevin-DeBruyne/expense-tracker/sms"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func (a *App) registerRoutes() {
	http.HandleFunc("/sms", a.handleSmsPush)
	http.HandleFunc("/expenses", a.handleExpenses)
	http.HandleFunc("/categories", a.handleCategories)
	http.HandleFunc("/expenses/category", a.handleCategory)
	http.HandleFunc("/expenses/process", a.handleProcess)
	http.HandleFunc("/expenses/delete", a.handleDelete)
	http.HandleFunc("/sync/run", a.handleSyncRun)
	http.HandleFunc("/sync/rewind", a.handleRewind)
	http.HandleFunc("/enhance/run", a.handleEnhance)
	http.HandleFunc("/debug/analyze", a.handleAnalyze)
}

// handleSmsPush is the live path: the gateway delivers each incoming message
// here as it arrives. Extraction failures yield 200 with accepted=false; the
// message may still be picked up by a later reconciliation pass if this was
// a transient problem.
func (a *App) handleSmsPush(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		httperror.Send(w, req, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var event sms.PushEvent
	if err := json.NewDecoder(req.Body).Decode(&event); err != nil {
		httperror.Send(w, req, http.StatusBadRequest, "could not decode push event: "+err.Error())
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	rec := a.pipeline.Process(req.Context(), event.Message())
	if rec == nil {
		httperror.JSON(w, http.StatusOK, map[string]bool{"accepted": false})
		return
	}

	a.saveRecord(*rec)
	// Keep the watermark in step with the live path so reconciliation does
	// not re-fetch what was already delivered.
	a.watermark.Advance(event.Timestamp)

	httperror.JSON(w, http.StatusCreated, rec)
}

func (a *App) handleExpenses(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		a.listExpenses(w, req)
	case http.MethodPost:
		a.addExpense(w, req)
	default:
		httperror.Send(w, req, http.StatusMethodNotAllowed, "GET or POST only")
	}
}

func (a *App) listExpenses(w http.ResponseWriter, req *http.Request) {
	switch req.URL.Query().Get("state") {
	case "processed":
		httperror.JSON(w, http.StatusOK, a.store.Processed())
	case "pending":
		httperror.JSON(w, http.StatusOK, a.store.Pending())
	default:
		httperror.JSON(w, http.StatusOK, map[string][]expense.Record{
			"pending":   a.store.Pending(),
			"processed": a.store.Processed(),
		})
	}
}

// addExpense records a manually entered expense. Manual records get a random
// id: they cannot be re-discovered by reconciliation, so there is nothing to
// deduplicate against.
func (a *App) addExpense(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Title    string          `json:"title"`
		Amount   decimal.Decimal `json:"amount"`
		Source   string          `json:"source"`
		Category string          `json:"category"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httperror.Send(w, req, http.StatusBadRequest, "could not decode expense: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Title) == "" || !body.Amount.GreaterThan(decimal.Zero) {
		httperror.Send(w, req, http.StatusBadRequest, "title and a positive amount are required")
		return
	}

	if body.Source == "" {
		body.Source = expense.SourceManual
	}
	if body.Category == "" {
		body.Category = expense.CategoryUncategorized
	}

	now := time.Now()
	rec := expense.Record{
		ID:       now.Format("20060102T150405") + "-" + uuid.NewString(),
		Title:    expense.TitleCase(body.Title),
		Amount:   body.Amount,
		Source:   body.Source,
		Date:     now.Format(time.DateOnly),
		Time:     now.Format("15:04"),
		Category: body.Category,
	}
	a.store.Add(rec)

	log.Info().Str("Type", "Expense").Str("Title", rec.Title).Str("ID", rec.ID).Msg("➕ Manually added expense")
	httperror.JSON(w, http.StatusCreated, rec)
}

// handleCategories lists the known categories: the configured seed plus
// everything learned from records.
func (a *App) handleCategories(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		httperror.Send(w, req, http.StatusMethodNotAllowed, "GET only")
		return
	}
	httperror.JSON(w, http.StatusOK, a.store.Categories())
}

// handleCategory applies a user category edit. The history index replays
// these choices onto future records from the same merchant.
func (a *App) handleCategory(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		httperror.Send(w, req, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var body struct {
		ID       string `json:"id"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httperror.Send(w, req, http.StatusBadRequest, "could not decode edit: "+err.Error())
		return
	}
	if body.ID == "" || strings.TrimSpace(body.Category) == "" {
		httperror.Send(w, req, http.StatusBadRequest, "id and category are required")
		return
	}

	if !a.store.SetCategory(body.ID, strings.TrimSpace(body.Category)) {
		httperror.Send(w, req, http.StatusNotFound, "no record with that id")
		return
	}
	rec, _ := a.store.Get(body.ID)
	httperror.JSON(w, http.StatusOK, rec)
}

// handleProcess settles a pending record ("Fully Mine", "Split with 2").
func (a *App) handleProcess(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		httperror.Send(w, req, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var body struct {
		ID   string `json:"id"`
		Note string `json:"note"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httperror.Send(w, req, http.StatusBadRequest, "could not decode request: "+err.Error())
		return
	}
	if body.Note == "" {
		body.Note = "Fully Mine"
	}

	if !a.store.MarkProcessed(body.ID, body.Note) {
		httperror.Send(w, req, http.StatusNotFound, "no pending record with that id")
		return
	}
	rec, _ := a.store.Get(body.ID)
	httperror.JSON(w, http.StatusOK, rec)
}

func (a *App) handleDelete(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		httperror.Send(w, req, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httperror.Send(w, req, http.StatusBadRequest, "could not decode request: "+err.Error())
		return
	}

	if !a.store.Delete(body.ID) {
		httperror.Send(w, req, http.StatusNotFound, "no pending record with that id")
		return
	}
	httperror.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (a *App) handleSyncRun(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		httperror.Send(w, req, http.StatusMethodNotAllowed, "POST only")
		return
	}
	go a.runSync()
	httperror.JSON(w, http.StatusAccepted, map[string]bool{"started": true})
}

// handleRewind forces the watermark back a bounded number of minutes so the
// next pass re-scans that window. Recovery tool for mis-extracted messages.
func (a *App) handleRewind(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		httperror.Send(w, req, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var body struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httperror.Send(w, req, http.StatusBadRequest, "could not decode request: "+err.Error())
		return
	}
	if body.Minutes <= 0 {
		httperror.Send(w, req, http.StatusBadRequest, "minutes must be positive")
		return
	}

	watermark := a.watermark.Rewind(body.Minutes)
	httperror.JSON(w, http.StatusOK, map[string]int64{"watermark": watermark})
}

func (a *App) handleEnhance(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		httperror.Send(w, req, http.StatusMethodNotAllowed, "POST only")
		return
	}
	go a.sweeper.EnhanceAll(context.Background())
	httperror.JSON(w, http.StatusAccepted, map[string]bool{"started": true})
}
