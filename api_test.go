package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Kevin-DeBruyne/expense-tracker/enhance"
	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/Kevin-DeBruyne/expense-tracker/extract"
	"github.com/Kevin-DeBruyne/expense-tracker/store"
	"github.com/Kevin-DeBruyne/expense-tracker/syncer"
)

// testApp wires an App over an in-memory store with the regex tier only.
func testApp() *App {
	kv := store.NewMemKV()
	st := store.New(kv)
	parser := extract.NewTextParser(nil)
	pipeline := extract.NewPipeline(nil, parser, st, nil)
	return &App{
		store:     st,
		parser:    parser,
		pipeline:  pipeline,
		watermark: syncer.NewWatermark(kv),
		sweeper:   enhance.NewSweeper(nil, st),
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHandleSmsPush(t *testing.T) {
	a := testApp()

	w := postJSON(t, a.handleSmsPush, `{
		"originatingAddress": "HDFCBK",
		"body": "Rs. 450 debited for payment to Zomato",
		"timestamp": 1718953200000
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body)
	}

	var rec expense.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if rec.Title != "Zomato" || rec.ID != "sms-1718953200000-450" {
		t.Errorf("record = %+v", rec)
	}
	if got := len(a.store.Pending()); got != 1 {
		t.Errorf("pending len = %d, want 1", got)
	}
}

func TestHandleSmsPush_NonTransaction(t *testing.T) {
	a := testApp()

	w := postJSON(t, a.handleSmsPush, `{"originatingAddress":"HDFCBK","body":"Your OTP is 123456"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"accepted":false`) {
		t.Errorf("body = %s, want accepted=false", w.Body)
	}
	if got := len(a.store.Pending()); got != 0 {
		t.Errorf("pending len = %d, want 0", got)
	}
}

func TestHandleSmsPush_DuplicateDelivery(t *testing.T) {
	a := testApp()
	payload := `{"originatingAddress":"HDFCBK","body":"Rs. 450 debited for payment to Zomato","timestamp":1718953200000}`

	postJSON(t, a.handleSmsPush, payload)
	postJSON(t, a.handleSmsPush, payload)

	if got := len(a.store.Pending()); got != 1 {
		t.Errorf("pending len after duplicate delivery = %d, want 1", got)
	}
}

func TestAddExpense(t *testing.T) {
	a := testApp()

	w := postJSON(t, a.handleExpenses, `{"title":"birthday gift","amount":1500}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body)
	}

	var rec expense.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if rec.Title != "Birthday Gift" {
		t.Errorf("title = %q, want Birthday Gift", rec.Title)
	}
	if rec.Source != expense.SourceManual {
		t.Errorf("source = %q, want Manual default", rec.Source)
	}
	if rec.Category != expense.CategoryUncategorized {
		t.Errorf("category = %q, want Uncategorized default", rec.Category)
	}
	if rec.RequiresEnhancement {
		t.Error("manual record must never be flagged for enhancement")
	}
	if strings.HasPrefix(rec.ID, "sms-") {
		t.Errorf("manual record got a message-shaped id %q", rec.ID)
	}
}

func TestAddExpense_Validation(t *testing.T) {
	a := testApp()

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"amount":100}`},
		{"zero amount", `{"title":"Gift","amount":0}`},
		{"negative amount", `{"title":"Gift","amount":-5}`},
		{"bad json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := postJSON(t, a.handleExpenses, tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestListExpenses(t *testing.T) {
	a := testApp()
	postJSON(t, a.handleExpenses, `{"title":"Gift","amount":100}`)
	postJSON(t, a.handleExpenses, `{"title":"Dinner","amount":800}`)

	req := httptest.NewRequest(http.MethodGet, "/expenses?state=pending", nil)
	w := httptest.NewRecorder()
	a.handleExpenses(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var pending []expense.Record
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending len = %d, want 2", len(pending))
	}

	req = httptest.NewRequest(http.MethodGet, "/expenses", nil)
	w = httptest.NewRecorder()
	a.handleExpenses(w, req)
	var both map[string][]expense.Record
	if err := json.Unmarshal(w.Body.Bytes(), &both); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(both["pending"]) != 2 || len(both["processed"]) != 0 {
		t.Errorf("both = %d pending / %d processed", len(both["pending"]), len(both["processed"]))
	}
}

func TestHandleCategories(t *testing.T) {
	a := testApp()
	a.store.SeedCategories([]string{"Food", "Travel"})

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	w := httptest.NewRecorder()
	a.handleCategories(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var cats []string
	if err := json.Unmarshal(w.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(cats) != 2 || cats[0] != "Food" {
		t.Errorf("categories = %v", cats)
	}

	// A category edit shows up in the list.
	postJSON(t, a.handleExpenses, `{"title":"Rent","amount":15000,"category":"Housing"}`)
	w = httptest.NewRecorder()
	a.handleCategories(w, httptest.NewRequest(http.MethodGet, "/categories", nil))
	cats = nil
	if err := json.Unmarshal(w.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(cats) != 3 || cats[2] != "Housing" {
		t.Errorf("categories after add = %v, want Housing learned", cats)
	}

	if w := postJSON(t, a.handleCategories, `{}`); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /categories status = %d, want 405", w.Code)
	}
}

func TestHandleCategoryAndProcess(t *testing.T) {
	a := testApp()
	postJSON(t, a.handleSmsPush, `{"originatingAddress":"HDFCBK","body":"Rs. 450 debited for payment to Zomato","timestamp":1718953200000}`)
	id := a.store.Pending()[0].ID

	w := postJSON(t, a.handleCategory, `{"id":"`+id+`","category":"Food"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("category edit status = %d; body %s", w.Code, w.Body)
	}
	if rec, _ := a.store.Get(id); rec.Category != "Food" {
		t.Errorf("category = %q, want Food", rec.Category)
	}

	w = postJSON(t, a.handleProcess, `{"id":"`+id+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("process status = %d; body %s", w.Code, w.Body)
	}
	rec, _ := a.store.Get(id)
	if rec.Processed != "Fully Mine" {
		t.Errorf("processed note = %q, want default Fully Mine", rec.Processed)
	}
	if got := len(a.store.Pending()); got != 0 {
		t.Errorf("pending len = %d, want 0 after processing", got)
	}

	if w := postJSON(t, a.handleCategory, `{"id":"missing","category":"Food"}`); w.Code != http.StatusNotFound {
		t.Errorf("edit of unknown id status = %d, want 404", w.Code)
	}
}

func TestHandleDelete(t *testing.T) {
	a := testApp()
	postJSON(t, a.handleExpenses, `{"title":"Gift","amount":100}`)
	id := a.store.Pending()[0].ID

	if w := postJSON(t, a.handleDelete, `{"id":"`+id+`"}`); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if got := len(a.store.Pending()); got != 0 {
		t.Errorf("pending len = %d, want 0", got)
	}
	if w := postJSON(t, a.handleDelete, `{"id":"`+id+`"}`); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestHandleRewind(t *testing.T) {
	a := testApp()

	w := postJSON(t, a.handleRewind, `{"minutes":60}`)
	if w.Code != http.StatusOK {
		t.Fatalf("rewind status = %d; body %s", w.Code, w.Body)
	}
	var resp map[string]int64
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["watermark"] != a.watermark.Get() {
		t.Errorf("reported watermark %d does not match stored %d", resp["watermark"], a.watermark.Get())
	}

	if w := postJSON(t, a.handleRewind, `{"minutes":0}`); w.Code != http.StatusBadRequest {
		t.Errorf("rewind with zero minutes status = %d, want 400", w.Code)
	}
}

func TestHandleAnalyze(t *testing.T) {
	a := testApp()

	w := postJSON(t, a.handleAnalyze, `{"body":"Rs. 450 debited for payment to Zomato","sender":"HDFCBK"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", w.Code, w.Body)
	}

	var resp struct {
		Tiers []struct {
			Tier      string             `json:"tier"`
			Candidate *expense.Candidate `json:"candidate"`
		} `json:"tiers"`
		Record *expense.Record `json:"record"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Tiers) != 1 || resp.Tiers[0].Tier != "regex" {
		t.Fatalf("tiers = %+v, want only the regex tier", resp.Tiers)
	}
	if resp.Tiers[0].Candidate == nil || resp.Tiers[0].Candidate.Merchant != "Zomato" {
		t.Errorf("regex candidate = %+v", resp.Tiers[0].Candidate)
	}
	if resp.Record == nil || resp.Record.Source != expense.SourceDebug {
		t.Errorf("record = %+v, want Debug source", resp.Record)
	}
	if got := len(a.store.Pending()); got != 0 {
		t.Errorf("analyze persisted %d records, want 0", got)
	}
}

func TestMethodGuards(t *testing.T) {
	a := testApp()

	handlers := map[string]http.HandlerFunc{
		"/sms":               a.handleSmsPush,
		"/expenses/category": a.handleCategory,
		"/expenses/process":  a.handleProcess,
		"/expenses/delete":   a.handleDelete,
		"/sync/rewind":       a.handleRewind,
		"/debug/analyze":     a.handleAnalyze,
	}
	for path, h := range handlers {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h(w, req)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, want 405", path, w.Code)
		}
	}
}
