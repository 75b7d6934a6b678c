package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGateway_ListSince(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sms" {
			t.Errorf("path = %q, want /sms", r.URL.Path)
		}
		if got := r.URL.Query().Get("since"); got != "1718953200000" {
			t.Errorf("since = %q, want 1718953200000", got)
		}
		_, _ = w.Write([]byte(`[
			{"body":"Rs. 450 debited","address":"HDFCBK","timestamp":1718953300000},
			{"body":"Rs. 180 debited","address":"SBIINB","timestamp":1718953400000}
		]`))
	}))
	defer srv.Close()

	g := New(srv.Client(), srv.URL)
	msgs, err := g.ListSince(context.Background(), 1718953200000)
	if err != nil {
		t.Fatalf("ListSince: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Address != "HDFCBK" || msgs[0].Timestamp != 1718953300000 {
		t.Errorf("first message = %+v", msgs[0])
	}
}

func TestGateway_ListSinceErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "unparsable body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			g := New(srv.Client(), srv.URL)
			if _, err := g.ListSince(context.Background(), 0); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPushEventMessage(t *testing.T) {
	e := PushEvent{OriginatingAddress: "HDFCBK", Body: "Rs. 100 debited", Timestamp: 42}
	m := e.Message()
	if m.Address != "HDFCBK" || m.Body != "Rs. 100 debited" || m.Timestamp != 42 {
		t.Errorf("Message() = %+v", m)
	}
}

func TestSourceName(t *testing.T) {
	if got := (Message{Address: "HDFCBK"}).SourceName(); got != "HDFCBK" {
		t.Errorf("SourceName = %q, want HDFCBK", got)
	}
	if got := (Message{}).SourceName(); got != "Bank" {
		t.Errorf("SourceName = %q, want Bank fallback", got)
	}
}
