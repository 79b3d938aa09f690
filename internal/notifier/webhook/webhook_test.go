package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akiyanov/levels/internal/notifier"
)

func testEvent() notifier.Event {
	return notifier.Event{
		Symbol:   "ETHUSDT",
		Side:     "SELL",
		Quantity: 2,
		Price:    3000,
		Time:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSend(t *testing.T) {
	var payload map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer server.Close()

	wh := New(server.URL, map[string]string{"Authorization": "Bearer secret"})
	if err := wh.Send(testEvent()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want custom header forwarded", gotAuth)
	}
	if payload["symbol"] != "ETHUSDT" || payload["side"] != "SELL" {
		t.Errorf("payload = %v", payload)
	}
	if payload["type"] != "trade" {
		t.Errorf("type = %v, want trade", payload["type"])
	}
}

func TestSend_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	wh := New(server.URL, nil)
	if err := wh.Send(testEvent()); err == nil {
		t.Fatal("Send() should fail on 5xx")
	}
}

func TestSendBatch(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer server.Close()

	wh := New(server.URL, nil)
	if err := wh.SendBatch([]notifier.Event{testEvent(), testEvent()}); err != nil {
		t.Fatalf("SendBatch() error = %v", err)
	}
	if payload["type"] != "batch" || payload["count"] != float64(2) {
		t.Errorf("payload = %v", payload)
	}
}

func TestSendBatch_Empty(t *testing.T) {
	wh := New("http://127.0.0.1:0", nil)
	if err := wh.SendBatch(nil); err != nil {
		t.Errorf("SendBatch(nil) error = %v, want nil without request", err)
	}
}
