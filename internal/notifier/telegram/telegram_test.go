package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akiyanov/levels/internal/notifier"
)

func testEvent() notifier.Event {
	return notifier.Event{
		Symbol:     "BTCUSDT",
		Side:       "BUY",
		Quantity:   0.5,
		Price:      42000.1234,
		Commission: 37.8,
		Time:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSend(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/bottoken123/sendMessage") {
			t.Errorf("path = %s, want bot token in path", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&payload)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg := NewWithBaseURL("token123", "chat456", server.URL)
	if err := tg.Send(testEvent()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if payload["chat_id"] != "chat456" {
		t.Errorf("chat_id = %v, want chat456", payload["chat_id"])
	}
	text, _ := payload["text"].(string)
	if !strings.Contains(text, "BTCUSDT") || !strings.Contains(text, "BUY") {
		t.Errorf("message text missing trade details: %q", text)
	}
}

func TestSend_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	tg := NewWithBaseURL("token", "chat", server.URL)
	if err := tg.Send(testEvent()); err == nil {
		t.Fatal("Send() should surface API errors")
	}
}

func TestSendBatch(t *testing.T) {
	requests := 0
	var text string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		text, _ = payload["text"].(string)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg := NewWithBaseURL("token", "chat", server.URL)
	events := []notifier.Event{testEvent(), testEvent()}
	if err := tg.SendBatch(events); err != nil {
		t.Fatalf("SendBatch() error = %v", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want batch collapsed into 1", requests)
	}
	if !strings.Contains(text, "2 trading events") {
		t.Errorf("batch header missing: %q", text)
	}
}

func TestSendBatch_Empty(t *testing.T) {
	tg := NewWithBaseURL("token", "chat", "http://127.0.0.1:0")
	if err := tg.SendBatch(nil); err != nil {
		t.Errorf("SendBatch(nil) error = %v, want no request at all", err)
	}
}
