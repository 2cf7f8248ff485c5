package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MrSnakeDoc/hometools/internal/logger"
)

func TestPushoverSend(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/messages.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"token":    r.PostFormValue("token"),
			"user":     r.PostFormValue("user"),
			"title":    r.PostFormValue("title"),
			"priority": r.PostFormValue("priority"),
			"sound":    r.PostFormValue("sound"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewPushover("app-token", "user-key")
	p.BaseURL = server.URL
	if err := p.Send(context.Background(), "Washer done", "cycle complete"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	want := map[string]string{
		"token": "app-token", "user": "user-key",
		"title": "Washer done", "priority": "1", "sound": "pushover",
	}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("form[%q] = %q, want %q", k, gotForm[k], v)
		}
	}
}

func TestNtfySendHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/laundry" {
			t.Errorf("path = %q, want /laundry", r.URL.Path)
		}
		if r.Header.Get("Title") != "Dryer done" {
			t.Errorf("Title header = %q", r.Header.Get("Title"))
		}
		if r.Header.Get("Priority") != "high" || r.Header.Get("Tags") != "white_check_mark" {
			t.Errorf("headers = %v", r.Header)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "cycle complete" {
			t.Errorf("body = %q", body)
		}
	}))
	defer server.Close()

	n := NewNtfy("laundry")
	n.BaseURL = server.URL
	if err := n.Send(context.Background(), "Dryer done", "cycle complete"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
}

func TestTelegramSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload["chat_id"] != "12345" {
			t.Errorf("chat_id = %q", payload["chat_id"])
		}
		if payload["parse_mode"] != "HTML" {
			t.Errorf("parse_mode = %q", payload["parse_mode"])
		}
		if payload["text"] != "<b>Washer done</b>\ncycle complete" {
			t.Errorf("text = %q", payload["text"])
		}
	}))
	defer server.Close()

	tg := NewTelegram("test-token", "12345")
	tg.BaseURL = server.URL
	if err := tg.Send(context.Background(), "Washer done", "cycle complete"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
}

func TestSendReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid user key", http.StatusBadRequest)
	}))
	defer server.Close()

	p := NewPushover("t", "u")
	p.BaseURL = server.URL
	if err := p.Send(context.Background(), "t", "m"); err == nil {
		t.Fatal("expected error on 400 response")
	}
}

type fakeNotifier struct {
	name  string
	err   error
	calls atomic.Int32
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(ctx context.Context, title, message string) error {
	f.calls.Add(1)
	return f.err
}

func TestDispatcherContinuesPastFailures(t *testing.T) {
	failing := &fakeNotifier{name: "first", err: errors.New("boom")}
	working := &fakeNotifier{name: "second"}

	d := NewDispatcher(logger.Nop(), failing, working)
	d.Send(context.Background(), "title", "message")

	if failing.calls.Load() != 1 || working.calls.Load() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", failing.calls.Load(), working.calls.Load())
	}
}

func TestNewDispatcherFromEnv(t *testing.T) {
	t.Setenv("PUSHOVER_APP_TOKEN", "a")
	t.Setenv("PUSHOVER_USER_KEY", "b")
	t.Setenv("NTFY_TOPIC", "laundry")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	d := NewDispatcherFromEnv(logger.Nop())
	if len(d.services) != 2 {
		t.Fatalf("configured %d services, want 2", len(d.services))
	}
	if !d.Configured() {
		t.Error("Configured() = false")
	}

	t.Setenv("PUSHOVER_APP_TOKEN", "")
	t.Setenv("NTFY_TOPIC", "")
	if NewDispatcherFromEnv(logger.Nop()).Configured() {
		t.Error("Configured() = true with nothing set")
	}
}
