package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendHTML(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottok-123/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-123")
	if err := c.SendHTML(context.Background(), "555", "<b>привет</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["chat_id"] != "555" {
		t.Errorf("chat_id = %q", got["chat_id"])
	}
	if got["parse_mode"] != "HTML" {
		t.Errorf("parse_mode = %q", got["parse_mode"])
	}
	if got["text"] != "<b>привет</b>" {
		t.Errorf("text = %q", got["text"])
	}
}

func TestSendHTMLRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "tok").SendHTML(context.Background(), "0", "x")
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *SendError, got %v", err)
	}
	if sendErr.Description != "Bad Request: chat not found" {
		t.Errorf("description = %q", sendErr.Description)
	}
}

func TestSendHTMLNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "tok").SendHTML(context.Background(), "1", "x")
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *SendError, got %v", err)
	}
	if sendErr.Description != "HTTP 502" {
		t.Errorf("description = %q", sendErr.Description)
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("https://api.telegram.org", "tok").Configured() {
		t.Error("client with token should be configured")
	}
	if NewClient("https://api.telegram.org", "").Configured() {
		t.Error("client without token should not be configured")
	}
}
