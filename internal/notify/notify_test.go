package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendPostsNotification(t *testing.T) {
	var got pushMessage
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "secret-key", time.Second, nil)
	err := d.Send(context.Background(), "tok-1", "New message from Alice", "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if authHeader != "Bearer secret-key" {
		t.Fatalf("unexpected auth header: %q", authHeader)
	}
	if got.Token != "tok-1" || got.Notification.Title != "New message from Alice" || got.Notification.Body != "hello" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSendMissingToken(t *testing.T) {
	d := NewHTTPDispatcher("http://unused", "", time.Second, nil)

	err := d.Send(context.Background(), "", "title", "body")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "", time.Second, nil)
	if err := d.Send(context.Background(), "tok-1", "t", "b"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestSendRespectsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	d := NewHTTPDispatcher(srv.URL, "", time.Second, nil)
	if err := d.Send(ctx, "tok-1", "t", "b"); err == nil {
		t.Fatal("expected error when context expires")
	}
}
