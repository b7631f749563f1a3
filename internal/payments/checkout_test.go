package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/consultwire/consult-server/internal/core"
)

func TestCreateCheckout(t *testing.T) {
	var got checkoutRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkouts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer api-key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"attributes":{"url":"https://pay.example/chk_1"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "api-key", time.Second, nil)
	link, err := c.CreateCheckout(context.Background(), &core.PaymentLinkRequest{
		RoomID:            "room-1",
		SpecialistID:      "spec-1",
		SpecialistPrice:   49.90,
		UserID:            "user-1",
		UserEmail:         "alice@example.com",
		ConsultationTitle: "Checkup",
	})
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if link != "https://pay.example/chk_1" {
		t.Fatalf("unexpected link %q", link)
	}

	if got.Data.Type != "checkouts" {
		t.Fatalf("unexpected data type %q", got.Data.Type)
	}
	if got.Data.Attributes.CustomPrice != 4990 {
		t.Fatalf("price must be in cents, got %d", got.Data.Attributes.CustomPrice)
	}
	custom := got.Data.Attributes.CheckoutData.Custom
	if custom.RoomID != "room-1" || custom.UserID != "user-1" || custom.SpecialistID != "spec-1" {
		t.Fatalf("custom data does not round-trip the room: %+v", custom)
	}
	if got.Data.Attributes.CheckoutData.Email != "alice@example.com" {
		t.Fatalf("email not forwarded: %+v", got.Data.Attributes.CheckoutData)
	}
}

func TestCreateCheckoutUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "api-key", time.Second, nil)
	if _, err := c.CreateCheckout(context.Background(), &core.PaymentLinkRequest{RoomID: "r"}); err == nil {
		t.Fatal("expected error for 422 response")
	}
}

func TestCreateCheckoutMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"attributes":{}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "api-key", time.Second, nil)
	if _, err := c.CreateCheckout(context.Background(), &core.PaymentLinkRequest{RoomID: "r"}); err == nil {
		t.Fatal("expected error when the response carries no url")
	}
}
