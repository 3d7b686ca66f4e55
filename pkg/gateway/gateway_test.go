package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerifyPaymentSignature(t *testing.T) {
	secret := "tenant-secret"
	sig := SignPayload(secret, "order_abc|pay_xyz")

	if !VerifyPaymentSignature(secret, "order_abc", "pay_xyz", sig) {
		t.Fatalf("valid signature rejected")
	}
	if VerifyPaymentSignature(secret, "order_abc", "pay_other", sig) {
		t.Fatalf("signature for different payment accepted")
	}
	if VerifyPaymentSignature("wrong-secret", "order_abc", "pay_xyz", sig) {
		t.Fatalf("signature with wrong secret accepted")
	}
	if VerifyPaymentSignature(secret, "order_abc", "pay_xyz", "") {
		t.Fatalf("empty signature accepted")
	}
	if VerifyPaymentSignature("", "order_abc", "pay_xyz", sig) {
		t.Fatalf("empty secret accepted")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "hook-secret"
	body := []byte(`{"event":"payment.captured"}`)
	sig := SignPayload(secret, string(body))

	if !VerifyWebhookSignature(secret, body, sig) {
		t.Fatalf("valid webhook signature rejected")
	}
	if VerifyWebhookSignature(secret, []byte(`tampered`), sig) {
		t.Fatalf("tampered body accepted")
	}
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key_1" || pass != "secret_1" {
			t.Fatalf("missing or wrong basic auth")
		}
		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(GatewayOrder{
			ID:          "order_abc",
			AmountCents: req.AmountCents,
			Currency:    req.Currency,
			Receipt:     req.Receipt,
			Status:      "created",
		})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	order, err := client.CreateOrder(context.Background(), Credentials{KeyID: "key_1", KeySecret: "secret_1"}, CreateOrderRequest{
		AmountCents: 21000,
		Currency:    "INR",
		Receipt:     "SL-ABC-123",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "order_abc" || order.AmountCents != 21000 {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestCreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.CreateOrder(context.Background(), Credentials{KeyID: "k", KeySecret: "s"}, CreateOrderRequest{
		AmountCents: 100, Currency: "INR", Receipt: "r",
	})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	client := NewClient()
	if _, err := client.CreateOrder(context.Background(), Credentials{}, CreateOrderRequest{AmountCents: 100}); err == nil {
		t.Fatalf("expected credentials error")
	}
	if _, err := client.CreateOrder(context.Background(), Credentials{KeyID: "k", KeySecret: "s"}, CreateOrderRequest{}); err == nil {
		t.Fatalf("expected amount error")
	}
}
