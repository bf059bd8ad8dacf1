package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestClient_AuthorizationHeader(t *testing.T) {

	t.Run("stamps token on every request once a source is attached", func(t *testing.T) {
		var got string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"u-1","email":"a@b.test"}`))
		}))
		defer server.Close()

		client := New(Options{BaseURL: server.URL})
		client.SetTokenSource(staticToken("tok-123"))

		if _, err := client.CurrentUser(context.Background()); err != nil {
			t.Fatalf("CurrentUser returned error: %v", err)
		}
		if got != "Token tok-123" {
			t.Fatalf("unexpected Authorization header: %q", got)
		}
	})

	t.Run("omits header while unauthenticated", func(t *testing.T) {
		var got string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		client := New(Options{BaseURL: server.URL})
		client.SetTokenSource(staticToken(""))

		if _, err := client.SearchCities(context.Background(), "Los"); err != nil {
			t.Fatalf("SearchCities returned error: %v", err)
		}
		if got != "" {
			t.Fatalf("expected no Authorization header, got %q", got)
		}
	})
}

func TestClient_UnauthorizedFailSafe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL})
	client.SetTokenSource(staticToken("stale"))

	fired := 0
	client.OnUnauthorized(func() { fired++ })

	_, err := client.Shipments(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected unauthorized hook to fire once, fired %d times", fired)
	}

	// The hook fires for any call site, not just the first one.
	_, err = client.Invoices(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if fired != 2 {
		t.Fatalf("expected unauthorized hook to fire twice, fired %d times", fired)
	}
}

func TestClient_ErrorDecoding(t *testing.T) {

	t.Run("field-keyed payload becomes field errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Validation failed","errors":{"pickup_date":["Pick-up date is required"]}}`))
		}))
		defer server.Close()

		client := New(Options{BaseURL: server.URL})
		_, err := client.CreateShipment(context.Background(), CreateShipmentParams{})

		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if !apiErr.HasFieldErrors() {
			t.Fatalf("expected field errors, got %+v", apiErr)
		}
		if got := apiErr.FieldErrors["pickup_date"]; len(got) != 1 || got[0] != "Pick-up date is required" {
			t.Fatalf("unexpected field errors: %+v", apiErr.FieldErrors)
		}
		if ErrorKind(err) != "validation" {
			t.Fatalf("unexpected error kind: %q", ErrorKind(err))
		}
	})

	t.Run("flat message becomes general error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"Email already registered"}`))
		}))
		defer server.Close()

		client := New(Options{BaseURL: server.URL})
		_, err := client.RegisterStepOne(context.Background(), RegisterStepOneParams{})

		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if apiErr.HasFieldErrors() {
			t.Fatalf("expected general error, got field errors %+v", apiErr.FieldErrors)
		}
		if apiErr.UserMessage() != "Email already registered" {
			t.Fatalf("unexpected user message: %q", apiErr.UserMessage())
		}
	})

	t.Run("unparseable body falls back to the generic message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("<html>boom</html>"))
		}))
		defer server.Close()

		client := New(Options{BaseURL: server.URL})
		_, err := client.Invoices(context.Background())

		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if apiErr.UserMessage() != FallbackMessage {
			t.Fatalf("unexpected fallback message: %q", apiErr.UserMessage())
		}
	})

	t.Run("404 maps to ErrNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := New(Options{BaseURL: server.URL})
		_, err := client.Shipment(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestClient_IdempotencyKeyHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Idempotency-Key")
		_, _ = w.Write([]byte(`{"status":"succeeded"}`))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL})
	_, err := client.CreatePaymentIntent(context.Background(), CreateIntentParams{
		ShipmentID:      "sh-1",
		PaymentMethodID: "pm-1",
		IdempotencyKey:  "key-abc",
	})
	if err != nil {
		t.Fatalf("CreatePaymentIntent returned error: %v", err)
	}
	if got != "key-abc" {
		t.Fatalf("unexpected Idempotency-Key header: %q", got)
	}
}
