package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/shiporbit-client/internal/persistence"
)

// testParams keep key derivation fast in tests.
var testParams = Argon2idParams{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("file:"+t.TempDir()+"/state.db", NewSealer("test-secret", testParams))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close returned error: %v", err)
		}
	})
	return store
}

func TestStore_SessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	state := persistence.SessionState{
		Token:    "tok-abc",
		UserJSON: []byte(`{"id":"u-1","email":"shipper@example.test"}`),
	}
	if err := store.SaveSession(ctx, state); err != nil {
		t.Fatalf("SaveSession returned error: %v", err)
	}

	loaded, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession returned error: %v", err)
	}
	if loaded.Token != "tok-abc" {
		t.Fatalf("unexpected token: %q", loaded.Token)
	}
	if string(loaded.UserJSON) != string(state.UserJSON) {
		t.Fatalf("unexpected user JSON: %s", loaded.UserJSON)
	}

	// Saving again replaces the singleton row.
	state.Token = "tok-def"
	if err := store.SaveSession(ctx, state); err != nil {
		t.Fatalf("SaveSession returned error: %v", err)
	}
	loaded, err = store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession returned error: %v", err)
	}
	if loaded.Token != "tok-def" {
		t.Fatalf("expected replaced token, got %q", loaded.Token)
	}
}

func TestStore_LoadSessionEmpty(t *testing.T) {
	store := openTestStore(t)
	_, err := store.LoadSession(context.Background())
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ClearSession(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("clearing an empty store should be a no-op, got %v", err)
	}

	if err := store.SaveSession(ctx, persistence.SessionState{Token: "tok", UserJSON: []byte(`{}`)}); err != nil {
		t.Fatalf("SaveSession returned error: %v", err)
	}
	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession returned error: %v", err)
	}
	if _, err := store.LoadSession(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestStore_TamperedSealFailsClosed(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.SaveSession(ctx, persistence.SessionState{Token: "tok", UserJSON: []byte(`{}`)}); err != nil {
		t.Fatalf("SaveSession returned error: %v", err)
	}

	// Replace the ciphertext with garbage of the same length.
	if _, err := store.db.ExecContext(ctx, `
		UPDATE session_state
		SET sealed_token = zeroblob(length(sealed_token))
		WHERE id = 1
	`); err != nil {
		t.Fatalf("failed to tamper with sealed token: %v", err)
	}

	_, err := store.LoadSession(ctx)
	if !errors.Is(err, persistence.ErrSealBroken) {
		t.Fatalf("expected ErrSealBroken, got %v", err)
	}
}

func TestSealer_DifferentSecretCannotOpen(t *testing.T) {
	sealer := NewSealer("secret-a", testParams)
	blob, err := sealer.Seal([]byte("tok"))
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}

	other := NewSealer("secret-b", testParams)
	if _, err := other.Open(blob); !errors.Is(err, persistence.ErrSealBroken) {
		t.Fatalf("expected ErrSealBroken with wrong secret, got %v", err)
	}

	opened, err := sealer.Open(blob)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if string(opened) != "tok" {
		t.Fatalf("unexpected plaintext: %q", opened)
	}
}

func TestStore_DraftCache(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	if err := store.PutDraft(ctx, "sh-1", []byte(`{"id":"sh-1"}`), now); err != nil {
		t.Fatalf("PutDraft returned error: %v", err)
	}

	payload, err := store.GetDraft(ctx, "sh-1")
	if err != nil {
		t.Fatalf("GetDraft returned error: %v", err)
	}
	if string(payload) != `{"id":"sh-1"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}

	if err := store.DeleteDraft(ctx, "sh-1"); err != nil {
		t.Fatalf("DeleteDraft returned error: %v", err)
	}
	if _, err := store.GetDraft(ctx, "sh-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := store.PutDraft(ctx, "", nil, now); err == nil {
		t.Fatalf("expected error for empty shipment id")
	}
}

func TestStore_InvoiceCache(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, _, err := store.LoadInvoices(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty cache, got %v", err)
	}

	fetchedAt := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	if err := store.ReplaceInvoices(ctx, []byte(`{"results":[]}`), fetchedAt); err != nil {
		t.Fatalf("ReplaceInvoices returned error: %v", err)
	}

	payload, ts, err := store.LoadInvoices(ctx)
	if err != nil {
		t.Fatalf("LoadInvoices returned error: %v", err)
	}
	if string(payload) != `{"results":[]}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
	if !ts.Equal(fetchedAt) {
		t.Fatalf("unexpected fetched_at: %s", ts)
	}
}
