package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware(middleware.DefaultRedactPatterns)
	if err != nil {
		t.Fatalf("NewPIIMiddleware failed: %v", err)
	}
	secureStore := mw(underlyingStore)
	ctx := context.Background()

	rec := domain.RunRecord{
		ID:      "pii-run",
		Concept: "limits",
		Status:  domain.StatusFailed,
		Message: "recoverable_error: evaluate: POST https://example.test/upload?key=AIzaSECRET&alt=json failed; Authorization: Bearer sk-live-123",
	}
	if err := secureStore.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlyingStore.Load(ctx, "pii-run")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}

	want := "recoverable_error: evaluate: POST https://example.test/upload?key=***&alt=json failed; Authorization: Bearer ***"
	if stored.Message != want {
		t.Errorf("Message not masked:\n got: %s\nwant: %s", stored.Message, want)
	}
	if stored.Concept != "limits" {
		t.Errorf("Concept shouldn't be masked, got %q", stored.Concept)
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}

func TestChain(t *testing.T) {
	underlyingStore := memory.NewStore()
	redact, err := middleware.NewPIIMiddleware(middleware.DefaultRedactPatterns)
	if err != nil {
		t.Fatal(err)
	}
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	store := middleware.Chain(underlyingStore, redact, encrypt)
	ctx := context.Background()

	if err := store.Save(ctx, domain.RunRecord{ID: "chained", Concept: "c", Message: "token=abc"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load(ctx, "chained")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Message != "token=***" {
		t.Errorf("Expected redaction before encryption, got %q", loaded.Message)
	}
}
