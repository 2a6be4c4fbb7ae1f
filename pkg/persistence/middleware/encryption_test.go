package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/persistence/middleware"
	"github.com/aretw0/reel/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func mustEncrypt(t *testing.T, cfg middleware.EncryptionConfig, next ports.RunStore) ports.RunStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware failed: %v", err)
	}
	return mw(next)
}

func record(id string) domain.RunRecord {
	return domain.RunRecord{
		ID:        id,
		Concept:   "Fourier series of a square wave",
		Status:    domain.StatusFailed,
		Category:  domain.CategoryFatal,
		Message:   "fatal_error: plan: quota exhausted",
		StartedAt: time.Now(),
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	secureStore := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlyingStore)
	ctx := context.Background()
	original := record("run-1")

	// 1. Save
	if err := secureStore.Save(ctx, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Verify Underlying Store directly (free text is sealed, metadata is not)
	stored, err := underlyingStore.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if strings.Contains(stored.Concept, "Fourier") || !strings.HasPrefix(stored.Concept, "enc:v1:") {
		t.Fatalf("Expected concept to be sealed, found: %q", stored.Concept)
	}
	if strings.Contains(stored.Message, "quota") {
		t.Fatalf("Expected message to be sealed, found: %q", stored.Message)
	}
	if stored.Status != domain.StatusFailed || stored.Category != domain.CategoryFatal {
		t.Errorf("Status and category should stay in clear, got %q/%q", stored.Status, stored.Category)
	}

	// 3. Load and List via Middleware (decrypted)
	loaded, err := secureStore.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Concept != original.Concept || loaded.Message != original.Message {
		t.Errorf("Roundtrip mismatch: %+v", loaded)
	}

	listed, err := secureStore.List(ctx, 0)
	if err != nil {
		t.Fatalf("List via middleware failed: %v", err)
	}
	if len(listed) != 1 || listed[0].Concept != original.Concept {
		t.Errorf("List did not decrypt: %+v", listed)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	// 1. Save with OLD key
	secureStoreOld := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: oldKey}, underlyingStore)
	if err := secureStoreOld.Save(ctx, record("rotation")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Load with NEW key (Active) + OLD key (Fallback)
	secureStoreNew := mustEncrypt(t, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	}, underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, "rotation")
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}

	// 3. Save again (now sealed with the NEW key)
	loaded.Message = "sealed with the new key"
	if err := secureStoreNew.Save(ctx, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	// 4. Verify we CANNOT load with just OLD key anymore
	if _, err := secureStoreOld.Load(ctx, "rotation"); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsClearText(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	if err := underlyingStore.Save(ctx, record("plain")); err != nil {
		t.Fatal(err)
	}

	secureStore := mustEncrypt(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlyingStore)
	if _, err := secureStore.Load(ctx, "plain"); err == nil {
		t.Error("Expected clear-text records to be rejected")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	if _, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")}); err == nil {
		t.Error("Expected error for invalid key size")
	}
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	if string(got) != string(key) {
		t.Error("ParseKey returned a different key")
	}

	if _, err := middleware.ParseKey("not base64!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Error("Expected error for a short key")
	}
}
