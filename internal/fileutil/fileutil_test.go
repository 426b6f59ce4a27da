package fileutil

import (
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestHashFileMatchesSHA256(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	content := make([]byte, chunkSize*2+17)
	for i := range content {
		content[i] = byte(i * 31)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if want := Digest(sha256.Sum256(content)); got != want {
		t.Fatalf("digest mismatch: got %s want %s", got, want)
	}
	if len(got.String()) != 64 {
		t.Fatalf("unexpected hex length %d", len(got.String()))
	}
}

func TestHashEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if got != Digest(sha256.Sum256(nil)) {
		t.Fatalf("unexpected empty digest %s", got)
	}
}

func TestHashFileHonorsCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := HashFile(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
