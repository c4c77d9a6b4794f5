package storage_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/JaimeStill/loom/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=loomstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/loomstore;"

func TestNewReturnsSystem(t *testing.T) {
	cfg := &storage.Config{
		ContainerName:    "artifacts",
		ConnectionString: azuriteConnString,
	}

	sys, err := storage.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys == nil {
		t.Fatal("New() returned nil system")
	}
}

func TestNewInvalidConnectionString(t *testing.T) {
	cfg := &storage.Config{
		ContainerName:    "artifacts",
		ConnectionString: "not-a-connection-string",
	}

	_, err := storage.New(cfg, slog.Default())
	if err == nil {
		t.Fatal("expected error for invalid connection string, got nil")
	}
}

func TestKeyValidation(t *testing.T) {
	cfg := &storage.Config{
		ContainerName:    "artifacts",
		ConnectionString: azuriteConnString,
	}

	sys, err := storage.New(cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()

	if err := sys.Upload(ctx, "", strings.NewReader("{}"), "application/json"); !errors.Is(err, storage.ErrEmptyKey) {
		t.Errorf("empty key: got %v, want ErrEmptyKey", err)
	}
	if err := sys.Delete(ctx, "../escape/story.json"); !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("traversal key: got %v, want ErrInvalidKey", err)
	}
	if _, err := sys.Download(ctx, ""); !errors.Is(err, storage.ErrEmptyKey) {
		t.Errorf("empty download key: got %v, want ErrEmptyKey", err)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", storage.ErrNotFound, http.StatusNotFound},
		{"empty key", storage.ErrEmptyKey, http.StatusBadRequest},
		{"invalid key", storage.ErrInvalidKey, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := storage.MapHTTPStatus(tc.err); got != tc.want {
				t.Errorf("status: got %d, want %d", got, tc.want)
			}
		})
	}
}
