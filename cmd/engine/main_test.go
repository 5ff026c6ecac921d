package main

import (
	"strings"
	"testing"

	"github.com/techmad220/hackerexperience-go/infrastructure/config"
)

func TestBuildStoreMemoryBackend(t *testing.T) {
	cases := []string{"", "memory", "MEMORY", "  memory  "}
	for _, backend := range cases {
		t.Run(backend, func(t *testing.T) {
			cfg := config.EngineConfig{StoreBackend: backend}
			store, closeFn, err := buildStore(cfg, nil)
			if err != nil {
				t.Fatalf("buildStore(%q) error = %v", backend, err)
			}
			if store == nil {
				t.Fatal("buildStore() returned a nil store for the memory backend")
			}
			closeFn()
		})
	}
}

func TestBuildStoreUnknownBackend(t *testing.T) {
	cfg := config.EngineConfig{StoreBackend: "dynamodb"}
	if _, _, err := buildStore(cfg, nil); err == nil {
		t.Fatal("buildStore() should reject an unknown store backend")
	} else if !strings.Contains(err.Error(), "unknown store backend") {
		t.Errorf("error = %v, want it to mention the unknown backend", err)
	}
}

func TestBuildStorePostgresRejectsBadDSN(t *testing.T) {
	cfg := config.EngineConfig{StoreBackend: "postgres", PostgresDSN: ""}
	if _, _, err := buildStore(cfg, nil); err == nil {
		t.Fatal("buildStore() should fail to ping postgres with an empty DSN")
	}
}
