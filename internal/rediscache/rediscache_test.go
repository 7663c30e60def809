package rediscache

import (
	"testing"

	"practitioner-ranker/internal/config"
)

func TestNewClient_BasicConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Password = ""
	cfg.Redis.DB = 3

	client := NewClient(cfg)
	if client == nil {
		t.Fatalf("NewClient returned nil")
	}
	opts := client.Options()
	if opts.Addr != cfg.Redis.Addr {
		t.Errorf("expected Addr %s, got %s", cfg.Redis.Addr, opts.Addr)
	}
	if opts.DB != cfg.Redis.DB {
		t.Errorf("expected DB %d, got %d", cfg.Redis.DB, opts.DB)
	}
}

func TestKey_DeterministicAndTruncatesConversation(t *testing.T) {
	longConvo := make([]byte, 1000)
	for i := range longConvo {
		longConvo[i] = 'a'
	}
	k1 := Key("query", string(longConvo))
	k2 := Key("query", string(longConvo))
	if k1 != k2 {
		t.Errorf("expected Key to be deterministic, got %q vs %q", k1, k2)
	}

	// Differing only in the prefix of a conversation beyond the last 500
	// chars must not change the key, since Key only hashes the tail.
	longConvo2 := make([]byte, 1000)
	copy(longConvo2, longConvo)
	longConvo2[0] = 'b'
	k3 := Key("query", string(longConvo2))
	if k1 != k3 {
		t.Errorf("expected Key to ignore conversation beyond the last 500 chars")
	}
}

func TestKey_DiffersByQuery(t *testing.T) {
	if Key("a", "ctx") == Key("b", "ctx") {
		t.Errorf("expected different queries to produce different keys")
	}
}
