package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Chunking: ChunkingConfig{Size: 1000, Overlap: 200},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := validConfig()
		cfg.HTTP.Port = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for port %d", port)
		}
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
	if !strings.Contains(err.Error(), "database.addrs") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestValidate_OverlapNotSmallerThanSize(t *testing.T) {
	cfg := validConfig()
	cfg.Chunking.Size = 100
	cfg.Chunking.Overlap = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlap >= size")
	}
}

func TestValidate_ExtensionWithoutDot(t *testing.T) {
	cfg := validConfig()
	cfg.Indexing.Extensions = []string{".txt", "md"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for extension without dot")
	}
	if !strings.Contains(err.Error(), `"md"`) {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("read timeout = %d, want 10", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.KeyPrefix != "docdex:" {
		t.Errorf("key prefix = %q, want docdex:", cfg.Database.KeyPrefix)
	}
	if cfg.Storage.DocumentsDir != "documents" || cfg.Storage.DataDir != "data" {
		t.Errorf("storage defaults = %q / %q", cfg.Storage.DocumentsDir, cfg.Storage.DataDir)
	}
	if cfg.Chunking.Size != 1000 || cfg.Chunking.Overlap != 200 {
		t.Errorf("chunking defaults = %d / %d", cfg.Chunking.Size, cfg.Chunking.Overlap)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("top_k = %d, want 3", cfg.Retrieval.TopK)
	}
	if len(cfg.Indexing.Extensions) == 0 {
		t.Error("extensions default is empty")
	}
	if cfg.Indexing.AutoIntervalSec != 300 {
		t.Errorf("auto interval = %d, want 300", cfg.Indexing.AutoIntervalSec)
	}
	if cfg.Eligibility.CacheCapacity != 1024 {
		t.Errorf("cache capacity = %d, want 1024", cfg.Eligibility.CacheCapacity)
	}
	if cfg.Cleanup.MaxAttempts != 5 || cfg.Cleanup.DelayMs != 100 {
		t.Errorf("cleanup defaults = %d / %d", cfg.Cleanup.MaxAttempts, cfg.Cleanup.DelayMs)
	}
	if cfg.Completion.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", cfg.Completion.Temperature)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{
		Chunking:  ChunkingConfig{Size: 500, Overlap: 50},
		Retrieval: RetrievalConfig{TopK: 5},
	}
	cfg.ApplyDefaults()

	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("explicit chunking overridden: %d / %d", cfg.Chunking.Size, cfg.Chunking.Overlap)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("explicit top_k overridden: %d", cfg.Retrieval.TopK)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCDEX_TEST_PORT", "9090")

	in := []byte("port: ${DOCDEX_TEST_PORT}\nhost: ${DOCDEX_TEST_HOST:-localhost}\nempty: ${DOCDEX_TEST_UNSET}")
	got := string(expandEnvVars(in))
	want := "port: 9090\nhost: localhost\nempty: "
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestExpandEnvVars_SetVariableBeatsDefault(t *testing.T) {
	t.Setenv("DOCDEX_TEST_HOST", "redis.internal")

	got := string(expandEnvVars([]byte("host: ${DOCDEX_TEST_HOST:-localhost}")))
	if got != "host: redis.internal" {
		t.Errorf("got %q", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("default env = %q, want local", got)
	}

	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("env = %q, want prod", got)
	}
}
