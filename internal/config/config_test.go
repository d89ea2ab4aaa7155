package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unkn0wn-root/shuffleio"
	"github.com/unkn0wn-root/shuffleio/store"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "shuffleio.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendMemory || cfg.ParsedMode != shuffleio.ModeSync {
		t.Fatalf("defaults: backend=%s mode=%v", cfg.Backend, cfg.ParsedMode)
	}
	if cfg.ParsedClass != store.ClassUnknown || cfg.ParsedHint != store.HintNone {
		t.Fatalf("defaults: class=%v hint=%v", cfg.ParsedClass, cfg.ParsedHint)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	p := writeFile(t, `
job_id: app-20240101-0007
mode: async
object_class: oc_rp_2gx
object_hint: HINT_SHARD_LARGE
backend: redis
flush_parallelism: 6
block_cache_max_cost: 1048576
redis:
  addr: redis.internal:6379
  ttl: 1h
`)
	t.Setenv("SHUFFLEIO_REDIS_ADDR", "localhost:6380")
	t.Setenv("SHUFFLEIO_SERIALIZE_CREATE", "true")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redis.Addr != "localhost:6380" {
		t.Fatalf("env override lost: %s", cfg.Redis.Addr)
	}
	if cfg.Redis.TTL.Hours() != 1 {
		t.Fatalf("ttl = %v", cfg.Redis.TTL)
	}
	opts := cfg.Options()
	if opts.JobID != "app-20240101-0007" || opts.Mode != shuffleio.ModeAsync {
		t.Fatalf("options = %+v", opts)
	}
	if opts.ObjectClass != store.ClassRP2GX || opts.ObjectHint != store.HintShardLarge {
		t.Fatalf("class/hint = %v/%v", opts.ObjectClass, opts.ObjectHint)
	}
	if !opts.SerializeCreate || opts.FlushParallelism != 6 || opts.BlockCacheMaxCost != 1<<20 {
		t.Fatalf("options = %+v", opts)
	}
}

func TestLoadReportsEveryProblem(t *testing.T) {
	p := writeFile(t, `
job_id: no-digits
mode: turbo
object_class: OC_FAST
backend: s3
`)
	_, err := Load(p)
	if err == nil {
		t.Fatalf("invalid config accepted")
	}
	for _, want := range []string{"malformed job id", "unknown mode", "unknown object class", "unknown backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestLoadBadEnvInt(t *testing.T) {
	t.Setenv("SHUFFLEIO_WRITE_BUFFER_SIZE", "lots")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "SHUFFLEIO_WRITE_BUFFER_SIZE") {
		t.Fatalf("want env parse error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}
