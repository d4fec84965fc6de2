package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("GRID_CANONICAL_ROWS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "postgres" {
		t.Fatalf("unexpected driver: %s", cfg.Database.Driver)
	}
	if !reflect.DeepEqual(cfg.Grid.CanonicalRows, []string{"score", "response time p95"}) {
		t.Fatalf("unexpected canonical rows: %q", cfg.Grid.CanonicalRows)
	}
	if cfg.Grid.TimeLayout != time.RFC3339 {
		t.Fatalf("unexpected time layout: %s", cfg.Grid.TimeLayout)
	}
	if cfg.Refresher.Interval != 30*time.Second {
		t.Fatalf("unexpected refresher interval: %s", cfg.Refresher.Interval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/evals.db")
	t.Setenv("GRID_CANONICAL_ROWS", "score, throughput ,error rate")
	t.Setenv("REFRESHER_SCOPES", "sockshop/dev/carts, sockshop/prod/carts")
	t.Setenv("CLOUDWATCH_METRICS_DIMENSIONS", "env=prod,team = quality")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN() != "/tmp/evals.db" {
		t.Fatalf("unexpected sqlite config: %+v", cfg.Database)
	}
	if !reflect.DeepEqual(cfg.Grid.CanonicalRows, []string{"score", "throughput", "error rate"}) {
		t.Fatalf("unexpected canonical rows: %q", cfg.Grid.CanonicalRows)
	}
	if !reflect.DeepEqual(cfg.Refresher.Scopes, []string{"sockshop/dev/carts", "sockshop/prod/carts"}) {
		t.Fatalf("unexpected scopes: %q", cfg.Refresher.Scopes)
	}
	want := map[string]string{"env": "prod", "team": "quality"}
	if !reflect.DeepEqual(cfg.CloudWatch.MetricsDimensions, want) {
		t.Fatalf("unexpected dimensions: %v", cfg.CloudWatch.MetricsDimensions)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "driver", key: "DB_DRIVER", value: "mysql"},
		{name: "history limit", key: "GRID_HISTORY_LIMIT", value: "-3"},
		{name: "redis ttl", key: "REDIS_TTL", value: "soon"},
		{name: "refresher interval", key: "REFRESHER_INTERVAL", value: "abc"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestLoad_AuthRequiresToken(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_BEARER_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when auth is enabled without token")
	}
}

func TestLoad_IngestTokenMustDiffer(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_BEARER_TOKEN", "shared")
	t.Setenv("AUTH_INGEST_TOKEN", "shared")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when ingest token equals dashboard token")
	}

	t.Setenv("AUTH_INGEST_TOKEN", "pipeline")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Security.IngestToken != "pipeline" {
		t.Fatalf("IngestToken = %q", cfg.Security.IngestToken)
	}
}
