package s3

import (
	"context"
	"strings"
	"testing"
)

func TestNormalizeConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "missing bucket", cfg: Config{}, wantErr: "bucket is required"},
		{name: "half credentials", cfg: Config{Bucket: "b", AccessKeyID: "id"}, wantErr: "must be set together"},
		{name: "bad url mode", cfg: Config{Bucket: "b", URLMode: "cdn"}, wantErr: "unsupported s3 url mode"},
		{name: "defaults", cfg: Config{Bucket: " b "}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeConfig(tc.cfg)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeConfig() error = %v", err)
			}
			if got.Bucket != "b" || got.Region != "us-east-1" || got.URLMode != URLModePresigned || got.PresignedTTL <= 0 {
				t.Fatalf("unexpected defaults: %+v", got)
			}
		})
	}
}

func TestSnapshotStorage_PublicURL(t *testing.T) {
	key := "heatmaps/sockshop/prod/carts/2026/02/07/20260207T123456Z_heatmap.png"

	tests := []struct {
		name    string
		storage SnapshotStorage
		want    string
	}{
		{
			name:    "path style custom endpoint",
			storage: SnapshotStorage{bucket: "snaps", endpoint: "http://localhost:9000", usePathStyle: true},
			want:    "http://localhost:9000/snaps/" + key,
		},
		{
			name:    "virtual hosted aws",
			storage: SnapshotStorage{bucket: "snaps", region: "eu-west-1"},
			want:    "https://snaps.s3.eu-west-1.amazonaws.com/" + key,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.storage.publicURL(key); got != tc.want {
				t.Fatalf("publicURL() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSnapshotStorage_PublicModeObjectURL(t *testing.T) {
	storage, err := NewSnapshotStorage(context.Background(), Config{
		Bucket:          "snaps",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
		URLMode:         URLModePublic,
	})
	if err != nil {
		t.Fatalf("NewSnapshotStorage() error = %v", err)
	}

	url, err := storage.GetObjectURL(context.Background(), " a b.png ")
	if err != nil {
		t.Fatalf("GetObjectURL() error = %v", err)
	}
	if url != "http://localhost:9000/snaps/a%20b.png" {
		t.Fatalf("unexpected url %s", url)
	}

	if _, err := storage.GetObjectURL(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
