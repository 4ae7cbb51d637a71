package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ROOT", root)
	t.Setenv("GOOGLE_MAPS_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ShelfLife != 48*time.Hour {
		t.Errorf("ShelfLife = %v, want 48h", cfg.ShelfLife)
	}
	if cfg.DropDir != filepath.Join(root, "reports") {
		t.Errorf("DropDir = %q", cfg.DropDir)
	}
	if cfg.RetryMax != 3 {
		t.Errorf("RetryMax = %d, want 3", cfg.RetryMax)
	}
	if !reflect.DeepEqual(cfg.MapPriceLevels, []int{3, 4}) {
		t.Errorf("MapPriceLevels = %v", cfg.MapPriceLevels)
	}
	if cfg.S3.Enabled() || cfg.Kafka.Enabled() {
		t.Error("optional sinks enabled without settings")
	}
	if !errors.Is(cfg.RequireAPIKey(), ErrMissingAPIKey) {
		t.Error("RequireAPIKey() should fail without a key")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ROOT", t.TempDir())
	t.Setenv("SHELF_LIFE", "12h")
	t.Setenv("MAP_PRICE_LEVELS", "2, 3")
	t.Setenv("KAFKA_BROKER", "localhost:9092")
	t.Setenv("KAFKA_TOPIC", "runs")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ShelfLife != 12*time.Hour {
		t.Errorf("ShelfLife = %v", cfg.ShelfLife)
	}
	if !reflect.DeepEqual(cfg.MapPriceLevels, []int{2, 3}) {
		t.Errorf("MapPriceLevels = %v", cfg.MapPriceLevels)
	}
	if !cfg.S3.UseSSL {
		t.Error("MINIO_USE_SSL=true not applied")
	}
	if !cfg.Kafka.Enabled() || cfg.Kafka.GroupID != "restaurant-merger" {
		t.Errorf("Kafka = %+v", cfg.Kafka)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"SHELF_LIFE":    "two days",
		"RETRY_MAX":     "0",
		"MINIO_USE_SSL": "yes",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv("ROOT", t.TempDir())
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q should fail", key, val)
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{DropDir: filepath.Join(root, "a", "b"), ProcessedDir: filepath.Join(root, "c")}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{cfg.DropDir, cfg.ProcessedDir} {
		if st, err := os.Stat(d); err != nil || !st.IsDir() {
			t.Errorf("%s not created", d)
		}
	}
}

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]byte(`{"office":"1 Main St, Springfield","home":"22 Elm Rd","zip":60601,"blank":"  ","none":null}`))
	if err != nil {
		t.Fatal(err)
	}
	want := []Address{
		{Label: "home", Address: "22 Elm Rd"},
		{Label: "office", Address: "1 Main St, Springfield"},
		{Label: "zip", Address: "60601"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseAddresses() = %+v, want %+v", got, want)
	}
	if s := AddressStrings(got); len(s) != 3 || s[0] != "22 Elm Rd" {
		t.Errorf("AddressStrings() = %v", s)
	}

	if _, err := ParseAddresses([]byte(`["a"]`)); err == nil {
		t.Error("expected error for non-object file")
	}
}
