package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-redis/redismock/v9"
)

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if _, ok, err := kv.Get(ctx, "userAlerts"); err != nil || ok {
		t.Fatalf("missing key should be absent without error, got ok=%v err=%v", ok, err)
	}

	if err := kv.Set(ctx, "userAlerts", `[{"id":"1"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set(ctx, "userAlerts", `[]`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	got, ok, err := kv.Get(ctx, "userAlerts")
	if err != nil || !ok {
		t.Fatalf("Get after Set: ok=%v err=%v", ok, err)
	}
	if got != "[]" {
		t.Fatalf("expected overwritten value, got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files should not be left behind, found %d entries", len(entries))
	}
}

func TestFileUnreadable(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "broken.json"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, _, err := kv.Get(context.Background(), "broken"); err == nil {
		t.Fatal("reading a directory should fail")
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	if err := kv.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, _ := kv.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("unexpected value %q ok=%v", v, ok)
	}
}

func TestRedisGetSet(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	kv := NewRedisWithClient(db, "pricewatch")

	mock.ExpectGet("pricewatch:userAlerts").RedisNil()
	if _, ok, err := kv.Get(ctx, "userAlerts"); err != nil || ok {
		t.Fatalf("miss should be absent without error, got ok=%v err=%v", ok, err)
	}

	mock.ExpectSet("pricewatch:userAlerts", "[]", 0).SetVal("OK")
	if err := kv.Set(ctx, "userAlerts", "[]"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mock.ExpectGet("pricewatch:userAlerts").SetVal("[]")
	v, ok, err := kv.Get(ctx, "userAlerts")
	if err != nil || !ok || v != "[]" {
		t.Fatalf("unexpected get result %q ok=%v err=%v", v, ok, err)
	}

	mock.ExpectGet("pricewatch:userAlerts").SetErr(errors.New("connection reset"))
	if _, _, err := kv.Get(ctx, "userAlerts"); err == nil {
		t.Fatal("backend failure should surface")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("redis expectations not met: %v", err)
	}
}

func TestPostgresNotConfigured(t *testing.T) {
	var kv *Postgres
	if _, _, err := kv.Get(context.Background(), "k"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewPool(context.Background(), PostgresConfig{}); err == nil {
		t.Fatal("missing dsn should fail")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "etcd"}); err == nil {
		t.Fatal("unknown driver should fail")
	}
	kv, err := Open(context.Background(), Config{Driver: DriverFile, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("file driver: %v", err)
	}
	if _, ok := kv.(*File); !ok {
		t.Fatalf("expected *File, got %T", kv)
	}
}
