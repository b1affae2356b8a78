package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "assetflow/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %T, want nil store", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatalf("Open accepted an unknown driver")
	}
}

func TestFileStoreRoundtrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "assetflow.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	entries := []DeliveryEntry{
		{At: time.Now().UTC(), Kind: "script", Handle: "app", Action: "register", Source: "app.js", Version: "1.0", OK: true},
		{At: time.Now().UTC(), Kind: "script", Handle: "app", Action: "activate", OK: true},
		{At: time.Now().UTC(), Kind: "style", Handle: "theme", Action: "register", OK: false, Error: "host rejected registration"},
	}
	for _, e := range entries {
		if err := st.AppendDelivery(ctx, e); err != nil {
			t.Fatalf("AppendDelivery: %v", err)
		}
	}

	got, err := st.RecentDeliveries(ctx, 10)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	if got[0].Handle != "app" || got[0].Action != "register" {
		t.Fatalf("got[0] = %+v", got[0])
	}
	if got[2].Error != "host rejected registration" || got[2].OK {
		t.Fatalf("got[2] = %+v", got[2])
	}
}

func TestFileStoreRecentLimit(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "assetflow.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		e := DeliveryEntry{Kind: "script", Handle: "app", Action: "activate", Prio: i}
		if err := st.AppendDelivery(ctx, e); err != nil {
			t.Fatalf("AppendDelivery: %v", err)
		}
	}

	got, err := st.RecentDeliveries(ctx, 3)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	// Last three appended, in file order.
	if got[0].Prio != 7 || got[2].Prio != 9 {
		t.Fatalf("window = %+v", got)
	}
}

func TestFileStoreSkipsCorruptLines(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "assetflow.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.AppendDelivery(ctx, DeliveryEntry{Handle: "before"}); err != nil {
		t.Fatalf("AppendDelivery: %v", err)
	}
	// Simulate a torn write.
	logPath := filepath.Join(dir, "assetflow.deliveries.jsonl")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("{\"Handle\":\"torn\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()
	if err := st.AppendDelivery(ctx, DeliveryEntry{Handle: "after"}); err != nil {
		t.Fatalf("AppendDelivery: %v", err)
	}

	got, err := st.RecentDeliveries(ctx, 10)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(got) != 2 || got[0].Handle != "before" || got[1].Handle != "after" {
		t.Fatalf("entries = %+v, want before/after only", got)
	}
}

func TestFileStoreClosedAppendFails(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "assetflow.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.AppendDelivery(context.Background(), DeliveryEntry{Handle: "x"}); err == nil {
		t.Fatalf("AppendDelivery succeeded on a closed store")
	}
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(dir, "assetflow.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.AppendDelivery(ctx, DeliveryEntry{
		At: time.Now().UTC(), Kind: "script", Handle: "app", Hook: "footer", Prio: 20,
		Action: "replace", Source: "app.min.js", Version: "abc123", OK: true,
	}); err != nil {
		t.Fatalf("AppendDelivery: %v", err)
	}

	got, err := st.RecentDeliveries(ctx, 5)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	e := got[0]
	if e.Handle != "app" || e.Hook != "footer" || e.Prio != 20 || e.Action != "replace" || !e.OK {
		t.Fatalf("entry = %+v", e)
	}
}
