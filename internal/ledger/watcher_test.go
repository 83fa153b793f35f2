package ledger

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/tempo/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, db *DB, root string, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, root, testutil.Logger(), cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func indexed(db *DB, rel string) func() bool {
	return func() bool {
		cs, _ := db.Checksum(rel)
		return cs != ""
	}
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root := testutil.TestRoot(t)
	db := testDB(t)

	var mu sync.Mutex
	var events []string
	startWatch(t, db, root, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	testutil.WriteDay(t, root, "new.md", "- 09:00-09:30 a: b")

	eventually(t, 5*time.Second, 50*time.Millisecond, indexed(db, "new.md"), "new day not indexed by watcher")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return slices.Contains(events, EventCreated+":new.md")
	}, "expected created:new.md callback")
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	root := testutil.TestRoot(t)
	db := testDB(t)
	startWatch(t, db, root, nil)

	testutil.WriteDay(t, root, "draft.markdown", "- 09:00-09:30 a: b")
	testutil.WriteDay(t, root, "marker.md", "- 09:00-09:30 a: b")

	eventually(t, 5*time.Second, 50*time.Millisecond, indexed(db, "marker.md"), "marker day not indexed")
	if cs, _ := db.Checksum("draft.markdown"); cs != "" {
		t.Error("non-day file indexed")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root := testutil.TestRoot(t)
	db := testDB(t)
	startWatch(t, db, root, nil)

	sub := filepath.Join(root, "2024", "jan")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	testutil.WriteDay(t, root, filepath.Join("2024", "jan", "15.md"), "- 09:00-10:00 a: b")

	eventually(t, 5*time.Second, 50*time.Millisecond, indexed(db, filepath.Join("2024", "jan", "15.md")),
		"day in new subdir not indexed by watcher")
}

func TestWatcher_UpdateRecomputesTotals(t *testing.T) {
	root := testutil.TestRoot(t)
	db := testDB(t)
	testutil.WriteDay(t, root, "d.md", "- 09:00-10:00 a: b")
	if err := Sync(db, root, testutil.Logger()); err != nil {
		t.Fatal(err)
	}
	startWatch(t, db, root, nil)

	testutil.WriteDay(t, root, "d.md", "- 09:00-10:00 a: b", "- 10:00-10:30 a: c")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		d, err := db.Get("d.md")
		return err == nil && d.Minutes == 90 && d.Entries == 2
	}, "update not reflected in ledger")
}

func TestWatcher_DeleteRemovesFromLedger(t *testing.T) {
	root := testutil.TestRoot(t)
	db := testDB(t)
	testutil.WriteDay(t, root, "del.md", "- 09:00-10:00 a: b")
	if err := Sync(db, root, testutil.Logger()); err != nil {
		t.Fatal(err)
	}
	if !indexed(db, "del.md")() {
		t.Fatal("precondition: day should be indexed")
	}
	startWatch(t, db, root, nil)

	_ = os.Remove(filepath.Join(root, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !indexed(db, "del.md")()
	}, "deleted day still in ledger")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root := testutil.TestRoot(t)
	db := testDB(t)
	testutil.WriteDay(t, root, "old.md", "- 09:00-10:00 a: b")
	if err := Sync(db, root, testutil.Logger()); err != nil {
		t.Fatal(err)
	}
	startWatch(t, db, root, nil)

	_ = os.Rename(filepath.Join(root, "old.md"), filepath.Join(root, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !indexed(db, "old.md")() && indexed(db, "renamed.md")()
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
