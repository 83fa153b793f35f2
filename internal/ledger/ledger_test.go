package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/tempo/internal/apperr"
	"github.com/starford/tempo/internal/testutil"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM days`).Scan(&count); err != nil {
		t.Fatalf("days table missing: %v", err)
	}
}

func TestUpsertAndChecksum(t *testing.T) {
	db := testDB(t)
	row := DayRow{Path: "2024-01-15.md", Date: "2024-01-15", Checksum: "abc", Minutes: 90, Entries: 2, UpdatedAt: time.Now()}
	if err := db.Upsert(row); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	cs, err := db.Checksum("2024-01-15.md")
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	if cs != "abc" {
		t.Errorf("checksum = %q, want abc", cs)
	}

	row.Checksum, row.Minutes = "def", 120
	if err := db.Upsert(row); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	got, err := db.Get("2024-01-15.md")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Checksum != "def" || got.Minutes != 120 {
		t.Errorf("row = %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.Get("missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	cs, err := db.Checksum("missing.md")
	if err != nil || cs != "" {
		t.Errorf("Checksum(missing) = %q, %v", cs, err)
	}
}

func TestListAndTotals(t *testing.T) {
	db := testDB(t)
	for _, r := range []DayRow{
		{Path: "a.md", Date: "2024-01-01", Minutes: 60, Entries: 1},
		{Path: "b.md", Date: "2024-01-03", Minutes: 30, Entries: 2},
		{Path: "c.md", Date: "2024-01-02", Minutes: 15, Entries: 1},
	} {
		r.UpdatedAt = time.Now()
		if err := db.Upsert(r); err != nil {
			t.Fatal(err)
		}
	}

	days, err := db.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(days) != 2 || days[0].Path != "b.md" || days[1].Path != "c.md" {
		t.Errorf("List(2) = %+v", days)
	}
	all, _ := db.List(0)
	if len(all) != 3 {
		t.Errorf("List(0) = %d rows, want 3", len(all))
	}

	tot, err := db.Totals()
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if tot != (Totals{Days: 3, Entries: 4, Minutes: 105}) {
		t.Errorf("totals = %+v", tot)
	}
}

func TestSync_IndexesAndRemovesStale(t *testing.T) {
	root := testutil.TestRoot(t)
	db := testDB(t)
	testutil.WriteDay(t, root, "2024-01-15.md", "- 09:00-10:30 acme: planning")
	testutil.WriteDay(t, root, "jan/16.md", "---", "date: 2024-01-16", "---", "- 10:00-10:45 a: b", "- 11:00-11:15 a: c")
	testutil.WriteDay(t, root, "notes.txt", "- 09:00-17:00 ignored: yes")

	if err := Sync(db, root, testutil.Logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	first, err := db.Get("2024-01-15.md")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.Date != "2024-01-15" || first.Minutes != 90 || first.Entries != 1 {
		t.Errorf("first = %+v", first)
	}
	second, err := db.Get(filepath.Join("jan", "16.md"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second.Date != "2024-01-16" || second.Minutes != 60 {
		t.Errorf("second = %+v", second)
	}
	if _, err := db.Get("notes.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("non-day file indexed")
	}

	if err := os.Remove(filepath.Join(root, "2024-01-15.md")); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, root, testutil.Logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, err := db.Get("2024-01-15.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("stale day not removed")
	}
}

func TestSync_SkipsUnchanged(t *testing.T) {
	root := testutil.TestRoot(t)
	db := testDB(t)
	testutil.WriteDay(t, root, "d.md", "- 09:00-10:00 a: b")
	if err := Sync(db, root, testutil.Logger()); err != nil {
		t.Fatal(err)
	}
	before, _ := db.Get("d.md")

	time.Sleep(10 * time.Millisecond)
	if err := Sync(db, root, testutil.Logger()); err != nil {
		t.Fatal(err)
	}
	after, _ := db.Get("d.md")
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("unchanged day re-indexed: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestIndexFile_ReportsChange(t *testing.T) {
	root := testutil.TestRoot(t)
	db := testDB(t)
	testutil.WriteDay(t, root, "d.md", "- 09:00-10:00 a: b")

	changed, err := indexFile(db, root, "d.md")
	if err != nil || !changed {
		t.Fatalf("first index = %v, %v; want true, nil", changed, err)
	}
	before, err := db.Get("d.md")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	changed, err = indexFile(db, root, "d.md")
	if err != nil || changed {
		t.Fatalf("same content = %v, %v; want false, nil", changed, err)
	}
	after, _ := db.Get("d.md")
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("unchanged day rewritten: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}

	testutil.WriteDay(t, root, "d.md", "- 09:00-11:00 a: b")
	changed, err = indexFile(db, root, "d.md")
	if err != nil || !changed {
		t.Fatalf("new content = %v, %v; want true, nil", changed, err)
	}
	if got, _ := db.Get("d.md"); got.Minutes != 120 {
		t.Errorf("minutes = %d, want 120", got.Minutes)
	}
}
