package internal

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/tempo/internal/apperr"
	"github.com/starford/tempo/internal/testutil"
)

func TestReport(t *testing.T) {
	root := testutil.TestRoot(t)
	testutil.WriteDay(t, root, "2024-01-15.md", "- 09:00-10:30 acme: planning", "- 11:00-11:30 ops: deploy")
	testutil.WriteDay(t, root, "2024-01-16.md", "- 09:00-09:45 acme: review")

	cfg := NewDefaultConfig()
	cfg.Tracking.Root = root
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger.db")

	var buf bytes.Buffer
	if err := Report(cfg, &buf, 0, nil, testutil.Logger()); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := buf.String()
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[1], "2024-01-16") {
		t.Errorf("newest day should come first:\n%s", out)
	}
	if !strings.Contains(out, "2 days, 3 entries, 2h 45m total") {
		t.Errorf("unexpected totals:\n%s", out)
	}
}

func TestReport_RequiresLedger(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := Report(cfg, &bytes.Buffer{}, 0, nil, testutil.Logger()); err == nil {
		t.Fatal("report without ledger path should fail")
	}
}

func TestReport_SelectedDays(t *testing.T) {
	root := testutil.TestRoot(t)
	testutil.WriteDay(t, root, "2024-01-15.md", "- 09:00-10:30 acme: planning", "- 11:00-11:30 ops: deploy")
	testutil.WriteDay(t, root, "2024-01-16.md", "- 09:00-09:45 acme: review")

	cfg := NewDefaultConfig()
	cfg.Tracking.Root = root
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger.db")

	var buf bytes.Buffer
	days := []string{filepath.Join(root, "2024-01-15.md")}
	if err := Report(cfg, &buf, 0, days, testutil.Logger()); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "2024-01-16") {
		t.Errorf("unselected day listed:\n%s", out)
	}
	if !strings.Contains(out, "1 days, 2 entries, 2h total") {
		t.Errorf("unexpected totals:\n%s", out)
	}

	err := Report(cfg, &bytes.Buffer{}, 0, []string{"2024-02-01.md"}, testutil.Logger())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
