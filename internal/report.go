package internal

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/starford/tempo/internal/ledger"
	"github.com/starford/tempo/internal/summary"
)

// Report syncs the ledger with the tracking root and writes the latest
// limit days followed by the overall totals. When paths are given only those
// day files are listed and the totals cover them alone.
func Report(cfg *Config, w io.Writer, limit int, paths []string, logger *slog.Logger) error {
	if !cfg.Ledger.Enabled() {
		return fmt.Errorf("report: ledger.path is not configured")
	}
	db, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer db.Close()

	if err := ledger.Sync(db, cfg.Tracking.Root, logger); err != nil {
		return fmt.Errorf("report: sync: %w", err)
	}

	var (
		days   []ledger.DayRow
		totals ledger.Totals
	)
	if len(paths) > 0 {
		days, err = lookupDays(db, cfg.Tracking.Root, paths)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		for _, d := range days {
			totals.Days++
			totals.Entries += d.Entries
			totals.Minutes += d.Minutes
		}
	} else {
		if days, err = db.List(limit); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		if totals, err = db.Totals(); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tENTRIES\tTIME\tFILE")
	for _, d := range days {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", d.Date, d.Entries, summary.Clock(time.Duration(d.Minutes)*time.Minute), d.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\n%d days, %d entries, %s total\n",
		totals.Days, totals.Entries, summary.Clock(time.Duration(totals.Minutes)*time.Minute))
	return err
}

// lookupDays fetches the ledger rows for paths, given absolute or relative
// to root.
func lookupDays(db *ledger.DB, root string, paths []string) ([]ledger.DayRow, error) {
	out := make([]ledger.DayRow, 0, len(paths))
	for _, p := range paths {
		rel := p
		if filepath.IsAbs(p) {
			r, err := filepath.Rel(root, p)
			if err != nil {
				return nil, err
			}
			rel = r
		}
		d, err := db.Get(filepath.Clean(rel))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, *d)
	}
	return out, nil
}
