package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/tempo/internal/classify"
	"github.com/starford/tempo/internal/summary"
)

// Sync walks root and brings the ledger up to date:
//   - new/changed day files are parsed and upserted
//   - days removed from disk are deleted from the ledger
func Sync(db *DB, root string, logger *slog.Logger) error {
	disk, err := scan(root)
	if err != nil {
		return err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	for rel, cs := range disk {
		if checksums[rel] == cs {
			continue
		}
		if changed, err := indexFile(db, root, rel); err != nil {
			logger.Warn("sync: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else if changed {
			logger.Debug("sync: indexed", slog.String("path", rel))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.Delete(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}
	return nil
}

// scan returns rel path -> checksum for every day file below root.
func scan(root string) (map[string]string, error) {
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !classify.HasExtension(p) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out[rel] = sum(data)
		return nil
	})
	return out, err
}

// indexFile parses the day file rel and upserts its totals. Content whose
// checksum matches the stored row is left alone and reported as unchanged.
func indexFile(db *DB, root, rel string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return false, err
	}
	cs := sum(data)
	stored, err := db.Checksum(rel)
	if err != nil {
		return false, err
	}
	if stored == cs {
		return false, nil
	}
	day := summary.Parse(string(data))
	date := day.Date
	if date == "" {
		date = strings.TrimSuffix(filepath.Base(rel), "."+classify.Extension)
	}
	err = db.Upsert(DayRow{
		Path:      rel,
		Date:      date,
		Checksum:  cs,
		Minutes:   int(day.Total() / time.Minute),
		Entries:   len(day.Entries),
		UpdatedAt: time.Now().UTC(),
	})
	return err == nil, err
}

// sum returns the hex-encoded SHA-256 digest of data.
func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
