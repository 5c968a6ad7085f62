package reports

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
)

// Archiver gzips reports older than the retention age so the audit
// trail stays compact without losing history.
type Archiver struct {
	cfg    config.ReportsConfig
	logger *logrus.Logger
}

// NewArchiver creates a report archiver.
func NewArchiver(cfg config.ReportsConfig, logger *logrus.Logger) *Archiver {
	return &Archiver{cfg: cfg, logger: logger}
}

// Archive compresses eligible reports in place, replacing each .json
// with a .json.gz. Failures are per-file: one unreadable report does
// not stop the sweep.
func (a *Archiver) Archive() (int, error) {
	if !a.cfg.ArchiveEnabled {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -a.cfg.ArchiveAfterDays)
	entries, err := os.ReadDir(a.cfg.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	archived := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(a.cfg.OutputDir, entry.Name())
		if err := a.compress(path); err != nil {
			a.logger.WithError(err).WithField("report", path).Warn("Report archival failed")
			continue
		}
		archived++
	}

	if archived > 0 {
		a.logger.WithFields(logrus.Fields{
			"archived":   archived,
			"older_than": a.cfg.ArchiveAfterDays,
		}).Info("Old reports archived")
	}
	return archived, nil
}

func (a *Archiver) compress(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer dst.Close()

	level := a.cfg.CompressionLevel
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	gw, err := gzip.NewWriterLevel(dst, level)
	if err != nil {
		return err
	}

	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := gw.Close(); err != nil {
		os.Remove(path + ".gz")
		return err
	}

	return os.Remove(path)
}
