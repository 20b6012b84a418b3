// Package tokenguard keeps issued access tokens alive: it backfills rows
// that never received one and exports/imports the token set so distributed
// client links survive a store reset.
package tokenguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/constructoai/backoffice/internal/clock"
	"github.com/constructoai/backoffice/internal/config"
	"github.com/constructoai/backoffice/internal/submission/domain"
	"github.com/constructoai/backoffice/internal/submission/tokens"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RowError reports one row a batch operation could not process.
type RowError struct {
	Origin domain.Origin `json:"origin"`
	RowID  int64         `json:"row_id,omitempty"`
	Number string        `json:"number,omitempty"`
	Reason string        `json:"reason"`
}

// BackfillReport summarizes a backfill pass.
type BackfillReport struct {
	Generated int        `json:"generated"`
	Failed    []RowError `json:"failed,omitempty"`
}

// ImportReport summarizes a snapshot import.
type ImportReport struct {
	Restored int        `json:"restored"`
	Skipped  int        `json:"skipped"`
	Failed   []RowError `json:"failed,omitempty"`
}

// Statistics describes token coverage per store and the backup inventory.
type Statistics struct {
	Totals       map[domain.Origin]int `json:"totals"`
	WithToken    map[domain.Origin]int `json:"with_token"`
	BackupCount  int                   `json:"backup_count"`
	LatestBackup string                `json:"latest_backup,omitempty"`
}

type Params struct {
	fx.In

	Stores   []domain.Store
	Cfg      config.Config
	Clock    clock.Clock
	NewToken tokens.Generator
	Log      *zap.Logger
}

type Service struct {
	stores   []domain.Store
	cfg      config.Config
	clock    clock.Clock
	newToken tokens.Generator
	log      *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		stores:   p.Stores,
		cfg:      p.Cfg,
		clock:    p.Clock,
		newToken: p.NewToken,
		log:      p.Log.Named("submission.tokenguard"),
	}
}

// BackfillMissingTokens generates a token for every row in either store that
// has none. Existing tokens are never touched; rotating one would invalidate
// a link a client may already hold.
func (s *Service) BackfillMissingTokens(ctx context.Context) (BackfillReport, error) {
	var report BackfillReport
	for _, store := range s.stores {
		records, err := store.ListRecords(ctx)
		if err != nil {
			return report, err
		}

		for _, record := range records {
			if record.Token != "" {
				continue
			}
			set, err := store.SetTokenIfEmpty(ctx, record.ID, s.newToken())
			if err != nil {
				report.Failed = append(report.Failed, RowError{
					Origin: record.Origin,
					RowID:  record.ID,
					Number: record.Number,
					Reason: err.Error(),
				})
				continue
			}
			if set {
				report.Generated++
			}
		}
	}

	if report.Generated > 0 {
		s.log.Info("backfilled missing tokens", zap.Int("generated", report.Generated))
	}
	return report, nil
}

// ExportTokens snapshots every row that currently has a token. The snapshot
// is the disaster-recovery artifact: tokens are otherwise only
// reconstructible by regenerating, which would break distributed links.
func (s *Service) ExportTokens(ctx context.Context) (domain.TokenSnapshot, error) {
	var entries []domain.TokenExportEntry
	for _, store := range s.stores {
		records, err := store.ListRecords(ctx)
		if err != nil {
			return domain.TokenSnapshot{}, err
		}
		for _, record := range records {
			if record.Token == "" {
				continue
			}
			entries = append(entries, domain.TokenExportEntry{
				Number:    record.Number,
				Client:    record.ClientName,
				Token:     record.Token,
				CreatedAt: record.CreatedAt,
				Origin:    record.Origin,
			})
		}
	}

	return domain.TokenSnapshot{
		Date:    s.clock.Now(),
		Count:   len(entries),
		Entries: entries,
	}, nil
}

// ImportTokens restores tokens from a snapshot. A live row with a different
// token keeps it (import never overwrites). Entries without a matching row
// are recreated bare for the legacy store only; document rows cannot be
// rebuilt from the snapshot alone and are skipped. Importing the same
// snapshot twice restores nothing the second time.
func (s *Service) ImportTokens(ctx context.Context, entries []domain.TokenExportEntry) (ImportReport, error) {
	var report ImportReport
	for _, entry := range entries {
		if entry.Number == "" || entry.Token == "" {
			report.Skipped++
			continue
		}

		store := s.storeFor(entry.Origin)
		if store == nil {
			report.Failed = append(report.Failed, RowError{
				Origin: entry.Origin,
				Number: entry.Number,
				Reason: "unknown store origin",
			})
			continue
		}

		record, err := store.FindByNumber(ctx, entry.Number)
		switch {
		case err == nil:
			if record.Token != "" {
				report.Skipped++
				continue
			}
			set, err := store.SetTokenIfEmpty(ctx, record.ID, entry.Token)
			if err != nil {
				report.Failed = append(report.Failed, RowError{
					Origin: entry.Origin,
					RowID:  record.ID,
					Number: entry.Number,
					Reason: err.Error(),
				})
				continue
			}
			if set {
				report.Restored++
			} else {
				report.Skipped++
			}

		case errors.Is(err, domain.ErrNotFound):
			restorer, ok := store.(domain.BareRestorer)
			if !ok {
				report.Skipped++
				continue
			}
			if err := restorer.RestoreBare(ctx, entry); err != nil {
				report.Failed = append(report.Failed, RowError{
					Origin: entry.Origin,
					Number: entry.Number,
					Reason: err.Error(),
				})
				continue
			}
			report.Restored++

		default:
			report.Failed = append(report.Failed, RowError{
				Origin: entry.Origin,
				Number: entry.Number,
				Reason: err.Error(),
			})
		}
	}

	s.log.Info("token import finished",
		zap.Int("restored", report.Restored),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// BackupToFile writes a timestamped snapshot under the backup directory and
// refreshes the always-current tokens_latest.json copy in the data dir.
func (s *Service) BackupToFile(ctx context.Context) (string, error) {
	snapshot, err := s.ExportTokens(ctx)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.cfg.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("tokens_backup_%s.json", s.clock.Now().Format("20060102_150405"))
	path := filepath.Join(s.cfg.BackupDir, name)

	wrapped, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, wrapped, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	bare, err := json.Marshal(snapshot.Entries)
	if err != nil {
		return "", err
	}
	latest := filepath.Join(s.cfg.DataDir, "tokens_latest.json")
	if err := os.WriteFile(latest, bare, 0o644); err != nil {
		return "", fmt.Errorf("write latest snapshot: %w", err)
	}

	s.log.Info("token snapshot written", zap.String("path", path), zap.Int("count", snapshot.Count))
	return path, nil
}

// RestoreFromFile imports a snapshot file. With an empty path the latest
// snapshot is used, falling back to the newest timestamped backup.
func (s *Service) RestoreFromFile(ctx context.Context, path string) (ImportReport, error) {
	if path == "" {
		path = s.newestSnapshotPath()
	}
	if path == "" {
		return ImportReport{}, fmt.Errorf("no token snapshot found")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ImportReport{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	entries, err := DecodeSnapshot(data)
	if err != nil {
		return ImportReport{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return s.ImportTokens(ctx, entries)
}

// CleanOldBackups removes timestamped backups older than keepDays.
func (s *Service) CleanOldBackups(keepDays int) (int, error) {
	if keepDays <= 0 {
		keepDays = s.cfg.BackupKeepDays
	}
	cutoff := s.clock.Now().AddDate(0, 0, -keepDays)

	names, err := s.backupNames()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, name := range names {
		path := filepath.Join(s.cfg.BackupDir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{
		Totals:    map[domain.Origin]int{},
		WithToken: map[domain.Origin]int{},
	}

	for _, store := range s.stores {
		records, err := store.ListRecords(ctx)
		if err != nil {
			return Statistics{}, err
		}
		origin := store.Origin()
		stats.Totals[origin] = len(records)
		for _, record := range records {
			if record.Token != "" {
				stats.WithToken[origin]++
			}
		}
	}

	names, err := s.backupNames()
	if err == nil {
		stats.BackupCount = len(names)
		if len(names) > 0 {
			stats.LatestBackup = names[len(names)-1]
		}
	}
	return stats, nil
}

// DecodeSnapshot accepts both snapshot encodings: the wrapped
// {date, count, tokens} form and a bare entry list.
func DecodeSnapshot(data []byte) ([]domain.TokenExportEntry, error) {
	var wrapped domain.TokenSnapshot
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Entries != nil {
		return wrapped.Entries, nil
	}

	var bare []domain.TokenExportEntry
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("%w: token snapshot: %v", domain.ErrMalformedData, err)
	}
	return bare, nil
}

func (s *Service) storeFor(origin domain.Origin) domain.Store {
	for _, store := range s.stores {
		if store.Origin() == origin {
			return store
		}
	}
	return nil
}

// backupNames returns timestamped backup file names sorted oldest first.
func (s *Service) backupNames() ([]string, error) {
	dirEntries, err := os.ReadDir(s.cfg.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "tokens_backup_") && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// newestSnapshotPath prefers tokens_latest.json, then the newest backup.
func (s *Service) newestSnapshotPath() string {
	latest := filepath.Join(s.cfg.DataDir, "tokens_latest.json")
	if _, err := os.Stat(latest); err == nil {
		return latest
	}

	names, err := s.backupNames()
	if err != nil || len(names) == 0 {
		return ""
	}
	return filepath.Join(s.cfg.BackupDir, names[len(names)-1])
}
