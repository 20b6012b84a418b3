// Package legacy adapts the older structured submission store. Rows carry a
// JSON payload of line items and client/project sub-objects; the schema has
// no email or phone columns and, in older database files, no public_link
// column either.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/constructoai/backoffice/internal/config"
	"github.com/constructoai/backoffice/internal/observability/logger"
	"github.com/constructoai/backoffice/internal/submission/domain"
	"github.com/constructoai/backoffice/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission is the legacy store row shape.
type Submission struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Number      string         `gorm:"column:number;uniqueIndex;not null" json:"number"`
	ClientName  string         `gorm:"column:client_name;not null" json:"client_name"`
	ProjectName string         `gorm:"column:project_name" json:"project_name"`
	AmountTotal float64        `gorm:"column:amount_total" json:"amount_total"`
	Status      domain.Status  `gorm:"column:status;default:pending" json:"status"`
	Token       *string        `gorm:"column:token;uniqueIndex" json:"token,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	PublicLink  *string        `gorm:"column:public_link" json:"public_link,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Submission) TableName() string {
	return "legacy_submissions"
}

type Store struct {
	db  *gorm.DB
	cfg config.Config
	log *zap.Logger
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

func New(p Params) (*Store, error) {
	conn, err := db.Open(p.Cfg.LegacyStorePath, logger.NewGormLogger())
	if err != nil {
		return nil, fmt.Errorf("legacy store: %w", err)
	}
	return NewWithDB(conn, p.Cfg, p.Log), nil
}

// NewWithDB wraps an already-open connection; used by tests.
func NewWithDB(conn *gorm.DB, cfg config.Config, log *zap.Logger) *Store {
	return &Store{
		db:  conn,
		cfg: cfg,
		log: log.Named("store.legacy"),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Submission{}); err != nil {
		return fmt.Errorf("migrate legacy store: %w", err)
	}
	return nil
}

func (s *Store) Origin() domain.Origin {
	return domain.OriginLegacy
}

// Insert persists a new row. Number and token are assigned by the caller at
// creation time and never reallocated except by the repair pass.
func (s *Store) Insert(ctx context.Context, row *Submission) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return err
		}
		return unavailable(err)
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, s.toRecord(row))
	}
	return records, nil
}

func (s *Store) FindByToken(ctx context.Context, token string) (*domain.Submission, error) {
	var row Submission
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}

	sub := s.toSubmission(row)
	return &sub, nil
}

func (s *Store) FindByNumber(ctx context.Context, number string) (*domain.Record, error) {
	var row Submission
	err := s.db.WithContext(ctx).Where("number = ?", number).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}

	record := s.toRecord(row)
	return &record, nil
}

// UpdateStatusByToken sets the status unconditionally; the legacy schema has
// no decided_at column, so updated_at carries the decision timestamp.
func (s *Store) UpdateStatusByToken(ctx context.Context, token string, status domain.Status, decidedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&Submission{}).
		Where("token = ?", token).
		Updates(map[string]any{
			"status":     status,
			"updated_at": decidedAt,
		})
	if result.Error != nil {
		return false, unavailable(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) UpdateNumber(ctx context.Context, id int64, number string) error {
	result := s.db.WithContext(ctx).Model(&Submission{}).
		Where("id = ?", id).
		Update("number", number)
	if result.Error != nil {
		return unavailable(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) SetTokenIfEmpty(ctx context.Context, id int64, token string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&Submission{}).
		Where("id = ? AND (token IS NULL OR token = '')", id).
		Update("token", token)
	if result.Error != nil {
		return false, unavailable(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&Submission{}, id)
	if result.Error != nil {
		return unavailable(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RestoreBare recreates a minimal legacy row from a token snapshot entry.
// Only number, client, token and created_at survive a restore; the payload
// is gone.
func (s *Store) RestoreBare(ctx context.Context, entry domain.TokenExportEntry) error {
	token := entry.Token
	row := Submission{
		Number:     entry.Number,
		ClientName: entry.Client,
		Token:      &token,
		Status:     domain.StatusPending,
		CreatedAt:  entry.CreatedAt,
		UpdatedAt:  entry.CreatedAt,
	}
	return s.Insert(ctx, &row)
}

// all selects every row. Older database files predate the public_link
// column; the wildcard select tolerates its absence (the field stays empty
// and publicLink computes the fallback).
func (s *Store) all(ctx context.Context) ([]Submission, error) {
	var rows []Submission
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, unavailable(err)
	}
	return rows, nil
}

func (s *Store) toRecord(row Submission) domain.Record {
	record := domain.Record{
		Origin:      domain.OriginLegacy,
		ID:          row.ID,
		Number:      row.Number,
		Token:       deref(row.Token),
		Status:      normalizeStatus(row.Status),
		ClientName:  row.ClientName,
		ProjectName: row.ProjectName,
		Amount:      row.AmountTotal,
		FileType:    ".html",
		FileName:    fmt.Sprintf("Submission_%s.html", row.Number),
		PublicLink:  s.publicLink(row),
		CreatedAt:   row.CreatedAt,
	}
	if record.Status.Decided() && !row.UpdatedAt.IsZero() {
		decidedAt := row.UpdatedAt
		record.DecidedAt = &decidedAt
	}
	return record
}

func (s *Store) toSubmission(row Submission) domain.Submission {
	record := s.toRecord(row)
	return domain.Submission{
		Origin:      record.Origin,
		ID:          record.ID,
		Number:      record.Number,
		Token:       record.Token,
		Status:      record.Status,
		ClientName:  record.ClientName,
		ProjectName: record.ProjectName,
		Amount:      record.Amount,
		FileType:    record.FileType,
		FileName:    record.FileName,
		PublicLink:  record.PublicLink,
		Payload:     row.Payload,
		CreatedAt:   record.CreatedAt,
		DecidedAt:   record.DecidedAt,
	}
}

// publicLink prefers the stored link, falling back to a link computed from
// the configured base URL so listings never fail on older files.
func (s *Store) publicLink(row Submission) string {
	if row.PublicLink != nil && *row.PublicLink != "" {
		return *row.PublicLink
	}
	if token := deref(row.Token); token != "" {
		return s.cfg.PublicLink(token)
	}
	return ""
}

func normalizeStatus(status domain.Status) domain.Status {
	if status.Valid() {
		return status
	}
	return domain.StatusPending
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func unavailable(err error) error {
	return fmt.Errorf("%w: legacy: %v", domain.ErrStoreUnavailable, err)
}

var (
	_ domain.Store        = (*Store)(nil)
	_ domain.BareRestorer = (*Store)(nil)
)
