// Package document adapts the newer multi-format submission store. Rows hold
// an uploaded file (path on disk plus optional inline blob), its descriptor,
// and, for HTML uploads, an inline text copy.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
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

// Submission is the document store row shape.
type Submission struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	Number      string            `gorm:"column:number;uniqueIndex;not null" json:"number"`
	ClientName  string            `gorm:"column:client_name;not null" json:"client_name"`
	ClientEmail string            `gorm:"column:client_email" json:"client_email,omitempty"`
	ClientPhone string            `gorm:"column:client_phone" json:"client_phone,omitempty"`
	ProjectName string            `gorm:"column:project_name" json:"project_name"`
	AmountTotal float64           `gorm:"column:amount_total" json:"amount_total"`
	FileType    string            `gorm:"column:file_type;not null" json:"file_type"`
	FileName    string            `gorm:"column:file_name;not null" json:"file_name"`
	FilePath    string            `gorm:"column:file_path" json:"file_path,omitempty"`
	FileSize    int64             `gorm:"column:file_size" json:"file_size,omitempty"`
	FileData    []byte            `gorm:"column:file_data" json:"-"`
	HTMLPreview string            `gorm:"column:html_preview" json:"html_preview,omitempty"`
	Token       *string           `gorm:"column:token;uniqueIndex" json:"token,omitempty"`
	Status      domain.Status     `gorm:"column:status;default:pending" json:"status"`
	Comment     string            `gorm:"column:client_comment" json:"client_comment,omitempty"`
	ClientIP    string            `gorm:"column:client_ip" json:"-"`
	PublicLink  string            `gorm:"column:public_link" json:"public_link,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"column:created_at" json:"created_at"`
	SentAt      *time.Time        `gorm:"column:sent_at" json:"sent_at,omitempty"`
	DecidedAt   *time.Time        `gorm:"column:decided_at" json:"decided_at,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
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
	conn, err := db.Open(p.Cfg.DocumentStorePath, logger.NewGormLogger())
	if err != nil {
		return nil, fmt.Errorf("document store: %w", err)
	}
	return NewWithDB(conn, p.Cfg, p.Log), nil
}

// NewWithDB wraps an already-open connection; used by tests.
func NewWithDB(conn *gorm.DB, cfg config.Config, log *zap.Logger) *Store {
	return &Store{
		db:  conn,
		cfg: cfg,
		log: log.Named("store.document"),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Submission{}); err != nil {
		return fmt.Errorf("migrate document store: %w", err)
	}
	return nil
}

func (s *Store) Origin() domain.Origin {
	return domain.OriginDocument
}

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
	var rows []Submission
	err := s.db.WithContext(ctx).
		Omit("file_data", "html_preview").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable(err)
	}

	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
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

	sub := toSubmission(row)
	return &sub, nil
}

// FileContent is the retrievable uploaded file for a submission.
type FileContent struct {
	Name string
	Type string
	Data []byte
}

// FileByToken returns the uploaded file behind the token. The on-disk copy is
// authoritative; when it is gone the inline blob kept at upload time serves as
// the recovery copy.
func (s *Store) FileByToken(ctx context.Context, token string) (*FileContent, error) {
	var row Submission
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}

	content := &FileContent{Name: row.FileName, Type: row.FileType}

	if row.FilePath != "" {
		data, readErr := os.ReadFile(row.FilePath)
		if readErr == nil {
			content.Data = data
			return content, nil
		}
		s.log.Warn("upload missing on disk, falling back to inline copy",
			zap.String("path", row.FilePath),
			zap.Error(readErr),
		)
	}

	if len(row.FileData) == 0 {
		return nil, domain.ErrNotFound
	}
	content.Data = row.FileData
	return content, nil
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

	record := toRecord(row)
	return &record, nil
}

func (s *Store) UpdateStatusByToken(ctx context.Context, token string, status domain.Status, decidedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&Submission{}).
		Where("token = ?", token).
		Updates(map[string]any{
			"status":     status,
			"decided_at": decidedAt,
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

func toRecord(row Submission) domain.Record {
	return domain.Record{
		Origin:      domain.OriginDocument,
		ID:          row.ID,
		Number:      row.Number,
		Token:       deref(row.Token),
		Status:      normalizeStatus(row.Status),
		ClientName:  row.ClientName,
		ClientEmail: row.ClientEmail,
		ClientPhone: row.ClientPhone,
		ProjectName: row.ProjectName,
		Amount:      row.AmountTotal,
		FileType:    row.FileType,
		FileName:    row.FileName,
		PublicLink:  row.PublicLink,
		CreatedAt:   row.CreatedAt,
		DecidedAt:   row.DecidedAt,
	}
}

func toSubmission(row Submission) domain.Submission {
	return domain.Submission{
		Origin:        domain.OriginDocument,
		ID:            row.ID,
		Number:        row.Number,
		Token:         deref(row.Token),
		Status:        normalizeStatus(row.Status),
		ClientName:    row.ClientName,
		ClientEmail:   row.ClientEmail,
		ClientPhone:   row.ClientPhone,
		ProjectName:   row.ProjectName,
		Amount:        row.AmountTotal,
		FileType:      row.FileType,
		FileName:      row.FileName,
		FilePath:      row.FilePath,
		FileSize:      row.FileSize,
		HTMLPreview:   row.HTMLPreview,
		PublicLink:    row.PublicLink,
		ClientComment: row.Comment,
		CreatedAt:     row.CreatedAt,
		DecidedAt:     row.DecidedAt,
	}
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
	return fmt.Errorf("%w: document: %v", domain.ErrStoreUnavailable, err)
}

var _ domain.Store = (*Store)(nil)
