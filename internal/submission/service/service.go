// Package service owns the submission creation flows: the manual form flow
// writing to the legacy store and the file-upload flow writing to the
// document store. Both allocate the number and access token at creation
// time; neither is ever reallocated except by the duplicate repair pass.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/constructoai/backoffice/internal/clock"
	"github.com/constructoai/backoffice/internal/config"
	"github.com/constructoai/backoffice/internal/store/document"
	"github.com/constructoai/backoffice/internal/store/legacy"
	"github.com/constructoai/backoffice/internal/submission/domain"
	"github.com/constructoai/backoffice/internal/submission/numbering"
	"github.com/constructoai/backoffice/internal/submission/tokens"
	"github.com/constructoai/backoffice/pkg/db"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// createAttempts bounds the retry loop when a freshly allocated number
// collides inside the owning store.
const createAttempts = 3

type CreateLegacyRequest struct {
	ClientName  string          `json:"client_name"`
	ProjectName string          `json:"project_name"`
	Amount      float64         `json:"amount"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type CreateUploadRequest struct {
	ClientName  string
	ClientEmail string
	ClientPhone string
	ProjectName string
	Amount      float64
	FileName    string
	Data        []byte
	ClientIP    string
}

type Params struct {
	fx.In

	Legacy    *legacy.Store
	Documents *document.Store
	Allocator *numbering.Allocator
	NewToken  tokens.Generator
	Clock     clock.Clock
	Cfg       config.Config
	Log       *zap.Logger
}

type Service struct {
	legacy    *legacy.Store
	documents *document.Store
	allocator *numbering.Allocator
	newToken  tokens.Generator
	clock     clock.Clock
	cfg       config.Config
	log       *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		legacy:    p.Legacy,
		documents: p.Documents,
		allocator: p.Allocator,
		newToken:  p.NewToken,
		clock:     p.Clock,
		cfg:       p.Cfg,
		log:       p.Log.Named("submission.service"),
	}
}

// CreateLegacy persists a manually entered submission in the legacy store.
func (s *Service) CreateLegacy(ctx context.Context, req CreateLegacyRequest) (domain.Submission, error) {
	clientName := strings.TrimSpace(req.ClientName)
	if clientName == "" {
		return domain.Submission{}, domain.ErrInvalidClientName
	}

	token := s.newToken()
	link := s.cfg.PublicLink(token)
	now := s.clock.Now()

	var row legacy.Submission
	err := s.withFreshNumber(ctx, func(number string) error {
		row = legacy.Submission{
			Number:      number,
			ClientName:  clientName,
			ProjectName: strings.TrimSpace(req.ProjectName),
			AmountTotal: req.Amount,
			Status:      domain.StatusPending,
			Token:       &token,
			Payload:     datatypes.JSON(req.Payload),
			PublicLink:  &link,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.legacy.Insert(ctx, &row)
	})
	if err != nil {
		return domain.Submission{}, err
	}

	s.log.Info("legacy submission created",
		zap.String("number", row.Number),
		zap.String("client", clientName),
	)
	return s.resolveToken(ctx, s.legacy, token)
}

// CreateUpload saves the uploaded file to disk and persists a document
// submission referencing it. HTML uploads additionally keep an inline text
// copy for preview rendering.
func (s *Service) CreateUpload(ctx context.Context, req CreateUploadRequest) (domain.Submission, error) {
	clientName := strings.TrimSpace(req.ClientName)
	if clientName == "" {
		return domain.Submission{}, domain.ErrInvalidClientName
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" || len(req.Data) == 0 {
		return domain.Submission{}, domain.ErrInvalidFile
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	now := s.clock.Now()

	path, err := s.saveToDisk(fileName, ext, req.Data, now)
	if err != nil {
		return domain.Submission{}, err
	}

	htmlPreview := ""
	if ext == ".html" || ext == ".htm" {
		htmlPreview = string(req.Data)
	}

	token := s.newToken()
	link := s.cfg.PublicLink(token)

	var row document.Submission
	err = s.withFreshNumber(ctx, func(number string) error {
		row = document.Submission{
			Number:      number,
			ClientName:  clientName,
			ClientEmail: strings.TrimSpace(req.ClientEmail),
			ClientPhone: strings.TrimSpace(req.ClientPhone),
			ProjectName: strings.TrimSpace(req.ProjectName),
			AmountTotal: req.Amount,
			FileType:    ext,
			FileName:    fileName,
			FilePath:    path,
			FileSize:    int64(len(req.Data)),
			FileData:    req.Data,
			HTMLPreview: htmlPreview,
			Token:       &token,
			Status:      domain.StatusPending,
			ClientIP:    req.ClientIP,
			PublicLink:  link,
			Metadata: datatypes.JSONMap{
				"original_name": fileName,
				"mime_type":     mime.TypeByExtension(ext),
				"category":      fileCategory(ext),
				"upload_time":   now.Format("2006-01-02T15:04:05Z07:00"),
			},
			CreatedAt: now,
		}
		return s.documents.Insert(ctx, &row)
	})
	if err != nil {
		return domain.Submission{}, err
	}

	s.log.Info("document submission created",
		zap.String("number", row.Number),
		zap.String("client", clientName),
		zap.String("file", fileName),
	)
	return s.resolveToken(ctx, s.documents, token)
}

// FileByToken returns the uploaded file behind a document submission token.
// Legacy submissions carry no file, so their tokens yield not-found here.
func (s *Service) FileByToken(ctx context.Context, token string) (*document.FileContent, error) {
	return s.documents.FileByToken(ctx, token)
}

// Delete routes a hard delete to the owning store.
func (s *Service) Delete(ctx context.Context, origin domain.Origin, id int64) error {
	switch origin {
	case domain.OriginLegacy:
		return s.legacy.Delete(ctx, id)
	case domain.OriginDocument:
		return s.documents.Delete(ctx, id)
	default:
		return domain.ErrNotFound
	}
}

// DeleteByRef deletes via the merged display identity ("H12" or "12").
func (s *Service) DeleteByRef(ctx context.Context, ref string) error {
	origin, id, err := ParseRef(ref)
	if err != nil {
		return err
	}
	return s.Delete(ctx, origin, id)
}

// ParseRef splits a merged display identity into origin and store-local id.
func ParseRef(ref string) (domain.Origin, int64, error) {
	ref = strings.TrimSpace(ref)
	origin := domain.OriginDocument
	if strings.HasPrefix(ref, "H") {
		origin = domain.OriginLegacy
		ref = ref[1:]
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, domain.ErrNotFound
	}
	return origin, id, nil
}

// withFreshNumber allocates a number and runs the insert, retrying with a
// new allocation when the number collides inside the owning store. The
// cross-store duplicate case cannot be caught here; the repair pass handles
// it as input.
func (s *Service) withFreshNumber(ctx context.Context, insert func(number string) error) error {
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		number, err := s.allocator.Next(ctx)
		if err != nil {
			return err
		}

		err = insert(number)
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return err
		}

		s.log.Warn("allocated number already taken, retrying",
			zap.String("number", number),
			zap.Int("attempt", attempt+1),
		)
		lastErr = err
	}
	return fmt.Errorf("submission number allocation exhausted retries: %w", lastErr)
}

func (s *Service) resolveToken(ctx context.Context, store domain.Store, token string) (domain.Submission, error) {
	sub, err := store.FindByToken(ctx, token)
	if err != nil {
		return domain.Submission{}, err
	}
	return *sub, nil
}

// saveToDisk writes the upload under the files directory with a collision
// free, slug-safe name.
func (s *Service) saveToDisk(fileName, ext string, data []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(s.cfg.FilesDir, 0o755); err != nil {
		return "", fmt.Errorf("create files directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(fileName), ext)
	safe := fmt.Sprintf("%s_%s%s", now.Format("20060102_150405"), slug.Make(base), ext)
	path := filepath.Join(s.cfg.FilesDir, safe)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

func fileCategory(ext string) string {
	switch ext {
	case ".pdf":
		return "PDF"
	case ".html", ".htm":
		return "HTML"
	case ".doc", ".docx":
		return "Word"
	case ".xls", ".xlsx", ".csv":
		return "Excel"
	case ".png", ".jpg", ".jpeg", ".gif":
		return "Image"
	default:
		return "Other"
	}
}
