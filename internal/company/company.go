// Package company holds the single-row company profile used on public pages
// and purchase order documents. The profile is stored as a JSON blob so new
// fields never require a schema change.
package company

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/constructoai/backoffice/internal/config"
	"github.com/constructoai/backoffice/internal/observability/logger"
	"github.com/constructoai/backoffice/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrStoreUnavailable = errors.New("company store unavailable")

// Profile is the company identity block.
type Profile struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`

	OfficePhone string `json:"office_phone"`
	CellPhone   string `json:"cell_phone"`
	Email       string `json:"email"`
	Website     string `json:"website"`

	RBQ       string `json:"rbq"`
	NEQ       string `json:"neq"`
	TPSNumber string `json:"tps_number"`
	TVQNumber string `json:"tvq_number"`

	ContactName  string `json:"contact_name"`
	ContactTitle string `json:"contact_title"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`

	LogoBase64     string `json:"logo_base64"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	AccentColor    string `json:"accent_color"`

	Slogan       string `json:"slogan"`
	PaymentTerms string `json:"payment_terms"`
	Warranties   string `json:"warranties"`
	ValidityDays string `json:"validity_days"`

	AdministrationRate float64 `json:"administration_rate"`
	ContingencyRate    float64 `json:"contingency_rate"`
	ProfitRate         float64 `json:"profit_rate"`
}

// DefaultProfile is returned until a profile has been saved.
func DefaultProfile() Profile {
	return Profile{
		Name:               "Construction Héritage",
		Address:            "129 Rue Poirier",
		City:               "Saint-Jean-sur-Richelieu",
		Province:           "Québec",
		PostalCode:         "J3B 4E9",
		OfficePhone:        "438-524-9193",
		CellPhone:          "514-983-7492",
		Email:              "info@constructionheritage.ca",
		Website:            "www.constructionheritage.ca",
		RBQ:                "5788-9784-01",
		NEQ:                "1163835623",
		TPSNumber:          "850370164RT0001",
		TVQNumber:          "1212199610TQ0002",
		PrimaryColor:       "#374151",
		SecondaryColor:     "#4b5563",
		AccentColor:        "#3b82f6",
		PaymentTerms:       "30% à la signature, 35% début des travaux, paiements progressifs selon avancement, 35% retenue finale",
		Warranties:         "1 an main-d'œuvre, 5 ans toiture, 10 ans structure, selon normes GCR",
		ValidityDays:       "30",
		AdministrationRate: 3.0,
		ContingencyRate:    12.0,
		ProfitRate:         15.0,
	}
}

// FormattedInfo is the display projection consumed by document rendering.
type FormattedInfo struct {
	Header       string `json:"header"`
	AddressBlock string `json:"address_block"`
	PhoneBlock   string `json:"phone_block"`
	Email        string `json:"email"`
	LegalBlock   string `json:"legal_block"`
	TaxBlock     string `json:"tax_block"`
}

// Formatted builds the display blocks used by purchase order documents.
func (p Profile) Formatted() FormattedInfo {
	phone := "T: " + p.OfficePhone
	if p.CellPhone != "" {
		phone += " | C: " + p.CellPhone
	}
	return FormattedInfo{
		Header:       p.Name,
		AddressBlock: fmt.Sprintf("%s, %s (%s) %s", p.Address, p.City, p.Province, p.PostalCode),
		PhoneBlock:   phone,
		Email:        p.Email,
		LegalBlock:   fmt.Sprintf("RBQ : %s | NEQ : %s", p.RBQ, p.NEQ),
		TaxBlock:     fmt.Sprintf("TPS: %s | TVQ: %s", p.TPSNumber, p.TVQNumber),
	}
}

type row struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Payload   string    `gorm:"column:payload;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (row) TableName() string {
	return "company_profile"
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

func New(p Params) (*Store, error) {
	conn, err := db.Open(p.Cfg.CompanyStorePath, logger.NewGormLogger())
	if err != nil {
		return nil, fmt.Errorf("company store: %w", err)
	}
	return NewWithDB(conn, p.Log), nil
}

// NewWithDB wraps an already-open connection; used by tests.
func NewWithDB(conn *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: conn, log: log.Named("company.store")}
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&row{}); err != nil {
		return fmt.Errorf("migrate company store: %w", err)
	}
	return nil
}

// Get returns the saved profile, or the defaults when none has been saved
// or the saved payload cannot be decoded.
func (s *Store) Get(ctx context.Context) (Profile, error) {
	var r row
	err := s.db.WithContext(ctx).Order("id DESC").First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultProfile(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var profile Profile
	if err := json.Unmarshal([]byte(r.Payload), &profile); err != nil {
		s.log.Warn("stored company profile is not valid JSON, using defaults", zap.Error(err))
		return DefaultProfile(), nil
	}
	return profile, nil
}

// Save upserts the single profile row.
func (s *Store) Save(ctx context.Context, profile Profile) error {
	if strings.TrimSpace(profile.Name) == "" {
		return errors.New("company name required")
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode company profile: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r row
		findErr := tx.Order("id DESC").First(&r).Error
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return tx.Create(&row{Payload: string(payload)}).Error
		}
		if findErr != nil {
			return findErr
		}
		return tx.Model(&r).Update("payload", string(payload)).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.log.Info("company profile saved", zap.String("name", profile.Name))
	return nil
}

var Module = fx.Module("company", fx.Provide(New))
