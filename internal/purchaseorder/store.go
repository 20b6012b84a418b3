package purchaseorder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/constructoai/backoffice/internal/config"
	"github.com/constructoai/backoffice/internal/observability/logger"
	"github.com/constructoai/backoffice/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("purchase order not found")
	ErrStoreUnavailable = errors.New("purchase order store unavailable")
	ErrMissingNumber    = errors.New("purchase order number required")
)

var numberPattern = regexp.MustCompile(`^BC-(\d{4})-(\d{3,})$`)

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

type StoreParams struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

func NewStore(p StoreParams) (*Store, error) {
	conn, err := db.Open(p.Cfg.PurchaseOrderStorePath, logger.NewGormLogger())
	if err != nil {
		return nil, fmt.Errorf("purchase order store: %w", err)
	}
	return NewStoreWithDB(conn, p.Log), nil
}

// NewStoreWithDB wraps an already-open connection; used by tests.
func NewStoreWithDB(conn *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: conn, log: log.Named("purchaseorder.store")}
}

func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(&Order{}, &Item{}, &Attachment{})
	if err != nil {
		return fmt.Errorf("migrate purchase order store: %w", err)
	}
	return nil
}

// NextNumber scans the given year's orders and returns max sequence + 1.
// Malformed numbers in the scan are skipped.
func (s *Store) NextNumber(ctx context.Context, year int) (string, error) {
	var numbers []string
	err := s.db.WithContext(ctx).Model(&Order{}).
		Where("number LIKE ?", fmt.Sprintf("BC-%04d-%%", year)).
		Pluck("number", &numbers).Error
	if err != nil {
		return "", unavailable(err)
	}

	maxSeq := 0
	for _, number := range numbers {
		m := numberPattern.FindStringSubmatch(number)
		if m == nil {
			s.log.Warn("malformed purchase order number in store", zap.String("number", number))
			continue
		}
		seq, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return fmt.Sprintf("BC-%04d-%03d", year, maxSeq+1), nil
}

// Save upserts by number. Existing items and attachments are replaced
// wholesale inside one transaction.
func (s *Store) Save(ctx context.Context, order *Order) error {
	if order.Number == "" {
		return ErrMissingNumber
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Order
		err := tx.Where("number = ?", order.Number).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(order).Error
		case err != nil:
			return err
		}

		order.ID = existing.ID
		order.CreatedAt = existing.CreatedAt
		if err := tx.Where("order_id = ?", existing.ID).Delete(&Item{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", existing.ID).Delete(&Attachment{}).Error; err != nil {
			return err
		}
		for i := range order.Items {
			order.Items[i].ID = 0
			order.Items[i].OrderID = existing.ID
		}
		for i := range order.Attachments {
			order.Attachments[i].ID = 0
			order.Attachments[i].OrderID = existing.ID
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(order).Error
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, number string) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("Attachments").
		Where("number = ?", number).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return &order, nil
}

func (s *Store) List(ctx context.Context) ([]Summary, error) {
	var rows []Order
	err := s.db.WithContext(ctx).
		Select("number", "supplier_name", "project_name", "total", "status", "created_at", "updated_at").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable(err)
	}

	summaries := make([]Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, Summary{
			Number:       row.Number,
			SupplierName: row.SupplierName,
			ProjectName:  row.ProjectName,
			Total:        row.Total,
			Status:       row.Status,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		})
	}
	return summaries, nil
}

func (s *Store) Delete(ctx context.Context, number string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order Order
		err := tx.Where("number = ?", number).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&Item{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
