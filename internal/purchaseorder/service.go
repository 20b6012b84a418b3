package purchaseorder

import (
	"context"
	"math"

	"github.com/constructoai/backoffice/internal/clock"
	"github.com/constructoai/backoffice/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Store    *Store
	Settings *config.SettingsHolder
	Clock    clock.Clock
	Log      *zap.Logger
}

type Service struct {
	store    *Store
	settings *config.SettingsHolder
	clock    clock.Clock
	log      *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		store:    p.Store,
		settings: p.Settings,
		clock:    p.Clock,
		log:      p.Log.Named("purchaseorder.service"),
	}
}

// NextNumber allocates the next BC number for the current year.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	return s.store.NextNumber(ctx, s.clock.Now().Year())
}

// Save recomputes line and tax totals, then upserts. Orders without a number
// get one allocated.
func (s *Service) Save(ctx context.Context, order *Order) error {
	if order.Number == "" {
		number, err := s.NextNumber(ctx)
		if err != nil {
			return err
		}
		order.Number = number
	}
	if order.Status == "" {
		order.Status = StatusDraft
	}
	if order.OrderDate == "" {
		order.OrderDate = s.clock.Now().Format("2006-01-02")
	}
	settings := s.settings.Get()
	if order.ValidityTerms == "" {
		order.ValidityTerms = settings.DefaultValidityTerms
	}
	if order.PaymentTerms == "" {
		order.PaymentTerms = settings.DefaultPaymentTerms
	}

	s.computeTotals(order)

	if err := s.store.Save(ctx, order); err != nil {
		return err
	}
	s.log.Info("purchase order saved",
		zap.String("number", order.Number),
		zap.Float64("total", order.Total),
	)
	return nil
}

func (s *Service) Load(ctx context.Context, number string) (*Order, error) {
	return s.store.Load(ctx, number)
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.store.List(ctx)
}

func (s *Service) Delete(ctx context.Context, number string) error {
	return s.store.Delete(ctx, number)
}

// Duplicate copies an existing order under a fresh number with its dates
// reset and signatures cleared.
func (s *Service) Duplicate(ctx context.Context, sourceNumber string) (*Order, error) {
	source, err := s.store.Load(ctx, sourceNumber)
	if err != nil {
		return nil, err
	}

	number, err := s.NextNumber(ctx)
	if err != nil {
		return nil, err
	}

	copied := *source
	copied.ID = 0
	copied.Number = number
	copied.OrderDate = s.clock.Now().Format("2006-01-02")
	copied.Status = StatusDraft
	copied.AuthorSignature = ""
	copied.AuthorSignedOn = ""
	copied.SupplierSignature = ""
	copied.SupplierSignedOn = ""
	copied.CreatedAt = s.clock.Now()
	copied.UpdatedAt = copied.CreatedAt

	copied.Items = make([]Item, len(source.Items))
	for i, item := range source.Items {
		item.ID = 0
		item.OrderID = 0
		copied.Items[i] = item
	}
	copied.Attachments = make([]Attachment, len(source.Attachments))
	for i, att := range source.Attachments {
		att.ID = 0
		att.OrderID = 0
		copied.Attachments[i] = att
	}

	if err := s.Save(ctx, &copied); err != nil {
		return nil, err
	}
	s.log.Info("purchase order duplicated",
		zap.String("source", sourceNumber),
		zap.String("number", copied.Number),
	)
	return &copied, nil
}

// computeTotals derives line totals from quantity and unit price, then the
// tax lines from the configured TPS and TVQ rates.
func (s *Service) computeTotals(order *Order) {
	settings := s.settings.Get()

	subtotal := 0.0
	for i := range order.Items {
		item := &order.Items[i]
		item.Total = round2(item.Quantity * item.UnitPrice)
		subtotal += item.Total
	}

	order.Subtotal = round2(subtotal)
	order.TPS = round2(subtotal * settings.TPSRate)
	order.TVQ = round2(subtotal * settings.TVQRate)
	order.Total = round2(order.Subtotal + order.TPS + order.TVQ)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
