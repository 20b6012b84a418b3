// Package render produces the printable purchase order document.
package render

import (
	"fmt"

	"github.com/constructoai/backoffice/internal/company"
	"github.com/constructoai/backoffice/internal/purchaseorder"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// PDF renders the order as a paginated document with the company letterhead.
func (r *Renderer) PDF(order *purchaseorder.Order, profile company.Profile) ([]byte, error) {
	info := profile.Formatted()

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	// Letterhead
	m.AddRow(8,
		text.NewCol(12, info.Header, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
		}),
	)
	m.AddRow(14,
		col.New(7).Add(
			text.New(info.AddressBlock, props.Text{Size: 9}),
			text.New(info.PhoneBlock, props.Text{Size: 9, Top: 4}),
			text.New(info.Email, props.Text{Size: 9, Top: 8}),
		),
		col.New(5).Add(
			text.New(info.LegalBlock, props.Text{Size: 8, Align: align.Right}),
			text.New(info.TaxBlock, props.Text{Size: 8, Top: 4, Align: align.Right}),
		),
	)

	m.AddRow(12,
		text.NewCol(12, "Bon de commande "+order.Number, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   3,
		}),
	)

	// Supplier and project
	m.AddRow(34,
		col.New(6).Add(
			text.New("Fournisseur", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New(order.SupplierName, props.Text{Size: 9, Top: 5}),
			text.New(order.SupplierAddress, props.Text{Size: 9, Top: 9}),
			text.New(order.SupplierCity+"  "+order.SupplierPostalCode, props.Text{Size: 9, Top: 13}),
			text.New(phoneLine(order), props.Text{Size: 9, Top: 17}),
			text.New("Contact: "+order.SupplierContact, props.Text{Size: 9, Top: 21}),
		),
		col.New(6).Add(
			text.New("Projet", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New(order.ProjectName, props.Text{Size: 9, Top: 5}),
			text.New(order.ProjectLocation, props.Text{Size: 9, Top: 9}),
			text.New("Client: "+order.ClientName, props.Text{Size: 9, Top: 13}),
			text.New("Date: "+order.OrderDate, props.Text{Size: 9, Top: 17}),
			text.New("Réf. soumission: "+order.SubmissionRef, props.Text{Size: 9, Top: 21}),
		),
	)

	// Items table
	m.AddRow(8,
		text.NewCol(5, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qté", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Unité", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Prix unit.", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range order.Items {
		label := item.Title
		if item.Description != "" {
			label += " - " + item.Description
		}
		m.AddRow(8,
			text.NewCol(5, label, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%.2f", item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(1, item.Unit, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(item.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(item.Total), props.Text{Size: 9, Align: align.Right}),
		)
	}

	// Totals
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, "Sous-total", props.Text{Size: 9}),
		text.NewCol(2, money(order.Subtotal), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, "TPS", props.Text{Size: 9}),
		text.NewCol(2, money(order.TPS), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, "TVQ", props.Text{Size: 9}),
		text.NewCol(2, money(order.TVQ), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, money(order.Total), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	// Terms
	if order.ValidityTerms != "" || order.PaymentTerms != "" {
		m.AddRow(16,
			col.New(12).Add(
				text.New("Validité: "+order.ValidityTerms, props.Text{Size: 8}),
				text.New("Paiement: "+order.PaymentTerms, props.Text{Size: 8, Top: 5}),
			),
		)
	}

	// Signatures
	m.AddRow(20,
		col.New(6).Add(
			text.New("Signature (chargé de projet)", props.Text{Size: 8, Top: 8}),
			text.New(signature(order.AuthorSignature, order.AuthorSignedOn), props.Text{Size: 9, Top: 13}),
		),
		col.New(6).Add(
			text.New("Signature (fournisseur)", props.Text{Size: 8, Top: 8}),
			text.New(signature(order.SupplierSignature, order.SupplierSignedOn), props.Text{Size: 9, Top: 13}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render purchase order pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func phoneLine(order *purchaseorder.Order) string {
	line := "T: " + order.SupplierPhone
	if order.SupplierCell != "" {
		line += " | C: " + order.SupplierCell
	}
	return line
}

func signature(name, date string) string {
	if name == "" {
		return "____________________"
	}
	return name + "  " + date
}

func money(v float64) string {
	return fmt.Sprintf("%.2f $", v)
}
