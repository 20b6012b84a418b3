package render

import (
	"testing"

	"github.com/constructoai/backoffice/internal/company"
	"github.com/constructoai/backoffice/internal/purchaseorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLPreviewContainsOrderContent(t *testing.T) {
	order := &purchaseorder.Order{
		Number:       "BC-2025-007",
		OrderDate:    "2025-05-10",
		SupplierName: "Matco",
		ClientName:   "Tremblay",
		ProjectName:  "Toiture",
		Items: []purchaseorder.Item{
			{Position: 1, Title: "2x4x8", Quantity: 100, Unit: "un", UnitPrice: 4.25, Total: 425},
		},
		Subtotal: 425,
		TPS:      21.25,
		TVQ:      42.39,
		Total:    488.64,
	}

	page, err := NewRenderer().HTML(order, company.DefaultProfile())
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "Bon de commande BC-2025-007")
	assert.Contains(t, html, "Matco")
	assert.Contains(t, html, "2x4x8")
	assert.Contains(t, html, "488.64 $")
	assert.Contains(t, html, "Construction Héritage")
}

func TestHTMLPreviewEscapesUserContent(t *testing.T) {
	order := &purchaseorder.Order{
		Number:       "BC-2025-001",
		SupplierName: "<script>alert(1)</script>",
	}

	page, err := NewRenderer().HTML(order, company.DefaultProfile())
	require.NoError(t, err)

	html := string(page)
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
}
