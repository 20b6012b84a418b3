package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/constructoai/backoffice/internal/company"
	"github.com/constructoai/backoffice/internal/purchaseorder"
)

var htmlTemplate = template.Must(template.New("purchase_order").
	Funcs(template.FuncMap{"money": money}).
	Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>Bon de commande {{.Order.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 2em; color: #1f2937; }
h1 { font-size: 1.3em; }
.letterhead { border-bottom: 2px solid {{.Profile.PrimaryColor}}; padding-bottom: 1em; margin-bottom: 1.5em; }
.letterhead .legal { font-size: 0.8em; color: #6b7280; }
.columns { display: flex; gap: 2em; margin-bottom: 1.5em; }
.columns > div { flex: 1; }
table { width: 100%; border-collapse: collapse; margin-bottom: 1em; }
th, td { border: 1px solid #d1d5db; padding: 0.4em 0.6em; font-size: 0.9em; }
th { background: #f3f4f6; text-align: left; }
td.num, th.num { text-align: right; }
.totals { width: 40%; margin-left: auto; }
.totals td { border: none; }
.totals tr:last-child td { font-weight: bold; border-top: 1px solid #1f2937; }
.terms { font-size: 0.8em; color: #4b5563; margin-top: 1.5em; }
.signatures { display: flex; gap: 2em; margin-top: 3em; font-size: 0.85em; }
.signatures > div { flex: 1; border-top: 1px solid #1f2937; padding-top: 0.4em; }
</style>
</head>
<body>
<div class="letterhead">
  <h1>{{.Info.Header}}</h1>
  <div>{{.Info.AddressBlock}}</div>
  <div>{{.Info.PhoneBlock}} &mdash; {{.Info.Email}}</div>
  <div class="legal">{{.Info.LegalBlock}} | {{.Info.TaxBlock}}</div>
</div>

<h2>Bon de commande {{.Order.Number}}</h2>

<div class="columns">
  <div>
    <strong>Fournisseur</strong><br>
    {{.Order.SupplierName}}<br>
    {{.Order.SupplierAddress}}<br>
    {{.Order.SupplierCity}} {{.Order.SupplierPostalCode}}<br>
    {{if .Order.SupplierContact}}Contact: {{.Order.SupplierContact}}{{end}}
  </div>
  <div>
    <strong>Projet</strong><br>
    {{.Order.ProjectName}}<br>
    {{.Order.ProjectLocation}}<br>
    Client: {{.Order.ClientName}}<br>
    Date: {{.Order.OrderDate}}
    {{if .Order.SubmissionRef}}<br>Réf. soumission: {{.Order.SubmissionRef}}{{end}}
  </div>
</div>

<table>
  <thead>
    <tr>
      <th>Description</th>
      <th class="num">Qté</th>
      <th>Unité</th>
      <th class="num">Prix unit.</th>
      <th class="num">Total</th>
    </tr>
  </thead>
  <tbody>
    {{range .Order.Items}}
    <tr>
      <td>{{.Title}}{{if .Description}} - {{.Description}}{{end}}</td>
      <td class="num">{{printf "%.2f" .Quantity}}</td>
      <td>{{.Unit}}</td>
      <td class="num">{{money .UnitPrice}}</td>
      <td class="num">{{money .Total}}</td>
    </tr>
    {{end}}
  </tbody>
</table>

<table class="totals">
  <tr><td>Sous-total</td><td class="num">{{money .Order.Subtotal}}</td></tr>
  <tr><td>TPS</td><td class="num">{{money .Order.TPS}}</td></tr>
  <tr><td>TVQ</td><td class="num">{{money .Order.TVQ}}</td></tr>
  <tr><td>Total</td><td class="num">{{money .Order.Total}}</td></tr>
</table>

{{if or .Order.ValidityTerms .Order.PaymentTerms}}
<div class="terms">
  {{if .Order.ValidityTerms}}<div>Validité: {{.Order.ValidityTerms}}</div>{{end}}
  {{if .Order.PaymentTerms}}<div>Paiement: {{.Order.PaymentTerms}}</div>{{end}}
</div>
{{end}}

<div class="signatures">
  <div>Signature (chargé de projet)<br>{{if .Order.AuthorSignature}}{{.Order.AuthorSignature}} {{.Order.AuthorSignedOn}}{{end}}</div>
  <div>Signature (fournisseur)<br>{{if .Order.SupplierSignature}}{{.Order.SupplierSignature}} {{.Order.SupplierSignedOn}}{{end}}</div>
</div>
</body>
</html>
`))

// HTML renders the order as a browser-previewable document with the same
// layout as the PDF export.
func (r *Renderer) HTML(order *purchaseorder.Order, profile company.Profile) ([]byte, error) {
	data := struct {
		Order   *purchaseorder.Order
		Profile company.Profile
		Info    company.FormattedInfo
	}{
		Order:   order,
		Profile: profile,
		Info:    profile.Formatted(),
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render purchase order html: %w", err)
	}
	return buf.Bytes(), nil
}
