// Package purchaseorder manages supplier purchase orders: their own sqlite
// store, BC-prefixed yearly numbering, tax computation from the configured
// rates, and PDF export.
package purchaseorder

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Order is a purchase order header row. Items and attachments are owned
// rows deleted with the order.
type Order struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Number string `gorm:"column:number;uniqueIndex;not null" json:"number"`

	OrderDate string `gorm:"column:order_date" json:"order_date"`

	SupplierName       string `gorm:"column:supplier_name;index" json:"supplier_name"`
	SupplierAddress    string `gorm:"column:supplier_address" json:"supplier_address"`
	SupplierCity       string `gorm:"column:supplier_city" json:"supplier_city"`
	SupplierPostalCode string `gorm:"column:supplier_postal_code" json:"supplier_postal_code"`
	SupplierPhone      string `gorm:"column:supplier_phone" json:"supplier_phone"`
	SupplierCell       string `gorm:"column:supplier_cell" json:"supplier_cell"`
	SupplierContact    string `gorm:"column:supplier_contact" json:"supplier_contact"`

	ClientName      string `gorm:"column:client_name" json:"client_name"`
	ProjectName     string `gorm:"column:project_name" json:"project_name"`
	ProjectLocation string `gorm:"column:project_location" json:"project_location"`
	SubmissionRef   string `gorm:"column:submission_ref" json:"submission_ref"`
	ProjectManager  string `gorm:"column:project_manager" json:"project_manager"`

	ValidityTerms string `gorm:"column:validity_terms" json:"validity_terms"`
	PaymentTerms  string `gorm:"column:payment_terms" json:"payment_terms"`
	StartDate     string `gorm:"column:start_date" json:"start_date"`
	EndDate       string `gorm:"column:end_date" json:"end_date"`

	AuthorSignature   string `gorm:"column:author_signature" json:"author_signature"`
	AuthorSignedOn    string `gorm:"column:author_signed_on" json:"author_signed_on"`
	SupplierSignature string `gorm:"column:supplier_signature" json:"supplier_signature"`
	SupplierSignedOn  string `gorm:"column:supplier_signed_on" json:"supplier_signed_on"`

	Subtotal float64 `gorm:"column:subtotal" json:"subtotal"`
	TPS      float64 `gorm:"column:tps" json:"tps"`
	TVQ      float64 `gorm:"column:tvq" json:"tvq"`
	Total    float64 `gorm:"column:total" json:"total"`

	Status string         `gorm:"column:status;default:draft" json:"status"`
	Notes  string         `gorm:"column:notes" json:"notes"`
	Data   datatypes.JSON `gorm:"column:data_json" json:"data,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	Items       []Item       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Attachments []Attachment `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

func (Order) TableName() string {
	return "purchase_orders"
}

type Item struct {
	ID          int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64   `gorm:"column:order_id;index" json:"-"`
	Position    int     `gorm:"column:position" json:"position"`
	Title       string  `gorm:"column:title" json:"title"`
	Description string  `gorm:"column:description" json:"description"`
	Quantity    float64 `gorm:"column:quantity;default:1" json:"quantity"`
	Unit        string  `gorm:"column:unit" json:"unit"`
	UnitPrice   float64 `gorm:"column:unit_price" json:"unit_price"`
	Total       float64 `gorm:"column:total" json:"total"`
}

func (Item) TableName() string {
	return "purchase_order_items"
}

type Attachment struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID  int64     `gorm:"column:order_id;index" json:"-"`
	FileName string    `gorm:"column:file_name" json:"file_name"`
	FileType string    `gorm:"column:file_type" json:"file_type"`
	FileSize int64     `gorm:"column:file_size" json:"file_size"`
	Content  string    `gorm:"column:content_base64" json:"content,omitempty"`
	AddedAt  time.Time `gorm:"column:added_at" json:"added_at"`
}

func (Attachment) TableName() string {
	return "purchase_order_attachments"
}

// Summary is the list-view projection.
type Summary struct {
	Number       string    `json:"number"`
	SupplierName string    `json:"supplier_name"`
	ProjectName  string    `json:"project_name"`
	Total        float64   `json:"total"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
