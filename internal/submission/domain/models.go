package domain

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Status is the lifecycle state of a submission. The data layer does not
// guard transitions; any status may be set from any status (the admin
// override path). The public decision endpoint is the only place that
// restricts decisions to pending submissions.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Decided reports whether the status is a decision state.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

// Origin tags which physical store owns a record.
type Origin string

const (
	OriginLegacy   Origin = "legacy"
	OriginDocument Origin = "document"
)

// Record is the normalized cross-store row shape used by the allocator,
// the duplicate repairer, the aggregator and the token guard. The row id is
// store-local; (Origin, ID) is the global identity.
type Record struct {
	Origin      Origin     `json:"origin"`
	ID          int64      `json:"id"`
	Number      string     `json:"number"`
	Token       string     `json:"token"`
	Status      Status     `json:"status"`
	ClientName  string     `json:"client_name"`
	ClientEmail string     `json:"client_email,omitempty"`
	ClientPhone string     `json:"client_phone,omitempty"`
	ProjectName string     `json:"project_name"`
	Amount      float64    `json:"amount"`
	FileType    string     `json:"file_type,omitempty"`
	FileName    string     `json:"file_name,omitempty"`
	PublicLink  string     `json:"public_link,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

// RefID is the merged display identity: legacy row ids are prefixed with "H"
// so consumers can route follow-up operations to the owning store.
func (r Record) RefID() string {
	if r.Origin == OriginLegacy {
		return fmt.Sprintf("H%d", r.ID)
	}
	return fmt.Sprintf("%d", r.ID)
}

// Submission is the canonical full shape a token resolves to, whichever
// store answered. Fields absent from the legacy schema (email, phone, file
// descriptors) are default-filled.
type Submission struct {
	Origin        Origin         `json:"origin"`
	ID            int64          `json:"id"`
	Number        string         `json:"number"`
	Token         string         `json:"token"`
	Status        Status         `json:"status"`
	ClientName    string         `json:"client_name"`
	ClientEmail   string         `json:"client_email,omitempty"`
	ClientPhone   string         `json:"client_phone,omitempty"`
	ProjectName   string         `json:"project_name"`
	Amount        float64        `json:"amount"`
	FileType      string         `json:"file_type,omitempty"`
	FileName      string         `json:"file_name,omitempty"`
	FilePath      string         `json:"file_path,omitempty"`
	FileSize      int64          `json:"file_size,omitempty"`
	HTMLPreview   string         `json:"html_preview,omitempty"`
	PublicLink    string         `json:"public_link,omitempty"`
	Payload       datatypes.JSON `json:"payload,omitempty"`
	ClientComment string         `json:"client_comment,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty"`
}

func (s Submission) RefID() string {
	return Record{Origin: s.Origin, ID: s.ID}.RefID()
}

// TokenExportEntry is one row of the disaster-recovery token snapshot.
// The field names are a persisted wire format shared with existing
// snapshot files; do not rename.
type TokenExportEntry struct {
	Number    string    `json:"number"`
	Client    string    `json:"client"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	Origin    Origin    `json:"store_origin"`
}

// TokenSnapshot is the wrapped snapshot form written to backup files.
type TokenSnapshot struct {
	Date    time.Time          `json:"date"`
	Count   int                `json:"count"`
	Entries []TokenExportEntry `json:"tokens"`
}
