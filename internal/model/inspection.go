package model

import (
	"time"

	"github.com/google/uuid"
)

// Inspection results.
const (
	ResultPass   = "pass"
	ResultFail   = "fail"
	ResultRework = "rework"
)

// Inspection is one quality-control inspection record. Unlike reference
// entities it is id-keyed and references coded entities by their codes.
type Inspection struct {
	ID            uuid.UUID `json:"id" db:"id"`
	LineCode      string    `json:"line_code" db:"line_code"`
	CustomerCode  string    `json:"customer_code" db:"customer_code"`
	DefectCode    *string   `json:"defect_code,omitempty" db:"defect_code"`
	Result        string    `json:"result" db:"result"`
	QtyInspected  int       `json:"qty_inspected" db:"qty_inspected"`
	QtyDefective  int       `json:"qty_defective" db:"qty_defective"`
	Notes         string    `json:"notes" db:"notes"`
	InspectorID   int64     `json:"inspector_id" db:"inspector_id"`
	InspectedAt   time.Time `json:"inspected_at" db:"inspected_at"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// InspectionFilter narrows inspection list queries.
type InspectionFilter struct {
	LineCode     string
	CustomerCode string
	Result       string
	Page         int
	Limit        int
	After        *time.Time
	Before       *time.Time
}

// LineSummary is the per-line aggregate shown on the QC dashboard.
type LineSummary struct {
	LineCode     string  `json:"line_code" db:"line_code"`
	Inspections  int64   `json:"inspections" db:"inspections"`
	Passed       int64   `json:"passed" db:"passed"`
	Failed       int64   `json:"failed" db:"failed"`
	QtyInspected int64   `json:"qty_inspected" db:"qty_inspected"`
	QtyDefective int64   `json:"qty_defective" db:"qty_defective"`
	PassRate     float64 `json:"pass_rate" db:"pass_rate"`
}
