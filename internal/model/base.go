package model

import (
	"time"
)

// CodedEntity contains the common fields shared by every reference entity.
// The code is the primary identity: short, uppercase alphanumeric, immutable
// after creation.
type CodedEntity struct {
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedBy int64     `json:"created_by" db:"created_by"`
	UpdatedBy int64     `json:"updated_by" db:"updated_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EntityCode returns the primary identity of the entity.
func (e *CodedEntity) EntityCode() string { return e.Code }

// EntityInput carries the caller-supplied fields of a create or update.
// Pointer fields distinguish "absent" from "zero": on update only non-nil
// fields are written.
type EntityInput struct {
	Code     string  `json:"code"`
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

// Sort orders accepted by QueryOptions.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// QueryOptions represents the filter/sort/pagination parameters of a list
// query. Zero values mean "not supplied"; the service layer fills defaults.
type QueryOptions struct {
	Page          int
	Limit         int
	SortBy        string
	SortOrder     string
	Search        string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time
}

// Pagination is the metadata attached to list-shaped responses.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// NewPagination computes TotalPages as ceil(total/limit).
func NewPagination(page, limit int, total int64) Pagination {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
	}
}

// PaginatedResult is one page of entities plus its pagination metadata.
type PaginatedResult[T any] struct {
	Items      []T
	Pagination Pagination
}
