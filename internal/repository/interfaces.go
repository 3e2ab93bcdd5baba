package repository

import (
	"context"
	"errors"

	"github.com/qualitrack/qc-api/internal/model"
)

// Sentinel errors shared by all repositories. Callers match them with
// errors.Is; the concrete driver error stays wrapped underneath.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateCode = errors.New("duplicate code")
)

// EntityRepository is the storage contract for one coded entity type. It is
// the sole owner of SQL: nothing above it may see query text or driver
// errors. "Not found" on reads is an absence value, not an error.
type EntityRepository[T any] interface {
	GetByCode(ctx context.Context, code string) (*T, error)
	List(ctx context.Context, opts model.QueryOptions) (*model.PaginatedResult[T], error)
	Create(ctx context.Context, input model.EntityInput, actorID int64) (*T, error)
	Update(ctx context.Context, code string, input model.EntityInput, actorID int64) (*T, error)
	Delete(ctx context.Context, code string) (bool, error)
	ChangeStatus(ctx context.Context, code string, actorID int64) (bool, error)
	Count(ctx context.Context, opts model.QueryOptions) (int64, error)
	Exists(ctx context.Context, code string) (bool, error)
	Health(ctx context.Context) *model.EntityHealth
	Statistics(ctx context.Context) (*model.EntityStats, error)
	GetByName(ctx context.Context, name string, opts model.QueryOptions) (*model.PaginatedResult[T], error)
	FilterStatus(ctx context.Context, active bool, opts model.QueryOptions) (*model.PaginatedResult[T], error)
	Search(ctx context.Context, pattern string, opts model.QueryOptions) (*model.PaginatedResult[T], error)
}

// InspectionRepository is the storage contract for inspection records.
type InspectionRepository interface {
	Create(ctx context.Context, insp *model.Inspection) error
	Get(ctx context.Context, id string) (*model.Inspection, error)
	List(ctx context.Context, filter model.InspectionFilter) (*model.PaginatedResult[model.Inspection], error)
	Update(ctx context.Context, insp *model.Inspection) error
	Delete(ctx context.Context, id string) (bool, error)
	LineSummaries(ctx context.Context, filter model.InspectionFilter) ([]model.LineSummary, error)
}

// AccountRepository looks up API caller accounts.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	Get(ctx context.Context, id int64) (*model.Account, error)
}
