package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/repository"
)

// entityColumns is the column set shared by every coded-entity table.
const entityColumns = "code, name, is_active, created_by, updated_by, created_at, updated_at"

// EntityRepository is the generic storage engine behind every coded
// reference entity. The table and column names it interpolates come from
// EntityConfig, which is trusted process configuration; every user-supplied
// value goes through bound parameters. The single exception is the sort
// column, which cannot be parameterized and is therefore forced through the
// config's allow-list before it reaches ORDER BY.
type EntityRepository[T any] struct {
	BaseRepository
	cfg model.EntityConfig
}

// NewEntityRepository creates the storage engine for one entity config.
func NewEntityRepository[T any](base BaseRepository, cfg model.EntityConfig) *EntityRepository[T] {
	return &EntityRepository[T]{BaseRepository: base, cfg: cfg}
}

// escapeLike neutralizes LIKE wildcards in a user-supplied search term so
// the term matches only its literal occurrences. Queries using the result
// must carry ESCAPE '\'.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, `%`, `\%`)
	term = strings.ReplaceAll(term, `_`, `\_`)
	return term
}

// filterBuilder accumulates WHERE conditions with positional parameters.
type filterBuilder struct {
	conds []string
	args  []interface{}
}

func (b *filterBuilder) bind(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *filterBuilder) add(cond string) {
	b.conds = append(b.conds, cond)
}

// where renders the accumulated conditions, or "" when there are none.
func (b *filterBuilder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// buildFilter translates QueryOptions into a WHERE clause. The same builder
// feeds both the COUNT and the data query so the two always share one
// predicate.
func (r *EntityRepository[T]) buildFilter(opts model.QueryOptions) *filterBuilder {
	b := &filterBuilder{}

	if opts.IsActive != nil {
		b.add("is_active = " + b.bind(*opts.IsActive))
	}

	if term := strings.TrimSpace(opts.Search); term != "" {
		ph := b.bind("%" + escapeLike(term) + "%")
		ors := make([]string, 0, len(r.cfg.SearchableFields))
		for _, field := range r.cfg.SearchableFields {
			ors = append(ors, fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, field, ph))
		}
		b.add("(" + strings.Join(ors, " OR ") + ")")
	}

	if opts.CreatedAfter != nil {
		b.add("created_at >= " + b.bind(*opts.CreatedAfter))
	}
	if opts.CreatedBefore != nil {
		b.add("created_at <= " + b.bind(*opts.CreatedBefore))
	}
	if opts.UpdatedAfter != nil {
		b.add("updated_at >= " + b.bind(*opts.UpdatedAfter))
	}
	if opts.UpdatedBefore != nil {
		b.add("updated_at <= " + b.bind(*opts.UpdatedBefore))
	}

	return b
}

// orderBy renders the ORDER BY clause. The column is allow-listed, the
// direction collapses to ASC unless it is exactly DESC.
func (r *EntityRepository[T]) orderBy(opts model.QueryOptions) string {
	column := r.cfg.SortableField(opts.SortBy)
	direction := model.SortAsc
	if opts.SortOrder == model.SortDesc {
		direction = model.SortDesc
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

// runPaged issues the COUNT and data queries concurrently against the pool.
// The two queries do not share a snapshot: a write landing between them can
// make the total inconsistent with the returned page. That approximation is
// accepted; see DESIGN.md.
func (r *EntityRepository[T]) runPaged(ctx context.Context, b *filterBuilder, opts model.QueryOptions) (*model.PaginatedResult[T], error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.cfg.TableName, b.where())

	offset := (opts.Page - 1) * opts.Limit
	dataArgs := append(append([]interface{}{}, b.args...), opts.Limit, offset)
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT $%d OFFSET $%d",
		entityColumns, r.cfg.TableName, b.where(), r.orderBy(opts),
		len(b.args)+1, len(b.args)+2,
	)

	var (
		total int64
		items []T
	)
	errc := make(chan error, 2)
	go func() {
		errc <- r.db.GetContext(ctx, &total, countQuery, b.args...)
	}()
	go func() {
		errc <- r.db.SelectContext(ctx, &items, dataQuery, dataArgs...)
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.cfg.EntityName, firstErr)
	}

	if items == nil {
		items = []T{}
	}
	return &model.PaginatedResult[T]{
		Items:      items,
		Pagination: model.NewPagination(opts.Page, opts.Limit, total),
	}, nil
}

// GetByCode fetches one entity. Absence is (nil, nil), not an error.
func (r *EntityRepository[T]) GetByCode(ctx context.Context, code string) (ent *T, err error) {
	done := r.instrument(r.cfg.EntityName, "get")
	defer func() { done(err) }()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE code = $1", entityColumns, r.cfg.TableName)

	var row T
	err = r.db.GetContext(ctx, &row, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.cfg.EntityName, err)
	}
	return &row, nil
}

// List returns one page of entities matching the options, plus the total
// computed under the same predicate.
func (r *EntityRepository[T]) List(ctx context.Context, opts model.QueryOptions) (res *model.PaginatedResult[T], err error) {
	done := r.instrument(r.cfg.EntityName, "list")
	defer func() { done(err) }()

	return r.runPaged(ctx, r.buildFilter(opts), opts)
}

// Create inserts a new entity, stamping both audit columns with the actor.
// Duplicate codes surface as repository.ErrDuplicateCode; the storage
// constraint is the correctness guarantee against concurrent creates.
func (r *EntityRepository[T]) Create(ctx context.Context, input model.EntityInput, actorID int64) (ent *T, err error) {
	done := r.instrument(r.cfg.EntityName, "create")
	defer func() { done(err) }()

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	name := ""
	if input.Name != nil {
		name = *input.Name
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (code, name, is_active, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, $5, $5)
		RETURNING %s
	`, r.cfg.TableName, entityColumns)

	var row T
	err = r.db.GetContext(ctx, &row, query, input.Code, name, isActive, actorID, time.Now())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			err = fmt.Errorf("failed to create %s: %w", r.cfg.EntityName, repository.ErrDuplicateCode)
			return nil, err
		}
		return nil, fmt.Errorf("failed to create %s: %w", r.cfg.EntityName, err)
	}
	return &row, nil
}

// Update performs a partial merge: only fields present in the input enter
// the SET clause, so unset fields keep their prior values. The code itself
// is immutable. Fails with repository.ErrNotFound when no row matches.
func (r *EntityRepository[T]) Update(ctx context.Context, code string, input model.EntityInput, actorID int64) (ent *T, err error) {
	done := r.instrument(r.cfg.EntityName, "update")
	defer func() { done(err) }()

	b := &filterBuilder{}
	sets := []string{}
	if input.Name != nil {
		sets = append(sets, "name = "+b.bind(*input.Name))
	}
	if input.IsActive != nil {
		sets = append(sets, "is_active = "+b.bind(*input.IsActive))
	}
	sets = append(sets, "updated_by = "+b.bind(actorID))
	sets = append(sets, "updated_at = "+b.bind(time.Now()))

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE code = %s RETURNING %s",
		r.cfg.TableName, strings.Join(sets, ", "), b.bind(code), entityColumns,
	)

	var row T
	err = r.db.GetContext(ctx, &row, query, b.args...)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("failed to update %s: %w", r.cfg.EntityName, repository.ErrNotFound)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", r.cfg.EntityName, err)
	}
	return &row, nil
}

// Delete removes the row entirely and reports whether one was removed.
func (r *EntityRepository[T]) Delete(ctx context.Context, code string) (deleted bool, err error) {
	done := r.instrument(r.cfg.EntityName, "delete")
	defer func() { done(err) }()

	query := fmt.Sprintf("DELETE FROM %s WHERE code = $1", r.cfg.TableName)
	result, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", r.cfg.EntityName, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", r.cfg.EntityName, err)
	}
	return rows > 0, nil
}

// ChangeStatus flips is_active in a single statement, avoiding a
// read-then-write race, and refreshes the audit columns.
func (r *EntityRepository[T]) ChangeStatus(ctx context.Context, code string, actorID int64) (toggled bool, err error) {
	done := r.instrument(r.cfg.EntityName, "change_status")
	defer func() { done(err) }()

	query := fmt.Sprintf(
		"UPDATE %s SET is_active = NOT is_active, updated_by = $1, updated_at = $2 WHERE code = $3",
		r.cfg.TableName,
	)
	result, err := r.db.ExecContext(ctx, query, actorID, time.Now(), code)
	if err != nil {
		return false, fmt.Errorf("failed to change %s status: %w", r.cfg.EntityName, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to change %s status: %w", r.cfg.EntityName, err)
	}
	return rows > 0, nil
}

// Count returns the number of entities matching the options.
func (r *EntityRepository[T]) Count(ctx context.Context, opts model.QueryOptions) (total int64, err error) {
	done := r.instrument(r.cfg.EntityName, "count")
	defer func() { done(err) }()

	b := r.buildFilter(opts)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.cfg.TableName, b.where())
	if err = r.db.GetContext(ctx, &total, query, b.args...); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.cfg.EntityName, err)
	}
	return total, nil
}

// Exists reports whether a row with the code is present.
func (r *EntityRepository[T]) Exists(ctx context.Context, code string) (exists bool, err error) {
	done := r.instrument(r.cfg.EntityName, "exists")
	defer func() { done(err) }()

	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE code = $1)", r.cfg.TableName)
	if err = r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("failed to check %s existence: %w", r.cfg.EntityName, err)
	}
	return exists, nil
}

type healthMetricsRow struct {
	Total         int64      `db:"total"`
	Active        int64      `db:"active"`
	Inactive      int64      `db:"inactive"`
	LastUpdatedAt *time.Time `db:"last_updated_at"`
}

// Health runs the three-step probe: connectivity, table presence, aggregate
// metrics. It never returns an error; every failure is folded into the
// reported status with whatever checks had already passed. An empty table is
// healthy.
func (r *EntityRepository[T]) Health(ctx context.Context) *model.EntityHealth {
	h := &model.EntityHealth{
		Entity: r.cfg.EntityName,
		Status: model.HealthUnhealthy,
	}

	var one int
	if err := r.db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return h
	}
	h.Checks.Connectivity = true

	var tableExists bool
	err := r.db.GetContext(ctx, &tableExists,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
		r.cfg.TableName,
	)
	if err != nil || !tableExists {
		return h
	}
	h.Checks.TableExists = true

	var row healthMetricsRow
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_active) AS active,
			COUNT(*) FILTER (WHERE NOT is_active) AS inactive,
			MAX(updated_at) AS last_updated_at
		FROM %s
	`, r.cfg.TableName)
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		h.Status = model.HealthDegraded
		return h
	}
	h.Checks.Metrics = true
	h.Metrics = model.HealthMetrics{
		Total:         row.Total,
		Active:        row.Active,
		Inactive:      row.Inactive,
		LastUpdatedAt: row.LastUpdatedAt,
	}
	h.Status = model.HealthHealthy
	return h
}

// Statistics returns the reduced counter set for dashboard display.
func (r *EntityRepository[T]) Statistics(ctx context.Context) (stats *model.EntityStats, err error) {
	done := r.instrument(r.cfg.EntityName, "statistics")
	defer func() { done(err) }()

	var row struct {
		Total    int64 `db:"total"`
		Active   int64 `db:"active"`
		Inactive int64 `db:"inactive"`
	}
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_active) AS active,
			COUNT(*) FILTER (WHERE NOT is_active) AS inactive
		FROM %s
	`, r.cfg.TableName)
	if err = r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("failed to get %s statistics: %w", r.cfg.EntityName, err)
	}
	return &model.EntityStats{
		Entity:   r.cfg.EntityName,
		Total:    row.Total,
		Active:   row.Active,
		Inactive: row.Inactive,
	}, nil
}

// GetByName returns entities whose name matches exactly, case-insensitively.
func (r *EntityRepository[T]) GetByName(ctx context.Context, name string, opts model.QueryOptions) (res *model.PaginatedResult[T], err error) {
	done := r.instrument(r.cfg.EntityName, "get_by_name")
	defer func() { done(err) }()

	b := &filterBuilder{}
	b.add("LOWER(name) = LOWER(" + b.bind(name) + ")")
	return r.runPaged(ctx, b, opts)
}

// FilterStatus returns entities with the given active status, optionally
// narrowed by the options' search term.
func (r *EntityRepository[T]) FilterStatus(ctx context.Context, active bool, opts model.QueryOptions) (res *model.PaginatedResult[T], err error) {
	done := r.instrument(r.cfg.EntityName, "filter_status")
	defer func() { done(err) }()

	opts.IsActive = &active
	return r.runPaged(ctx, r.buildFilter(opts), opts)
}

// Search matches the pattern against code and name only, regardless of the
// configured searchable fields. A code-aware lookup, deliberately narrower
// than List's free-text search.
func (r *EntityRepository[T]) Search(ctx context.Context, pattern string, opts model.QueryOptions) (res *model.PaginatedResult[T], err error) {
	done := r.instrument(r.cfg.EntityName, "search")
	defer func() { done(err) }()

	b := &filterBuilder{}
	ph := b.bind("%" + escapeLike(pattern) + "%")
	b.add(fmt.Sprintf(`(code ILIKE %s ESCAPE '\' OR name ILIKE %s ESCAPE '\')`, ph, ph))
	return r.runPaged(ctx, b, opts)
}
