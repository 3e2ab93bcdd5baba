package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/repository"
)

type inspectionRepository struct {
	BaseRepository
}

// NewInspectionRepository creates the inspection record store.
func NewInspectionRepository(base BaseRepository) repository.InspectionRepository {
	return &inspectionRepository{base}
}

const inspectionColumns = `id, line_code, customer_code, defect_code, result,
	qty_inspected, qty_defective, notes, inspector_id, inspected_at, created_at, updated_at`

func (r *inspectionRepository) Create(ctx context.Context, insp *model.Inspection) error {
	query := `
		INSERT INTO inspections (
			id, line_code, customer_code, defect_code, result,
			qty_inspected, qty_defective, notes, inspector_id, inspected_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	insp.ID = uuid.New()
	insp.CreatedAt = time.Now()
	insp.UpdatedAt = insp.CreatedAt
	if insp.InspectedAt.IsZero() {
		insp.InspectedAt = insp.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, query,
		insp.ID,
		insp.LineCode,
		insp.CustomerCode,
		insp.DefectCode,
		insp.Result,
		insp.QtyInspected,
		insp.QtyDefective,
		insp.Notes,
		insp.InspectorID,
		insp.InspectedAt,
		insp.CreatedAt,
		insp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inspection: %w", err)
	}
	return nil
}

func (r *inspectionRepository) Get(ctx context.Context, id string) (*model.Inspection, error) {
	query := fmt.Sprintf("SELECT %s FROM inspections WHERE id = $1", inspectionColumns)

	var insp model.Inspection
	err := r.db.GetContext(ctx, &insp, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}
	return &insp, nil
}

func (r *inspectionRepository) buildFilter(filter model.InspectionFilter) *filterBuilder {
	b := &filterBuilder{}
	if filter.LineCode != "" {
		b.add("line_code = " + b.bind(filter.LineCode))
	}
	if filter.CustomerCode != "" {
		b.add("customer_code = " + b.bind(filter.CustomerCode))
	}
	if filter.Result != "" {
		b.add("result = " + b.bind(filter.Result))
	}
	if filter.After != nil {
		b.add("inspected_at >= " + b.bind(*filter.After))
	}
	if filter.Before != nil {
		b.add("inspected_at <= " + b.bind(*filter.Before))
	}
	return b
}

func (r *inspectionRepository) List(ctx context.Context, filter model.InspectionFilter) (*model.PaginatedResult[model.Inspection], error) {
	b := r.buildFilter(filter)

	countQuery := "SELECT COUNT(*) FROM inspections" + b.where()

	offset := (filter.Page - 1) * filter.Limit
	dataArgs := append(append([]interface{}{}, b.args...), filter.Limit, offset)
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM inspections%s ORDER BY inspected_at DESC LIMIT $%d OFFSET $%d",
		inspectionColumns, b.where(), len(b.args)+1, len(b.args)+2,
	)

	var (
		total int64
		items []model.Inspection
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
		return nil, fmt.Errorf("failed to list inspections: %w", firstErr)
	}

	if items == nil {
		items = []model.Inspection{}
	}
	return &model.PaginatedResult[model.Inspection]{
		Items:      items,
		Pagination: model.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

func (r *inspectionRepository) Update(ctx context.Context, insp *model.Inspection) error {
	query := `
		UPDATE inspections
		SET defect_code = $1, result = $2, qty_inspected = $3, qty_defective = $4,
			notes = $5, updated_at = $6
		WHERE id = $7
	`
	insp.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		insp.DefectCode,
		insp.Result,
		insp.QtyInspected,
		insp.QtyDefective,
		insp.Notes,
		insp.UpdatedAt,
		insp.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update inspection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to update inspection: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *inspectionRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM inspections WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete inspection: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete inspection: %w", err)
	}
	return rows > 0, nil
}

// LineSummaries aggregates inspections per line for the QC dashboard.
func (r *inspectionRepository) LineSummaries(ctx context.Context, filter model.InspectionFilter) ([]model.LineSummary, error) {
	b := r.buildFilter(filter)

	parts := []string{
		"SELECT line_code,",
		"COUNT(*) AS inspections,",
		"COUNT(*) FILTER (WHERE result = 'pass') AS passed,",
		"COUNT(*) FILTER (WHERE result = 'fail') AS failed,",
		"COALESCE(SUM(qty_inspected), 0) AS qty_inspected,",
		"COALESCE(SUM(qty_defective), 0) AS qty_defective,",
		"COALESCE(COUNT(*) FILTER (WHERE result = 'pass')::float / NULLIF(COUNT(*), 0), 0) AS pass_rate",
		"FROM inspections" + b.where(),
		"GROUP BY line_code ORDER BY line_code",
	}
	query := strings.Join(parts, " ")

	var summaries []model.LineSummary
	if err := r.db.SelectContext(ctx, &summaries, query, b.args...); err != nil {
		return nil, fmt.Errorf("failed to summarize inspections: %w", err)
	}
	if summaries == nil {
		summaries = []model.LineSummary{}
	}
	return summaries, nil
}
