package inspection

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/repository"
	"github.com/qualitrack/qc-api/internal/service/entity"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	maxNotesLen  = 2000
)

// InspectionServicer is the business contract for inspection records.
type InspectionServicer interface {
	Create(ctx context.Context, insp *model.Inspection) entity.Result[model.Inspection]
	Get(ctx context.Context, id string) entity.Result[model.Inspection]
	List(ctx context.Context, filter model.InspectionFilter) entity.ListResult[model.Inspection]
	Update(ctx context.Context, id string, insp *model.Inspection) entity.Result[model.Inspection]
	Delete(ctx context.Context, id string) entity.Result[model.Inspection]
	LineSummaries(ctx context.Context, filter model.InspectionFilter) entity.Result[[]model.LineSummary]
}

// Service validates and records inspection results. Reference codes are
// checked against their entity stores so a record can never point at a
// customer or line that does not exist.
type Service struct {
	repo      repository.InspectionRepository
	lines     repository.EntityRepository[model.ProductionLine]
	customers repository.EntityRepository[model.Customer]
	defects   repository.EntityRepository[model.DefectCode]
}

// NewService creates the inspection business layer.
func NewService(
	repo repository.InspectionRepository,
	lines repository.EntityRepository[model.ProductionLine],
	customers repository.EntityRepository[model.Customer],
	defects repository.EntityRepository[model.DefectCode],
) *Service {
	return &Service{repo: repo, lines: lines, customers: customers, defects: defects}
}

func validResult(result string) bool {
	switch result {
	case model.ResultPass, model.ResultFail, model.ResultRework:
		return true
	}
	return false
}

// validate normalizes the record and collects caller mistakes. A non-nil
// error means a reference-existence lookup failed at the storage layer and
// the record could not be judged either way.
func (s *Service) validate(ctx context.Context, insp *model.Inspection) ([]string, error) {
	var errs []string

	insp.LineCode = strings.ToUpper(strings.TrimSpace(insp.LineCode))
	insp.CustomerCode = strings.ToUpper(strings.TrimSpace(insp.CustomerCode))

	if insp.LineCode == "" {
		errs = append(errs, "line code is required")
	} else if exists, err := s.lines.Exists(ctx, insp.LineCode); err != nil {
		return nil, err
	} else if !exists {
		errs = append(errs, fmt.Sprintf("unknown production line %s", insp.LineCode))
	}

	if insp.CustomerCode == "" {
		errs = append(errs, "customer code is required")
	} else if exists, err := s.customers.Exists(ctx, insp.CustomerCode); err != nil {
		return nil, err
	} else if !exists {
		errs = append(errs, fmt.Sprintf("unknown customer %s", insp.CustomerCode))
	}

	if !validResult(insp.Result) {
		errs = append(errs, "result must be one of pass, fail, rework")
	}

	if insp.QtyInspected < 1 {
		errs = append(errs, "qty_inspected must be at least 1")
	}
	if insp.QtyDefective < 0 || insp.QtyDefective > insp.QtyInspected {
		errs = append(errs, "qty_defective must be between 0 and qty_inspected")
	}
	if len(insp.Notes) > maxNotesLen {
		errs = append(errs, fmt.Sprintf("notes must be at most %d characters", maxNotesLen))
	}

	if insp.DefectCode != nil {
		code := strings.ToUpper(strings.TrimSpace(*insp.DefectCode))
		insp.DefectCode = &code
		if exists, err := s.defects.Exists(ctx, code); err != nil {
			return nil, err
		} else if !exists {
			errs = append(errs, fmt.Sprintf("unknown defect code %s", code))
		}
	} else if insp.Result == model.ResultFail {
		errs = append(errs, "defect_code is required for failed inspections")
	}

	return errs, nil
}

func (s *Service) Create(ctx context.Context, insp *model.Inspection) entity.Result[model.Inspection] {
	errs, err := s.validate(ctx, insp)
	if err != nil {
		return entity.Result[model.Inspection]{Success: false, Error: "failed to create inspection", Kind: entity.KindInternal}
	}
	if len(errs) > 0 {
		return entity.Result[model.Inspection]{Success: false, Error: strings.Join(errs, "; "), Kind: entity.KindInvalid}
	}

	if err := s.repo.Create(ctx, insp); err != nil {
		return entity.Result[model.Inspection]{Success: false, Error: "failed to create inspection", Kind: entity.KindInternal}
	}
	return entity.Result[model.Inspection]{Success: true, Data: insp}
}

func (s *Service) Get(ctx context.Context, id string) entity.Result[model.Inspection] {
	if _, err := uuid.Parse(id); err != nil {
		return entity.Result[model.Inspection]{Success: false, Error: "inspection not found", Kind: entity.KindNotFound}
	}

	insp, err := s.repo.Get(ctx, id)
	if err != nil {
		return entity.Result[model.Inspection]{Success: false, Error: "failed to get inspection", Kind: entity.KindInternal}
	}
	if insp == nil {
		return entity.Result[model.Inspection]{Success: false, Error: "inspection not found", Kind: entity.KindNotFound}
	}
	return entity.Result[model.Inspection]{Success: true, Data: insp}
}

func applyFilterDefaults(filter model.InspectionFilter) model.InspectionFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	return filter
}

func (s *Service) List(ctx context.Context, filter model.InspectionFilter) entity.ListResult[model.Inspection] {
	if filter.Result != "" && !validResult(filter.Result) {
		return entity.ListResult[model.Inspection]{Success: false, Error: "result must be one of pass, fail, rework", Kind: entity.KindInvalid}
	}

	filter = applyFilterDefaults(filter)
	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return entity.ListResult[model.Inspection]{Success: false, Error: "failed to list inspections", Kind: entity.KindInternal}
	}
	return entity.ListResult[model.Inspection]{Success: true, Items: page.Items, Pagination: page.Pagination}
}

func (s *Service) Update(ctx context.Context, id string, update *model.Inspection) entity.Result[model.Inspection] {
	existing := s.Get(ctx, id)
	if !existing.Success {
		return existing
	}

	// Line, customer and inspector are fixed at recording time; only the
	// outcome fields may change.
	insp := existing.Data
	insp.Result = update.Result
	insp.DefectCode = update.DefectCode
	insp.QtyInspected = update.QtyInspected
	insp.QtyDefective = update.QtyDefective
	insp.Notes = update.Notes

	errs, err := s.validate(ctx, insp)
	if err != nil {
		return entity.Result[model.Inspection]{Success: false, Error: "failed to update inspection", Kind: entity.KindInternal}
	}
	if len(errs) > 0 {
		return entity.Result[model.Inspection]{Success: false, Error: strings.Join(errs, "; "), Kind: entity.KindInvalid}
	}

	if err := s.repo.Update(ctx, insp); err != nil {
		return entity.Result[model.Inspection]{Success: false, Error: "failed to update inspection", Kind: entity.KindInternal}
	}
	return entity.Result[model.Inspection]{Success: true, Data: insp}
}

func (s *Service) Delete(ctx context.Context, id string) entity.Result[model.Inspection] {
	if _, err := uuid.Parse(id); err != nil {
		return entity.Result[model.Inspection]{Success: false, Error: "inspection not found", Kind: entity.KindNotFound}
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return entity.Result[model.Inspection]{Success: false, Error: "failed to delete inspection", Kind: entity.KindInternal}
	}
	if !deleted {
		return entity.Result[model.Inspection]{Success: false, Error: "inspection not found", Kind: entity.KindNotFound}
	}
	return entity.Result[model.Inspection]{Success: true}
}

func (s *Service) LineSummaries(ctx context.Context, filter model.InspectionFilter) entity.Result[[]model.LineSummary] {
	summaries, err := s.repo.LineSummaries(ctx, filter)
	if err != nil {
		return entity.Result[[]model.LineSummary]{Success: false, Error: "failed to summarize inspections", Kind: entity.KindInternal}
	}
	return entity.Result[[]model.LineSummary]{Success: true, Data: &summaries}
}
