package entity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/repository"
	"github.com/qualitrack/qc-api/pkg/event"
)

// Operation distinguishes create validation (code and name required) from
// update validation (all fields optional, well-formed if present).
type Operation int

const (
	OpCreate Operation = iota
	OpUpdate
)

// ValidateFunc is the additive specialization hook: it receives the generic
// validator's findings and may only append further violations.
type ValidateFunc func(input model.EntityInput, op Operation, errs []string) []string

// maxNameLength bounds entity names; maxSearchLength bounds free-text input
// on pass-through queries.
const (
	maxNameLength   = 255
	maxSearchLength = 255
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Service is the business layer over one coded entity type: it decides
// whether an operation is legal, independent of storage concerns, and
// translates storage failures into the uniform result envelope.
type Service[T any] struct {
	repo     repository.EntityRepository[T]
	cfg      model.EntityConfig
	emitter  event.Emitter
	validate ValidateFunc
}

// Option configures a Service.
type Option[T any] func(*Service[T])

// WithValidation installs an entity-specific validation hook. The generic
// rules always run first; the hook can only add violations.
func WithValidation[T any](fn ValidateFunc) Option[T] {
	return func(s *Service[T]) { s.validate = fn }
}

// WithEmitter installs a change-event emitter.
func WithEmitter[T any](em event.Emitter) Option[T] {
	return func(s *Service[T]) { s.emitter = em }
}

// NewService creates the business layer for one entity config.
func NewService[T any](repo repository.EntityRepository[T], cfg model.EntityConfig, opts ...Option[T]) *Service[T] {
	s := &Service[T]{
		repo:    repo,
		cfg:     cfg,
		emitter: event.NopEmitter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config exposes the entity configuration to the layers above.
func (s *Service[T]) Config() model.EntityConfig {
	return s.cfg
}

// codeOK is the cheap structural check run before any storage round-trip.
func (s *Service[T]) codeOK(code string) bool {
	if code == "" || len(code) > s.cfg.CodeLength {
		return false
	}
	return codePattern.MatchString(code)
}

// NormalizeCode trims and uppercases a caller-supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// validateCode collects the structural rule violations for a code.
func (s *Service[T]) validateCode(code string) []string {
	var errs []string
	switch {
	case code == "":
		errs = append(errs, fmt.Sprintf("%s code is required", s.cfg.EntityName))
	case len(code) > s.cfg.CodeLength:
		errs = append(errs, fmt.Sprintf("%s code must be at most %d characters", s.cfg.EntityName, s.cfg.CodeLength))
	case !codePattern.MatchString(code):
		errs = append(errs, fmt.Sprintf("%s code may contain only letters, digits, underscore and hyphen", s.cfg.EntityName))
	}
	return errs
}

// Validate runs the general-purpose rules for the operation and returns the
// violations found. It never fails itself; entity specializations append
// their own rules through the hook.
func (s *Service[T]) Validate(input model.EntityInput, op Operation) ValidationResult {
	var errs []string

	if op == OpCreate {
		errs = append(errs, s.validateCode(input.Code)...)
		if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
			errs = append(errs, fmt.Sprintf("%s name is required", s.cfg.EntityName))
		}
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if op == OpUpdate && name == "" {
			errs = append(errs, fmt.Sprintf("%s name must not be empty", s.cfg.EntityName))
		}
		if len(name) > maxNameLength {
			errs = append(errs, fmt.Sprintf("%s name must be at most %d characters", s.cfg.EntityName, maxNameLength))
		}
	}

	if s.validate != nil {
		errs = s.validate(input, op, errs)
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ApplyDefaultOptions fills page, clamps the limit against the entity's
// maximum, defaults the sort to code ascending and trims the search term.
// This is the only place limits are clamped; storage trusts its input.
func (s *Service[T]) ApplyDefaultOptions(opts model.QueryOptions) model.QueryOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = s.cfg.DefaultLimit
	}
	if opts.Limit > s.cfg.MaxLimit {
		opts.Limit = s.cfg.MaxLimit
	}
	if opts.SortBy == "" {
		opts.SortBy = "code"
	}
	if opts.SortOrder != model.SortDesc {
		opts.SortOrder = model.SortAsc
	}
	opts.Search = strings.TrimSpace(opts.Search)
	return opts
}

// GetByCode fetches one entity. A malformed code and a missing code produce
// the same not-found outcome; callers cannot tell them apart.
func (s *Service[T]) GetByCode(ctx context.Context, code string) Result[T] {
	code = NormalizeCode(code)
	if !s.codeOK(code) {
		return fail[T](KindNotFound, fmt.Sprintf("%s not found", s.cfg.EntityName))
	}

	ent, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return fail[T](KindInternal, fmt.Sprintf("failed to get %s", s.cfg.EntityName))
	}
	if ent == nil {
		return fail[T](KindNotFound, fmt.Sprintf("%s not found", s.cfg.EntityName))
	}
	return ok(ent)
}

// List returns one page of entities after defaulting the options.
func (s *Service[T]) List(ctx context.Context, opts model.QueryOptions) ListResult[T] {
	opts = s.ApplyDefaultOptions(opts)
	page, err := s.repo.List(ctx, opts)
	if err != nil {
		return failList[T](KindInternal, fmt.Sprintf("failed to list %ss", s.cfg.EntityName))
	}
	return okList(page)
}

// Create validates the input, pre-checks the code for duplicates, then
// delegates to storage. The pre-check gives a friendly error; the storage
// uniqueness constraint remains the guarantee against concurrent creates,
// so its violation maps to the same duplicate outcome.
func (s *Service[T]) Create(ctx context.Context, input model.EntityInput, actorID int64) Result[T] {
	input.Code = NormalizeCode(input.Code)

	if v := s.Validate(input, OpCreate); !v.Valid {
		return fail[T](KindInvalid, strings.Join(v.Errors, "; "))
	}

	exists, err := s.repo.Exists(ctx, input.Code)
	if err != nil {
		return fail[T](KindInternal, fmt.Sprintf("failed to create %s", s.cfg.EntityName))
	}
	if exists {
		return fail[T](KindConflict, fmt.Sprintf("%s with code %s already exists", s.cfg.EntityName, input.Code))
	}

	ent, err := s.repo.Create(ctx, input, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return fail[T](KindConflict, fmt.Sprintf("%s with code %s already exists", s.cfg.EntityName, input.Code))
		}
		return fail[T](KindInternal, fmt.Sprintf("failed to create %s", s.cfg.EntityName))
	}

	s.emit(ctx, event.ActionCreate, input.Code, actorID)
	return ok(ent)
}

// Update validates whatever fields are present, checks existence, then
// delegates. The code is immutable: it identifies the row, it is never set.
func (s *Service[T]) Update(ctx context.Context, code string, input model.EntityInput, actorID int64) Result[T] {
	code = NormalizeCode(code)
	if !s.codeOK(code) {
		return fail[T](KindNotFound, fmt.Sprintf("%s not found", s.cfg.EntityName))
	}

	if v := s.Validate(input, OpUpdate); !v.Valid {
		return fail[T](KindInvalid, strings.Join(v.Errors, "; "))
	}

	exists, err := s.repo.Exists(ctx, code)
	if err != nil {
		return fail[T](KindInternal, fmt.Sprintf("failed to update %s", s.cfg.EntityName))
	}
	if !exists {
		return fail[T](KindNotFound, fmt.Sprintf("%s not found", s.cfg.EntityName))
	}

	ent, err := s.repo.Update(ctx, code, input, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail[T](KindNotFound, fmt.Sprintf("%s not found", s.cfg.EntityName))
		}
		return fail[T](KindInternal, fmt.Sprintf("failed to update %s", s.cfg.EntityName))
	}

	s.emit(ctx, event.ActionUpdate, code, actorID)
	return ok(ent)
}

// Delete removes the record entirely.
func (s *Service[T]) Delete(ctx context.Context, code string, actorID int64) Result[T] {
	code = NormalizeCode(code)
	if !s.codeOK(code) {
		return fail[T](KindNotFound, fmt.Sprintf("%s not found", s.cfg.EntityName))
	}

	deleted, err := s.repo.Delete(ctx, code)
	if err != nil {
		return fail[T](KindInternal, fmt.Sprintf("failed to delete %s", s.cfg.EntityName))
	}
	if !deleted {
		return fail[T](KindNotFound, fmt.Sprintf("%s not found or already inactive", s.cfg.EntityName))
	}

	s.emit(ctx, event.ActionDelete, code, actorID)
	return Result[T]{Success: true}
}

// ChangeStatus toggles the active flag without touching any other field.
func (s *Service[T]) ChangeStatus(ctx context.Context, code string, actorID int64) Result[T] {
	code = NormalizeCode(code)
	if !s.codeOK(code) {
		return fail[T](KindNotFound, fmt.Sprintf("%s not found", s.cfg.EntityName))
	}

	toggled, err := s.repo.ChangeStatus(ctx, code, actorID)
	if err != nil {
		return fail[T](KindInternal, fmt.Sprintf("failed to change %s status", s.cfg.EntityName))
	}
	if !toggled {
		return fail[T](KindNotFound, fmt.Sprintf("%s not found or already inactive", s.cfg.EntityName))
	}

	s.emit(ctx, event.ActionStatusToggle, code, actorID)
	return s.GetByCode(ctx, code)
}

// CheckAvailability reports whether a code is free. The check itself
// succeeds even when the code is taken or malformed; the findings ride in
// the payload.
func (s *Service[T]) CheckAvailability(ctx context.Context, code string) AvailabilityResult {
	code = NormalizeCode(code)

	errs := s.validateCode(code)
	if s.validate != nil {
		errs = s.validate(model.EntityInput{Code: code}, OpCreate, errs)
	}
	if len(errs) > 0 {
		return AvailabilityResult{Success: true, Available: false, Errors: errs}
	}

	exists, err := s.repo.Exists(ctx, code)
	if err != nil {
		return AvailabilityResult{Success: false, Errors: []string{fmt.Sprintf("failed to check %s code", s.cfg.EntityName)}}
	}
	return AvailabilityResult{Success: true, Available: !exists}
}

// GetHealth runs the storage probe. It cannot fail; the probe folds every
// fault into its status.
func (s *Service[T]) GetHealth(ctx context.Context) *model.EntityHealth {
	return s.repo.Health(ctx)
}

// GetStatistics returns the dashboard counters.
func (s *Service[T]) GetStatistics(ctx context.Context) Result[model.EntityStats] {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return fail[model.EntityStats](KindInternal, fmt.Sprintf("failed to get %s statistics", s.cfg.EntityName))
	}
	return ok(stats)
}

// GetByName finds entities by exact case-insensitive name.
func (s *Service[T]) GetByName(ctx context.Context, name string, opts model.QueryOptions) ListResult[T] {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return failList[T](KindInvalid, fmt.Sprintf("invalid %s name", s.cfg.EntityName))
	}

	opts = s.ApplyDefaultOptions(opts)
	page, err := s.repo.GetByName(ctx, name, opts)
	if err != nil {
		return failList[T](KindInternal, fmt.Sprintf("failed to search %ss by name", s.cfg.EntityName))
	}
	return okList(page)
}

// FilterStatus lists entities with the given active status, optionally
// narrowed by the options' search term.
func (s *Service[T]) FilterStatus(ctx context.Context, active bool, opts model.QueryOptions) ListResult[T] {
	opts = s.ApplyDefaultOptions(opts)
	page, err := s.repo.FilterStatus(ctx, active, opts)
	if err != nil {
		return failList[T](KindInternal, fmt.Sprintf("failed to filter %ss", s.cfg.EntityName))
	}
	return okList(page)
}

// Search matches a pattern against code and name.
func (s *Service[T]) Search(ctx context.Context, pattern string, opts model.QueryOptions) ListResult[T] {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || len(pattern) > maxSearchLength {
		return failList[T](KindInvalid, "invalid search pattern")
	}

	opts = s.ApplyDefaultOptions(opts)
	page, err := s.repo.Search(ctx, pattern, opts)
	if err != nil {
		return failList[T](KindInternal, fmt.Sprintf("failed to search %ss", s.cfg.EntityName))
	}
	return okList(page)
}

func (s *Service[T]) emit(ctx context.Context, action, code string, actorID int64) {
	s.emitter.Emit(ctx, event.ChangeEvent{
		Entity:     s.cfg.EntityName,
		Code:       code,
		Action:     action,
		ActorID:    actorID,
		OccurredAt: time.Now(),
	})
}
