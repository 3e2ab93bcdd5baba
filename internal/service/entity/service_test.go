package entity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/repository"
	"github.com/qualitrack/qc-api/pkg/event"
)

// memRepo is an in-memory stand-in for the storage engine, keyed by code.
type memRepo struct {
	rows map[string]model.Site
	fail bool
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]model.Site{}}
}

func (m *memRepo) seed(code, name string, active bool) {
	m.rows[code] = model.Site{CodedEntity: model.CodedEntity{
		Code: code, Name: name, IsActive: active,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}}
}

func (m *memRepo) GetByCode(_ context.Context, code string) (*model.Site, error) {
	if m.fail {
		return nil, assert.AnError
	}
	row, found := m.rows[code]
	if !found {
		return nil, nil
	}
	return &row, nil
}

func (m *memRepo) page(items []model.Site, opts model.QueryOptions) *model.PaginatedResult[model.Site] {
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
	return &model.PaginatedResult[model.Site]{
		Items:      items,
		Pagination: model.NewPagination(opts.Page, opts.Limit, int64(len(items))),
	}
}

func (m *memRepo) List(_ context.Context, opts model.QueryOptions) (*model.PaginatedResult[model.Site], error) {
	if m.fail {
		return nil, assert.AnError
	}
	items := []model.Site{}
	for _, row := range m.rows {
		items = append(items, row)
	}
	return m.page(items, opts), nil
}

func (m *memRepo) Create(_ context.Context, input model.EntityInput, actorID int64) (*model.Site, error) {
	row := model.Site{CodedEntity: model.CodedEntity{
		Code: input.Code, IsActive: true,
		CreatedBy: actorID, UpdatedBy: actorID,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}}
	if input.Name != nil {
		row.Name = *input.Name
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}
	m.rows[input.Code] = row
	return &row, nil
}

func (m *memRepo) Update(_ context.Context, code string, input model.EntityInput, actorID int64) (*model.Site, error) {
	row := m.rows[code]
	if input.Name != nil {
		row.Name = *input.Name
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}
	row.UpdatedBy = actorID
	row.UpdatedAt = time.Now()
	m.rows[code] = row
	return &row, nil
}

func (m *memRepo) Delete(_ context.Context, code string) (bool, error) {
	_, found := m.rows[code]
	delete(m.rows, code)
	return found, nil
}

func (m *memRepo) ChangeStatus(_ context.Context, code string, actorID int64) (bool, error) {
	row, found := m.rows[code]
	if !found {
		return false, nil
	}
	row.IsActive = !row.IsActive
	row.UpdatedBy = actorID
	m.rows[code] = row
	return true, nil
}

func (m *memRepo) Count(_ context.Context, _ model.QueryOptions) (int64, error) {
	return int64(len(m.rows)), nil
}

func (m *memRepo) Exists(_ context.Context, code string) (bool, error) {
	if m.fail {
		return false, assert.AnError
	}
	_, found := m.rows[code]
	return found, nil
}

func (m *memRepo) Health(_ context.Context) *model.EntityHealth {
	return &model.EntityHealth{Entity: "site", Status: model.HealthHealthy}
}

func (m *memRepo) Statistics(_ context.Context) (*model.EntityStats, error) {
	return &model.EntityStats{Entity: "site", Total: int64(len(m.rows))}, nil
}

func (m *memRepo) GetByName(_ context.Context, name string, opts model.QueryOptions) (*model.PaginatedResult[model.Site], error) {
	items := []model.Site{}
	for _, row := range m.rows {
		if strings.EqualFold(row.Name, name) {
			items = append(items, row)
		}
	}
	return m.page(items, opts), nil
}

func (m *memRepo) FilterStatus(_ context.Context, active bool, opts model.QueryOptions) (*model.PaginatedResult[model.Site], error) {
	items := []model.Site{}
	for _, row := range m.rows {
		if row.IsActive == active {
			items = append(items, row)
		}
	}
	return m.page(items, opts), nil
}

func (m *memRepo) Search(_ context.Context, pattern string, opts model.QueryOptions) (*model.PaginatedResult[model.Site], error) {
	items := []model.Site{}
	for _, row := range m.rows {
		if strings.Contains(row.Code, pattern) || strings.Contains(row.Name, pattern) {
			items = append(items, row)
		}
	}
	return m.page(items, opts), nil
}

// captureEmitter records every change event it receives.
type captureEmitter struct {
	events []event.ChangeEvent
}

func (c *captureEmitter) Emit(_ context.Context, evt event.ChangeEvent) {
	c.events = append(c.events, evt)
}

func newTestService(repo *memRepo, opts ...Option[model.Site]) *Service[model.Site] {
	return NewService[model.Site](repo, model.SiteConfig(), opts...)
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	repo := newMemRepo()
	emitter := &captureEmitter{}
	svc := newTestService(repo, WithEmitter[model.Site](emitter))

	res := svc.Create(context.Background(), model.EntityInput{Code: " plt01 ", Name: strPtr("North Plant")}, 7)
	require.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Equal(t, "PLT01", res.Data.Code, "code is normalized before storage")
	assert.True(t, res.Data.IsActive, "entities default to active")
	assert.Equal(t, int64(7), res.Data.CreatedBy)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, event.ActionCreate, emitter.events[0].Action)
	assert.Equal(t, "PLT01", emitter.events[0].Code)
	assert.Equal(t, int64(7), emitter.events[0].ActorID)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemRepo())

	tests := []struct {
		name  string
		input model.EntityInput
		want  string
	}{
		{"missing code", model.EntityInput{Name: strPtr("X")}, "code is required"},
		{"code too long", model.EntityInput{Code: "TOOLONGCODE", Name: strPtr("X")}, "at most 5 characters"},
		{"code with spaces", model.EntityInput{Code: "AB CD", Name: strPtr("X")}, "letters, digits"},
		{"missing name", model.EntityInput{Code: "PLT01"}, "name is required"},
		{"blank name", model.EntityInput{Code: "PLT01", Name: strPtr("   ")}, "name is required"},
		{"name too long", model.EntityInput{Code: "PLT01", Name: strPtr(strings.Repeat("x", 256))}, "at most 255"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.Create(context.Background(), tt.input, 1)
			assert.False(t, res.Success)
			assert.Equal(t, KindInvalid, res.Kind)
			assert.Contains(t, res.Error, tt.want)
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	repo := newMemRepo()
	repo.seed("PLT01", "North Plant", true)
	svc := newTestService(repo)

	res := svc.Create(context.Background(), model.EntityInput{Code: "PLT01", Name: strPtr("Clone")}, 1)
	assert.False(t, res.Success)
	assert.Equal(t, KindConflict, res.Kind)
	assert.Contains(t, res.Error, "already exists")
}

// raceRepo enforces uniqueness in Create itself, the way the database
// constraint does, and reports every code as free so concurrent creates
// all pass the pre-check and race to the insert.
type raceRepo struct {
	*memRepo
	mu sync.Mutex
}

func (r *raceRepo) Exists(context.Context, string) (bool, error) { return false, nil }

func (r *raceRepo) Create(ctx context.Context, input model.EntityInput, actorID int64) (*model.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.rows[input.Code]; taken {
		return nil, repository.ErrDuplicateCode
	}
	return r.memRepo.Create(ctx, input, actorID)
}

func TestCreateConcurrentSameCode(t *testing.T) {
	repo := &raceRepo{memRepo: newMemRepo()}
	svc := NewService[model.Site](repo, model.SiteConfig())

	start := make(chan struct{})
	results := make(chan Result[model.Site], 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- svc.Create(context.Background(), model.EntityInput{Code: "PLT01", Name: strPtr("North Plant")}, 1)
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var created, conflicts int
	for res := range results {
		if res.Success {
			created++
			continue
		}
		conflicts++
		assert.Equal(t, KindConflict, res.Kind)
		assert.Contains(t, res.Error, "already exists")
	}
	assert.Equal(t, 1, created, "exactly one concurrent create may win")
	assert.Equal(t, 1, conflicts)
	assert.Len(t, repo.rows, 1)
}

func TestUpdatePartialMerge(t *testing.T) {
	repo := newMemRepo()
	repo.seed("PLT01", "North Plant", true)
	svc := newTestService(repo)

	res := svc.Update(context.Background(), "plt01", model.EntityInput{Name: strPtr("Renamed")}, 2)
	require.True(t, res.Success)
	assert.Equal(t, "PLT01", res.Data.Code, "code never changes")
	assert.Equal(t, "Renamed", res.Data.Name)
	assert.True(t, res.Data.IsActive, "fields absent from the input keep their values")
}

func TestUpdateNotFound(t *testing.T) {
	svc := newTestService(newMemRepo())

	res := svc.Update(context.Background(), "GHOST", model.EntityInput{Name: strPtr("X")}, 1)
	assert.False(t, res.Success)
	assert.Equal(t, KindNotFound, res.Kind)
}

func TestGetByCodeMalformedLooksMissing(t *testing.T) {
	repo := newMemRepo()
	repo.seed("PLT01", "North Plant", true)
	svc := newTestService(repo)

	for _, code := range []string{"PLT 01", "PLT!1", "WAYTOOLONG", ""} {
		res := svc.GetByCode(context.Background(), code)
		assert.False(t, res.Success)
		assert.Equal(t, KindNotFound, res.Kind, "malformed code %q must read as not found", code)
	}
}

func TestDelete(t *testing.T) {
	repo := newMemRepo()
	repo.seed("PLT01", "North Plant", true)
	svc := newTestService(repo)

	res := svc.Delete(context.Background(), "PLT01", 1)
	assert.True(t, res.Success)

	// The record is gone for good; a second delete fails.
	res = svc.Delete(context.Background(), "PLT01", 1)
	assert.False(t, res.Success)
	assert.Equal(t, KindNotFound, res.Kind)

	get := svc.GetByCode(context.Background(), "PLT01")
	assert.False(t, get.Success)
}

func TestChangeStatusToggles(t *testing.T) {
	repo := newMemRepo()
	repo.seed("PLT01", "North Plant", true)
	svc := newTestService(repo)

	res := svc.ChangeStatus(context.Background(), "PLT01", 1)
	require.True(t, res.Success)
	assert.False(t, res.Data.IsActive)

	// Toggling twice restores the original state.
	res = svc.ChangeStatus(context.Background(), "PLT01", 1)
	require.True(t, res.Success)
	assert.True(t, res.Data.IsActive)
}

func TestApplyDefaultOptions(t *testing.T) {
	svc := newTestService(newMemRepo())

	opts := svc.ApplyDefaultOptions(model.QueryOptions{})
	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, 20, opts.Limit)
	assert.Equal(t, "code", opts.SortBy)
	assert.Equal(t, model.SortAsc, opts.SortOrder)

	opts = svc.ApplyDefaultOptions(model.QueryOptions{Page: -3, Limit: 10000, SortOrder: "desc"})
	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, 100, opts.Limit, "limit clamps to the entity maximum")
	assert.Equal(t, model.SortAsc, opts.SortOrder, "only exact DESC is honored")
}

func TestCheckAvailability(t *testing.T) {
	repo := newMemRepo()
	repo.seed("PLT01", "North Plant", true)
	svc := newTestService(repo)

	res := svc.CheckAvailability(context.Background(), "PLT02")
	assert.True(t, res.Success)
	assert.True(t, res.Available)

	res = svc.CheckAvailability(context.Background(), "plt01")
	assert.True(t, res.Success, "a taken code is still a successful check")
	assert.False(t, res.Available)

	res = svc.CheckAvailability(context.Background(), "BAD CODE")
	assert.True(t, res.Success)
	assert.False(t, res.Available)
	assert.NotEmpty(t, res.Errors)
}

func TestValidationHookAppends(t *testing.T) {
	hook := func(input model.EntityInput, op Operation, errs []string) []string {
		if op == OpCreate && !strings.HasPrefix(input.Code, "P") {
			errs = append(errs, "site code must start with P")
		}
		return errs
	}
	svc := newTestService(newMemRepo(), WithValidation[model.Site](hook))

	// The hook's rule fires alongside the generic ones, never instead.
	v := svc.Validate(model.EntityInput{Code: "X1"}, OpCreate)
	assert.False(t, v.Valid)
	assert.Contains(t, strings.Join(v.Errors, "; "), "name is required")
	assert.Contains(t, strings.Join(v.Errors, "; "), "must start with P")

	res := svc.Create(context.Background(), model.EntityInput{Code: "PLT01", Name: strPtr("North Plant")}, 1)
	assert.True(t, res.Success)
}

func TestSearchGuards(t *testing.T) {
	svc := newTestService(newMemRepo())

	res := svc.Search(context.Background(), "   ", model.QueryOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, KindInvalid, res.Kind)

	res = svc.Search(context.Background(), strings.Repeat("x", 300), model.QueryOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, KindInvalid, res.Kind)

	byName := svc.GetByName(context.Background(), "", model.QueryOptions{})
	assert.False(t, byName.Success)
	assert.Equal(t, KindInvalid, byName.Kind)
}

func TestListNeverReturnsNilItems(t *testing.T) {
	svc := newTestService(newMemRepo())

	res := svc.List(context.Background(), model.QueryOptions{})
	require.True(t, res.Success)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Equal(t, int64(0), res.Pagination.TotalPages)
}

func TestListStorageFailure(t *testing.T) {
	repo := newMemRepo()
	repo.fail = true
	svc := newTestService(repo)

	res := svc.List(context.Background(), model.QueryOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, KindInternal, res.Kind)
}
