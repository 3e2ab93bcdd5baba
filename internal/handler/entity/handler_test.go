package entity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitrack/qc-api/internal/middleware"
	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/service/entity"
	"github.com/qualitrack/qc-api/pkg/auth"
)

// stubService scripts the business layer so tests exercise only the HTTP
// mapping. Unset hooks answer with a successful zero value.
type stubService struct {
	health *model.EntityHealth

	onGet    func(code string) entity.Result[model.Site]
	onCreate func(input model.EntityInput, actorID int64) entity.Result[model.Site]
	onList   func(opts model.QueryOptions) entity.ListResult[model.Site]
	onFilter func(active bool, opts model.QueryOptions) entity.ListResult[model.Site]

	lastOpts    *model.QueryOptions
	getCalls    int
	deleteCalls int
}

func okSite(code string) entity.Result[model.Site] {
	return entity.Result[model.Site]{
		Success: true,
		Data:    &model.Site{CodedEntity: model.CodedEntity{Code: code, Name: "Site " + code, IsActive: true}},
	}
}

func emptyPage() entity.ListResult[model.Site] {
	return entity.ListResult[model.Site]{
		Success:    true,
		Items:      []model.Site{},
		Pagination: model.NewPagination(1, 20, 0),
	}
}

func (s *stubService) Config() model.EntityConfig { return model.SiteConfig() }

func (s *stubService) GetByCode(_ context.Context, code string) entity.Result[model.Site] {
	s.getCalls++
	if s.onGet != nil {
		return s.onGet(code)
	}
	return okSite(code)
}

func (s *stubService) List(_ context.Context, opts model.QueryOptions) entity.ListResult[model.Site] {
	s.lastOpts = &opts
	if s.onList != nil {
		return s.onList(opts)
	}
	return emptyPage()
}

func (s *stubService) Create(_ context.Context, input model.EntityInput, actorID int64) entity.Result[model.Site] {
	if s.onCreate != nil {
		return s.onCreate(input, actorID)
	}
	return okSite(input.Code)
}

func (s *stubService) Update(_ context.Context, code string, _ model.EntityInput, _ int64) entity.Result[model.Site] {
	return okSite(code)
}

func (s *stubService) Delete(_ context.Context, code string, _ int64) entity.Result[model.Site] {
	s.deleteCalls++
	return entity.Result[model.Site]{Success: true}
}

func (s *stubService) ChangeStatus(_ context.Context, code string, _ int64) entity.Result[model.Site] {
	return okSite(code)
}

func (s *stubService) CheckAvailability(context.Context, string) entity.AvailabilityResult {
	return entity.AvailabilityResult{Success: true, Available: true}
}

func (s *stubService) GetHealth(context.Context) *model.EntityHealth {
	if s.health != nil {
		return s.health
	}
	return &model.EntityHealth{Entity: "site", Status: model.HealthHealthy}
}

func (s *stubService) GetStatistics(context.Context) entity.Result[model.EntityStats] {
	return entity.Result[model.EntityStats]{Success: true, Data: &model.EntityStats{Entity: "site", Total: 3}}
}

func (s *stubService) GetByName(_ context.Context, _ string, opts model.QueryOptions) entity.ListResult[model.Site] {
	s.lastOpts = &opts
	return emptyPage()
}

func (s *stubService) FilterStatus(_ context.Context, active bool, opts model.QueryOptions) entity.ListResult[model.Site] {
	s.lastOpts = &opts
	if s.onFilter != nil {
		return s.onFilter(active, opts)
	}
	return emptyPage()
}

func (s *stubService) Search(_ context.Context, _ string, opts model.QueryOptions) entity.ListResult[model.Site] {
	s.lastOpts = &opts
	return emptyPage()
}

type tokenFunc func(role model.Role) string

func newTestRouter(t *testing.T, svc Servicer[model.Site]) (*gin.Engine, tokenFunc) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewJWTService("test-secret", time.Hour)
	authMW := middleware.NewAuthMiddleware(tokens)

	r := gin.New()
	g := r.Group("/api/v1", authMW.Authenticate())
	NewHandler[model.Site](svc).RegisterRoutes(g, authMW)

	return r, func(role model.Role) string {
		token, err := tokens.GenerateToken(&model.Account{ID: 7, Role: role})
		require.NoError(t, err)
		return token
	}
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthentication(t *testing.T) {
	r, token := newTestRouter(t, &stubService{})

	w := do(r, http.MethodGet, "/api/v1/sites", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/v1/sites", "garbage-token", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/v1/sites", token(model.RoleUser), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleGating(t *testing.T) {
	svc := &stubService{}
	r, token := newTestRouter(t, svc)

	// Writes need manager, deletes need admin.
	w := do(r, http.MethodPost, "/api/v1/sites", token(model.RoleUser), `{"code":"PLT01","name":"North"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/api/v1/sites", token(model.RoleManager), `{"code":"PLT01","name":"North"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/sites/PLT01", token(model.RoleManager), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, svc.deleteCalls)

	w = do(r, http.MethodDelete, "/api/v1/sites/PLT01", token(model.RoleAdmin), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.deleteCalls)

	w = do(r, http.MethodGet, "/api/v1/sites/statistics", token(model.RoleUser), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateStatusCodes(t *testing.T) {
	svc := &stubService{}
	r, token := newTestRouter(t, svc)

	w := do(r, http.MethodPost, "/api/v1/sites", token(model.RoleManager), `{"code":"PLT01","name":"North"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])

	svc.onCreate = func(model.EntityInput, int64) entity.Result[model.Site] {
		return entity.Result[model.Site]{Success: false, Error: "site code is required", Kind: entity.KindInvalid}
	}
	w = do(r, http.MethodPost, "/api/v1/sites", token(model.RoleManager), `{"name":"North"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "required")

	w = do(r, http.MethodPost, "/api/v1/sites", token(model.RoleManager), `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePassesActorFromToken(t *testing.T) {
	svc := &stubService{}
	var gotActor int64
	svc.onCreate = func(_ model.EntityInput, actorID int64) entity.Result[model.Site] {
		gotActor = actorID
		return okSite("PLT01")
	}
	r, token := newTestRouter(t, svc)

	do(r, http.MethodPost, "/api/v1/sites", token(model.RoleManager), `{"code":"PLT01","name":"North"}`)
	assert.Equal(t, int64(7), gotActor)
}

func TestGetStatusCodes(t *testing.T) {
	svc := &stubService{}
	r, token := newTestRouter(t, svc)

	w := do(r, http.MethodGet, "/api/v1/sites/PLT01", token(model.RoleUser), "")
	assert.Equal(t, http.StatusOK, w.Code)

	svc.onGet = func(string) entity.Result[model.Site] {
		return entity.Result[model.Site]{Success: false, Error: "site not found", Kind: entity.KindNotFound}
	}
	w = do(r, http.MethodGet, "/api/v1/sites/PLT09", token(model.RoleUser), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMalformedCodeRejectedBeforeService(t *testing.T) {
	svc := &stubService{}
	r, token := newTestRouter(t, svc)

	// Longer than the configured code length, never reaches the service.
	w := do(r, http.MethodGet, "/api/v1/sites/WAYTOOLONG", token(model.RoleUser), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, svc.getCalls)

	w = do(r, http.MethodGet, "/api/v1/sites/PLT!1", token(model.RoleUser), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, svc.getCalls)
}

func TestStatisticsNotShadowedByWildcard(t *testing.T) {
	svc := &stubService{}
	r, token := newTestRouter(t, svc)

	w := do(r, http.MethodGet, "/api/v1/sites/statistics", token(model.RoleManager), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.getCalls, "statistics must not fall through to the single-entity route")

	body := decode(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "site", data["entity"])
}

func TestListQueryParsing(t *testing.T) {
	svc := &stubService{}
	r, token := newTestRouter(t, svc)

	w := do(r, http.MethodGet, "/api/v1/sites?page=2&limit=5&sortOrder=DESC&is_active=true", token(model.RoleUser), "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastOpts)
	assert.Equal(t, 2, svc.lastOpts.Page)
	assert.Equal(t, 5, svc.lastOpts.Limit)
	assert.Equal(t, model.SortDesc, svc.lastOpts.SortOrder)
	require.NotNil(t, svc.lastOpts.IsActive)
	assert.True(t, *svc.lastOpts.IsActive)
}

func TestListQueryParsingRejectsBadInput(t *testing.T) {
	svc := &stubService{}
	r, token := newTestRouter(t, svc)

	for _, query := range []string{
		"?page=abc",
		"?limit=ten",
		"?is_active=maybe",
		"?createdAfter=yesterday",
	} {
		w := do(r, http.MethodGet, "/api/v1/sites"+query, token(model.RoleUser), "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "query %s", query)
	}

	// Lowercase desc is not honored, but not an error either.
	w := do(r, http.MethodGet, "/api/v1/sites?sortOrder=desc", token(model.RoleUser), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.SortAsc, svc.lastOpts.SortOrder)
}

func TestFilterStatusParam(t *testing.T) {
	svc := &stubService{}
	var gotActive bool
	svc.onFilter = func(active bool, _ model.QueryOptions) entity.ListResult[model.Site] {
		gotActive = active
		return emptyPage()
	}
	r, token := newTestRouter(t, svc)

	w := do(r, http.MethodGet, "/api/v1/sites/filter/status/1", token(model.RoleUser), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotActive)

	w = do(r, http.MethodGet, "/api/v1/sites/filter/status/false", token(model.RoleUser), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gotActive)

	w = do(r, http.MethodGet, "/api/v1/sites/filter/status/maybe", token(model.RoleUser), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthStatusCodes(t *testing.T) {
	tests := []struct {
		status string
		want   int
	}{
		{model.HealthHealthy, http.StatusOK},
		{model.HealthDegraded, http.StatusPartialContent},
		{model.HealthUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			svc := &stubService{health: &model.EntityHealth{Entity: "site", Status: tt.status}}
			r, token := newTestRouter(t, svc)

			w := do(r, http.MethodGet, "/api/v1/sites/health", token(model.RoleManager), "")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestListResponseShape(t *testing.T) {
	svc := &stubService{}
	svc.onList = func(model.QueryOptions) entity.ListResult[model.Site] {
		return entity.ListResult[model.Site]{
			Success: true,
			Items: []model.Site{
				{CodedEntity: model.CodedEntity{Code: "PLT01", Name: "North", IsActive: true}},
			},
			Pagination: model.NewPagination(1, 20, 1),
		}
	}
	r, token := newTestRouter(t, svc)

	w := do(r, http.MethodGet, "/api/v1/sites", token(model.RoleUser), "")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	require.NotNil(t, body["pagination"])
	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["total"])
	assert.Equal(t, float64(1), pagination["totalPages"])

	items := body["data"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "PLT01", first["code"])
}
