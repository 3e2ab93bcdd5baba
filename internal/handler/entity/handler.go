package entity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qc-api/internal/handler"
	"github.com/qualitrack/qc-api/internal/middleware"
	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/service/entity"
)

// Servicer is the business contract the generic handler drives. Both the
// generic service and entity specializations composed around it satisfy it.
type Servicer[T any] interface {
	Config() model.EntityConfig
	GetByCode(ctx context.Context, code string) entity.Result[T]
	List(ctx context.Context, opts model.QueryOptions) entity.ListResult[T]
	Create(ctx context.Context, input model.EntityInput, actorID int64) entity.Result[T]
	Update(ctx context.Context, code string, input model.EntityInput, actorID int64) entity.Result[T]
	Delete(ctx context.Context, code string, actorID int64) entity.Result[T]
	ChangeStatus(ctx context.Context, code string, actorID int64) entity.Result[T]
	CheckAvailability(ctx context.Context, code string) entity.AvailabilityResult
	GetHealth(ctx context.Context) *model.EntityHealth
	GetStatistics(ctx context.Context) entity.Result[model.EntityStats]
	GetByName(ctx context.Context, name string, opts model.QueryOptions) entity.ListResult[T]
	FilterStatus(ctx context.Context, active bool, opts model.QueryOptions) entity.ListResult[T]
	Search(ctx context.Context, pattern string, opts model.QueryOptions) entity.ListResult[T]
}

// Handler maps the business envelope of one entity type onto HTTP. All
// entity endpoints share its status-code policy.
type Handler[T any] struct {
	service Servicer[T]
	cfg     model.EntityConfig
}

// NewHandler creates the HTTP layer for one entity service.
func NewHandler[T any](service Servicer[T]) *Handler[T] {
	return &Handler[T]{service: service, cfg: service.Config()}
}

// RegisterRoutes binds the entity's URL surface. Registration order matters:
// literal sub-paths must precede the /:code wildcard or gin would route
// /statistics into the single-entity handlers.
func (h *Handler[T]) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	roles := h.cfg.Roles
	codeParam := middleware.CodeParam(h.cfg)

	g := r.Group(h.cfg.APIPath)
	{
		// Fixed analytics sub-paths.
		g.GET("/health", auth.RequireRole(roles.Analytics), h.Health)
		g.GET("/statistics", auth.RequireRole(roles.Analytics), h.Statistics)

		// Fixed search and filter sub-paths.
		g.GET("/check/:code", auth.RequireRole(roles.Read), h.CheckAvailability)
		g.GET("/search/name/:name", auth.RequireRole(roles.Read), h.GetByName)
		g.GET("/search/pattern/:pattern", auth.RequireRole(roles.Read), h.Search)
		g.GET("/filter/status/:status", auth.RequireRole(roles.Read), h.FilterStatus)

		// Collection-level verbs.
		g.POST("", auth.RequireRole(roles.Write), h.Create)
		g.GET("", auth.RequireRole(roles.Read), h.List)

		// Single-entity verbs, keyed by :code. Last so the wildcard cannot
		// shadow anything above.
		g.GET("/:code", auth.RequireRole(roles.Read), codeParam, h.Get)
		g.PUT("/:code", auth.RequireRole(roles.Write), codeParam, h.Update)
		g.PATCH("/:code/status", auth.RequireRole(roles.Write), codeParam, h.ChangeStatus)
		g.DELETE("/:code", auth.RequireRole(roles.Delete), codeParam, h.Delete)
	}
}

// listFailureStatus distinguishes caller mistakes from server-side failures
// on page-shaped operations.
func listFailureStatus(kind entity.Kind) int {
	if kind == entity.KindInvalid {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler[T]) Create(c *gin.Context) {
	var input model.EntityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request body"))
		return
	}

	res := h.service.Create(c.Request.Context(), input, middleware.ActorID(c))
	if !res.Success {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusCreated, handler.NewMessageResponse(res.Data, fmt.Sprintf("%s created", h.cfg.EntityName)))
}

func (h *Handler[T]) Get(c *gin.Context) {
	res := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if !res.Success {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(res.Data))
}

func (h *Handler[T]) List(c *gin.Context) {
	opts, err := parseQueryOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	// Input is already parsed; a failing list is a server-side problem.
	res := h.service.List(c.Request.Context(), opts)
	if !res.Success {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(res.Items, res.Pagination))
}

func (h *Handler[T]) Update(c *gin.Context) {
	var input model.EntityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request body"))
		return
	}
	// Code comes from the path only; a code in the body is ignored.
	input.Code = ""

	res := h.service.Update(c.Request.Context(), c.Param("code"), input, middleware.ActorID(c))
	if !res.Success {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(res.Data, fmt.Sprintf("%s updated", h.cfg.EntityName)))
}

func (h *Handler[T]) Delete(c *gin.Context) {
	res := h.service.Delete(c.Request.Context(), c.Param("code"), middleware.ActorID(c))
	if !res.Success {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(nil, fmt.Sprintf("%s deleted", h.cfg.EntityName)))
}

func (h *Handler[T]) ChangeStatus(c *gin.Context) {
	res := h.service.ChangeStatus(c.Request.Context(), c.Param("code"), middleware.ActorID(c))
	if !res.Success {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(res.Data, fmt.Sprintf("%s status changed", h.cfg.EntityName)))
}

func (h *Handler[T]) Health(c *gin.Context) {
	health := h.service.GetHealth(c.Request.Context())

	status := http.StatusOK
	switch health.Status {
	case model.HealthDegraded:
		status = http.StatusPartialContent
	case model.HealthUnhealthy:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, handler.NewSuccessResponse(health))
}

func (h *Handler[T]) Statistics(c *gin.Context) {
	res := h.service.GetStatistics(c.Request.Context())
	if !res.Success {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(res.Data))
}

func (h *Handler[T]) CheckAvailability(c *gin.Context) {
	res := h.service.CheckAvailability(c.Request.Context(), c.Param("code"))
	if !res.Success {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("availability check failed"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(res))
}

func (h *Handler[T]) GetByName(c *gin.Context) {
	opts, err := parseQueryOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	res := h.service.GetByName(c.Request.Context(), c.Param("name"), opts)
	if !res.Success {
		c.JSON(listFailureStatus(res.Kind), handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(res.Items, res.Pagination))
}

func (h *Handler[T]) Search(c *gin.Context) {
	opts, err := parseQueryOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	res := h.service.Search(c.Request.Context(), c.Param("pattern"), opts)
	if !res.Success {
		c.JSON(listFailureStatus(res.Kind), handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(res.Items, res.Pagination))
}

func (h *Handler[T]) FilterStatus(c *gin.Context) {
	active, err := parseBool(c.Param("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("status must be true, false, 1 or 0"))
		return
	}

	opts, err := parseQueryOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	res := h.service.FilterStatus(c.Request.Context(), active, opts)
	if !res.Success {
		c.JSON(listFailureStatus(res.Kind), handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(res.Items, res.Pagination))
}
