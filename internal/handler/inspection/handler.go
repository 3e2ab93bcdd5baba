package inspection

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qc-api/internal/handler"
	"github.com/qualitrack/qc-api/internal/middleware"
	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/service/entity"
	inspectionService "github.com/qualitrack/qc-api/internal/service/inspection"
)

type Handler struct {
	service inspectionService.InspectionServicer
}

func NewHandler(service inspectionService.InspectionServicer) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes binds the inspection surface. Same ordering rule as the
// entity routes: literal sub-paths before the :id wildcard.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	g := r.Group("/inspections")
	{
		g.GET("/summary", auth.RequireRole(model.RoleManager), h.Summary)
		g.POST("", auth.RequireRole(model.RoleUser), h.Create)
		g.GET("", auth.RequireRole(model.RoleUser), h.List)
		g.GET("/:id", auth.RequireRole(model.RoleUser), h.Get)
		g.PUT("/:id", auth.RequireRole(model.RoleManager), h.Update)
		g.DELETE("/:id", auth.RequireRole(model.RoleAdmin), h.Delete)
	}
}

type inspectionRequest struct {
	LineCode     string     `json:"line_code" binding:"required"`
	CustomerCode string     `json:"customer_code" binding:"required"`
	DefectCode   *string    `json:"defect_code"`
	Result       string     `json:"result" binding:"required,oneof=pass fail rework"`
	QtyInspected int        `json:"qty_inspected" binding:"required,min=1"`
	QtyDefective int        `json:"qty_defective" binding:"min=0"`
	Notes        string     `json:"notes"`
	InspectedAt  *time.Time `json:"inspected_at"`
}

func (r inspectionRequest) toModel(inspectorID int64) *model.Inspection {
	insp := &model.Inspection{
		LineCode:     r.LineCode,
		CustomerCode: r.CustomerCode,
		DefectCode:   r.DefectCode,
		Result:       r.Result,
		QtyInspected: r.QtyInspected,
		QtyDefective: r.QtyDefective,
		Notes:        r.Notes,
		InspectorID:  inspectorID,
	}
	if r.InspectedAt != nil {
		insp.InspectedAt = *r.InspectedAt
	}
	return insp
}

func failureStatus(kind entity.Kind) int {
	switch kind {
	case entity.KindInvalid:
		return http.StatusBadRequest
	case entity.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req inspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request body"))
		return
	}

	res := h.service.Create(c.Request.Context(), req.toModel(middleware.ActorID(c)))
	if !res.Success {
		c.JSON(failureStatus(res.Kind), handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusCreated, handler.NewMessageResponse(res.Data, "inspection recorded"))
}

func (h *Handler) Get(c *gin.Context) {
	res := h.service.Get(c.Request.Context(), c.Param("id"))
	if !res.Success {
		c.JSON(failureStatus(res.Kind), handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(res.Data))
}

func bindInt(c *gin.Context, key string, dst *int) error {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q", key, raw)
	}
	*dst = v
	return nil
}

func bindDate(c *gin.Context, key string, dst **time.Time) error {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q", key, raw)
	}
	*dst = &t
	return nil
}

func (h *Handler) List(c *gin.Context) {
	var filter model.InspectionFilter
	filter.LineCode = c.Query("line")
	filter.CustomerCode = c.Query("customer")
	filter.Result = c.Query("result")

	if err := bindInt(c, "page", &filter.Page); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if err := bindInt(c, "limit", &filter.Limit); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if err := bindDate(c, "after", &filter.After); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if err := bindDate(c, "before", &filter.Before); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	res := h.service.List(c.Request.Context(), filter)
	if !res.Success {
		c.JSON(failureStatus(res.Kind), handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(res.Items, res.Pagination))
}

func (h *Handler) Update(c *gin.Context) {
	var req inspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request body"))
		return
	}

	res := h.service.Update(c.Request.Context(), c.Param("id"), req.toModel(middleware.ActorID(c)))
	if !res.Success {
		c.JSON(failureStatus(res.Kind), handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(res.Data, "inspection updated"))
}

func (h *Handler) Delete(c *gin.Context) {
	res := h.service.Delete(c.Request.Context(), c.Param("id"))
	if !res.Success {
		c.JSON(failureStatus(res.Kind), handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(nil, "inspection deleted"))
}

func (h *Handler) Summary(c *gin.Context) {
	var filter model.InspectionFilter
	filter.LineCode = c.Query("line")
	if err := bindDate(c, "after", &filter.After); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if err := bindDate(c, "before", &filter.Before); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	res := h.service.LineSummaries(c.Request.Context(), filter)
	if !res.Success {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(res.Error))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(res.Data))
}
