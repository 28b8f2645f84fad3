package employeesalary

import (
	"net/http"

	"go-hris-ledger/internal/shared/apperror"
	"go-hris-ledger/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("employeesalary.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employeesalary.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("compensation request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.GetString("company_id")
	employeeID := c.Param("employee_id")
	h.logger.Debug("http get salary history",
		zap.String("company_id", companyID),
		zap.String("employee_id", employeeID),
	)

	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.GetHistory(ctx, companyID, employeeID, q.Page, q.PageSize)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	meta := response.NewPaginationMeta(int64(len(resp.History.Rows)), resp.History.Page, resp.History.PageSize)
	response.Success(c, http.StatusOK, resp, &meta)
}

func (h *Handler) Replace(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.GetString("company_id")
	employeeID := c.Param("employee_id")

	var req ReplaceCompensationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http replace compensation validation failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}
	h.logger.Debug("http replace compensation",
		zap.String("company_id", companyID),
		zap.String("employee_id", employeeID),
		zap.String("mode", string(req.Mode)),
	)

	resp, err := h.service.ReplaceCompensation(ctx, companyID, employeeID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
