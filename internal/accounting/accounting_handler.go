package accounting

import (
	"net/http"
	"time"

	"hris-timekeeper/internal/shared/apperror"
	"hris-timekeeper/internal/shared/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
	now     func() time.Time
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) CloseDay(c *gin.Context) {
	var req CloseDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpErr := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	res, err := h.service.CloseDayAndMaybeDeductLeave(c.Request.Context(), c.GetString("employee_id"), h.now(), req.Summary, req.Leave)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		if httpErr.Code == apperror.CodePartialApplication {
			response.Partial(c, httpErr.Status, res, httpErr.Code, httpErr.Message, res.LeaveError)
			return
		}
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}
	response.Success(c, http.StatusOK, res, nil)
}

func (h *Handler) ApproveLeave(c *gin.Context) {
	res, err := h.service.ApproveLeaveRequest(c.Request.Context(), c.GetString("employee_id"), c.Param("id"))
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		if httpErr.Code == apperror.CodePartialApplication {
			response.Partial(c, httpErr.Status, res, httpErr.Code, httpErr.Message, res.LeaveError)
			return
		}
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}
	response.Success(c, http.StatusOK, res, nil)
}
