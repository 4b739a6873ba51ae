package accounting

import (
	"hris-timekeeper/internal/middleware"
	"hris-timekeeper/internal/rbac"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the composite endpoints. idempotency may be nil
// when Redis is not configured.
func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService middleware.RBACService, idempotency gin.HandlerFunc, auth ...gin.HandlerFunc) {
	group := r.Group("/accounting")
	group.Use(auth...)

	chain := []gin.HandlerFunc{middleware.RBACAuthorize(rbacService, rbac.ResourceAccounting, rbac.ActionCloseDay)}
	if idempotency != nil {
		chain = append(chain, idempotency)
	}
	chain = append(chain, h.CloseDay)

	group.POST("/close-day", chain...)
	group.POST("/leave-requests/:id/approve",
		middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionApprove),
		h.ApproveLeave,
	)
}
