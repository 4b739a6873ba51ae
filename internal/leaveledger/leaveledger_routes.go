package leaveledger

import (
	"hris-timekeeper/internal/middleware"
	"hris-timekeeper/internal/rbac"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the ledger endpoints. idempotency guards the
// deduction POST and may be nil.
func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService middleware.RBACService, idempotency gin.HandlerFunc, auth ...gin.HandlerFunc) {
	ledgers := r.Group("/leave-ledgers")
	ledgers.Use(auth...)

	deduct := []gin.HandlerFunc{middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveLedger, rbac.ActionDeduct)}
	if idempotency != nil {
		deduct = append(deduct, idempotency)
	}
	deduct = append(deduct, h.DeductMine)

	{
		ledgers.GET("/me", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveLedger, rbac.ActionRead), h.GetMine)
		ledgers.POST("/me/deductions", deduct...)
		ledgers.GET("/:employee_id", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveLedger, rbac.ActionReadAny), h.GetByEmployee)
		ledgers.POST("/:employee_id/reset", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveLedger, rbac.ActionReset), h.Reset)
	}
}
