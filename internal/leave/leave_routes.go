package leave

import (
	"hris-timekeeper/internal/middleware"
	"hris-timekeeper/internal/rbac"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the request workflow. Approval lives on the
// accounting façade because it also moves the ledger.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rbacService middleware.RBACService, auth ...gin.HandlerFunc) {
	leaves := r.Group("/leave-requests")
	leaves.Use(auth...)
	{
		leaves.POST("", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionCreate), handler.Create)
		leaves.GET("/me", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionRead), handler.ListMine)
		leaves.GET("/pending", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionReadAny), handler.ListPending)
		leaves.GET("/:id", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionReadAny), handler.GetByID)
		leaves.POST("/:id/cancel", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionCancel), handler.Cancel)
		leaves.POST("/:id/reject", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionReject), handler.Reject)
	}
}
