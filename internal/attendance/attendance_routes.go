package attendance

import (
	"hris-timekeeper/internal/middleware"
	"hris-timekeeper/internal/rbac"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the employee's own attendance endpoints. auth runs
// before authorization and is usually AuthMiddleware plus the rate limiter.
func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService middleware.RBACService, auth ...gin.HandlerFunc) {
	attendances := r.Group("/attendances")
	attendances.Use(auth...)
	{
		canWrite := middleware.RBACAuthorize(rbacService, rbac.ResourceAttendance, rbac.ActionCreate)
		canRead := middleware.RBACAuthorize(rbacService, rbac.ResourceAttendance, rbac.ActionRead)

		attendances.GET("", canRead, h.History)
		attendances.GET("/session", canRead, h.Session)
		attendances.POST("/clock-in", canWrite, h.ClockIn)
		attendances.POST("/break/start", canWrite, h.StartBreak)
		attendances.POST("/break/end", canWrite, h.EndBreak)
		attendances.POST("/clock-out", canWrite, h.ClockOut)
	}
}
