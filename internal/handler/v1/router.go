package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the v1 API onto the router group. Authentication and
// cross-cutting middleware are attached by the caller.
func RegisterRoutes(api *gin.RouterGroup, prescriptions *PrescriptionHandler, orders *OrderHandler) {
	rx := api.Group("/prescriptions")
	{
		rx.POST("", prescriptions.Upload)
		rx.GET("", prescriptions.List)
		rx.GET("/:id", prescriptions.Get)
		rx.POST("/:id/verify", prescriptions.Verify)
		rx.POST("/:id/reject", prescriptions.Reject)
		rx.POST("/:id/revoke", prescriptions.Revoke)
		rx.POST("/:id/security-code", prescriptions.GenerateSecurityCode)
		rx.POST("/:id/security-code/validate", prescriptions.ValidateSecurityCode)
		rx.GET("/:id/validate/:medicationId", prescriptions.ValidateForMedication)
	}

	ord := api.Group("/orders")
	{
		ord.POST("", orders.Create)
		ord.GET("", orders.List)
		ord.GET("/:id", orders.Get)
		ord.POST("/:id/approve", orders.Approve)
		ord.POST("/:id/cancel", orders.Cancel)
	}
}
