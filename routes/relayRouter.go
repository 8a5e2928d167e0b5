package routes

import (
	"relaycore/controllers"

	"github.com/gin-gonic/gin"
)

// SetupRelayRouter 初始化元交易中继路由
func SetupRelayRouter(r *gin.Engine, relayController *controllers.RelayController) {
	r.POST("/relay/submit", relayController.Submit)
	r.GET("/relay/status", relayController.Status)
}
