package routes

import (
	"relaycore/controllers"

	"github.com/gin-gonic/gin"
)

// SetupGasRouter 初始化费率报价路由
func SetupGasRouter(r *gin.Engine, gasController *controllers.GasController) {
	r.GET("/gas/estimate", gasController.Estimate)
}
